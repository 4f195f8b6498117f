// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danielhkuo/devote/models"
)

type StewardRepository struct {
	db *sql.DB
}

func NewStewardRepository(db *sql.DB) *StewardRepository {
	return &StewardRepository{db: db}
}

// Upsert adds or renames a steward.
func (r *StewardRepository) Upsert(ctx context.Context, s models.Steward) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stewards (id, name, wallet_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, wallet_address = EXCLUDED.wallet_address
	`, s.ID, s.Name, s.Address.String())
	return err
}

func (r *StewardRepository) Get(ctx context.Context, id string) (models.Steward, error) {
	var (
		s    models.Steward
		addr string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, wallet_address FROM stewards WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &addr)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Steward{}, ErrNotFound
	}
	if err != nil {
		return models.Steward{}, err
	}
	s.Address = models.Address(addr)
	return s, nil
}

func (r *StewardRepository) List(ctx context.Context) ([]models.Steward, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, wallet_address FROM stewards ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stewards := []models.Steward{}
	for rows.Next() {
		var (
			s    models.Steward
			addr string
		)
		if err := rows.Scan(&s.ID, &s.Name, &addr); err != nil {
			return nil, err
		}
		s.Address = models.Address(addr)
		stewards = append(stewards, s)
	}
	return stewards, rows.Err()
}
