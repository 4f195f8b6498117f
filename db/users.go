// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielhkuo/devote/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert registers addr, or bumps last_seen_at if it is already known.
func (r *UserRepository) Upsert(ctx context.Context, addr models.Address, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (wallet_address, created_at, last_seen_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
	`, addr.String(), at.UTC())
	return err
}

// Exists reports whether addr has ever connected.
func (r *UserRepository) Exists(ctx context.Context, addr models.Address) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE wallet_address = $1)
	`, addr.String()).Scan(&exists)
	return exists, err
}
