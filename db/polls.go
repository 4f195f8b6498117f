// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielhkuo/devote/models"
)

type PollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) *PollRepository {
	return &PollRepository{db: db}
}

// Insert stores a new poll. Options are kept as a JSON array so their order
// survives.
func (r *PollRepository) Insert(ctx context.Context, p models.Poll) error {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO polls (id, title, description, options, duration, creator, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Title, p.Description, string(options), string(p.Duration), p.Creator.String(), p.CreatedAt.UTC(), string(p.Status))
	if err != nil && isUniqueViolation(err) {
		return ErrUniqueViolation
	}
	return err
}

// Get returns ErrNotFound for an unknown id.
func (r *PollRepository) Get(ctx context.Context, id string) (models.Poll, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, options, duration, creator, created_at, status
		FROM polls
		WHERE id = $1
	`, id)

	p, err := scanPoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrNotFound
	}
	return p, err
}

// SkippedRow is a stored poll List could not decode.
type SkippedRow struct {
	ID  string
	Err error
}

// List returns polls newest first. An empty creator lists everyone's. Rows
// whose columns do not decode are left out and reported in skipped; only a
// failed query or scan is an error.
func (r *PollRepository) List(ctx context.Context, creator models.Address) (polls []models.Poll, skipped []SkippedRow, err error) {
	query := `
		SELECT id, title, description, options, duration, creator, created_at, status
		FROM polls
		ORDER BY created_at DESC, seq DESC
	`
	args := []any{}
	if creator != "" {
		query = `
		SELECT id, title, description, options, duration, creator, created_at, status
		FROM polls
		WHERE creator = $1
		ORDER BY created_at DESC, seq DESC
	`
		args = append(args, creator.String())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	polls = []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		var bad *decodeError
		switch {
		case errors.As(err, &bad):
			skipped = append(skipped, SkippedRow{ID: bad.id, Err: bad.err})
			continue
		case err != nil:
			return nil, nil, err
		}
		polls = append(polls, p)
	}
	return polls, skipped, rows.Err()
}

// decodeError marks a row that scanned but holds values the model rejects.
type decodeError struct {
	id  string
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.id, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

type scanner interface {
	Scan(dest ...any) error
}

func scanPoll(s scanner) (models.Poll, error) {
	var (
		p                                models.Poll
		options, duration, creator, stat string
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &options, &duration, &creator, &p.CreatedAt, &stat); err != nil {
		return models.Poll{}, err
	}
	if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
		return models.Poll{}, &decodeError{id: p.ID, err: fmt.Errorf("malformed options: %w", err)}
	}
	p.Duration = models.PollDuration(duration)
	p.Creator = models.Address(creator)
	p.Status = models.PollStatus(stat)
	return p, nil
}
