// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"

	"github.com/danielhkuo/devote/models"
)

type VoteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Insert returns ErrUniqueViolation when voter already voted on the poll.
func (r *VoteRepository) Insert(ctx context.Context, v models.Vote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (poll_id, voter, option_index, cast_at)
		VALUES ($1, $2, $3, $4)
	`, v.PollID, v.Voter.String(), v.OptionIndex, v.CastAt.UTC())
	if err != nil && isUniqueViolation(err) {
		return ErrUniqueViolation
	}
	return err
}

func (r *VoteRepository) Exists(ctx context.Context, pollID string, voter models.Address) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE poll_id = $1 AND voter = $2
		)
	`, pollID, voter.String()).Scan(&exists)
	return exists, err
}

// CountByOption returns option_index -> number of votes.
func (r *VoteRepository) CountByOption(ctx context.Context, pollID string) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT option_index, COUNT(*)
		FROM votes
		WHERE poll_id = $1
		GROUP BY option_index
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, err
		}
		counts[idx] = n
	}
	return counts, rows.Err()
}

// CountByVoter returns how many polls voter has voted on.
func (r *VoteRepository) CountByVoter(ctx context.Context, voter models.Address) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE voter = $1
	`, voter.String()).Scan(&n)
	return n, err
}
