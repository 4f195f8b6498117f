// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"

	"github.com/danielhkuo/devote/models"
)

type DelegationRepository struct {
	db *sql.DB
}

func NewDelegationRepository(db *sql.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

// Append inserts one record. Records are never updated.
func (r *DelegationRepository) Append(ctx context.Context, rec models.DelegationRecord) error {
	var revokedAt sql.NullTime
	if rec.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: rec.RevokedAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delegations (delegator_address, delegatee_address, timestamp, revoked, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.Delegator.String(), rec.Delegatee.String(), rec.Timestamp.UTC(), rec.Revoked, revokedAt)
	return err
}

// History returns delegator's records, most recent first. Records with the
// same timestamp come back in reverse insertion order.
func (r *DelegationRepository) History(ctx context.Context, delegator models.Address) ([]models.DelegationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT delegator_address, delegatee_address, timestamp, revoked, revoked_at
		FROM delegations
		WHERE delegator_address = $1
		ORDER BY timestamp DESC, seq DESC
	`, delegator.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.DelegationRecord{}
	for rows.Next() {
		var (
			rec       models.DelegationRecord
			from, to  string
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&from, &to, &rec.Timestamp, &rec.Revoked, &revokedAt); err != nil {
			return nil, err
		}
		rec.Delegator = models.Address(from)
		rec.Delegatee = models.Address(to)
		if revokedAt.Valid {
			t := revokedAt.Time
			rec.RevokedAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delegators lists every identity that has ever delegated to delegatee,
// whether or not it still does.
func (r *DelegationRepository) Delegators(ctx context.Context, delegatee models.Address) ([]models.Address, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT delegator_address
		FROM delegations
		WHERE delegatee_address = $1 AND delegator_address <> $1
		ORDER BY delegator_address
	`, delegatee.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Address
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, models.Address(addr))
	}
	return out, rows.Err()
}

// CountRevocations counts revoked records for delegator.
func (r *DelegationRepository) CountRevocations(ctx context.Context, delegator models.Address) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delegations WHERE delegator_address = $1 AND revoked
	`, delegator.String()).Scan(&n)
	return n, err
}
