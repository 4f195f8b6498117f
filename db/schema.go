// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, dbType string) error {
	schema := postgresSchema
	if dbType == TypeSQLite {
		schema = sqliteSchema
	}

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    wallet_address TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

-- Delegations (append-only; seq breaks timestamp ties)
CREATE TABLE IF NOT EXISTS delegations (
    seq BIGSERIAL PRIMARY KEY,
    delegator_address TEXT NOT NULL,
    delegatee_address TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_delegations_delegator ON delegations(delegator_address, timestamp);
CREATE INDEX IF NOT EXISTS idx_delegations_delegatee ON delegations(delegatee_address);

-- Polls
CREATE TABLE IF NOT EXISTS polls (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    options TEXT NOT NULL,
    duration TEXT NOT NULL,
    creator TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls(created_at);
CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator);

-- Votes (one per voter per poll)
CREATE TABLE IF NOT EXISTS votes (
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    voter TEXT NOT NULL,
    option_index INTEGER NOT NULL CHECK (option_index >= 0),
    cast_at TIMESTAMP NOT NULL,
    UNIQUE (poll_id, voter)
);

CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter);

-- Stewards
CREATE TABLE IF NOT EXISTS stewards (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    wallet_address TEXT NOT NULL UNIQUE
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    wallet_address TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS delegations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    delegator_address TEXT NOT NULL,
    delegatee_address TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT 0,
    revoked_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_delegations_delegator ON delegations(delegator_address, timestamp);
CREATE INDEX IF NOT EXISTS idx_delegations_delegatee ON delegations(delegatee_address);

CREATE TABLE IF NOT EXISTS polls (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    options TEXT NOT NULL,
    duration TEXT NOT NULL,
    creator TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls(created_at);
CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator);

CREATE TABLE IF NOT EXISTS votes (
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    voter TEXT NOT NULL,
    option_index INTEGER NOT NULL CHECK (option_index >= 0),
    cast_at TIMESTAMP NOT NULL,
    UNIQUE (poll_id, voter)
);

CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter);

CREATE TABLE IF NOT EXISTS stewards (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    wallet_address TEXT NOT NULL UNIQUE
);
`
