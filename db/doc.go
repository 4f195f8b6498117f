// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db owns the relational store: connection, schema and repositories.

# Drivers

Open picks the driver from the configured database type:

	conn, err := db.Open(ctx, db.TypePostgres, "postgres://...") // lib/pq
	conn, err := db.Open(ctx, db.TypeSQLite, "file:devote.db")   // modernc.org/sqlite

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - users: every wallet that has connected (upserted)
  - delegations: append-only delegation and revocation records
  - polls: poll metadata, options as a JSON array
  - votes: one row per (poll_id, voter), enforced by UNIQUE
  - stewards: listed delegates

# Ordering

Delegation history and poll listings sort newest first by timestamp and fall
back to the auto-increment seq column, so rows written in the same clock
tick keep their insertion order.

# Errors

Repositories return ErrNotFound for missing rows and ErrUniqueViolation for
duplicate keys from either driver. Everything else is passed through.
*/
package db
