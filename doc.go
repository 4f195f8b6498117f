// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Devote API server.

Devote is a governance client for a token-weighted DAO. Members bind a
wallet identity, delegate their voting power to a steward or any address,
keep an audit trail of every delegation change, and vote in member-only
polls whose status is derived from their creation time and duration.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t sqlite -d "file:devote.db" -session-secret dev

Without -rpc the server runs against an in-process ledger with a single
dev wallet.

# Configuration

Required settings:

  - DATABASE_URL (-d): audit store connection string
  - SESSION_SECRET (--session-secret): HMAC key for session tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - RPC_URL (-rpc), SIGNER_KEY, LEDGER_CONTRACT (-ledger): ledger access
  - MEMBERSHIP_CONTRACT (-membership), NETWORK_ID (-network): lock membership
  - SIGNATURE_TIMEOUT, CONFIRMATION_TIMEOUT: ledger write bounds
  - REDIS_ADDR (-redis), CACHE_TTL: read cache
  - KAFKA_BROKERS (-kafka), KAFKA_TOPIC: event stream
  - STEWARDS (-stewards): "Name=0xaddr,..." seeded at startup

# Architecture

  - identity: wallet binding (connect, disconnect)
  - delegation: delegate, revoke, history and reconciliation
  - polls: poll creation, listing, voting and tallies
  - chain: ledger contract calls over JSON-RPC or in process
  - db: audit store repositories for PostgreSQL and SQLite
  - cache, events: read cache and domain event fan-out
  - handlers, router, middleware: the HTTP surface
  - auth, session: session tokens and the connected identity
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
