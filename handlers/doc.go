// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Devote API.

# Handler Types

Each handler is a thin struct over a manager:

  - SessionHandler: wallet connect/disconnect and session tokens
  - DelegationHandler: stewards, delegate, revoke, history, reconciliation
  - PollHandler: poll creation, listing, voting and tallies
  - StatsHandler: the connected identity's governance summary

Handlers decode the request, call the manager with the request's session and
report failures through middleware.WriteError.

# Sessions

	POST /session/connect    → Connect (returns a bearer token)
	POST /session/disconnect → Disconnect

Routes that act for a user expect Authorization: Bearer <token>.

# Delegation

	GET  /stewards
	POST /delegation              {"kind": "steward", "steward_id": "alice-chen"}
	POST /delegation/revoke
	GET  /delegation/history?address=0x...
	GET  /delegation/current?address=0x...
	GET  /delegation/reconcile
	POST /delegation/repair
	GET  /delegation/revocations

kind is one of self, steward or custom. A body with only "address" is a
custom target.

# Polls

	POST /polls              {"title", "description", "options", "duration"}
	GET  /polls?creator=0x...
	GET  /polls/{id}
	POST /polls/{id}/votes   {"option_index": 0}
	GET  /polls/{id}/tally

Poll responses carry the live status, the closing time and seconds left.
*/
package handlers
