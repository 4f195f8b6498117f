// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Devote API.

# Route Registration

NewRouter builds the managers from Deps and returns a configured
http.ServeMux:

	mux := router.NewRouter(router.Deps{
		DB:       dbConn,
		Provider: provider,
		Reader:   provider,
		Cache:    cache.NewMemory(),
	}, cfg)

NewServices and NewRouterWithServices split the two steps when the caller
needs the managers too.

# Endpoints

Health:

	GET /health

Session:

	POST /session/connect     - Bind the wallet account, issue a token
	POST /session/disconnect  - Clear the session (auth)

Delegation:

	GET  /stewards                 - Steward directory with voting power
	POST /delegation               - Delegate (auth)
	POST /delegation/revoke        - Revoke back to self (auth)
	GET  /delegation/history       - Records for ?address=
	GET  /delegation/current       - Current delegate for ?address=
	GET  /delegation/reconcile     - Ledger vs audit history (auth)
	POST /delegation/repair        - Append the ledger's view (auth)
	GET  /delegation/revocations   - Revocations seen since startup (auth)

Polls:

	POST /polls               - Create poll (auth)
	GET  /polls               - List, newest first, optional ?creator=
	GET  /polls/{id}          - Poll with live status
	POST /polls/{id}/votes    - Cast vote (auth, membership)
	GET  /polls/{id}/tally    - Counts per option

Identity:

	GET /me/stats - Voting power, votes cast, delegators (auth)

Routes marked auth need Authorization: Bearer <token>.

# Events

Delegation events always reach the in-process revocation log. When
Deps.Stream is set, every delegated, revoked, poll_created and vote_cast
event is also published to it.
*/
package router
