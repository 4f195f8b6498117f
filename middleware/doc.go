// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /polls", middleware.WithLogging(handler))

Logs request start (method, path, client IP) and completion (duration_ms).

# Sessions

RequireSession checks the bearer token issued by POST /session/connect and
puts the connected session on the request context:

	mux.HandleFunc("POST /delegation", middleware.WithLogging(
		middleware.RequireSession(cfg.SessionSecret, h.Delegate)))

	sess := session.FromContext(r.Context())

A missing, expired or forged token is answered with 401.

# Errors

WriteError maps every apperr kind to one status:

	validation, invalid_address, invalid_option   400
	not_connected                                 401
	membership_required                           403
	not_found                                     404
	duplicate_vote, poll_not_active               409
	no_provider, user_rejected                    412
	transaction, audit_write                      502
	timeout                                       504
	store                                         503

audit_write responses carry the delegator, delegatee, tx hash and time in
details so the missing record can be replayed.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows GET, POST, OPTIONS with headers Content-Type and Authorization.
*/
package middleware
