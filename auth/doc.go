// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth issues and validates session tokens.

# Session Tokens

After a wallet connects, the server hands back an HS256 JWT whose subject is
the connected address:

	token, expiresAt, err := auth.IssueToken(addr, secret, ttl, time.Now())

Requests carry it as a bearer token; middleware turns it back into a
session.Session:

	addr, issuedAt, err := auth.ParseToken(token, secret)

Tokens with a different signing method, another issuer, no expiry, an
expired expiry or a malformed subject are all reported as ErrInvalidToken.
Nothing is stored server-side; disconnecting only drops the token.
*/
package auth
