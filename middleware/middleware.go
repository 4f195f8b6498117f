// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/auth"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Log request
		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", GetClientIP(r),
		)

		// Call the next handler
		next(w, r)

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// RequireSession rejects requests without a valid bearer token and puts the
// token's session on the request context.
func RequireSession(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			WriteError(w, apperr.ErrNotConnected)
			return
		}

		addr, issuedAt, err := auth.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			WriteError(w, apperr.ErrNotConnected)
			return
		}

		ctx := session.NewContext(r.Context(), session.New(addr, issuedAt))
		next(w, r.WithContext(ctx))
	}
}

// JSONResonse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// StatusFor maps an error kind to the HTTP status it is reported with.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidAddress, apperr.KindInvalidOption:
		return http.StatusBadRequest
	case apperr.KindNotConnected:
		return http.StatusUnauthorized
	case apperr.KindMembership:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateVote, apperr.KindNotActive:
		return http.StatusConflict
	case apperr.KindNoProvider, apperr.KindUserRejected:
		return http.StatusPreconditionFailed
	case apperr.KindTransaction, apperr.KindAuditWrite:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindStore:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteError reports err as a typed JSON error. Audit failures carry what
// is needed to replay the missing record.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	resp := models.ErrorResponse{
		Error:   string(kind),
		Message: err.Error(),
	}

	var (
		audit      *apperr.AuditWriteError
		validation *apperr.ValidationError
		membership *apperr.MembershipError
	)
	switch {
	case errors.As(err, &audit):
		resp.Details = map[string]any{
			"delegator": audit.Delegator,
			"delegatee": audit.Delegatee,
			"tx_hash":   audit.TxHash,
			"revoked":   audit.Revoked,
			"at":        audit.At,
		}
	case errors.As(err, &validation):
		resp.Message = validation.Message
		resp.Details = map[string]any{"field": validation.Field}
	case errors.As(err, &membership):
		resp.Details = map[string]any{
			"lock":       membership.Lock,
			"network_id": membership.NetworkID,
		}
		if membership.CheckoutURL != "" {
			resp.Details["checkout_url"] = membership.CheckoutURL
		}
	}

	switch kind {
	case apperr.KindStore, apperr.KindInternal:
		slog.Error("request failed", "kind", kind, "error", err)
		resp.Message = http.StatusText(status)
	case apperr.KindAuditWrite:
		slog.Error("request left ledger and audit out of sync", "error", err)
	}

	JSONResponse(w, status, resp)
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow requests from Vite dev server and production domains
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For (load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP in chain
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP (nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping the port
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}
