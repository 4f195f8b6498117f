// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/devote/auth"
	"github.com/danielhkuo/devote/cliparse"
	"github.com/danielhkuo/devote/identity"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

type SessionHandler struct {
	binder *identity.Binder
	cfg    cliparse.Config
}

func NewSessionHandler(binder *identity.Binder, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{binder: binder, cfg: cfg}
}

// Connect handles POST /session/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, err := h.binder.Connect(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	token, expiresAt, err := auth.IssueToken(sess.Address, h.cfg.SessionSecret, h.cfg.SessionTTL, time.Now())
	if err != nil {
		slog.Error("failed to issue session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ConnectResponse{
		Address:   sess.Address,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Disconnect handles POST /session/disconnect. Tokens are stateless, so the
// client discards its token; the server only clears the request session.
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	h.binder.Disconnect(&sess)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
