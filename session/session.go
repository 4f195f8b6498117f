// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package session holds the explicit per-user session passed to every
// manager call.
package session

import (
	"context"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/models"
)

// Session is the connected identity of one user. The zero value is a
// disconnected session.
type Session struct {
	Address     models.Address
	ConnectedAt time.Time
}

// New returns a connected session for addr.
func New(addr models.Address, at time.Time) Session {
	return Session{Address: addr, ConnectedAt: at}
}

func (s Session) Connected() bool {
	return s.Address != ""
}

// Require returns ErrNotConnected for a disconnected session.
func (s Session) Require() error {
	if !s.Connected() {
		return apperr.ErrNotConnected
	}
	return nil
}

// Clear disconnects the session in place.
func (s *Session) Clear() {
	*s = Session{}
}

type ctxKey struct{}

// NewContext is used by HTTP middleware only; managers take the Session as
// an argument.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns a disconnected session when none is set.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
