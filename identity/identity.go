// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package identity binds a wallet account to a session.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

type Binder struct {
	provider chain.Provider
	users    *db.UserRepository
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewBinder returns a Binder whose account prompt is bounded by timeout.
func NewBinder(provider chain.Provider, conn *sql.DB, timeout time.Duration, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		provider: provider,
		users:    db.NewUserRepository(conn),
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Connect asks the wallet for its accounts and binds the first one. The
// users upsert that follows is best-effort.
func (b *Binder) Connect(ctx context.Context) (session.Session, error) {
	if b.provider == nil {
		return session.Session{}, apperr.ErrNoProvider
	}

	reqCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	accounts, err := b.provider.RequestAccounts(reqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return session.Session{}, &apperr.TimeoutError{Op: "connect", After: b.timeout}
		}
		return session.Session{}, err
	}
	if len(accounts) == 0 {
		return session.Session{}, apperr.ErrNoProvider
	}

	addr, err := models.ParseAddress(accounts[0].String())
	if err != nil {
		return session.Session{}, &apperr.InvalidAddressError{Input: accounts[0].String()}
	}

	now := b.now().UTC()
	if err := b.users.Upsert(ctx, addr, now); err != nil {
		b.logger.Warn("failed to register identity",
			"address", addr,
			"error", err,
		)
	}

	b.logger.Info("wallet connected", "address", addr)
	return session.New(addr, now), nil
}

// Disconnect clears sess. It never fails and makes no external call.
func (b *Binder) Disconnect(sess *session.Session) {
	if sess == nil || !sess.Connected() {
		return
	}
	b.logger.Info("wallet disconnected", "address", sess.Address)
	sess.Clear()
}
