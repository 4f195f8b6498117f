// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/devote/cache"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/cliparse"
	"github.com/danielhkuo/devote/delegation"
	"github.com/danielhkuo/devote/events"
	"github.com/danielhkuo/devote/handlers"
	"github.com/danielhkuo/devote/identity"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/polls"
)

// Deps are the external systems the API runs against.
type Deps struct {
	DB       *sql.DB
	Provider chain.Provider
	Reader   chain.Reader
	Cache    cache.Cache

	// Stream receives every domain event. Optional.
	Stream events.Publisher
}

// Services are the managers behind the routes.
type Services struct {
	Binder      *identity.Binder
	Delegations *delegation.Manager
	Polls       *polls.Manager
	Revocations *events.RevocationLog
}

func NewServices(deps Deps, cfg cliparse.Config) *Services {
	var ledger *chain.Ledger
	if deps.Provider != nil && deps.Reader != nil {
		ledger = chain.NewLedger(deps.Provider, deps.Reader, cfg.LedgerContract)
	}

	svc := &Services{
		Binder: identity.NewBinder(deps.Provider, deps.DB, cfg.SignatureTimeout, nil),
		Delegations: delegation.NewManager(delegation.Config{
			Ledger:              ledger,
			DB:                  deps.DB,
			Cache:               deps.Cache,
			CacheTTL:            cfg.CacheTTL,
			SignatureTimeout:    cfg.SignatureTimeout,
			ConfirmationTimeout: cfg.ConfirmationTimeout,
		}),
		Polls: polls.NewManager(polls.Config{
			Provider:           deps.Provider,
			DB:                 deps.DB,
			Cache:              deps.Cache,
			CacheTTL:           cfg.CacheTTL,
			MembershipContract: cfg.MembershipContract,
			NetworkID:          cfg.NetworkID,
			MembershipTimeout:  cfg.SignatureTimeout,
		}),
		Revocations: events.NewRevocationLog(),
	}

	svc.Delegations.Subscribe(svc.Revocations)
	if deps.Stream != nil {
		svc.Delegations.Subscribe(deps.Stream)
		svc.Polls.Subscribe(deps.Stream)
	}
	return svc
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	return NewRouterWithServices(NewServices(deps, cfg), cfg)
}

func NewRouterWithServices(svc *Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(svc.Binder, cfg)
	delegationHandler := handlers.NewDelegationHandler(svc.Delegations, svc.Revocations)
	pollHandler := handlers.NewPollHandler(svc.Polls)
	statsHandler := handlers.NewStatsHandler(svc.Delegations, svc.Polls)

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireSession(cfg.SessionSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session
	mux.HandleFunc("POST /session/connect", middleware.WithLogging(sessionHandler.Connect))
	mux.HandleFunc("POST /session/disconnect", authed(sessionHandler.Disconnect))

	// Delegation
	mux.HandleFunc("GET /stewards", middleware.WithLogging(delegationHandler.ListStewards))
	mux.HandleFunc("POST /delegation", authed(delegationHandler.Delegate))
	mux.HandleFunc("POST /delegation/revoke", authed(delegationHandler.Revoke))
	mux.HandleFunc("GET /delegation/history", middleware.WithLogging(delegationHandler.GetHistory))
	mux.HandleFunc("GET /delegation/current", middleware.WithLogging(delegationHandler.GetCurrent))
	mux.HandleFunc("GET /delegation/reconcile", authed(delegationHandler.Reconcile))
	mux.HandleFunc("POST /delegation/repair", authed(delegationHandler.Repair))
	mux.HandleFunc("GET /delegation/revocations", authed(delegationHandler.GetRevocations))

	// Polls and voting
	mux.HandleFunc("POST /polls", authed(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("POST /polls/{id}/votes", authed(pollHandler.CastVote))
	mux.HandleFunc("GET /polls/{id}/tally", middleware.WithLogging(pollHandler.GetTally))

	// Identity summary
	mux.HandleFunc("GET /me/stats", authed(statsHandler.GetMyStats))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("devote API v1"))
	})

	return mux
}
