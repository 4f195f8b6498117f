// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/devote/delegation"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/polls"
	"github.com/danielhkuo/devote/session"
)

type StatsHandler struct {
	delegations *delegation.Manager
	polls       *polls.Manager
}

func NewStatsHandler(delegations *delegation.Manager, polls *polls.Manager) *StatsHandler {
	return &StatsHandler{delegations: delegations, polls: polls}
}

// GetMyStats handles GET /me/stats
func (h *StatsHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	if err := sess.Require(); err != nil {
		middleware.WriteError(w, err)
		return
	}
	me := sess.Address

	stats := models.StatsResponse{Identity: me}

	// Voting power comes from the ledger; the rest of the card still renders
	// without it.
	if power, err := h.delegations.VotingPower(ctx, me); err != nil {
		slog.Warn("failed to read voting power", "address", me, "error", err)
	} else {
		stats.VotingPower = power.String()
	}

	var err error
	if stats.ProposalsVoted, err = h.polls.VotesCast(ctx, me); err != nil {
		middleware.WriteError(w, err)
		return
	}

	delegators, err := h.delegations.ActiveDelegators(ctx, me)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	stats.DelegatorsCount = len(delegators)

	if stats.CurrentDelegate, err = h.delegations.GetCurrentDelegate(ctx, me); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if stats.RevocationsCount, err = h.delegations.RevocationCount(ctx, me); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}
