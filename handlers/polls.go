// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/polls"
	"github.com/danielhkuo/devote/session"
)

type PollHandler struct {
	mgr *polls.Manager
}

func NewPollHandler(mgr *polls.Manager) *PollHandler {
	return &PollHandler{mgr: mgr}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.mgr.CreatePoll(r.Context(), session.FromContext(r.Context()), polls.NewPoll{
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		Duration:    req.Duration,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, pollView(p, time.Now()))
}

// ListPolls handles GET /polls?creator=
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	var filter polls.ListFilter
	if raw := r.URL.Query().Get("creator"); raw != "" {
		creator, err := models.ParseAddress(raw)
		if err != nil {
			middleware.WriteError(w, &apperr.InvalidAddressError{Input: raw})
			return
		}
		filter.Creator = creator
	}

	list, err := h.mgr.ListPolls(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	now := time.Now()
	views := make([]models.PollView, len(list))
	for i, p := range list {
		views[i] = pollView(p, now)
	}
	middleware.JSONResponse(w, http.StatusOK, models.ListPollsResponse{Polls: views})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	p, err := h.mgr.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pollView(p, time.Now()))
}

// CastVote handles POST /polls/{id}/votes
func (h *PollHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionIndex == nil {
		middleware.WriteError(w, apperr.Validation("option_index", "option_index is required"))
		return
	}

	v, err := h.mgr.CastVote(r.Context(), session.FromContext(r.Context()), r.PathValue("id"), *req.OptionIndex)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		PollID:      v.PollID,
		OptionIndex: v.OptionIndex,
	})
}

// GetTally handles GET /polls/{id}/tally
func (h *PollHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.mgr.GetPoll(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	t, err := h.mgr.GetTally(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TallyResponse{
		Tally:   t,
		Options: p.Options,
		Shares:  t.Shares(),
	})
}

func pollView(p models.Poll, now time.Time) models.PollView {
	return models.PollView{
		Poll:            p,
		EndsAt:          p.EndsAt(),
		DurationLabel:   p.Duration.Label(),
		TimeLeftSeconds: int64(p.TimeLeft(now).Seconds()),
	}
}
