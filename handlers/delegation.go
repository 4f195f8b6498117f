// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/delegation"
	"github.com/danielhkuo/devote/events"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

type DelegationHandler struct {
	mgr         *delegation.Manager
	revocations *events.RevocationLog
}

func NewDelegationHandler(mgr *delegation.Manager, revocations *events.RevocationLog) *DelegationHandler {
	return &DelegationHandler{mgr: mgr, revocations: revocations}
}

// ListStewards handles GET /stewards
func (h *DelegationHandler) ListStewards(w http.ResponseWriter, r *http.Request) {
	stewards, err := h.mgr.Stewards(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.StewardsResponse{Stewards: stewards})
}

// Delegate handles POST /delegation
func (h *DelegationHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	var req models.DelegateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// A bare address is a custom target
	kind := models.TargetKind(req.Kind)
	if kind == "" && req.Address != "" {
		kind = models.TargetCustom
	}

	target := models.DelegationTarget{Kind: kind, StewardID: req.StewardID, Address: req.Address}
	res, err := h.mgr.DelegateTo(r.Context(), session.FromContext(r.Context()), target)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DelegateResponse{
		Delegatee: res.Record.Delegatee,
		TxHash:    res.TxHash,
	})
}

// Revoke handles POST /delegation/revoke
func (h *DelegationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.Revoke(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DelegateResponse{
		Delegatee: res.Record.Delegatee,
		TxHash:    res.TxHash,
	})
}

// GetHistory handles GET /delegation/history?address=
func (h *DelegationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	records, err := h.mgr.GetHistory(r.Context(), addr)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.HistoryResponse{
		Identity: addr,
		Records:  records,
	})
}

// GetCurrent handles GET /delegation/current?address=
func (h *DelegationHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	current, err := h.mgr.GetCurrentDelegate(r.Context(), addr)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CurrentDelegateResponse{
		Identity: addr,
		Delegate: current,
		IsSelf:   current == addr,
	})
}

// Reconcile handles GET /delegation/reconcile
func (h *DelegationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := sess.Require(); err != nil {
		middleware.WriteError(w, err)
		return
	}

	rec, err := h.mgr.Reconcile(r.Context(), sess.Address)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, rec)
}

// Repair handles POST /delegation/repair
func (h *DelegationHandler) Repair(w http.ResponseWriter, r *http.Request) {
	rec, err := h.mgr.RepairAudit(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, rec)
}

// GetRevocations handles GET /delegation/revocations
func (h *DelegationHandler) GetRevocations(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := sess.Require(); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RevocationsResponse{
		Count:  h.revocations.Count(sess.Address),
		Events: h.revocations.Events(sess.Address),
	})
}

func addressParam(r *http.Request) (models.Address, error) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		return "", apperr.Validation("address", "address is required")
	}
	addr, err := models.ParseAddress(raw)
	if err != nil {
		return "", &apperr.InvalidAddressError{Input: raw}
	}
	return addr, nil
}
