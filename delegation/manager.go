// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package delegation

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/cache"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/events"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

type Config struct {
	Ledger *chain.Ledger
	DB     *sql.DB

	Cache    cache.Cache
	CacheTTL time.Duration

	// The ledger write (signature plus confirmation) must finish within the
	// sum of both.
	SignatureTimeout    time.Duration
	ConfirmationTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type Manager struct {
	ledger      *chain.Ledger
	delegations *db.DelegationRepository
	stewards    *db.StewardRepository
	cache       cache.Cache
	cacheTTL    time.Duration
	timeout     time.Duration
	events      *events.Fanout
	logger      *slog.Logger
	now         func() time.Time
}

// Result is a committed delegation and the transaction that carried it.
type Result struct {
	Record models.DelegationRecord
	TxHash string
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		ledger:      cfg.Ledger,
		delegations: db.NewDelegationRepository(cfg.DB),
		stewards:    db.NewStewardRepository(cfg.DB),
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		timeout:     cfg.SignatureTimeout + cfg.ConfirmationTimeout,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if m.cache == nil {
		m.cache = cache.Nop{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.events = events.NewFanout(m.logger)
	return m
}

// Subscribe registers an observer for delegated and revoked events.
func (m *Manager) Subscribe(p events.Publisher) {
	m.events.Add(p)
}

// Delegate hands the caller's voting weight to target. target is validated
// before the ledger is contacted.
func (m *Manager) Delegate(ctx context.Context, sess session.Session, target string) (Result, error) {
	if err := sess.Require(); err != nil {
		return Result{}, err
	}
	to, err := models.ParseAddress(target)
	if err != nil {
		return Result{}, &apperr.InvalidAddressError{Input: target}
	}
	return m.commit(ctx, sess.Address, to, false)
}

// DelegateTo resolves a self, steward or custom target and delegates to it.
func (m *Manager) DelegateTo(ctx context.Context, sess session.Session, target models.DelegationTarget) (Result, error) {
	if err := sess.Require(); err != nil {
		return Result{}, err
	}

	switch target.Kind {
	case models.TargetSelf:
		return m.commit(ctx, sess.Address, sess.Address, false)
	case models.TargetSteward:
		if target.StewardID == "" {
			return Result{}, apperr.Validation("steward_id", "steward id is required")
		}
		s, err := m.stewards.Get(ctx, target.StewardID)
		if errors.Is(err, db.ErrNotFound) {
			return Result{}, apperr.ErrStewardNotFound
		}
		if err != nil {
			return Result{}, apperr.Store("get steward", err)
		}
		return m.commit(ctx, sess.Address, s.Address, false)
	case models.TargetCustom:
		return m.Delegate(ctx, sess, target.Address)
	}
	return Result{}, apperr.Validation("kind", "must be one of self, steward, custom")
}

// Revoke delegates back to self and appends a revocation record.
// Subscribers are notified once the record is stored.
func (m *Manager) Revoke(ctx context.Context, sess session.Session) (Result, error) {
	if err := sess.Require(); err != nil {
		return Result{}, err
	}
	return m.commit(ctx, sess.Address, sess.Address, true)
}

func (m *Manager) commit(ctx context.Context, from, to models.Address, revoke bool) (Result, error) {
	receipt, err := m.send(ctx, from, to)
	if err != nil {
		m.logger.Warn("delegation transaction failed",
			"delegator", from,
			"delegatee", to,
			"error", err,
		)
		return Result{}, err
	}

	now := m.now().UTC()
	rec := models.DelegationRecord{
		Delegator: from,
		Delegatee: to,
		Timestamp: now,
		Revoked:   revoke,
	}
	if revoke {
		rec.RevokedAt = &now
	}

	err = m.delegations.Append(ctx, rec)
	m.invalidate(ctx, from, to)
	if err != nil {
		m.logger.Error("delegation committed on ledger but audit write failed",
			"delegator", from,
			"delegatee", to,
			"tx_hash", receipt.TxHash,
			"revoked", revoke,
			"at", now,
			"error", err,
		)
		return Result{}, &apperr.AuditWriteError{
			Delegator: from.String(),
			Delegatee: to.String(),
			TxHash:    receipt.TxHash,
			Revoked:   revoke,
			At:        now,
			Err:       err,
		}
	}

	typ := events.TypeDelegated
	if revoke {
		typ = events.TypeRevoked
	}
	e := events.New(typ, from, now)
	e.Target = to
	e.TxHash = receipt.TxHash
	m.events.Publish(ctx, e)

	m.logger.Info("delegation recorded",
		"delegator", from,
		"delegatee", to,
		"revoked", revoke,
		"tx_hash", receipt.TxHash,
	)
	return Result{Record: rec, TxHash: receipt.TxHash}, nil
}

func (m *Manager) send(ctx context.Context, from, to models.Address) (chain.Receipt, error) {
	if m.ledger == nil {
		return chain.Receipt{}, apperr.ErrNoProvider
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	receipt, err := m.ledger.Delegate(ctx, from, to)
	if err != nil {
		return chain.Receipt{}, m.classify(chain.SelectorDelegate, err)
	}
	if !receipt.Success {
		return chain.Receipt{}, &apperr.TransactionError{Op: chain.SelectorDelegate, TxHash: receipt.TxHash, Err: errors.New("execution reverted")}
	}
	return receipt, nil
}

func (m *Manager) classify(op string, err error) error {
	var (
		txErr      *apperr.TransactionError
		timeoutErr *apperr.TimeoutError
	)
	switch {
	case errors.As(err, &txErr), errors.As(err, &timeoutErr), errors.Is(err, apperr.ErrNoProvider):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &apperr.TimeoutError{Op: op, After: m.timeout}
	}
	return &apperr.TransactionError{Op: op, Err: err}
}

// GetHistory returns id's records, most recent first. An identity with no
// records gets an empty slice.
func (m *Manager) GetHistory(ctx context.Context, id models.Address) ([]models.DelegationRecord, error) {
	key := historyKey(id)

	var cached []models.DelegationRecord
	hit, err := m.cache.Get(ctx, key, &cached)
	if err != nil {
		m.logger.Warn("history cache read failed", "address", id, "error", err)
	}
	if hit && cached != nil {
		return cached, nil
	}

	records, err := m.delegations.History(ctx, id)
	if err != nil {
		return nil, apperr.Store("delegation history", err)
	}
	if err := m.cache.Set(ctx, key, records, m.cacheTTL); err != nil {
		m.logger.Warn("history cache write failed", "address", id, "error", err)
	}
	return records, nil
}

// GetCurrentDelegate folds the history: self when empty or when the latest
// record is a revocation.
func (m *Manager) GetCurrentDelegate(ctx context.Context, id models.Address) (models.Address, error) {
	history, err := m.GetHistory(ctx, id)
	if err != nil {
		return "", err
	}
	return models.CurrentDelegate(id, history), nil
}

// ActiveDelegators lists identities whose current delegate is id.
func (m *Manager) ActiveDelegators(ctx context.Context, id models.Address) ([]models.Address, error) {
	candidates, err := m.delegations.Delegators(ctx, id)
	if err != nil {
		return nil, apperr.Store("list delegators", err)
	}

	active := []models.Address{}
	for _, c := range candidates {
		current, err := m.GetCurrentDelegate(ctx, c)
		if err != nil {
			return nil, err
		}
		if current == id {
			active = append(active, c)
		}
	}
	return active, nil
}

// RevocationCount counts id's stored revocations.
func (m *Manager) RevocationCount(ctx context.Context, id models.Address) (int, error) {
	n, err := m.delegations.CountRevocations(ctx, id)
	if err != nil {
		return 0, apperr.Store("count revocations", err)
	}
	return n, nil
}

// VotingPower reads the weight the ledger attributes to id.
func (m *Manager) VotingPower(ctx context.Context, id models.Address) (*big.Int, error) {
	if m.ledger == nil {
		return nil, apperr.ErrNoProvider
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	votes, err := m.ledger.GetVotes(ctx, id)
	if err != nil {
		return nil, m.classify(chain.SelectorGetVotes, err)
	}
	return votes, nil
}

// Stewards lists the steward directory with each steward's voting power.
// A failed power read leaves VotingPower empty rather than failing the list.
func (m *Manager) Stewards(ctx context.Context) ([]models.StewardWithPower, error) {
	stewards, err := m.stewards.List(ctx)
	if err != nil {
		return nil, apperr.Store("list stewards", err)
	}

	out := make([]models.StewardWithPower, 0, len(stewards))
	for _, s := range stewards {
		sp := models.StewardWithPower{Steward: s}
		power, err := m.VotingPower(ctx, s.Address)
		if err != nil {
			m.logger.Warn("failed to read steward voting power",
				"steward_id", s.ID,
				"error", err,
			)
		} else {
			sp.VotingPower = power.String()
		}
		out = append(out, sp)
	}
	return out, nil
}

// Reconcile compares the ledger's delegate for id with the audit history.
func (m *Manager) Reconcile(ctx context.Context, id models.Address) (models.Reconciliation, error) {
	if m.ledger == nil {
		return models.Reconciliation{}, apperr.ErrNoProvider
	}
	onLedger, err := m.ledger.Delegates(ctx, id)
	if err != nil {
		return models.Reconciliation{}, m.classify(chain.SelectorDelegates, err)
	}
	if onLedger.IsZero() {
		onLedger = id
	}

	history, err := m.delegations.History(ctx, id)
	if err != nil {
		return models.Reconciliation{}, apperr.Store("delegation history", err)
	}
	audit := models.CurrentDelegate(id, history)

	return models.Reconciliation{
		Identity: id,
		Ledger:   onLedger,
		Audit:    audit,
		InSync:   onLedger == audit,
	}, nil
}

// RepairAudit appends the record the ledger implies when the audit history
// disagrees with it and publishes the event the failed write skipped. It
// never touches the ledger.
func (m *Manager) RepairAudit(ctx context.Context, sess session.Session) (models.Reconciliation, error) {
	if err := sess.Require(); err != nil {
		return models.Reconciliation{}, err
	}
	rec, err := m.Reconcile(ctx, sess.Address)
	if err != nil || rec.InSync {
		return rec, err
	}

	now := m.now().UTC()
	entry := models.DelegationRecord{
		Delegator: sess.Address,
		Delegatee: rec.Ledger,
		Timestamp: now,
	}
	if rec.Ledger == sess.Address {
		entry.Revoked = true
		entry.RevokedAt = &now
	}
	if err := m.delegations.Append(ctx, entry); err != nil {
		return rec, apperr.Store("repair audit", err)
	}
	m.invalidate(ctx, sess.Address, rec.Ledger)

	typ := events.TypeDelegated
	if entry.Revoked {
		typ = events.TypeRevoked
	}
	e := events.New(typ, sess.Address, now)
	e.Target = rec.Ledger
	m.events.Publish(ctx, e)

	m.logger.Info("audit history repaired",
		"address", sess.Address,
		"ledger_delegate", rec.Ledger,
		"previous_audit_delegate", rec.Audit,
	)
	rec.Audit = rec.Ledger
	rec.InSync = true
	return rec, nil
}

func (m *Manager) invalidate(ctx context.Context, addrs ...models.Address) {
	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = historyKey(a)
	}
	if err := m.cache.Delete(ctx, keys...); err != nil {
		m.logger.Warn("history cache invalidation failed", "error", err)
	}
}

func historyKey(id models.Address) string {
	return "delegation:history:" + id.String()
}
