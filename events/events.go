// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events carries domain events emitted after successful writes:
// delegations, revocations, new polls and cast votes.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/devote/models"
)

type Type string

const (
	TypeDelegated   Type = "delegated"
	TypeRevoked     Type = "revoked"
	TypePollCreated Type = "poll_created"
	TypeVoteCast    Type = "vote_cast"
)

type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Address     models.Address `json:"address"`
	Target      models.Address `json:"target,omitempty"`
	PollID      string         `json:"poll_id,omitempty"`
	OptionIndex *int           `json:"option_index,omitempty"`
	TxHash      string         `json:"tx_hash,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// New stamps an event with a fresh id.
func New(typ Type, addr models.Address, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: typ, Address: addr, OccurredAt: at.UTC()}
}

// Publisher receives events. Publish failures never undo the write that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Fanout delivers to every publisher, logging failures.
type Fanout struct {
	mu     sync.RWMutex
	pubs   []Publisher
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger, pubs ...Publisher) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{pubs: pubs, logger: logger}
}

// Add registers another publisher.
func (f *Fanout) Add(p Publisher) {
	f.mu.Lock()
	f.pubs = append(f.pubs, p)
	f.mu.Unlock()
}

// Publish always returns nil.
func (f *Fanout) Publish(ctx context.Context, e Event) error {
	f.mu.RLock()
	pubs := append([]Publisher(nil), f.pubs...)
	f.mu.RUnlock()

	for _, p := range pubs {
		if err := p.Publish(ctx, e); err != nil {
			f.logger.Warn("event publish failed",
				"event_id", e.ID,
				"type", e.Type,
				"error", err,
			)
		}
	}
	return nil
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (fn PublisherFunc) Publish(ctx context.Context, e Event) error {
	return fn(ctx, e)
}

var (
	_ Publisher = (*Fanout)(nil)
	_ Publisher = PublisherFunc(nil)
)
