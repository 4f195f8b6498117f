// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"sync"

	"github.com/danielhkuo/devote/models"
)

const revokedAction = "Delegation revoked"

// RevocationLog keeps the revocation events observed since startup, per
// revoking address.
type RevocationLog struct {
	mu     sync.RWMutex
	events map[models.Address][]models.RevocationEvent
}

func NewRevocationLog() *RevocationLog {
	return &RevocationLog{events: make(map[models.Address][]models.RevocationEvent)}
}

// Publish records revocations and ignores every other type.
func (l *RevocationLog) Publish(ctx context.Context, e Event) error {
	if e.Type != TypeRevoked {
		return nil
	}
	l.mu.Lock()
	l.events[e.Address] = append(l.events[e.Address], models.RevocationEvent{
		ID:        e.ID,
		Timestamp: e.OccurredAt,
		Action:    revokedAction,
	})
	l.mu.Unlock()
	return nil
}

// Count returns how many revocations addr has made.
func (l *RevocationLog) Count(addr models.Address) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[addr])
}

// Events returns addr's revocations, newest first.
func (l *RevocationLog) Events(addr models.Address) []models.RevocationEvent {
	l.mu.RLock()
	src := l.events[addr]
	out := make([]models.RevocationEvent, len(src))
	for i, e := range src {
		out[len(src)-1-i] = e
	}
	l.mu.RUnlock()
	return out
}

var _ Publisher = (*RevocationLog)(nil)
