package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/deskline/helpdesk/internal/repository"
)

// ResetLedger is an in-memory repository.ResetTokenLedger.
type ResetLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

var _ repository.ResetTokenLedger = (*ResetLedger)(nil)

// NewResetLedger creates an empty ledger.
func NewResetLedger() *ResetLedger {
	return &ResetLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *ResetLedger) Consume(_ context.Context, jti, _ string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, exp := range l.used {
		if now.After(exp) {
			delete(l.used, id)
		}
	}
	if _, seen := l.used[jti]; seen {
		return false, nil
	}
	l.used[jti] = expiresAt
	return true, nil
}

// Len reports how many unexpired nonces are recorded.
func (l *ResetLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.used)
}
