package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Ledger implements ports.Ledger in memory.
type Ledger struct {
	mu       sync.RWMutex
	outcomes []domain.Outcome
	seen     map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Record appends the outcome unless its ID was already recorded.
func (l *Ledger) Record(ctx context.Context, outcome domain.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[outcome.ID]; ok {
		return nil
	}
	l.seen[outcome.ID] = struct{}{}
	l.outcomes = append(l.outcomes, outcome)
	return nil
}

// List returns outcomes newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]domain.Outcome, error) {
	l.mu.RLock()
	out := make([]domain.Outcome, len(l.outcomes))
	copy(out, l.outcomes)
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
