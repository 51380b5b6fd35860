package wal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	// DefaultDir is used when Open receives an empty directory.
	DefaultDir = "./wal/outcomes"

	segmentLimit = 100
	maxSegments  = 10

	outcomeKeyPrefix = "outcome:"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("outcome ledger is closed")

// Ledger implements ports.Ledger as an append-only write-ahead log.
type Ledger struct {
	mu   sync.RWMutex
	wal  *gowal.Wal
	seen map[string]struct{}
}

// Open opens the log in dir and indexes the outcome IDs already written.
func Open(dir string) (*Ledger, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wal directory: %w", err)
	}

	w, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "outcome_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init outcome wal: %w", err)
	}

	l := &Ledger{wal: w, seen: make(map[string]struct{})}
	outcomes, err := l.scan()
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, o := range outcomes {
		l.seen[o.ID] = struct{}{}
	}
	return l, nil
}

// Record appends the outcome unless its ID is already in the log.
func (l *Ledger) Record(ctx context.Context, outcome domain.Outcome) error {
	if outcome.ID == "" {
		return errors.New("outcome id is required")
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wal == nil {
		return ErrClosed
	}
	if _, ok := l.seen[outcome.ID]; ok {
		return nil
	}
	if err := l.wal.Write(l.wal.CurrentIndex()+1, outcomeKeyPrefix+outcome.ID, payload); err != nil {
		return fmt.Errorf("failed to append outcome: %w", err)
	}
	l.seen[outcome.ID] = struct{}{}
	return nil
}

// List returns outcomes newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]domain.Outcome, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.wal == nil {
		return nil, ErrClosed
	}
	out, err := l.scan()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// scan reads every outcome record. Entries evicted with old segments are skipped.
func (l *Ledger) scan() ([]domain.Outcome, error) {
	current := l.wal.CurrentIndex()
	out := make([]domain.Outcome, 0, current)
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := l.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, outcomeKeyPrefix) {
			continue
		}
		var o domain.Outcome
		if err := json.Unmarshal(payload, &o); err != nil {
			return nil, fmt.Errorf("failed to decode outcome at %d: %w", idx, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Close closes the log.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wal == nil {
		return ErrClosed
	}
	err := l.wal.Close()
	l.wal = nil
	return err
}
