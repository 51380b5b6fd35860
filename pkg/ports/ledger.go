package ports

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Ledger records completed flows.
type Ledger interface {
	// Record appends an outcome. Recording the same ID twice keeps the first record.
	Record(ctx context.Context, outcome domain.Outcome) error

	// List returns up to limit outcomes, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.Outcome, error)
}
