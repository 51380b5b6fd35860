package ports

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// ParamStore persists transaction parameters so a flow survives restarts.
type ParamStore interface {
	// Save persists the parameters under key, replacing any previous record.
	Save(ctx context.Context, key string, params *domain.TransactionParameters) error

	// Load retrieves the parameters stored under key.
	// Returns domain.ErrParamsNotFound if nothing is stored.
	Load(ctx context.Context, key string) (*domain.TransactionParameters, error)

	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys.
	List(ctx context.Context) ([]string, error)
}
