package memory

import (
	"context"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Store implements ports.ParamStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.TransactionParameters
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.TransactionParameters),
	}
}

// Save stores a copy of the parameters.
func (s *Store) Save(ctx context.Context, key string, params *domain.TransactionParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = *params
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (s *Store) Load(ctx context.Context, key string) (*domain.TransactionParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	params, ok := s.data[key]
	if !ok {
		return nil, domain.ErrParamsNotFound
	}
	return &params, nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
