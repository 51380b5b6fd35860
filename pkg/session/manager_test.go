package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/adapters/redis"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore adds latency so unserialised read-modify-write cycles lose updates.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, key string) (*domain.TransactionParameters, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, key)
}

func TestManager_WithLockSerialises(t *testing.T) {
	store := slowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "active", func(ctx context.Context) error {
				p, err := store.Load(ctx, "active")
				if errors.Is(err, domain.ErrParamsNotFound) {
					p, err = &domain.TransactionParameters{}, nil
				}
				if err != nil {
					return err
				}
				p.AttemptCount++
				return store.Save(ctx, "active", p)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := manager.Load(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, 20, p.AttemptCount)
}

func TestManager_WithLockReturnsError(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	boom := errors.New("boom")

	err := manager.WithLock(context.Background(), "active", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestManager_LoadOrEmpty(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	p, err := manager.LoadOrEmpty(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, domain.StepIdle, p.Step)
	assert.False(t, p.AutomationEnabled)

	require.NoError(t, manager.Save(ctx, "active", &domain.TransactionParameters{Type: domain.Balance}))
	p, err = manager.LoadOrEmpty(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, domain.Balance, p.Type)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "test:")
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))
	ctx := context.Background()

	err := manager.WithLock(ctx, "active", func(ctx context.Context) error {
		assert.True(t, mr.Exists("test:lock:active"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:active"))
}
