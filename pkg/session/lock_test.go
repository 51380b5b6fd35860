package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("key-%d", i)
		_ = mgr.Save(ctx, key, &domain.TransactionParameters{})
		_ = mgr.Delete(ctx, key)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("%d locks remain after Delete", n)
	}
}
