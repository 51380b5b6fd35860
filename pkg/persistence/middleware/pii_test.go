package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewPIIMiddleware()(underlying)
	ctx := context.Background()

	params := sample()
	require.NoError(t, store.Save(ctx, "audit", params))

	assert.Equal(t, "9876", params.PIN, "caller's record is not modified")

	raw, err := underlying.Load(ctx, "audit")
	require.NoError(t, err)
	assert.Equal(t, "***", raw.PIN)
	assert.Equal(t, "***456", raw.Phone)
	assert.Equal(t, "100", raw.Amount)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***456", middleware.MaskPhone("0244123456"))
	assert.Equal(t, "***", middleware.MaskPhone("12"))
	assert.Equal(t, "***", middleware.MaskPhone(""))
}

func TestPIILedger_MasksPhone(t *testing.T) {
	underlying := memory.NewLedger()
	ledger := middleware.NewPIILedger()(underlying)
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, domain.Outcome{
		ID: "o1", Type: domain.CashIn, Phone: "0244123456", Status: domain.OutcomeSuccess, Timestamp: time.Now(),
	}))

	got, err := ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "***456", got[0].Phone)
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	underlying := memory.NewStore()
	key := generateKey(t)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	store := middleware.Chain(underlying, middleware.NewPIIMiddleware(), enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "active", sample()))

	// PII masks first, then encryption seals the masked value.
	opened, err := enc(underlying).Load(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "***", opened.PIN)
}
