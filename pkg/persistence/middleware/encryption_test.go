package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.ParamStore) ports.ParamStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func sample() *domain.TransactionParameters {
	return &domain.TransactionParameters{
		Type:   domain.CashOut,
		Phone:  "0244123456",
		Amount: "100",
		PIN:    "9876",
		Step:   domain.StepPinPrompt,
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "active", sample()))

	raw, err := underlying.Load(ctx, "active")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw.PIN, "enc:v1:"))
	assert.True(t, strings.HasPrefix(raw.Phone, "enc:v1:"))
	assert.NotContains(t, raw.PIN, "9876")
	assert.Equal(t, "100", raw.Amount, "non-secret fields stay readable")
	assert.Equal(t, domain.StepPinPrompt, raw.Step)

	loaded, err := store.Load(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "9876", loaded.PIN)
	assert.Equal(t, "0244123456", loaded.Phone)
}

func TestEncryptionMiddleware_EmptySecrets(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "active", &domain.TransactionParameters{Type: domain.Balance}))

	raw, err := underlying.Load(ctx, "active")
	require.NoError(t, err)
	assert.Empty(t, raw.PIN)

	loaded, err := store.Load(ctx, "active")
	require.NoError(t, err)
	assert.Empty(t, loaded.Phone)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying)
	require.NoError(t, oldStore.Save(ctx, "active", sample()))

	newStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := newStore.Load(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "9876", loaded.PIN)

	require.NoError(t, newStore.Save(ctx, "active", loaded))

	_, err = oldStore.Load(ctx, "active")
	assert.Error(t, err, "old key alone cannot read records sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "active", sample()))

	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	_, err := store.Load(ctx, "active")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunParamStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}
