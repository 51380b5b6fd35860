package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunParamStoreContract verifies that a ParamStore implementation
// adheres to the interface contract.
func RunParamStoreContract(t *testing.T, store ParamStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	sample := func() *domain.TransactionParameters {
		return &domain.TransactionParameters{
			Type:              domain.CashOut,
			Phone:             "0244123456",
			Amount:            "100.50",
			PIN:               "9876",
			PinIsUserSupplied: true,
			Step:              domain.StepAmountInput,
			AttemptCount:      1,
			AutomationEnabled: true,
			ReentryCount:      1,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		params := sample()
		require.NoError(t, store.Save(ctx, key, params))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, params.Type, loaded.Type)
		assert.Equal(t, params.Phone, loaded.Phone)
		assert.Equal(t, params.Amount, loaded.Amount)
		assert.Equal(t, params.PIN, loaded.PIN)
		assert.Equal(t, params.Step, loaded.Step)
		assert.Equal(t, params.AttemptCount, loaded.AttemptCount)
		assert.True(t, loaded.PinIsUserSupplied)
		assert.True(t, loaded.AutomationEnabled)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded.Step = domain.StepCompleted

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.StepAmountInput, again.Step)
	})

	t.Run("Overwrite", func(t *testing.T) {
		params := sample()
		params.Step = domain.StepPinPrompt
		require.NoError(t, store.Save(ctx, key, params))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.StepPinPrompt, loaded.Step)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrParamsNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrParamsNotFound)

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, k1, sample()))
		require.NoError(t, store.Save(ctx, k2, sample()))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}

// RunLedgerContract verifies that a Ledger implementation adheres to the
// interface contract. The ledger must start empty.
func RunLedgerContract(t *testing.T, ledger Ledger) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	outcome := func(i int, status domain.OutcomeStatus) domain.Outcome {
		return domain.Outcome{
			ID:        fmt.Sprintf("outcome-%d", i),
			Type:      domain.CashIn,
			Amount:    "25.00",
			Phone:     "0244123456",
			Status:    status,
			Reference: fmt.Sprintf("REF%04d", i),
			Message:   "Transaction successful",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}

	t.Run("Empty", func(t *testing.T) {
		got, err := ledger.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Record and List", func(t *testing.T) {
		require.NoError(t, ledger.Record(ctx, outcome(1, domain.OutcomeSuccess)))
		require.NoError(t, ledger.Record(ctx, outcome(2, domain.OutcomeFailed)))
		require.NoError(t, ledger.Record(ctx, outcome(3, domain.OutcomeSuccess)))

		got, err := ledger.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "outcome-3", got[0].ID, "newest first")
		assert.Equal(t, "outcome-1", got[2].ID)
		assert.Equal(t, domain.OutcomeFailed, got[1].Status)
		assert.Equal(t, "REF0002", got[1].Reference)
		assert.Equal(t, domain.CashIn, got[1].Type)
		assert.True(t, got[1].Timestamp.Equal(base.Add(2*time.Minute)))
	})

	t.Run("Limit", func(t *testing.T) {
		got, err := ledger.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "outcome-3", got[0].ID)
		assert.Equal(t, "outcome-2", got[1].ID)
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		dup := outcome(1, domain.OutcomeFailed)
		require.NoError(t, ledger.Record(ctx, dup))

		got, err := ledger.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, o := range got {
			if o.ID == "outcome-1" {
				assert.Equal(t, domain.OutcomeSuccess, o.Status)
			}
		}
	})
}
