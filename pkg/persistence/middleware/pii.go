package middleware

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// Mask replaces a secret entirely.
const Mask = "***"

// MaskPhone keeps the last three digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 3 {
		return Mask
	}
	return Mask + phone[len(phone)-3:]
}

type piiMiddleware struct {
	next ports.ParamStore
}

// NewPIIMiddleware masks the PIN and phone number on Save. It suits audit copies
// of the record: masked parameters cannot drive a flow.
func NewPIIMiddleware() Middleware {
	return func(next ports.ParamStore) ports.ParamStore {
		return &piiMiddleware{next: next}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, params *domain.TransactionParameters) error {
	masked := *params
	if masked.PIN != "" {
		masked.PIN = Mask
	}
	if masked.Phone != "" {
		masked.Phone = MaskPhone(masked.Phone)
	}
	return m.next.Save(ctx, key, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.TransactionParameters, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

type piiLedger struct {
	next ports.Ledger
}

// NewPIILedger masks the counterpart phone number of every recorded outcome.
func NewPIILedger() LedgerMiddleware {
	return func(next ports.Ledger) ports.Ledger {
		return &piiLedger{next: next}
	}
}

func (l *piiLedger) Record(ctx context.Context, outcome domain.Outcome) error {
	if outcome.Phone != "" {
		outcome.Phone = MaskPhone(outcome.Phone)
	}
	return l.next.Record(ctx, outcome)
}

func (l *piiLedger) List(ctx context.Context, limit int) ([]domain.Outcome, error) {
	return l.next.List(ctx, limit)
}
