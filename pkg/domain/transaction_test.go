package domain_test

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParameters_DefaultPINFallback(t *testing.T) {
	p, err := domain.NewParameters(domain.Setup{
		Type:   domain.CashOut,
		Phone:  "0244123456",
		Amount: "100",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultPIN, p.PIN)
	assert.False(t, p.PinIsUserSupplied)
	assert.Equal(t, domain.StepIdle, p.Step)
	assert.True(t, p.NeedsDefaultPINConfirmation())
	assert.False(t, p.NeedsCustomPIN())
}

func TestNewParameters_CustomPIN(t *testing.T) {
	p, err := domain.NewParameters(domain.Setup{
		Type:         domain.CashIn,
		Phone:        "0244123456",
		Amount:       "25.50",
		PIN:          "4321",
		UseCustomPin: true,
	})
	require.NoError(t, err)
	assert.False(t, p.NeedsPINPrompt())

	empty, err := domain.NewParameters(domain.Setup{
		Type:         domain.CashIn,
		Phone:        "0244123456",
		Amount:       "25.50",
		UseCustomPin: true,
	})
	require.NoError(t, err)
	assert.True(t, empty.NeedsCustomPIN())
	assert.False(t, empty.NeedsDefaultPINConfirmation())
}

func TestNewParameters_Validation(t *testing.T) {
	tests := []struct {
		name  string
		setup domain.Setup
		err   error
	}{
		{"unknown type", domain.Setup{Type: "loan"}, domain.ErrUnknownTransactionType},
		{"bad phone", domain.Setup{Type: domain.CashIn, Phone: "abc", Amount: "1"}, domain.ErrInvalidPhone},
		{"bad amount", domain.Setup{Type: domain.CashIn, Phone: "0244123456", Amount: "ten"}, domain.ErrInvalidAmount},
		{"zero amount", domain.Setup{Type: domain.CashIn, Phone: "0244123456", Amount: "0"}, domain.ErrInvalidAmount},
		{"short pin", domain.Setup{Type: domain.CashIn, Phone: "0244123456", Amount: "5", PIN: "12"}, domain.ErrInvalidPIN},
		{"letters in pin", domain.Setup{Type: domain.CashIn, Phone: "0244123456", Amount: "5", PIN: "12ab"}, domain.ErrInvalidPIN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewParameters(tt.setup)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewParameters_InquiryIgnoresPhoneAndAmount(t *testing.T) {
	p, err := domain.NewParameters(domain.Setup{Type: domain.Balance})
	require.NoError(t, err)
	assert.Equal(t, domain.Balance, p.Type)
}

func TestResetProgress_KeepsTransaction(t *testing.T) {
	p := domain.TransactionParameters{
		Type:              domain.CashOut,
		Phone:             "0244123456",
		Step:              domain.StepPinPrompt,
		AttemptCount:      2,
		ReentryCount:      1,
		PinSubmitted:      true,
		AutomationEnabled: true,
	}
	p.ResetProgress()

	assert.Equal(t, domain.StepIdle, p.Step)
	assert.Zero(t, p.AttemptCount)
	assert.Zero(t, p.ReentryCount)
	assert.False(t, p.PinSubmitted)
	assert.Equal(t, "0244123456", p.Phone)
	assert.True(t, p.AutomationEnabled)
}

func TestStep_Names(t *testing.T) {
	assert.Equal(t, "pin_prompt", domain.StepPinPrompt.String())
	assert.Equal(t, "step(42)", domain.Step(42).String())
	assert.Equal(t, 10, int(domain.StepPinPrompt))
}

func TestSequence_InquiryIsTruncated(t *testing.T) {
	seq := domain.Sequence(domain.Balance)
	assert.NotContains(t, seq, domain.StepPhoneInput)
	assert.NotContains(t, seq, domain.StepAmountInput)
	assert.NotContains(t, seq, domain.StepPinInput)
	assert.Len(t, domain.Sequence(domain.CashOut), 10)
}

func TestParseTransactionType(t *testing.T) {
	tt, err := domain.ParseTransactionType(" Cash_Out ")
	require.NoError(t, err)
	assert.Equal(t, domain.CashOut, tt)

	_, err = domain.ParseTransactionType("mortgage")
	assert.ErrorIs(t, err, domain.ErrUnknownTransactionType)
}
