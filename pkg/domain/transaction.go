package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies which mobile-money flow the automation drives.
type TransactionType string

const (
	CashIn          TransactionType = "cash_in"
	CashOut         TransactionType = "cash_out"
	AirtimeTransfer TransactionType = "airtime_transfer"
	PayMerchant     TransactionType = "pay_merchant"
	Balance         TransactionType = "balance"
	Commission      TransactionType = "commission"
)

// DefaultPIN is the fallback PIN stored when the caller does not provide one.
// A flow carrying it untouched pauses for confirmation instead of submitting it.
const DefaultPIN = "1234"

// MinPINLength is the minimum number of digits accepted for a PIN.
const MinPINLength = 4

var (
	pinPattern   = regexp.MustCompile(`^[0-9]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
)

// TransactionTypes returns every supported type in a stable order.
func TransactionTypes() []TransactionType {
	return []TransactionType{CashIn, CashOut, AirtimeTransfer, PayMerchant, Balance, Commission}
}

// ParseTransactionType converts a wire value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported types.
func (t TransactionType) Valid() bool {
	switch t {
	case CashIn, CashOut, AirtimeTransfer, PayMerchant, Balance, Commission:
		return true
	}
	return false
}

// IsInquiry reports whether the flow stops after the sub-menu (no phone, amount or PIN steps).
func (t TransactionType) IsInquiry() bool {
	return t == Balance || t == Commission
}

// TransactionParameters is the single persisted record driving the automation.
type TransactionParameters struct {
	Type              TransactionType `json:"transaction_type"`
	Phone             string          `json:"phone_number"`
	Amount            string          `json:"amount"`
	PIN               string          `json:"pin"`
	PinIsUserSupplied bool            `json:"pin_is_user_supplied"`
	Step              Step            `json:"current_step"`
	AttemptCount      int             `json:"attempt_count"`
	AutomationEnabled bool            `json:"automation_enabled"`

	// PinSubmitted marks a PIN handed over while in PinPrompt that has not been typed into a dialog yet.
	PinSubmitted bool `json:"pin_submitted,omitempty"`
	// ReentryCount counts phone re-entries caused by a confirmation mismatch.
	ReentryCount int       `json:"reentry_count,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// NeedsDefaultPINConfirmation reports whether the stored PIN is the untouched default
// and nothing has been submitted yet.
func (p TransactionParameters) NeedsDefaultPINConfirmation() bool {
	return p.PIN == DefaultPIN && !p.PinIsUserSupplied && p.AttemptCount == 0
}

// NeedsCustomPIN reports whether the caller asked for a custom PIN but none is set.
func (p TransactionParameters) NeedsCustomPIN() bool {
	return p.PinIsUserSupplied && p.PIN == ""
}

// NeedsPINPrompt combines both prompt conditions.
func (p TransactionParameters) NeedsPINPrompt() bool {
	return p.NeedsDefaultPINConfirmation() || p.NeedsCustomPIN()
}

// ResetProgress returns the flow to Idle while keeping the transaction itself.
func (p *TransactionParameters) ResetProgress() {
	p.Step = StepIdle
	p.AttemptCount = 0
	p.ReentryCount = 0
	p.PinSubmitted = false
}

// Setup is the caller's request to prepare a transaction.
type Setup struct {
	Type         TransactionType `json:"type"`
	Phone        string          `json:"phone"`
	Amount       string          `json:"amount"`
	PIN          string          `json:"pin"`
	UseCustomPin bool            `json:"use_custom_pin"`
}

// NewParameters validates a Setup and builds fresh parameters at StepIdle.
// An empty PIN without UseCustomPin falls back to DefaultPIN.
func NewParameters(s Setup) (TransactionParameters, error) {
	if !s.Type.Valid() {
		return TransactionParameters{}, fmt.Errorf("%w: %q", ErrUnknownTransactionType, s.Type)
	}

	phone := strings.TrimSpace(s.Phone)
	amount := strings.TrimSpace(s.Amount)
	if !s.Type.IsInquiry() {
		if !phonePattern.MatchString(phone) {
			return TransactionParameters{}, fmt.Errorf("%w: %q", ErrInvalidPhone, s.Phone)
		}
		if err := ValidateAmount(amount); err != nil {
			return TransactionParameters{}, err
		}
	}

	pin := strings.TrimSpace(s.PIN)
	if pin != "" && !ValidPIN(pin) {
		return TransactionParameters{}, ErrInvalidPIN
	}
	if pin == "" && !s.UseCustomPin {
		pin = DefaultPIN
	}

	return TransactionParameters{
		Type:              s.Type,
		Phone:             phone,
		Amount:            amount,
		PIN:               pin,
		PinIsUserSupplied: s.UseCustomPin,
		Step:              StepIdle,
	}, nil
}

// ValidateAmount checks that amount is a positive decimal number.
func ValidateAmount(amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, amount)
	}
	return nil
}

// ValidPIN reports whether pin is all digits and at least MinPINLength long.
func ValidPIN(pin string) bool {
	return len(pin) >= MinPINLength && pinPattern.MatchString(pin)
}
