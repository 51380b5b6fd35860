package ussdflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// DefaultBridgeTimeout bounds every bridge call.
const DefaultBridgeTimeout = 10 * time.Second

// BridgeStatus is the status shape the app bridge reads.
type BridgeStatus struct {
	Enabled         bool   `json:"enabled"`
	CurrentStep     int    `json:"currentStep"`
	PinPromptActive bool   `json:"pinPromptActive"`
	TransactionType string `json:"transactionType"`
	PhoneNumber     string `json:"phoneNumber"`
	Amount          string `json:"amount"`
}

// Bridge exposes the Controller to an app shell that only understands booleans
// and plain values. Errors are logged and reported as false.
type Bridge struct {
	ctrl    *Controller
	logger  *slog.Logger
	timeout time.Duration
}

// NewBridge wraps ctrl. A zero timeout uses DefaultBridgeTimeout.
func NewBridge(ctrl *Controller, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultBridgeTimeout
	}
	return &Bridge{ctrl: ctrl, logger: ctrl.logger, timeout: timeout}
}

func (b *Bridge) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *Bridge) ok(op string, err error) bool {
	if err != nil {
		b.logger.Warn("Bridge call failed", "op", op, "err", err)
		return false
	}
	return true
}

// setup derives the custom-PIN flag: a PIN other than the default is the user's own.
func setup(txType, phone, amount, pin string) (domain.Setup, error) {
	t, err := domain.ParseTransactionType(txType)
	if err != nil {
		return domain.Setup{}, err
	}
	pin = strings.TrimSpace(pin)
	return domain.Setup{
		Type:         t,
		Phone:        phone,
		Amount:       amount,
		PIN:          pin,
		UseCustomPin: pin != "" && pin != domain.DefaultPIN,
	}, nil
}

// IsAutomationReady reports whether the host can drive dialogs.
func (b *Bridge) IsAutomationReady() bool {
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ctrl.Ready(ctx)
}

// OpenPlatformAutomationSettings shows the host's permission screen.
func (b *Bridge) OpenPlatformAutomationSettings() {
	ctx, cancel := b.callContext()
	defer cancel()
	b.ok("open_settings", b.ctrl.OpenAutomationSettings(ctx))
}

// SetupTransaction configures the transaction.
func (b *Bridge) SetupTransaction(txType, phone, amount, pin string) bool {
	s, err := setup(txType, phone, amount, pin)
	if err != nil {
		return b.ok("setup", err)
	}
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("setup", b.ctrl.Setup(ctx, s))
}

// DialAndAutomate checks readiness, configures, enables and dials.
func (b *Bridge) DialAndAutomate(code, txType, phone, amount, pin string) bool {
	s, err := setup(txType, phone, amount, pin)
	if err != nil {
		return b.ok("dial", err)
	}
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("dial", b.ctrl.DialAndAutomate(ctx, code, s))
}

// EnableAutomation turns automation on.
func (b *Bridge) EnableAutomation() bool {
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("enable", b.ctrl.Enable(ctx))
}

// DisableAutomation turns automation off and returns to Idle.
func (b *Bridge) DisableAutomation() bool {
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("disable", b.ctrl.Disable(ctx))
}

// ResetAutomation forgets the transaction.
func (b *Bridge) ResetAutomation() bool {
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("reset", b.ctrl.Reset(ctx))
}

// GetStatus returns the bridge view of the status.
func (b *Bridge) GetStatus() BridgeStatus {
	st := b.ctrl.Status()
	return BridgeStatus{
		Enabled:         st.AutomationEnabled,
		CurrentStep:     int(st.CurrentStep),
		PinPromptActive: st.PinPromptActive,
		TransactionType: string(st.TransactionType),
		PhoneNumber:     st.PhoneNumber,
		Amount:          st.Amount,
	}
}

// StatusJSON is GetStatus encoded as JSON.
func (b *Bridge) StatusJSON() string {
	data, err := json.Marshal(b.GetStatus())
	if err != nil {
		b.logger.Error("Failed to encode status", "err", err)
		return "{}"
	}
	return string(data)
}

// IsPinPromptActive reports whether the flow waits for SubmitPin.
func (b *Bridge) IsPinPromptActive() bool {
	return b.ctrl.Status().PinPromptActive
}

// SubmitPin hands over the PIN. It is false outside the PIN prompt or for a malformed PIN.
func (b *Bridge) SubmitPin(pin string) bool {
	ctx, cancel := b.callContext()
	defer cancel()
	return b.ok("submit_pin", b.ctrl.SubmitPIN(ctx, pin))
}

// Log forwards a message from the app shell to the controller's logger.
func (b *Bridge) Log(msg string) {
	b.logger.Info(msg, "source", "bridge")
}
