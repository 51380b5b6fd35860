package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/matcher"
)

// ActionKind is what the controller must do for a decision.
type ActionKind int

const (
	// ActionNone leaves the dialog untouched.
	ActionNone ActionKind = iota
	// ActionInject types Text into the dialog's editable control and clicks send.
	ActionInject
	// ActionPromptPIN pauses the flow until the caller supplies a PIN.
	ActionPromptPIN
	// ActionComplete records the outcome and schedules the reset to Idle.
	ActionComplete
)

func (k ActionKind) String() string {
	switch k {
	case ActionInject:
		return "inject"
	case ActionPromptPIN:
		return "prompt_pin"
	case ActionComplete:
		return "complete"
	default:
		return "none"
	}
}

// Action is the side effect attached to a decision.
type Action struct {
	Kind  ActionKind
	Field domain.InputField
	Text  string
}

// Decision is the result of feeding one snapshot to the machine.
// Next holds the parameters to persist; the input parameters are never modified.
type Decision struct {
	Next    domain.TransactionParameters
	Action  Action
	Outcome domain.OutcomeStatus
	Reason  string
}

// Advanced reports whether the decision moves the persisted step.
func (d Decision) Advanced(from domain.TransactionParameters) bool {
	return d.Next.Step != from.Step
}

const (
	// DefaultMaxPinAttempts caps PIN submissions before a wrong-PIN screen ends the flow.
	DefaultMaxPinAttempts = 3
	// DefaultMaxReentries caps phone re-entries after a confirmation mismatch.
	DefaultMaxReentries = 2
)

// Machine decides transitions of the USSD flow. It holds configuration only and
// is safe for concurrent use.
type Machine struct {
	vocab          matcher.Vocabulary
	defaults       matcher.DefaultDigits
	maxPinAttempts int
	maxReentries   int
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithVocabulary replaces the menu phrases.
func WithVocabulary(v matcher.Vocabulary) MachineOption {
	return func(m *Machine) {
		m.vocab = v
	}
}

// WithDefaultDigits replaces the fallback digits table.
func WithDefaultDigits(d matcher.DefaultDigits) MachineOption {
	return func(m *Machine) {
		m.defaults = d
	}
}

// WithMaxPinAttempts sets how many PIN submissions are allowed.
func WithMaxPinAttempts(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.maxPinAttempts = n
		}
	}
}

// WithMaxReentries sets how many mismatch re-entries are allowed.
func WithMaxReentries(n int) MachineOption {
	return func(m *Machine) {
		if n >= 0 {
			m.maxReentries = n
		}
	}
}

// NewMachine creates a Machine with the built-in vocabulary and defaults.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		vocab:          matcher.DefaultVocabulary(),
		defaults:       matcher.StandardDefaultDigits(),
		maxPinAttempts: DefaultMaxPinAttempts,
		maxReentries:   DefaultMaxReentries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Decide computes the next step and action for one dialog snapshot.
// Callers only invoke it while automation is enabled.
func (m *Machine) Decide(p domain.TransactionParameters, snap domain.DialogSnapshot) Decision {
	next := p

	switch p.Step {
	case domain.StepIdle:
		if !snap.LooksLikeMainMenu {
			return wait(next, "idle: not a main menu")
		}
		// Reclassify and answer the menu within the same notification.
		next.Step = domain.StepMainMenu
		return m.Decide(next, snap)

	case domain.StepMainMenu:
		digit, matched := matcher.Select(snap.RawText, matcher.MainMenu, p.Type, m.vocab, m.defaults)
		next.Step = domain.StepSubMenu
		return inject(next, domain.FieldMenu, digit, menuReason("main", matched))

	case domain.StepSubMenu:
		digit, matched := matcher.Select(snap.RawText, matcher.SubMenu, p.Type, m.vocab, m.defaults)
		if p.Type.IsInquiry() {
			next.Step = domain.StepProcessing
		} else {
			next.Step = domain.StepPhoneInput
		}
		return inject(next, domain.FieldMenu, digit, menuReason("sub", matched))

	case domain.StepPhoneInput:
		next.Step = domain.StepPhoneConfirm
		return inject(next, domain.FieldPhone, p.Phone, "phone entry")

	case domain.StepPhoneConfirm:
		next.Step = domain.StepAmountInput
		return inject(next, domain.FieldPhone, p.Phone, "phone confirmation")

	case domain.StepAmountInput:
		if snap.LooksLikeMismatch {
			return m.reenter(next)
		}
		next.Step = domain.StepConfirmation
		return inject(next, domain.FieldAmount, p.Amount, "amount entry")

	case domain.StepConfirmation:
		if snap.LooksLikeMismatch {
			return m.reenter(next)
		}
		if snap.LooksLikePinPrompt {
			// The carrier skipped the confirmation screen.
			next.Step = domain.StepPinInput
			return m.Decide(next, snap)
		}
		if !strings.Contains(strings.ToLower(snap.RawText), "confirm") && !strings.Contains(snap.RawText, "1") {
			return wait(next, "confirmation: no confirm option")
		}
		next.Step = domain.StepPinInput
		return inject(next, domain.FieldConfirm, "1", "confirmation")

	case domain.StepPinInput:
		if !snap.LooksLikePinPrompt {
			return wait(next, "pin input: no pin prompt")
		}
		if p.NeedsPINPrompt() {
			next.Step = domain.StepPinPrompt
			return Decision{Next: next, Action: Action{Kind: ActionPromptPIN}, Reason: pinPromptReason(p)}
		}
		return m.submitPIN(next)

	case domain.StepPinPrompt:
		if !p.PinSubmitted {
			return wait(next, "pin prompt: waiting for pin")
		}
		return m.submitPIN(next)

	case domain.StepProcessing:
		if snap.LooksLikeWrongPIN && !snap.LooksLikeTerminal && !p.Type.IsInquiry() {
			if p.AttemptCount >= m.maxPinAttempts {
				return complete(next, domain.OutcomeFailed, "pin attempts exhausted")
			}
			next.Step = domain.StepPinPrompt
			next.PinSubmitted = false
			return Decision{Next: next, Action: Action{Kind: ActionPromptPIN}, Reason: "pin rejected"}
		}
		if !snap.LooksLikeTerminal {
			return wait(next, "processing: waiting for result")
		}
		status := domain.OutcomeFailed
		if snap.LooksLikeSuccess {
			status = domain.OutcomeSuccess
		}
		return complete(next, status, "terminal text")

	case domain.StepCompleted:
		return wait(next, "completed: waiting for reset")
	}

	return wait(next, fmt.Sprintf("unknown step %d", int(p.Step)))
}

func (m *Machine) submitPIN(next domain.TransactionParameters) Decision {
	pin := next.PIN
	next.AttemptCount++
	next.PinSubmitted = false
	next.Step = domain.StepProcessing
	return inject(next, domain.FieldPIN, pin, fmt.Sprintf("pin attempt %d", next.AttemptCount))
}

func (m *Machine) reenter(next domain.TransactionParameters) Decision {
	next.ReentryCount++
	if next.ReentryCount > m.maxReentries {
		return complete(next, domain.OutcomeFailed, "phone confirmation mismatch")
	}
	next.Step = domain.StepPhoneConfirm
	return inject(next, domain.FieldPhone, next.Phone, fmt.Sprintf("re-entry %d after mismatch", next.ReentryCount))
}

func inject(next domain.TransactionParameters, field domain.InputField, text, reason string) Decision {
	return Decision{Next: next, Action: Action{Kind: ActionInject, Field: field, Text: text}, Reason: reason}
}

func wait(next domain.TransactionParameters, reason string) Decision {
	return Decision{Next: next, Action: Action{Kind: ActionNone}, Reason: reason}
}

func complete(next domain.TransactionParameters, status domain.OutcomeStatus, reason string) Decision {
	next.Step = domain.StepCompleted
	return Decision{Next: next, Action: Action{Kind: ActionComplete}, Outcome: status, Reason: reason}
}

func menuReason(level string, matched bool) string {
	if matched {
		return level + " menu: vocabulary match"
	}
	return level + " menu: default digit"
}

func pinPromptReason(p domain.TransactionParameters) string {
	if p.NeedsCustomPIN() {
		return "custom pin required"
	}
	return "default pin needs confirmation"
}
