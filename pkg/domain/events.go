package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventInject     EventType = "inject"
	EventPinPrompt  EventType = "pin_prompt"
	EventOutcome    EventType = "outcome"
	EventSkip       EventType = "skip"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
}

// TransitionEvent is emitted whenever the persisted step changes.
type TransitionEvent struct {
	EventBase
	From            Step            `json:"from"`
	To              Step            `json:"to"`
	TransactionType TransactionType `json:"transaction_type"`
	Reason          string          `json:"reason,omitempty"`
}

// InjectEvent is emitted after a value was typed into a dialog.
// Text is masked for PIN fields.
type InjectEvent struct {
	EventBase
	Step  Step       `json:"step"`
	Field InputField `json:"field"`
	Text  string     `json:"text"`
}

// PinPromptEvent is emitted when the flow pauses for an out-of-band PIN.
type PinPromptEvent struct {
	EventBase
	TransactionType TransactionType `json:"transaction_type"`
	AttemptCount    int             `json:"attempt_count"`
}

// OutcomeEvent is emitted when a flow reaches Completed.
type OutcomeEvent struct {
	EventBase
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// SkipEvent is emitted when a dialog notification is dropped without acting.
type SkipEvent struct {
	EventBase
	Step   Step   `json:"step"`
	Reason string `json:"reason"`
}

// LifecycleHooks defines callbacks for automation observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnInject     func(context.Context, *InjectEvent)
	OnPinPrompt  func(context.Context, *PinPromptEvent)
	OnOutcome    func(context.Context, *OutcomeEvent)
	OnSkip       func(context.Context, *SkipEvent)
}

// MergeHooks fans every callback out to all non-nil hooks in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnInject: func(ctx context.Context, e *InjectEvent) {
			for _, h := range hooks {
				if h.OnInject != nil {
					h.OnInject(ctx, e)
				}
			}
		},
		OnPinPrompt: func(ctx context.Context, e *PinPromptEvent) {
			for _, h := range hooks {
				if h.OnPinPrompt != nil {
					h.OnPinPrompt(ctx, e)
				}
			}
		},
		OnOutcome: func(ctx context.Context, e *OutcomeEvent) {
			for _, h := range hooks {
				if h.OnOutcome != nil {
					h.OnOutcome(ctx, e)
				}
			}
		},
		OnSkip: func(ctx context.Context, e *SkipEvent) {
			for _, h := range hooks {
				if h.OnSkip != nil {
					h.OnSkip(ctx, e)
				}
			}
		},
	}
}
