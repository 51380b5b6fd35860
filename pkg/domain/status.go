package domain

import "time"

// Status is a read-only snapshot of the automation, safe to poll.
type Status struct {
	ServiceAvailable  bool            `json:"serviceAvailable"`
	AutomationEnabled bool            `json:"automationEnabled"`
	CurrentStep       Step            `json:"currentStep"`
	CurrentState      string          `json:"currentState"`
	PinPromptActive   bool            `json:"pinPromptActive"`
	TransactionType   TransactionType `json:"transactionType"`
	PhoneNumber       string          `json:"phoneNumber"`
	Amount            string          `json:"amount"`
	AttemptCount      int             `json:"attemptCount"`
	LastOutcome       *Outcome        `json:"lastOutcome,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// NewStatus projects parameters into a Status. The PIN never leaves the parameters.
func NewStatus(p TransactionParameters, available bool) Status {
	return Status{
		ServiceAvailable:  available,
		AutomationEnabled: p.AutomationEnabled,
		CurrentStep:       p.Step,
		CurrentState:      p.Step.String(),
		PinPromptActive:   p.Step == StepPinPrompt,
		TransactionType:   p.Type,
		PhoneNumber:       p.Phone,
		Amount:            p.Amount,
		AttemptCount:      p.AttemptCount,
	}
}

// OutcomeStatus is the final result of a flow.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is what the ledger records once a flow reaches Completed.
type Outcome struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    string          `json:"amount"`
	Phone     string          `json:"phone"`
	Status    OutcomeStatus   `json:"status"`
	Reference string          `json:"reference"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
