package domain

import "fmt"

// Step is the persisted position of the automation within a flow.
// Values are stable because clients poll them as integers.
type Step int

const (
	StepIdle         Step = 0
	StepMainMenu     Step = 1
	StepSubMenu      Step = 2
	StepPhoneInput   Step = 3
	StepPhoneConfirm Step = 4
	StepAmountInput  Step = 5
	StepConfirmation Step = 6
	StepPinInput     Step = 7
	StepProcessing   Step = 8
	StepCompleted    Step = 9
	StepPinPrompt    Step = 10
)

var stepNames = map[Step]string{
	StepIdle:         "idle",
	StepMainMenu:     "main_menu",
	StepSubMenu:      "sub_menu",
	StepPhoneInput:   "phone_input",
	StepPhoneConfirm: "phone_confirm",
	StepAmountInput:  "amount_input",
	StepConfirmation: "confirmation",
	StepPinInput:     "pin_input",
	StepProcessing:   "processing",
	StepCompleted:    "completed",
	StepPinPrompt:    "pin_prompt",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// Sequence returns the ordered steps a transaction type walks through.
// PinPrompt is a detour from PinInput and is not part of any sequence.
func Sequence(t TransactionType) []Step {
	if t.IsInquiry() {
		return []Step{StepIdle, StepMainMenu, StepSubMenu, StepProcessing, StepCompleted}
	}
	return []Step{
		StepIdle, StepMainMenu, StepSubMenu, StepPhoneInput, StepPhoneConfirm,
		StepAmountInput, StepConfirmation, StepPinInput, StepProcessing, StepCompleted,
	}
}
