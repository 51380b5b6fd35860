package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Overlay marks progress of a live flow on the diagram.
type Overlay struct {
	Visited []domain.Step
	Current domain.Step
}

// OverlayFor derives the overlay from persisted parameters: every step of the
// sequence before the current one counts as visited. A PIN prompt sits between
// PinInput and Processing.
func OverlayFor(p domain.TransactionParameters) *Overlay {
	until := p.Step
	if until == domain.StepPinPrompt {
		until = domain.StepProcessing
	}
	o := &Overlay{Current: p.Step}
	for _, s := range domain.Sequence(p.Type) {
		if s == until {
			break
		}
		o.Visited = append(o.Visited, s)
	}
	return o
}

// GenerateMermaid renders the step machine of t as a Mermaid flowchart.
// Shapes follow what the step waits for:
// - Idle and Completed: ((Circle))
// - Menus: {Rhombus}
// - Typed input: [/Parallelogram/]
// - PIN prompt: [[Subroutine]]
func GenerateMermaid(t domain.TransactionType, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seq := domain.Sequence(t)
	steps := seq
	if !t.IsInquiry() {
		steps = append(append([]domain.Step{}, seq...), domain.StepPinPrompt)
	}
	for _, s := range steps {
		opener, closer := shape(s)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", s, opener, s, closer)
	}

	for i := 0; i+1 < len(seq); i++ {
		fmt.Fprintf(&sb, "    %s --> %s\n", seq[i], seq[i+1])
	}
	if !t.IsInquiry() {
		fmt.Fprintf(&sb, "    %s -. \"custom or default pin\" .-> %s\n", domain.StepPinInput, domain.StepPinPrompt)
		fmt.Fprintf(&sb, "    %s -- \"pin submitted\" --> %s\n", domain.StepPinPrompt, domain.StepProcessing)
		fmt.Fprintf(&sb, "    %s -. \"wrong pin\" .-> %s\n", domain.StepProcessing, domain.StepPinPrompt)
		fmt.Fprintf(&sb, "    %s -. \"mismatch\" .-> %s\n", domain.StepAmountInput, domain.StepPhoneConfirm)
		fmt.Fprintf(&sb, "    %s -. \"mismatch\" .-> %s\n", domain.StepConfirmation, domain.StepPhoneConfirm)
	}
	fmt.Fprintf(&sb, "    %s -. \"auto reset\" .-> %s\n", domain.StepCompleted, domain.StepIdle)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Step]bool)
		for _, s := range overlay.Visited {
			if !seen[s] && s.Valid() {
				seen[s] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", s)
			}
		}
		if overlay.Current.Valid() {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}

func shape(s domain.Step) (string, string) {
	switch s {
	case domain.StepIdle, domain.StepCompleted:
		return "((", "))"
	case domain.StepMainMenu, domain.StepSubMenu:
		return "{", "}"
	case domain.StepPhoneInput, domain.StepPhoneConfirm, domain.StepAmountInput, domain.StepPinInput:
		return "[/", "/]"
	case domain.StepPinPrompt:
		return "[[", "]]"
	}
	return "[", "]"
}
