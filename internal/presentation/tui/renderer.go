package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer renders markdown with glamour, picking a light or dark style
// from the terminal background. Without a usable renderer the markdown is
// returned as is.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// PlainRenderer returns markdown untouched, for pipes and tests.
func PlainRenderer() Renderer {
	return func(markdown string) (string, error) { return markdown, nil }
}

// StatusMarkdown describes a status as a markdown table. Phone numbers are masked.
func StatusMarkdown(st domain.Status) string {
	var b strings.Builder
	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k string, v any) { fmt.Fprintf(&b, "| %s | %v |\n", k, v) }
	row("Service", availability(st.ServiceAvailable))
	row("Automation", onOff(st.AutomationEnabled))
	row("Step", st.CurrentState)
	if st.TransactionType != "" {
		row("Type", st.TransactionType)
	}
	if st.PhoneNumber != "" {
		row("Phone", middleware.MaskPhone(st.PhoneNumber))
	}
	if st.Amount != "" {
		row("Amount", st.Amount)
	}
	if st.PinPromptActive {
		row("PIN", "waiting")
	}
	return b.String()
}

// OutcomeMarkdown summarises a finished flow.
func OutcomeMarkdown(o domain.Outcome) string {
	var b strings.Builder
	if o.Status == domain.OutcomeSuccess {
		b.WriteString("## Transaction successful\n\n")
	} else {
		b.WriteString("## Transaction failed\n\n")
	}
	fmt.Fprintf(&b, "- **Type:** %s\n", o.Type)
	if o.Amount != "" {
		fmt.Fprintf(&b, "- **Amount:** %s\n", o.Amount)
	}
	fmt.Fprintf(&b, "- **Reference:** `%s`\n", o.Reference)
	if o.Message != "" {
		fmt.Fprintf(&b, "\n> %s\n", strings.ReplaceAll(o.Message, "\n", " "))
	}
	return b.String()
}

// OutcomesMarkdown lists ledger entries, newest first.
func OutcomesMarkdown(outcomes []domain.Outcome) string {
	if len(outcomes) == 0 {
		return "_No outcomes recorded._\n"
	}
	var b strings.Builder
	b.WriteString("| Time | Type | Amount | Phone | Status | Reference |\n|---|---|---|---|---|---|\n")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			o.Timestamp.Format("2006-01-02 15:04:05"), o.Type, o.Amount,
			middleware.MaskPhone(o.Phone), o.Status, o.Reference)
	}
	return b.String()
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func onOff(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
