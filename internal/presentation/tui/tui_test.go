package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusMarkdown_MasksPhone(t *testing.T) {
	md := StatusMarkdown(domain.Status{
		ServiceAvailable:  true,
		AutomationEnabled: true,
		CurrentState:      "PinPrompt",
		PinPromptActive:   true,
		TransactionType:   domain.CashOut,
		PhoneNumber:       "0244123456",
		Amount:            "100",
	})
	assert.Contains(t, md, "| Phone | ***456 |")
	assert.Contains(t, md, "| PIN | waiting |")
	assert.NotContains(t, md, "0244123456")
}

func TestOutcomeMarkdown(t *testing.T) {
	md := OutcomeMarkdown(domain.Outcome{
		Type:      domain.CashOut,
		Amount:    "100",
		Status:    domain.OutcomeFailed,
		Reference: "USSD_1",
		Message:   "Cash out failed.\nInsufficient balance",
	})
	assert.Contains(t, md, "Transaction failed")
	assert.Contains(t, md, "`USSD_1`")
	assert.Contains(t, md, "> Cash out failed. Insufficient balance")
}

func TestOutcomesMarkdown_Empty(t *testing.T) {
	assert.Contains(t, OutcomesMarkdown(nil), "No outcomes")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, " v1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestPlainRenderer(t *testing.T) {
	out, err := PlainRenderer()("# hi")
	assert.NoError(t, err)
	assert.Equal(t, "# hi", out)
}
