package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		typ      domain.TransactionType
		contains []string
		excludes []string
	}{
		{
			name: "Transfer Shapes",
			typ:  domain.CashOut,
			contains: []string{
				`idle(("idle"))`,
				`main_menu{"main_menu"}`,
				`amount_input[/"amount_input"/]`,
				`pin_prompt[["pin_prompt"]]`,
				"phone_input --> phone_confirm",
				`amount_input -. "mismatch" .-> phone_confirm`,
				`processing -. "wrong pin" .-> pin_prompt`,
			},
		},
		{
			name: "Inquiry Skips Input",
			typ:  domain.Balance,
			contains: []string{
				"sub_menu --> processing",
				`completed -. "auto reset" .-> idle`,
			},
			excludes: []string{"phone_input", "pin_prompt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.typ, nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			assert.NotContains(t, got, "classDef")
		})
	}
}

func TestOverlayFor(t *testing.T) {
	o := graph.OverlayFor(domain.TransactionParameters{Type: domain.CashOut, Step: domain.StepPinPrompt})
	assert.Equal(t, domain.StepPinPrompt, o.Current)
	assert.Contains(t, o.Visited, domain.StepPinInput)
	assert.NotContains(t, o.Visited, domain.StepProcessing)

	got := graph.GenerateMermaid(domain.CashOut, o)
	assert.Contains(t, got, "class pin_prompt current;")
	assert.Contains(t, got, "class main_menu visited;")
	assert.NotContains(t, got, "class processing visited;")

	o = graph.OverlayFor(domain.TransactionParameters{Type: domain.Balance, Step: domain.StepSubMenu})
	assert.Equal(t, []domain.Step{domain.StepIdle, domain.StepMainMenu}, o.Visited)
}
