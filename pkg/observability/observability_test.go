package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StepIdle, To: domain.StepSubMenu})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StepSubMenu, To: domain.StepPhoneInput})
	hooks.OnInject(ctx, &domain.InjectEvent{Field: domain.FieldMenu})
	hooks.OnInject(ctx, &domain.InjectEvent{Field: domain.FieldMenu})
	hooks.OnPinPrompt(ctx, &domain.PinPromptEvent{})
	hooks.OnSkip(ctx, &domain.SkipEvent{Reason: "duplicate dialog"})
	hooks.OnSkip(ctx, &domain.SkipEvent{Reason: "control not found: no editable field"})
	hooks.OnOutcome(ctx, &domain.OutcomeEvent{
		Outcome:  domain.Outcome{Type: domain.CashOut, Status: domain.OutcomeSuccess},
		Duration: 12 * time.Second,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("idle", "sub_menu")))
	assert.Equal(t, float64(domain.StepPhoneInput), testutil.ToFloat64(m.CurrentStep))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Injections.WithLabelValues("menu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PinPrompts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skips.WithLabelValues("duplicate dialog")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skips.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("cash_out", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FlowDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnPinPrompt(context.Background(), &domain.PinPromptEvent{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ussdflow_pin_prompts_total 1")
}

func TestLogHooks_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnInject(ctx, &domain.InjectEvent{Field: domain.FieldPIN, Text: "9999"})
	hooks.OnInject(ctx, &domain.InjectEvent{Field: domain.FieldPhone, Text: "0244123456"})
	hooks.OnOutcome(ctx, &domain.OutcomeEvent{Outcome: domain.Outcome{ID: "o1", Phone: "0244123456"}})

	out := buf.String()
	assert.NotContains(t, out, "9999")
	assert.NotContains(t, out, "0244123456")
	assert.Equal(t, 3, strings.Count(out, "\n"))
	assert.Contains(t, out, `"msg":"outcome"`)
}
