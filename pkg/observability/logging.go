package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
)

// LogHooks writes one structured line per lifecycle event. Phone numbers are
// masked and PINs never reach the logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"session", e.Session,
				"from", e.From.String(),
				"to", e.To.String(),
				"type", e.TransactionType,
				"reason", e.Reason,
			)
		},
		OnInject: func(ctx context.Context, e *domain.InjectEvent) {
			text := e.Text
			switch e.Field {
			case domain.FieldPIN:
				text = middleware.Mask
			case domain.FieldPhone:
				text = middleware.MaskPhone(text)
			}
			logger.DebugContext(ctx, "inject",
				"session", e.Session,
				"step", e.Step.String(),
				"field", e.Field,
				"text", text,
			)
		},
		OnPinPrompt: func(ctx context.Context, e *domain.PinPromptEvent) {
			logger.InfoContext(ctx, "pin_prompt",
				"session", e.Session,
				"type", e.TransactionType,
				"attempts", e.AttemptCount,
			)
		},
		OnOutcome: func(ctx context.Context, e *domain.OutcomeEvent) {
			logger.InfoContext(ctx, "outcome",
				"session", e.Session,
				"id", e.Outcome.ID,
				"type", e.Outcome.Type,
				"status", e.Outcome.Status,
				"amount", e.Outcome.Amount,
				"phone", middleware.MaskPhone(e.Outcome.Phone),
				"reference", e.Outcome.Reference,
				"duration", e.Duration,
			)
		},
		OnSkip: func(ctx context.Context, e *domain.SkipEvent) {
			logger.DebugContext(ctx, "skip",
				"session", e.Session,
				"step", e.Step.String(),
				"reason", e.Reason,
			)
		},
	}
}
