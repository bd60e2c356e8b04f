package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/trivium/pkg/domain"
)

// LogHooks returns hooks that trace every lifecycle event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Enter Step", "batch_id", e.BatchID, "step", e.Step, "round", e.Round)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Leave Step", "batch_id", e.BatchID, "step", e.Step, "round", e.Round, "skipped", e.Skipped)
		},
		OnAgentCall: func(ctx context.Context, e *domain.AgentEvent) {
			logger.Debug("Agent Call", "batch_id", e.BatchID, "agent", e.Agent, "label", e.Label)
		},
		OnAgentReturn: func(ctx context.Context, e *domain.AgentEvent) {
			if e.IsError {
				logger.Debug("Agent Return (Error)", "agent", e.Agent, "label", e.Label, "err", e.Error)
			} else {
				logger.Debug("Agent Return (Success)", "agent", e.Agent, "label", e.Label, "duration", e.Duration)
			}
		},
		OnRoundComplete: func(ctx context.Context, e *domain.RoundEvent) {
			logger.Debug("Round Complete",
				"batch_id", e.BatchID,
				"round", e.Round,
				"issues", e.Issues,
				"accepted", e.Accepted,
				"passed", e.Passed,
				"memoized", e.Memoized,
			)
		},
	}
}
