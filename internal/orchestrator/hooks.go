package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/activity"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// ExecutionWriter persists execution records.
type ExecutionWriter interface {
	InsertExecution(ctx context.Context, rec *model.ExecutionRecord) error
}

// PersistExecutionHook records every execution (success and failure).
// Persistence failures must not mask the generation result: log and
// continue.
func PersistExecutionHook(w ExecutionWriter) Hook {
	return func(ctx context.Context, ex *Execution) {
		if err := w.InsertExecution(ctx, ex.Record); err != nil {
			zap.L().Warn("orchestrator: failed to persist execution record",
				zap.String("model", ex.Record.ModelID),
				zap.String("task_type", string(ex.Record.TaskType)),
				zap.Error(err),
			)
		}
	}
}

// ActivityHook emits one activity event per successful execution.
func ActivityHook(log activity.Logger, cat interface{ Label(string) string }) Hook {
	return func(ctx context.Context, ex *Execution) {
		if ex.Record.Status != model.ExecutionSuccess {
			return
		}
		ev := activity.Event{
			ActivityType: "ai_generation",
			EntityType:   "ai_execution",
			EntityID:     ex.Record.ID,
			EntityName:   ex.Task.Type.Label(),
			UserID:       ex.Record.UserID,
			Metadata: map[string]any{
				"model":         cat.Label(ex.Record.ModelID),
				"input_tokens":  ex.Record.InputTokens,
				"output_tokens": ex.Record.OutputTokens,
				"cost_usd":      ex.Record.CostUSD,
				"duration_ms":   ex.Record.DurationMS,
				"used_fallback": ex.Record.UsedFallback,
			},
		}
		if err := log.Append(ctx, ev); err != nil {
			zap.L().Warn("orchestrator: failed to append activity event",
				zap.String("model", ex.Record.ModelID),
				zap.Error(err),
			)
		}
	}
}
