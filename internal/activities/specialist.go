package activities

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
	"github.com/adpulse-labs/orchestrator/internal/registry"
)

// ExecuteSpecialist runs one approved specialist. The workflow schedules
// one activity per specialist so failures stay isolated; an error here
// fails only this specialist's future, never its siblings.
func (a *Activities) ExecuteSpecialist(ctx context.Context, in ExecuteSpecialistInput) (SpecialistOutcome, error) {
	start := time.Now()

	handler, ok := a.registry.Handler(in.Agent)
	if !ok {
		metrics.SpecialistExecutions.WithLabelValues(in.Agent, "not_found").Inc()
		return SpecialistOutcome{}, fmt.Errorf("specialist %q not found", in.Agent)
	}

	outcome, err := handler.Invoke(ctx, registry.Input{
		Query:     in.Query,
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Context:   in.Context,
	})

	elapsed := time.Since(start)
	metrics.SpecialistDuration.WithLabelValues(in.Agent).Observe(float64(elapsed.Milliseconds()))

	if err != nil {
		metrics.SpecialistExecutions.WithLabelValues(in.Agent, "error").Inc()
		a.logger.Error("Specialist failed",
			zap.String("agent", in.Agent),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return SpecialistOutcome{}, fmt.Errorf("specialist %s: %w", in.Agent, err)
	}

	metrics.SpecialistExecutions.WithLabelValues(in.Agent, "ok").Inc()
	a.logger.Info("Specialist completed",
		zap.String("agent", in.Agent),
		zap.Float64("confidence", outcome.Confidence),
		zap.Duration("elapsed", elapsed),
	)

	return SpecialistOutcome{
		Agent:      in.Agent,
		Narrative:  outcome.Narrative,
		Confidence: outcome.Confidence,
		Metadata:   outcome.Metadata,
	}, nil
}
