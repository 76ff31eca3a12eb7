package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

// RecordWorkflowRun persists the run record for analytics and audit.
// Best-effort: a warehouse outage must not fail a completed workflow.
// Also the single point where per-run outcome metrics are observed,
// since activities run exactly once per completion.
func (a *Activities) RecordWorkflowRun(ctx context.Context, in RecordWorkflowRunInput) error {
	metrics.WorkflowsCompleted.WithLabelValues(in.Outcome).Inc()
	metrics.WorkflowDuration.Observe(float64(in.DurationMS) / 1000)

	if a.runs == nil {
		return nil
	}
	if err := a.runs.RecordRun(ctx, in); err != nil {
		a.logger.Warn("Failed to record workflow run",
			zap.String("workflow_id", in.WorkflowID),
			zap.Error(err),
		)
	}
	return nil
}
