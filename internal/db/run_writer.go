package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse-labs/orchestrator/internal/activities"
)

const insertWorkflowRunSQL = `
INSERT INTO workflow_runs (
	id, workflow_id, session_id, user_id, query, response, outcome,
	confidence, severity, agents_invoked, agent_errors,
	recommendation_count, duration_ms, created_at
) VALUES (
	:id, :workflow_id, :session_id, :user_id, :query, :response, :outcome,
	:confidence, :severity, :agents_invoked, :agent_errors,
	:recommendation_count, :duration_ms, :created_at
)
ON CONFLICT (workflow_id) DO UPDATE SET
	response = EXCLUDED.response,
	outcome = EXCLUDED.outcome,
	confidence = EXCLUDED.confidence,
	severity = EXCLUDED.severity,
	agents_invoked = EXCLUDED.agents_invoked,
	agent_errors = EXCLUDED.agent_errors,
	recommendation_count = EXCLUDED.recommendation_count,
	duration_ms = EXCLUDED.duration_ms`

// InsertWorkflowRun writes one run record, overwriting any earlier
// record for the same workflow ID.
func (c *Client) InsertWorkflowRun(ctx context.Context, run *WorkflowRun) error {
	if run.WorkflowID == "" {
		return fmt.Errorf("workflow id is required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	if _, err := c.db.NamedExecContext(ctx, insertWorkflowRunSQL, run); err != nil {
		return fmt.Errorf("insert workflow run: %w", err)
	}
	return nil
}

// RecordRun implements activities.RunRecorder. The record is queued for
// an async worker; persistence failures are logged there, never
// returned to the workflow.
func (c *Client) RecordRun(_ context.Context, rec activities.RecordWorkflowRunInput) error {
	if rec.WorkflowID == "" {
		return fmt.Errorf("workflow id is required")
	}

	errs := make(JSONB, len(rec.AgentErrors))
	for agent, msg := range rec.AgentErrors {
		errs[agent] = msg
	}

	c.enqueue(&WorkflowRun{
		WorkflowID:          rec.WorkflowID,
		SessionID:           rec.SessionID,
		UserID:              rec.UserID,
		Query:               rec.Query,
		Response:            rec.Response,
		Outcome:             rec.Outcome,
		Confidence:          rec.Confidence,
		Severity:            rec.Severity,
		AgentsInvoked:       StringList(rec.AgentsInvoked),
		AgentErrors:         errs,
		RecommendationCount: rec.RecommendationCount,
		DurationMS:          rec.DurationMS,
	})
	return nil
}

// RecentRuns returns the newest runs for a user, most recent first.
func (c *Client) RecentRuns(ctx context.Context, userID string, limit int) ([]WorkflowRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []WorkflowRun
	err := c.db.SelectContext(ctx, &runs, `
		SELECT id, workflow_id, session_id, user_id, query, response, outcome,
		       confidence, severity, agents_invoked, agent_errors,
		       recommendation_count, duration_ms, created_at
		FROM workflow_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select workflow runs: %w", err)
	}
	return runs, nil
}
