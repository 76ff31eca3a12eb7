// Package workflows contains the analytics orchestration: a Temporal
// workflow that routes a query, gates it, fans out to specialists,
// diagnoses their findings, and either exits early or generates and
// validates recommendations. Decision logic is implemented as pure
// functions in this package; everything that touches the network runs
// as an activity.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/adpulse-labs/orchestrator/internal/activities"
	"github.com/adpulse-labs/orchestrator/internal/constants"
	"github.com/adpulse-labs/orchestrator/internal/streaming"
)

const fatalErrorResponse = "I'm sorry, something went wrong while processing your request. Please try again."

// AnalyticsWorkflow runs one query through the full phase sequence:
// routing -> gate -> specialists -> diagnosis -> early exit ->
// recommendations -> validation -> assembly. The user always receives
// exactly one response and confidence; internal failures degrade
// rather than abort.
func AnalyticsWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting AnalyticsWorkflow",
		"query", input.Query,
		"user_id", input.UserID,
		"session_id", input.SessionID,
	)

	start := workflow.Now(ctx)
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	emit := progressEmitter(ctx, workflowID, start)
	state := WorkflowState{Input: input, AgentErrors: map[string]string{}}

	// Phase 1: routing.
	emit(streaming.TypePhaseStarted, "routing", "", "running", "Analyzing your question", nil)
	err := workflow.ExecuteActivity(ctx, constants.RouteQueryActivity, activities.RouteQueryInput{
		Query:   input.Query,
		History: input.History,
	}).Get(ctx, &state.Routing)
	if err != nil {
		logger.Error("Routing failed", "error", err)
		emit(streaming.TypeError, "routing", "", "failed", "Routing failed", nil)
		return fatalResult(ctx, input, workflowID, start, err)
	}
	emit(streaming.TypePhaseCompleted, "routing", "", "completed", "", map[string]interface{}{
		"selected_agents": state.Routing.SelectedAgents,
		"confidence":      state.Routing.Confidence,
	})

	if state.Routing.ClarificationNeeded {
		logger.Info("Routing requested clarification")
		return finishRun(ctx, &state, workflowID, start, emit)
	}

	// Phase 2: gate (deterministic, in-workflow).
	state.Gate = validateGate(input.Query, state.Routing.SelectedAgents, state.Routing.Confidence)
	emit(streaming.TypePhaseCompleted, "gate", "", "completed", "", map[string]interface{}{
		"valid":           state.Gate.Valid,
		"approved_agents": state.Gate.ApprovedAgents,
		"warnings":        len(state.Gate.Warnings),
	})
	if !state.Gate.Valid {
		logger.Warn("Gate blocked query", "reason", state.Gate.Reason)
		return finishRun(ctx, &state, workflowID, start, emit)
	}

	// Phase 3: specialists, in parallel. Futures are resolved in
	// approved-list order so aggregation stays deterministic; one
	// specialist's failure never cancels its siblings.
	emit(streaming.TypePhaseStarted, "specialists", "", "running", "Consulting specialists", nil)
	futures := make([]workflow.Future, len(state.Gate.ApprovedAgents))
	for i, agent := range state.Gate.ApprovedAgents {
		emit(streaming.TypeAgentStarted, "specialists", agent, "running", "", nil)
		futures[i] = workflow.ExecuteActivity(ctx, constants.ExecuteSpecialistActivity, activities.ExecuteSpecialistInput{
			Agent:     agent,
			Query:     input.Query,
			SessionID: input.SessionID,
			UserID:    input.UserID,
			Context:   input.Context,
		})
	}
	for i, agent := range state.Gate.ApprovedAgents {
		var outcome activities.SpecialistOutcome
		if err := futures[i].Get(ctx, &outcome); err != nil {
			state.AgentErrors[agent] = err.Error()
			emit(streaming.TypeAgentFailed, "specialists", agent, "failed", err.Error(), nil)
			continue
		}
		state.Outcomes = append(state.Outcomes, outcome)
		emit(streaming.TypeAgentCompleted, "specialists", agent, "completed", "", map[string]interface{}{
			"confidence": outcome.Confidence,
		})
	}
	emit(streaming.TypePhaseCompleted, "specialists", "", "completed", "", map[string]interface{}{
		"succeeded": len(state.Outcomes),
		"failed":    len(state.AgentErrors),
	})

	// Phase 4: diagnosis, skippable for simple single-specialist turns.
	if diagnosis, skipped := bypassDiagnosis(input.Query, state.Gate.ApprovedAgents, state.Outcomes); skipped {
		logger.Info("Diagnosis skipped for single-specialist informational query")
		state.Diagnosis = diagnosis
		emit(streaming.TypePhaseCompleted, "diagnosis", "", "skipped", "", nil)
	} else {
		emit(streaming.TypePhaseStarted, "diagnosis", "", "running", "Analyzing findings", nil)
		err := workflow.ExecuteActivity(ctx, constants.DiagnoseFindingsActivity, activities.DiagnoseFindingsInput{
			Query:        input.Query,
			Outcomes:     state.Outcomes,
			GateWarnings: state.Gate.Warnings,
		}).Get(ctx, &state.Diagnosis)
		if err != nil {
			logger.Error("Diagnosis failed, degrading", "error", err)
			// The placeholder issue keeps the early-exit check from
			// reading the empty diagnosis as an all-clear.
			state.Diagnosis = activities.Diagnosis{
				Severity: activities.SeverityMedium,
				Summary:  "Diagnosis unavailable; review specialist findings directly.",
				Issues:   []string{"Automated diagnosis unavailable"},
			}
		}
		emit(streaming.TypePhaseCompleted, "diagnosis", "", "completed", "", map[string]interface{}{
			"severity":    state.Diagnosis.Severity,
			"root_causes": len(state.Diagnosis.RootCauses),
		})
	}

	// Phase 5: early exit (deterministic).
	state.EarlyExit = shouldExitEarly(state.Diagnosis, state.Outcomes, input.Query)
	if state.EarlyExit.Exit {
		logger.Info("Early exit triggered", "reason", state.EarlyExit.Reason)
		return finishRun(ctx, &state, workflowID, start, emit)
	}

	// Phase 6: recommendations.
	emit(streaming.TypePhaseStarted, "recommendation", "", "running", "Generating recommendations", nil)
	err = workflow.ExecuteActivity(ctx, constants.GenerateRecommendationsActivity, activities.GenerateRecommendationsInput{
		Query:     input.Query,
		Diagnosis: state.Diagnosis,
		Outcomes:  state.Outcomes,
	}).Get(ctx, &state.Recommendations)
	if err != nil {
		logger.Error("Recommendation generation failed, continuing without", "error", err)
		state.Recommendations = activities.RecommendationSet{
			Confidence: 0.6,
			ActionPlan: "Review individual specialist findings",
		}
	}
	emit(streaming.TypePhaseCompleted, "recommendation", "", "completed", "", map[string]interface{}{
		"count": len(state.Recommendations.Recommendations),
	})

	// Phase 7: validation (deterministic).
	state.Validation = validateRecommendations(state.Recommendations.Recommendations, state.Diagnosis)
	emit(streaming.TypePhaseCompleted, "validation", "", "completed", "", map[string]interface{}{
		"validated": len(state.Validation.Validated),
		"warnings":  len(state.Validation.Warnings),
	})

	return finishRun(ctx, &state, workflowID, start, emit)
}

// finishRun assembles the final response, records the session message
// and the run, and emits the terminal progress event.
func finishRun(
	ctx workflow.Context,
	state *WorkflowState,
	workflowID string,
	start time.Time,
	emit emitFunc,
) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)

	response, confidence, outcome := assembleResponse(*state)
	agentsInvoked := make([]string, 0, len(state.Outcomes))
	for _, o := range state.Outcomes {
		agentsInvoked = append(agentsInvoked, o.Agent)
	}
	elapsed := workflow.Now(ctx).Sub(start)

	// Session and run persistence are best-effort.
	if state.Input.SessionID != "" {
		if err := workflow.ExecuteActivity(ctx, constants.UpdateSessionResultActivity, activities.UpdateSessionResultInput{
			SessionID:     state.Input.SessionID,
			Response:      response,
			Confidence:    confidence,
			AgentsInvoked: agentsInvoked,
			Outcome:       outcome,
		}).Get(ctx, nil); err != nil {
			logger.Warn("Session update failed", "error", err)
		}
	}

	recordRun(ctx, activities.RecordWorkflowRunInput{
		WorkflowID:          workflowID,
		SessionID:           state.Input.SessionID,
		UserID:              state.Input.UserID,
		Query:               state.Input.Query,
		Response:            response,
		Outcome:             outcome,
		Confidence:          confidence,
		Severity:            state.Diagnosis.Severity,
		AgentsInvoked:       agentsInvoked,
		AgentErrors:         state.AgentErrors,
		RecommendationCount: len(state.Validation.Validated),
		DurationMS:          elapsed.Milliseconds(),
	})

	emit(streaming.TypeWorkflowDone, "", "", outcome, "", map[string]interface{}{
		"confidence": confidence,
	})

	logger.Info("AnalyticsWorkflow completed",
		"outcome", outcome,
		"confidence", confidence,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return TaskResult{
		Response:   response,
		Confidence: confidence,
		Outcome:    outcome,
		Metadata: map[string]interface{}{
			"agents_invoked":        agentsInvoked,
			"severity":              state.Diagnosis.Severity,
			"recommendations_count": len(state.Validation.Validated),
			"execution_time_ms":     elapsed.Milliseconds(),
		},
	}, nil
}

// fatalResult converts an unrecoverable failure into a terminal error
// response. The error never propagates past the workflow boundary.
func fatalResult(ctx workflow.Context, input TaskInput, workflowID string, start time.Time, cause error) (TaskResult, error) {
	elapsed := workflow.Now(ctx).Sub(start)
	recordRun(ctx, activities.RecordWorkflowRunInput{
		WorkflowID: workflowID,
		SessionID:  input.SessionID,
		UserID:     input.UserID,
		Query:      input.Query,
		Response:   fatalErrorResponse,
		Outcome:    OutcomeError,
		Confidence: 0.0,
		DurationMS: elapsed.Milliseconds(),
	})
	return TaskResult{
		Response:   fatalErrorResponse,
		Confidence: 0.0,
		Outcome:    OutcomeError,
		Metadata: map[string]interface{}{
			"error": cause.Error(),
		},
	}, nil
}

// recordRun schedules run persistence fire-and-forget on a disconnected
// context so it survives workflow completion.
func recordRun(ctx workflow.Context, rec activities.RecordWorkflowRunInput) {
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	detached, _ := workflow.NewDisconnectedContext(ctx)
	dctx := workflow.WithActivityOptions(detached, opts)
	workflow.ExecuteActivity(dctx, constants.RecordWorkflowRunActivity, rec)
}

// emitFunc publishes one progress event. Failures are ignored: the
// progress channel is observational and never alters control flow.
type emitFunc func(eventType, phase, agent, status, message string, details map[string]interface{})

func progressEmitter(ctx workflow.Context, workflowID string, start time.Time) emitFunc {
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	emitCtx := workflow.WithActivityOptions(ctx, opts)

	return func(eventType, phase, agent, status, message string, details map[string]interface{}) {
		elapsed := workflow.Now(emitCtx).Sub(start)
		_ = workflow.ExecuteActivity(emitCtx, constants.EmitProgressActivity, activities.EmitProgressInput{
			WorkflowID: workflowID,
			Type:       eventType,
			Phase:      phase,
			Agent:      agent,
			Status:     status,
			Message:    message,
			Details:    details,
			ElapsedMS:  elapsed.Milliseconds(),
		}).Get(emitCtx, nil)
	}
}
