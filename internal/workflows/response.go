package workflows

import (
	"fmt"
	"strings"

	"github.com/adpulse-labs/orchestrator/internal/classify"
)

const (
	earlyExitConfidence    = 0.8
	defaultFullConfidence  = 0.8
	minDiagnosisSummaryLen = 20
	maxWarningsInResponse  = 3
)

// assembleResponse renders the final state into one user-facing message
// and confidence. Priority order: clarification > gate block > early
// exit > full report. Pure function of the state.
func assembleResponse(state WorkflowState) (string, float64, string) {
	if state.Routing.ClarificationNeeded {
		return state.Routing.ClarificationMessage, 0.0, OutcomeClarification
	}

	if !state.Gate.Valid {
		return fmt.Sprintf("Unable to process query: %s", state.Gate.Reason), 0.0, OutcomeBlocked
	}

	if state.EarlyExit.Exit {
		response := state.EarlyExit.FinalResponse
		if response == "" {
			response = state.Diagnosis.Summary
		}
		return response, earlyExitConfidence, OutcomeEarlyExit
	}

	confidence := state.Recommendations.Confidence
	if confidence == 0 {
		confidence = defaultFullConfidence
	}
	return buildFullResponse(state), confidence, OutcomeFull
}

// buildFullResponse renders the diagnosis and validated recommendations
// as a markdown report.
func buildFullResponse(state WorkflowState) string {
	var parts []string

	parts = append(parts, "# Analysis Results\n")
	parts = append(parts, fmt.Sprintf("**Query**: %s\n", state.Input.Query))

	// Recommendations lead when present; the diagnosis follows as
	// supporting context.
	if len(state.Validation.Validated) > 0 {
		parts = append(parts, "\n## Recommendations")
		for i, rec := range state.Validation.Validated {
			action := rec.Action
			if action == "" {
				action = "N/A"
			}
			reason := rec.Reason
			if reason == "" {
				reason = "N/A"
			}
			parts = append(parts, fmt.Sprintf("\n### %d. [%s] %s", i+1, strings.ToUpper(rec.Priority), action))
			parts = append(parts, fmt.Sprintf("**Why**: %s", reason))
			if rec.ExpectedImpact != "" {
				parts = append(parts, fmt.Sprintf("**Expected Impact**: %s", rec.ExpectedImpact))
			}
		}
	}

	// The diagnosis section is skipped for bare follow-up turns and for
	// summaries too short to add anything.
	includeDiagnosis := len(state.Diagnosis.Summary) >= minDiagnosisSummaryLen && !classify.IsFollowUp(state.Input.Query)
	if includeDiagnosis || len(state.Diagnosis.RootCauses) > 0 {
		parts = append(parts, "\n## Diagnosis")
		parts = append(parts, fmt.Sprintf("**Severity**: %s", strings.ToUpper(state.Diagnosis.Severity)))
		if includeDiagnosis && state.Diagnosis.Summary != "" {
			parts = append(parts, fmt.Sprintf("\n%s\n", state.Diagnosis.Summary))
		}
		if len(state.Diagnosis.RootCauses) > 0 {
			parts = append(parts, "\n**Root Causes**:")
			for _, cause := range state.Diagnosis.RootCauses {
				parts = append(parts, "- "+cause)
			}
		}
	}

	if len(state.Validation.Warnings) > 0 {
		parts = append(parts, "\n## Notes")
		for i, warning := range state.Validation.Warnings {
			if i >= maxWarningsInResponse {
				break
			}
			parts = append(parts, "- "+warning)
		}
	}

	return strings.Join(parts, "\n")
}
