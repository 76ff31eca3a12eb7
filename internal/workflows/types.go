package workflows

import (
	"github.com/adpulse-labs/orchestrator/internal/activities"
)

// Terminal outcome categories. The response text alone disambiguates
// them for the user; these values are for metadata and metrics.
const (
	OutcomeClarification = "clarification"
	OutcomeBlocked       = "blocked"
	OutcomeEarlyExit     = "early_exit"
	OutcomeFull          = "full"
	OutcomeError         = "error"
)

// TaskInput is the immutable request for one workflow run.
type TaskInput struct {
	Query     string                 `json:"query"`
	SessionID string                 `json:"session_id,omitempty"`
	UserID    string                 `json:"user_id"`
	History   []activities.Message   `json:"history,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// TaskResult is the single user-facing answer plus metadata.
type TaskResult struct {
	Response   string                 `json:"response"`
	Confidence float64                `json:"confidence"`
	Outcome    string                 `json:"outcome"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// GateVerdict is the gate's deterministic decision on a routing result.
// Invariant: ApprovedAgents is a subset of the registry names, never
// larger than maxAgents, and non-empty whenever Valid is true.
type GateVerdict struct {
	Valid          bool     `json:"valid"`
	Reason         string   `json:"reason"`
	Warnings       []string `json:"warnings,omitempty"`
	ApprovedAgents []string `json:"approved_agents"`
}

// EarlyExitDecision is the early-exit policy's verdict on a diagnosis.
type EarlyExitDecision struct {
	Exit          bool   `json:"exit"`
	Reason        string `json:"reason"`
	FinalResponse string `json:"final_response,omitempty"`
}

// ValidationResult is the recommendation validator's output.
type ValidationResult struct {
	Valid     bool                        `json:"valid"`
	Validated []activities.Recommendation `json:"validated"`
	Warnings  []string                    `json:"warnings,omitempty"`
	Errors    []string                    `json:"errors,omitempty"`
}

// WorkflowState is the aggregate threaded through assembly. Owned by
// one run; discarded once the response is returned.
type WorkflowState struct {
	Input           TaskInput
	Routing         activities.RoutingDecision
	Gate            GateVerdict
	Outcomes        []activities.SpecialistOutcome
	AgentErrors     map[string]string
	Diagnosis       activities.Diagnosis
	EarlyExit       EarlyExitDecision
	Recommendations activities.RecommendationSet
	Validation      ValidationResult
}
