package activities

// Severity levels, ordered from least to most urgent. Diagnosis is the
// only producer; downstream phases treat the value as authoritative.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Priority levels for recommendations.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Message is one conversation turn passed as routing context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RouteQueryInput is the input to the RouteQuery activity.
type RouteQueryInput struct {
	Query   string    `json:"query"`
	History []Message `json:"history,omitempty"`
}

// RoutingDecision is the outcome of query routing.
// Invariant: ClarificationNeeded implies SelectedAgents is empty.
type RoutingDecision struct {
	SelectedAgents       []string `json:"selected_agents"`
	Reasoning            string   `json:"reasoning"`
	Confidence           float64  `json:"confidence"`
	ClarificationNeeded  bool     `json:"clarification_needed"`
	ClarificationMessage string   `json:"clarification_message,omitempty"`
	// KeywordFallback is set when the reasoning engine was unavailable
	// and deterministic keyword matching produced the decision.
	KeywordFallback bool `json:"keyword_fallback,omitempty"`
}

// ExecuteSpecialistInput is the input to the ExecuteSpecialist activity.
type ExecuteSpecialistInput struct {
	Agent     string                 `json:"agent"`
	Query     string                 `json:"query"`
	SessionID string                 `json:"session_id,omitempty"`
	UserID    string                 `json:"user_id"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// SpecialistOutcome is one specialist's successful result.
type SpecialistOutcome struct {
	Agent      string                 `json:"agent"`
	Narrative  string                 `json:"narrative"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DiagnoseFindingsInput is the input to the DiagnoseFindings activity.
// Outcomes are in approved-list order.
type DiagnoseFindingsInput struct {
	Query        string              `json:"query"`
	Outcomes     []SpecialistOutcome `json:"outcomes"`
	GateWarnings []string            `json:"gate_warnings,omitempty"`
}

// Diagnosis is the cross-specialist synthesis. Skipped marks the
// single-specialist bypass path, which is distinct from a diagnosis
// that ran and found nothing.
type Diagnosis struct {
	Severity     string   `json:"severity"`
	Summary      string   `json:"summary"`
	RootCauses   []string `json:"root_causes,omitempty"`
	Correlations []string `json:"correlations,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	Skipped      bool     `json:"skipped,omitempty"`
}

// Recommendation is one prioritized action. Mutated only by the
// validator (priority defaulting); frozen after validation.
type Recommendation struct {
	Priority       string `json:"priority"`
	Action         string `json:"action"`
	Reason         string `json:"reason"`
	ExpectedImpact string `json:"expected_impact,omitempty"`
}

// GenerateRecommendationsInput is the input to GenerateRecommendations.
type GenerateRecommendationsInput struct {
	Query     string              `json:"query"`
	Diagnosis Diagnosis           `json:"diagnosis"`
	Outcomes  []SpecialistOutcome `json:"outcomes"`
}

// RecommendationSet is the generator's output before validation.
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"`
	ActionPlan      string           `json:"action_plan"`
	// MetadataFallback is set when the reasoning engine failed and the
	// set was lifted from specialist metadata instead.
	MetadataFallback bool `json:"metadata_fallback,omitempty"`
}

// UpdateSessionResultInput records the assistant's reply in the session.
type UpdateSessionResultInput struct {
	SessionID     string   `json:"session_id"`
	Response      string   `json:"response"`
	Confidence    float64  `json:"confidence"`
	AgentsInvoked []string `json:"agents_invoked,omitempty"`
	Outcome       string   `json:"outcome"`
}

// RecordWorkflowRunInput is the persistence record for one run.
type RecordWorkflowRunInput struct {
	WorkflowID          string            `json:"workflow_id"`
	SessionID           string            `json:"session_id,omitempty"`
	UserID              string            `json:"user_id"`
	Query               string            `json:"query"`
	Response            string            `json:"response"`
	Outcome             string            `json:"outcome"`
	Confidence          float64           `json:"confidence"`
	Severity            string            `json:"severity,omitempty"`
	AgentsInvoked       []string          `json:"agents_invoked,omitempty"`
	AgentErrors         map[string]string `json:"agent_errors,omitempty"`
	RecommendationCount int               `json:"recommendation_count"`
	DurationMS          int64             `json:"duration_ms"`
}

// EmitProgressInput is one progress event for the streaming channel.
type EmitProgressInput struct {
	WorkflowID string                 `json:"workflow_id"`
	Type       string                 `json:"type"`
	Phase      string                 `json:"phase,omitempty"`
	Agent      string                 `json:"agent,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	ElapsedMS  int64                  `json:"elapsed_ms,omitempty"`
}
