package constants

// Activity names used for workflow registration and execution.
// Using constants eliminates magic strings and ensures consistency.
const (
	// Routing
	RouteQueryActivity = "RouteQuery"

	// Specialist execution
	ExecuteSpecialistActivity = "ExecuteSpecialist"

	// Synthesis
	DiagnoseFindingsActivity        = "DiagnoseFindings"
	GenerateRecommendationsActivity = "GenerateRecommendations"

	// Session management
	UpdateSessionResultActivity = "UpdateSessionResult"

	// Persistence
	RecordWorkflowRunActivity = "RecordWorkflowRun"

	// Streaming
	EmitProgressActivity = "EmitProgress"
)
