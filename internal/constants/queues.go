package constants

// Temporal task queue and workflow naming.
const (
	// AnalyticsTaskQueue is the single task queue the worker polls.
	AnalyticsTaskQueue = "adpulse-analytics"

	// AnalyticsWorkflowName is the registered workflow type.
	AnalyticsWorkflowName = "AnalyticsWorkflow"

	// WorkflowIDPrefix prefixes every workflow execution ID.
	WorkflowIDPrefix = "analytics-"
)
