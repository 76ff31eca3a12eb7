package registry

import "context"

// Input carries everything a specialist needs for one invocation.
type Input struct {
	Query     string
	SessionID string
	UserID    string
	Context   map[string]interface{}
}

// Outcome is a specialist's successful result: a narrative for the user, a
// confidence score, and structured metadata consumed by downstream phases
// (the recommendation fallback reads metadata["recommendations"]).
type Outcome struct {
	Narrative  string                 `json:"narrative"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Specialist answers one narrow category of question using its own data
// query and narrative generation. Implementations must be safe for
// concurrent use; invocations are independent, idempotent reads.
type Specialist interface {
	Name() string
	Invoke(ctx context.Context, in Input) (Outcome, error)
}
