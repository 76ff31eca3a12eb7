package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB marshals to/from a Postgres jsonb column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, j)
}

// StringList marshals a string slice to/from jsonb.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, l)
}

// WorkflowRun is one completed workflow execution, idempotent by
// workflow ID so a replayed persistence activity overwrites rather than
// duplicates.
type WorkflowRun struct {
	ID                  uuid.UUID  `db:"id"`
	WorkflowID          string     `db:"workflow_id"`
	SessionID           string     `db:"session_id"`
	UserID              string     `db:"user_id"`
	Query               string     `db:"query"`
	Response            string     `db:"response"`
	Outcome             string     `db:"outcome"`
	Confidence          float64    `db:"confidence"`
	Severity            string     `db:"severity"`
	AgentsInvoked       StringList `db:"agents_invoked"`
	AgentErrors         JSONB      `db:"agent_errors"`
	RecommendationCount int        `db:"recommendation_count"`
	DurationMS          int64      `db:"duration_ms"`
	CreatedAt           time.Time  `db:"created_at"`
}
