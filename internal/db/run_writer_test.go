package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adpulse-labs/orchestrator/internal/activities"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	client := NewClientWithDB(sqlx.NewDb(raw, "postgres"), zaptest.NewLogger(t))
	return client, mock
}

func TestInsertWorkflowRunFillsDefaults(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO workflow_runs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	run := &WorkflowRun{
		WorkflowID: "wf-1",
		UserID:     "u1",
		Query:      "why is budget overspending",
		Response:   "report",
		Outcome:    "full",
		Confidence: 0.85,
		Severity:   "medium",
	}
	require.NoError(t, client.InsertWorkflowRun(context.Background(), run))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", run.ID.String())
	assert.False(t, run.CreatedAt.IsZero())

	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWorkflowRunRequiresWorkflowID(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectClose()

	err := client.InsertWorkflowRun(context.Background(), &WorkflowRun{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow id is required")
	require.NoError(t, client.Close())
}

func TestRecordRunFlushesThroughQueue(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO workflow_runs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	err := client.RecordRun(context.Background(), activities.RecordWorkflowRunInput{
		WorkflowID:    "wf-2",
		SessionID:     "sess-1",
		UserID:        "u1",
		Query:         "how is my campaign performing",
		Response:      "all clear",
		Outcome:       "early_exit",
		Confidence:    0.8,
		Severity:      "low",
		AgentsInvoked: []string{"performance_diagnosis"},
		AgentErrors:   map[string]string{"budget_risk": "warehouse timeout"},
		DurationMS:    1234,
	})
	require.NoError(t, err)

	// Close drains the queue before shutting the pool down.
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunRejectsEmptyWorkflowID(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectClose()

	err := client.RecordRun(context.Background(), activities.RecordWorkflowRunInput{})
	require.Error(t, err)
	require.NoError(t, client.Close())
}

func TestJSONBRoundTrip(t *testing.T) {
	j := JSONB{"budget_risk": "timeout"}
	v, err := j.Value()
	require.NoError(t, err)

	var back JSONB
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "timeout", back["budget_risk"])

	var nilJSON JSONB
	require.NoError(t, nilJSON.Scan(nil))
	assert.Nil(t, nilJSON)
}

func TestStringListRoundTrip(t *testing.T) {
	l := StringList{"a", "b"}
	v, err := l.Value()
	require.NoError(t, err)

	var back StringList
	require.NoError(t, back.Scan(v))
	assert.Equal(t, StringList{"a", "b"}, back)

	empty := StringList(nil)
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v.([]byte))
}
