package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

type captureRecorder struct {
	inputs []RecordWorkflowRunInput
	err    error
}

func (c *captureRecorder) RecordRun(_ context.Context, in RecordWorkflowRunInput) error {
	c.inputs = append(c.inputs, in)
	return c.err
}

func TestRecordWorkflowRunPersistsAndCountsOutcome(t *testing.T) {
	rec := &captureRecorder{}
	a := NewActivities(testRegistry(t), &stubEngine{}, nil, nil, rec, zaptest.NewLogger(t))

	before := testutil.ToFloat64(metrics.WorkflowsCompleted.WithLabelValues("early_exit"))

	err := a.RecordWorkflowRun(context.Background(), RecordWorkflowRunInput{
		WorkflowID: "wf-1",
		Outcome:    "early_exit",
		DurationMS: 1500,
	})
	require.NoError(t, err)

	require.Len(t, rec.inputs, 1)
	assert.Equal(t, "wf-1", rec.inputs[0].WorkflowID)
	assert.Equal(t, before+1,
		testutil.ToFloat64(metrics.WorkflowsCompleted.WithLabelValues("early_exit")))
}

func TestRecordWorkflowRunSwallowsStoreFailure(t *testing.T) {
	rec := &captureRecorder{err: errors.New("db down")}
	a := NewActivities(testRegistry(t), &stubEngine{}, nil, nil, rec, zaptest.NewLogger(t))

	err := a.RecordWorkflowRun(context.Background(), RecordWorkflowRunInput{
		WorkflowID: "wf-1",
		Outcome:    "full",
	})
	assert.NoError(t, err)
}

func TestRecordWorkflowRunCountsEvenWithoutStore(t *testing.T) {
	a := NewActivities(testRegistry(t), &stubEngine{}, nil, nil, nil, zaptest.NewLogger(t))

	before := testutil.ToFloat64(metrics.WorkflowsCompleted.WithLabelValues("clarification"))
	require.NoError(t, a.RecordWorkflowRun(context.Background(), RecordWorkflowRunInput{
		WorkflowID: "wf-2",
		Outcome:    "clarification",
	}))
	assert.Equal(t, before+1,
		testutil.ToFloat64(metrics.WorkflowsCompleted.WithLabelValues("clarification")))
}
