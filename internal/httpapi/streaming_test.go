package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adpulse-labs/orchestrator/internal/streaming"
)

func streamMux(t *testing.T, streams *streaming.Manager) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewStreamHandler(streams, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return mux
}

func TestSSERequiresWorkflowID(t *testing.T) {
	mux := streamMux(t, streaming.NewManager(16))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/sse", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "workflow_id is required")
}

func TestSSERejectsBadLastEventID(t *testing.T) {
	mux := streamMux(t, streaming.NewManager(16))

	req := httptest.NewRequest(http.MethodGet, "/stream/sse?workflow_id=wf-1", nil)
	req.Header.Set("Last-Event-ID", "not-a-number")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSSEReplaysBufferedEventsAndEndsOnDone(t *testing.T) {
	streams := streaming.NewManager(16)
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypePhaseStarted, Phase: "routing"})
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypePhaseCompleted, Phase: "routing"})
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypeWorkflowDone})
	mux := streamMux(t, streams)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/sse?workflow_id=wf-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	var progress []map[string]string
	for _, evt := range events {
		if evt["event"] == "progress" {
			progress = append(progress, evt)
		}
	}
	require.Len(t, progress, 3)
	assert.Equal(t, "1", progress[0]["id"])
	assert.Equal(t, "3", progress[2]["id"])
	assert.Contains(t, progress[2]["data"], streaming.TypeWorkflowDone)
}

func TestSSEReplaySkipsEventsAlreadySeen(t *testing.T) {
	streams := streaming.NewManager(16)
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypePhaseStarted})
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypePhaseCompleted})
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypeWorkflowDone})
	mux := streamMux(t, streams)

	req := httptest.NewRequest(http.MethodGet, "/stream/sse?workflow_id=wf-1", nil)
	req.Header.Set("Last-Event-ID", "2")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	events := sseEvents(t, rec.Body.String())
	var progress []map[string]string
	for _, evt := range events {
		if evt["event"] == "progress" {
			progress = append(progress, evt)
		}
	}
	require.Len(t, progress, 1)
	assert.Equal(t, "3", progress[0]["id"])
}

func TestSSELiveDeliveryAfterAttach(t *testing.T) {
	streams := streaming.NewManager(16)
	mux := streamMux(t, streams)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/stream/sse?workflow_id=wf-1", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		mux.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypeAgentStarted, Agent: "budget_risk"})
	streams.Publish("wf-1", streaming.Event{Type: streaming.TypeWorkflowDone})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not end on workflow_done")
	}

	events := sseEvents(t, rec.Body.String())
	var progress int
	for _, evt := range events {
		if evt["event"] == "progress" {
			progress++
		}
	}
	assert.Equal(t, 2, progress)
}
