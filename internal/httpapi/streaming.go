package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/streaming"
)

// StreamHandler re-attaches an SSE client to a running workflow's
// progress feed. Unlike the chat stream it only observes: a disconnect
// here never cancels the workflow.
type StreamHandler struct {
	streams *streaming.Manager
	logger  *zap.Logger
}

func NewStreamHandler(streams *streaming.Manager, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{streams: streams, logger: logger}
}

// RegisterRoutes registers the stream routes on the provided mux.
func (h *StreamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stream/sse", h.handleSSE)
}

// GET /stream/sse?workflow_id=<id>
//
// Reconnecting clients send the last sequence number they saw via the
// Last-Event-ID header (or last_event_id query parameter); buffered
// events after that point are replayed before live delivery resumes.
func (h *StreamHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	workflowID := r.URL.Query().Get("workflow_id")
	if workflowID == "" {
		writeError(w, http.StatusBadRequest, "workflow_id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("last_event_id")
	}
	var since uint64
	if lastEventID != "" {
		parsed, err := strconv.ParseUint(lastEventID, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid last event id")
			return
		}
		since = parsed
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := h.streams.Subscribe(workflowID, 256)
	defer h.streams.Unsubscribe(workflowID, events)

	h.logger.Debug("SSE client attached",
		zap.String("workflow_id", workflowID),
		zap.Uint64("since", since),
	)

	fmt.Fprintf(w, ": attached to %s\n\n", workflowID)

	lastSeq := since
	done := false
	for _, evt := range h.streams.ReplaySince(workflowID, since) {
		writeSSE(w, evt.Seq, "progress", evt.Marshal())
		lastSeq = evt.Seq
		if evt.Type == streaming.TypeWorkflowDone {
			done = true
		}
	}
	flusher.Flush()
	if done {
		return
	}

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case evt := <-events:
			if evt.Seq <= lastSeq {
				continue
			}
			lastSeq = evt.Seq
			writeSSE(w, evt.Seq, "progress", evt.Marshal())
			flusher.Flush()
			keepalive.Reset(sseKeepaliveInterval)
			if evt.Type == streaming.TypeWorkflowDone {
				return
			}

		case <-keepalive.C:
			fmt.Fprint(w, "event: keepalive\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
