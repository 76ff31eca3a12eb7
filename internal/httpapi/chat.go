package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/activities"
	"github.com/adpulse-labs/orchestrator/internal/session"
	"github.com/adpulse-labs/orchestrator/internal/streaming"
	"github.com/adpulse-labs/orchestrator/internal/workflows"
)

const (
	sseKeepaliveInterval = 15 * time.Second
	cancelTimeout        = 5 * time.Second
)

// ChatRequest is the body for both chat endpoints.
type ChatRequest struct {
	Query     string                 `json:"query"`
	SessionID string                 `json:"session_id,omitempty"`
	UserID    string                 `json:"user_id"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ChatResponse is the synchronous chat reply.
type ChatResponse struct {
	WorkflowID string                 `json:"workflow_id"`
	SessionID  string                 `json:"session_id"`
	Response   string                 `json:"response"`
	Confidence float64                `json:"confidence"`
	Outcome    string                 `json:"outcome"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	orchestrator Orchestrator
	sessions     SessionStore
	streams      *streaming.Manager
	logger       *zap.Logger
}

func NewChatHandler(orchestrator Orchestrator, sessions SessionStore, streams *streaming.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		sessions:     sessions,
		streams:      streams,
		logger:       logger,
	}
}

// RegisterRoutes registers the chat routes on the provided mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", h.handleChat)
	mux.HandleFunc("/api/chat/stream", h.handleChatStream)
}

// prepare validates the request, resolves or creates the session, and
// records the user turn.
func (h *ChatHandler) prepare(ctx context.Context, req *ChatRequest) (workflows.TaskInput, error) {
	if req.Query == "" {
		return workflows.TaskInput{}, fmt.Errorf("query is required")
	}
	if req.UserID == "" {
		return workflows.TaskInput{}, fmt.Errorf("user_id is required")
	}

	var sess *session.Session
	var err error
	if req.SessionID != "" {
		sess, err = h.sessions.GetSession(ctx, req.SessionID)
		if err != nil {
			return workflows.TaskInput{}, fmt.Errorf("session %s: %w", req.SessionID, err)
		}
		if sess.UserID != req.UserID {
			return workflows.TaskInput{}, session.ErrSessionNotFound
		}
	} else {
		sess, err = h.sessions.CreateSession(ctx, req.UserID, nil)
		if err != nil {
			return workflows.TaskInput{}, fmt.Errorf("create session: %w", err)
		}
	}

	history := make([]activities.Message, 0, session.HistoryWindow)
	for _, msg := range sess.RecentHistory(session.HistoryWindow) {
		history = append(history, activities.Message{Role: msg.Role, Content: msg.Content})
	}

	if err := h.sessions.AddMessage(ctx, sess.ID, session.Message{Role: "user", Content: req.Query}); err != nil {
		h.logger.Warn("Failed to record user message", zap.String("session_id", sess.ID), zap.Error(err))
	}

	return workflows.TaskInput{
		Query:     req.Query,
		SessionID: sess.ID,
		UserID:    req.UserID,
		History:   history,
		Context:   req.Context,
	}, nil
}

// handleChat runs a query synchronously.
// POST /api/chat
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := h.prepare(r.Context(), &req)
	if err != nil {
		writeError(w, statusForPrepareError(err), err.Error())
		return
	}

	result, workflowID, err := h.orchestrator.Execute(r.Context(), input)
	if err != nil {
		h.logger.Error("Chat execution failed", zap.String("workflow_id", workflowID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		WorkflowID: workflowID,
		SessionID:  input.SessionID,
		Response:   result.Response,
		Confidence: result.Confidence,
		Outcome:    result.Outcome,
		Metadata:   result.Metadata,
	})
}

// handleChatStream runs a query and streams progress over SSE. The
// stream carries the workflow's progress events, a keepalive comment
// event during silence, and exactly one terminal "complete" or "error"
// event. A client disconnect before completion cancels the workflow.
// POST /api/chat/stream
func (h *ChatHandler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := h.prepare(r.Context(), &req)
	if err != nil {
		writeError(w, statusForPrepareError(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub, err := h.orchestrator.Submit(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to start analysis")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := h.streams.Subscribe(sub.WorkflowID, 256)
	defer h.streams.Unsubscribe(sub.WorkflowID, events)

	fmt.Fprintf(w, ": workflow %s session %s\n\n", sub.WorkflowID, input.SessionID)

	// Events published between Submit and Subscribe only live in the
	// replay buffer.
	var lastSeq uint64
	for _, evt := range h.streams.ReplaySince(sub.WorkflowID, 0) {
		writeSSE(w, evt.Seq, "progress", evt.Marshal())
		lastSeq = evt.Seq
	}
	flusher.Flush()

	// Await the result off to the side so progress keeps flowing.
	type outcome struct {
		result workflows.TaskResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := h.orchestrator.Await(context.Background(), sub)
		done <- outcome{result: result, err: err}
	}()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected, cancelling workflow",
				zap.String("workflow_id", sub.WorkflowID))
			cancelCtx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			if err := h.orchestrator.Cancel(cancelCtx, sub.WorkflowID); err != nil {
				h.logger.Warn("Cancel failed", zap.String("workflow_id", sub.WorkflowID), zap.Error(err))
			}
			cancel()
			return

		case evt := <-events:
			if evt.Seq <= lastSeq {
				continue
			}
			lastSeq = evt.Seq
			writeSSE(w, evt.Seq, "progress", evt.Marshal())
			flusher.Flush()
			keepalive.Reset(sseKeepaliveInterval)

		case out := <-done:
			if out.err != nil {
				payload, _ := json.Marshal(map[string]string{"error": "analysis failed"})
				writeSSE(w, 0, "error", payload)
			} else {
				payload, _ := json.Marshal(ChatResponse{
					WorkflowID: sub.WorkflowID,
					SessionID:  input.SessionID,
					Response:   out.result.Response,
					Confidence: out.result.Confidence,
					Outcome:    out.result.Outcome,
					Metadata:   out.result.Metadata,
				})
				writeSSE(w, 0, "complete", payload)
			}
			flusher.Flush()
			return

		case <-keepalive.C:
			fmt.Fprint(w, "event: keepalive\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, seq uint64, event string, data []byte) {
	if seq > 0 {
		fmt.Fprintf(w, "id: %d\n", seq)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func statusForPrepareError(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
