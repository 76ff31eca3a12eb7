// Package httpapi is the HTTP surface: synchronous chat, SSE streaming
// chat with live progress, session management, and health.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adpulse-labs/orchestrator/internal/server"
	"github.com/adpulse-labs/orchestrator/internal/session"
	"github.com/adpulse-labs/orchestrator/internal/workflows"
)

// Orchestrator starts and manages analytics workflow runs.
type Orchestrator interface {
	Execute(ctx context.Context, input workflows.TaskInput) (workflows.TaskResult, string, error)
	Submit(ctx context.Context, input workflows.TaskInput) (*server.Submission, error)
	Await(ctx context.Context, sub *server.Submission) (workflows.TaskResult, error)
	Cancel(ctx context.Context, workflowID string) error
}

// SessionStore is the slice of the session manager the API uses.
type SessionStore interface {
	CreateSession(ctx context.Context, userID string, metadata map[string]interface{}) (*session.Session, error)
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
	AddMessage(ctx context.Context, sessionID string, msg session.Message) error
	DeleteSession(ctx context.Context, sessionID string) error
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
