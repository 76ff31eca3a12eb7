package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/session"
)

// SessionHandler serves session lifecycle endpoints.
type SessionHandler struct {
	sessions SessionStore
	logger   *zap.Logger
}

func NewSessionHandler(sessions SessionStore, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers the session routes on the provided mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", h.handleSessions)
	mux.HandleFunc("/api/sessions/", h.handleSession)
}

type createSessionRequest struct {
	UserID   string                 `json:"user_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type sessionInfo struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	ExpiresAt    string   `json:"expires_at"`
	MessageCount int      `json:"message_count"`
	LastAgents   []string `json:"last_agents,omitempty"`
}

func toSessionInfo(s *session.Session) sessionInfo {
	return sessionInfo{
		ID:           s.ID,
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
		ExpiresAt:    s.ExpiresAt.Format(time.RFC3339),
		MessageCount: len(s.History),
		LastAgents:   s.LastAgents,
	}
}

// POST /api/sessions
func (h *SessionHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), req.UserID, req.Metadata)
	if err != nil {
		h.logger.Error("Failed to create session", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, toSessionInfo(sess))
}

// GET    /api/sessions/{id}
// GET    /api/sessions/{id}/history
// DELETE /api/sessions/{id}
func (h *SessionHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, tail, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		writeError(w, http.StatusNotFound, "session id is required")
		return
	}

	switch {
	case r.Method == http.MethodGet && tail == "":
		h.getSession(w, r, sessionID)
	case r.Method == http.MethodGet && tail == "history":
		h.getHistory(w, r, sessionID)
	case r.Method == http.MethodDelete && tail == "":
		h.deleteSession(w, r, sessionID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusForSessionError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionInfo(sess))
}

func (h *SessionHandler) getHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusForSessionError(err), err.Error())
		return
	}
	messages := sess.History
	if messages == nil {
		messages = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"messages":   messages,
	})
}

func (h *SessionHandler) deleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, statusForSessionError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
