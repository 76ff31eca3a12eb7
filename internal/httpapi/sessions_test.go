package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adpulse-labs/orchestrator/internal/session"
)

func sessionMux(t *testing.T, sessions *fakeSessions) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewSessionHandler(sessions, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return mux
}

func TestCreateSession(t *testing.T) {
	sessions := newFakeSessions()
	mux := sessionMux(t, sessions)

	body, _ := json.Marshal(createSessionRequest{UserID: "u1", Metadata: map[string]interface{}{"team": "media"}})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var info sessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "sess-1", info.ID)
	assert.Equal(t, "u1", info.UserID)
	assert.Zero(t, info.MessageCount)
}

func TestCreateSessionRequiresUserID(t *testing.T) {
	mux := sessionMux(t, newFakeSessions())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id is required")
}

func TestGetSessionAndHistory(t *testing.T) {
	sessions := newFakeSessions()
	sess, err := sessions.CreateSession(context.Background(), "u1", nil)
	require.NoError(t, err)
	sess.History = []session.Message{
		{Role: "user", Content: "How is spend pacing?"},
		{Role: "assistant", Content: "Pacing is on plan."},
	}
	mux := sessionMux(t, sessions)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info sessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 2, info.MessageCount)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		SessionID string            `json:"session_id"`
		Messages  []session.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, sess.ID, history.SessionID)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "Pacing is on plan.", history.Messages[1].Content)
}

func TestGetSessionNotFound(t *testing.T) {
	mux := sessionMux(t, newFakeSessions())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	sessions := newFakeSessions()
	sess, err := sessions.CreateSession(context.Background(), "u1", nil)
	require.NoError(t, err)
	mux := sessionMux(t, sessions)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, sessions.sessions, sess.ID)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionMethodRouting(t *testing.T) {
	sessions := newFakeSessions()
	sess, err := sessions.CreateSession(context.Background(), "u1", nil)
	require.NoError(t, err)
	mux := sessionMux(t, sessions)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
