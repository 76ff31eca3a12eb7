// Package session persists conversation state in Redis so follow-up
// queries can reuse routing decisions and prior findings. A small local
// cache fronts Redis for reads on the hot path.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/circuitbreaker"
	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

const maxHistory = 100

// Config holds session manager settings, resolved once at startup.
type Config struct {
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
	MaxCached     int
}

// Manager handles session persistence with a Redis backend.
type Manager struct {
	client      *circuitbreaker.RedisWrapper
	logger      *zap.Logger
	ttl         time.Duration
	mu          sync.RWMutex
	localCache  map[string]*Session
	cacheAccess map[string]time.Time
	maxCached   int
}

// NewManager connects to Redis and returns a session manager.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	client := circuitbreaker.NewRedisWrapper(redisClient, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	maxCached := cfg.MaxCached
	if maxCached == 0 {
		maxCached = 10000
	}

	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         ttl,
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
		maxCached:   maxCached,
	}, nil
}

// NewManagerWithClient builds a manager on an existing wrapped client.
// Used by tests and by callers that share one Redis connection pool.
func NewManagerWithClient(client *circuitbreaker.RedisWrapper, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         ttl,
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
		maxCached:   10000,
	}
}

// CreateSession creates a session with a generated ID.
func (m *Manager) CreateSession(ctx context.Context, userID string, metadata map[string]interface{}) (*Session, error) {
	return m.CreateSessionWithID(ctx, uuid.New().String(), userID, metadata)
}

// CreateSessionWithID creates a session with a caller-supplied ID. If the
// session already exists for the same user it is returned as-is; an ID
// owned by a different user gets a fresh generated ID instead.
func (m *Manager) CreateSessionWithID(ctx context.Context, sessionID, userID string, metadata map[string]interface{}) (*Session, error) {
	existing, _ := m.GetSession(ctx, sessionID)
	if existing != nil {
		if existing.UserID != userID {
			m.logger.Warn("Session ID owned by different user, generating new ID",
				zap.String("requested_session_id", sessionID),
				zap.String("requesting_user", userID),
			)
			return m.CreateSessionWithID(ctx, uuid.New().String(), userID, metadata)
		}
		return existing, nil
	}

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Metadata:  metadata,
		Context:   make(map[string]interface{}),
		History:   make([]Message, 0),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[sessionID] = session
	m.cacheAccess[sessionID] = now
	m.evictIfFull()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created session",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
	)
	metrics.SessionsCreated.Inc()
	return session, nil
}

// GetSession retrieves a session by ID, preferring the local cache.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	if session, ok := m.localCache[sessionID]; ok {
		m.mu.RUnlock()
		metrics.SessionCacheHits.Inc()
		if session.IsExpired() {
			_ = m.DeleteSession(ctx, sessionID)
			return nil, ErrSessionExpired
		}
		m.mu.Lock()
		m.cacheAccess[sessionID] = time.Now()
		m.mu.Unlock()
		return session, nil
	}
	m.mu.RUnlock()
	metrics.SessionCacheMisses.Inc()

	data, err := m.client.Get(ctx, m.sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.IsExpired() {
		_ = m.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	m.mu.Lock()
	m.localCache[sessionID] = &session
	m.cacheAccess[sessionID] = time.Now()
	m.evictIfFull()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	return &session, nil
}

// UpdateSession writes a session back to Redis and the local cache.
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	session.UpdatedAt = time.Now()

	if err := m.saveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	m.cacheAccess[session.ID] = time.Now()
	m.mu.Unlock()
	return nil
}

// DeleteSession removes a session from Redis and the local cache.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.mu.Lock()
	delete(m.localCache, sessionID)
	delete(m.cacheAccess, sessionID)
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Deleted session", zap.String("session_id", sessionID))
	return nil
}

// AddMessage appends a message to session history, capped at maxHistory.
func (m *Manager) AddMessage(ctx context.Context, sessionID string, msg Message) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	// Mutate a copy: the cached pointer may be held by concurrent readers.
	session = session.clone()
	session.History = append(session.History, msg)
	if len(session.History) > maxHistory {
		session.History = session.History[len(session.History)-maxHistory:]
	}
	return m.UpdateSession(ctx, session)
}

// SetLastAgents records which specialists served the latest query.
func (m *Manager) SetLastAgents(ctx context.Context, sessionID string, agents []string) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session = session.clone()
	session.LastAgents = agents
	return m.UpdateSession(ctx, session)
}

// GetUserSessions returns all live sessions for a user.
func (m *Manager) GetUserSessions(ctx context.Context, userID string) ([]*Session, error) {
	keys, err := m.client.Keys(ctx, "session:*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*Session
	for _, key := range keys {
		data, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.UserID == userID && !session.IsExpired() {
			sessions = append(sessions, &session)
		}
	}
	return sessions, nil
}

// CleanupExpired removes expired sessions. Redis TTLs handle the common
// case; this sweeps sessions whose logical expiry moved earlier.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := m.client.Keys(ctx, "session:*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cleaned := 0
	for _, key := range keys {
		data, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.IsExpired() {
			if err := m.client.Del(ctx, key).Err(); err == nil {
				cleaned++
			}
		}
	}

	m.logger.Info("Cleaned up expired sessions", zap.Int("count", cleaned))
	return cleaned, nil
}

// Close closes the underlying Redis connection.
func (m *Manager) Close() error {
	return m.client.Close()
}

// RedisWrapper exposes the wrapped client for health checks.
func (m *Manager) RedisWrapper() *circuitbreaker.RedisWrapper {
	return m.client
}

func (m *Manager) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = m.ttl
	}
	return m.client.Set(ctx, m.sessionKey(session.ID), data, ttl).Err()
}

// evictIfFull drops the least recently used half when the cache exceeds
// its cap. Caller must hold m.mu.
func (m *Manager) evictIfFull() {
	if len(m.localCache) <= m.maxCached {
		return
	}

	type accessEntry struct {
		id   string
		time time.Time
	}
	entries := make([]accessEntry, 0, len(m.localCache))
	for id := range m.localCache {
		entries = append(entries, accessEntry{id: id, time: m.cacheAccess[id]})
	}
	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].time.Before(entries[i].time) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	toRemove := m.maxCached / 2
	for i := 0; i < toRemove && i < len(entries); i++ {
		delete(m.localCache, entries[i].id)
		delete(m.cacheAccess, entries[i].id)
	}
}
