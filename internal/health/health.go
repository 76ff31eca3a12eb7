// Package health runs dependency probes and exposes them over HTTP for
// liveness and readiness checks.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const probeTimeout = 5 * time.Second

// Checker probes one dependency.
type Checker interface {
	// Name identifies the component in reports.
	Name() string

	// Critical marks checks whose failure makes the service not ready.
	Critical() bool

	// Check probes the dependency. A nil error means healthy.
	Check(ctx context.Context) error
}

// ComponentResult is one component's probe outcome.
type ComponentResult struct {
	Component string        `json:"component"`
	Status    Status        `json:"status"`
	Critical  bool          `json:"critical"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Report is a full probe sweep.
type Report struct {
	Status     Status                     `json:"status"`
	Message    string                     `json:"message"`
	Ready      bool                       `json:"ready"`
	Components map[string]ComponentResult `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Manager holds the registered checkers and runs sweeps.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a checker. Duplicate names are rejected.
func (m *Manager) Register(c Checker) error {
	if c.Name() == "" {
		return fmt.Errorf("checker name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.checkers {
		if existing.Name() == c.Name() {
			return fmt.Errorf("checker %q already registered", c.Name())
		}
	}
	m.checkers = append(m.checkers, c)
	m.logger.Info("Health checker registered",
		zap.String("checker", c.Name()),
		zap.Bool("critical", c.Critical()),
	)
	return nil
}

// Run probes every registered checker and aggregates the results. A
// failing critical checker makes the report unhealthy and not ready; a
// failing non-critical checker only degrades it.
func (m *Manager) Run(ctx context.Context) Report {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	report := Report{
		Status:     StatusHealthy,
		Ready:      true,
		Components: make(map[string]ComponentResult, len(checkers)),
		Timestamp:  time.Now(),
	}

	criticalFailures := 0
	degraded := 0
	for _, c := range checkers {
		result := m.probe(ctx, c)
		report.Components[c.Name()] = result
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Critical {
			criticalFailures++
		} else {
			degraded++
		}
	}

	switch {
	case criticalFailures > 0:
		report.Status = StatusUnhealthy
		report.Ready = false
		report.Message = fmt.Sprintf("%d critical component(s) failing", criticalFailures)
	case degraded > 0:
		report.Status = StatusDegraded
		report.Message = fmt.Sprintf("%d non-critical component(s) failing", degraded)
	default:
		report.Message = fmt.Sprintf("all %d components healthy", len(checkers))
	}

	return report
}

// Ready reports whether every critical dependency is reachable.
func (m *Manager) Ready(ctx context.Context) bool {
	return m.Run(ctx).Ready
}

func (m *Manager) probe(ctx context.Context, c Checker) ComponentResult {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := c.Check(probeCtx)
	result := ComponentResult{
		Component: c.Name(),
		Status:    StatusHealthy,
		Critical:  c.Critical(),
		Duration:  time.Since(start),
		CheckedAt: start,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		m.logger.Warn("Health check failed",
			zap.String("checker", c.Name()),
			zap.Error(err),
		)
	}
	return result
}
