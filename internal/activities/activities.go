// Package activities implements the non-deterministic workflow phases:
// routing, specialist execution, diagnosis, recommendation generation,
// session updates, run persistence, and progress emission. Pure decision
// logic (gate, early exit, validation, assembly) lives in the workflows
// package.
package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/reasoning"
	"github.com/adpulse-labs/orchestrator/internal/session"
	"github.com/adpulse-labs/orchestrator/internal/streaming"
)

// RunRecorder persists workflow run records. Implemented by db.RunWriter.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RecordWorkflowRunInput) error
}

// Activities bundles the dependencies shared by all activity
// implementations. One instance is registered with the worker.
type Activities struct {
	registry *registry.Registry
	engine   reasoning.Engine
	sessions *session.Manager
	streams  *streaming.Manager
	runs     RunRecorder
	logger   *zap.Logger
}

// NewActivities creates the activity bundle. sessions, streams, and
// runs may be nil; the corresponding activities then no-op gracefully.
func NewActivities(
	reg *registry.Registry,
	engine reasoning.Engine,
	sessions *session.Manager,
	streams *streaming.Manager,
	runs RunRecorder,
	logger *zap.Logger,
) *Activities {
	return &Activities{
		registry: reg,
		engine:   engine,
		sessions: sessions,
		streams:  streams,
		runs:     runs,
		logger:   logger,
	}
}
