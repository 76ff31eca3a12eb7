// Package server is the orchestration service between the transport
// layer and Temporal: it starts analytics workflows, waits on their
// results, and cancels them when a caller walks away.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/constants"
	"github.com/adpulse-labs/orchestrator/internal/metrics"
	"github.com/adpulse-labs/orchestrator/internal/session"
	"github.com/adpulse-labs/orchestrator/internal/workflows"
)

// workflowExecutionTimeout bounds one analytics run end to end.
const workflowExecutionTimeout = 10 * time.Minute

// temporalClient is the slice of client.Client the service uses.
type temporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID, runID string) error
}

// Service submits analytics queries as Temporal workflows.
type Service struct {
	temporal  temporalClient
	sessions  *session.Manager
	logger    *zap.Logger
	taskQueue string
}

// NewService wires the service. The task queue defaults to the shared
// analytics queue when empty.
func NewService(tc temporalClient, sessions *session.Manager, taskQueue string, logger *zap.Logger) *Service {
	if taskQueue == "" {
		taskQueue = constants.AnalyticsTaskQueue
	}
	return &Service{
		temporal:  tc,
		sessions:  sessions,
		logger:    logger,
		taskQueue: taskQueue,
	}
}

// Sessions exposes the session manager to the transport layer.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Submission is a started workflow plus the handle to await it on.
type Submission struct {
	WorkflowID string
	RunID      string
	run        client.WorkflowRun
}

// Submit starts one analytics workflow for the query and returns
// without waiting for it.
func (s *Service) Submit(ctx context.Context, input workflows.TaskInput) (*Submission, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	workflowID := constants.WorkflowIDPrefix + uuid.New().String()
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: workflowExecutionTimeout,
	}

	run, err := s.temporal.ExecuteWorkflow(ctx, options, constants.AnalyticsWorkflowName, input)
	if err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	}

	metrics.WorkflowsStarted.Inc()
	s.logger.Info("Workflow submitted",
		zap.String("workflow_id", workflowID),
		zap.String("user_id", input.UserID),
		zap.String("session_id", input.SessionID),
	)

	return &Submission{
		WorkflowID: workflowID,
		RunID:      run.GetRunID(),
		run:        run,
	}, nil
}

// Await blocks until the workflow completes and returns its result.
func (s *Service) Await(ctx context.Context, sub *Submission) (workflows.TaskResult, error) {
	var result workflows.TaskResult
	if err := sub.run.Get(ctx, &result); err != nil {
		return workflows.TaskResult{}, fmt.Errorf("await workflow %s: %w", sub.WorkflowID, err)
	}
	return result, nil
}

// Execute submits a query and waits for the answer. Used by the
// synchronous chat endpoint.
func (s *Service) Execute(ctx context.Context, input workflows.TaskInput) (workflows.TaskResult, string, error) {
	sub, err := s.Submit(ctx, input)
	if err != nil {
		return workflows.TaskResult{}, "", err
	}
	result, err := s.Await(ctx, sub)
	if err != nil {
		return workflows.TaskResult{}, sub.WorkflowID, err
	}
	return result, sub.WorkflowID, nil
}

// Cancel requests cancellation of a running workflow. Used when an SSE
// client disconnects before the run finishes.
func (s *Service) Cancel(ctx context.Context, workflowID string) error {
	if err := s.temporal.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return fmt.Errorf("cancel workflow %s: %w", workflowID, err)
	}
	s.logger.Info("Workflow cancelled", zap.String("workflow_id", workflowID))
	return nil
}
