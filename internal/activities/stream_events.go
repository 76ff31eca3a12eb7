package activities

import (
	"context"

	"github.com/adpulse-labs/orchestrator/internal/streaming"
)

// EmitProgress publishes one progress event to the streaming channel.
// Purely observational: it never influences workflow control flow, so
// it always returns nil.
func (a *Activities) EmitProgress(ctx context.Context, in EmitProgressInput) error {
	if a.streams == nil {
		return nil
	}
	a.streams.Publish(in.WorkflowID, streaming.Event{
		Type:      in.Type,
		Phase:     in.Phase,
		Agent:     in.Agent,
		Status:    in.Status,
		Message:   in.Message,
		Details:   in.Details,
		ElapsedMS: in.ElapsedMS,
	})
	return nil
}
