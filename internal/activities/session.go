package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/session"
)

// UpdateSessionResult records the assistant's reply in session history
// and remembers which specialists served the query for follow-up
// routing. Session persistence is best-effort; a Redis outage must not
// fail a workflow that already produced an answer.
func (a *Activities) UpdateSessionResult(ctx context.Context, in UpdateSessionResultInput) error {
	if a.sessions == nil || in.SessionID == "" {
		return nil
	}

	err := a.sessions.AddMessage(ctx, in.SessionID, session.Message{
		Role:    "assistant",
		Content: in.Response,
		Metadata: map[string]interface{}{
			"confidence":     in.Confidence,
			"agents_invoked": in.AgentsInvoked,
			"outcome":        in.Outcome,
		},
	})
	if err != nil {
		a.logger.Warn("Failed to record assistant message",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
		return nil
	}

	if len(in.AgentsInvoked) > 0 {
		if err := a.sessions.SetLastAgents(ctx, in.SessionID, in.AgentsInvoked); err != nil {
			a.logger.Warn("Failed to record last agents",
				zap.String("session_id", in.SessionID),
				zap.Error(err),
			)
		}
	}
	return nil
}
