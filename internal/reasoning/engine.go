// Package reasoning wraps the external reasoning engine behind a narrow
// interface so workflow activities and specialists can be tested against
// fakes. Replies are free text; each caller parses its own line-oriented
// format and applies its own fallback on malformed output.
package reasoning

import "context"

// Request is one role-tagged completion request.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Engine is the reasoning-engine contract. Complete returns the raw text
// reply; callers must treat any error as a provider failure and fall back
// to their deterministic behavior.
type Engine interface {
	Complete(ctx context.Context, req Request) (string, error)
}
