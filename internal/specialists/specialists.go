// Package specialists implements the five domain handlers behind the
// capability registry. Each handler runs a fixed aggregate query against
// the warehouse, derives its metrics in Go, builds heuristic
// recommendations from the numbers, and asks the reasoning engine to
// narrate the result. The heuristic recommendations travel in the
// outcome metadata so the recommendation phase can fall back on them
// when its own reasoning call fails.
package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/reasoning"
	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

// DefaultAdvertiser scopes every warehouse query when no advertiser is
// configured.
const DefaultAdvertiser = "Quiz"

const (
	narrativeMaxTokens   = 1024
	narrativeTemperature = 0.4

	// Confidence levels mirror the outcomes: a narrated analysis is
	// trusted, a no-data answer much less so.
	analysisConfidence = 0.9
	noDataConfidence   = 0.5
)

// Warehouse is the slice of the warehouse client the specialists need.
type Warehouse interface {
	Query(ctx context.Context, query string, args ...interface{}) ([]warehouse.Row, error)
}

// Deps carries the shared dependencies for all five specialists.
type Deps struct {
	Warehouse  Warehouse
	Engine     reasoning.Engine
	Advertiser string
	Logger     *zap.Logger
}

func (d Deps) advertiser() string {
	if d.Advertiser == "" {
		return DefaultAdvertiser
	}
	return d.Advertiser
}

// narrate asks the reasoning engine to turn a metrics digest into the
// user-facing narrative.
func (d Deps) narrate(ctx context.Context, system, user string) (string, error) {
	reply, err := d.Engine.Complete(ctx, reasoning.Request{
		System:      system,
		User:        user,
		MaxTokens:   narrativeMaxTokens,
		Temperature: narrativeTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("narration failed: %w", err)
	}
	return reply, nil
}

// RegisterAll registers the five specialists with their routing
// capabilities. Registration order fixes the routing menu order.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	entries := []struct {
		cap     registry.Capability
		handler registry.Specialist
	}{
		{
			cap: registry.Capability{
				Name:        registry.PerformanceDiagnosis,
				Description: "Analyzes campaign performance at insertion-order level: impressions, clicks, CTR, conversions, spend, revenue, ROAS",
				Keywords:    []string{"performance", "ctr", "clicks", "impressions", "conversions", "roas", "revenue", "underperforming", "campaign"},
			},
			handler: NewPerformance(deps),
		},
		{
			cap: registry.Capability{
				Name:        registry.AudienceTargeting,
				Description: "Analyzes audience segment effectiveness and recommends targeting changes",
				Keywords:    []string{"audience", "segment", "targeting", "demographic", "reach"},
			},
			handler: NewAudience(deps),
		},
		{
			cap: registry.Capability{
				Name:        registry.CreativeInventory,
				Description: "Analyzes creative performance, fatigue, and rotation across formats",
				Keywords:    []string{"creative", "banner", "ad copy", "fatigue", "rotation", "format"},
			},
			handler: NewCreative(deps),
		},
		{
			cap: registry.Capability{
				Name:        registry.BudgetRisk,
				Description: "Analyzes budget pacing and depletion risk across monthly budget segments",
				Keywords:    []string{"budget", "pacing", "overspend", "underspend", "spend", "depletion"},
			},
			handler: NewBudget(deps),
		},
		{
			cap: registry.Capability{
				Name:        registry.DeliveryOptimization,
				Description: "Analyzes delivery health: served vs planned impressions, viewability, frequency",
				Keywords:    []string{"delivery", "viewability", "win rate", "serving", "underdelivery", "frequency"},
			},
			handler: NewDelivery(deps),
		},
	}

	for _, e := range entries {
		if err := reg.Register(e.cap, e.handler); err != nil {
			return err
		}
	}
	return nil
}

// recommendation is the heuristic recommendation shape carried in
// outcome metadata and consumed by the recommendation fallback.
type recommendation map[string]string

func heuristicRec(priority, action, reason string) recommendation {
	return recommendation{"priority": priority, "action": action, "reason": reason}
}
