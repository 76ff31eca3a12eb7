package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/registry"
)

const audienceSystemPrompt = `You are an audience targeting analyst for a programmatic advertising platform.
You receive aggregated audience-segment metrics (spend, impressions, clicks, conversions, revenue, all financial values in GBP).
Answer the user's question from the numbers provided. Cover:
1. Segment performance comparison
2. Expansion or refinement opportunities
Be precise, data-driven, and format money as £X.XX. Never invent numbers that are not in the data.`

const audienceSQL = `
SELECT audience_segment,
       SUM(spend_gbp)    AS total_spend,
       SUM(impressions)  AS total_impressions,
       SUM(clicks)       AS total_clicks,
       SUM(conversions)  AS total_conversions,
       SUM(revenue_gbp)  AS total_revenue
FROM analytics.audience_daily
WHERE advertiser = $1
GROUP BY audience_segment
ORDER BY total_spend DESC`

// minSegmentSpend filters noise segments out of the recommendations.
const minSegmentSpend = 50.0

// Audience answers audience segment effectiveness questions.
type Audience struct {
	deps Deps
}

func NewAudience(deps Deps) *Audience {
	return &Audience{deps: deps}
}

func (a *Audience) Name() string { return registry.AudienceTargeting }

func (a *Audience) Invoke(ctx context.Context, in registry.Input) (registry.Outcome, error) {
	rows, err := a.deps.Warehouse.Query(ctx, audienceSQL, a.deps.advertiser())
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("audience query: %w", err)
	}
	if len(rows) == 0 {
		return noDataOutcome("No audience segment data found for the requested period."), nil
	}

	segments := make([]entityMetrics, 0, len(rows))
	for _, row := range rows {
		segments = append(segments, entityFromRow(row, "audience_segment"))
	}

	issues, recs := a.analyze(segments)
	digest := buildDigest(in.Query, "Audience segment performance", segments, issues)

	narrative, err := a.deps.narrate(ctx, audienceSystemPrompt, digest)
	if err != nil {
		return registry.Outcome{}, err
	}

	a.deps.Logger.Debug("Audience analysis complete",
		zap.Int("segments", len(segments)),
		zap.Int("issues", len(issues)),
	)

	return registry.Outcome{
		Narrative:  narrative,
		Confidence: analysisConfidence,
		Metadata: map[string]interface{}{
			"rows_analyzed":   len(segments),
			"issues":          issues,
			"recommendations": recs,
		},
	}, nil
}

func (a *Audience) analyze(segments []entityMetrics) ([]string, []recommendation) {
	var issues []string
	var recs []recommendation

	account := totals(segments)
	avgCVR := account.CVR()

	for _, s := range segments {
		if s.Spend >= minSegmentSpend && s.Clicks >= minClicksCVR && s.Conversions == 0 {
			issues = append(issues, fmt.Sprintf("Segment %s spent %s with no conversions", s.Name, gbp(s.Spend)))
			recs = append(recs, heuristicRec("medium",
				fmt.Sprintf("Narrow or exclude segment '%s' from prospecting line items", s.Name),
				fmt.Sprintf("%s spent with zero conversions from %.0f clicks", gbp(s.Spend), s.Clicks),
			))
		}
	}

	top, bottom := topBottomByCTR(segments)
	if top != nil && bottom != nil && top.Name != bottom.Name {
		recs = append(recs, heuristicRec("high",
			fmt.Sprintf("Expand reach within segment '%s'", top.Name),
			fmt.Sprintf("Strongest segment with %.2f%% CTR against an account CVR of %.2f%%", top.CTR(), avgCVR),
		))
	}

	return issues, recs
}
