package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/classify"
	"github.com/adpulse-labs/orchestrator/internal/registry"
)

const performanceSystemPrompt = `You are a campaign performance analyst for a programmatic advertising platform.
You receive aggregated insertion-order metrics (spend, impressions, clicks, conversions, revenue, all financial values in GBP).
Answer the user's question from the numbers provided. Structure your reply as:
1. Performance Summary
2. Insertion Order Breakdown
3. Key Insights
Be precise, data-driven, and format money as £X.XX. Never invent numbers that are not in the data.`

// performanceSQL aggregates the daily fact table to insertion-order
// level. The optional name filter narrows to one campaign when the
// query mentions it.
const performanceSQL = `
SELECT insertion_order,
       SUM(spend_gbp)    AS total_spend,
       SUM(impressions)  AS total_impressions,
       SUM(clicks)       AS total_clicks,
       SUM(conversions)  AS total_conversions,
       SUM(revenue_gbp)  AS total_revenue
FROM analytics.performance_daily
WHERE advertiser = $1
  AND ($2 = '' OR insertion_order ILIKE '%' || $2 || '%')
GROUP BY insertion_order
ORDER BY total_spend DESC`

// thresholds for the deterministic issue scan.
const (
	lowCTRFraction    = 0.5 // below half the account average
	minImpressionsCTR = 1000
	minClicksCVR      = 10
)

// Performance answers insertion-order level performance questions.
type Performance struct {
	deps Deps
}

func NewPerformance(deps Deps) *Performance {
	return &Performance{deps: deps}
}

func (p *Performance) Name() string { return registry.PerformanceDiagnosis }

func (p *Performance) Invoke(ctx context.Context, in registry.Input) (registry.Outcome, error) {
	nameFilter := firstCampaignName(in.Query)
	rows, err := p.deps.Warehouse.Query(ctx, performanceSQL, p.deps.advertiser(), nameFilter)
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("performance query: %w", err)
	}
	if len(rows) == 0 {
		return noDataOutcome("No performance data found for the requested period or campaign."), nil
	}

	entities := make([]entityMetrics, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, entityFromRow(row, "insertion_order"))
	}

	issues, recs := p.analyze(entities)
	digest := buildDigest(in.Query, "Insertion order performance", entities, issues)

	narrative, err := p.deps.narrate(ctx, performanceSystemPrompt, digest)
	if err != nil {
		return registry.Outcome{}, err
	}

	p.deps.Logger.Debug("Performance analysis complete",
		zap.Int("insertion_orders", len(entities)),
		zap.Int("issues", len(issues)),
	)

	return registry.Outcome{
		Narrative:  narrative,
		Confidence: analysisConfidence,
		Metadata: map[string]interface{}{
			"rows_analyzed":   len(entities),
			"issues":          issues,
			"recommendations": recs,
		},
	}, nil
}

// analyze scans the derived metrics for the issues the platform cares
// about and turns the strongest signals into heuristic recommendations.
func (p *Performance) analyze(entities []entityMetrics) ([]string, []recommendation) {
	var issues []string
	var recs []recommendation

	account := totals(entities)
	avgCTR := account.CTR()

	for _, e := range entities {
		if e.Impressions >= minImpressionsCTR && e.CTR() < avgCTR*lowCTRFraction {
			issues = append(issues, fmt.Sprintf("%s CTR (%.2f%%) is well below the account average (%.2f%%)", e.Name, e.CTR(), avgCTR))
		}
		if e.Clicks >= minClicksCVR && e.Conversions == 0 {
			issues = append(issues, fmt.Sprintf("%s has %.0f clicks but no conversions", e.Name, e.Clicks))
		}
	}

	top, bottom := topBottomByCTR(entities)
	if top != nil && bottom != nil && top.Name != bottom.Name {
		recs = append(recs, heuristicRec("high",
			fmt.Sprintf("Shift budget from '%s' to '%s'", bottom.Name, top.Name),
			fmt.Sprintf("'%s' leads on CTR (%.2f%%) while '%s' trails (%.2f%%)", top.Name, top.CTR(), bottom.Name, bottom.CTR()),
		))
	}
	if account.ROAS() > 0 && account.ROAS() < 1 {
		recs = append(recs, heuristicRec("high",
			"Review bid strategy and conversion tracking across insertion orders",
			fmt.Sprintf("Account ROAS is %.2f; revenue is not covering spend", account.ROAS()),
		))
	}

	return issues, recs
}

// firstCampaignName pulls an optional campaign filter out of the query.
func firstCampaignName(query string) string {
	names := classify.ExtractCampaignNames(query)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func noDataOutcome(narrative string) registry.Outcome {
	return registry.Outcome{
		Narrative:  narrative,
		Confidence: noDataConfidence,
		Metadata:   map[string]interface{}{"rows_analyzed": 0},
	}
}
