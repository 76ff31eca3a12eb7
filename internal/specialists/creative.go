package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/registry"
)

const creativeSystemPrompt = `You are a creative performance analyst for a programmatic advertising platform.
You receive aggregated per-creative metrics (spend, impressions, clicks, conversions, revenue, all financial values in GBP).
Answer the user's question from the numbers provided. Cover:
1. Top and bottom performing creatives
2. Fatigue indicators and refresh priorities
Be precise, data-driven, and format money as £X.XX. Never invent numbers that are not in the data.`

const creativeSQL = `
SELECT creative_name,
       MIN(creative_size) AS creative_size,
       SUM(spend_gbp)     AS total_spend,
       SUM(impressions)   AS total_impressions,
       SUM(clicks)        AS total_clicks,
       SUM(conversions)   AS total_conversions,
       SUM(revenue_gbp)   AS total_revenue
FROM analytics.creative_daily
WHERE advertiser = $1
GROUP BY creative_name
ORDER BY total_impressions DESC`

// minCreativeVariety is the smallest portfolio that does not risk
// fatigue from over-rotation.
const minCreativeVariety = 3

// Creative answers creative performance and fatigue questions.
type Creative struct {
	deps Deps
}

func NewCreative(deps Deps) *Creative {
	return &Creative{deps: deps}
}

func (c *Creative) Name() string { return registry.CreativeInventory }

func (c *Creative) Invoke(ctx context.Context, in registry.Input) (registry.Outcome, error) {
	rows, err := c.deps.Warehouse.Query(ctx, creativeSQL, c.deps.advertiser())
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("creative query: %w", err)
	}
	if len(rows) == 0 {
		return noDataOutcome("No creative performance data found for the requested period."), nil
	}

	creatives := make([]entityMetrics, 0, len(rows))
	sizes := make(map[string]string, len(rows))
	for _, row := range rows {
		e := entityFromRow(row, "creative_name")
		creatives = append(creatives, e)
		sizes[e.Name] = rowString(row, "creative_size")
	}

	issues, recs := c.analyze(creatives, sizes)
	digest := buildDigest(in.Query, "Creative performance", creatives, issues)

	narrative, err := c.deps.narrate(ctx, creativeSystemPrompt, digest)
	if err != nil {
		return registry.Outcome{}, err
	}

	c.deps.Logger.Debug("Creative analysis complete",
		zap.Int("creatives", len(creatives)),
		zap.Int("issues", len(issues)),
	)

	return registry.Outcome{
		Narrative:  narrative,
		Confidence: analysisConfidence,
		Metadata: map[string]interface{}{
			"rows_analyzed":   len(creatives),
			"issues":          issues,
			"recommendations": recs,
		},
	}, nil
}

func (c *Creative) analyze(creatives []entityMetrics, sizes map[string]string) ([]string, []recommendation) {
	var issues []string
	var recs []recommendation

	account := totals(creatives)
	avgCTR := account.CTR()

	low := 0
	for _, cr := range creatives {
		if cr.Impressions >= minImpressionsCTR && cr.CTR() < avgCTR*lowCTRFraction {
			low++
		}
	}
	if low > 0 {
		issues = append(issues, fmt.Sprintf("%d creatives performing significantly below average CTR", low))
	}
	if len(creatives) < minCreativeVariety {
		issues = append(issues, "Limited creative variety increases fatigue risk")
		recs = append(recs, heuristicRec("high",
			"Develop additional creative variations for rotation",
			fmt.Sprintf("Only %d active creatives; limited diversity accelerates fatigue", len(creatives)),
		))
	}

	top, bottom := topBottomByCTR(creatives)
	if top != nil {
		recs = append(recs, heuristicRec("high",
			fmt.Sprintf("Increase rotation weight for creative '%s' (%s)", top.Name, sizes[top.Name]),
			fmt.Sprintf("Top performer with %.2f%% CTR and %.2f%% CVR", top.CTR(), top.CVR()),
		))
	}
	if bottom != nil && top != nil && bottom.Name != top.Name {
		recs = append(recs, heuristicRec("medium",
			fmt.Sprintf("Pause or refresh creative '%s'", bottom.Name),
			fmt.Sprintf("Weakest performer at %.2f%% CTR against a %.2f%% account average", bottom.CTR(), avgCTR),
		))
	}

	return issues, recs
}
