package specialists

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

const deliverySystemPrompt = `You are a delivery health analyst for a programmatic advertising platform.
You receive per-insertion-order delivery figures: planned vs delivered impressions, viewable impressions, and spend in GBP.
Answer the user's question from the numbers provided. Cover:
1. Delivery vs plan per insertion order
2. Viewability and serving problems
Be precise, data-driven, and format money as £X.XX. Never invent numbers that are not in the data.`

const deliverySQL = `
SELECT insertion_order,
       SUM(planned_impressions)  AS planned_impressions,
       SUM(impressions)          AS delivered_impressions,
       SUM(viewable_impressions) AS viewable_impressions,
       SUM(spend_gbp)            AS total_spend
FROM analytics.delivery_daily
WHERE advertiser = $1
GROUP BY insertion_order
ORDER BY planned_impressions DESC`

const (
	underdeliveryThreshold = 90.0 // delivered below this % of plan
	lowViewabilityPct      = 50.0
)

// deliveryLine is one insertion order's delivery health.
type deliveryLine struct {
	Name      string
	Planned   float64
	Delivered float64
	Viewable  float64
	Spend     float64
}

func (l deliveryLine) DeliveryPct() float64    { return pct(l.Delivered, l.Planned) }
func (l deliveryLine) ViewabilityPct() float64 { return pct(l.Viewable, l.Delivered) }

// Delivery answers serving, underdelivery, and viewability questions.
type Delivery struct {
	deps Deps
}

func NewDelivery(deps Deps) *Delivery {
	return &Delivery{deps: deps}
}

func (d *Delivery) Name() string { return registry.DeliveryOptimization }

func (d *Delivery) Invoke(ctx context.Context, in registry.Input) (registry.Outcome, error) {
	rows, err := d.deps.Warehouse.Query(ctx, deliverySQL, d.deps.advertiser())
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("delivery query: %w", err)
	}
	if len(rows) == 0 {
		return noDataOutcome("No delivery data found for the requested period."), nil
	}

	lines := make([]deliveryLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, deliveryFromRow(row))
	}

	issues, recs := d.analyze(lines)
	digest := buildDeliveryDigest(in.Query, lines, issues)

	narrative, err := d.deps.narrate(ctx, deliverySystemPrompt, digest)
	if err != nil {
		return registry.Outcome{}, err
	}

	d.deps.Logger.Debug("Delivery analysis complete",
		zap.Int("insertion_orders", len(lines)),
		zap.Int("issues", len(issues)),
	)

	return registry.Outcome{
		Narrative:  narrative,
		Confidence: analysisConfidence,
		Metadata: map[string]interface{}{
			"rows_analyzed":   len(lines),
			"issues":          issues,
			"recommendations": recs,
		},
	}, nil
}

func (d *Delivery) analyze(lines []deliveryLine) ([]string, []recommendation) {
	var issues []string
	var recs []recommendation

	for _, l := range lines {
		if l.Planned > 0 && l.DeliveryPct() < underdeliveryThreshold {
			issues = append(issues, fmt.Sprintf("%s delivered %.0f%% of planned impressions", l.Name, l.DeliveryPct()))
			recs = append(recs, heuristicRec("high",
				fmt.Sprintf("Raise bids or relax frequency caps on '%s' to close the delivery gap", l.Name),
				fmt.Sprintf("Delivered %.0f of %.0f planned impressions (%.0f%%)", l.Delivered, l.Planned, l.DeliveryPct()),
			))
		}
		if l.Delivered > 0 && l.ViewabilityPct() < lowViewabilityPct {
			issues = append(issues, fmt.Sprintf("%s viewability is %.0f%%", l.Name, l.ViewabilityPct()))
			recs = append(recs, heuristicRec("medium",
				fmt.Sprintf("Restrict '%s' to placements with stronger viewability scores", l.Name),
				fmt.Sprintf("Only %.0f%% of delivered impressions were viewable", l.ViewabilityPct()),
			))
		}
	}

	return issues, recs
}

func deliveryFromRow(row warehouse.Row) deliveryLine {
	return deliveryLine{
		Name:      rowString(row, "insertion_order"),
		Planned:   rowFloat(row, "planned_impressions"),
		Delivered: rowFloat(row, "delivered_impressions"),
		Viewable:  rowFloat(row, "viewable_impressions"),
		Spend:     rowFloat(row, "total_spend"),
	}
}

func buildDeliveryDigest(query string, lines []deliveryLine, issues []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User question: %s\n\n", query)
	fmt.Fprintf(&sb, "Delivery health (%d insertion orders):\n", len(lines))
	for _, l := range lines {
		fmt.Fprintf(&sb, "- %s: delivered %.0f of %.0f planned (%.0f%%), viewability %.0f%%, spend %s\n",
			l.Name, l.Delivered, l.Planned, l.DeliveryPct(), l.ViewabilityPct(), gbp(l.Spend))
	}
	if len(issues) > 0 {
		sb.WriteString("\nDetected issues:\n")
		for _, issue := range issues {
			sb.WriteString("- " + issue + "\n")
		}
	}
	return sb.String()
}
