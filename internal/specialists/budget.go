package specialists

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

const budgetSystemPrompt = `You are a budget risk analyst for a programmatic advertising platform.
You receive monthly budget segments with spend-to-date and derived pacing figures (all amounts in GBP).
Answer the user's question from the numbers provided. Cover:
1. Budget status and pacing assessment
2. Risk identification (over/under pacing, depletion risk)
Be precise, data-driven, and format money as £X.XX. Never invent numbers that are not in the data.`

// budgetSQL reads the current monthly budget segments with spend joined
// in. days_elapsed is clamped to the segment window so pacing math works
// mid-segment and after it closes.
const budgetSQL = `
SELECT b.io_name,
       b.budget_amount,
       b.avg_daily_budget,
       b.days_in_segment,
       GREATEST(1, LEAST(CURRENT_DATE, b.segment_end_date) - b.segment_start_date + 1) AS days_elapsed,
       b.segment_status,
       COALESCE(SUM(p.spend_gbp), 0) AS spend_to_date
FROM analytics.budget_segments b
LEFT JOIN analytics.performance_daily p
       ON p.advertiser = b.advertiser
      AND p.insertion_order = b.io_name
      AND p.date BETWEEN b.segment_start_date AND b.segment_end_date
WHERE b.advertiser = $1
  AND ($2 = '' OR b.io_name ILIKE '%' || $2 || '%')
GROUP BY b.io_name, b.budget_amount, b.avg_daily_budget, b.days_in_segment,
         b.segment_start_date, b.segment_end_date, b.segment_status
ORDER BY b.budget_amount DESC`

// Pacing bands: inside the band is healthy, outside is a risk.
const (
	overpacingThreshold  = 115.0
	underpacingThreshold = 85.0
	depletionMultiplier  = 1.10
)

// budgetSegment is one monthly budget with its derived pacing.
type budgetSegment struct {
	IOName         string
	BudgetAmount   float64
	AvgDailyBudget float64
	DaysInSegment  float64
	DaysElapsed    float64
	SpendToDate    float64
	Status         string
}

// PacingPct compares actual spend to the expected spend for the days
// elapsed so far; 100 means exactly on plan.
func (s budgetSegment) PacingPct() float64 {
	expected := s.AvgDailyBudget * s.DaysElapsed
	return pct(s.SpendToDate, expected)
}

// ProjectedSpend extrapolates the current daily run rate to the full
// segment.
func (s budgetSegment) ProjectedSpend() float64 {
	return safeDiv(s.SpendToDate, s.DaysElapsed) * s.DaysInSegment
}

func (s budgetSegment) DepletionRisk() bool {
	return s.ProjectedSpend() > s.BudgetAmount*depletionMultiplier
}

// Budget answers budget pacing and depletion-risk questions.
type Budget struct {
	deps Deps
}

func NewBudget(deps Deps) *Budget {
	return &Budget{deps: deps}
}

func (b *Budget) Name() string { return registry.BudgetRisk }

func (b *Budget) Invoke(ctx context.Context, in registry.Input) (registry.Outcome, error) {
	nameFilter := firstCampaignName(in.Query)
	rows, err := b.deps.Warehouse.Query(ctx, budgetSQL, b.deps.advertiser(), nameFilter)
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("budget query: %w", err)
	}
	if len(rows) == 0 {
		return noDataOutcome("No budget segments found for the requested period or insertion order."), nil
	}

	segments := make([]budgetSegment, 0, len(rows))
	for _, row := range rows {
		segments = append(segments, segmentFromRow(row))
	}

	issues, recs := b.analyze(segments)
	digest := buildBudgetDigest(in.Query, segments, issues)

	narrative, err := b.deps.narrate(ctx, budgetSystemPrompt, digest)
	if err != nil {
		return registry.Outcome{}, err
	}

	b.deps.Logger.Debug("Budget analysis complete",
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

func (b *Budget) analyze(segments []budgetSegment) ([]string, []recommendation) {
	var issues []string
	var recs []recommendation

	for _, s := range segments {
		pacing := s.PacingPct()
		switch {
		case s.DepletionRisk():
			issues = append(issues, fmt.Sprintf("%s is projected to spend %s against a %s budget", s.IOName, gbp(s.ProjectedSpend()), gbp(s.BudgetAmount)))
			recs = append(recs, heuristicRec("high",
				fmt.Sprintf("Reduce daily spend caps on '%s' before the budget depletes", s.IOName),
				fmt.Sprintf("Current run rate projects %s, %.0f%% of the segment budget", gbp(s.ProjectedSpend()), pct(s.ProjectedSpend(), s.BudgetAmount)),
			))
		case pacing > overpacingThreshold:
			issues = append(issues, fmt.Sprintf("%s is overpacing at %.0f%% of plan", s.IOName, pacing))
			recs = append(recs, heuristicRec("medium",
				fmt.Sprintf("Lower the daily budget on '%s' to return to plan", s.IOName),
				fmt.Sprintf("Spend-to-date is %.0f%% of the expected %s", pacing, gbp(s.AvgDailyBudget*s.DaysElapsed)),
			))
		case pacing > 0 && pacing < underpacingThreshold:
			issues = append(issues, fmt.Sprintf("%s is underpacing at %.0f%% of plan", s.IOName, pacing))
			recs = append(recs, heuristicRec("medium",
				fmt.Sprintf("Raise bids or widen targeting on '%s' to catch up on delivery", s.IOName),
				fmt.Sprintf("Spend-to-date is only %.0f%% of plan with %.0f days elapsed", pacing, s.DaysElapsed),
			))
		}
	}

	return issues, recs
}

func segmentFromRow(row warehouse.Row) budgetSegment {
	return budgetSegment{
		IOName:         rowString(row, "io_name"),
		BudgetAmount:   rowFloat(row, "budget_amount"),
		AvgDailyBudget: rowFloat(row, "avg_daily_budget"),
		DaysInSegment:  rowFloat(row, "days_in_segment"),
		DaysElapsed:    rowFloat(row, "days_elapsed"),
		SpendToDate:    rowFloat(row, "spend_to_date"),
		Status:         rowString(row, "segment_status"),
	}
}

func buildBudgetDigest(query string, segments []budgetSegment, issues []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User question: %s\n\n", query)
	fmt.Fprintf(&sb, "Monthly budget segments (%d rows):\n", len(segments))
	for _, s := range segments {
		fmt.Fprintf(&sb, "- %s: budget %s, spend-to-date %s, pacing %.0f%%, projected %s, day %.0f of %.0f, status %s\n",
			s.IOName, gbp(s.BudgetAmount), gbp(s.SpendToDate), s.PacingPct(), gbp(s.ProjectedSpend()), s.DaysElapsed, s.DaysInSegment, s.Status)
	}
	if len(issues) > 0 {
		sb.WriteString("\nDetected issues:\n")
		for _, issue := range issues {
			sb.WriteString("- " + issue + "\n")
		}
	}
	return sb.String()
}
