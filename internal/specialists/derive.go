package specialists

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

// safeDiv returns num/den, or 0 when den is zero. Warehouse aggregates
// regularly produce zero denominators (no impressions, no spend) and a
// zero metric reads better downstream than an Inf or NaN.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// pct is safeDiv expressed as a percentage.
func pct(num, den float64) float64 {
	return safeDiv(num, den) * 100
}

// rowFloat reads a numeric column from a warehouse row, tolerating the
// types the driver may hand back (float64, int64, numeric-as-string).
func rowFloat(row warehouse.Row, column string) float64 {
	v, ok := row[column]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// rowString reads a text column from a warehouse row.
func rowString(row warehouse.Row, column string) string {
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// gbp formats a money amount the way the narratives present spend and
// revenue.
func gbp(amount float64) string {
	return fmt.Sprintf("£%.2f", amount)
}

// entityMetrics is one aggregated row (an insertion order, audience
// segment, or creative) with its derived metrics.
type entityMetrics struct {
	Name        string
	Spend       float64
	Impressions float64
	Clicks      float64
	Conversions float64
	Revenue     float64
}

func (m entityMetrics) CTR() float64  { return pct(m.Clicks, m.Impressions) }
func (m entityMetrics) CVR() float64  { return pct(m.Conversions, m.Clicks) }
func (m entityMetrics) CPC() float64  { return safeDiv(m.Spend, m.Clicks) }
func (m entityMetrics) CPA() float64  { return safeDiv(m.Spend, m.Conversions) }
func (m entityMetrics) CPM() float64  { return safeDiv(m.Spend, m.Impressions) * 1000 }
func (m entityMetrics) ROAS() float64 { return safeDiv(m.Revenue, m.Spend) }

// digestLine renders one entity as a line in the reasoning prompt.
func (m entityMetrics) digestLine() string {
	return fmt.Sprintf(
		"%s: spend %s, impressions %.0f, clicks %.0f (CTR %.2f%%), conversions %.0f (CVR %.2f%%), revenue %s (ROAS %.2f)",
		m.Name, gbp(m.Spend), m.Impressions, m.Clicks, m.CTR(), m.Conversions, m.CVR(), gbp(m.Revenue), m.ROAS(),
	)
}

// entityFromRow maps one aggregate row to metrics using the shared
// column aliases the specialist queries emit.
func entityFromRow(row warehouse.Row, nameColumn string) entityMetrics {
	return entityMetrics{
		Name:        rowString(row, nameColumn),
		Spend:       rowFloat(row, "total_spend"),
		Impressions: rowFloat(row, "total_impressions"),
		Clicks:      rowFloat(row, "total_clicks"),
		Conversions: rowFloat(row, "total_conversions"),
		Revenue:     rowFloat(row, "total_revenue"),
	}
}

// totals sums a set of entities into one aggregate.
func totals(entities []entityMetrics) entityMetrics {
	var t entityMetrics
	t.Name = "total"
	for _, e := range entities {
		t.Spend += e.Spend
		t.Impressions += e.Impressions
		t.Clicks += e.Clicks
		t.Conversions += e.Conversions
		t.Revenue += e.Revenue
	}
	return t
}

// topBottomByCTR returns the best and worst entity by CTR among those
// with clicks. Entities without clicks carry no signal either way.
func topBottomByCTR(entities []entityMetrics) (top, bottom *entityMetrics) {
	withClicks := make([]entityMetrics, 0, len(entities))
	for _, e := range entities {
		if e.Clicks > 0 {
			withClicks = append(withClicks, e)
		}
	}
	if len(withClicks) == 0 {
		return nil, nil
	}
	sort.SliceStable(withClicks, func(i, j int) bool {
		return withClicks[i].CTR() > withClicks[j].CTR()
	})
	first := withClicks[0]
	last := withClicks[len(withClicks)-1]
	return &first, &last
}

// buildDigest renders the prompt body shared by all specialists: the
// question, the per-entity lines, totals, and any detected issues.
func buildDigest(query string, label string, entities []entityMetrics, issues []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n\n", query)
	fmt.Fprintf(&b, "%s (%d rows):\n", label, len(entities))
	for _, e := range entities {
		b.WriteString("- " + e.digestLine() + "\n")
	}
	t := totals(entities)
	fmt.Fprintf(&b, "\nTotals: spend %s, impressions %.0f, clicks %.0f (CTR %.2f%%), conversions %.0f, revenue %s (ROAS %.2f)\n",
		gbp(t.Spend), t.Impressions, t.Clicks, t.CTR(), t.Conversions, gbp(t.Revenue), t.ROAS())
	if len(issues) > 0 {
		b.WriteString("\nDetected issues:\n")
		for _, issue := range issues {
			b.WriteString("- " + issue + "\n")
		}
	}
	return b.String()
}
