package specialists

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

func TestSafeDivZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, safeDiv(10, 0))
	assert.Equal(t, 2.5, safeDiv(5, 2))
	assert.Equal(t, 0.0, pct(3, 0))
	assert.Equal(t, 50.0, pct(1, 2))
}

func TestRowFloatToleratesDriverTypes(t *testing.T) {
	row := warehouse.Row{
		"a": float64(1.5),
		"b": int64(7),
		"c": "12.25",
		"d": nil,
		"e": "not a number",
	}
	assert.Equal(t, 1.5, rowFloat(row, "a"))
	assert.Equal(t, 7.0, rowFloat(row, "b"))
	assert.Equal(t, 12.25, rowFloat(row, "c"))
	assert.Equal(t, 0.0, rowFloat(row, "d"))
	assert.Equal(t, 0.0, rowFloat(row, "e"))
	assert.Equal(t, 0.0, rowFloat(row, "missing"))
}

func TestEntityMetricsDerivation(t *testing.T) {
	e := entityMetrics{
		Name:        "Quiz for Jan",
		Spend:       200,
		Impressions: 100000,
		Clicks:      500,
		Conversions: 25,
		Revenue:     600,
	}
	assert.InDelta(t, 0.5, e.CTR(), 1e-9)
	assert.InDelta(t, 5.0, e.CVR(), 1e-9)
	assert.InDelta(t, 0.4, e.CPC(), 1e-9)
	assert.InDelta(t, 8.0, e.CPA(), 1e-9)
	assert.InDelta(t, 2.0, e.CPM(), 1e-9)
	assert.InDelta(t, 3.0, e.ROAS(), 1e-9)
}

func TestZeroActivityEntityHasZeroMetrics(t *testing.T) {
	var e entityMetrics
	assert.Equal(t, 0.0, e.CTR())
	assert.Equal(t, 0.0, e.CPA())
	assert.Equal(t, 0.0, e.ROAS())
}

func TestTopBottomByCTRIgnoresClickless(t *testing.T) {
	entities := []entityMetrics{
		{Name: "silent", Impressions: 5000},
		{Name: "strong", Impressions: 1000, Clicks: 20},
		{Name: "weak", Impressions: 10000, Clicks: 10},
	}
	top, bottom := topBottomByCTR(entities)
	assert.Equal(t, "strong", top.Name)
	assert.Equal(t, "weak", bottom.Name)

	top, bottom = topBottomByCTR([]entityMetrics{{Name: "silent", Impressions: 100}})
	assert.Nil(t, top)
	assert.Nil(t, bottom)
}

func TestBuildDigestIncludesTotalsAndIssues(t *testing.T) {
	entities := []entityMetrics{
		{Name: "io-a", Spend: 100, Impressions: 10000, Clicks: 100},
		{Name: "io-b", Spend: 50, Impressions: 5000, Clicks: 25},
	}
	digest := buildDigest("how are things", "Insertion order performance", entities, []string{"io-b CTR is low"})

	assert.Contains(t, digest, "User question: how are things")
	assert.Contains(t, digest, "io-a: spend £100.00")
	assert.Contains(t, digest, "Totals: spend £150.00")
	assert.Contains(t, digest, "- io-b CTR is low")
}
