package specialists

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adpulse-labs/orchestrator/internal/reasoning"
	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/warehouse"
)

type fakeWarehouse struct {
	rows     []warehouse.Row
	err      error
	lastSQL  string
	lastArgs []interface{}
}

func (f *fakeWarehouse) Query(_ context.Context, query string, args ...interface{}) ([]warehouse.Row, error) {
	f.lastSQL = query
	f.lastArgs = args
	return f.rows, f.err
}

type fakeEngine struct {
	reply   string
	err     error
	lastReq reasoning.Request
}

func (f *fakeEngine) Complete(_ context.Context, req reasoning.Request) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

func testDeps(t *testing.T, wh *fakeWarehouse, engine *fakeEngine) Deps {
	t.Helper()
	return Deps{
		Warehouse: wh,
		Engine:    engine,
		Logger:    zaptest.NewLogger(t),
	}
}

func performanceRows() []warehouse.Row {
	return []warehouse.Row{
		{
			"insertion_order":   "Quiz for Jan",
			"total_spend":       float64(800),
			"total_impressions": float64(200000),
			"total_clicks":      float64(1600),
			"total_conversions": float64(80),
			"total_revenue":     float64(2400),
		},
		{
			"insertion_order":   "Quiz for Feb",
			"total_spend":       float64(500),
			"total_impressions": float64(150000),
			"total_clicks":      float64(150),
			"total_conversions": float64(0),
			"total_revenue":     float64(0),
		},
	}
}

func TestPerformanceInvokeNarratesDerivedMetrics(t *testing.T) {
	wh := &fakeWarehouse{rows: performanceRows()}
	engine := &fakeEngine{reply: "Quiz for Jan leads on every metric."}
	p := NewPerformance(testDeps(t, wh, engine))

	out, err := p.Invoke(context.Background(), registry.Input{Query: "How is my account performing?"})
	require.NoError(t, err)

	assert.Equal(t, "Quiz for Jan leads on every metric.", out.Narrative)
	assert.Equal(t, analysisConfidence, out.Confidence)
	assert.Equal(t, 2, out.Metadata["rows_analyzed"])

	// The engine sees derived metrics, not raw rows.
	assert.Contains(t, engine.lastReq.User, "Quiz for Jan: spend £800.00")
	assert.Contains(t, engine.lastReq.User, "CTR 0.80%")
	assert.Contains(t, engine.lastReq.User, "ROAS 3.00")

	// Feb has 150 clicks and zero conversions: flagged.
	issues, ok := out.Metadata["issues"].([]string)
	require.True(t, ok)
	assert.Contains(t, issues, "Quiz for Feb has 150 clicks but no conversions")

	recs, ok := out.Metadata["recommendations"].([]recommendation)
	require.True(t, ok)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0]["action"], "Shift budget from 'Quiz for Feb' to 'Quiz for Jan'")
	assert.Equal(t, "high", recs[0]["priority"])
}

func TestPerformanceCampaignNameBecomesFilter(t *testing.T) {
	wh := &fakeWarehouse{rows: performanceRows()}
	engine := &fakeEngine{reply: "ok"}
	p := NewPerformance(testDeps(t, wh, engine))

	_, err := p.Invoke(context.Background(), registry.Input{Query: "How is campaign Quiz performing?"})
	require.NoError(t, err)

	require.Len(t, wh.lastArgs, 2)
	assert.Equal(t, DefaultAdvertiser, wh.lastArgs[0])
	assert.Equal(t, "Quiz", wh.lastArgs[1])
}

func TestPerformanceNoDataOutcome(t *testing.T) {
	wh := &fakeWarehouse{}
	engine := &fakeEngine{reply: "unused"}
	p := NewPerformance(testDeps(t, wh, engine))

	out, err := p.Invoke(context.Background(), registry.Input{Query: "how are things going"})
	require.NoError(t, err)
	assert.Contains(t, out.Narrative, "No performance data found")
	assert.Equal(t, noDataConfidence, out.Confidence)
	assert.Empty(t, engine.lastReq.User, "engine must not be called without data")
}

func TestPerformanceWarehouseErrorSurfaces(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("connection refused")}
	p := NewPerformance(testDeps(t, wh, &fakeEngine{}))

	_, err := p.Invoke(context.Background(), registry.Input{Query: "how are things going"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "performance query")
}

func TestPerformanceEngineErrorSurfaces(t *testing.T) {
	wh := &fakeWarehouse{rows: performanceRows()}
	engine := &fakeEngine{err: errors.New("provider overloaded")}
	p := NewPerformance(testDeps(t, wh, engine))

	_, err := p.Invoke(context.Background(), registry.Input{Query: "how are things going"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narration failed")
}

func TestBudgetPacingClassification(t *testing.T) {
	b := NewBudget(testDeps(t, &fakeWarehouse{}, &fakeEngine{}))

	segments := []budgetSegment{
		{IOName: "on-plan", BudgetAmount: 3000, AvgDailyBudget: 100, DaysInSegment: 30, DaysElapsed: 10, SpendToDate: 1000},
		{IOName: "hot", BudgetAmount: 3000, AvgDailyBudget: 100, DaysInSegment: 30, DaysElapsed: 10, SpendToDate: 1300},
		{IOName: "cold", BudgetAmount: 3000, AvgDailyBudget: 100, DaysInSegment: 30, DaysElapsed: 10, SpendToDate: 500},
	}
	issues, recs := b.analyze(segments)

	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "hot is projected to spend")
	assert.Contains(t, issues[1], "cold is underpacing at 50%")
	require.Len(t, recs, 2)
	assert.Equal(t, "high", recs[0]["priority"])
	assert.Contains(t, recs[0]["action"], "Reduce daily spend caps on 'hot'")
	assert.Contains(t, recs[1]["action"], "Raise bids or widen targeting on 'cold'")
}

func TestBudgetSegmentDerivation(t *testing.T) {
	s := budgetSegment{BudgetAmount: 3000, AvgDailyBudget: 100, DaysInSegment: 30, DaysElapsed: 10, SpendToDate: 1200}
	assert.InDelta(t, 120.0, s.PacingPct(), 1e-9)
	assert.InDelta(t, 3600.0, s.ProjectedSpend(), 1e-9)
	assert.True(t, s.DepletionRisk())

	fresh := budgetSegment{BudgetAmount: 3000, AvgDailyBudget: 100, DaysInSegment: 30}
	assert.Equal(t, 0.0, fresh.PacingPct())
	assert.False(t, fresh.DepletionRisk())
}

func TestDeliveryAnalyzeFlagsGaps(t *testing.T) {
	d := NewDelivery(testDeps(t, &fakeWarehouse{}, &fakeEngine{}))

	lines := []deliveryLine{
		{Name: "healthy", Planned: 100000, Delivered: 98000, Viewable: 70000},
		{Name: "starved", Planned: 100000, Delivered: 60000, Viewable: 45000},
		{Name: "unseen", Planned: 100000, Delivered: 95000, Viewable: 20000},
	}
	issues, recs := d.analyze(lines)

	assert.Contains(t, issues, "starved delivered 60% of planned impressions")
	assert.Contains(t, issues, "unseen viewability is 21%")
	require.Len(t, recs, 2)
	assert.Contains(t, recs[0]["action"], "'starved'")
	assert.Contains(t, recs[1]["action"], "'unseen'")
}

func TestAudienceAnalyzeFlagsWastedSpend(t *testing.T) {
	a := NewAudience(testDeps(t, &fakeWarehouse{}, &fakeEngine{}))

	segments := []entityMetrics{
		{Name: "converters", Spend: 300, Impressions: 50000, Clicks: 400, Conversions: 40, Revenue: 900},
		{Name: "tourists", Spend: 200, Impressions: 60000, Clicks: 150, Conversions: 0},
	}
	issues, recs := a.analyze(segments)

	assert.Contains(t, issues, "Segment tourists spent £200.00 with no conversions")
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0]["action"], "'tourists'")
	assert.Contains(t, recs[len(recs)-1]["action"], "'converters'")
}

func TestCreativeAnalyzeVarietyAndRotation(t *testing.T) {
	c := NewCreative(testDeps(t, &fakeWarehouse{}, &fakeEngine{}))

	creatives := []entityMetrics{
		{Name: "hero", Impressions: 80000, Clicks: 900, Conversions: 45},
		{Name: "filler", Impressions: 50000, Clicks: 100},
	}
	sizes := map[string]string{"hero": "300x250", "filler": "728x90"}
	issues, recs := c.analyze(creatives, sizes)

	assert.Contains(t, issues, "Limited creative variety increases fatigue risk")
	var actions []string
	for _, r := range recs {
		actions = append(actions, r["action"])
	}
	assert.Contains(t, actions, "Develop additional creative variations for rotation")
	assert.Contains(t, actions, "Increase rotation weight for creative 'hero' (300x250)")
	assert.Contains(t, actions, "Pause or refresh creative 'filler'")
}

func TestRegisterAllPopulatesRegistry(t *testing.T) {
	reg := registry.New(zaptest.NewLogger(t))
	deps := testDeps(t, &fakeWarehouse{}, &fakeEngine{})

	require.NoError(t, RegisterAll(reg, deps))
	assert.Equal(t, []string{
		registry.PerformanceDiagnosis,
		registry.AudienceTargeting,
		registry.CreativeInventory,
		registry.BudgetRisk,
		registry.DeliveryOptimization,
	}, reg.Names())

	handler, ok := reg.Handler(registry.BudgetRisk)
	require.True(t, ok)
	assert.Equal(t, registry.BudgetRisk, handler.Name())
}
