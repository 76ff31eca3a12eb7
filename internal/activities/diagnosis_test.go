package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnoseFindingsParsesReply(t *testing.T) {
	engine := &stubEngine{reply: `SEVERITY: high
SUMMARY: Budget is depleting faster than planned while conversions decline.
ROOT_CAUSES:
- Aggressive bid multipliers on prospecting line items
- Creative fatigue on top-spending formats
CORRELATIONS:
- Budget overspend coincides with CTR drop
ISSUES:
- Daily spend 40% above pace
- CTR down 25% week over week`}
	a := newTestActivities(t, engine)

	diagnosis, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{
		Query: "why is budget overspending",
		Outcomes: []SpecialistOutcome{
			{Agent: "budget_risk", Narrative: "Overspending detected", Confidence: 0.9},
			{Agent: "performance_diagnosis", Narrative: "CTR declining", Confidence: 0.85},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, diagnosis.Severity)
	assert.Contains(t, diagnosis.Summary, "depleting faster")
	assert.Len(t, diagnosis.RootCauses, 2)
	assert.Len(t, diagnosis.Correlations, 1)
	assert.Len(t, diagnosis.Issues, 2)
	assert.False(t, diagnosis.Skipped)
}

func TestDiagnoseFindingsDegradesOnEngineFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("provider unavailable")}
	a := newTestActivities(t, engine)

	diagnosis, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{
		Query:    "why is budget overspending",
		Outcomes: []SpecialistOutcome{{Agent: "budget_risk", Narrative: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, diagnosis.Severity)
	assert.Empty(t, diagnosis.RootCauses)
}

func TestDiagnoseFindingsDegradesOnMalformedReply(t *testing.T) {
	engine := &stubEngine{reply: "I could not analyze these findings."}
	a := newTestActivities(t, engine)

	diagnosis, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, diagnosis.Severity)
	assert.Empty(t, diagnosis.RootCauses)
	assert.Equal(t, "I could not analyze these findings.", diagnosis.Summary)
}

func TestDiagnoseFindingsRejectsUnknownSeverity(t *testing.T) {
	engine := &stubEngine{reply: `SEVERITY: catastrophic
SUMMARY: Something is wrong.`}
	a := newTestActivities(t, engine)

	diagnosis, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, diagnosis.Severity)
	assert.Equal(t, "Something is wrong.", diagnosis.Summary)
}

func TestDiagnosisPromptTruncatesNarratives(t *testing.T) {
	long := make([]byte, narrativeTruncateAt+100)
	for i := range long {
		long[i] = 'n'
	}
	engine := &stubEngine{reply: "SEVERITY: low\nSUMMARY: fine"}
	a := newTestActivities(t, engine)

	_, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{
		Query:    "q",
		Outcomes: []SpecialistOutcome{{Agent: "budget_risk", Narrative: string(long)}},
	})
	require.NoError(t, err)
	assert.NotContains(t, engine.lastRequest.User, string(long))
	assert.Contains(t, engine.lastRequest.User, string(long[:narrativeTruncateAt])+"...")
}

func TestDiagnosisMultiLineSummary(t *testing.T) {
	engine := &stubEngine{reply: `SEVERITY: medium
SUMMARY: First sentence.
Second sentence continues the summary.
ROOT_CAUSES:
- cause one`}
	a := newTestActivities(t, engine)

	diagnosis, err := a.DiagnoseFindings(context.Background(), DiagnoseFindingsInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "First sentence. Second sentence continues the summary.", diagnosis.Summary)
	assert.Equal(t, []string{"cause one"}, diagnosis.RootCauses)
}
