package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/orchestrator/internal/activities"
)

func TestNeverExitsOnHighSeverity(t *testing.T) {
	for _, severity := range []string{activities.SeverityHigh, activities.SeverityCritical} {
		decision := shouldExitEarly(activities.Diagnosis{Severity: severity}, nil, "how is my campaign")
		assert.False(t, decision.Exit, "severity %s must not exit early", severity)
	}
}

func TestExitsWhenNothingActionable(t *testing.T) {
	outcomes := []activities.SpecialistOutcome{
		{Agent: "performance_diagnosis", Narrative: "All good"},
	}
	decision := shouldExitEarly(activities.Diagnosis{Severity: activities.SeverityLow}, outcomes, "How is campaign Quiz performing?")
	require.True(t, decision.Exit)
	assert.Equal(t, "No actionable issues found", decision.Reason)
	assert.Contains(t, decision.FinalResponse, "**Performance Diagnosis**: All metrics within acceptable ranges.")
	assert.Contains(t, decision.FinalResponse, "no significant issues")
}

func TestExitsOnInformationalQueryWithFewIssues(t *testing.T) {
	diagnosis := activities.Diagnosis{
		Severity: activities.SeverityMedium,
		Issues:   []string{"minor pacing drift", "slight CTR dip"},
	}
	decision := shouldExitEarly(diagnosis, nil, "show me the budget status")
	require.True(t, decision.Exit)
	// Empty FinalResponse means the assembler falls back to the summary.
	assert.Empty(t, decision.FinalResponse)
}

func TestContinuesOnInformationalQueryWithManyIssues(t *testing.T) {
	diagnosis := activities.Diagnosis{
		Severity: activities.SeverityMedium,
		Issues:   []string{"a", "b", "c"},
	}
	decision := shouldExitEarly(diagnosis, nil, "show me the budget status")
	assert.False(t, decision.Exit)
}

func TestContinuesOnActionQueryWithIssues(t *testing.T) {
	diagnosis := activities.Diagnosis{
		Severity:   activities.SeverityMedium,
		Issues:     []string{"overspend"},
		RootCauses: []string{"aggressive bids"},
	}
	decision := shouldExitEarly(diagnosis, nil, "why is budget overspending")
	assert.False(t, decision.Exit)
	assert.Equal(t, "Issues found, recommendations needed", decision.Reason)
}

func TestBypassDiagnosisSingleInformational(t *testing.T) {
	outcomes := []activities.SpecialistOutcome{
		{Agent: "performance_diagnosis", Narrative: "Quiz is pacing well."},
	}
	diagnosis, skipped := bypassDiagnosis("How is campaign Quiz performing?", []string{"performance_diagnosis"}, outcomes)
	require.True(t, skipped)
	assert.True(t, diagnosis.Skipped)
	assert.Equal(t, activities.SeverityLow, diagnosis.Severity)
	assert.Equal(t, "Quiz is pacing well.", diagnosis.Summary)
	assert.Empty(t, diagnosis.RootCauses)
}

func TestBypassDiagnosisFollowUp(t *testing.T) {
	diagnosis, skipped := bypassDiagnosis("yes i do", []string{"budget_risk"}, nil)
	require.True(t, skipped)
	assert.True(t, diagnosis.Skipped)
	assert.Equal(t, "Query processed successfully", diagnosis.Summary)
}

func TestNoBypassForMultipleSpecialists(t *testing.T) {
	_, skipped := bypassDiagnosis("How is campaign Quiz performing?", []string{"performance_diagnosis", "budget_risk"}, nil)
	assert.False(t, skipped)
}

func TestNoBypassForActionQuery(t *testing.T) {
	_, skipped := bypassDiagnosis("why is budget overspending", []string{"budget_risk"}, nil)
	assert.False(t, skipped)
}
