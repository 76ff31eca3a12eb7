package workflows

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/orchestrator/internal/activities"
)

func rec(priority, action, reason string) activities.Recommendation {
	return activities.Recommendation{Priority: priority, Action: action, Reason: reason}
}

func TestMissingActionIsErrorNeverValidated(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		{Priority: "high", Reason: "orphaned reason"},
		rec("medium", "Shift budget to top performing line items", "ROAS concentration"),
	}, activities.Diagnosis{Severity: activities.SeverityMedium})

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Missing action")
	require.Len(t, result.Validated, 1)
	assert.False(t, result.Valid) // errors present
}

func TestMissingPriorityDefaultsToMediumWithWarning(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		{Action: "Shift budget to top performing line items", Reason: "r"},
	}, activities.Diagnosis{Severity: activities.SeverityMedium})

	require.Len(t, result.Validated, 1)
	assert.Equal(t, activities.PriorityMedium, result.Validated[0].Priority)
	assert.True(t, result.Valid)
	assert.True(t, hasWarningContaining(result.Warnings, "Missing priority"))
}

func TestMissingReasonWarnsButValidates(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		{Priority: "low", Action: "Shift budget to top performing line items"},
	}, activities.Diagnosis{Severity: activities.SeverityMedium})

	require.Len(t, result.Validated, 1)
	assert.Empty(t, result.Errors)
	assert.True(t, hasWarningContaining(result.Warnings, "Missing reason"))
}

func TestConflictDetection(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		rec("high", "Increase budget for Segment A", "underspend"),
		rec("high", "Decrease budget for Segment A", "overspend"),
	}, activities.Diagnosis{Severity: activities.SeverityHigh})

	assert.True(t, hasWarningContaining(result.Warnings, "may conflict"))
}

func TestNoConflictWithoutSharedSubject(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		rec("high", "Increase bids on prospecting tactics immediately", "underdelivery"),
		rec("high", "Decrease creative rotation frequency weekly", "fatigue"),
	}, activities.Diagnosis{Severity: activities.SeverityHigh})

	assert.False(t, hasWarningContaining(result.Warnings, "may conflict"))
}

func TestPauseStartConflictClass(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		rec("high", "Pause the retargeting line items for Quiz", "overexposure"),
		rec("high", "Start the retargeting line items for Quiz", "coverage"),
	}, activities.Diagnosis{Severity: activities.SeverityHigh})

	assert.True(t, hasWarningContaining(result.Warnings, "may conflict"))
}

func TestVaguenessWarnings(t *testing.T) {
	result := validateRecommendations([]activities.Recommendation{
		rec("medium", "Fix pacing", "too short"),
		rec("medium", "Optimize the campaign budget allocation across line items", "vague verb"),
		rec("medium", "Optimize with specific bid caps per line item tactic", "has specific"),
	}, activities.Diagnosis{Severity: activities.SeverityMedium})

	assert.True(t, hasWarningContaining(result.Warnings, "too vague"))
	assert.True(t, hasWarningContaining(result.Warnings, "more specific"))
	// The "specific" qualifier suppresses the vague-verb warning for rec 3.
	count := 0
	for _, w := range result.Warnings {
		if strings.Contains(w, "more specific") {
			count++
		}
	}
	assert.Equal(t, 1, count)
	// All three are retained.
	assert.Len(t, result.Validated, 3)
}

func TestSeverityAlignmentWarnings(t *testing.T) {
	// High severity, no high-priority recommendations.
	result := validateRecommendations([]activities.Recommendation{
		rec("medium", "Shift budget to top performing line items", "r"),
	}, activities.Diagnosis{Severity: activities.SeverityCritical})
	assert.True(t, hasWarningContaining(result.Warnings, "no high-priority"))

	// Low severity, too many high-priority recommendations.
	result = validateRecommendations([]activities.Recommendation{
		rec("high", "Reduce bids on prospecting line items now", "r"),
		rec("high", "Pause bottom quartile creatives this week", "r"),
		rec("high", "Shift budget to top performing line items", "r"),
	}, activities.Diagnosis{Severity: activities.SeverityLow})
	assert.True(t, hasWarningContaining(result.Warnings, "over-reacting"))
}

func TestCapAtSevenRecommendations(t *testing.T) {
	var recs []activities.Recommendation
	for i := 0; i < 8; i++ {
		recs = append(recs, rec("medium", fmt.Sprintf("Shift budget tranche %d to top line items", i), "r"))
	}
	result := validateRecommendations(recs, activities.Diagnosis{Severity: activities.SeverityMedium})

	assert.Len(t, result.Validated, maxValidatedRecommendations)
	assert.True(t, hasWarningContaining(result.Warnings, "limiting to top 7"))
	assert.True(t, result.Valid)
}

func TestEmptyInputIsInvalid(t *testing.T) {
	result := validateRecommendations(nil, activities.Diagnosis{Severity: activities.SeverityMedium})
	assert.False(t, result.Valid)
	assert.Empty(t, result.Validated)
}

func hasWarningContaining(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
