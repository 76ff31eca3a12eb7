package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedRecReply = `RECOMMENDATION 1:
Priority: high
Action: Reduce bid multipliers on prospecting line items by 20%
Reason: They are the main driver of overspend
Expected Impact: Spend returns to pace within 3 days

RECOMMENDATION 2:
Priority: medium
Action: Rotate in fresh creative for the 300x250 format
Reason: Creative fatigue is depressing CTR
Expected Impact: CTR recovery of 10-15%

CONFIDENCE: 0.85
ACTION_PLAN: Address overspend first, then refresh creatives.`

func TestGenerateRecommendationsParsesBlocks(t *testing.T) {
	engine := &stubEngine{reply: wellFormedRecReply}
	a := newTestActivities(t, engine)

	set, err := a.GenerateRecommendations(context.Background(), GenerateRecommendationsInput{
		Query:     "why is budget overspending",
		Diagnosis: Diagnosis{Severity: SeverityHigh, RootCauses: []string{"aggressive bids"}},
	})
	require.NoError(t, err)
	require.Len(t, set.Recommendations, 2)
	assert.Equal(t, PriorityHigh, set.Recommendations[0].Priority)
	assert.Equal(t, "Reduce bid multipliers on prospecting line items by 20%", set.Recommendations[0].Action)
	assert.Equal(t, "Spend returns to pace within 3 days", set.Recommendations[0].ExpectedImpact)
	assert.Equal(t, 0.85, set.Confidence)
	assert.Equal(t, "Address overspend first, then refresh creatives.", set.ActionPlan)
	assert.False(t, set.MetadataFallback)
}

func TestGenerateRecommendationsDropsIncompleteBlocks(t *testing.T) {
	engine := &stubEngine{reply: `RECOMMENDATION 1:
Priority: high
Action: Reduce bids on prospecting line items

RECOMMENDATION 2:
Priority: low
Action: Refresh the creative rotation for fatigued formats
Reason: CTR is declining on stale assets

CONFIDENCE: 0.7`}
	a := newTestActivities(t, engine)

	set, err := a.GenerateRecommendations(context.Background(), GenerateRecommendationsInput{Query: "q"})
	require.NoError(t, err)
	// Block 1 has no Reason and is discarded.
	require.Len(t, set.Recommendations, 1)
	assert.Equal(t, "Refresh the creative rotation for fatigued formats", set.Recommendations[0].Action)
}

func TestGenerateRecommendationsDefaultsConfidence(t *testing.T) {
	engine := &stubEngine{reply: `RECOMMENDATION 1:
Priority: medium
Action: Shift budget to top performing line items this week
Reason: Concentrates spend where ROAS is strongest

CONFIDENCE: not-a-number`}
	a := newTestActivities(t, engine)

	set, err := a.GenerateRecommendations(context.Background(), GenerateRecommendationsInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.8, set.Confidence)
	assert.Equal(t, "Follow the recommendations in priority order", set.ActionPlan)
}

func TestGenerateRecommendationsMetadataFallback(t *testing.T) {
	engine := &stubEngine{err: errors.New("provider unavailable")}
	a := newTestActivities(t, engine)

	outcomes := []SpecialistOutcome{
		{
			Agent: "budget_risk",
			Metadata: map[string]interface{}{
				"recommendations": []interface{}{
					map[string]interface{}{"priority": "high", "action": "Cap daily spend at £500", "reason": "Overspend"},
					map[string]interface{}{"action": "Review pacing weekly"},
					map[string]interface{}{"action": "A third one that exceeds the per-specialist cap"},
				},
			},
		},
		{
			Agent: "performance_diagnosis",
			Metadata: map[string]interface{}{
				"recommendations": []interface{}{
					map[string]interface{}{"priority": "medium", "action": "Pause bottom-quartile line items", "reason": "Low ROAS"},
				},
			},
		},
	}

	set, err := a.GenerateRecommendations(context.Background(), GenerateRecommendationsInput{
		Query:    "q",
		Outcomes: outcomes,
	})
	require.NoError(t, err)
	assert.True(t, set.MetadataFallback)
	assert.Equal(t, 0.6, set.Confidence)
	// Two from budget_risk (per-specialist cap), one from performance.
	require.Len(t, set.Recommendations, 3)
	assert.Equal(t, "Cap daily spend at £500", set.Recommendations[0].Action)
	assert.Equal(t, PriorityMedium, set.Recommendations[1].Priority) // defaulted
	assert.Equal(t, "Pause bottom-quartile line items", set.Recommendations[2].Action)
}

func TestRecommendationPromptLimitsContext(t *testing.T) {
	engine := &stubEngine{reply: wellFormedRecReply}
	a := newTestActivities(t, engine)

	outcomes := []SpecialistOutcome{
		{Agent: "a1", Narrative: "first"},
		{Agent: "a2", Narrative: "second"},
		{Agent: "a3", Narrative: "third"},
	}
	_, err := a.GenerateRecommendations(context.Background(), GenerateRecommendationsInput{
		Query:     "q",
		Diagnosis: Diagnosis{Severity: SeverityMedium, RootCauses: []string{"c1", "c2", "c3", "c4", "c5", "c6"}},
		Outcomes:  outcomes,
	})
	require.NoError(t, err)
	assert.NotContains(t, engine.lastRequest.User, "a3:")
	assert.NotContains(t, engine.lastRequest.User, "c6")
}

func TestExecuteSpecialistSuccessAndFailure(t *testing.T) {
	a := newTestActivities(t, &stubEngine{})

	outcome, err := a.ExecuteSpecialist(context.Background(), ExecuteSpecialistInput{
		Agent: "budget_risk",
		Query: "how is budget pacing",
	})
	require.NoError(t, err)
	assert.Equal(t, "budget_risk", outcome.Agent)
	assert.Equal(t, "ok", outcome.Narrative)

	_, err = a.ExecuteSpecialist(context.Background(), ExecuteSpecialistInput{
		Agent: "nonexistent",
		Query: "q",
	})
	assert.Error(t, err)
}
