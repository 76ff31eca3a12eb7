package workflows

import (
	"github.com/adpulse-labs/orchestrator/internal/activities"
	"github.com/adpulse-labs/orchestrator/internal/classify"
)

// bypassDiagnosis decides whether the diagnosis phase can be skipped.
// Only single-specialist runs qualify: follow-up turns (affirmations,
// selections) and purely informational questions get the specialist's
// narrative back verbatim instead of a cross-agent synthesis.
//
// The returned diagnosis carries Skipped=true so downstream phases can
// tell "skipped" apart from "ran and found nothing".
func bypassDiagnosis(query string, approved []string, outcomes []activities.SpecialistOutcome) (activities.Diagnosis, bool) {
	if len(approved) != 1 {
		return activities.Diagnosis{}, false
	}
	if !classify.IsFollowUp(query) && !classify.IsInformational(query) {
		return activities.Diagnosis{}, false
	}

	summary := "Query processed successfully"
	for _, outcome := range outcomes {
		if outcome.Agent == approved[0] && outcome.Narrative != "" {
			summary = outcome.Narrative
			break
		}
	}

	return activities.Diagnosis{
		Severity: activities.SeverityLow,
		Summary:  summary,
		Skipped:  true,
	}, true
}
