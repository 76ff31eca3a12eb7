package workflows

import (
	"fmt"
	"strings"

	"github.com/adpulse-labs/orchestrator/internal/activities"
	"github.com/adpulse-labs/orchestrator/internal/classify"
)

const earlyExitMaxIssues = 2

// shouldExitEarly decides whether the run can terminate before the
// recommendation phase. Pure function, evaluated once per run.
func shouldExitEarly(diagnosis activities.Diagnosis, outcomes []activities.SpecialistOutcome, query string) EarlyExitDecision {
	// High severity always demands recommendations.
	if diagnosis.Severity == activities.SeverityHigh || diagnosis.Severity == activities.SeverityCritical {
		return EarlyExitDecision{
			Exit:   false,
			Reason: fmt.Sprintf("Severity is %s, recommendations needed", diagnosis.Severity),
		}
	}

	// Nothing actionable: answer directly.
	if len(diagnosis.Issues) == 0 && len(diagnosis.RootCauses) == 0 {
		return EarlyExitDecision{
			Exit:          true,
			Reason:        "No actionable issues found",
			FinalResponse: buildNoIssuesResponse(outcomes, query),
		}
	}

	// Informational query with few issues: the diagnosis summary is the
	// answer; an empty FinalResponse tells the assembler to use it.
	if classify.IsInformational(query) && len(diagnosis.Issues) <= earlyExitMaxIssues {
		return EarlyExitDecision{
			Exit:   true,
			Reason: "Informational query answered, minimal issues",
		}
	}

	return EarlyExitDecision{
		Exit:   false,
		Reason: "Issues found, recommendations needed",
	}
}

// buildNoIssuesResponse synthesizes a short all-clear answer with one
// status line per specialist.
func buildNoIssuesResponse(outcomes []activities.SpecialistOutcome, query string) string {
	parts := []string{
		fmt.Sprintf("Based on your query: %q\n", query),
		"I've analyzed the data and found no significant issues.",
	}

	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("\n**%s**: All metrics within acceptable ranges.", displayName(outcome.Agent)))
	}

	parts = append(parts, "\nEverything looks good! No immediate action required.")
	return strings.Join(parts, "\n")
}

// displayName turns a specialist identifier into a heading, e.g.
// "budget_risk" -> "Budget Risk".
func displayName(agent string) string {
	words := strings.Split(agent, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
