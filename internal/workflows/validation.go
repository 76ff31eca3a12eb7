package workflows

import (
	"fmt"
	"strings"

	"github.com/adpulse-labs/orchestrator/internal/activities"
)

const (
	maxValidatedRecommendations = 7
	vagueActionWordCount        = 5
	conflictSharedWordThreshold = 2
	maxHighPriorityForLowSev    = 2
)

var vagueVerbs = []string{"improve", "optimize", "enhance", "review", "consider"}

// conflictClasses pairs opposing action vocabularies. Two actions using
// words from opposite sides of a pair, about the same subject, are
// flagged as conflicting.
var conflictClasses = [][2][]string{
	{{"increase", "scale", "raise"}, {"decrease", "reduce", "lower"}},
	{{"pause", "stop"}, {"start", "launch", "enable"}},
	{{"expand", "broaden"}, {"narrow", "focus", "limit"}},
}

// validateRecommendations checks the action list for missing fields,
// conflicts, vagueness, and severity misalignment. Pure function;
// conflicts and vagueness warn but never reject.
func validateRecommendations(recommendations []activities.Recommendation, diagnosis activities.Diagnosis) ValidationResult {
	var validated []activities.Recommendation
	var warnings []string
	var errors []string

	// Rule 1: required fields. Missing action is an error; missing
	// priority or reason only warns.
	for i, rec := range recommendations {
		if rec.Action == "" {
			errors = append(errors, fmt.Sprintf("Recommendation %d: Missing action", i+1))
			continue
		}
		if rec.Priority == "" {
			warnings = append(warnings, fmt.Sprintf("Recommendation %d: Missing priority, defaulting to medium", i+1))
			rec.Priority = activities.PriorityMedium
		}
		if rec.Reason == "" {
			warnings = append(warnings, fmt.Sprintf("Recommendation %d: Missing reason", i+1))
		}
		validated = append(validated, rec)
	}

	// Rule 2: pairwise conflict detection.
	for i := 0; i < len(validated); i++ {
		for j := i + 1; j < len(validated); j++ {
			a1 := strings.ToLower(validated[i].Action)
			a2 := strings.ToLower(validated[j].Action)
			if areConflicting(a1, a2) {
				warnings = append(warnings, fmt.Sprintf(
					"Recommendations %d and %d may conflict: '%s...' vs '%s...'",
					i+1, j+1, truncateAction(validated[i].Action), truncateAction(validated[j].Action),
				))
			}
		}
	}

	// Rule 3: vagueness heuristics.
	for i, rec := range validated {
		action := strings.ToLower(rec.Action)
		if len(strings.Fields(action)) < vagueActionWordCount {
			warnings = append(warnings, fmt.Sprintf("Recommendation %d: Action may be too vague", i+1))
		}
		for _, verb := range vagueVerbs {
			if strings.Contains(action, verb) && !strings.Contains(action, "specific") {
				warnings = append(warnings, fmt.Sprintf("Recommendation %d: Consider making action more specific", i+1))
				break
			}
		}
	}

	// Rule 4: severity/priority alignment.
	highPriority := 0
	for _, rec := range validated {
		if rec.Priority == activities.PriorityHigh {
			highPriority++
		}
	}
	switch diagnosis.Severity {
	case activities.SeverityHigh, activities.SeverityCritical:
		if highPriority == 0 {
			warnings = append(warnings, "Severity is high but no high-priority recommendations - consider prioritizing")
		}
	case activities.SeverityLow, activities.SeverityMedium:
		if highPriority > maxHighPriorityForLowSev {
			warnings = append(warnings, "Severity is low/medium but many high-priority recommendations - may be over-reacting")
		}
	}

	// Rule 5: cap the list.
	if len(validated) > maxValidatedRecommendations {
		warnings = append(warnings, fmt.Sprintf("Too many recommendations (%d), limiting to top %d", len(validated), maxValidatedRecommendations))
		validated = validated[:maxValidatedRecommendations]
	}

	return ValidationResult{
		Valid:     len(errors) == 0 && len(validated) > 0,
		Validated: validated,
		Warnings:  warnings,
		Errors:    errors,
	}
}

// areConflicting reports whether two lowercased actions oppose each
// other about the same subject (share more than the threshold number of
// words).
func areConflicting(action1, action2 string) bool {
	for _, pair := range conflictClasses {
		positive1 := containsAny(action1, pair[0])
		negative1 := containsAny(action1, pair[1])
		positive2 := containsAny(action2, pair[0])
		negative2 := containsAny(action2, pair[1])

		if (positive1 && negative2) || (negative1 && positive2) {
			if sharedWordCount(action1, action2) > conflictSharedWordThreshold {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func sharedWordCount(a, b string) int {
	wordsA := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		wordsA[w] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := wordsA[w]; ok {
			count++
		}
	}
	return count
}

func truncateAction(action string) string {
	if len(action) <= 50 {
		return action
	}
	return action[:50]
}
