package activities

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
	"github.com/adpulse-labs/orchestrator/internal/reasoning"
)

const (
	maxRootCausesInPrompt    = 5
	maxOutcomesInPrompt      = 2
	outcomeTruncateAt        = 300
	maxFallbackPerSpecialist = 2
	maxFallbackTotal         = 5
	fallbackRecConfidence    = 0.6
)

// GenerateRecommendations turns diagnosis and specialist findings into a
// prioritized action list. On engine failure it lifts recommendations
// from specialist metadata instead of failing the workflow.
func (a *Activities) GenerateRecommendations(ctx context.Context, in GenerateRecommendationsInput) (RecommendationSet, error) {
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("recommendation").Observe(float64(time.Since(start).Milliseconds()))
	}()

	prompt := buildRecommendationPrompt(in)

	reply, err := a.engine.Complete(ctx, reasoning.Request{
		System:      "You are a recommendation expert for advertising campaign optimization.",
		User:        prompt,
		Temperature: 0.3,
	})
	if err != nil {
		a.logger.Error("Recommendation reasoning failed, using specialist metadata",
			zap.String("query", truncate(in.Query, 50)),
			zap.Error(err),
		)
		return RecommendationSet{
			Recommendations:  liftMetadataRecommendations(in.Outcomes),
			Confidence:       fallbackRecConfidence,
			ActionPlan:       "Review individual specialist recommendations",
			MetadataFallback: true,
		}, nil
	}

	set := parseRecommendationReply(reply)
	a.logger.Info("Recommendations generated",
		zap.Int("count", len(set.Recommendations)),
		zap.Float64("confidence", set.Confidence),
	)
	return set, nil
}

func buildRecommendationPrompt(in GenerateRecommendationsInput) string {
	rootCauses := in.Diagnosis.RootCauses
	if len(rootCauses) > maxRootCausesInPrompt {
		rootCauses = rootCauses[:maxRootCausesInPrompt]
	}
	causes := "None identified"
	if len(rootCauses) > 0 {
		causes = strings.Join(rootCauses, ", ")
	}

	var findings string
	outcomes := in.Outcomes
	if len(outcomes) > maxOutcomesInPrompt {
		outcomes = outcomes[:maxOutcomesInPrompt]
	}
	if len(outcomes) > 0 {
		var summaries []string
		for _, outcome := range outcomes {
			preview := outcome.Narrative
			if len(preview) > outcomeTruncateAt {
				preview = preview[:outcomeTruncateAt] + "..."
			}
			summaries = append(summaries, fmt.Sprintf("- %s: %s", outcome.Agent, preview))
		}
		findings = "\n\nAgent Findings:\n" + strings.Join(summaries, "\n")
	}

	return fmt.Sprintf(`You are a recommendation agent generating actionable recommendations for advertising campaign optimization.

User Query: "%s"

Diagnosis:
- Severity: %s
- Root Causes: %s%s

Task: Generate 3-4 prioritized, actionable recommendations that address root causes.

Format:
RECOMMENDATION 1:
Priority: [high/medium/low]
Action: [Specific action]
Reason: [Why this helps]
Expected Impact: [What improves]

(Continue for 3-4 recommendations)

CONFIDENCE: [0.0-1.0]
ACTION_PLAN: [2-3 sentence summary]

Your recommendations:`, in.Query, in.Diagnosis.Severity, causes, findings)
}

// parseRecommendationReply parses the block-oriented reply format. A
// block missing action, reason, or priority is discarded.
func parseRecommendationReply(reply string) RecommendationSet {
	set := RecommendationSet{Confidence: 0.8}

	var current *Recommendation
	flush := func() {
		if current != nil && current.Action != "" && current.Reason != "" && current.Priority != "" {
			set.Recommendations = append(set.Recommendations, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "RECOMMENDATION"):
			flush()
			current = &Recommendation{}

		case strings.HasPrefix(line, "Priority:") && current != nil:
			priority := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Priority:")))
			switch priority {
			case PriorityHigh, PriorityMedium, PriorityLow:
				current.Priority = priority
			default:
				current.Priority = PriorityMedium
			}

		case strings.HasPrefix(line, "Action:") && current != nil:
			current.Action = strings.TrimSpace(strings.TrimPrefix(line, "Action:"))

		case strings.HasPrefix(line, "Reason:") && current != nil:
			current.Reason = strings.TrimSpace(strings.TrimPrefix(line, "Reason:"))

		case strings.HasPrefix(line, "Expected Impact:") && current != nil:
			current.ExpectedImpact = strings.TrimSpace(strings.TrimPrefix(line, "Expected Impact:"))

		case strings.HasPrefix(line, "CONFIDENCE:"):
			confStr := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if conf, err := strconv.ParseFloat(confStr, 64); err == nil {
				set.Confidence = clamp01(conf)
			}

		case strings.HasPrefix(line, "ACTION_PLAN:"):
			set.ActionPlan = strings.TrimSpace(strings.TrimPrefix(line, "ACTION_PLAN:"))
		}
	}
	flush()

	if set.ActionPlan == "" {
		set.ActionPlan = "Follow the recommendations in priority order"
	}
	return set
}

// liftMetadataRecommendations pulls pre-built recommendations out of
// specialist metadata, at most 2 per specialist and 5 total.
func liftMetadataRecommendations(outcomes []SpecialistOutcome) []Recommendation {
	var recs []Recommendation
	for _, outcome := range outcomes {
		raw, ok := outcome.Metadata["recommendations"]
		if !ok {
			continue
		}
		items, ok := raw.([]interface{})
		if !ok {
			continue
		}
		taken := 0
		for _, item := range items {
			if taken >= maxFallbackPerSpecialist || len(recs) >= maxFallbackTotal {
				break
			}
			fields, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			rec := Recommendation{
				Priority:       stringField(fields, "priority"),
				Action:         stringField(fields, "action"),
				Reason:         stringField(fields, "reason"),
				ExpectedImpact: stringField(fields, "expected_impact"),
			}
			if rec.Action == "" {
				continue
			}
			if rec.Priority == "" {
				rec.Priority = PriorityMedium
			}
			recs = append(recs, rec)
			taken++
		}
		if len(recs) >= maxFallbackTotal {
			break
		}
	}
	return recs
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
