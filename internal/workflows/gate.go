package workflows

import (
	"fmt"
	"strings"

	"github.com/adpulse-labs/orchestrator/internal/registry"
)

const (
	minQueryWords       = 3
	maxAgents           = 3
	gateBlockConfidence = 0.6
	gateWarnConfidence  = 0.4
)

// validAgentNames is the gate's whitelist. It mirrors the startup
// registry; being a fixed list keeps the gate deterministic for
// workflow replay.
var validAgentNames = []string{
	registry.PerformanceDiagnosis,
	registry.BudgetRisk,
	registry.DeliveryOptimization,
	registry.AudienceTargeting,
	registry.CreativeInventory,
}

// validateGate applies business rules to a routing decision. Pure and
// deterministic: identical inputs always produce identical verdicts.
func validateGate(query string, selectedAgents []string, routingConfidence float64) GateVerdict {
	var warnings []string
	valid := true
	reason := "Validation passed"

	// Rule A: very short queries only block when confidence is also low.
	words := strings.Fields(query)
	if len(words) < minQueryWords {
		warnings = append(warnings, fmt.Sprintf("Query is very short (%d words)", len(words)))
		if routingConfidence < gateBlockConfidence {
			valid = false
			reason = "Query too vague and routing confidence low"
		}
	}

	// Rule B: cap the number of agents, stable order.
	if len(selectedAgents) > maxAgents {
		warnings = append(warnings, fmt.Sprintf("Too many agents selected (%d), limiting to %d", len(selectedAgents), maxAgents))
		selectedAgents = selectedAgents[:maxAgents]
	}

	// Rule C: low confidence is a warning, not a block.
	if routingConfidence < gateWarnConfidence {
		warnings = append(warnings, fmt.Sprintf("Low routing confidence (%.2f)", routingConfidence))
	}

	// Rule D: drop names outside the whitelist.
	var approved []string
	var invalid []string
	for _, name := range selectedAgents {
		if isValidAgent(name) {
			approved = append(approved, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		warnings = append(warnings, "Invalid agent names removed: "+strings.Join(invalid, ", "))
	}

	// Rule E: never proceed with an empty set; fall back instead of
	// blocking.
	if len(approved) == 0 {
		warnings = append(warnings, "No valid agents selected, defaulting to "+registry.FallbackSpecialist)
		approved = []string{registry.FallbackSpecialist}
	}

	return GateVerdict{
		Valid:          valid,
		Reason:         reason,
		Warnings:       warnings,
		ApprovedAgents: approved,
	}
}

func isValidAgent(name string) bool {
	for _, valid := range validAgentNames {
		if name == valid {
			return true
		}
	}
	return false
}
