package activities

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/classify"
	"github.com/adpulse-labs/orchestrator/internal/metrics"
	"github.com/adpulse-labs/orchestrator/internal/reasoning"
)

const (
	routingConfidenceFloor = 0.4
	keywordFallbackConfidence = 0.6

	historyWindow     = 6
	historyTruncateAt = 300
)

const defaultClarificationMessage = "I'm not sure what you're asking about. Could you please clarify?\n\n" +
	"I can help with:\n" +
	"- **Campaign performance** - metrics like CTR, ROAS, conversions\n" +
	"- **Audience targeting** - line item and segment analysis\n" +
	"- **Creative performance** - which ads/sizes are working best\n" +
	"- **Budget pacing** - spend status and risk analysis\n\n" +
	"What would you like to know?"

const fallbackClarificationMessage = "I'm not sure what you're asking about. Could you please clarify?\n\n" +
	"I can help with:\n" +
	"- Campaign performance and metrics (CTR, ROAS, conversions)\n" +
	"- Audience targeting and line item analysis\n" +
	"- Creative performance and optimization\n" +
	"- Budget pacing and spend analysis\n\n" +
	"What would you like to know?"

// RouteQuery classifies a query into zero or more specialists via the
// reasoning engine, falling back to keyword matching when the engine is
// unavailable. Clarification is a first-class outcome, not an error.
func (a *Activities) RouteQuery(ctx context.Context, in RouteQueryInput) (RoutingDecision, error) {
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("routing").Observe(float64(time.Since(start).Milliseconds()))
	}()

	prompt := a.buildRoutingPrompt(in.Query, in.History)

	reply, err := a.engine.Complete(ctx, reasoning.Request{
		System: "You are a routing assistant that selects specialist agents based on user queries.",
		User:   prompt,
	})
	if err != nil {
		a.logger.Error("Reasoning routing failed, falling back to keyword matching",
			zap.String("query", truncate(in.Query, 50)),
			zap.Error(err),
		)
		return a.keywordRoute(in.Query), nil
	}

	decision := a.parseRoutingReply(reply)

	// Force clarification when nothing was selected, confidence is too
	// low, or the engine asked a question itself.
	if len(decision.SelectedAgents) == 0 || decision.Confidence < routingConfidenceFloor || decision.ClarificationMessage != "" {
		a.logger.Info("Routing unclear, requesting clarification",
			zap.Strings("selected_agents", decision.SelectedAgents),
			zap.Float64("confidence", decision.Confidence),
		)
		msg := decision.ClarificationMessage
		if msg == "" {
			msg = defaultClarificationMessage
		}
		reasoningText := decision.Reasoning
		if reasoningText == "" {
			reasoningText = "Query is unclear or ambiguous"
		}
		return RoutingDecision{
			Reasoning:            reasoningText,
			Confidence:           0.0,
			ClarificationNeeded:  true,
			ClarificationMessage: msg,
		}, nil
	}

	a.logger.Info("Routing decision made",
		zap.String("query", truncate(in.Query, 50)),
		zap.Strings("selected_agents", decision.SelectedAgents),
		zap.Float64("confidence", decision.Confidence),
	)
	return decision, nil
}

func (a *Activities) buildRoutingPrompt(query string, history []Message) string {
	var menu strings.Builder
	for _, cap := range a.registry.Capabilities() {
		fmt.Fprintf(&menu, "- **%s**: %s\n", cap.Name, cap.Description)
	}

	var contextSection string
	if len(history) > 0 {
		recent := history
		if len(recent) > historyWindow {
			recent = recent[len(recent)-historyWindow:]
		}
		var lines []string
		for _, msg := range recent {
			role := "Assistant"
			if msg.Role == "user" {
				role = "User"
			}
			content := msg.Content
			if len(content) > historyTruncateAt {
				content = content[:historyTruncateAt] + "..."
			}
			lines = append(lines, role+": "+content)
		}
		contextSection = fmt.Sprintf(`
CONVERSATION HISTORY (recent messages for context):
%s

IMPORTANT: The current query may be a follow-up or clarification to the conversation above.
- If the user's query is short (like "budget", "performance", "yes", "that one"), interpret it in context of the previous messages.
- If the assistant just asked for clarification, the user's response is likely answering that question.
- If the user provides date ranges, route based on what they were asking about before the dates; default to performance_diagnosis when the context is unclear.
`, strings.Join(lines, "\n"))
	}

	names := strings.Join(a.registry.Names(), ", ")

	return fmt.Sprintf(`You are a routing assistant for an advertising analytics system. Analyze the user's query and determine which specialist agent(s) should handle it.
%s
Available agents:
%s
User query: "%s"

Instructions:
1. Analyze the query to understand user intent
2. Select the most appropriate agent(s) ONLY if you clearly understand what the user wants
3. You can select multiple agents if the query requires multiple perspectives
4. Respond in this exact format:

AGENTS: agent_name_1, agent_name_2 (or NONE if unclear)
REASONING: Brief explanation of why these agents were selected (or why clarification is needed)
CONFIDENCE: A score from 0.0 to 1.0 indicating confidence in this routing decision
CLARIFICATION: Only include this line if the query is unclear. Ask a specific question to help understand what the user wants.

Valid agent names: %s

IMPORTANT: If the query is vague, ambiguous, or you're not sure what the user wants:
- Set AGENTS to NONE
- Set CONFIDENCE to 0.0
- Include a CLARIFICATION line asking what specific information they need

Your response:`, contextSection, menu.String(), query, names)
}

func (a *Activities) parseRoutingReply(reply string) RoutingDecision {
	decision := RoutingDecision{Confidence: 0.8}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "AGENTS:"):
			agentsPart := strings.TrimSpace(strings.TrimPrefix(line, "AGENTS:"))
			if strings.EqualFold(agentsPart, "NONE") {
				decision.SelectedAgents = nil
				continue
			}
			for _, raw := range strings.Split(agentsPart, ",") {
				name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
				if a.registry.Has(name) {
					decision.SelectedAgents = append(decision.SelectedAgents, name)
				}
			}

		case strings.HasPrefix(line, "REASONING:"):
			decision.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))

		case strings.HasPrefix(line, "CONFIDENCE:"):
			confStr := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if conf, err := strconv.ParseFloat(confStr, 64); err == nil {
				decision.Confidence = clamp01(conf)
			} else {
				a.logger.Warn("Failed to parse routing confidence", zap.String("value", confStr))
			}

		case strings.HasPrefix(line, "CLARIFICATION:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "CLARIFICATION:"))
			if !isNoClarification(value) {
				decision.ClarificationMessage = value
			}
		}
	}
	return decision
}

// isNoClarification filters engine replies that fill the CLARIFICATION
// line with a negation ("None", "N/A", "None - intent is clear") rather
// than an actual question.
func isNoClarification(value string) bool {
	lower := strings.ToLower(value)
	switch lower {
	case "", "none", "n/a", "na", "null":
		return true
	}
	for _, prefix := range []string{"none ", "none-", "none,", "n/a ", "not needed", "no clarification"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// keywordRoute is the deterministic fallback when the reasoning engine
// is unavailable.
func (a *Activities) keywordRoute(query string) RoutingDecision {
	var selected []string
	for _, cap := range a.registry.Capabilities() {
		if classify.MatchKeywords(query, cap.Keywords) {
			selected = append(selected, cap.Name)
		}
	}

	if len(selected) == 0 {
		a.logger.Info("Keyword routing found no match, requesting clarification",
			zap.String("query", truncate(query, 50)),
		)
		return RoutingDecision{
			Reasoning:            "Query is unclear - no matching keywords found",
			Confidence:           0.0,
			ClarificationNeeded:  true,
			ClarificationMessage: fallbackClarificationMessage,
			KeywordFallback:      true,
		}
	}

	a.logger.Info("Keyword fallback routing",
		zap.String("query", truncate(query, 50)),
		zap.Strings("selected_agents", selected),
	)
	return RoutingDecision{
		SelectedAgents:  selected,
		Reasoning:       "Fallback keyword-based routing",
		Confidence:      keywordFallbackConfidence,
		KeywordFallback: true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
