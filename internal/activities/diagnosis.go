package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
	"github.com/adpulse-labs/orchestrator/internal/reasoning"
)

const narrativeTruncateAt = 500

// DiagnoseFindings synthesizes cross-specialist findings into a severity
// rating, root causes, and correlations. The single-specialist skip
// decision is made by the workflow before this activity is scheduled;
// by the time we are here a real diagnosis is wanted.
func (a *Activities) DiagnoseFindings(ctx context.Context, in DiagnoseFindingsInput) (Diagnosis, error) {
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("diagnosis").Observe(float64(time.Since(start).Milliseconds()))
	}()

	prompt := buildDiagnosisPrompt(in)

	reply, err := a.engine.Complete(ctx, reasoning.Request{
		System: "You are a diagnosis expert analyzing advertising campaign findings for root causes.",
		User:   prompt,
	})
	if err != nil {
		a.logger.Error("Diagnosis reasoning failed, degrading to default",
			zap.String("query", truncate(in.Query, 50)),
			zap.Error(err),
		)
		return Diagnosis{
			Severity: SeverityMedium,
			Summary:  "Diagnosis unavailable; review specialist findings directly.",
		}, nil
	}

	diagnosis := parseDiagnosisReply(reply)
	a.logger.Info("Diagnosis complete",
		zap.String("severity", diagnosis.Severity),
		zap.Int("root_causes", len(diagnosis.RootCauses)),
		zap.Int("issues", len(diagnosis.Issues)),
	)
	return diagnosis, nil
}

func buildDiagnosisPrompt(in DiagnoseFindingsInput) string {
	var findings strings.Builder
	for _, outcome := range in.Outcomes {
		narrative := outcome.Narrative
		if len(narrative) > narrativeTruncateAt {
			narrative = narrative[:narrativeTruncateAt] + "..."
		}
		fmt.Fprintf(&findings, "### %s (confidence %.2f)\n%s\n\n", outcome.Agent, outcome.Confidence, narrative)
	}
	if findings.Len() == 0 {
		findings.WriteString("No specialist produced a result.\n")
	}

	var warningsSection string
	if len(in.GateWarnings) > 0 {
		warningsSection = "\nValidation warnings from earlier phases:\n- " + strings.Join(in.GateWarnings, "\n- ") + "\n"
	}

	return fmt.Sprintf(`You are diagnosing advertising campaign findings from specialist analyses.

User Query: "%s"

Specialist Findings:
%s%s
Task: Synthesize these findings. Identify the overall severity, the root causes behind any problems, correlations across specialists, and concrete issues.

Respond in this exact format:

SEVERITY: [low/medium/high/critical]
SUMMARY: One-paragraph synthesis of the findings
ROOT_CAUSES:
- [root cause, one per line, or omit the section if none]
CORRELATIONS:
- [cross-specialist correlation, one per line, or omit if none]
ISSUES:
- [concrete issue, one per line, or omit if none]

Your diagnosis:`, in.Query, findings.String(), warningsSection)
}

// parseDiagnosisReply parses the line-oriented diagnosis format.
// Malformed replies degrade to medium severity with no root causes.
func parseDiagnosisReply(reply string) Diagnosis {
	diagnosis := Diagnosis{Severity: SeverityMedium}

	section := ""
	parsedAny := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SEVERITY:"):
			value := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "SEVERITY:")))
			switch value {
			case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
				diagnosis.Severity = value
				parsedAny = true
			}
			section = ""

		case strings.HasPrefix(line, "SUMMARY:"):
			diagnosis.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
			parsedAny = true
			section = "summary"

		case strings.HasPrefix(line, "ROOT_CAUSES:"):
			section = "root_causes"

		case strings.HasPrefix(line, "CORRELATIONS:"):
			section = "correlations"

		case strings.HasPrefix(line, "ISSUES:"):
			section = "issues"

		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if item == "" {
				continue
			}
			switch section {
			case "root_causes":
				diagnosis.RootCauses = append(diagnosis.RootCauses, item)
			case "correlations":
				diagnosis.Correlations = append(diagnosis.Correlations, item)
			case "issues":
				diagnosis.Issues = append(diagnosis.Issues, item)
			}

		case line != "" && section == "summary":
			// Multi-line summaries continue until the next section header.
			diagnosis.Summary += " " + line
		}
	}

	if !parsedAny {
		return Diagnosis{
			Severity: SeverityMedium,
			Summary:  strings.TrimSpace(reply),
		}
	}
	return diagnosis
}
