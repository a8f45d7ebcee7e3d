package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vorion-labs/gauntlet/internal/intel"
	"github.com/vorion-labs/gauntlet/internal/model"
	"github.com/vorion-labs/gauntlet/internal/schedule"
)

// FormatSession renders one finished session as human-readable text.
func FormatSession(s *model.ArenaSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s (%s)\n", s.Name, s.ID)
	fmt.Fprintf(&b, "  status:    %s\n", s.Status)
	fmt.Fprintf(&b, "  red:       %s\n", strings.Join(s.RedAgents, ", "))
	fmt.Fprintf(&b, "  blue:      %s\n", strings.Join(s.BlueAgents, ", "))
	if !s.EndedAt.IsZero() {
		fmt.Fprintf(&b, "  duration:  %s\n", s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}

	r := s.Results
	fmt.Fprintf(&b, "\n  turns:     %d\n", r.TotalTurns)
	fmt.Fprintf(&b, "  attempted: %d\n", r.AttacksAttempted)
	fmt.Fprintf(&b, "  detected:  %d\n", r.AttacksDetected)
	fmt.Fprintf(&b, "  missed:    %d\n", r.AttacksMissed)
	fmt.Fprintf(&b, "  succeeded: %d\n", r.AttacksSuccessful)
	fmt.Fprintf(&b, "  false pos: %d\n", r.FalsePositives)
	fmt.Fprintf(&b, "  novel:     %d\n", r.NovelVectors)
	fmt.Fprintf(&b, "  accuracy:  %.1f%%\n", r.DetectionAccuracy*100)
	fmt.Fprintf(&b, "  latency:   %s (mean)\n", r.MeanLatency.Round(time.Millisecond))

	failed := 0
	for _, turn := range s.Turns {
		if turn.FalseNegative {
			failed++
		}
	}
	if failed > 0 {
		b.WriteString("\n  missed attacks:\n")
		for _, turn := range s.Turns {
			if !turn.FalseNegative {
				continue
			}
			attack := turn.Attack
			if len(attack) > 60 {
				attack = attack[:57] + "..."
			}
			fmt.Fprintf(&b, "    turn %2d  %-20s %s\n", turn.Number, turn.Category, attack)
		}
	}

	return b.String()
}

// FormatHistory renders execution history entries, newest first.
func FormatHistory(entries []model.SessionHistoryEntry) string {
	if len(entries) == 0 {
		return "No history.\n"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s  %-10s  %s", e.StartedAt.Format("2006-01-02 15:04:05"), e.Status, e.SessionID)
		if e.Results != nil {
			fmt.Fprintf(&b, "  %d/%d detected, accuracy %.1f%%",
				e.Results.AttacksDetected, e.Results.AttacksAttempted, e.Results.DetectionAccuracy*100)
		}
		if e.Error != "" {
			fmt.Fprintf(&b, "  error: %s", e.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatInsights renders the collector's mining output as text.
func FormatInsights(ins *intel.Insights) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Novel vectors: %d\n", len(ins.NovelVectors))
	for _, v := range ins.NovelVectors {
		payload := v.Payload
		if len(payload) > 50 {
			payload = payload[:47] + "..."
		}
		fmt.Fprintf(&b, "  %-20s %-16s seen %d, bypassed %d  %s\n",
			v.Category, v.Technique, v.AttemptCount, v.BypassCount, payload)
	}

	fmt.Fprintf(&b, "\nDefense gaps: %d\n", len(ins.Gaps))
	for _, g := range ins.Gaps {
		fmt.Fprintf(&b, "  %-20s %-16s %d misses\n", g.Category, g.Technique, g.Misses)
	}

	fmt.Fprintf(&b, "\nRecurring patterns: %d\n", len(ins.Patterns))
	for _, p := range ins.Patterns {
		fmt.Fprintf(&b, "  %-30q x%d  success %.0f%%\n", p.Pattern, p.Frequency, p.SuccessRate*100)
	}

	fmt.Fprintf(&b, "\nProposed rules: %d (disabled until reviewed)\n", len(ins.Rules))
	for _, r := range ins.Rules {
		fmt.Fprintf(&b, "  %-24s %-20s threshold %.2f\n", r.Name, r.Category, r.ConfidenceThreshold)
	}

	return b.String()
}

// FormatStatistics renders scheduler statistics as text.
func FormatStatistics(stats schedule.Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedules: %d (%d enabled)\n", stats.TotalScheduled, stats.EnabledScheduled)
	fmt.Fprintf(&b, "Runs:      %d (%d completed, %d failed)\n", stats.TotalRuns, stats.SuccessfulRuns, stats.FailedRuns)
	fmt.Fprintf(&b, "Accuracy:  %.1f%% (mean over completed runs)\n", stats.MeanAccuracy*100)
	fmt.Fprintf(&b, "Novel:     %d vectors discovered\n", stats.NovelDiscoveries)
	return b.String()
}

// FormatJSON renders any report as indented JSON.
func FormatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}
