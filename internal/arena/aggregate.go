package arena

import (
	"fmt"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// Aggregate merges independent blue-agent verdicts into one deterministic
// result, regardless of input order:
//   - detected if any single result detected
//   - confidence is the maximum across results
//   - action is the most severe present (block > quarantine > flag > allow)
//   - severity is the highest among results that identified threats
//   - latency is the mean across all results
func Aggregate(results []model.DetectionResult) model.DetectionResult {
	agg := model.DetectionResult{Action: model.ActionAllow}
	if len(results) == 0 {
		agg.Explanation = "0 blue agents analyzed, 0 threats identified"
		return agg
	}

	totalThreats := 0
	var totalLatency time.Duration
	severitySet := false

	for _, r := range results {
		if r.Detected {
			agg.Detected = true
		}
		if r.Confidence > agg.Confidence {
			agg.Confidence = r.Confidence
		}
		if model.ActionRank[r.Action] > model.ActionRank[agg.Action] {
			agg.Action = r.Action
		}
		if len(r.Threats) > 0 {
			totalThreats += len(r.Threats)
			agg.Threats = append(agg.Threats, r.Threats...)
			if !severitySet || model.SevRank[r.Severity] > model.SevRank[agg.Severity] {
				agg.Severity = r.Severity
				severitySet = true
			}
			if agg.Category == "" {
				agg.Category = r.Category
				agg.Subcategory = r.Subcategory
			}
		}
		totalLatency += r.Latency
	}

	agg.Latency = totalLatency / time.Duration(len(results))
	agg.Explanation = fmt.Sprintf("%d blue agents analyzed, %d threats identified", len(results), totalThreats)
	return agg
}
