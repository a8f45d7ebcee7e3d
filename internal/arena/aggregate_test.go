package arena

import (
	"testing"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

func TestAggregateMostSevereActionWins(t *testing.T) {
	results := []model.DetectionResult{
		{Action: model.ActionAllow},
		{Action: model.ActionFlag, Detected: true},
		{Action: model.ActionBlock, Detected: true},
	}
	// Every permutation order must produce the same aggregate action.
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		shuffled := []model.DetectionResult{results[p[0]], results[p[1]], results[p[2]]}
		agg := Aggregate(shuffled)
		if agg.Action != model.ActionBlock {
			t.Errorf("order %v: expected block, got %s", p, agg.Action)
		}
		if !agg.Detected {
			t.Errorf("order %v: expected detected", p)
		}
	}
}

func TestAggregateQuarantineOverFlag(t *testing.T) {
	agg := Aggregate([]model.DetectionResult{
		{Action: model.ActionFlag, Detected: true},
		{Action: model.ActionQuarantine, Detected: true},
	})
	if agg.Action != model.ActionQuarantine {
		t.Errorf("expected quarantine, got %s", agg.Action)
	}
}

func TestAggregateAllowOnlyWhenNothingEscalated(t *testing.T) {
	agg := Aggregate([]model.DetectionResult{
		{Action: model.ActionAllow},
		{Action: model.ActionAllow},
	})
	if agg.Action != model.ActionAllow || agg.Detected {
		t.Errorf("expected clean allow, got %+v", agg)
	}
}

func TestAggregateMaxConfidence(t *testing.T) {
	agg := Aggregate([]model.DetectionResult{
		{Confidence: 0.3},
		{Confidence: 0.9},
		{Confidence: 0.5},
	})
	if agg.Confidence != 0.9 {
		t.Errorf("expected 0.9, got %f", agg.Confidence)
	}
}

func TestAggregateHighestThreatSeverity(t *testing.T) {
	agg := Aggregate([]model.DetectionResult{
		{Detected: true, Action: model.ActionFlag, Severity: model.SevMedium, Threats: []string{"a"}},
		{Detected: true, Action: model.ActionFlag, Severity: model.SevCritical, Threats: []string{"b"}},
		{Severity: model.SevLow}, // no threats: severity ignored
	})
	if agg.Severity != model.SevCritical {
		t.Errorf("expected critical, got %s", agg.Severity)
	}
	if len(agg.Threats) != 2 {
		t.Errorf("expected 2 threats, got %v", agg.Threats)
	}
}

func TestAggregateMeanLatencyAndExplanation(t *testing.T) {
	agg := Aggregate([]model.DetectionResult{
		{Latency: 10 * time.Millisecond, Threats: []string{"x"}, Detected: true, Action: model.ActionFlag},
		{Latency: 30 * time.Millisecond},
	})
	if agg.Latency != 20*time.Millisecond {
		t.Errorf("expected 20ms mean latency, got %s", agg.Latency)
	}
	if agg.Explanation != "2 blue agents analyzed, 1 threats identified" {
		t.Errorf("unexpected explanation %q", agg.Explanation)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if agg.Detected || agg.Action != model.ActionAllow {
		t.Errorf("expected clean result for no analyses, got %+v", agg)
	}
}
