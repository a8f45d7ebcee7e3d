package model

import "testing"

func TestSeverityOrdering(t *testing.T) {
	order := []Severity{SevLow, SevMedium, SevHigh, SevCritical}
	for i := 1; i < len(order); i++ {
		if SevRank[order[i]] <= SevRank[order[i-1]] {
			t.Errorf("expected %s to rank above %s", order[i], order[i-1])
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SevLow, SevCritical); got != SevCritical {
		t.Errorf("expected critical, got %s", got)
	}
	if got := MaxSeverity(SevHigh, SevMedium); got != SevHigh {
		t.Errorf("expected high, got %s", got)
	}
	if got := MaxSeverity(SevMedium, SevMedium); got != SevMedium {
		t.Errorf("expected medium, got %s", got)
	}
}

func TestActionOrdering(t *testing.T) {
	order := []DetectionAction{ActionAllow, ActionFlag, ActionQuarantine, ActionBlock}
	for i := 1; i < len(order); i++ {
		if ActionRank[order[i]] <= ActionRank[order[i-1]] {
			t.Errorf("expected %s to rank above %s", order[i], order[i-1])
		}
	}
}

func TestTerminalStatus(t *testing.T) {
	for _, s := range []SessionStatus{StatusCompleted, StatusTerminated, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []SessionStatus{StatusPending, StatusRunning} {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
