package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/model"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	a := arena.New(arena.Config{TurnDelay: time.Millisecond}, nil)
	m := NewManager(a, nil)
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close manager: %v", err)
		}
	})
	return m
}

func quickSession(name string) model.SessionConfig {
	return model.SessionConfig{
		Name:       name,
		RedAgents:  []string{"injector"},
		BlueAgents: []string{"sentinel"},
		MaxTurns:   2,
		Timeout:    10 * time.Second,
	}
}

// --- schedule CRUD tests ---

func TestScheduleSessionComputesNextRun(t *testing.T) {
	m := testManager(t)
	s, err := m.ScheduleSession(model.ScheduledSession{
		Name:     "hourly",
		Session:  quickSession("hourly"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.ID == "" {
		t.Error("expected an assigned id")
	}
	if s.NextRun == nil {
		t.Fatal("expected next run for an enabled interval schedule")
	}
	until := time.Until(*s.NextRun)
	if until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("next run %v from now, want ~60m", until)
	}
}

func TestScheduleOnceInPastNeverArms(t *testing.T) {
	m := testManager(t)
	m.Start()
	past := time.Now().Add(-time.Hour)
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("stale"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleOnce, RunAt: &past},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.NextRun != nil {
		t.Errorf("expired one-shot got next run %v", s.NextRun)
	}
	m.mu.Lock()
	_, armed := m.timers[s.ID]
	m.mu.Unlock()
	if armed {
		t.Error("expired one-shot should not arm a timer")
	}
}

func TestUpdateSchedulePartial(t *testing.T) {
	m := testManager(t)
	s, err := m.ScheduleSession(model.ScheduledSession{
		Name:     "before",
		Session:  quickSession("before"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	name := "after"
	sched := model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 5}
	got, err := m.UpdateSchedule(s.ID, Update{Name: &name, Schedule: &sched})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "after" {
		t.Errorf("name = %q, want %q", got.Name, "after")
	}
	if got.Session.Name != "before" {
		t.Errorf("session config should be untouched, got %q", got.Session.Name)
	}
	if got.NextRun == nil {
		t.Fatal("expected recomputed next run")
	}
	if until := time.Until(*got.NextRun); until > 6*time.Minute {
		t.Errorf("next run %v from now, want ~5m after interval change", until)
	}
}

func TestRemoveScheduleClearsTimer(t *testing.T) {
	m := testManager(t)
	m.Start()
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("doomed"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.RemoveSchedule(s.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	m.mu.Lock()
	_, armed := m.timers[s.ID]
	m.mu.Unlock()
	if armed {
		t.Error("removed schedule left a pending timer")
	}
	if _, err := m.GetSchedule(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
	if err := m.RemoveSchedule(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double removal, got %v", err)
	}
}

func TestSetEnabledDisarms(t *testing.T) {
	m := testManager(t)
	m.Start()
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("toggle"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.SetEnabled(s.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, err := m.GetSchedule(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Enabled {
		t.Error("schedule should be disabled")
	}
	if got.NextRun != nil {
		t.Errorf("disabled schedule kept next run %v", got.NextRun)
	}
	m.mu.Lock()
	_, armed := m.timers[s.ID]
	m.mu.Unlock()
	if armed {
		t.Error("disabled schedule left a pending timer")
	}
}

// --- execution tests ---

func TestRunNowRecordsHistory(t *testing.T) {
	m := testManager(t)
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("manual"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  false,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	entry, err := m.RunNow(s.ID)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if entry.Status != model.RunCompleted {
		t.Fatalf("run status = %q, want completed (error %q)", entry.Status, entry.Error)
	}
	if entry.ScheduleID != s.ID {
		t.Errorf("schedule id = %q, want %q", entry.ScheduleID, s.ID)
	}
	if entry.SessionID == "" {
		t.Error("expected a session id on the history entry")
	}
	if entry.Results == nil || entry.Results.TotalTurns != 2 {
		t.Errorf("results = %+v, want 2 turns", entry.Results)
	}
	if entry.CompletedAt == nil {
		t.Error("expected a completion timestamp")
	}

	got, err := m.GetSchedule(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RunCount != 1 {
		t.Errorf("run count = %d, want 1", got.RunCount)
	}
	if got.LastRun == nil {
		t.Error("expected last run to be set")
	}

	entries, err := m.GetHistory(history.Filter{ScheduleID: s.ID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].ID != entry.ID {
		t.Errorf("history entry id = %q, want %q", entries[0].ID, entry.ID)
	}
}

func TestRunNowUnknownSchedule(t *testing.T) {
	m := testManager(t)
	if _, err := m.RunNow("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMaxRunsDisablesSchedule(t *testing.T) {
	m := testManager(t)
	m.Start()
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("capped"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60, MaxRuns: 1},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := m.RunNow(s.ID); err != nil {
		t.Fatalf("run now: %v", err)
	}
	got, err := m.GetSchedule(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Enabled {
		t.Error("schedule should auto-disable at the max-run cap")
	}
	if got.NextRun != nil {
		t.Errorf("capped schedule kept next run %v", got.NextRun)
	}
	m.mu.Lock()
	_, armed := m.timers[s.ID]
	m.mu.Unlock()
	if armed {
		t.Error("capped schedule left a pending timer")
	}
}

func TestFailedStartRecordedAndScheduleSurvives(t *testing.T) {
	m := testManager(t)
	cfg := quickSession("broken")
	cfg.RedAgents = []string{"no-such-variant"}
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  cfg,
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	entry, err := m.RunNow(s.ID)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if entry.Status != model.RunFailed {
		t.Errorf("run status = %q, want failed", entry.Status)
	}
	if entry.Error == "" {
		t.Error("expected an error message on the failed entry")
	}
	got, err := m.GetSchedule(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Enabled {
		t.Error("a failed run must not disable the schedule")
	}
	if got.NextRun == nil {
		t.Error("a failed run must still compute the next run")
	}
}

func TestScheduledTimerFires(t *testing.T) {
	m := testManager(t)
	m.Start()
	at := time.Now().Add(30 * time.Millisecond)
	s, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("timed"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleOnce, RunAt: &at},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := m.GetHistory(history.Filter{ScheduleID: s.ID, Status: model.RunCompleted})
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(entries) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timer did not fire within deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, err := m.GetSchedule(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RunCount != 1 {
		t.Errorf("run count = %d, want 1", got.RunCount)
	}
	if got.NextRun != nil {
		t.Errorf("finished one-shot kept next run %v", got.NextRun)
	}
}

func TestRunAdHoc(t *testing.T) {
	m := testManager(t)
	sess, err := m.RunAdHoc(quickSession("adhoc"))
	if err != nil {
		t.Fatalf("ad hoc: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected a session id")
	}
	entries, err := m.GetHistory(history.Filter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ad-hoc runs must not write history, got %d entries", len(entries))
	}
}

func TestGetStatistics(t *testing.T) {
	m := testManager(t)
	good, err := m.ScheduleSession(model.ScheduledSession{
		Session:  quickSession("good"),
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	badCfg := quickSession("bad")
	badCfg.BlueAgents = []string{"no-such-variant"}
	bad, err := m.ScheduleSession(model.ScheduledSession{
		Session:  badCfg,
		Schedule: model.ScheduleConfig{Type: model.ScheduleRecurring, IntervalMinutes: 60},
		Enabled:  false,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := m.RunNow(good.ID); err != nil {
		t.Fatalf("run good: %v", err)
	}
	if _, err := m.RunNow(bad.ID); err != nil {
		t.Fatalf("run bad: %v", err)
	}

	stats, err := m.GetStatistics()
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalScheduled != 2 {
		t.Errorf("total scheduled = %d, want 2", stats.TotalScheduled)
	}
	if stats.EnabledScheduled != 1 {
		t.Errorf("enabled scheduled = %d, want 1", stats.EnabledScheduled)
	}
	if stats.TotalRuns != 2 {
		t.Errorf("total runs = %d, want 2", stats.TotalRuns)
	}
	if stats.SuccessfulRuns != 1 {
		t.Errorf("successful runs = %d, want 1", stats.SuccessfulRuns)
	}
	if stats.FailedRuns != 1 {
		t.Errorf("failed runs = %d, want 1", stats.FailedRuns)
	}
}
