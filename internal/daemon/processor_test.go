package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/schedule"
)

func setupProcessorDirs(t *testing.T) DirConfig {
	t.Helper()
	root := t.TempDir()
	cfg := DirConfig{
		Drop:   filepath.Join(root, "drop"),
		Outbox: filepath.Join(root, "outbox"),
		State:  filepath.Join(root, "state"),
	}
	if err := EnsureDirs(cfg); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return cfg
}

func testProcessor(t *testing.T, dirs DirConfig) *Processor {
	t.Helper()
	a := arena.New(arena.Config{TurnDelay: time.Millisecond}, nil)
	m := schedule.NewManager(a, nil)
	t.Cleanup(func() { _ = m.Close() })
	return NewProcessor(ProcessorConfig{Dirs: dirs, Manager: m})
}

func readResult(t *testing.T, dirs DirConfig, file string) Result {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dirs.Outbox, file+".result.json"))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	return result
}

func TestProcessorInvalidYAML(t *testing.T) {
	dirs := setupProcessorDirs(t)
	p := testProcessor(t, dirs)

	path := filepath.Join(dirs.Drop, "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Processing should write a failed result, not return an error.
	if err := p.Process(context.Background(), path); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	result := readResult(t, dirs, "bad.yaml")
	if result.Status != ResultFailed {
		t.Errorf("status = %q, want failed", result.Status)
	}
	if result.Error == "" {
		t.Error("expected an error message")
	}
	if _, err := os.Stat(filepath.Join(dirs.FailedDir(), "bad.yaml")); err != nil {
		t.Errorf("invalid file should move to failed dir: %v", err)
	}
}

func TestProcessorRejectsSymlink(t *testing.T) {
	dirs := setupProcessorDirs(t)
	p := testProcessor(t, dirs)

	target := filepath.Join(t.TempDir(), "real.yaml")
	if err := os.WriteFile(target, []byte("name: real\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dirs.Drop, "link.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := p.Process(context.Background(), link); err == nil {
		t.Error("expected error for symlinked drop file")
	}
}

func TestProcessorRunsAdHocScenario(t *testing.T) {
	dirs := setupProcessorDirs(t)
	p := testProcessor(t, dirs)

	path := filepath.Join(dirs.Drop, "probe.yaml")
	content := "name: probe\nsession:\n  red_agents: [injector]\n  blue_agents: [sentinel]\n  max_turns: 2\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatalf("Process: %v", err)
	}

	result := readResult(t, dirs, "probe.yaml")
	if result.Status != ResultDone {
		t.Fatalf("status = %q (error %q), want done", result.Status, result.Error)
	}
	if result.SessionID == "" || result.Session == nil {
		t.Fatal("expected the final session in the result")
	}
	if result.Session.Results.TotalTurns != 2 {
		t.Errorf("turns = %d, want 2", result.Session.Results.TotalTurns)
	}
	if _, err := os.Stat(filepath.Join(dirs.ProcessedDir(), "probe.yaml")); err != nil {
		t.Errorf("processed file should be archived: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("drop file should be gone after processing")
	}
}

func TestProcessorPersistsTurns(t *testing.T) {
	dirs := setupProcessorDirs(t)
	p := testProcessor(t, dirs)

	path := filepath.Join(dirs.Drop, "logged.yaml")
	content := "name: logged\nsession:\n  red_agents: [injector]\n  blue_agents: [sentinel]\n  max_turns: 2\n  persist_turns: true\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatalf("Process: %v", err)
	}

	result := readResult(t, dirs, "logged.yaml")
	if result.Status != ResultDone {
		t.Fatalf("status = %q (error %q), want done", result.Status, result.Error)
	}
	logPath := filepath.Join(dirs.TurnsDir(), result.SessionID+".jsonl")
	n, err := history.VerifyTurnLog(logPath)
	if err != nil {
		t.Fatalf("verify turn log: %v", err)
	}
	if n != 2 {
		t.Errorf("turn log entries = %d, want 2", n)
	}
}

func TestProcessorRegistersScheduledScenario(t *testing.T) {
	dirs := setupProcessorDirs(t)
	a := arena.New(arena.Config{TurnDelay: time.Millisecond}, nil)
	m := schedule.NewManager(a, nil)
	t.Cleanup(func() { _ = m.Close() })
	p := NewProcessor(ProcessorConfig{Dirs: dirs, Manager: m})

	path := filepath.Join(dirs.Drop, "sched.yaml")
	content := "name: sweep\nschedule:\n  type: recurring\n  interval_minutes: 60\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatalf("Process: %v", err)
	}

	result := readResult(t, dirs, "sched.yaml")
	if result.Status != ResultScheduled {
		t.Fatalf("status = %q, want scheduled", result.Status)
	}
	if result.ScheduleID == "" {
		t.Fatal("expected a schedule id")
	}
	if result.NextRun == nil {
		t.Error("expected a computed next run")
	}
	if _, err := m.GetSchedule(result.ScheduleID); err != nil {
		t.Errorf("schedule not registered with manager: %v", err)
	}
}
