package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/model"
	"github.com/vorion-labs/gauntlet/internal/scenario"
	"github.com/vorion-labs/gauntlet/internal/schedule"
)

// Result statuses written to the outbox.
const (
	ResultScheduled = "scheduled"
	ResultDone      = "done"
	ResultFailed    = "failed"
)

// Result is the outbox acknowledgement for one drop file.
type Result struct {
	File        string                `json:"file"`
	Status      string                `json:"status"`
	ScheduleID  string                `json:"schedule_id,omitempty"`
	NextRun     *time.Time            `json:"next_run,omitempty"`
	SessionID   string                `json:"session_id,omitempty"`
	Session     *model.ArenaSession   `json:"session,omitempty"`
	Error       string                `json:"error,omitempty"`
	CompletedAt time.Time             `json:"completed_at"`
}

// ProcessorConfig holds runtime configuration for drop-file processing.
type ProcessorConfig struct {
	Dirs    DirConfig
	Manager *schedule.Manager
}

// Processor handles the drop-file lifecycle.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor creates a processor with the given configuration.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Process handles a single drop file through its full lifecycle:
// read → validate → move to processing → schedule or run → write
// acknowledgement to outbox.
func (p *Processor) Process(ctx context.Context, path string) error {
	// Reject symlinks before reading. A symlink in the drop directory
	// could point the loader at arbitrary files on the host.
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat drop file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(path))
	}

	name := filepath.Base(path)
	def, err := scenario.Load(path)
	if err != nil {
		_ = moveFile(path, filepath.Join(p.cfg.Dirs.FailedDir(), name))
		return p.writeResult(&Result{File: name, Status: ResultFailed, Error: err.Error()})
	}

	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), name)
	if err := moveFile(path, processingPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	var result *Result
	if def.Scheduled() {
		result = p.register(name, def)
	} else {
		result = p.run(ctx, name, def)
	}

	dest := p.cfg.Dirs.ProcessedDir()
	if result.Status == ResultFailed {
		dest = p.cfg.Dirs.FailedDir()
	}
	if err := moveFile(processingPath, filepath.Join(dest, name)); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: archive %s: %v\n", name, err)
	}
	return p.writeResult(result)
}

// register hands a scheduled definition to the manager.
func (p *Processor) register(name string, def *scenario.Definition) *Result {
	s, err := p.cfg.Manager.ScheduleSession(def.ScheduledSession())
	if err != nil {
		return &Result{File: name, Status: ResultFailed, Error: err.Error()}
	}
	return &Result{
		File:       name,
		Status:     ResultScheduled,
		ScheduleID: s.ID,
		NextRun:    s.NextRun,
	}
}

// run executes an ad-hoc definition synchronously and reports the final
// session. With persist_turns set, every completed turn is chained into a
// per-session log under state/turns/; the logger is registered on the
// session before its loop starts, so no turn can complete unrecorded.
func (p *Processor) run(ctx context.Context, name string, def *scenario.Definition) *Result {
	var subs []arena.Subscriber
	if def.Session.PersistTurns {
		subs = append(subs, newTurnLogger(p.cfg.Dirs.TurnsDir()).handle)
	}

	sess, err := p.cfg.Manager.RunAdHoc(def.Session, subs...)
	if err != nil {
		return &Result{File: name, Status: ResultFailed, Error: err.Error()}
	}

	final, err := p.cfg.Manager.Arena().WaitSession(ctx, sess.ID)
	if err != nil {
		return &Result{File: name, Status: ResultFailed, SessionID: sess.ID, Error: err.Error()}
	}
	result := &Result{File: name, Status: ResultDone, SessionID: final.ID, Session: final}
	if final.Status == model.StatusFailed {
		result.Status = ResultFailed
		result.Error = "session execution failed"
	}
	return result
}

// turnLogger mirrors one session's completed turns into a hash-chained
// JSONL log under dir. It opens the log on the session-start event and
// closes it when the session completes; event delivery is synchronous, so
// every recorded turn is on disk before the session finalizes.
type turnLogger struct {
	dir string
	log *history.TurnLog
}

func newTurnLogger(dir string) *turnLogger { return &turnLogger{dir: dir} }

func (t *turnLogger) handle(ev arena.Event) {
	switch ev.Type {
	case arena.EventSessionStart:
		log, err := history.OpenTurnLog(filepath.Join(t.dir, ev.SessionID+".jsonl"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "daemon: open turn log %s: %v\n", ev.SessionID, err)
			return
		}
		t.log = log
	case arena.EventTurnComplete:
		if t.log == nil || ev.Turn == nil {
			return
		}
		if err := t.log.Record(ev.SessionID, *ev.Turn); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: record turn %s: %v\n", ev.SessionID, err)
		}
	case arena.EventSessionComplete:
		if t.log == nil {
			return
		}
		if err := t.log.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: close turn log %s: %v\n", ev.SessionID, err)
		}
		t.log = nil
	}
}

// writeResult writes an acknowledgement to the outbox atomically.
func (p *Processor) writeResult(r *Result) error {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	filename := r.File + ".result.json"
	tmpPath := filepath.Join(p.cfg.Dirs.Outbox, filename+".tmp")
	finalPath := filepath.Join(p.cfg.Dirs.Outbox, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}
