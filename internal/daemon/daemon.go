// Package daemon runs the long-lived gauntlet process: the session
// scheduler plus a drop directory where scenario files are picked up,
// validated, and either registered or executed.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/vorion-labs/gauntlet/internal/schedule"
)

// Config holds full daemon configuration.
type Config struct {
	Dirs         DirConfig
	Manager      *schedule.Manager
	PollMode     bool
	PollInterval time.Duration
}

// Daemon watches the drop directory and drives the scheduler.
type Daemon struct {
	cfg       Config
	processor *Processor
}

// New creates a daemon with validated configuration.
func New(cfg Config) (*Daemon, error) {
	if cfg.Dirs.Drop == "" || cfg.Dirs.Outbox == "" || cfg.Dirs.State == "" {
		return nil, fmt.Errorf("drop, outbox, and state directories are required")
	}
	if cfg.Manager == nil {
		return nil, fmt.Errorf("a session manager is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}

	processor := NewProcessor(ProcessorConfig{
		Dirs:    cfg.Dirs,
		Manager: cfg.Manager,
	})

	return &Daemon{
		cfg:       cfg,
		processor: processor,
	}, nil
}

// Run starts the daemon. Blocks until ctx is cancelled. On startup it
// recovers interrupted drop files and processes anything already waiting.
func (d *Daemon) Run(ctx context.Context) error {
	if err := EnsureDirs(d.cfg.Dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	// PID file lock prevents duplicate instances fighting over the drop
	// directory.
	pidPath := filepath.Join(d.cfg.Dirs.State, "daemon.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	if err := d.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}

	d.cfg.Manager.Start()
	defer d.cfg.Manager.Stop()

	handler := func(path string) {
		if err := d.processor.Process(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: process %s: %v\n", filepath.Base(path), err)
		}
	}

	// Files that arrived while the daemon was down.
	if err := ScanExisting(d.cfg.Dirs.Drop, handler); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.Dirs.Drop, handler, d.cfg.PollInterval)
		return pw.Run(ctx)
	}

	w := NewDropWatcher(d.cfg.Dirs.Drop, handler)
	return w.Run(ctx)
}

// recoverOrphans handles files left in state/processing/ by a crash or
// restart: each gets a failed result and moves to the failed directory.
func (d *Daemon) recoverOrphans() error {
	procDir := d.cfg.Dirs.ProcessingDir()
	entries, err := os.ReadDir(procDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !isScenarioFile(e.Name()) {
			continue
		}
		result := &Result{
			File:   e.Name(),
			Status: ResultFailed,
			Error:  "interrupted: scenario was processing when daemon stopped",
		}
		if err := d.processor.writeResult(result); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: recover orphan %s: %v\n", e.Name(), err)
		}
		if err := moveFile(filepath.Join(procDir, e.Name()), filepath.Join(d.cfg.Dirs.FailedDir(), e.Name())); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: recover orphan %s: %v\n", e.Name(), err)
		}
	}
	return nil
}

// acquirePIDLock writes the current PID to the file and checks for stale locks.
func acquirePIDLock(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another daemon is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file.
		_ = os.Remove(path)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}
