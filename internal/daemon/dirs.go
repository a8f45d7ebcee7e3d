package daemon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// dirPerm is the permission for daemon-managed directories.
const dirPerm = 0750

// DirConfig holds the daemon directory layout.
type DirConfig struct {
	Drop   string // incoming scenario files
	Outbox string // run reports and schedule acknowledgements
	State  string // state/{processing,processed,failed,turns}
}

// DefaultDirConfig returns reasonable defaults for local development.
func DefaultDirConfig() DirConfig {
	return DirConfig{
		Drop:   "/var/lib/gauntlet/drop",
		Outbox: "/var/lib/gauntlet/outbox",
		State:  "/var/lib/gauntlet/state",
	}
}

// ProcessingDir returns the path to the processing subdirectory.
func (d DirConfig) ProcessingDir() string {
	return filepath.Join(d.State, "processing")
}

// ProcessedDir returns the path to the processed subdirectory.
func (d DirConfig) ProcessedDir() string {
	return filepath.Join(d.State, "processed")
}

// FailedDir returns the path to the failed subdirectory.
func (d DirConfig) FailedDir() string {
	return filepath.Join(d.State, "failed")
}

// TurnsDir returns the path to the per-session turn log subdirectory.
func (d DirConfig) TurnsDir() string {
	return filepath.Join(d.State, "turns")
}

// EnsureDirs creates all required directories. Idempotent.
func EnsureDirs(cfg DirConfig) error {
	dirs := []string{
		cfg.Drop,
		cfg.Outbox,
		cfg.ProcessingDir(),
		cfg.ProcessedDir(),
		cfg.FailedDir(),
		cfg.TurnsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// moveFile moves src to dst using os.Rename. If rename fails with EXDEV
// (cross-device link, common with systemd ReadWritePaths bind mounts),
// it falls back to copy + remove.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
