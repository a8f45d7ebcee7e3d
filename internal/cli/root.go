// Package cli wires the gauntlet commands: ad-hoc runs, the scheduler
// daemon, schedule validation, and reporting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vorion-labs/gauntlet/internal/alert"
	"github.com/vorion-labs/gauntlet/internal/history"
)

var rootCmd = &cobra.Command{
	Use:   "gauntlet",
	Short: "Adversarial testing harness for AI agent guardrails",
	Long:  "Runs red agents against blue-team detectors around a sandboxed target, scores detection accuracy, and mines missed attacks into reusable vectors and draft rules.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore returns the history store for the given path: SQLite when a
// path is set, in-memory otherwise.
func openStore(path string) (history.Store, error) {
	if path == "" {
		return history.NewMemoryStore(), nil
	}
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

// loadAlerts reads webhook alert configurations from a YAML file.
// Returns a nil dispatcher when no file is given.
func loadAlerts(path string) (*alert.Dispatcher, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts %s: %w", path, err)
	}
	var configs []alert.AlertConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse alerts %s: %w", path, err)
	}
	return alert.NewDispatcher(configs), nil
}
