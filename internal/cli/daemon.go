package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/daemon"
	"github.com/vorion-labs/gauntlet/internal/schedule"
)

var (
	daemonDrop     string
	daemonOutbox   string
	daemonState    string
	daemonHistory  string
	daemonAlerts   string
	daemonSystem   string
	daemonPoll     bool
	daemonInterval time.Duration
	daemonMaxSess  int
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	dirs := daemon.DefaultDirConfig()
	daemonCmd.Flags().StringVar(&daemonDrop, "drop", dirs.Drop, "Drop directory for scenario files")
	daemonCmd.Flags().StringVar(&daemonOutbox, "outbox", dirs.Outbox, "Outbox directory for run results")
	daemonCmd.Flags().StringVar(&daemonState, "state", dirs.State, "State directory")
	daemonCmd.Flags().StringVar(&daemonHistory, "history", "", "Path to SQLite history database")
	daemonCmd.Flags().StringVar(&daemonAlerts, "alerts", "", "Path to webhook alerts YAML")
	daemonCmd.Flags().StringVar(&daemonSystem, "system-context", "", "System context handed to sandboxed targets")
	daemonCmd.Flags().BoolVar(&daemonPoll, "poll", false, "Poll the drop directory instead of using fsnotify")
	daemonCmd.Flags().DurationVar(&daemonInterval, "poll-interval", 0, "Polling interval (with --poll)")
	daemonCmd.Flags().IntVar(&daemonMaxSess, "max-sessions", 0, "Maximum concurrent sessions (0 = default)")
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the session scheduler and scenario drop directory",
	Long:  "Starts the long-lived scheduler. Scenario files dropped into the drop directory are validated and either registered as schedules or executed immediately.",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	store, err := openStore(daemonHistory)
	if err != nil {
		return err
	}

	a := arena.New(arena.Config{
		SystemContext:         daemonSystem,
		MaxConcurrentSessions: daemonMaxSess,
	}, nil)

	dispatcher, err := loadAlerts(daemonAlerts)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		defer a.Subscribe(dispatcher.Subscriber())()
	}

	manager := schedule.NewManager(a, store)
	defer func() {
		if err := manager.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "gauntlet: close manager: %v\n", err)
		}
	}()

	d, err := daemon.New(daemon.Config{
		Dirs: daemon.DirConfig{
			Drop:   daemonDrop,
			Outbox: daemonOutbox,
			State:  daemonState,
		},
		Manager:      manager,
		PollMode:     daemonPoll,
		PollInterval: daemonInterval,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "gauntlet daemon watching %s\n", daemonDrop)
	if daemonHistory != "" {
		fmt.Fprintf(os.Stderr, "History: %s\n", daemonHistory)
	}
	return d.Run(ctx)
}
