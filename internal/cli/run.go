package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/model"
	"github.com/vorion-labs/gauntlet/internal/scenario"
)

var (
	runJSON     bool
	runAlerts   string
	runTurnLog  string
	runSystem   string
	runInsights bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the report as JSON")
	runCmd.Flags().StringVar(&runAlerts, "alerts", "", "Path to webhook alerts YAML")
	runCmd.Flags().StringVar(&runTurnLog, "turn-log", "", "Path for the hash-chained turn log (with persist_turns)")
	runCmd.Flags().StringVar(&runSystem, "system-context", "", "System context handed to the sandboxed target")
	runCmd.Flags().BoolVar(&runInsights, "insights", false, "Append collector insights to the report")
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run one adversarial session and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	def, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	a := arena.New(arena.Config{SystemContext: runSystem}, nil)

	dispatcher, err := loadAlerts(runAlerts)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		defer a.Subscribe(dispatcher.Subscriber())()
	}

	if def.Session.PersistTurns && runTurnLog != "" {
		log, err := history.OpenTurnLog(runTurnLog)
		if err != nil {
			return fmt.Errorf("open turn log: %w", err)
		}
		defer log.Close()
		defer a.Subscribe(func(ev arena.Event) {
			if ev.Type != arena.EventTurnComplete || ev.Turn == nil {
				return
			}
			if err := log.Record(ev.SessionID, *ev.Turn); err != nil {
				fmt.Fprintf(os.Stderr, "gauntlet: record turn: %v\n", err)
			}
		})()
	}

	sess, err := a.StartSession(def.Session)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Fprintf(os.Stderr, "gauntlet: session %s started (%s)\n", sess.ID, def.Session.Name)

	// The arena bounds every session by its own timeout; the extra minute
	// covers finalization.
	waitCtx, cancel := context.WithTimeout(context.Background(), sess.Config.Timeout+time.Minute)
	defer cancel()
	final, err := a.WaitSession(waitCtx, sess.ID)
	if err != nil {
		return fmt.Errorf("wait session: %w", err)
	}

	if runJSON {
		out, err := scenario.FormatJSON(final)
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		fmt.Print(scenario.FormatSession(final))
	}

	if runInsights {
		ins := a.Collector().GenerateInsights()
		if runJSON {
			out, err := scenario.FormatJSON(ins)
			if err != nil {
				return err
			}
			fmt.Println(out)
		} else {
			fmt.Println()
			fmt.Print(scenario.FormatInsights(ins))
		}
	}

	if final.Status == model.StatusFailed {
		return fmt.Errorf("session %s failed", final.ID)
	}
	return nil
}
