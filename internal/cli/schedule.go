package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vorion-labs/gauntlet/internal/scenario"
	"github.com/vorion-labs/gauntlet/internal/schedule"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <scenario.yaml>",
	Short: "Validate a scheduled scenario and print its next run",
	RunE:  runSchedule,
	Args:  cobra.ExactArgs(1),
}

func runSchedule(cmd *cobra.Command, args []string) error {
	def, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	if !def.Scheduled() {
		return fmt.Errorf("scenario %q has no schedule block", def.Name)
	}

	s := def.ScheduledSession()
	fmt.Printf("Scenario:  %s\n", s.Name)
	fmt.Printf("Type:      %s\n", s.Schedule.Type)
	if s.Schedule.IntervalMinutes > 0 {
		fmt.Printf("Interval:  %dm\n", s.Schedule.IntervalMinutes)
	}
	if s.Schedule.Cron != "" {
		fmt.Printf("Cron:      %s\n", s.Schedule.Cron)
	}
	if s.Schedule.MaxRuns > 0 {
		fmt.Printf("Max runs:  %d\n", s.Schedule.MaxRuns)
	}
	fmt.Printf("Enabled:   %t\n", s.Enabled)

	next := schedule.NextRun(s.Schedule, time.Now().UTC())
	if next == nil {
		fmt.Println("Next run:  never (expired one-shot)")
	} else {
		fmt.Printf("Next run:  %s (in %s)\n", next.Format(time.RFC3339), time.Until(*next).Round(time.Second))
	}
	return nil
}
