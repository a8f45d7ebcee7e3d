package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/scenario"
)

var (
	reportHistory string
	reportJSON    bool
	reportLimit   int
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportHistory, "history", "", "Path to SQLite history database")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "Maximum history entries to show")
	_ = reportCmd.MarkFlagRequired("history")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print run history and mined intelligence from the store",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := openStore(reportHistory)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(history.Filter{Limit: reportLimit})
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	vectors, err := store.Vectors()
	if err != nil {
		return fmt.Errorf("list vectors: %w", err)
	}
	rules, err := store.Rules()
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	if reportJSON {
		out, err := scenario.FormatJSON(map[string]any{
			"history": entries,
			"vectors": vectors,
			"rules":   rules,
		})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	fmt.Printf("Recent runs (%d):\n", len(entries))
	fmt.Print(scenario.FormatHistory(entries))

	fmt.Printf("\nCatalogued vectors: %d\n", len(vectors))
	for _, v := range vectors {
		payload := v.Payload
		if len(payload) > 50 {
			payload = payload[:47] + "..."
		}
		fmt.Printf("  %-20s %-16s bypassed %d  %s\n", v.Category, v.Technique, v.BypassCount, payload)
	}

	fmt.Printf("\nDraft rules: %d (disabled until reviewed)\n", len(rules))
	for _, r := range rules {
		fmt.Printf("  %-24s %-20s threshold %.2f\n", r.Name, r.Category, r.ConfidenceThreshold)
	}
	return nil
}
