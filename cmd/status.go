package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seekr-cli/seekr/internal/app"
	"github.com/seekr-cli/seekr/internal/engine"
	"github.com/seekr-cli/seekr/pkg/models"
)

// displayOrder walks the pipeline front to back so the output reads like
// the funnel the records moved through.
var displayOrder = []engine.Status{
	engine.StatusQueued,
	engine.StatusApplying,
	engine.StatusApplied,
	engine.StatusFailed,
	engine.StatusSkipped,
	engine.StatusExcluded,
	engine.StatusRejected,
	engine.StatusDiscovered,
	engine.StatusScored,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View tracked applications",
	Long:  "View every tracked listing grouped by its pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.FromContext(cmd.Context())
		filterStatus, _ := cmd.Flags().GetString("filter")

		if filterStatus != "" {
			if _, err := engine.ParseStatus(filterStatus); err != nil {
				return err
			}
		}

		total := 0
		fmt.Println(titleStyle.Render("Your Applications"))
		for _, status := range displayOrder {
			if filterStatus != "" && filterStatus != string(status) {
				continue
			}
			records, err := a.Store.ListByStatus(string(status))
			if err != nil {
				return fmt.Errorf("fetching %s records: %w", status, err)
			}
			if len(records) == 0 {
				continue
			}

			fmt.Printf("\n%s (%d)\n", labelStyle.Render(statusLabel(status)), len(records))
			for _, rec := range records {
				printRecord(rec)
			}
			total += len(records)
		}

		if total == 0 {
			if filterStatus != "" {
				fmt.Printf("No applications with status '%s'\n", filterStatus)
			} else {
				fmt.Println("No applications yet. Start a run with 'seekr run'")
			}
			return nil
		}

		fmt.Printf("\n%s %d\n", labelStyle.Render("Total:"), total)
		return nil
	},
}

func printRecord(rec *models.ApplicationRecord) {
	fmt.Printf("  %s %s at %s", valueStyle.Render("•"), rec.Title, rec.Company)
	if rec.MatchScore > 0 {
		fmt.Printf(" (%.0f%% match)", rec.MatchScore*100)
	}
	fmt.Println()
	if rec.AppliedAt != nil {
		fmt.Printf("    %s %s\n", labelStyle.Render("Applied:"), rec.AppliedAt.Format("Jan 2, 2006"))
	}
	if rec.Notes != "" {
		fmt.Printf("    %s %s\n", labelStyle.Render("Notes:"), rec.Notes)
	}
}

func statusLabel(s engine.Status) string {
	switch s {
	case engine.StatusDiscovered:
		return "Discovered"
	case engine.StatusRejected:
		return "Filtered Out"
	case engine.StatusScored:
		return "Scored"
	case engine.StatusExcluded:
		return "Excluded Companies"
	case engine.StatusSkipped:
		return "Below Threshold"
	case engine.StatusQueued:
		return "Queued"
	case engine.StatusApplying:
		return "In Progress"
	case engine.StatusApplied:
		return "Applied"
	case engine.StatusFailed:
		return "Failed"
	}
	return string(s)
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("filter", "", "Only show records with this status")
}
