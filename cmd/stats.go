package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seekr-cli/seekr/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View application statistics",
	Long:  "Display totals, status breakdown, average match score, and top companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.FromContext(cmd.Context())

		stats, err := a.Store.Stats()
		if err != nil {
			return fmt.Errorf("computing stats: %w", err)
		}

		if stats.Total == 0 {
			fmt.Println("No applications yet. Start a run with 'seekr run'")
			return nil
		}

		fmt.Println(titleStyle.Render("Application Statistics"))

		fmt.Printf("\n%s\n", labelStyle.Render("Overview"))
		fmt.Printf("  Total Tracked: %d\n", stats.Total)
		if stats.AverageScore > 0 {
			fmt.Printf("  Average Match Score: %.0f%%\n", stats.AverageScore*100)
		}

		applied := stats.ByStatus["applied"]
		if stats.Total > 0 {
			fmt.Printf("  Application Rate: %.1f%%\n", float64(applied)/float64(stats.Total)*100)
		}

		fmt.Printf("\n%s\n", labelStyle.Render("Status Breakdown"))
		for status, count := range stats.ByStatus {
			percentage := float64(count) / float64(stats.Total) * 100
			fmt.Printf("  %s: %d (%.1f%%)\n", status, count, percentage)
		}

		if len(stats.TopCompanies) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("Top Companies"))
			for _, c := range stats.TopCompanies {
				fmt.Printf("  %s: %d\n", c.Company, c.Count)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
