package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seekr-cli/seekr/internal/app"
	"github.com/seekr-cli/seekr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "View and update configuration settings",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := app.FromContext(cmd.Context()).Config

		fmt.Println(titleStyle.Render("Configuration"))
		fmt.Printf("%s %s\n", labelStyle.Render("Config File:"), config.GetConfigPath())
		fmt.Printf("%s %s\n", labelStyle.Render("Keywords:"), orUnset(cfg.Keywords))
		fmt.Printf("%s %s\n", labelStyle.Render("Location:"), orUnset(cfg.Location))
		fmt.Printf("%s %s\n", labelStyle.Render("Resume:"), orUnset(cfg.ResumePath))
		fmt.Printf("%s %v\n", labelStyle.Render("Headless:"), cfg.Headless)
		fmt.Printf("%s %d/day\n", labelStyle.Render("Daily Limit:"), cfg.DailyLimit)
		fmt.Printf("%s %.2f\n", labelStyle.Render("Min Match Score:"), cfg.MinMatchScore)
		fmt.Printf("%s %d days\n", labelStyle.Render("Max Posting Age:"), cfg.PostingAgeDays)

		// Credentials are shown as configured-or-not, never echoed.
		fmt.Printf("%s %s\n", labelStyle.Render("Board Email:"), configured(cfg.BoardEmail))
		fmt.Printf("%s %s\n", labelStyle.Render("Board Password:"), configured(cfg.BoardPassword))
		fmt.Printf("%s %s\n", labelStyle.Render("Oracle Engine:"), orUnset(cfg.OracleEnginePath))
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  seekr config set --key keywords --value "backend engineer"
  seekr config set --key resume_path --value ~/resume.json
  seekr config set --key board_email --value you@example.com
  seekr config set --key daily_limit --value 25`,
	Run: func(cmd *cobra.Command, args []string) {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" || value == "" {
			fmt.Println("Both --key and --value are required")
			return
		}

		validKeys := []string{
			"keywords", "location", "resume_path", "headless", "dry_run",
			"radius_miles", "posting_age_days", "min_match_score",
			"salary_min", "salary_max",
			"daily_limit", "oracle_engine_path",
			"board_email", "board_password",
		}
		valid := false
		for _, k := range validKeys {
			if k == key {
				valid = true
				break
			}
		}
		if !valid {
			fmt.Printf("Invalid key. Must be one of: %v\n", validKeys)
			return
		}

		if err := config.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Configuration updated: %s\n", key)
	},
}

func orUnset(s string) string {
	if s == "" {
		return valueStyle.Render("(not set)")
	}
	return s
}

func configured(s string) string {
	if s == "" {
		return "✗ Not configured"
	}
	return "✓ Configured"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setConfigCmd)

	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")
}
