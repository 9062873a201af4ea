package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/seekr-cli/seekr/internal/app"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)
)

var (
	flagDebug    bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "seekr",
	Short: "Automated job search and application CLI",
	Long: `Seekr discovers job listings, scores them against your resume, and
applies to the qualified ones through a rate-limited browser session.
All decisions are recorded in a local database for auditing.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cmd.Context(), flagDebug, flagJSONLogs)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		cmd.SetContext(app.IntoContext(cmd.Context(), application))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a := app.FromContext(cmd.Context()); a != nil {
			a.Close()
		}
	},
}

// Execute runs the root command. Interrupt signals cancel the command
// context so a run can finish the application in flight and stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "Emit logs as JSON")
}
