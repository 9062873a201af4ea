package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/seekr-cli/seekr/internal/app"
	"github.com/seekr-cli/seekr/internal/browser"
)

const boardLoginURL = "https://www.linkedin.com/login"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the job board and save the session",
	Long: `Open a browser, log in with your configured credentials, and save the
session cookies so later runs skip the login page. If the board asks for a
security verification, complete it in the browser window; the session is
saved once the check passes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.FromContext(cmd.Context())
		cfg := a.Config

		email := cfg.BoardEmail
		password := cfg.BoardPassword
		if email == "" {
			prompt := promptui.Prompt{Label: "Email"}
			v, err := prompt.Run()
			if err != nil {
				return err
			}
			email = strings.TrimSpace(v)
		}
		if password == "" {
			prompt := promptui.Prompt{Label: "Password", Mask: '*'}
			v, err := prompt.Run()
			if err != nil {
				return err
			}
			password = v
		}
		if email == "" || password == "" {
			return app.ErrNoCredentials
		}

		sessionPath, err := a.SessionPath()
		if err != nil {
			return err
		}

		// Login runs headful so a verification challenge can be solved by
		// hand.
		chrome := browser.New(browser.Options{
			Headless:    false,
			SessionPath: sessionPath,
		}, a.Log.Sugar())
		if err := chrome.Start(cmd.Context()); err != nil {
			return fmt.Errorf("starting browser: %w", err)
		}
		defer chrome.Stop()

		if err := chrome.Login(cmd.Context(), boardLoginURL, email, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Println("✓ Logged in. Session saved for future runs.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
