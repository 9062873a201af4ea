package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/seekr-cli/seekr/pkg/models"
)

// Modal step bound: a quick-apply dialog past this many screens wants
// free-form answers we refuse to guess at.
const maxApplySteps = 5

var (
	easyApplySelectors = []string{
		`button[aria-label*="Easy Apply"]`,
		`button.jobs-apply-button`,
		`div[class*="easy-apply"] button`,
	}
	submitSelectors = []string{
		`button[aria-label*="Submit application"]`,
	}
	advanceSelectors = []string{
		`button[aria-label*="Continue to next step"]`,
		`button[aria-label*="Review your application"]`,
	}
	dismissSelectors = []string{
		`button[aria-label*="Dismiss"]`,
		`button[aria-label*="Cancel"]`,
	}
	appliedMarkerSelectors = []string{
		`.jobs-details__main-content .artdeco-inline-feedback--success`,
		`span.jobs-s-apply__applied-date`,
	}
	// What the board shows once a submission actually lands: the
	// post-apply modal or an inline success banner.
	submittedFeedbackSelectors = []string{
		`div[class*="post-apply"]`,
		`.artdeco-modal h2[id*="post-apply"]`,
		`.artdeco-inline-feedback--success`,
	}
	requiredErrorSelectors = []string{
		`.artdeco-inline-feedback--error`,
		`[role="alert"]`,
	}
)

const applyDialogSelector = `div[role="dialog"]`

// SubmitApplication walks the quick-apply dialog for one listing: open the
// listing, click apply, advance the modal, submit. It is the only primitive
// that mutates anything on the board, so every exit path is deliberate: on
// failure the dialog is dismissed rather than left half-filled.
func (c *Chrome) SubmitApplication(ctx context.Context, job *models.JobListing) error {
	if err := c.Navigate(ctx, job.URL); err != nil {
		return err
	}

	if c.hasAny(appliedMarkerSelectors) {
		return ErrAlreadyApplied
	}
	if !c.hasAny(easyApplySelectors) {
		return ErrNotEasyApply
	}

	if err := c.Click(ctx, easyApplySelectors); err != nil {
		return fmt.Errorf("opening apply dialog: %w", err)
	}
	if !c.hasAny([]string{applyDialogSelector}) {
		// No dialog means the button was an external redirect.
		return ErrNotEasyApply
	}

	for step := 0; step < maxApplySteps; step++ {
		if c.hasAny(submitSelectors) {
			if err := c.Click(ctx, submitSelectors); err != nil {
				c.dismissDialog()
				return fmt.Errorf("submitting application: %w", err)
			}
			// The click alone proves nothing; wait for the board to
			// acknowledge before recording the application.
			if !c.confirmSubmitted() {
				c.dismissDialog()
				return ErrSubmitIncomplete
			}
			c.log.Infow("application submitted", "job_id", job.JobID, "company", job.Company)
			return nil
		}
		if !c.hasAny(advanceSelectors) {
			break
		}
		if err := c.Click(ctx, advanceSelectors); err != nil {
			c.dismissDialog()
			return fmt.Errorf("advancing apply dialog: %w", err)
		}
		if c.hasRequiredErrors() {
			break
		}
	}

	c.dismissDialog()
	return ErrSubmitIncomplete
}

// hasAny reports whether any selector matches the current page.
func (c *Chrome) hasAny(selectors []string) bool {
	runCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	for _, sel := range selectors {
		var found bool
		if err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, sel), &found),
		); err == nil && found {
			return true
		}
	}
	return false
}

// hasRequiredErrors detects validation messages the dialog raises when a
// required question was left blank.
func (c *Chrome) hasRequiredErrors() bool {
	return c.hasAny(requiredErrorSelectors)
}

type submitState int

const (
	submitPending submitState = iota
	submitConfirmed
	submitFailed
)

// classifySubmission reads the page once after the submit click: the board
// either shows success feedback, keeps the dialog open with a validation
// error, or has not settled yet. A dialog that closed without any error
// feedback counts as accepted.
func classifySubmission(has func(selectors []string) bool) submitState {
	if has(submittedFeedbackSelectors) || has(appliedMarkerSelectors) {
		return submitConfirmed
	}
	if has([]string{applyDialogSelector}) {
		if has(requiredErrorSelectors) {
			return submitFailed
		}
		return submitPending
	}
	if has(requiredErrorSelectors) {
		return submitFailed
	}
	return submitConfirmed
}

// confirmSubmitted polls until the submission outcome is visible or the
// window elapses. An unsettled dialog at the deadline is a failure.
func (c *Chrome) confirmSubmitted() bool {
	deadline := time.Now().Add(15 * time.Second)
	for {
		switch classifySubmission(c.hasAny) {
		case submitConfirmed:
			return true
		case submitFailed:
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Second)
	}
}

func (c *Chrome) dismissDialog() {
	runCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	for _, sel := range dismissSelectors {
		var found bool
		if err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, sel), &found),
		); err == nil && found {
			_ = chromedp.Run(runCtx, chromedp.Click(sel, chromedp.ByQuery), chromedp.Sleep(time.Second))
			// A dismiss can raise a discard-confirmation dialog.
			discard := `button[data-control-name="discard_application_confirm_btn"]`
			if err := chromedp.Run(runCtx,
				chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, discard), &found),
			); err == nil && found {
				_ = chromedp.Run(runCtx, chromedp.Click(discard, chromedp.ByQuery))
			}
			return
		}
	}
}

// Login signs in with human-paced typing and saves the session on success.
func (c *Chrome) Login(ctx context.Context, loginURL, email, password string) error {
	if err := chromedp.Run(c.ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(`#username, input[name="session_key"]`, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}

	emailField := `#username`
	passwordField := `#password`
	if !c.hasAny([]string{emailField}) {
		emailField = `input[name="session_key"]`
		passwordField = `input[name="session_password"]`
	}

	if err := c.TypeHuman(ctx, emailField, email); err != nil {
		return fmt.Errorf("entering email: %w", err)
	}
	time.Sleep(700 * time.Millisecond)
	if err := c.TypeHuman(ctx, passwordField, password); err != nil {
		return fmt.Errorf("entering password: %w", err)
	}
	time.Sleep(500 * time.Millisecond)

	if err := chromedp.Run(c.ctx,
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(5*time.Second),
	); err != nil {
		return fmt.Errorf("submitting login: %w", err)
	}

	var currentURL string
	if err := chromedp.Run(c.ctx, chromedp.Location(&currentURL)); err != nil {
		return err
	}
	if strings.Contains(currentURL, "/login") || strings.Contains(currentURL, "/checkpoint") {
		return fmt.Errorf("login did not complete; resolve any verification in the browser and retry")
	}

	if err := c.saveSession(); err != nil {
		c.log.Warnw("could not persist session after login", "error", err)
	}
	return nil
}
