package browser

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

const maxAttempts = 3

// Controller wraps a Surface with transient-error retries. Only errors
// with no meaning of their own are retried; a lost session or a typed
// apply outcome goes straight back to the caller.
type Controller struct {
	surface Surface
	backoff *scheduler.Backoff
	log     *zap.SugaredLogger
}

func NewController(surface Surface, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		surface: surface,
		backoff: scheduler.NewBackoff(),
		log:     log,
	}
}

// retryable reports whether a failed primitive is worth another attempt.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrNotEasyApply),
		errors.Is(err, ErrAlreadyApplied),
		errors.Is(err, ErrSubmitIncomplete):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (c *Controller) retry(ctx context.Context, op string, fn func() error) error {
	c.backoff.Reset()
	var final error
	attempt := 0
	err := c.backoff.Retry(ctx, maxAttempts, func() error {
		attempt++
		ferr := fn()
		if !retryable(ferr) {
			// Success, or an error with meaning of its own: stop here and
			// hand it back untouched.
			final = ferr
			return nil
		}
		c.log.Debugw("retrying after transient failure",
			"op", op, "attempt", attempt, "error", ferr)
		return ferr
	})
	if final != nil {
		return final
	}
	return err
}

func (c *Controller) Navigate(ctx context.Context, url string) error {
	return c.retry(ctx, "navigate", func() error {
		return c.surface.Navigate(ctx, url)
	})
}

func (c *Controller) Extract(ctx context.Context, spec SelectorSpec) ([]map[string]string, error) {
	var items []map[string]string
	err := c.retry(ctx, "extract", func() error {
		var ferr error
		items, ferr = c.surface.Extract(ctx, spec)
		return ferr
	})
	return items, err
}

func (c *Controller) Text(ctx context.Context, selectors []string) (string, error) {
	var text string
	err := c.retry(ctx, "text", func() error {
		var ferr error
		text, ferr = c.surface.Text(ctx, selectors)
		return ferr
	})
	return text, err
}

func (c *Controller) Click(ctx context.Context, selectors []string) error {
	return c.retry(ctx, "click", func() error {
		return c.surface.Click(ctx, selectors)
	})
}

// SubmitApplication is never retried as a whole: a failure mid-dialog may
// have partially advanced state on the board.
func (c *Controller) SubmitApplication(ctx context.Context, job *models.JobListing) error {
	return c.surface.SubmitApplication(ctx, job)
}

func (c *Controller) SessionLost(ctx context.Context) error {
	return c.surface.SessionLost(ctx)
}
