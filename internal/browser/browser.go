// Package browser drives a Chrome instance for the job board. It owns the
// anti-detection setup, session persistence, and the page-level primitives
// higher layers build on.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/pkg/models"
)

var (
	// ErrSessionExpired means the board bounced us to a login or security
	// checkpoint page. Not transient: the run must stop and ask the user
	// to log in again.
	ErrSessionExpired = errors.New("board session expired or hit a security checkpoint")
	// ErrNotEasyApply means the listing needs an external application.
	ErrNotEasyApply = errors.New("listing does not support quick apply")
	// ErrAlreadyApplied means the board reports a prior application.
	ErrAlreadyApplied = errors.New("already applied to this listing")
	// ErrSubmitIncomplete means the apply dialog could not be walked to a
	// submit button, usually because it wants answers we cannot infer.
	ErrSubmitIncomplete = errors.New("application form requires manual input")
)

const (
	pageLoadTimeout = 30 * time.Second
	debuggerURL     = "http://localhost:9222"
)

// SelectorSpec describes a tolerant extraction: for the container and for
// each field, candidate selectors are tried in order and the first that
// yields text wins. Missing fields come back as empty strings, not errors.
type SelectorSpec struct {
	Containers []string
	Fields     map[string][]string
	// LinkField, when set, also captures the href of that field's element
	// under "<LinkField>_url".
	LinkField string
	Limit     int
}

// Surface is the page-level contract the discovery and apply layers use.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Extract(ctx context.Context, spec SelectorSpec) ([]map[string]string, error)
	Text(ctx context.Context, selectors []string) (string, error)
	Click(ctx context.Context, selectors []string) error
	SubmitApplication(ctx context.Context, job *models.JobListing) error
	SessionLost(ctx context.Context) error
}

// Options configures a Chrome session.
type Options struct {
	Headless    bool
	SessionPath string
	UserAgent   string // empty picks one at random
}

// Chrome implements Surface over a chromedp session. Not safe for
// concurrent use; the engine serializes all page work.
type Chrome struct {
	opts      Options
	userAgent string
	attached  bool

	ctx     context.Context
	cancels []context.CancelFunc
	log     *zap.SugaredLogger
}

// New prepares a Chrome session without starting it.
func New(opts Options, log *zap.SugaredLogger) *Chrome {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Chrome{opts: opts, log: log}
}

// Start connects to the browser. A Chrome already running with its
// debugging port open is preferred over launching a fresh instance: reusing
// the user's real browser carries their real session and fingerprint.
func (c *Chrome) Start(ctx context.Context) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	c.userAgent = c.opts.UserAgent
	if c.userAgent == "" {
		c.userAgent = pickUserAgent(r)
	}

	var allocCtx context.Context
	var cancel context.CancelFunc
	if debuggerAvailable() {
		c.log.Infow("attaching to running browser", "url", debuggerURL)
		allocCtx, cancel = chromedp.NewRemoteAllocator(ctx, debuggerURL)
		c.attached = true
	} else {
		vp := pickViewport(r)
		c.log.Debugw("launching browser", "headless", c.opts.Headless,
			"viewport", fmt.Sprintf("%dx%d", vp.Width, vp.Height))
		allocCtx, cancel = chromedp.NewExecAllocator(ctx,
			allocatorOptions(c.opts.Headless, c.userAgent, vp)...)
	}
	c.cancels = append(c.cancels, cancel)

	browserCtx, cancel2 := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...any) {
		msg := fmt.Sprintf(format, v...)
		if strings.Contains(msg, "could not unmarshal event") {
			return
		}
		c.log.Debugf(format, v...)
	}))
	c.cancels = append(c.cancels, cancel2)
	c.ctx = browserCtx

	if err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})); err != nil {
		c.Stop()
		return fmt.Errorf("installing stealth script: %w", err)
	}

	if err := c.restoreSession(); err != nil {
		c.log.Warnw("could not restore saved session", "error", err)
	}
	return nil
}

// Stop tears the session down, saving cookies first so the next run can
// skip login.
func (c *Chrome) Stop() {
	if c.ctx != nil {
		if err := c.saveSession(); err != nil {
			c.log.Debugw("session save on shutdown failed", "error", err)
		}
	}
	for i := len(c.cancels) - 1; i >= 0; i-- {
		c.cancels[i]()
	}
	c.cancels = nil
	c.ctx = nil
}

func debuggerAvailable() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(debuggerURL + "/json/version")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Chrome) restoreSession() error {
	if c.opts.SessionPath == "" {
		return nil
	}
	snap, err := LoadSnapshot(c.opts.SessionPath)
	if err != nil || snap == nil {
		return err
	}
	c.log.Debugw("restoring session", "cookies", len(snap.Cookies), "saved_at", snap.SavedAt)
	return chromedp.Run(c.ctx, network.SetCookies(snap.cookieParams()))
}

func (c *Chrome) saveSession() error {
	if c.opts.SessionPath == "" {
		return nil
	}
	var cookies []*network.Cookie
	err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return err
	}
	return SaveSnapshot(c.opts.SessionPath, snapshotFromCookies(cookies, c.userAgent))
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(c.ctx, pageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return c.SessionLost(ctx)
}

// SessionLost checks the current URL for a login or checkpoint redirect.
func (c *Chrome) SessionLost(ctx context.Context) error {
	var currentURL string
	if err := chromedp.Run(c.ctx, chromedp.Location(&currentURL)); err != nil {
		return fmt.Errorf("reading location: %w", err)
	}
	if strings.Contains(currentURL, "/login") || strings.Contains(currentURL, "/checkpoint") ||
		strings.Contains(currentURL, "/authwall") {
		return ErrSessionExpired
	}
	return nil
}

// Extract runs the generated multi-selector script and returns one map per
// container found. Fields that match nothing are empty strings.
func (c *Chrome) Extract(ctx context.Context, spec SelectorSpec) ([]map[string]string, error) {
	script, err := buildExtractScript(spec)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithTimeout(c.ctx, pageLoadTimeout)
	defer cancel()

	var items []map[string]string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &items)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("extracting listings: %w", err)
	}
	return items, nil
}

// Text returns the first non-empty text among the candidate selectors.
func (c *Chrome) Text(ctx context.Context, selectors []string) (string, error) {
	runCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	for _, sel := range selectors {
		var text string
		err := chromedp.Run(runCtx, chromedp.Text(sel, &text, chromedp.ByQuery, chromedp.AtLeast(0)))
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
		if runCtx.Err() != nil {
			break
		}
	}
	return "", nil
}

// Click clicks the first candidate selector that exists on the page.
func (c *Chrome) Click(ctx context.Context, selectors []string) error {
	runCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	for _, sel := range selectors {
		var found bool
		if err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, sel), &found),
		); err != nil {
			return err
		}
		if found {
			return chromedp.Run(runCtx,
				chromedp.Click(sel, chromedp.ByQuery),
				chromedp.Sleep(time.Second),
			)
		}
	}
	return fmt.Errorf("no selector matched: %s", strings.Join(selectors, ", "))
}

// TypeHuman types into a field with per-keystroke delays so input timing
// looks like a person, not a paste.
func (c *Chrome) TypeHuman(ctx context.Context, selector, text string) error {
	runCtx, cancel := context.WithTimeout(c.ctx, 60*time.Second)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return err
	}
	for _, ch := range text {
		if err := chromedp.Run(runCtx,
			chromedp.SendKeys(selector, string(ch), chromedp.ByQuery),
			chromedp.Sleep(time.Duration(50+rand.Intn(120))*time.Millisecond),
		); err != nil {
			return err
		}
	}
	return nil
}

func cdpTimeSinceEpoch(sec float64) cdp.TimeSinceEpoch {
	return cdp.TimeSinceEpoch(time.Unix(int64(sec), 0))
}
