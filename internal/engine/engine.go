package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/browser"
	"github.com/seekr-cli/seekr/internal/discovery"
	"github.com/seekr-cli/seekr/internal/filter"
	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

// Store is the persistence surface the engine writes through.
type Store interface {
	Upsert(rec *models.ApplicationRecord) (*models.ApplicationRecord, bool, error)
	UpdateStatus(jobID, status, notes string) error
	SetScore(jobID string, score float64, matchedSkills []string) error
	MarkApplied(jobID string, appliedAt time.Time) error
	ListByStatus(status string) ([]*models.ApplicationRecord, error)
}

// Searcher produces listings. Satisfied by *discovery.Discoverer.
type Searcher interface {
	Search(ctx context.Context, q discovery.Query, emit func(*models.JobListing) error) (*discovery.Result, error)
}

// Scorer computes match results. Satisfied by *matcher.Scorer.
type Scorer interface {
	Score(ctx context.Context, job *models.JobListing, profile *models.ResumeProfile) *models.MatchResult
}

// Submitter performs the one mutating action. Satisfied by the browser
// controller.
type Submitter interface {
	SubmitApplication(ctx context.Context, job *models.JobListing) error
}

// Gate admits paced actions. Satisfied by *scheduler.Scheduler.
type Gate interface {
	Admit(ctx context.Context, kind scheduler.ActionKind) (*scheduler.Permit, error)
}

// Options tunes a run.
type Options struct {
	MinMatchScore float64
	PrefetchDepth int
	DryRun        bool
}

// RunSummary is what a finished (or interrupted) run reports.
type RunSummary struct {
	Discovered     int
	Rejected       map[filter.Reason]int
	Excluded       int
	Skipped        int
	Queued         int
	Applied        int
	AlreadyApplied int
	Failed         int
	WouldApply     int // dry run only
	Interruption   string
}

// Engine wires discovery, filtering, scoring, and submission into one run.
type Engine struct {
	store    Store
	searcher Searcher
	scorer   Scorer
	submit   Submitter
	gate     Gate
	filter   *filter.Filter
	criteria *models.JobCriteria
	profile  *models.ResumeProfile
	opts     Options
	log      *zap.SugaredLogger
}

func New(store Store, searcher Searcher, scorer Scorer, submit Submitter, gate Gate,
	flt *filter.Filter, criteria *models.JobCriteria, profile *models.ResumeProfile,
	opts Options, log *zap.SugaredLogger) *Engine {
	if opts.PrefetchDepth < 1 {
		opts.PrefetchDepth = 2
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		store:    store,
		searcher: searcher,
		scorer:   scorer,
		submit:   submit,
		gate:     gate,
		filter:   flt,
		criteria: criteria,
		profile:  profile,
		opts:     opts,
		log:      log,
	}
}

// candidate is a queued job handed from the producer to the apply loop.
type candidate struct {
	job *models.JobListing
}

// Run executes one full pass: re-queue the durable backlog, discover and
// evaluate new listings, and apply serially to everything queued. The
// producer runs ahead of the apply loop by at most PrefetchDepth jobs.
// Cancellation is honored between applications, never in the middle of one.
func (e *Engine) Run(ctx context.Context, q discovery.Query) (*RunSummary, error) {
	summary := &RunSummary{Rejected: map[filter.Reason]int{}}

	candidates := make(chan candidate, e.opts.PrefetchDepth)
	var mu sync.Mutex // guards summary from the producer goroutine
	var producerErr error
	var wg sync.WaitGroup

	prodCtx, stopProducer := context.WithCancel(ctx)
	defer stopProducer()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(candidates)
		producerErr = e.produce(prodCtx, q, candidates, summary, &mu)
	}()

	applyErr := e.applyLoop(ctx, candidates, summary, &mu)
	if applyErr != nil {
		// Stop discovering once we know applications cannot proceed.
		stopProducer()
		for range candidates {
			// drain; these records are already persisted as queued
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if summary.Interruption == "" {
		switch {
		case applyErr != nil:
			summary.Interruption = applyErr.Error()
		case producerErr != nil && !errors.Is(producerErr, context.Canceled):
			summary.Interruption = producerErr.Error()
		}
	}

	e.logSummary(summary)
	switch {
	case applyErr != nil:
		// Scheduling rejections and cancellation end the run by design;
		// the summary carries the cause. Anything else (expired session,
		// a store failure) is a real error for the caller.
		if errors.Is(applyErr, scheduler.ErrDailyLimitExceeded) ||
			errors.Is(applyErr, scheduler.ErrCircuitOpen) ||
			errors.Is(applyErr, context.Canceled) {
			return summary, nil
		}
		return summary, applyErr
	case producerErr != nil && !errors.Is(producerErr, context.Canceled):
		return summary, producerErr
	}
	return summary, nil
}

// produce feeds the backlog and then fresh discoveries into the channel.
func (e *Engine) produce(ctx context.Context, q discovery.Query, out chan<- candidate,
	summary *RunSummary, mu *sync.Mutex) error {

	backlog, err := e.store.ListByStatus(string(StatusQueued))
	if err != nil {
		return fmt.Errorf("loading queued backlog: %w", err)
	}
	for _, rec := range backlog {
		e.log.Debugw("re-queueing from previous run", "job_id", rec.JobID, "company", rec.Company)
		select {
		case out <- candidate{job: listingFromRecord(rec)}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err = e.searcher.Search(ctx, q, func(job *models.JobListing) error {
		queued, err := e.evaluate(ctx, job, summary, mu)
		if err != nil {
			return err
		}
		if !queued {
			return nil
		}
		select {
		case out <- candidate{job: job}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return err
}

// evaluate runs one listing through upsert, filter, scoring, and the
// queueing decision. Returns whether the listing ended up queued.
func (e *Engine) evaluate(ctx context.Context, job *models.JobListing,
	summary *RunSummary, mu *sync.Mutex) (bool, error) {

	rec := models.NewRecordFromListing(job)
	rec.Status = string(StatusDiscovered)
	existing, created, err := e.store.Upsert(rec)
	if err != nil {
		return false, fmt.Errorf("persisting discovery of %s: %w", job.JobID, err)
	}
	if !created {
		// Seen in a previous run; its record already holds a decision.
		e.log.Debugw("listing already tracked", "job_id", job.JobID, "status", existing.Status)
		return false, nil
	}
	mu.Lock()
	summary.Discovered++
	mu.Unlock()

	if ok, reason := e.filter.Evaluate(job); !ok {
		if err := e.advance(job.JobID, StatusDiscovered, StatusRejected, string(reason)); err != nil {
			return false, err
		}
		mu.Lock()
		summary.Rejected[reason]++
		mu.Unlock()
		return false, nil
	}

	match := e.scorer.Score(ctx, job, e.profile)
	if err := e.store.SetScore(job.JobID, match.Score, match.MatchedSkills); err != nil {
		return false, fmt.Errorf("storing score for %s: %w", job.JobID, err)
	}
	if err := e.advance(job.JobID, StatusDiscovered, StatusScored, match.Rationale); err != nil {
		return false, err
	}

	if e.companyExcluded(job.Company) {
		if err := e.advance(job.JobID, StatusScored, StatusExcluded, "excluded company"); err != nil {
			return false, err
		}
		mu.Lock()
		summary.Excluded++
		mu.Unlock()
		return false, nil
	}

	// A score exactly at the threshold qualifies.
	if match.Score < e.opts.MinMatchScore {
		note := fmt.Sprintf("score %.2f below threshold %.2f", match.Score, e.opts.MinMatchScore)
		if err := e.advance(job.JobID, StatusScored, StatusSkipped, note); err != nil {
			return false, err
		}
		mu.Lock()
		summary.Skipped++
		mu.Unlock()
		return false, nil
	}

	if err := e.advance(job.JobID, StatusScored, StatusQueued, ""); err != nil {
		return false, err
	}
	mu.Lock()
	summary.Queued++
	mu.Unlock()
	e.log.Infow("listing queued", "job_id", job.JobID, "title", job.Title,
		"company", job.Company, "score", fmt.Sprintf("%.2f", match.Score))
	return true, nil
}

// applyLoop consumes candidates serially. A daily-limit or open-breaker
// rejection ends the run; everything still queued stays queued durably.
func (e *Engine) applyLoop(ctx context.Context, in <-chan candidate,
	summary *RunSummary, mu *sync.Mutex) error {

	for cand := range in {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			summary.Interruption = "run cancelled"
			mu.Unlock()
			return err
		}

		if e.opts.DryRun {
			e.log.Infow("dry run: would apply", "job_id", cand.job.JobID,
				"title", cand.job.Title, "company", cand.job.Company)
			mu.Lock()
			summary.WouldApply++
			mu.Unlock()
			continue
		}

		permit, err := e.gate.Admit(ctx, scheduler.ActionApply)
		if err != nil {
			mu.Lock()
			switch {
			case errors.Is(err, scheduler.ErrDailyLimitExceeded):
				summary.Interruption = "daily application limit reached"
			case errors.Is(err, scheduler.ErrCircuitOpen):
				summary.Interruption = "circuit breaker open"
			default:
				summary.Interruption = err.Error()
			}
			mu.Unlock()
			return err
		}

		if err := e.applyOne(ctx, cand.job, permit, summary, mu); err != nil {
			return err
		}
	}
	return nil
}

// applyOne moves a single queued job through applying to a terminal state.
// The submission itself runs under a context that survives cancellation:
// once a form walk starts, it finishes and its outcome is recorded.
func (e *Engine) applyOne(ctx context.Context, job *models.JobListing,
	permit *scheduler.Permit, summary *RunSummary, mu *sync.Mutex) error {

	if err := e.advance(job.JobID, StatusQueued, StatusApplying, ""); err != nil {
		permit.Report(nil)
		return err
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Minute)
	err := e.submit.SubmitApplication(submitCtx, job)
	cancel()

	permit.Report(breakerOutcome(err))

	switch {
	case err == nil:
		if serr := e.store.MarkApplied(job.JobID, time.Now()); serr != nil {
			return fmt.Errorf("recording application for %s: %w", job.JobID, serr)
		}
		mu.Lock()
		summary.Applied++
		mu.Unlock()

	case errors.Is(err, browser.ErrAlreadyApplied):
		// The board knows better than our records; reconcile to applied.
		if serr := e.store.MarkApplied(job.JobID, time.Now()); serr != nil {
			return fmt.Errorf("reconciling application for %s: %w", job.JobID, serr)
		}
		mu.Lock()
		summary.AlreadyApplied++
		mu.Unlock()

	case errors.Is(err, browser.ErrSessionExpired):
		if serr := e.advance(job.JobID, StatusApplying, StatusFailed, err.Error()); serr != nil {
			return serr
		}
		mu.Lock()
		summary.Failed++
		summary.Interruption = "session expired"
		mu.Unlock()
		return err

	default:
		if serr := e.advance(job.JobID, StatusApplying, StatusFailed, err.Error()); serr != nil {
			return serr
		}
		mu.Lock()
		summary.Failed++
		mu.Unlock()
		e.log.Warnw("application failed", "job_id", job.JobID, "error", err)
	}
	return nil
}

// advance guards a status write with the transition table.
func (e *Engine) advance(jobID string, from, to Status, notes string) error {
	if err := CheckTransition(from, to); err != nil {
		return err
	}
	if err := e.store.UpdateStatus(jobID, string(to), notes); err != nil {
		return fmt.Errorf("moving %s to %s: %w", jobID, to, err)
	}
	return nil
}

// breakerOutcome maps a submission result to what the circuit breaker
// should see. Deliberate outcomes (not quick-apply, already applied, a form
// we refuse to guess at) are not infrastructure failures.
func breakerOutcome(err error) error {
	if errors.Is(err, browser.ErrAlreadyApplied) ||
		errors.Is(err, browser.ErrNotEasyApply) ||
		errors.Is(err, browser.ErrSubmitIncomplete) {
		return nil
	}
	return err
}

func (e *Engine) companyExcluded(company string) bool {
	for _, excluded := range e.criteria.ExcludedCompanies {
		if excluded != "" && strings.EqualFold(strings.TrimSpace(excluded), strings.TrimSpace(company)) {
			return true
		}
	}
	return false
}

// listingFromRecord rebuilds enough of a listing from its snapshot to
// submit an application.
func listingFromRecord(rec *models.ApplicationRecord) *models.JobListing {
	return &models.JobListing{
		JobID:       rec.JobID,
		Title:       rec.Title,
		Company:     rec.Company,
		Location:    rec.Location,
		Arrangement: rec.Arrangement,
		PostingDate: rec.PostingDate,
		Description: rec.Description,
		Salary:      rec.Salary,
		URL:         rec.URL,
	}
}

func (e *Engine) logSummary(s *RunSummary) {
	dropped := 0
	for _, n := range s.Rejected {
		dropped += n
	}
	e.log.Infow("run finished",
		"discovered", s.Discovered,
		"rejected", dropped,
		"excluded", s.Excluded,
		"skipped", s.Skipped,
		"queued", s.Queued,
		"applied", s.Applied,
		"already_applied", s.AlreadyApplied,
		"failed", s.Failed,
		"would_apply", s.WouldApply,
		"interruption", s.Interruption,
	)
}
