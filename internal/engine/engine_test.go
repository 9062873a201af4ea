package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seekr-cli/seekr/internal/browser"
	"github.com/seekr-cli/seekr/internal/discovery"
	"github.com/seekr-cli/seekr/internal/filter"
	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.ApplicationRecord
	history map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]*models.ApplicationRecord{},
		history: map[string][]string{},
	}
}

func (s *fakeStore) Upsert(rec *models.ApplicationRecord) (*models.ApplicationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.JobID]; ok {
		return existing, false, nil
	}
	rec.ApplicationID = "app-" + rec.JobID
	rec.CreatedAt = time.Now()
	s.records[rec.JobID] = rec
	s.history[rec.JobID] = []string{rec.Status}
	return rec, true, nil
}

func (s *fakeStore) UpdateStatus(jobID, status, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.Notes = notes
	s.history[jobID] = append(s.history[jobID], status)
	return nil
}

func (s *fakeStore) SetScore(jobID string, score float64, matchedSkills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return errors.New("not found")
	}
	rec.MatchScore = score
	rec.MatchedSkills = matchedSkills
	return nil
}

func (s *fakeStore) MarkApplied(jobID string, appliedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = string(StatusApplied)
	rec.AppliedAt = &appliedAt
	s.history[jobID] = append(s.history[jobID], string(StatusApplied))
	return nil
}

func (s *fakeStore) ListByStatus(status string) ([]*models.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ApplicationRecord
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) status(jobID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[jobID]; ok {
		return rec.Status
	}
	return ""
}

type fakeSearcher struct {
	jobs []*models.JobListing
}

func (f *fakeSearcher) Search(ctx context.Context, q discovery.Query, emit func(*models.JobListing) error) (*discovery.Result, error) {
	for _, job := range f.jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := emit(job); err != nil {
			if errors.Is(err, discovery.ErrStop) {
				return &discovery.Result{}, nil
			}
			return nil, err
		}
	}
	return &discovery.Result{}, nil
}

type fakeScorer struct {
	scores map[string]float64
}

func (f *fakeScorer) Score(ctx context.Context, job *models.JobListing, profile *models.ResumeProfile) *models.MatchResult {
	score, ok := f.scores[job.JobID]
	if !ok {
		score = 0.9
	}
	return &models.MatchResult{JobID: job.JobID, Score: score, Rationale: "test"}
}

type fakeSubmitter struct {
	errs  map[string]error
	calls []string
}

func (f *fakeSubmitter) SubmitApplication(ctx context.Context, job *models.JobListing) error {
	f.calls = append(f.calls, job.JobID)
	return f.errs[job.JobID]
}

type countingGate struct {
	admitted int
	limit    int // reject with daily-limit once admitted == limit; 0 = unlimited
	err      error
}

func (g *countingGate) Admit(ctx context.Context, kind scheduler.ActionKind) (*scheduler.Permit, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.limit > 0 && g.admitted >= g.limit {
		return nil, scheduler.ErrDailyLimitExceeded
	}
	g.admitted++
	return nil, nil
}

func freshListing(id string) *models.JobListing {
	posted := time.Now().Add(-24 * time.Hour)
	return &models.JobListing{
		JobID:       id,
		Title:       "Backend Engineer",
		Company:     "Acme",
		Location:    "San Jose, CA",
		Arrangement: models.ArrangementRemote,
		PostingDate: &posted,
		URL:         "https://example.com/jobs/" + id,
	}
}

func testEngine(store *fakeStore, searcher *fakeSearcher, scorer *fakeScorer,
	submit *fakeSubmitter, gate Gate, opts Options) *Engine {

	criteria := &models.JobCriteria{
		PostingAgeDays:    7,
		ExcludedCompanies: []string{"Initech"},
	}
	flt := filter.New(criteria, nil)
	profile := &models.ResumeProfile{Name: "Test", Skills: []string{"Go"}}
	if opts.MinMatchScore == 0 {
		opts.MinMatchScore = 0.7
	}
	return New(store, searcher, scorer, submit, gate, flt, criteria, profile, opts, nil)
}

func TestRunAppliesToQualifiedListings(t *testing.T) {
	store := newFakeStore()
	submit := &fakeSubmitter{errs: map[string]error{}}
	eng := testEngine(store,
		&fakeSearcher{jobs: []*models.JobListing{freshListing("j1"), freshListing("j2")}},
		&fakeScorer{scores: map[string]float64{"j1": 0.9, "j2": 0.85}},
		submit, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Applied != 2 || summary.Discovered != 2 || summary.Queued != 2 {
		t.Errorf("summary = %+v", summary)
	}
	for _, id := range []string{"j1", "j2"} {
		if got := store.status(id); got != string(StatusApplied) {
			t.Errorf("status[%s] = %q, want applied", id, got)
		}
		wantHistory := []string{"discovered", "scored", "queued", "applying", "applied"}
		got := store.history[id]
		if len(got) != len(wantHistory) {
			t.Fatalf("history[%s] = %v", id, got)
		}
		for i := range wantHistory {
			if got[i] != wantHistory[i] {
				t.Errorf("history[%s] = %v, want %v", id, got, wantHistory)
			}
		}
	}
}

func TestRunThresholdBoundary(t *testing.T) {
	store := newFakeStore()
	eng := testEngine(store,
		&fakeSearcher{jobs: []*models.JobListing{freshListing("at"), freshListing("below")}},
		&fakeScorer{scores: map[string]float64{"at": 0.7, "below": 0.69}},
		&fakeSubmitter{}, &countingGate{}, Options{MinMatchScore: 0.7})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A score exactly at the threshold qualifies.
	if got := store.status("at"); got != string(StatusApplied) {
		t.Errorf("status[at] = %q, want applied", got)
	}
	if got := store.status("below"); got != string(StatusSkipped) {
		t.Errorf("status[below] = %q, want skipped", got)
	}
	if summary.Skipped != 1 || summary.Applied != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunRejectsStaleWithReason(t *testing.T) {
	store := newFakeStore()
	stale := freshListing("old")
	posted := time.Now().AddDate(0, 0, -10)
	stale.PostingDate = &posted

	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{stale}},
		&fakeScorer{}, &fakeSubmitter{}, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.status("old"); got != string(StatusRejected) {
		t.Errorf("status = %q, want rejected", got)
	}
	if summary.Rejected[filter.ReasonStalePosting] != 1 {
		t.Errorf("rejected = %v", summary.Rejected)
	}
	if store.records["old"].Notes != string(filter.ReasonStalePosting) {
		t.Errorf("notes = %q", store.records["old"].Notes)
	}
}

func TestRunExcludesCompanyAfterScoring(t *testing.T) {
	store := newFakeStore()
	job := freshListing("x1")
	job.Company = "Initech"

	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{job}},
		&fakeScorer{}, &fakeSubmitter{}, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.status("x1"); got != string(StatusExcluded) {
		t.Errorf("status = %q, want excluded", got)
	}
	if summary.Excluded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	// The score is still recorded for reporting even though the company
	// is excluded.
	if store.records["x1"].MatchScore == 0 {
		t.Error("score not recorded before exclusion")
	}
}

func TestRunDailyLimitKeepsJobsQueued(t *testing.T) {
	store := newFakeStore()
	jobs := []*models.JobListing{freshListing("j1"), freshListing("j2"), freshListing("j3")}
	submit := &fakeSubmitter{errs: map[string]error{}}

	eng := testEngine(store, &fakeSearcher{jobs: jobs}, &fakeScorer{}, submit,
		&countingGate{limit: 1}, Options{PrefetchDepth: 1})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
	if summary.Interruption != "daily application limit reached" {
		t.Errorf("interruption = %q", summary.Interruption)
	}

	queued := 0
	for _, id := range []string{"j1", "j2", "j3"} {
		if store.status(id) == string(StatusQueued) {
			queued++
		}
	}
	if queued == 0 {
		t.Error("expected unapplied jobs to remain queued")
	}
}

func TestRunResumesQueuedBacklog(t *testing.T) {
	store := newFakeStore()
	rec := models.NewRecordFromListing(freshListing("old1"))
	rec.Status = string(StatusQueued)
	store.Upsert(rec)
	store.history["old1"] = []string{string(StatusQueued)}

	submit := &fakeSubmitter{errs: map[string]error{}}
	eng := testEngine(store, &fakeSearcher{}, &fakeScorer{}, submit, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
	if len(submit.calls) != 1 || submit.calls[0] != "old1" {
		t.Errorf("submit calls = %v", submit.calls)
	}
}

func TestRunIdempotentRediscovery(t *testing.T) {
	store := newFakeStore()
	rec := models.NewRecordFromListing(freshListing("seen"))
	rec.Status = string(StatusApplied)
	store.Upsert(rec)

	submit := &fakeSubmitter{errs: map[string]error{}}
	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{freshListing("seen")}},
		&fakeScorer{}, submit, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(submit.calls) != 0 {
		t.Errorf("re-applied to an already-applied job: %v", submit.calls)
	}
	if summary.Discovered != 0 {
		t.Errorf("discovered = %d, want 0", summary.Discovered)
	}
}

func TestRunAlreadyAppliedReconciles(t *testing.T) {
	store := newFakeStore()
	submit := &fakeSubmitter{errs: map[string]error{"j1": browser.ErrAlreadyApplied}}

	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{freshListing("j1")}},
		&fakeScorer{}, submit, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AlreadyApplied != 1 || summary.Applied != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if got := store.status("j1"); got != string(StatusApplied) {
		t.Errorf("status = %q, want applied", got)
	}
}

func TestRunSubmissionFailureIsTerminal(t *testing.T) {
	store := newFakeStore()
	submit := &fakeSubmitter{errs: map[string]error{"j1": errors.New("board hiccup")}}

	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{freshListing("j1")}},
		&fakeScorer{}, submit, &countingGate{}, Options{})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
	if got := store.status("j1"); got != string(StatusFailed) {
		t.Errorf("status = %q, want failed", got)
	}
}

func TestRunSessionExpiredStopsRun(t *testing.T) {
	store := newFakeStore()
	submit := &fakeSubmitter{errs: map[string]error{"j1": browser.ErrSessionExpired}}
	jobs := []*models.JobListing{freshListing("j1"), freshListing("j2")}

	eng := testEngine(store, &fakeSearcher{jobs: jobs}, &fakeScorer{}, submit,
		&countingGate{}, Options{PrefetchDepth: 1})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	// An expired session is a real failure, not a scheduling outcome: the
	// caller must see a non-nil error, not just the summary.
	if !errors.Is(err, browser.ErrSessionExpired) {
		t.Fatalf("Run err = %v, want ErrSessionExpired", err)
	}
	if summary.Interruption != "session expired" {
		t.Errorf("interruption = %q", summary.Interruption)
	}
	if got := store.status("j1"); got != string(StatusFailed) {
		t.Errorf("status[j1] = %q, want failed", got)
	}
	// j2 was never attempted; whatever state it reached, it must not be
	// applying or applied.
	if got := store.status("j2"); got == string(StatusApplied) || got == string(StatusApplying) {
		t.Errorf("status[j2] = %q", got)
	}
}

func TestRunDryRunLeavesJobsQueued(t *testing.T) {
	store := newFakeStore()
	submit := &fakeSubmitter{errs: map[string]error{}}
	gate := &countingGate{}

	eng := testEngine(store, &fakeSearcher{jobs: []*models.JobListing{freshListing("j1")}},
		&fakeScorer{}, submit, gate, Options{DryRun: true})

	summary, err := eng.Run(context.Background(), discovery.Query{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.WouldApply != 1 || summary.Applied != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(submit.calls) != 0 {
		t.Errorf("dry run submitted: %v", submit.calls)
	}
	if gate.admitted != 0 {
		t.Error("dry run consumed an apply admission")
	}
	if got := store.status("j1"); got != string(StatusQueued) {
		t.Errorf("status = %q, want queued", got)
	}
}
