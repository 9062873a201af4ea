package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/seekr-cli/seekr/internal/ai"
	"github.com/seekr-cli/seekr/internal/filter"
	"github.com/seekr-cli/seekr/pkg/models"
)

type stubOracle struct {
	assessment *ai.Assessment
	err        error
	calls      int
}

func (s *stubOracle) Evaluate(ctx context.Context, resumeSummary, jobDescription string) (*ai.Assessment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.assessment, nil
}

func defaultWeights() Weights {
	return Weights{Skills: 0.4, Title: 0.25, Location: 0.15, Oracle: 0.2}
}

func testProfile() *models.ResumeProfile {
	return &models.ResumeProfile{
		Name:           "Test Candidate",
		Skills:         []string{"Go", "PostgreSQL", "Kubernetes", "gRPC"},
		PreferredRoles: []string{"Backend Engineer", "Software Engineer"},
	}
}

func testListing() *models.JobListing {
	return &models.JobListing{
		JobID:       "42",
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Location:    "San Jose, CA",
		Arrangement: models.ArrangementHybrid,
		Description: "We build services in Go on Kubernetes with PostgreSQL.",
	}
}

func sanJoseCriteria() models.LocationCriteria {
	return models.LocationCriteria{
		Origin:      models.Coordinates{Lat: 37.3382, Lon: -121.8863},
		RadiusMiles: 50,
	}
}

func TestScoreWithOracle(t *testing.T) {
	oracle := &stubOracle{assessment: &ai.Assessment{
		Score:          0.9,
		MatchingSkills: []string{"Go", "Docker"},
		Reason:         "solid backend fit",
	}}
	s := New(defaultWeights(), sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, oracle, nil)

	res := s.Score(context.Background(), testListing(), testProfile())
	if oracle.calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", oracle.calls)
	}
	if res.Score <= 0 || res.Score > 1 {
		t.Errorf("score = %v, want in (0, 1]", res.Score)
	}
	// skills 3/4, title 1.0, location 1.0, oracle 0.9
	want := 0.75*0.4 + 1.0*0.25 + 1.0*0.15 + 0.9*0.2
	if diff := res.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v", res.Score, want)
	}
	if res.Rationale != "solid backend fit" {
		t.Errorf("rationale = %q", res.Rationale)
	}
	// Docker comes from the oracle, on top of the three heuristic matches.
	if len(res.MatchedSkills) != 4 {
		t.Errorf("matched skills = %v", res.MatchedSkills)
	}
}

func TestOracleFailureFallsBackToHeuristics(t *testing.T) {
	oracle := &stubOracle{err: errors.New("engine timed out")}
	s := New(defaultWeights(), sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, oracle, nil)

	res := s.Score(context.Background(), testListing(), testProfile())
	if res.Score < 0 || res.Score > 1 {
		t.Fatalf("degraded score = %v, want in [0, 1]", res.Score)
	}
	// Heuristic weights rescaled to sum to 1: skills 0.5, title 0.3125, location 0.1875.
	want := 0.75*0.5 + 1.0*0.3125 + 1.0*0.1875
	if diff := res.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v", res.Score, want)
	}
	if res.Rationale != "heuristic score (oracle unavailable)" {
		t.Errorf("rationale = %q", res.Rationale)
	}
}

func TestNoOracleConfigured(t *testing.T) {
	s := New(defaultWeights(), sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, nil, nil)
	res := s.Score(context.Background(), testListing(), testProfile())
	if res.Score < 0 || res.Score > 1 {
		t.Errorf("score = %v, want in [0, 1]", res.Score)
	}
}

func TestRemoteListingScoresFullLocation(t *testing.T) {
	s := New(Weights{Location: 1.0}, sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, nil, nil)
	job := testListing()
	job.Location = "United States"
	job.Arrangement = models.ArrangementRemote

	res := s.Score(context.Background(), job, testProfile())
	if res.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", res.Score)
	}
}

func TestLocationDecayPastRadius(t *testing.T) {
	s := New(Weights{Location: 1.0}, sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, nil, nil)

	// Within radius.
	if got := s.matchLocation(&models.JobListing{Location: "Sunnyvale, CA"}); got != 1.0 {
		t.Errorf("in-radius score = %v, want 1.0", got)
	}
	// San Francisco is roughly 48 miles out: inside the 50-mile radius.
	if got := s.matchLocation(&models.JobListing{Location: "San Francisco, CA"}); got != 1.0 {
		t.Errorf("edge-of-radius score = %v, want 1.0", got)
	}
	// Seattle is far past 75 miles (1.5x radius): zero.
	if got := s.matchLocation(&models.JobListing{Location: "Seattle, WA"}); got != 0.0 {
		t.Errorf("far score = %v, want 0.0", got)
	}
	// Unresolvable location is neutral, not zero.
	if got := s.matchLocation(&models.JobListing{Location: "Springfield"}); got != 0.5 {
		t.Errorf("unresolved score = %v, want 0.5", got)
	}
}

func TestHighDemandAreaScoresFull(t *testing.T) {
	loc := sanJoseCriteria()
	loc.HighDemandAreas = []string{"Austin"}
	s := New(Weights{Location: 1.0}, loc, filter.NewTableResolver(nil), 1.5, nil, nil)

	if got := s.matchLocation(&models.JobListing{Location: "Austin, TX"}); got != 1.0 {
		t.Errorf("high-demand score = %v, want 1.0", got)
	}
}

func TestTitleMatchBestRole(t *testing.T) {
	s := New(defaultWeights(), sanJoseCriteria(), nil, 1.5, nil, nil)
	profile := testProfile()

	if got := s.matchTitle(&models.JobListing{Title: "Senior Backend Engineer"}, profile); got != 1.0 {
		t.Errorf("exact role score = %v, want 1.0", got)
	}
	if got := s.matchTitle(&models.JobListing{Title: "Dental Hygienist"}, profile); got != 0.0 {
		t.Errorf("unrelated role score = %v, want 0.0", got)
	}
}

func TestEmptyProfileNeutral(t *testing.T) {
	s := New(defaultWeights(), sanJoseCriteria(), filter.NewTableResolver(nil), 1.5, nil, nil)
	res := s.Score(context.Background(), testListing(), &models.ResumeProfile{})
	if res.Score < 0 || res.Score > 1 {
		t.Errorf("score = %v, want in [0, 1]", res.Score)
	}
}
