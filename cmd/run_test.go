package cmd

import (
	"context"
	"testing"

	"github.com/seekr-cli/seekr/internal/browser"
	"github.com/seekr-cli/seekr/internal/discovery"
	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

// pagedSurface serves one result card on the first page and nothing after,
// counting every navigation.
type pagedSurface struct {
	navigations int
	extracts    int
}

func (s *pagedSurface) Navigate(ctx context.Context, url string) error {
	s.navigations++
	return nil
}

func (s *pagedSurface) Extract(ctx context.Context, spec browser.SelectorSpec) ([]map[string]string, error) {
	s.extracts++
	if s.extracts > 1 {
		return nil, nil
	}
	return []map[string]string{{
		"data-job-id": "4001",
		"title":       "Platform Engineer",
		"company":     "Acme",
		"title_url":   "https://www.linkedin.com/jobs/view/4001",
	}}, nil
}

func (s *pagedSurface) Text(ctx context.Context, selectors []string) (string, error) {
	return "Full description body", nil
}

func (s *pagedSurface) Click(ctx context.Context, selectors []string) error { return nil }

func (s *pagedSurface) SubmitApplication(ctx context.Context, job *models.JobListing) error {
	return nil
}

func (s *pagedSurface) SessionLost(ctx context.Context) error { return nil }

type admissionCounter struct {
	admitted int
}

func (g *admissionCounter) Admit(ctx context.Context, kind scheduler.ActionKind) (*scheduler.Permit, error) {
	g.admitted++
	return nil, nil
}

func TestEnrichedSearcherAdmitsEveryNavigation(t *testing.T) {
	surface := &pagedSurface{}
	gate := &admissionCounter{}
	searcher := &enrichedSearcher{
		disc: discovery.New(surface, gate, nil),
		gate: gate,
		log:  nil,
	}

	var emitted []*models.JobListing
	_, err := searcher.Search(context.Background(), discovery.Query{Keywords: "go"},
		func(job *models.JobListing) error {
			emitted = append(emitted, job)
			return nil
		})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(emitted) != 1 {
		t.Fatalf("emitted = %d, want 1", len(emitted))
	}
	if emitted[0].Description == "" {
		t.Error("description was not enriched")
	}
	// Two result pages plus one listing page: every browser navigation must
	// carry its own admission.
	if surface.navigations != gate.admitted {
		t.Errorf("navigations = %d, admissions = %d; description fetches must be paced too",
			surface.navigations, gate.admitted)
	}
	if gate.admitted != 3 {
		t.Errorf("admissions = %d, want 3 (two pages + one description)", gate.admitted)
	}
}
