package filter

import (
	"testing"
	"time"

	"github.com/seekr-cli/seekr/pkg/models"
)

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}

func baseCriteria() *models.JobCriteria {
	return &models.JobCriteria{
		PostingAgeDays: 7,
		Location: models.LocationCriteria{
			Origin:      models.Coordinates{Lat: 37.3382, Lon: -121.8863}, // San Jose
			RadiusMiles: 50,
		},
	}
}

func baseListing() *models.JobListing {
	return &models.JobListing{
		JobID:       "1001",
		Title:       "Software Engineer",
		Company:     "Acme",
		Location:    "San Jose, CA",
		Arrangement: models.ArrangementHybrid,
		PostingDate: daysAgo(1),
	}
}

func TestStalePostingRejectedFirst(t *testing.T) {
	// An otherwise-perfect listing posted 10 days ago must fail on age
	// before any other predicate runs.
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.PostingDate = daysAgo(10)

	ok, reason := f.Evaluate(job)
	if ok {
		t.Fatal("expected rejection for 10-day-old posting")
	}
	if reason != ReasonStalePosting {
		t.Errorf("reason = %q, want %q", reason, ReasonStalePosting)
	}
}

func TestMissingPostingDateTreatedAsStale(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.PostingDate = nil

	ok, reason := f.Evaluate(job)
	if ok || reason != ReasonStalePosting {
		t.Errorf("got (%v, %q), want (false, %q)", ok, reason, ReasonStalePosting)
	}
}

func TestAgeCheckDisabledWhenZero(t *testing.T) {
	c := baseCriteria()
	c.PostingAgeDays = 0
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.PostingDate = nil

	if ok, reason := f.Evaluate(job); !ok {
		t.Errorf("expected pass with age check disabled, got %q", reason)
	}
}

func TestFreshListingPasses(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	if ok, reason := f.Evaluate(baseListing()); !ok {
		t.Errorf("expected pass, got %q", reason)
	}
}

func TestRemoteBypassesLocation(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.Location = "Boston, MA"
	job.Arrangement = models.ArrangementRemote

	if ok, reason := f.Evaluate(job); !ok {
		t.Errorf("remote listing should bypass radius, got %q", reason)
	}
}

func TestOutsideRadiusRejected(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.Location = "Seattle, WA"

	ok, reason := f.Evaluate(job)
	if ok || reason != ReasonOutsideLocation {
		t.Errorf("got (%v, %q), want (false, %q)", ok, reason, ReasonOutsideLocation)
	}
}

func TestHighDemandAreaPasses(t *testing.T) {
	c := baseCriteria()
	c.Location.HighDemandAreas = []string{"Seattle"}
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.Location = "Seattle, WA"

	if ok, reason := f.Evaluate(job); !ok {
		t.Errorf("high-demand area should pass, got %q", reason)
	}
}

func TestUnresolvableLocationRejected(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.Location = "Springfield"

	ok, reason := f.Evaluate(job)
	if ok || reason != ReasonOutsideLocation {
		t.Errorf("got (%v, %q), want (false, %q)", ok, reason, ReasonOutsideLocation)
	}
}

func TestArrangementNotAllowed(t *testing.T) {
	c := baseCriteria()
	c.WorkArrangements = []models.WorkArrangement{models.ArrangementRemote}
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.Arrangement = models.ArrangementOnsite

	ok, reason := f.Evaluate(job)
	if ok || reason != ReasonArrangementNotAllowed {
		t.Errorf("got (%v, %q), want (false, %q)", ok, reason, ReasonArrangementNotAllowed)
	}
}

func TestUnknownArrangementPasses(t *testing.T) {
	c := baseCriteria()
	c.WorkArrangements = []models.WorkArrangement{models.ArrangementRemote}
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.Arrangement = models.ArrangementUnknown
	job.Location = "San Jose, CA"

	if ok, reason := f.Evaluate(job); !ok {
		t.Errorf("unknown arrangement should not be excluded, got %q", reason)
	}
}

func TestSalaryMismatch(t *testing.T) {
	c := baseCriteria()
	c.Salary = &models.SalaryBounds{Min: 150000}
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.Salary = &models.SalaryBounds{Min: 90000, Max: 120000}

	ok, reason := f.Evaluate(job)
	if ok || reason != ReasonSalaryMismatch {
		t.Errorf("got (%v, %q), want (false, %q)", ok, reason, ReasonSalaryMismatch)
	}
}

func TestMissingSalaryPasses(t *testing.T) {
	c := baseCriteria()
	c.Salary = &models.SalaryBounds{Min: 150000}
	f := New(c, NewTableResolver(nil))
	job := baseListing()
	job.Salary = nil

	if ok, reason := f.Evaluate(job); !ok {
		t.Errorf("missing salary should pass, got %q", reason)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	f := New(baseCriteria(), NewTableResolver(nil))
	job := baseListing()
	job.Location = "Seattle, WA"

	ok1, r1 := f.Evaluate(job)
	ok2, r2 := f.Evaluate(job)
	if ok1 != ok2 || r1 != r2 {
		t.Errorf("results differ across evaluations: (%v,%q) vs (%v,%q)", ok1, r1, ok2, r2)
	}
}

func TestMilesBetween(t *testing.T) {
	sj := models.Coordinates{Lat: 37.3382, Lon: -121.8863}
	sf := models.Coordinates{Lat: 37.7749, Lon: -122.4194}
	d := MilesBetween(sj, sf)
	if d < 40 || d > 55 {
		t.Errorf("San Jose to San Francisco = %.1f miles, want roughly 48", d)
	}
	if MilesBetween(sj, sj) != 0 {
		t.Error("distance to self should be zero")
	}
}
