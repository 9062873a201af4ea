// Package filter implements the deterministic criteria filter: a pure
// predicate chain over (listing, criteria) whose first failing predicate
// becomes the recorded rejection reason.
package filter

import (
	"strings"
	"time"

	"github.com/seekr-cli/seekr/pkg/models"
)

// Reason identifies the predicate that rejected a listing.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonStalePosting          Reason = "StalePosting"
	ReasonOutsideLocation       Reason = "OutsideLocation"
	ReasonArrangementNotAllowed Reason = "ArrangementNotAllowed"
	ReasonSalaryMismatch        Reason = "SalaryMismatch"
)

// Filter evaluates listings against fixed criteria. It has no side effects
// and re-evaluating the same pair always yields the same result.
type Filter struct {
	criteria *models.JobCriteria
	resolver LocationResolver
	now      func() time.Time
}

// LocationResolver maps a free-text location to coordinates. A nil resolver
// (or an unresolvable location) fails the radius check for onsite listings.
type LocationResolver interface {
	Resolve(location string) (models.Coordinates, bool)
}

// New builds a Filter for one run's criteria.
func New(criteria *models.JobCriteria, resolver LocationResolver) *Filter {
	return &Filter{criteria: criteria, resolver: resolver, now: time.Now}
}

// Evaluate runs the predicate chain in a fixed order and returns the first
// failing reason. A listing with no posting date fails the age check:
// unknown age is treated as stale, not assumed fresh.
func (f *Filter) Evaluate(job *models.JobListing) (bool, Reason) {
	if !f.freshEnough(job) {
		return false, ReasonStalePosting
	}
	if !f.withinLocation(job) {
		return false, ReasonOutsideLocation
	}
	if !f.criteria.AllowsArrangement(job.Arrangement) {
		return false, ReasonArrangementNotAllowed
	}
	if !f.salaryCompatible(job) {
		return false, ReasonSalaryMismatch
	}
	return true, ReasonNone
}

func (f *Filter) freshEnough(job *models.JobListing) bool {
	if f.criteria.PostingAgeDays <= 0 {
		return true
	}
	if job.PostingDate == nil {
		return false
	}
	cutoff := f.now().AddDate(0, 0, -f.criteria.PostingAgeDays)
	return !job.PostingDate.Before(cutoff)
}

// withinLocation passes remote listings, named high-demand areas, and
// anything resolvable to within the configured radius.
func (f *Filter) withinLocation(job *models.JobListing) bool {
	if job.Arrangement == models.ArrangementRemote {
		return true
	}

	loc := f.criteria.Location
	if loc.RadiusMiles <= 0 && len(loc.HighDemandAreas) == 0 {
		return true
	}

	if InHighDemandArea(job.Location, loc.HighDemandAreas) {
		return true
	}

	if f.resolver != nil && loc.RadiusMiles > 0 {
		if coords, ok := f.resolver.Resolve(job.Location); ok {
			return MilesBetween(loc.Origin, coords) <= loc.RadiusMiles
		}
	}

	return false
}

func (f *Filter) salaryCompatible(job *models.JobListing) bool {
	want := f.criteria.Salary
	have := job.Salary
	if want == nil || have == nil {
		return true
	}
	// Ranges must overlap. Max == 0 means open-ended.
	if want.Min > 0 && have.Max > 0 && have.Max < want.Min {
		return false
	}
	if want.Max > 0 && have.Min > 0 && have.Min > want.Max {
		return false
	}
	return true
}

// InHighDemandArea reports whether the location names one of the
// configured high-demand areas.
func InHighDemandArea(location string, areas []string) bool {
	if location == "" {
		return false
	}
	locLower := strings.ToLower(location)
	for _, area := range areas {
		if area != "" && strings.Contains(locLower, strings.ToLower(area)) {
			return true
		}
	}
	return false
}
