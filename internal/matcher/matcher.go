// Package matcher computes a weighted match score for a listing against the
// candidate's resume profile. Scores are always in [0.0, 1.0].
package matcher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/ai"
	"github.com/seekr-cli/seekr/internal/filter"
	"github.com/seekr-cli/seekr/pkg/models"
)

// Weights controls how the sub-scores combine. They must sum to 1.0;
// config validates that at load time.
type Weights struct {
	Skills   float64
	Title    float64
	Location float64
	Oracle   float64
}

// Scorer scores listings. The oracle is optional; without one (or when it
// fails) its weight is redistributed across the heuristic sub-scores.
type Scorer struct {
	weights  Weights
	location models.LocationCriteria
	resolver filter.LocationResolver
	// decayLimit is the multiple of the radius at which the location
	// sub-score reaches zero.
	decayLimit float64
	oracle     ai.Oracle
	log        *zap.SugaredLogger
}

func New(weights Weights, location models.LocationCriteria, resolver filter.LocationResolver, decayLimit float64, oracle ai.Oracle, log *zap.SugaredLogger) *Scorer {
	if decayLimit <= 1.0 {
		decayLimit = 1.5
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scorer{
		weights:    weights,
		location:   location,
		resolver:   resolver,
		decayLimit: decayLimit,
		oracle:     oracle,
		log:        log,
	}
}

// Score computes the composite score for one listing.
func (s *Scorer) Score(ctx context.Context, job *models.JobListing, profile *models.ResumeProfile) *models.MatchResult {
	skillScore, matched := s.matchSkills(job, profile)
	titleScore := s.matchTitle(job, profile)
	locScore := s.matchLocation(job)

	w := s.weights
	rationale := ""

	oracleScore, err := s.askOracle(ctx, job, profile)
	if err != nil {
		// Degrade to heuristics only: fold the oracle weight into the
		// others proportionally so the total still sums to 1.
		s.log.Warnw("oracle unavailable, falling back to heuristic score",
			"job_id", job.JobID, "error", err)
		heuristic := w.Skills + w.Title + w.Location
		if heuristic > 0 {
			scale := (heuristic + w.Oracle) / heuristic
			w.Skills *= scale
			w.Title *= scale
			w.Location *= scale
		}
		w.Oracle = 0
		rationale = "heuristic score (oracle unavailable)"
	} else {
		rationale = oracleScore.Reason
		for _, skill := range oracleScore.MatchingSkills {
			matched = appendUnique(matched, skill)
		}
	}

	score := skillScore*w.Skills + titleScore*w.Title + locScore*w.Location
	if w.Oracle > 0 {
		score += oracleScore.Score * w.Oracle
	}
	score = clamp01(score)

	if rationale == "" {
		rationale = fmt.Sprintf("skills %.2f, title %.2f, location %.2f", skillScore, titleScore, locScore)
	}

	return &models.MatchResult{
		JobID:         job.JobID,
		Score:         score,
		MatchedSkills: matched,
		Rationale:     rationale,
	}
}

func (s *Scorer) askOracle(ctx context.Context, job *models.JobListing, profile *models.ResumeProfile) (*ai.Assessment, error) {
	if s.oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}
	return s.oracle.Evaluate(ctx, summarize(profile), job.Title+"\n"+job.Description)
}

// matchSkills checks how many profile skills appear in the listing's title
// or description. Returns the ratio and the matched skill names.
func (s *Scorer) matchSkills(job *models.JobListing, profile *models.ResumeProfile) (float64, []string) {
	if len(profile.Skills) == 0 {
		return 0.5, nil
	}
	haystack := strings.ToLower(job.Title + " " + job.Description)
	if strings.TrimSpace(haystack) == "" {
		return 0.5, nil
	}

	matched := []string{}
	for _, skill := range profile.Skills {
		if skill != "" && strings.Contains(haystack, strings.ToLower(skill)) {
			matched = append(matched, skill)
		}
	}
	return float64(len(matched)) / float64(len(profile.Skills)), matched
}

// matchTitle compares the listing title against the candidate's preferred
// roles by word overlap, taking the best role.
func (s *Scorer) matchTitle(job *models.JobListing, profile *models.ResumeProfile) float64 {
	roles := profile.PreferredRoles
	if len(roles) == 0 {
		for _, exp := range profile.Experience {
			roles = append(roles, exp.Title)
		}
	}
	if len(roles) == 0 || job.Title == "" {
		return 0.5
	}

	titleWords := keywordSet(job.Title)
	if len(titleWords) == 0 {
		return 0.5
	}

	best := 0.0
	for _, role := range roles {
		roleWords := keywordSet(role)
		if len(roleWords) == 0 {
			continue
		}
		overlap := 0
		for w := range roleWords {
			if titleWords[w] {
				overlap++
			}
		}
		if ratio := float64(overlap) / float64(len(roleWords)); ratio > best {
			best = ratio
		}
	}
	return best
}

// matchLocation scores distance from the configured origin: full marks in
// radius or a high-demand area, linear decay past the radius, zero beyond
// decayLimit times the radius. Remote listings always score 1.0.
func (s *Scorer) matchLocation(job *models.JobListing) float64 {
	if job.Arrangement == models.ArrangementRemote {
		return 1.0
	}
	if job.Location == "" {
		return 0.5
	}
	if filter.InHighDemandArea(job.Location, s.location.HighDemandAreas) {
		return 1.0
	}
	if s.resolver == nil || s.location.RadiusMiles <= 0 {
		return 0.5
	}
	coords, ok := s.resolver.Resolve(job.Location)
	if !ok {
		return 0.5
	}

	dist := filter.MilesBetween(s.location.Origin, coords)
	radius := s.location.RadiusMiles
	if dist <= radius {
		return 1.0
	}
	outer := radius * s.decayLimit
	if dist >= outer {
		return 0.0
	}
	return (outer - dist) / (outer - radius)
}

func summarize(profile *models.ResumeProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
	if len(profile.PreferredRoles) > 0 {
		fmt.Fprintf(&b, "Target roles: %s\n", strings.Join(profile.PreferredRoles, ", "))
	}
	for _, exp := range profile.Experience {
		fmt.Fprintf(&b, "- %s at %s (%s)\n", exp.Title, exp.Organization, exp.Period)
	}
	for _, edu := range profile.Education {
		fmt.Fprintf(&b, "- %s, %s\n", edu.Degree, edu.Institution)
	}
	return b.String()
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "at": true, "to": true, "for": true,
	"senior": true, "junior": true, "staff": true, "lead": true,
	"i": true, "ii": true, "iii": true,
}

func keywordSet(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:()/-")
		if len(w) > 1 && !stopWords[w] {
			words[w] = true
		}
	}
	return words
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, s) {
			return list
		}
	}
	return append(list, s)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
