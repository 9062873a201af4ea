package models

import "time"

// WorkArrangement describes where the work happens.
type WorkArrangement string

const (
	ArrangementRemote  WorkArrangement = "remote"
	ArrangementHybrid  WorkArrangement = "hybrid"
	ArrangementOnsite  WorkArrangement = "onsite"
	ArrangementUnknown WorkArrangement = ""
)

// ExperienceEntry is one position on a resume.
type ExperienceEntry struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Period       string `json:"period"`
	Description  string `json:"description"`
}

// EducationEntry is one degree on a resume.
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
}

// ResumeProfile is the parsed resume. Immutable once built; skills keep
// their listed order but are matched as a set.
type ResumeProfile struct {
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	Location       string            `json:"location"`
	Skills         []string          `json:"skills"`
	Experience     []ExperienceEntry `json:"experience"`
	Education      []EducationEntry  `json:"education"`
	PreferredRoles []string          `json:"preferred_roles"`
}

// SalaryBounds is an annual salary range. Max == 0 means open-ended.
type SalaryBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// LocationCriteria anchors the search to an origin point. High-demand areas
// match by name and override the radius check.
type LocationCriteria struct {
	Origin          Coordinates `json:"origin"`
	RadiusMiles     float64     `json:"radius_miles"`
	HighDemandAreas []string    `json:"high_demand_areas"`
}

// Coordinates is a lat/lon pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// JobCriteria is the configured filter set for a run. Immutable for the
// duration of the run.
type JobCriteria struct {
	PostingAgeDays    int               `json:"posting_age_days"`
	Location          LocationCriteria  `json:"location"`
	WorkArrangements  []WorkArrangement `json:"work_arrangements"`
	MinMatchScore     float64           `json:"min_match_score"`
	ExcludedCompanies []string          `json:"excluded_companies"`
	Salary            *SalaryBounds     `json:"salary,omitempty"`
}

// AllowsArrangement reports whether the arrangement is in the allowed set.
// An unknown arrangement is allowed; the listing may simply not state it.
func (c *JobCriteria) AllowsArrangement(a WorkArrangement) bool {
	if a == ArrangementUnknown || len(c.WorkArrangements) == 0 {
		return true
	}
	for _, allowed := range c.WorkArrangements {
		if allowed == a {
			return true
		}
	}
	return false
}

// JobListing is one scraped posting. JobID is the board's stable external
// identifier and the natural key for deduplication.
type JobListing struct {
	JobID       string          `json:"job_id"`
	Title       string          `json:"title"`
	Company     string          `json:"company"`
	Location    string          `json:"location"`
	Arrangement WorkArrangement `json:"work_arrangement"`
	PostingDate *time.Time      `json:"posting_date"`
	Description string          `json:"description"`
	Salary      *SalaryBounds   `json:"salary,omitempty"`
	URL         string          `json:"url"`
	EasyApply   bool            `json:"easy_apply"`
	ScrapedAt   time.Time       `json:"scraped_at"`
}

// MatchResult is a computed score for one listing. Derived data; persisted
// only as part of an ApplicationRecord.
type MatchResult struct {
	JobID         string   `json:"job_id"`
	Score         float64  `json:"score"`
	MatchedSkills []string `json:"matched_skills"`
	Rationale     string   `json:"rationale"`
}

// ApplicationRecord tracks one job through its lifecycle. At most one record
// exists per JobID; the store enforces that with a unique constraint.
type ApplicationRecord struct {
	ApplicationID string          `json:"application_id"`
	JobID         string          `json:"job_id"`
	Title         string          `json:"title"`
	Company       string          `json:"company"`
	Location      string          `json:"location"`
	Arrangement   WorkArrangement `json:"work_arrangement"`
	PostingDate   *time.Time      `json:"posting_date"`
	URL           string          `json:"url"`
	Description   string          `json:"description"`
	Salary        *SalaryBounds   `json:"salary,omitempty"`
	AppliedAt     *time.Time      `json:"applied_at"`
	Status        string          `json:"status"`
	MatchScore    float64         `json:"match_score"`
	MatchedSkills []string        `json:"matched_skills"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewRecordFromListing snapshots a listing into a fresh record.
func NewRecordFromListing(job *JobListing) *ApplicationRecord {
	return &ApplicationRecord{
		JobID:       job.JobID,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Arrangement: job.Arrangement,
		PostingDate: job.PostingDate,
		URL:         job.URL,
		Description: job.Description,
		Salary:      job.Salary,
	}
}
