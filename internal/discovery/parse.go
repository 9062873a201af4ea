package discovery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/seekr-cli/seekr/pkg/models"
)

var (
	jobIDPattern    = regexp.MustCompile(`/jobs/view/(\d+)`)
	relativePattern = regexp.MustCompile(`(\d+)\+?\s*(minute|hour|day|week|month)s?\s+ago`)
	salaryPattern   = regexp.MustCompile(`\$([\d,]+)(?:\.\d+)?([Kk])?(?:\s*[-–]\s*\$([\d,]+)(?:\.\d+)?([Kk])?)?`)
)

func jobIDFromURL(u string) string {
	if m := jobIDPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// parseRelativeDate turns the board's "3 days ago" phrasing into a
// timestamp. Unrecognized text returns nil; the filter treats that as
// stale rather than fresh.
func parseRelativeDate(s string, now time.Time) *time.Time {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	if strings.Contains(s, "just now") || strings.Contains(s, "today") {
		t := now.UTC()
		return &t
	}
	if strings.Contains(s, "yesterday") {
		t := now.AddDate(0, 0, -1).UTC()
		return &t
	}

	m := relativePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	var d time.Duration
	switch m[2] {
	case "minute":
		d = time.Duration(n) * time.Minute
	case "hour":
		d = time.Duration(n) * time.Hour
	case "day":
		d = time.Duration(n) * 24 * time.Hour
	case "week":
		d = time.Duration(n) * 7 * 24 * time.Hour
	case "month":
		d = time.Duration(n) * 30 * 24 * time.Hour
	}
	t := now.Add(-d).UTC()
	return &t
}

// parseSalary reads "$120,000 - $150,000" or "$120K-$150K" style strings.
// A single figure becomes an open-ended range. Anything else is nil.
func parseSalary(s string) *models.SalaryBounds {
	m := salaryPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	low := parseDollars(m[1], m[2])
	if low == 0 {
		return nil
	}
	bounds := &models.SalaryBounds{Min: low}
	if m[3] != "" {
		bounds.Max = parseDollars(m[3], m[4])
	}
	// Hourly figures are a different unit entirely; don't guess.
	if bounds.Min < 1000 {
		return nil
	}
	return bounds
}

func parseDollars(digits, suffix string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return 0
	}
	if strings.EqualFold(suffix, "k") {
		n *= 1000
	}
	return n
}

// parseArrangement scans card text for an explicit work arrangement.
func parseArrangement(s string) models.WorkArrangement {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "remote"):
		return models.ArrangementRemote
	case strings.Contains(lower, "hybrid"):
		return models.ArrangementHybrid
	case strings.Contains(lower, "on-site"), strings.Contains(lower, "onsite"), strings.Contains(lower, "on site"):
		return models.ArrangementOnsite
	}
	return models.ArrangementUnknown
}
