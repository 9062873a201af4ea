// Package discovery walks the board's paginated search results and turns
// result cards into JobListing values. Every page fetch goes through the
// scheduler so discovery is paced like the rest of the pipeline.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/browser"
	"github.com/seekr-cli/seekr/internal/logger"
	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

// ErrStop lets an emit callback end the search early without reporting
// a failure.
var ErrStop = errors.New("stop discovery")

const defaultPageSize = 25

// Gate admits paced actions. Satisfied by *scheduler.Scheduler.
type Gate interface {
	Admit(ctx context.Context, kind scheduler.ActionKind) (*scheduler.Permit, error)
}

// Query is one search request.
type Query struct {
	Keywords string
	Location string
	// StartPage lets an interrupted run pick up where it left off.
	StartPage   int
	MaxPages    int
	ResultLimit int
}

// Result summarizes a finished search.
type Result struct {
	PagesFetched int
	Seen         int
	Emitted      int
	// LastPage is the restart point: the first page NOT fully processed.
	LastPage int
	Stopped  string
}

type Discoverer struct {
	surface browser.Surface
	gate    Gate
	baseURL string
	log     *zap.SugaredLogger
}

func New(surface browser.Surface, gate Gate, log *zap.SugaredLogger) *Discoverer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Discoverer{
		surface: surface,
		gate:    gate,
		baseURL: "https://www.linkedin.com/jobs/search",
		log:     log,
	}
}

// Search pages through results, calling emit once per unique listing.
// Listings with missing optional parts (salary, posting date) are emitted
// with those fields nil; a card missing its job ID is dropped. The search
// stops at the result limit, the page bound, or the first page that yields
// nothing new.
func (d *Discoverer) Search(ctx context.Context, q Query, emit func(*models.JobListing) error) (*Result, error) {
	if q.MaxPages <= 0 {
		q.MaxPages = 40
	}
	if q.ResultLimit <= 0 {
		q.ResultLimit = 50
	}

	res := &Result{LastPage: q.StartPage}
	seen := map[string]bool{}

	for page := q.StartPage; page < q.StartPage+q.MaxPages; page++ {
		permit, err := d.gate.Admit(ctx, scheduler.ActionView)
		if err != nil {
			return res, err
		}

		items, err := d.fetchPage(ctx, q, page)
		permit.Report(err)
		if err != nil {
			return res, fmt.Errorf("fetching results page %d: %w", page, err)
		}
		res.PagesFetched++

		newOnPage := 0
		for _, item := range items {
			res.Seen++
			job := listingFromItem(item)
			if job == nil || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			newOnPage++

			if err := emit(job); err != nil {
				if errors.Is(err, ErrStop) {
					res.Stopped = "stopped by caller"
					return res, nil
				}
				return res, err
			}
			res.Emitted++
			if res.Emitted >= q.ResultLimit {
				res.Stopped = "result limit reached"
				res.LastPage = page
				return res, nil
			}
		}

		d.log.Debugw("results page processed", "page", page, "cards", len(items), "new", newOnPage)
		res.LastPage = page + 1
		if newOnPage == 0 {
			res.Stopped = "no new listings"
			return res, nil
		}
	}

	res.Stopped = "page bound reached"
	return res, nil
}

// fetchPage navigates to one results page and extracts its cards.
func (d *Discoverer) fetchPage(ctx context.Context, q Query, page int) ([]map[string]string, error) {
	if err := d.surface.Navigate(ctx, d.searchURL(q, page)); err != nil {
		return nil, err
	}
	return d.surface.Extract(ctx, cardSpec())
}

func (d *Discoverer) searchURL(q Query, page int) string {
	params := url.Values{}
	if q.Keywords != "" {
		params.Set("keywords", q.Keywords)
	}
	if q.Location != "" {
		params.Set("location", q.Location)
	}
	if page > 0 {
		params.Set("start", strconv.Itoa(page*defaultPageSize))
	}
	return d.baseURL + "?" + params.Encode()
}

// cardSpec lists the selector fallbacks for result cards. The board
// reshuffles class names between layouts; order is most-recent first.
func cardSpec() browser.SelectorSpec {
	return browser.SelectorSpec{
		Containers: []string{
			".job-card-container",
			".jobs-search-results__list-item",
			"[data-job-id]",
			".scaffold-layout__list-item",
		},
		Fields: map[string][]string{
			"title": {
				".job-card-list__title",
				".job-card-container__link",
				".artdeco-entity-lockup__title",
				".base-search-card__title",
			},
			"company": {
				".job-card-container__primary-description",
				".job-card-container__company-name",
				".artdeco-entity-lockup__subtitle",
				".base-search-card__subtitle",
			},
			"location": {
				".job-card-container__metadata-item",
				".artdeco-entity-lockup__caption",
				".base-search-card__metadata",
			},
			"posted": {
				"time",
				".job-card-container__listed-time",
				"[class*='listed-time']",
			},
			"salary": {
				".job-card-container__salary-info",
				"[class*='salary']",
			},
			"easy_apply": {
				"[class*='easy-apply']",
				".job-card-container__apply-method",
			},
		},
		LinkField: "title",
		Limit:     defaultPageSize,
	}
}

// FetchDescription loads the listing page and pulls the description body.
// Callers gate this behind an Admit(view) of their own.
func (d *Discoverer) FetchDescription(ctx context.Context, job *models.JobListing) error {
	if err := d.surface.Navigate(ctx, job.URL); err != nil {
		return err
	}
	// Expand the truncated description when a toggle is present.
	_ = d.surface.Click(ctx, []string{
		`.show-more-less-html__button`,
		`button[aria-label*="Show more"]`,
	})

	text, err := d.surface.Text(ctx, []string{
		".jobs-description-content__text",
		".show-more-less-html__markup",
		"#job-details",
		".description__text",
	})
	if err != nil {
		return err
	}
	job.Description = text
	d.log.Debugw("description fetched", "job_id", job.JobID,
		"chars", len(text), "preview", logger.Truncate(text, 120))
	return nil
}

// listingFromItem converts one extracted card. Missing optional fields
// stay nil/zero; a card without a resolvable job ID returns nil.
func listingFromItem(item map[string]string) *models.JobListing {
	jobID := item["data-job-id"]
	jobURL := item["title_url"]
	if jobID == "" {
		jobID = jobIDFromURL(jobURL)
	}
	if jobID == "" || item["title"] == "" {
		return nil
	}

	job := &models.JobListing{
		JobID:       jobID,
		Title:       item["title"],
		Company:     item["company"],
		Location:    item["location"],
		URL:         jobURL,
		Arrangement: parseArrangement(item["location"] + " " + item["title"]),
		PostingDate: parseRelativeDate(item["posted"], time.Now()),
		Salary:      parseSalary(item["salary"]),
		EasyApply:   item["easy_apply"] != "",
		ScrapedAt:   time.Now().UTC(),
	}
	if job.URL == "" {
		job.URL = "https://www.linkedin.com/jobs/view/" + jobID
	}
	return job
}
