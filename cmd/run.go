package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/ai"
	"github.com/seekr-cli/seekr/internal/app"
	"github.com/seekr-cli/seekr/internal/browser"
	"github.com/seekr-cli/seekr/internal/config"
	"github.com/seekr-cli/seekr/internal/discovery"
	"github.com/seekr-cli/seekr/internal/engine"
	"github.com/seekr-cli/seekr/internal/filter"
	"github.com/seekr-cli/seekr/internal/matcher"
	"github.com/seekr-cli/seekr/internal/resume"
	"github.com/seekr-cli/seekr/internal/scheduler"
	"github.com/seekr-cli/seekr/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover, score, and apply to jobs",
	Long: `Run one full pass: search the job board, filter and score each new
listing against your resume, and apply to everything at or above the
minimum match score. Interrupted runs resume from the queued backlog.`,
	Example: `  seekr run --keywords "backend engineer" --location "San Francisco"
  seekr run --dry-run
  seekr run --yes --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.FromContext(cmd.Context())
		cfg := a.Config

		keywords, _ := cmd.Flags().GetString("keywords")
		location, _ := cmd.Flags().GetString("location")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		limit, _ := cmd.Flags().GetInt("limit")
		pages, _ := cmd.Flags().GetInt("pages")
		startPage, _ := cmd.Flags().GetInt("start-page")

		if keywords == "" {
			keywords = cfg.Keywords
		}
		if location == "" {
			location = cfg.Location
		}
		if keywords == "" {
			return fmt.Errorf("no search keywords: pass --keywords or set keywords in the config file")
		}
		if limit <= 0 {
			limit = cfg.ResultLimit
		}
		if pages <= 0 {
			pages = cfg.MaxPages
		}
		dryRun = dryRun || cfg.DryRun

		profile, err := loadProfile(cfg)
		if err != nil {
			return err
		}

		if !dryRun && !yes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Apply to qualified %q listings as %s", keywords, profile.Name),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		summary, err := executeRun(cmd.Context(), a, profile, discovery.Query{
			Keywords:    keywords,
			Location:    location,
			StartPage:   startPage,
			MaxPages:    pages,
			ResultLimit: limit,
		}, dryRun)
		if summary != nil {
			printSummary(summary, dryRun)
		}
		return err
	},
}

// executeRun assembles the pipeline and runs it. The scheduler is seeded
// from the store so the daily limit survives restarts.
func executeRun(ctx context.Context, a *app.App, profile *models.ResumeProfile,
	q discovery.Query, dryRun bool) (*engine.RunSummary, error) {

	cfg := a.Config
	sugar := a.Log.Sugar()

	appliedToday, err := a.Store.CountAppliedSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("counting today's applications: %w", err)
	}
	sched := scheduler.New(scheduler.Options{
		DailyLimit:       cfg.DailyLimit,
		SearchDelay:      scheduler.DelayRange{Min: cfg.SearchDelayMin, Max: cfg.SearchDelayMax},
		ApplyDelay:       scheduler.DelayRange{Min: cfg.ApplyDelayMin, Max: cfg.ApplyDelayMax},
		MinCooldown:      cfg.MinCooldown,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
	}, appliedToday, a.Log)
	sugar.Infow("daily application budget",
		"applied_in_last_24h", appliedToday, "remaining", sched.Remaining())

	sessionPath, err := a.SessionPath()
	if err != nil {
		return nil, err
	}
	chrome := browser.New(browser.Options{
		Headless:    cfg.Headless,
		SessionPath: sessionPath,
	}, sugar)
	if err := chrome.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer chrome.Stop()
	ctrl := browser.NewController(chrome, sugar)

	var oracle ai.Oracle
	if cfg.OracleEnginePath != "" {
		eng, err := ai.NewEngine(cfg.OracleEnginePath, cfg.OracleTimeout)
		if err != nil {
			sugar.Warnw("oracle engine unavailable, scoring heuristically", "error", err)
		} else {
			oracle = eng
		}
	}

	criteria := cfg.Criteria()
	resolver := filter.NewTableResolver(nil)
	flt := filter.New(criteria, resolver)
	scorer := matcher.New(matcher.Weights{
		Skills:   cfg.ScoreWeights.Skills,
		Title:    cfg.ScoreWeights.Title,
		Location: cfg.ScoreWeights.Location,
		Oracle:   cfg.ScoreWeights.Oracle,
	}, criteria.Location, resolver, cfg.DecayLimit, oracle, sugar)

	disc := discovery.New(ctrl, sched, sugar)
	searcher := &enrichedSearcher{disc: disc, gate: sched, log: sugar}

	eng := engine.New(a.Store, searcher, scorer, ctrl, sched, flt, criteria, profile,
		engine.Options{
			MinMatchScore: cfg.MinMatchScore,
			PrefetchDepth: cfg.PrefetchDepth,
			DryRun:        dryRun,
		}, sugar)

	return eng.Run(ctx, q)
}

// enrichedSearcher fetches the full description for each listing before it
// reaches the scorer. Each fetch navigates the browser, so it is admitted
// through the gate like any other page view. A failed fetch is not fatal;
// the listing is scored on what the search card carried.
type enrichedSearcher struct {
	disc *discovery.Discoverer
	gate discovery.Gate
	log  *zap.SugaredLogger
}

func (s *enrichedSearcher) Search(ctx context.Context, q discovery.Query, emit func(*models.JobListing) error) (*discovery.Result, error) {
	return s.disc.Search(ctx, q, func(job *models.JobListing) error {
		if job.Description == "" {
			permit, err := s.gate.Admit(ctx, scheduler.ActionView)
			if err != nil {
				return err
			}
			ferr := s.disc.FetchDescription(ctx, job)
			permit.Report(ferr)
			if ferr != nil {
				s.log.Debugw("description fetch failed", "job_id", job.JobID, "error", ferr)
			}
		}
		return emit(job)
	})
}

func loadProfile(cfg *config.Config) (*models.ResumeProfile, error) {
	if cfg.ResumePath == "" {
		return nil, app.ErrNoResume
	}
	profile, err := resume.NewParser().Parse(cfg.ResumePath)
	if err != nil {
		if errors.Is(err, resume.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("resume at %s: %w", cfg.ResumePath, err)
		}
		return nil, fmt.Errorf("parsing resume: %w", err)
	}
	return profile, nil
}

func printSummary(s *engine.RunSummary, dryRun bool) {
	fmt.Println(titleStyle.Render("Run Summary"))
	fmt.Printf("  %s %d\n", labelStyle.Render("Discovered:"), s.Discovered)

	rejected := 0
	for _, n := range s.Rejected {
		rejected += n
	}
	if rejected > 0 {
		fmt.Printf("  %s %d\n", labelStyle.Render("Rejected:"), rejected)
		for reason, n := range s.Rejected {
			fmt.Printf("    %s %d\n", valueStyle.Render(string(reason)+":"), n)
		}
	}
	if s.Excluded > 0 {
		fmt.Printf("  %s %d\n", labelStyle.Render("Excluded companies:"), s.Excluded)
	}
	if s.Skipped > 0 {
		fmt.Printf("  %s %d\n", labelStyle.Render("Below threshold:"), s.Skipped)
	}
	fmt.Printf("  %s %d\n", labelStyle.Render("Queued:"), s.Queued)

	if dryRun {
		fmt.Printf("  %s %d\n", labelStyle.Render("Would apply:"), s.WouldApply)
	} else {
		fmt.Printf("  %s %d\n", labelStyle.Render("Applied:"), s.Applied)
		if s.AlreadyApplied > 0 {
			fmt.Printf("  %s %d\n", labelStyle.Render("Already applied:"), s.AlreadyApplied)
		}
		if s.Failed > 0 {
			fmt.Printf("  %s %d\n", labelStyle.Render("Failed:"), s.Failed)
		}
	}

	if s.Interruption != "" {
		fmt.Printf("\n%s %s\n", warnStyle.Render("Run interrupted:"), s.Interruption)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("keywords", "", "Search keywords (defaults to config)")
	runCmd.Flags().String("location", "", "Search location (defaults to config)")
	runCmd.Flags().Bool("dry-run", false, "Evaluate and queue but do not apply")
	runCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	runCmd.Flags().Int("limit", 0, "Maximum new listings to evaluate")
	runCmd.Flags().Int("pages", 0, "Maximum result pages to fetch")
	runCmd.Flags().Int("start-page", 0, "Result page to start from")
}
