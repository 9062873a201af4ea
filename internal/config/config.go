package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seekr-cli/seekr/pkg/models"
	"github.com/spf13/viper"
)

// Weights are the scorer's sub-score weights. They must sum to 1.0; that is
// checked once at load time, never per scoring call.
type Weights struct {
	Skills   float64 `mapstructure:"skills"`
	Title    float64 `mapstructure:"title"`
	Location float64 `mapstructure:"location"`
	Oracle   float64 `mapstructure:"oracle"`
}

const weightEpsilon = 1e-6

// Validate checks that the weights form a convex combination.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills": w.Skills, "title": w.Title, "location": w.Location, "oracle": w.Oracle,
	} {
		if v < 0 {
			return fmt.Errorf("scoring weight %q is negative: %v", name, v)
		}
	}
	sum := w.Skills + w.Title + w.Location + w.Oracle
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// Config holds the application configuration.
type Config struct {
	Headless bool `mapstructure:"headless"`
	DryRun   bool `mapstructure:"dry_run"`

	// Candidate profile
	ResumePath string `mapstructure:"resume_path"`

	// Search defaults
	Keywords        string  `mapstructure:"keywords"`
	Location        string  `mapstructure:"location"`
	OriginLat       float64 `mapstructure:"origin_lat"`
	OriginLon       float64 `mapstructure:"origin_lon"`
	RadiusMiles     float64 `mapstructure:"radius_miles"`
	DecayLimit      float64 `mapstructure:"decay_limit"`
	HighDemandAreas []string `mapstructure:"high_demand_areas"`
	PostingAgeDays  int      `mapstructure:"posting_age_days"`
	MinMatchScore   float64  `mapstructure:"min_match_score"`
	ExcludedCompanies []string `mapstructure:"excluded_companies"`
	SalaryMin         int      `mapstructure:"salary_min"`
	SalaryMax         int      `mapstructure:"salary_max"`
	WorkArrangements  []string `mapstructure:"work_arrangements"`
	ResultLimit       int      `mapstructure:"result_limit"`
	MaxPages          int      `mapstructure:"max_pages"`
	PrefetchDepth     int      `mapstructure:"prefetch_depth"`

	// Rate limiting
	DailyLimit       int           `mapstructure:"daily_limit"`
	SearchDelayMin   time.Duration `mapstructure:"search_delay_min"`
	SearchDelayMax   time.Duration `mapstructure:"search_delay_max"`
	ApplyDelayMin    time.Duration `mapstructure:"apply_delay_min"`
	ApplyDelayMax    time.Duration `mapstructure:"apply_delay_max"`
	MinCooldown      time.Duration `mapstructure:"min_cooldown"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`

	// Scoring
	ScoreWeights Weights `mapstructure:"score_weights"`

	// Oracle engine
	OracleEnginePath string        `mapstructure:"oracle_engine_path"`
	OracleTimeout    time.Duration `mapstructure:"oracle_timeout"`

	// Credentials
	BoardEmail    string `mapstructure:"board_email"`
	BoardPassword string `mapstructure:"board_password"`
}

// Initialize loads or creates the configuration file and returns the
// validated config.
func Initialize() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	configFile := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return nil, err
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("headless", true)
	viper.SetDefault("dry_run", false)

	viper.SetDefault("radius_miles", 50.0)
	viper.SetDefault("decay_limit", 1.5)
	viper.SetDefault("high_demand_areas", []string{"San Francisco", "Seattle", "Austin", "New York"})
	viper.SetDefault("posting_age_days", 7)
	viper.SetDefault("min_match_score", 0.7)
	viper.SetDefault("work_arrangements", []string{"remote", "hybrid", "onsite"})
	viper.SetDefault("salary_min", 0)
	viper.SetDefault("salary_max", 0)
	viper.SetDefault("result_limit", 50)
	viper.SetDefault("max_pages", 40)
	viper.SetDefault("prefetch_depth", 2)

	viper.SetDefault("daily_limit", 50)
	viper.SetDefault("search_delay_min", "5s")
	viper.SetDefault("search_delay_max", "15s")
	viper.SetDefault("apply_delay_min", "10s")
	viper.SetDefault("apply_delay_max", "30s")
	viper.SetDefault("min_cooldown", "2s")
	viper.SetDefault("breaker_threshold", 5)
	viper.SetDefault("breaker_cooldown", "60s")

	viper.SetDefault("score_weights.skills", 0.4)
	viper.SetDefault("score_weights.title", 0.25)
	viper.SetDefault("score_weights.location", 0.15)
	viper.SetDefault("score_weights.oracle", 0.2)

	viper.SetDefault("oracle_engine_path", "")
	viper.SetDefault("oracle_timeout", "30s")
}

// Validate rejects configurations that would misbehave at runtime. Weight
// problems surface here, at load time, not in the scorer.
func (c *Config) Validate() error {
	if err := c.ScoreWeights.Validate(); err != nil {
		return err
	}
	if c.SearchDelayMin > c.SearchDelayMax {
		return fmt.Errorf("search_delay_min %v exceeds search_delay_max %v", c.SearchDelayMin, c.SearchDelayMax)
	}
	if c.ApplyDelayMin > c.ApplyDelayMax {
		return fmt.Errorf("apply_delay_min %v exceeds apply_delay_max %v", c.ApplyDelayMin, c.ApplyDelayMax)
	}
	if c.DailyLimit < 1 {
		return fmt.Errorf("daily_limit must be at least 1, got %d", c.DailyLimit)
	}
	if c.MinMatchScore < 0 || c.MinMatchScore > 1 {
		return fmt.Errorf("min_match_score must be in [0,1], got %v", c.MinMatchScore)
	}
	if c.DecayLimit <= 1.0 {
		return fmt.Errorf("decay_limit must exceed 1.0, got %v", c.DecayLimit)
	}
	if c.SalaryMin < 0 || c.SalaryMax < 0 {
		return fmt.Errorf("salary bounds must not be negative")
	}
	if c.SalaryMax > 0 && c.SalaryMin > c.SalaryMax {
		return fmt.Errorf("salary_min %d exceeds salary_max %d", c.SalaryMin, c.SalaryMax)
	}
	if c.PrefetchDepth < 1 {
		c.PrefetchDepth = 1
	}
	return nil
}

// Dir returns the seekr state directory (~/.seekr).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".seekr"), nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# seekr configuration

# Browser
headless: true

# Candidate profile (JSON resume, see docs)
resume_path: ""

# Search defaults
keywords: ""
location: ""
radius_miles: 50
posting_age_days: 7
min_match_score: 0.7
work_arrangements: [remote, hybrid, onsite]
excluded_companies: []

# Annual salary bounds; 0 disables the bound
salary_min: 0
salary_max: 0

# Rate limiting
daily_limit: 50
search_delay_min: 5s
search_delay_max: 15s
apply_delay_min: 10s
apply_delay_max: 30s
breaker_threshold: 5
breaker_cooldown: 60s

# Scoring weights (must sum to 1.0)
score_weights:
  skills: 0.4
  title: 0.25
  location: 0.15
  oracle: 0.2

# Path to the external scoring engine binary. Leave empty to use the
# built-in heuristic only.
oracle_engine_path: ""
oracle_timeout: 30s

# Job board credentials (keep this file secure!)
board_email: ""
board_password: ""
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Set updates a configuration value
func Set(key, value string) error {
	viper.Set(key, value)
	return viper.WriteConfig()
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	dir, _ := Dir()
	return filepath.Join(dir, "config.yaml")
}

// Criteria builds the run's JobCriteria from the configuration.
func (c *Config) Criteria() *models.JobCriteria {
	arrangements := make([]models.WorkArrangement, 0, len(c.WorkArrangements))
	for _, a := range c.WorkArrangements {
		arrangements = append(arrangements, models.WorkArrangement(strings.ToLower(a)))
	}
	// Zero bounds mean no salary criterion at all; Max 0 with a Min set
	// leaves the range open-ended upward.
	var salary *models.SalaryBounds
	if c.SalaryMin > 0 || c.SalaryMax > 0 {
		salary = &models.SalaryBounds{Min: c.SalaryMin, Max: c.SalaryMax}
	}
	return &models.JobCriteria{
		PostingAgeDays: c.PostingAgeDays,
		Location: models.LocationCriteria{
			Origin:          models.Coordinates{Lat: c.OriginLat, Lon: c.OriginLon},
			RadiusMiles:     c.RadiusMiles,
			HighDemandAreas: c.HighDemandAreas,
		},
		WorkArrangements:  arrangements,
		MinMatchScore:     c.MinMatchScore,
		ExcludedCompanies: c.ExcludedCompanies,
		Salary:            salary,
	}
}
