package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"leaveplan/internal/report"
)

// EnvPrefix prefixes every environment override, e.g. LEAVEPLAN_URL.
const EnvPrefix = "LEAVEPLAN_"

// DefaultEnvFiles are read, when present, before environment overrides are
// applied. Variables already set in the process win.
var DefaultEnvFiles = []string{".env", ".env.local"}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. Auth is on
// only when both fields are set.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"USERNAME"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
}

func (b BasicAuthConfig) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

// BrowserConfig drives the Chromium session.
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" env:"HEADLESS"`
	Width           int           `yaml:"width" env:"WIDTH"`
	Height          int           `yaml:"height" env:"HEIGHT"`
	InitialLoad     time.Duration `yaml:"initial_load" env:"INITIAL_LOAD"`
	NavigationDelay time.Duration `yaml:"navigation_delay" env:"NAVIGATION_DELAY"`
	ActionTimeout   time.Duration `yaml:"action_timeout" env:"ACTION_TIMEOUT"`
	// LoginTimeout bounds the manual sign-in of save-session.
	LoginTimeout time.Duration `yaml:"login_timeout" env:"LOGIN_TIMEOUT"`
	// MaxClicks bounds navigation towards one target month.
	MaxClicks int `yaml:"max_navigation_clicks" env:"MAX_NAVIGATION_CLICKS"`
}

// GeometryConfig tunes how event bars are mapped to days.
type GeometryConfig struct {
	// HalfDayRatio is the width, as a fraction of a day column, below which
	// an event is a point event.
	HalfDayRatio float64 `yaml:"half_day_ratio" env:"HALF_DAY_RATIO"`
	// HalfDayMaxPx is the style width at or under which a point event is a
	// half day.
	HalfDayMaxPx float64 `yaml:"half_day_max_px" env:"HALF_DAY_MAX_PX"`
	// BoxHalfDayRatio applies instead when rendered boxes are used.
	BoxHalfDayRatio float64 `yaml:"box_half_day_ratio" env:"BOX_HALF_DAY_RATIO"`
	UseBoxes        bool    `yaml:"use_boxes" env:"USE_BOXES"`
}

// ScrapeConfig covers row filtering and processing.
type ScrapeConfig struct {
	Workers         int      `yaml:"workers" env:"WORKERS"`
	WeekendFallback bool     `yaml:"weekend_fallback" env:"WEEKEND_FALLBACK"`
	SkipNames       []string `yaml:"skip_names" env:"SKIP_NAMES"`
	SkipPrefixes    []string `yaml:"skip_prefixes" env:"SKIP_PREFIXES"`
	// DumpDir, when set, receives the HTML of every collected month.
	DumpDir string `yaml:"dump_dir" env:"DUMP_DIR"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	File   string `yaml:"file" env:"FILE"`
}

// Config is the top-level application configuration.
type Config struct {
	// URL is the team planning page.
	URL string `yaml:"url" json:"url" env:"URL"`

	// SessionFile stores the browser cookies captured by save-session.
	SessionFile string `yaml:"session_file" json:"session_file" env:"SESSION_FILE"`

	// DataDir holds the per-month record store.
	DataDir string `yaml:"data_dir" json:"data_dir" env:"DATA_DIR"`

	// OutputDir receives the combined CSV and the workbook.
	OutputDir string `yaml:"output_dir" json:"output_dir" env:"OUTPUT_DIR"`

	// Year to collect. 0 means the current year.
	Year int `yaml:"year" json:"year" env:"YEAR"`

	// Months to collect, 1-12. Empty means the whole year.
	Months []int `yaml:"months,omitempty" json:"months" env:"MONTHS"`

	Browser  BrowserConfig  `yaml:"browser" json:"browser" envPrefix:"BROWSER_"`
	Geometry GeometryConfig `yaml:"geometry" json:"geometry" envPrefix:"GEOMETRY_"`
	Scrape   ScrapeConfig   `yaml:"scrape" json:"scrape" envPrefix:"SCRAPE_"`

	Rules  report.Rules  `yaml:"rules" json:"rules"`
	Styles report.Styles `yaml:"styles" json:"styles"`

	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// Timezone is the IANA zone used to decide the current year and to
	// schedule refreshes.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	// RefreshCron is a standard 5-field cron schedule for the serve
	// command's background scrape. Empty disables it.
	RefreshCron string `yaml:"refresh" json:"refresh" env:"REFRESH"`

	// CacheTTL bounds how long API responses are reused.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"CACHE_TTL"`

	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins" env:"CORS_ORIGINS"`

	BasicAuth BasicAuthConfig `yaml:"basic_auth" json:"basic_auth" envPrefix:"BASIC_AUTH_"`

	Log LogConfig `yaml:"log" json:"log" envPrefix:"LOG_"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SessionFile: "session.json",
		DataDir:     "data",
		OutputDir:   "output",
		Browser: BrowserConfig{
			Headless:        true,
			Width:           1920,
			Height:          1080,
			InitialLoad:     10 * time.Second,
			NavigationDelay: 1500 * time.Millisecond,
			ActionTimeout:   30 * time.Second,
			LoginTimeout:    5 * time.Minute,
			MaxClicks:       50,
		},
		Geometry: GeometryConfig{
			HalfDayRatio:    0.3,
			HalfDayMaxPx:    2,
			BoxHalfDayRatio: 0.65,
		},
		Scrape: ScrapeConfig{
			SkipNames:    []string{"Mes Collègues"},
			SkipPrefixes: []string{"Signataire", "Total"},
		},
		Rules:       report.DefaultRules(),
		Styles:      report.DefaultStyles(),
		Listen:      "127.0.0.1:8080",
		Timezone:    "Europe/Paris",
		RefreshCron: "0 6 * * 1-5",
		CacheTTL:    30 * time.Second,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled files still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.SessionFile == "" {
		c.SessionFile = d.SessionFile
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}

	b := &c.Browser
	if b.Width <= 0 {
		b.Width = d.Browser.Width
	}
	if b.Height <= 0 {
		b.Height = d.Browser.Height
	}
	if b.InitialLoad < 0 {
		b.InitialLoad = 0
	}
	if b.NavigationDelay < 0 {
		b.NavigationDelay = 0
	}
	if b.ActionTimeout <= 0 {
		b.ActionTimeout = d.Browser.ActionTimeout
	}
	if b.LoginTimeout <= 0 {
		b.LoginTimeout = d.Browser.LoginTimeout
	}
	if b.MaxClicks <= 0 {
		b.MaxClicks = d.Browser.MaxClicks
	}

	g := &c.Geometry
	if g.HalfDayRatio <= 0 || g.HalfDayRatio >= 1 {
		g.HalfDayRatio = d.Geometry.HalfDayRatio
	}
	if g.HalfDayMaxPx <= 0 {
		g.HalfDayMaxPx = d.Geometry.HalfDayMaxPx
	}
	if g.BoxHalfDayRatio <= 0 || g.BoxHalfDayRatio >= 1 {
		g.BoxHalfDayRatio = d.Geometry.BoxHalfDayRatio
	}

	if c.Scrape.SkipNames == nil {
		c.Scrape.SkipNames = d.Scrape.SkipNames
	}
	if c.Scrape.SkipPrefixes == nil {
		c.Scrape.SkipPrefixes = d.Scrape.SkipPrefixes
	}

	if c.Rules.From == "" {
		c.Rules.From = d.Rules.From
	}
	if c.Rules.To == "" {
		c.Rules.To = d.Rules.To
	}
	if c.Rules.MinConsecutiveDays <= 0 {
		c.Rules.MinConsecutiveDays = d.Rules.MinConsecutiveDays
	}
	if c.Rules.MinTotalDays <= 0 {
		c.Rules.MinTotalDays = d.Rules.MinTotalDays
	}
	c.Styles.Normalize()

	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports settings that cannot be fixed by defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Year != 0 && (c.Year < 2000 || c.Year > 2100) {
		errs = append(errs, fmt.Errorf("year %d out of range", c.Year))
	}
	for _, m := range c.Months {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("month %d out of range", m))
		}
	}
	if _, _, err := c.Rules.Window(2000); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
		}
	}
	return errors.Join(errs...)
}

// Location returns the configured zone, or UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TargetYear is Year, or the current year in the configured zone.
func (c *Config) TargetYear(now time.Time) int {
	if c.Year != 0 {
		return c.Year
	}
	return now.In(c.Location()).Year()
}

// TargetMonths is Months as time.Month values, or all twelve.
func (c *Config) TargetMonths() []time.Month {
	if len(c.Months) == 0 {
		out := make([]time.Month, 12)
		for i := range out {
			out[i] = time.Month(i + 1)
		}
		return out
	}
	out := make([]time.Month, 0, len(c.Months))
	for _, m := range c.Months {
		out = append(out, time.Month(m))
	}
	return out
}

// LoadEnv loads the existing files among files into the process
// environment and returns how many were read.
func LoadEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), pkgerrors.Wrap(godotenv.Load(existing...), "config: load env files")
}

// ApplyEnv overrides c with LEAVEPLAN_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return pkgerrors.Wrap(err, "config: environment")
	}
	c.URL = strings.TrimSpace(c.URL)
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and used.
//   - Environment overrides are applied on top of the file, then defaults
//     fill what is still missing.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, pkgerrors.Wrap(err, "config: read")
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, pkgerrors.Wrapf(err, "config: parse %s", path)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions, creating the
// parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".leaveplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
