// Package config provides the root configuration for the event generator.
// The Config struct ties together run parameters, dataset paths, behavior
// tuning, and output settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/bookshop/tools/eventgen/internal/dataset"
)

// Errors returned by the config package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config: configuration file not found")
)

// DateFormat is the layout for the start/end date fields.
const DateFormat = "2006-01-02"

// Config is the root configuration for one generation run.
type Config struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name" json:"name"`

	// Description provides additional context about the configuration.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Sessions is the total number of sessions to generate.
	Sessions int `yaml:"sessions" json:"sessions"`

	// UsersToSample is how many users to draw (without replacement) from the
	// pool before generation. Must not exceed the pool size.
	UsersToSample int `yaml:"usersToSample" json:"usersToSample"`

	// StartDate is the inclusive start of the generation window (YYYY-MM-DD).
	StartDate string `yaml:"startDate" json:"startDate"`

	// EndDate is the end of the generation window (YYYY-MM-DD). Must be
	// strictly after StartDate.
	EndDate string `yaml:"endDate" json:"endDate"`

	// Seed seeds the random source. Zero picks a time-based seed, making the
	// run non-reproducible.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// UserPool is the path to the user pool CSV. Required.
	UserPool string `yaml:"userPool" json:"userPool"`

	// Catalog is the path to the catalog CSV. A missing file is tolerated;
	// sessions then carry no item properties.
	Catalog string `yaml:"catalog,omitempty" json:"catalog,omitempty"`

	// LoginRatio is the probability that a session starts logged in.
	// Default: 0.95
	LoginRatio *float64 `yaml:"loginRatio,omitempty" json:"loginRatio,omitempty"`

	// TierWeights maps activity tiers to selection weights.
	// Default: High 0.6, Medium 0.3, Low 0.1
	TierWeights map[string]float64 `yaml:"tierWeights,omitempty" json:"tierWeights,omitempty"`

	// ReconnectProbability is the chance a drop-off resumes the session.
	// Default: 0.5
	ReconnectProbability *float64 `yaml:"reconnectProbability,omitempty" json:"reconnectProbability,omitempty"`

	// ProfilesDir is a directory of profile overlay YAML files.
	ProfilesDir string `yaml:"profilesDir,omitempty" json:"profilesDir,omitempty"`

	// Profile names the overlay to apply for this run.
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty"`

	// MetricsAddr enables the Prometheus endpoint when non-empty
	// (e.g. ":9090").
	MetricsAddr string `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`

	// Output configures export of the generated log.
	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty"`
}

// OutputConfig holds output and reporting configuration.
type OutputConfig struct {
	// File is the export path.
	// Default: "synthetic_event_logs.xlsx"
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Format is the export format: "xlsx", "csv", or "json".
	// Default: "xlsx"
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Preview is how many leading events to print as JSON after the run.
	// Default: 5; set negative to disable.
	Preview int `yaml:"preview,omitempty" json:"preview,omitempty"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults applies default values to unset fields.
func (c *Config) ApplyDefaults() {
	if c.LoginRatio == nil {
		ratio := 0.95
		c.LoginRatio = &ratio
	}
	if c.TierWeights == nil {
		c.TierWeights = map[string]float64{
			string(dataset.TierHigh):   0.6,
			string(dataset.TierMedium): 0.3,
			string(dataset.TierLow):    0.1,
		}
	}
	if c.ReconnectProbability == nil {
		p := 0.5
		c.ReconnectProbability = &p
	}
	if c.Output.File == "" {
		c.Output.File = "synthetic_event_logs.xlsx"
	}
	if c.Output.Format == "" {
		c.Output.Format = "xlsx"
	}
	if c.Output.Preview == 0 {
		c.Output.Preview = 5
	}
}

// Validate checks the configuration. All violations here are fatal and
// abort the run before any session is generated.
func (c *Config) Validate() error {
	if c.Sessions <= 0 {
		return fmt.Errorf("%w: sessions must be positive, got %d", ErrInvalidConfig, c.Sessions)
	}
	if c.UsersToSample <= 0 {
		return fmt.Errorf("%w: usersToSample must be positive, got %d", ErrInvalidConfig, c.UsersToSample)
	}
	if c.UserPool == "" {
		return fmt.Errorf("%w: userPool path is required", ErrInvalidConfig)
	}

	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("%w: endDate must be after startDate", ErrInvalidConfig)
	}

	if c.LoginRatio != nil {
		if r := *c.LoginRatio; r < 0 || r > 1 {
			return fmt.Errorf("%w: loginRatio must be in [0,1], got %v", ErrInvalidConfig, r)
		}
	}
	if c.ReconnectProbability != nil {
		if p := *c.ReconnectProbability; p < 0 || p > 1 {
			return fmt.Errorf("%w: reconnectProbability must be in [0,1], got %v", ErrInvalidConfig, p)
		}
	}
	for tier, w := range c.TierWeights {
		if w < 0 {
			return fmt.Errorf("%w: tier weight for %s must be non-negative", ErrInvalidConfig, tier)
		}
	}

	switch c.Output.Format {
	case "", "xlsx", "csv", "json":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output.Format)
	}

	return nil
}

// Window parses the configured date range.
func (c *Config) Window() (start, end time.Time, err error) {
	start, err = time.Parse(DateFormat, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad startDate %q", ErrInvalidConfig, c.StartDate)
	}
	end, err = time.Parse(DateFormat, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad endDate %q", ErrInvalidConfig, c.EndDate)
	}
	return start, end, nil
}

// Tiers converts the configured tier weights to dataset tiers.
func (c *Config) Tiers() map[dataset.Tier]float64 {
	tiers := make(map[dataset.Tier]float64, len(c.TierWeights))
	for name, w := range c.TierWeights {
		tiers[dataset.Tier(name)] = w
	}
	return tiers
}
