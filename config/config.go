// Package config loads the single explicit configuration value passed
// into every component at construction. Nothing reads environment
// variables or config files mid-algorithm.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verdin/sagecycle/retention"
	"github.com/verdin/sagecycle/types"
)

// Config is the main configuration.
type Config struct {
	Version    string                                  `yaml:"version"`
	Project    string                                  `yaml:"project"`
	Region     string                                  `yaml:"region"`
	Buckets    Buckets                                 `yaml:"buckets,omitempty"`
	Poll       Poll                                    `yaml:"poll,omitempty"`
	Retention  map[types.ResourceType]retention.Policy `yaml:"retention,omitempty"`
	Release    Release                                 `yaml:"release,omitempty"`
	JournalDir string                                  `yaml:"journal_dir,omitempty"`
	Notify     Notify                                  `yaml:"notify,omitempty"`
	OTEL       OTEL                                    `yaml:"otel,omitempty"`
}

// Buckets names the S3 buckets the pipeline touches.
type Buckets struct {
	Data     string `yaml:"data,omitempty"`
	Releases string `yaml:"releases,omitempty"`
}

// Poll carries wait-for-terminal defaults; flags can override per call.
type Poll struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Release configures the packaging paths.
type Release struct {
	StoreDir string `yaml:"store_dir,omitempty"`
	OutDir   string `yaml:"out_dir,omitempty"`
}

// Notify configures the pipeline status webhook.
type Notify struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// OTEL configures trace export.
type OTEL struct {
	TraceEndpoint string `yaml:"trace_endpoint,omitempty"`
	Insecure      bool   `yaml:"insecure,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: "1",
		Region:  "us-east-1",
		Poll: Poll{
			Interval: 30 * time.Second,
			Timeout:  time.Hour,
		},
		Retention: DefaultRetention(),
		Release: Release{
			StoreDir: ".sagecycle/releases",
			OutDir:   "dist",
		},
		JournalDir: ".sagecycle/journal",
	}
}

// DefaultRetention is the shipped retention table. Models and model
// packages keep a longer window than jobs and endpoints; the engine
// itself knows nothing about this split, it is configuration only.
func DefaultRetention() map[types.ResourceType]retention.Policy {
	terminal := []types.Status{types.StatusSucceeded, types.StatusFailed, types.StatusStopped}
	return map[types.ResourceType]retention.Policy{
		types.TypeTrainingJob:   {RetentionDays: 7, EligibleStatuses: terminal},
		types.TypeEndpoint:      {RetentionDays: 7, EligibleStatuses: []types.Status{types.StatusFailed, types.StatusStopped}},
		types.TypeModel:         {RetentionDays: 28, EligibleStatuses: []types.Status{types.StatusSucceeded}},
		types.TypeModelPackage:  {RetentionDays: 28, EligibleStatuses: []types.Status{types.StatusSucceeded, types.StatusFailed}},
		types.TypeStorageObject: {RetentionDays: 14, EligibleStatuses: []types.Status{types.StatusSucceeded}},
	}
}

// Load reads configuration from a YAML file, filling unset sections
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures config has required fields. Configuration errors
// fail fast, before any external call.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Poll.Timeout < c.Poll.Interval {
		return fmt.Errorf("poll timeout %v is shorter than interval %v", c.Poll.Timeout, c.Poll.Interval)
	}
	for rt, policy := range c.Retention {
		if _, err := types.ParseResourceType(string(rt)); err != nil {
			return err
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("retention for %s: %w", rt, err)
		}
	}
	return nil
}

// PolicyFor returns the retention policy for one resource type,
// optionally overriding the configured days. Missing entries are a
// configuration error: cleanup never guesses a policy.
func (c *Config) PolicyFor(rt types.ResourceType, overrideDays int) (retention.Policy, error) {
	policy, ok := c.Retention[rt]
	if !ok {
		return retention.Policy{}, fmt.Errorf("no retention policy configured for %s", rt)
	}
	if overrideDays >= 0 {
		policy.RetentionDays = overrideDays
	}
	return policy, nil
}
