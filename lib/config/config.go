// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/capstan-release/capstan/lib/template"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" and "100ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the engine configuration.
type Config struct {
	// MainBranch is the branch releases merge into.
	MainBranch string `yaml:"main_branch"`

	// BranchPrefix is the release branch prefix. Release branches
	// are named "<prefix><version>", e.g. "release/v1.2.0".
	BranchPrefix string `yaml:"branch_prefix"`

	// VersionPrefix is prepended to versions in tag names.
	VersionPrefix string `yaml:"version_prefix"`

	// ChangelogMarkers is the ordered list of section markers the
	// publisher searches a merged release body for. The first
	// marker in this list that appears anywhere in the body wins,
	// regardless of body position.
	ChangelogMarkers []string `yaml:"changelog_markers"`

	// Templates configures the rendered release surfaces.
	Templates TemplatesConfig `yaml:"templates"`

	// Retry configures transient-failure retry.
	Retry RetryConfig `yaml:"retry"`

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`

	// EventDeadline bounds the processing of one event.
	EventDeadline Duration `yaml:"event_deadline"`

	// GitHub configures the platform adapter.
	GitHub GitHubConfig `yaml:"github"`

	// Webhook configures the ingestion service.
	Webhook WebhookConfig `yaml:"webhook"`

	// OverridesDir holds per-repository JSONC override files, laid
	// out as <dir>/<owner>/<name>.jsonc. Empty disables overrides.
	OverridesDir string `yaml:"overrides_dir"`
}

// TemplatesConfig holds the ${variable} templates for rendered
// surfaces. See the template package for the variable set.
type TemplatesConfig struct {
	// Title is the release pull request title template.
	Title string `yaml:"title"`

	// Body is the release pull request body template.
	Body string `yaml:"body"`

	// ReleaseName is the published release's name template.
	ReleaseName string `yaml:"release_name"`
}

// RetryConfig configures transient-failure retry.
type RetryConfig struct {
	BaseDelay      Duration `yaml:"base_delay"`
	Multiplier     float64  `yaml:"multiplier"`
	MaxDelay       Duration `yaml:"max_delay"`
	JitterFraction float64  `yaml:"jitter_fraction"`
	MaxAttempts    int      `yaml:"max_attempts"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens
	// the circuit.
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long the circuit stays open before admitting
	// a probe.
	Cooldown Duration `yaml:"cooldown"`
}

// GitHubConfig configures the platform adapter.
type GitHubConfig struct {
	// BaseURL is the API root. Defaults to the public API.
	BaseURL string `yaml:"base_url"`

	// TokenEnv names the environment variable holding the API
	// token. The token itself never appears in the config file.
	TokenEnv string `yaml:"token_env"`
}

// WebhookConfig configures the ingestion service.
type WebhookConfig struct {
	// ListenAddress is the HTTP listen address.
	ListenAddress string `yaml:"listen_address"`

	// SecretEnv names the environment variable holding the webhook
	// HMAC secret.
	SecretEnv string `yaml:"secret_env"`
}

// Default returns the default configuration. These defaults are a
// base for the loaded file, not a substitute for it.
func Default() *Config {
	return &Config{
		MainBranch:    "main",
		BranchPrefix:  "release/v",
		VersionPrefix: "v",
		ChangelogMarkers: []string{
			"## Changelog",
			"## Release Notes",
		},
		Templates: TemplatesConfig{
			Title:       "chore(release): ${version}",
			Body:        "## Changelog\n\n${changelog}",
			ReleaseName: "${version_tag}",
		},
		Retry: RetryConfig{
			BaseDelay:      Duration(100 * time.Millisecond),
			Multiplier:     2,
			MaxDelay:       Duration(30 * time.Second),
			JitterFraction: 0.25,
			MaxAttempts:    5,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 10,
			Cooldown:         Duration(time.Minute),
		},
		EventDeadline: Duration(30 * time.Second),
		GitHub: GitHubConfig{
			TokenEnv: "CAPSTAN_GITHUB_TOKEN",
		},
		Webhook: WebhookConfig{
			ListenAddress: ":8080",
			SecretEnv:     "CAPSTAN_WEBHOOK_SECRET",
		},
	}
}

// Load loads configuration from the CAPSTAN_CONFIG environment
// variable. There are no fallbacks: if CAPSTAN_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("CAPSTAN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CAPSTAN_CONFIG environment variable not set; " +
			"set it to the path of your capstan.yaml config file")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults and validating the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and validates
// the result.
func Parse(data []byte) (*Config, error) {
	configuration := Default()
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return configuration, nil
}

// Validate checks the configuration for values the engine cannot
// operate with.
func (c *Config) Validate() error {
	if c.MainBranch == "" {
		return fmt.Errorf("config: main_branch must not be empty")
	}
	if c.BranchPrefix == "" {
		return fmt.Errorf("config: branch_prefix must not be empty")
	}
	if len(c.ChangelogMarkers) == 0 {
		return fmt.Errorf("config: changelog_markers must list at least one marker")
	}
	for _, marker := range c.ChangelogMarkers {
		if marker == "" {
			return fmt.Errorf("config: changelog_markers must not contain empty markers")
		}
	}

	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("config: retry.base_delay must be positive")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: retry.multiplier must be at least 1")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("config: retry.max_delay must be at least retry.base_delay")
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction >= 1 {
		return fmt.Errorf("config: retry.jitter_fraction must be in [0, 1)")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("config: retry.max_attempts must be positive")
	}

	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("config: breaker.failure_threshold must be positive")
	}
	if c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("config: breaker.cooldown must be positive")
	}

	if c.EventDeadline <= 0 {
		return fmt.Errorf("config: event_deadline must be positive")
	}

	for name, tmpl := range map[string]string{
		"templates.title":        c.Templates.Title,
		"templates.body":         c.Templates.Body,
		"templates.release_name": c.Templates.ReleaseName,
	} {
		if tmpl == "" {
			return fmt.Errorf("config: %s must not be empty", name)
		}
		if err := template.Validate(tmpl); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}

	return nil
}
