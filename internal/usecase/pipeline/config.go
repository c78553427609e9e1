package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the pipeline tuning knobs. Defaults are production values;
// overrides come from an optional YAML tuning file so thresholds can be
// adjusted without a redeploy.
type Config struct {
	// NoveltyCutoff is the low-variation threshold: keywords whose novelty
	// score falls below it are skipped this cycle.
	NoveltyCutoff int `yaml:"novelty_cutoff"`

	// SourceSearchLimit bounds results per platform per keyword.
	SourceSearchLimit int `yaml:"source_search_limit"`

	// PostSourceLimit is how many of a keyword's newest sources feed the
	// summarization prompt.
	PostSourceLimit int `yaml:"post_source_limit"`

	// SearchParallelism bounds concurrent per-keyword source searches.
	SearchParallelism int `yaml:"search_parallelism"`

	// SummarizeParallelism bounds concurrent summarizer calls.
	SummarizeParallelism int `yaml:"summarize_parallelism"`
}

// DefaultConfig returns the production tuning defaults.
func DefaultConfig() Config {
	return Config{
		NoveltyCutoff:        10,
		SourceSearchLimit:    10,
		PostSourceLimit:      5,
		SearchParallelism:    8,
		SummarizeParallelism: 3,
	}
}

// Validate checks the tuning values.
func (c *Config) Validate() error {
	if c.SourceSearchLimit < 1 || c.SourceSearchLimit > 50 {
		return fmt.Errorf("source search limit must be between 1 and 50, got %d", c.SourceSearchLimit)
	}
	if c.PostSourceLimit < 1 || c.PostSourceLimit > c.SourceSearchLimit {
		return fmt.Errorf("post source limit must be between 1 and the search limit, got %d", c.PostSourceLimit)
	}
	if c.SearchParallelism < 1 || c.SearchParallelism > 32 {
		return fmt.Errorf("search parallelism must be between 1 and 32, got %d", c.SearchParallelism)
	}
	if c.SummarizeParallelism < 1 || c.SummarizeParallelism > 10 {
		return fmt.Errorf("summarize parallelism must be between 1 and 10, got %d", c.SummarizeParallelism)
	}
	return nil
}

// LoadConfig returns the defaults overridden by the YAML tuning file named in
// PIPELINE_TUNING_FILE. An unset variable or missing file yields plain
// defaults; a present but malformed file is an error.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("PIPELINE_TUNING_FILE")
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read pipeline tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse pipeline tuning file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("pipeline tuning file %s: %w", path, err)
	}

	return cfg, nil
}
