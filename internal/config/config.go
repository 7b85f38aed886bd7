// Package config defines the configuration types and defaults for makepure.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/analyzer"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/lexer"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/purify"
)

// Config is the top-level configuration.
type Config struct {
	Purify PurifyConfig `yaml:"purify" toml:"purify"`
	Lint   LintConfig   `yaml:"lint" toml:"lint"`
	Parser ParserConfig `yaml:"parser" toml:"parser"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache"`
}

// PurifyConfig holds purification settings.
type PurifyConfig struct {
	MaxRounds                 int      `yaml:"max_rounds" toml:"max_rounds"`
	SequentialRecipeThreshold int      `yaml:"sequential_recipe_threshold" toml:"sequential_recipe_threshold"`
	SimilarRuleThreshold      int      `yaml:"similar_rule_threshold" toml:"similar_rule_threshold"`
	DisabledPasses            []string `yaml:"disabled_passes" toml:"disabled_passes"`
}

// LintConfig holds lint rule settings. Rules maps a rule code to "off" or
// a severity.
type LintConfig struct {
	Rules            map[string]string `yaml:"rules" toml:"rules"`
	Exclude          []string          `yaml:"exclude" toml:"exclude"`
	MaxFixIterations int               `yaml:"max_fix_iterations" toml:"max_fix_iterations"`
}

// ParserConfig holds parser limits.
type ParserConfig struct {
	MaxLineLength int `yaml:"max_line_length" toml:"max_line_length"`
}

// CacheConfig controls the lint result cache. An empty Dir selects the
// user cache directory.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Dir     string `yaml:"dir" toml:"dir"`
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	a := analyzer.DefaultOptions()
	return &Config{
		Purify: PurifyConfig{
			MaxRounds:                 purify.DefaultMaxRounds,
			SequentialRecipeThreshold: a.SequentialRecipeThreshold,
			SimilarRuleThreshold:      a.SimilarRuleThreshold,
		},
		Lint: LintConfig{
			MaxFixIterations: linter.DefaultMaxFixIterations,
		},
		Parser: ParserConfig{
			MaxLineLength: lexer.DefaultMaxLineLength,
		},
	}
}

// Validate checks values that cannot be expressed by the file's types.
func (c *Config) Validate() error {
	passes := analyzer.Passes()
	for _, p := range c.Purify.DisabledPasses {
		if !slices.Contains(passes, p) {
			return fmt.Errorf("purify.disabled_passes: unknown pass %q (want one of %s)", p, strings.Join(passes, ", "))
		}
	}
	for code, v := range c.Lint.Rules {
		if strings.EqualFold(v, "off") {
			continue
		}
		if _, err := diag.ParseSeverity(v); err != nil {
			return fmt.Errorf("lint.rules.%s: %w", code, err)
		}
	}
	if c.Purify.MaxRounds < 0 || c.Lint.MaxFixIterations < 0 {
		return fmt.Errorf("purify.max_rounds and lint.max_fix_iterations must not be negative")
	}
	return nil
}

// PurifyOptions converts the purify section.
func (c *Config) PurifyOptions() purify.Options {
	return purify.Options{
		MaxRounds: c.Purify.MaxRounds,
		Analyzer: analyzer.Options{
			SequentialRecipeThreshold: c.Purify.SequentialRecipeThreshold,
			SimilarRuleThreshold:      c.Purify.SimilarRuleThreshold,
			Disabled:                  slices.Clone(c.Purify.DisabledPasses),
		},
	}
}

// LinterConfig converts the lint and parser sections. Rule values are
// assumed to have passed Validate; unknown severities are ignored.
func (c *Config) LinterConfig() linter.Config {
	lc := linter.Config{
		Severity:         map[string]diag.Severity{},
		Disabled:         map[string]bool{},
		MaxLineLength:    c.Parser.MaxLineLength,
		MaxFixIterations: c.Lint.MaxFixIterations,
	}
	for code, v := range c.Lint.Rules {
		if strings.EqualFold(v, "off") {
			lc.Disabled[code] = true
			continue
		}
		if s, err := diag.ParseSeverity(v); err == nil {
			lc.Severity[code] = s
		}
	}
	return lc
}
