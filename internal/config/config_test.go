package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/donaldgifford/makepure/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origWd); err != nil {
			t.Fatal(err)
		}
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Purify.MaxRounds", cfg.Purify.MaxRounds, 8},
		{"Purify.SequentialRecipeThreshold", cfg.Purify.SequentialRecipeThreshold, 3},
		{"Purify.SimilarRuleThreshold", cfg.Purify.SimilarRuleThreshold, 3},
		{"Lint.MaxFixIterations", cfg.Lint.MaxFixIterations, 5},
		{"Parser.MaxLineLength", cfg.Parser.MaxLineLength, 1 << 20},
		{"Cache.Enabled", cfg.Cache.Enabled, false},
		{"Cache.Dir", cfg.Cache.Dir, ""},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yml", `purify:
  max_rounds: 2
  disabled_passes: [portability]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Purify.MaxRounds != 2 {
		t.Errorf("MaxRounds: got %d, want 2", cfg.Purify.MaxRounds)
	}
	if !slices.Equal(cfg.Purify.DisabledPasses, []string{"portability"}) {
		t.Errorf("DisabledPasses: got %v", cfg.Purify.DisabledPasses)
	}

	// Verify unspecified fields retain defaults.
	if cfg.Purify.SimilarRuleThreshold != 3 {
		t.Errorf("SimilarRuleThreshold: got %d, want 3 (default)", cfg.Purify.SimilarRuleThreshold)
	}
	if cfg.Lint.MaxFixIterations != 5 {
		t.Errorf("MaxFixIterations: got %d, want 5 (default)", cfg.Lint.MaxFixIterations)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "makepure.toml", `[purify]
similar_rule_threshold = 4

[lint]
exclude = ["vendor/**"]

[lint.rules]
SC2086 = "off"
DET002 = "error"

[cache]
enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Purify.SimilarRuleThreshold != 4 {
		t.Errorf("SimilarRuleThreshold: got %d, want 4", cfg.Purify.SimilarRuleThreshold)
	}
	if cfg.Purify.MaxRounds != 8 {
		t.Errorf("MaxRounds: got %d, want 8 (default)", cfg.Purify.MaxRounds)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled: got false, want true")
	}
	if cfg.Lint.Rules["SC2086"] != "off" || cfg.Lint.Rules["DET002"] != "error" {
		t.Errorf("Lint.Rules: got %v", cfg.Lint.Rules)
	}
}

func TestLoadTOMLUnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "makepure.toml", "[purify]\nannotate = true\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "purify.annotate") {
		t.Errorf("want an unknown key error naming purify.annotate, got %v", err)
	}
}

func TestLoadYAMLUnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "makepure.yml", "purify:\n  max_round: 2\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_round") {
		t.Errorf("want an unknown key error naming max_round, got %v", err)
	}
}

func TestLoadCommentOnlyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "makepure.yml", "# nothing configured yet\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Purify.MaxRounds != DefaultConfig().Purify.MaxRounds {
		t.Errorf("MaxRounds: got %d, want the default", cfg.Purify.MaxRounds)
	}
}

func TestLoadNoConfigReturnsDefaults(t *testing.T) {
	// Use an empty temp dir so no config file is discovered.
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	if cfg.Purify.MaxRounds != want.Purify.MaxRounds || cfg.Parser != want.Parser || cfg.Cache != want.Cache {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestDiscoverPriority(t *testing.T) {
	dir := t.TempDir()

	// Create every candidate; the first in search order should win.
	for _, name := range configFileNames {
		writeFile(t, dir, name, "purify:\n  max_rounds: 4\n")
	}

	for _, name := range configFileNames {
		got := Discover(dir)
		want := filepath.Join(dir, name)
		if got != want {
			t.Errorf("Discover = %q, want %q", got, want)
		}
		os.Remove(want)
	}

	if got := Discover(dir); got != "" {
		t.Errorf("Discover after removing all files: got %q, want empty string", got)
	}
}

func TestLoadDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".makepure.toml", "[parser]\nmax_line_length = 4096\n")
	chdir(t, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Parser.MaxLineLength != 4096 {
		t.Errorf("MaxLineLength: got %d, want 4096", cfg.Parser.MaxLineLength)
	}
	if cfg.Purify.MaxRounds != 8 {
		t.Errorf("MaxRounds: got %d, want 8 (default)", cfg.Purify.MaxRounds)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml syntax", "bad.yml", "{{{{not valid yaml"},
		{"toml syntax", "bad.toml", "[purify\n"},
		{"unknown pass", "pass.yml", "purify:\n  disabled_passes: [speed]\n"},
		{"unknown severity", "sev.yml", "lint:\n  rules:\n    SC2086: loud\n"},
		{"negative rounds", "neg.yml", "purify:\n  max_rounds: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Error("expected error for missing explicit path, got nil")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yml", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// Empty file should result in all defaults.
	want := DefaultConfig()
	if cfg.Purify.MaxRounds != want.Purify.MaxRounds || cfg.Lint.MaxFixIterations != want.Lint.MaxFixIterations {
		t.Errorf("expected default config for empty file, got %+v", cfg)
	}
}

func TestLinterConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lint.Rules = map[string]string{"SC2086": "off", "DET002": "error", "MAKE004": "warn"}

	lc := cfg.LinterConfig()
	if !lc.Disabled["SC2086"] || len(lc.Disabled) != 1 {
		t.Errorf("Disabled: got %v", lc.Disabled)
	}
	if lc.Severity["DET002"] != diag.Error || lc.Severity["MAKE004"] != diag.Warning {
		t.Errorf("Severity: got %v", lc.Severity)
	}
	if lc.MaxFixIterations != 5 || lc.MaxLineLength != 1<<20 {
		t.Errorf("limits not carried over: %+v", lc)
	}
}

func TestPurifyOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Purify.DisabledPasses = []string{"parallel"}
	cfg.Purify.SequentialRecipeThreshold = 5

	opts := cfg.PurifyOptions()
	if opts.MaxRounds != 8 || opts.Analyzer.SequentialRecipeThreshold != 5 {
		t.Errorf("unexpected options %+v", opts)
	}
	if !slices.Equal(opts.Analyzer.Disabled, []string{"parallel"}) {
		t.Errorf("Disabled: got %v", opts.Analyzer.Disabled)
	}
}
