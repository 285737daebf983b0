package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	t.Setenv("HOME", dir)
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	setupTestConfig(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Sampling.FormulaRows != 10 || cfg.Sampling.StyleRows != 50 || cfg.Output.Format != "both" || cfg.Batch.Concurrency != 4 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := setupTestConfig(t)
	path := filepath.Join(dir, "custom.yaml")
	data := "sampling:\n  formula_rows: 25\noutput:\n  format: json\nmacros:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHEETLENS_SAMPLING_STYLE_ROWS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sampling.FormulaRows != 25 {
		t.Errorf("formula_rows = %d, want 25", cfg.Sampling.FormulaRows)
	}
	if cfg.Sampling.StyleRows != 7 {
		t.Errorf("style_rows = %d, want 7 from env", cfg.Sampling.StyleRows)
	}
	if cfg.Output.Format != "json" || cfg.Macros.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.Formatting.Enabled {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := setupTestConfig(t)
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestAnalysisOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Sampling.FormulaRows = 3
	cfg.Formatting.Enabled = false

	opts, err := cfg.AnalysisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.FormulaRows != 3 || opts.IncludeFormatting || !opts.IncludeMacros {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.Taxonomy != nil {
		t.Error("no taxonomy file should leave the built-in taxonomy")
	}
}

func TestAnalysisOptionsTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	data := "suspicious:\n  - keyword: WinHttpRequest\n    description: May download files\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	cfg.Macros.TaxonomyFile = path
	opts, err := cfg.AnalysisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Taxonomy == nil {
		t.Fatal("expected a custom taxonomy")
	}
	if got := opts.Taxonomy.Scan("Set h = CreateObject(\"WinHttp.WinHttpRequest.5.1\")\nh.Send"); len(got) == 0 {
		t.Error("custom keyword should match")
	}

	cfg.Macros.TaxonomyFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.AnalysisOptions(); err == nil {
		t.Error("expected error for a missing taxonomy file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("defaults should validate, got %+v", issues)
	}

	cfg.Output.Format = "xml"
	cfg.Batch.Concurrency = 0
	cfg.Macros.TaxonomyFile = "/nonexistent/taxonomy.yaml"

	var keys []string
	for _, issue := range cfg.Validate() {
		keys = append(keys, issue.Key+":"+issue.Severity)
	}
	want := []string{"batch.concurrency:warning", "macros.taxonomy_file:error", "output.format:error"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sheetlens", "config.yaml")
	if err := WriteDefaults(path, false); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if diff := cmp.Diff(*Defaults(), decoded); diff != "" {
		t.Errorf("written config mismatch (-want +got):\n%s", diff)
	}

	if err := WriteDefaults(path, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected refusal to overwrite, got %v", err)
	}
	if err := WriteDefaults(path, true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}
}

func TestPath(t *testing.T) {
	path := Path()
	if !strings.Contains(path, ".sheetlens") || !strings.HasSuffix(path, "config.yaml") {
		t.Errorf("unexpected path: %q", path)
	}
}
