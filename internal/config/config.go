// Package config manages sheetlens configuration from files, environment
// and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/heuristics"
	"github.com/klytics/sheetlens/internal/logger"
	"github.com/klytics/sheetlens/internal/output"
)

// EnvPrefix prefixes every environment override, e.g.
// SHEETLENS_SAMPLING_FORMULA_ROWS.
const EnvPrefix = "SHEETLENS"

// Config holds the application configuration.
type Config struct {
	Sampling struct {
		FormulaRows  int `mapstructure:"formula_rows" yaml:"formula_rows"`
		StyleRows    int `mapstructure:"style_rows" yaml:"style_rows"`
		StyleColumns int `mapstructure:"style_columns" yaml:"style_columns"`
		PreviewRows  int `mapstructure:"preview_rows" yaml:"preview_rows"`
	} `mapstructure:"sampling" yaml:"sampling"`
	Output struct {
		Format string `mapstructure:"format" yaml:"format"`
		Dir    string `mapstructure:"dir" yaml:"dir"`
		Color  bool   `mapstructure:"color" yaml:"color"`
	} `mapstructure:"output" yaml:"output"`
	Macros struct {
		Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
		TaxonomyFile string `mapstructure:"taxonomy_file" yaml:"taxonomy_file"`
	} `mapstructure:"macros" yaml:"macros"`
	Formatting struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"formatting" yaml:"formatting"`
	Log struct {
		Level string `mapstructure:"level" yaml:"level"`
		File  string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"log" yaml:"log"`
	Audit struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		File    string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"audit" yaml:"audit"`
	Batch struct {
		Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	} `mapstructure:"batch" yaml:"batch"`
	Watch struct {
		DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	} `mapstructure:"watch" yaml:"watch"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"sampling.formula_rows":  analysis.DefaultFormulaRows,
		"sampling.style_rows":    analysis.DefaultStyleRows,
		"sampling.style_columns": analysis.DefaultStyleColumns,
		"sampling.preview_rows":  analysis.DefaultPreviewRows,
		"output.format":          "both",
		"output.dir":             ".",
		"output.color":           true,
		"macros.enabled":         true,
		"macros.taxonomy_file":   "",
		"formatting.enabled":     true,
		"log.level":              "info",
		"log.file":               "",
		"audit.enabled":          false,
		"audit.file":             filepath.Join(Dir(), "audit.log"),
		"batch.concurrency":      4,
		"watch.debounce_ms":      500,
	}
}

// Load reads the configuration from file (or ~/.sheetlens/config.yaml when
// file is empty) and SHEETLENS_* environment variables. A missing default
// config file is not an error; a missing explicit one is.
func Load(file string) (*Config, error) {
	for k, v := range defaults() {
		viper.SetDefault(k, v)
	}

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(Dir())
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	return &cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// AnalysisOptions builds the engine options. The taxonomy file, if set,
// extends or replaces the built-in keyword taxonomy.
func (c *Config) AnalysisOptions() (analysis.Options, error) {
	opts := analysis.DefaultOptions()
	opts.FormulaRows = c.Sampling.FormulaRows
	opts.StyleRows = c.Sampling.StyleRows
	opts.StyleColumns = c.Sampling.StyleColumns
	opts.PreviewRows = c.Sampling.PreviewRows
	opts.IncludeFormatting = c.Formatting.Enabled
	opts.IncludeMacros = c.Macros.Enabled
	opts.Logger = logger.Log

	if c.Macros.TaxonomyFile != "" {
		tax, err := heuristics.Load(c.Macros.TaxonomyFile)
		if err != nil {
			return opts, err
		}
		opts.Taxonomy = tax
	}
	return opts, nil
}

// Issue represents a validation finding.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error" or "warning"
	Message  string `json:"message"`
}

// Validate checks the configuration for values the commands cannot use.
func (c *Config) Validate() []Issue {
	var issues []Issue
	for key, n := range map[string]int{
		"sampling.formula_rows":  c.Sampling.FormulaRows,
		"sampling.style_rows":    c.Sampling.StyleRows,
		"sampling.style_columns": c.Sampling.StyleColumns,
		"sampling.preview_rows":  c.Sampling.PreviewRows,
		"batch.concurrency":      c.Batch.Concurrency,
	} {
		if n <= 0 {
			issues = append(issues, Issue{Key: key, Severity: "warning", Message: fmt.Sprintf("%d is not positive; the default is used", n)})
		}
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		issues = append(issues, Issue{Key: "output.format", Severity: "error", Message: err.Error()})
	}
	if f := c.Macros.TaxonomyFile; f != "" {
		if _, err := os.Stat(f); err != nil {
			issues = append(issues, Issue{Key: "macros.taxonomy_file", Severity: "error", Message: fmt.Sprintf("taxonomy file not readable: %v", err)})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Key < issues[j].Key })
	return issues
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefaults writes the built-in configuration to path. An existing
// file is only replaced when force is set.
func WriteDefaults(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	data, err := Defaults().YAML()
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns ~/.sheetlens, or .sheetlens when the home directory is
// unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetlens"
	}
	return filepath.Join(home, ".sheetlens")
}
