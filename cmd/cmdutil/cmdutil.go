// Package cmdutil holds the setup shared by every sheetlens command.
package cmdutil

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/logger"
	"github.com/klytics/sheetlens/internal/output"
)

// Setup binds the named flags to config keys, loads the configuration and
// applies the global flags to the logger and colour output. bindings maps
// config keys to flag names.
func Setup(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || !cfg.Output.Color {
		color.NoColor = true
	}
	if JSON(cmd) {
		os.Setenv("SHEETLENS_JSON", "true")
	}
	return cfg, nil
}

// JSON reports whether the global --json flag is set.
func JSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// Fail reports err through the JSON envelope when --json is set and
// returns it so cobra exits non-zero.
func Fail(cmd *cobra.Command, err error, code int) error {
	if err != nil && JSON(cmd) {
		_ = output.PrintJSONError(cmd.CommandPath(), err, code)
	}
	return err
}
