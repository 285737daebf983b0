// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sheetlens configuration",
		Long: `View, create and validate the sheetlens configuration.

Settings are read from ~/.sheetlens/config.yaml (or --config) and can be
overridden with SHEETLENS_* environment variables, e.g.
SHEETLENS_SAMPLING_FORMULA_ROWS=20.`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func targetPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return config.Path()
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := targetPath(cmd)
			if err := config.WriteDefaults(path, force); err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			if cmdutil.JSON(cmd) {
				return output.PrintJSON("config init", map[string]string{"path": path})
			}
			color.New(color.FgGreen).Printf("✓ Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.Setup(cmd, nil)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			if cmdutil.JSON(cmd) {
				return output.PrintJSON("config show", cfg)
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(targetPath(cmd))
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.Setup(cmd, nil)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			issues := cfg.Validate()

			errors, warnings := 0, 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errors++
				case "warning":
					warnings++
				}
			}

			if cmdutil.JSON(cmd) {
				if issues == nil {
					issues = []config.Issue{}
				}
				if err := output.PrintJSON("config validate", issues); err != nil {
					return err
				}
			} else if len(issues) == 0 {
				color.New(color.FgGreen).Println("Configuration is valid")
			} else {
				fmt.Printf("Config validation: %d errors, %d warnings\n\n", errors, warnings)
				for _, issue := range issues {
					c := color.New(color.FgYellow)
					if issue.Severity == "error" {
						c = color.New(color.FgRed)
					}
					c.Printf("  %s: %s\n", issue.Key, issue.Message)
				}
			}

			if errors > 0 {
				return fmt.Errorf("configuration has %d error(s)", errors)
			}
			return nil
		},
	}
}
