// Package history provides the "sheetlens history" command over the audit
// ledger.
package history

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/cmdutil"
	"github.com/klytics/sheetlens/internal/audit"
	"github.com/klytics/sheetlens/internal/output"
)

// NewCommand creates the "history" command.
func NewCommand() *cobra.Command {
	var (
		last     int
		since    time.Duration
		file     string
		status   string
		clearLog bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analysis runs",
		Long: `Lists analysis runs recorded in the audit ledger. Recording is enabled
with audit.enabled: true in the config file or SHEETLENS_AUDIT_ENABLED=true.

Examples:
  sheetlens history --last 10
  sheetlens history --since 24h --status failed
  sheetlens history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.Setup(cmd, nil)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitUserError)
			}
			path := cfg.Audit.File

			if clearLog {
				if err := audit.Clear(path); err != nil && !os.IsNotExist(err) {
					return cmdutil.Fail(cmd, err, output.ExitSystemError)
				}
				if cmdutil.JSON(cmd) {
					return output.PrintJSON("history", map[string]string{"cleared": path})
				}
				fmt.Printf("History cleared: %s\n", path)
				return nil
			}

			entries, err := audit.ReadEntries(path)
			if err != nil {
				return cmdutil.Fail(cmd, err, output.ExitSystemError)
			}

			var sinceTime time.Time
			if since > 0 {
				sinceTime = time.Now().Add(-since)
			}
			filtered := audit.FilterEntries(entries, sinceTime, file, status)
			if last > 0 && len(filtered) > last {
				filtered = filtered[len(filtered)-last:]
			}

			if cmdutil.JSON(cmd) {
				if filtered == nil {
					filtered = []audit.Entry{}
				}
				return output.PrintJSON("history", filtered)
			}

			if len(filtered) == 0 {
				fmt.Println("No analysis runs recorded.")
				if !cfg.Audit.Enabled {
					color.New(color.FgHiBlack).Println("Recording is disabled; set audit.enabled to true to keep a history.")
				}
				return nil
			}

			fmt.Printf("History: %d runs (%s, %s)\n\n", len(filtered), path, humanize.Bytes(uint64(audit.LogSize(path))))
			printEntries(filtered)
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show the last N runs")
	cmd.Flags().DurationVar(&since, "since", 0, "Only runs within this duration, e.g. 24h")
	cmd.Flags().StringVar(&file, "file", "", "Only runs whose file path contains this text")
	cmd.Flags().StringVar(&status, "status", "", "Only runs with this status: ok | partial | failed")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "Clear the history")
	return cmd
}

func printEntries(entries []audit.Entry) {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"When", "Command", "File", "Status", "Risk", "Duration"})
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)

	statusColor := map[string]*color.Color{
		audit.StatusOK:      color.New(color.FgGreen),
		audit.StatusPartial: color.New(color.FgYellow),
		audit.StatusFailed:  color.New(color.FgRed),
	}

	for _, e := range entries {
		st := e.Status
		if c, ok := statusColor[st]; ok {
			st = c.Sprint(st)
		}
		risk := e.RiskLevel
		if risk == "" {
			risk = "-"
		}
		t.Append([]string{
			humanize.Time(e.Timestamp),
			e.Command,
			e.File,
			st,
			risk,
			formatDuration(e.DurationMs),
		})
	}
	t.Render()
}

func formatDuration(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}
