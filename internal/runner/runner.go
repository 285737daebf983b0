// Package runner opens workbooks, runs the analyzer over them and writes
// the resulting reports. It is shared by the analyze, batch, compare and
// watch commands.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/klytics/sheetlens/internal/analysis"
	"github.com/klytics/sheetlens/internal/audit"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/formats/vba"
	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/logger"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/workbook"
)

// Result is the outcome for one workbook.
type Result struct {
	File    string           `json:"file"`
	Status  string           `json:"status"`
	Report  *analysis.Report `json:"-"`
	Outputs []string         `json:"outputs,omitempty"`
	Error   string           `json:"error,omitempty"`
	Elapsed time.Duration    `json:"-"`

	err error
}

// Err returns the error that stopped the workbook from being analysed or
// written, if any.
func (r *Result) Err() error { return r.err }

// Runner analyses workbooks with a fixed set of options.
type Runner struct {
	Options analysis.Options
	// OutputDir receives the report files. Reports are not written when
	// WriteReports is false.
	OutputDir    string
	Format       output.Format
	WriteReports bool
	Command      string
	Audit        *audit.Logger
	Log          logrus.FieldLogger
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// AnalyzeFile opens path and runs every enabled phase over it. The
// workbook handle is closed before returning.
func AnalyzeFile(path string, opts analysis.Options) (*analysis.Report, error) {
	f, err := xlsx.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var macros workbook.MacroExtractor
	if f.MacroEnabled() {
		macros = vba.NewExtractor(path)
	}
	return analysis.New(opts).Analyze(f, macros), nil
}

// Analyze runs one workbook through analysis, report writing and the audit
// ledger. onPhase, if set, overrides Options.OnPhase for this run.
func (r *Runner) Analyze(ctx context.Context, path string, onPhase func(string)) *Result {
	start := time.Now()
	res := &Result{File: path, Status: audit.StatusOK}
	log := r.logger().WithField("file", path)

	opts := r.Options
	if onPhase != nil {
		opts.OnPhase = onPhase
	}
	if opts.Logger == nil {
		opts.Logger = r.logger()
	}

	rep, err := AnalyzeFile(path, opts)
	if err == nil && r.WriteReports {
		res.Outputs, err = output.WriteReports(r.OutputDir, output.Stem(path), rep, r.Format)
	}
	res.Report = rep
	res.Elapsed = time.Since(start)

	entry := audit.NewEntry(r.Command, path, rep, err, res.Elapsed)
	entry.Outputs = res.Outputs
	res.Status = entry.Status
	if err != nil {
		res.err = err
		res.Error = err.Error()
		log.WithError(err).Warn("Workbook analysis failed")
	} else {
		log.WithField("elapsed", res.Elapsed).Debug("Workbook analysed")
	}

	if aerr := r.Audit.Log(ctx, entry); aerr != nil {
		log.WithError(aerr).Warn("Could not write audit entry")
	}
	return res
}

// Batch analyses files with at most concurrency workers. Per-file failures
// are recorded in the results, never returned; the only error is context
// cancellation. done, if set, is called after each file.
func (r *Runner) Batch(ctx context.Context, files []string, concurrency int, done func(*Result)) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]*Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.Analyze(gctx, file, nil)
			results[i] = res
			if done != nil {
				done(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}
	return results, nil
}

// Expand resolves arguments to the supported workbooks they name, without
// duplicates and in argument order. An argument is a glob pattern or a
// directory, which is walked recursively skipping hidden directories.
func Expand(args []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(path string) {
		base := filepath.Base(path)
		if seen[path] || !workbook.IsSupported(path) || strings.HasPrefix(base, "~$") {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			if err := walk(arg, add); err != nil {
				return nil, err
			}
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no .xlsx or .xlsm files matched")
	}
	return files, nil
}

func walk(root string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("could not scan %s: %w", path, err)
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		add(path)
		return nil
	})
}

// Counts tallies batch results by status.
func Counts(results []*Result) (ok, partial, failed int) {
	for _, r := range results {
		switch {
		case r == nil:
		case r.Status == audit.StatusFailed:
			failed++
		case r.Status == audit.StatusPartial:
			partial++
		default:
			ok++
		}
	}
	return ok, partial, failed
}

// FromConfig builds a Runner from the loaded configuration.
func FromConfig(cfg *config.Config, command string) (*Runner, error) {
	opts, err := cfg.AnalysisOptions()
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Options:      opts,
		OutputDir:    cfg.Output.Dir,
		Format:       format,
		WriteReports: true,
		Command:      command,
		Audit:        audit.NewLogger(cfg.Audit.File, cfg.Audit.Enabled),
		Log:          logger.Log,
	}, nil
}
