// Package analysis turns a parsed workbook into a Report: structure,
// content, sampled formulas and styles, and the macro risk profile.
package analysis

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/klytics/sheetlens/internal/heuristics"
	"github.com/klytics/sheetlens/internal/logger"
	"github.com/klytics/sheetlens/internal/workbook"
)

// Phase names, as used in logs, progress callbacks and PhaseError.
const (
	PhaseMetadata   = "metadata"
	PhaseStructure  = "structure"
	PhaseContent    = "content"
	PhaseFormatting = "formatting"
	PhaseMacros     = "macros"
)

// DefaultPreviewRows is the number of data rows kept as sample data.
const DefaultPreviewRows = 5

// Options controls one analysis run. Zero sampling values select the
// defaults.
type Options struct {
	FormulaRows  int
	StyleRows    int
	StyleColumns int
	PreviewRows  int

	IncludeFormatting bool
	IncludeMacros     bool

	// Taxonomy classifies macro source. Nil selects heuristics.Default().
	Taxonomy Scanner
	Logger   logrus.FieldLogger
	// OnPhase, if set, is called as each phase starts.
	OnPhase func(phase string)
	// Now stamps the report; tests pin it.
	Now func() time.Time
}

// DefaultOptions enables every phase with the default sampling windows.
func DefaultOptions() Options {
	return Options{
		FormulaRows:       DefaultFormulaRows,
		StyleRows:         DefaultStyleRows,
		StyleColumns:      DefaultStyleColumns,
		PreviewRows:       DefaultPreviewRows,
		IncludeFormatting: true,
		IncludeMacros:     true,
	}
}

// Analyzer runs the analysis phases over workbook sources.
type Analyzer struct {
	opts Options
}

// New returns an Analyzer, filling unset options with defaults.
func New(opts Options) *Analyzer {
	if opts.FormulaRows <= 0 {
		opts.FormulaRows = DefaultFormulaRows
	}
	if opts.StyleRows <= 0 {
		opts.StyleRows = DefaultStyleRows
	}
	if opts.StyleColumns <= 0 {
		opts.StyleColumns = DefaultStyleColumns
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Taxonomy == nil {
		opts.Taxonomy = heuristics.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Log
	}
	if opts.OnPhase == nil {
		opts.OnPhase = func(string) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{opts: opts}
}

// Analyze runs every enabled phase over src. A phase that returns an error
// or panics becomes an error marker in its section and the remaining
// phases still run. macros may be nil when no extractor is available.
func (a *Analyzer) Analyze(src workbook.Source, macros workbook.MacroExtractor) *Report {
	log := a.opts.Logger.WithField("file", filepath.Base(src.Path()))
	rep := &Report{FileInfo: a.fileInfo(src, log)}

	rep.Metadata = runPhase(a, log, PhaseMetadata, func() (workbook.Metadata, error) {
		md, err := src.Metadata()
		if err != nil {
			return workbook.Metadata{}, err
		}
		return *md, nil
	})
	rep.Structure = runPhase(a, log, PhaseStructure, func() (Structure, error) {
		return a.structure(src)
	})
	rep.Content = runPhase(a, log, PhaseContent, func() (Content, error) {
		return a.content(src)
	})

	if a.opts.IncludeFormatting {
		rep.Formatting = runPhase(a, log, PhaseFormatting, func() (Formatting, error) {
			return a.formatting(src)
		})
	} else {
		rep.Formatting = Skip("formatting analysis disabled", emptyFormatting(src.SheetNames()))
	}

	switch {
	case !a.opts.IncludeMacros:
		rep.Macros = Skip("macro analysis disabled", MacroAnalysis{Modules: []MacroModule{}})
	case !src.MacroEnabled():
		rep.Macros = Completed(MacroAnalysis{Message: NotMacroEnabled})
	default:
		rep.Macros = runPhase(a, log, PhaseMacros, func() (MacroAnalysis, error) {
			return a.macros(macros)
		})
	}

	rep.Summary = Summarize(rep, len(src.SheetNames()))
	return rep
}

// runPhase converts a phase's error or panic into an error marker.
func runPhase[T any](a *Analyzer, log *logrus.Entry, phase string, fn func() (T, error)) (sec Section[T]) {
	a.opts.OnPhase(phase)
	start := time.Now()
	plog := log.WithField("phase", phase)

	defer func() {
		if r := recover(); r != nil {
			perr := &PhaseError{Phase: phase, Err: fmt.Errorf("panic: %v", r)}
			plog.Warn(perr.Error())
			sec = Failure[T](perr)
		}
	}()

	v, err := fn()
	if err != nil {
		perr := &PhaseError{Phase: phase, Err: err}
		plog.Warn(perr.Error())
		return Failure[T](perr)
	}
	plog.WithField("duration", time.Since(start)).Debug("phase complete")
	return Completed(v)
}

func (a *Analyzer) fileInfo(src workbook.Source, log *logrus.Entry) FileInfo {
	info := FileInfo{
		AnalysisID:        uuid.NewString(),
		FileName:          filepath.Base(src.Path()),
		FilePath:          src.Path(),
		MacroEnabled:      src.MacroEnabled(),
		AnalysisTimestamp: a.opts.Now(),
	}
	st, err := os.Stat(src.Path())
	if err != nil {
		log.WithError(err).Debug("could not stat input")
		return info
	}
	info.FileSize = st.Size()
	info.FileSizeMB = math.Round(float64(st.Size())/(1024*1024)*100) / 100
	info.LastModified = st.ModTime()
	return info
}

func (a *Analyzer) structure(src workbook.Source) (Structure, error) {
	names := src.SheetNames()
	s := Structure{
		SheetCount: len(names),
		SheetNames: names,
		Sheets:     make(map[string]workbook.SheetInfo, len(names)),
	}
	for _, name := range names {
		info, err := src.SheetInfo(name)
		if err != nil {
			return Structure{}, err
		}
		s.Sheets[name] = *info
	}
	return s, nil
}

func (a *Analyzer) content(src workbook.Source) (Content, error) {
	names := src.SheetNames()
	c := Content{Sheets: make(map[string]SheetContent, len(names))}
	for _, name := range names {
		info, err := src.SheetInfo(name)
		if err != nil {
			return Content{}, err
		}
		sc, err := a.sheetContent(src, *info)
		if err != nil {
			return Content{}, err
		}
		c.Sheets[name] = sc
		c.TotalRows += sc.Rows
		c.TotalColumns += sc.Columns
	}
	return c, nil
}

func (a *Analyzer) sheetContent(src workbook.Source, info workbook.SheetInfo) (SheetContent, error) {
	sc := SheetContent{
		Rows:           info.MaxRow,
		Columns:        info.MaxColumn,
		ColumnNames:    []string{},
		HeaderPatterns: HeaderClassification{},
		SampleData:     [][]string{},
		NonEmptyCounts: map[string]int{},
		Formulas:       []FormulaRecord{},
	}
	if info.MaxRow == 0 {
		return sc, nil
	}

	rows, err := src.Rows(info.Name, a.opts.PreviewRows+1)
	if err != nil {
		return SheetContent{}, err
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	sc.ColumnNames = SynthesizeHeaders(header, info.MaxColumn)
	sc.HeaderPatterns = ClassifyHeaders(sc.ColumnNames)

	for _, name := range sc.ColumnNames {
		sc.NonEmptyCounts[name] = 0
	}
	if len(rows) > 1 {
		for _, row := range rows[1:] {
			padded := make([]string, len(sc.ColumnNames))
			copy(padded, row)
			sc.SampleData = append(sc.SampleData, padded)
			for i, v := range padded {
				if v != "" {
					sc.NonEmptyCounts[sc.ColumnNames[i]]++
				}
			}
		}
	}

	formulas, err := ScanFormulas(src, info, a.opts.FormulaRows)
	if err != nil {
		return SheetContent{}, err
	}
	sc.Formulas = formulas
	sc.FormulaCountSample = len(formulas)
	sc.HasFormulas = len(formulas) > 0
	return sc, nil
}

func (a *Analyzer) formatting(src workbook.Source) (Formatting, error) {
	names := src.SheetNames()
	f := emptyFormatting(names)
	fonts, colors := map[string]bool{}, map[string]bool{}

	for _, name := range names {
		info, err := src.SheetInfo(name)
		if err != nil {
			return Formatting{}, err
		}
		cf, err := src.ConditionalFormatCount(name)
		if err != nil {
			return Formatting{}, err
		}
		p, err := ProfileStyles(src, *info, a.opts.StyleRows, a.opts.StyleColumns, cf)
		if err != nil {
			return Formatting{}, err
		}
		f.Sheets[name] = p

		f.Summary.TotalStyledCells += p.StyledCells
		if p.ConditionalFormats > 0 {
			f.Summary.HasConditionalFormatting = true
		}
		for k := range p.Fonts {
			fonts[k] = true
		}
		for k := range p.Colors {
			colors[k] = true
		}
	}
	f.Summary.UniqueFonts = sortedKeys(fonts)
	f.Summary.UniqueColors = sortedKeys(colors)
	return f, nil
}

func emptyFormatting(names []string) Formatting {
	f := Formatting{
		Sheets:  make(map[string]StyleProfile, len(names)),
		Summary: FormattingSummary{UniqueFonts: []string{}, UniqueColors: []string{}},
	}
	for _, name := range names {
		f.Sheets[name] = NewStyleProfile()
	}
	return f
}

func (a *Analyzer) macros(extractor workbook.MacroExtractor) (MacroAnalysis, error) {
	m := MacroAnalysis{
		Modules: []MacroModule{},
		Security: SecurityAnalysis{
			SuspiciousKeywords: []SecurityFinding{},
			AutoExecKeywords:   []SecurityFinding{},
			IOCs:               []SecurityFinding{},
		},
	}
	if extractor == nil {
		return m, nil
	}

	sources, err := extractor.Modules()
	if err != nil {
		return MacroAnalysis{}, err
	}
	for _, src := range sources {
		if src.Code == "" {
			continue
		}
		mod := NewMacroModule(src)
		m.Modules = append(m.Modules, mod)
		m.Statistics.TotalLines += mod.LineCount
		m.Statistics.TotalCharacters += mod.CodeLength
	}
	m.Statistics.TotalModules = len(m.Modules)
	m.HasMacros = len(m.Modules) > 0

	findings := ClassifyFindings(sources, a.opts.Taxonomy)
	for _, f := range findings {
		switch f.Category {
		case heuristics.Suspicious:
			m.Security.SuspiciousKeywords = append(m.Security.SuspiciousKeywords, f)
		case heuristics.AutoExec:
			m.Security.AutoExecKeywords = append(m.Security.AutoExecKeywords, f)
		case heuristics.IOC:
			m.Security.IOCs = append(m.Security.IOCs, f)
		}
	}
	m.Security.RiskLevel = ComputeRiskLevel(findings)
	return m, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
