// Package progress draws batch progress and per-workbook phase spinners on
// stderr so stdout stays clean for reports and JSON.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Bar tracks a batch run, one step per workbook, and counts the workbooks
// that failed.
type Bar struct {
	Total   int
	Done    int
	Failed  int
	Label   string
	Width   int
	Enabled bool

	out io.Writer
	mu  sync.Mutex
}

// New returns a bar for total workbooks. It is disabled when stderr is not
// a terminal, under --json, or when SHEETLENS_NO_PROGRESS=1.
func New(label string, total int) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: shouldEnable(),
		out:     os.Stderr,
	}
}

// Step records one finished workbook. Safe for concurrent use.
func (b *Bar) Step(file string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Done < b.Total {
		b.Done++
	}
	if failed {
		b.Failed++
	}
	if !b.Enabled {
		return
	}

	filled := b.Width
	if b.Total > 0 {
		filled = b.Done * b.Width / b.Total
	}
	line := fmt.Sprintf("%s [%s%s] %d/%d", b.Label, strings.Repeat("#", filled), strings.Repeat(".", b.Width-filled), b.Done, b.Total)
	if b.Failed > 0 {
		line += fmt.Sprintf(" (%d failed)", b.Failed)
	}
	fmt.Fprintf(writer(b.out), "\r\033[K%s  %s", line, file)
}

// Finish clears the bar and prints summary, marked ✗ when any workbook
// failed.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	mark := "✓"
	if b.Failed > 0 {
		mark = "✗"
	}
	fmt.Fprintf(writer(b.out), "\r\033[K%s %s\n", mark, summary)
}

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner animates while one workbook is analysed and shows the running
// phase and the elapsed time.
type Spinner struct {
	Label   string
	Enabled bool

	out     io.Writer
	mu      sync.Mutex
	started time.Time
	phases  int
	done    chan struct{}
}

// NewSpinner returns a spinner with the same enablement rules as New.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		Label:   label,
		Enabled: shouldEnable(),
		out:     os.Stderr,
	}
}

// Start begins the animation. A disabled spinner does nothing.
func (s *Spinner) Start() {
	if !s.Enabled {
		return
	}

	s.mu.Lock()
	s.started = time.Now()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.done != done {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(writer(s.out), "\r\033[K%c %s  %.1fs", frames[i%len(frames)], s.Label, time.Since(s.started).Seconds())
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation with a success line.
func (s *Spinner) Stop(result string) { s.finish("✓", result) }

// Fail ends the animation with a failure line.
func (s *Spinner) Fail(result string) { s.finish("✗", result) }

func (s *Spinner) finish(mark, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return
	}
	close(s.done)
	s.done = nil
	fmt.Fprintf(writer(s.out), "\r\033[K%s %s\n", mark, result)
}

// OnPhase returns a callback for analysis.Options.OnPhase. Each call
// relabels the spinner with file, the phase name and its position.
func (s *Spinner) OnPhase(file string) func(phase string) {
	return func(phase string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.phases++
		s.Label = fmt.Sprintf("Analyzing %s [%d] %s", file, s.phases, phase)
	}
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

func shouldEnable() bool {
	if os.Getenv("SHEETLENS_NO_PROGRESS") == "1" || os.Getenv("SHEETLENS_JSON") == "true" {
		return false
	}
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
