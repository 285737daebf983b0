// Package audit keeps a JSONL ledger of analysis runs for `sheetlens history`.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klytics/sheetlens/internal/analysis"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Entry represents a single analysis run.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	AnalysisID   string    `json:"analysis_id,omitempty"`
	Command      string    `json:"command"`
	File         string    `json:"file"`
	Status       string    `json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	RiskLevel    string    `json:"risk_level,omitempty"`
	FailedPhases []string  `json:"failed_phases,omitempty"`
	Error        string    `json:"error,omitempty"`
	Outputs      []string  `json:"outputs,omitempty"`
}

// NewEntry records the outcome of analysing file. rep is nil when the
// workbook could not be opened, in which case err says why.
func NewEntry(command, file string, rep *analysis.Report, err error, elapsed time.Duration) Entry {
	e := Entry{
		Timestamp:  time.Now().UTC(),
		Command:    command,
		File:       file,
		Status:     StatusOK,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		e.Status = StatusFailed
		e.Error = err.Error()
	}
	if rep == nil {
		if err == nil {
			e.Status = StatusFailed
		}
		return e
	}

	e.AnalysisID = rep.FileInfo.AnalysisID
	e.FailedPhases = rep.Summary.FailedPhases
	if rep.Summary.RiskLevel != nil {
		e.RiskLevel = rep.Summary.RiskLevel.String()
	}
	if e.Status == StatusOK && len(e.FailedPhases) > 0 {
		e.Status = StatusPartial
	}
	return e
}

// Logger appends entries to the ledger file. Safe for concurrent use.
type Logger struct {
	FilePath string
	Enabled  bool

	mu sync.Mutex
}

// NewLogger creates a Logger. A disabled logger or empty path makes Log a
// no-op.
func NewLogger(filePath string, enabled bool) *Logger {
	return &Logger{
		FilePath: filePath,
		Enabled:  enabled,
	}
}

// Log appends one entry.
func (l *Logger) Log(_ context.Context, entry Entry) error {
	if l == nil || !l.Enabled || l.FilePath == "" {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.FilePath), 0o755); err != nil {
		return fmt.Errorf("could not create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open audit log: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// ReadEntries reads all entries from the ledger. A missing file yields no
// entries; malformed lines are skipped.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FilterEntries returns entries at or after since whose file contains
// file and whose status equals status. Empty criteria match everything.
func FilterEntries(entries []Entry, since time.Time, file, status string) []Entry {
	var result []Entry
	for _, e := range entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if file != "" && !strings.Contains(e.File, file) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		result = append(result, e)
	}
	return result
}

// LogSize returns the size of the ledger in bytes, or 0 if not found.
func LogSize(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the ledger.
func Clear(filePath string) error {
	return os.Truncate(filePath, 0)
}
