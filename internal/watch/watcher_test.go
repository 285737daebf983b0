package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/sheetlens/internal/logger"
)

func newTestWatcher(t *testing.T, cfg Config, h Handler) *Watcher {
	t.Helper()
	w, err := New(cfg, h, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestMatches(t *testing.T) {
	w := newTestWatcher(t, Config{}, nil)
	defer w.watcher.Close()

	tests := []struct {
		path string
		want bool
	}{
		{"/tmp/data.xlsx", true},
		{"/tmp/macro.XLSM", true},
		{"/tmp/report.docx", false},
		{"/tmp/~$data.xlsx", false},
		{"/tmp/.~lock.xlsx", false},
		{"/tmp/readme.txt", false},
	}
	for _, tt := range tests {
		if got := w.Matches(tt.path); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatchesPattern(t *testing.T) {
	w := newTestWatcher(t, Config{Pattern: "budget_*"}, nil)
	defer w.watcher.Close()

	if !w.Matches("/tmp/budget_2024.xlsx") {
		t.Error("should match budget_2024.xlsx")
	}
	if w.Matches("/tmp/invoice.xlsx") {
		t.Error("should not match invoice.xlsx")
	}
}

func TestDefaultDebounce(t *testing.T) {
	w := newTestWatcher(t, Config{}, nil)
	defer w.watcher.Close()

	if w.Config.Debounce != DefaultDebounce {
		t.Errorf("expected default debounce %v, got %v", DefaultDebounce, w.Config.Debounce)
	}
}

func TestWatcherProcessesWorkbook(t *testing.T) {
	dir := t.TempDir()
	called := make(chan string, 4)
	w := newTestWatcher(t, Config{Directories: []string{dir}, Debounce: 50 * time.Millisecond},
		func(_ context.Context, path string) error {
			called <- path
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(dir, "book.xlsx")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-called:
		if filepath.Base(path) != "book.xlsx" {
			t.Errorf("expected book.xlsx, got %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler call")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start returned %v", err)
	}

	events := w.Events()
	if len(events) != 1 || events[0].Status != StatusProcessed {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestWatcherRecordsHandlerError(t *testing.T) {
	dir := t.TempDir()
	called := make(chan struct{}, 4)
	w := newTestWatcher(t, Config{Directories: []string{dir}, Debounce: 50 * time.Millisecond},
		func(context.Context, string) error {
			defer func() { called <- struct{}{} }()
			return errors.New("could not open")
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "bad.xlsm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler call")
	}
	time.Sleep(20 * time.Millisecond)

	events := w.Events()
	if len(events) == 0 || events[0].Status != StatusError || events[0].Error != "could not open" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestWatcherSkipsNonWorkbooks(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := newTestWatcher(t, Config{Directories: []string{dir}, Debounce: 50 * time.Millisecond},
		func(context.Context, string) error {
			calls.Add(1)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("test"), 0o644)
	os.WriteFile(filepath.Join(dir, "~$book.xlsx"), []byte("lock"), 0o644)
	time.Sleep(250 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times for non-workbooks", n)
	}
}

func TestStartMissingDirectory(t *testing.T) {
	w := newTestWatcher(t, Config{Directories: []string{filepath.Join(t.TempDir(), "missing")}}, nil)
	defer w.watcher.Close()
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestDebounceEntriesReleased(t *testing.T) {
	var calls atomic.Int32
	w := newTestWatcher(t, Config{Debounce: 50 * time.Millisecond}, func(ctx context.Context, path string) error {
		calls.Add(1)
		return nil
	})
	defer w.watcher.Close()

	ctx := context.Background()
	for _, name := range []string{"/tmp/a.xlsx", "/tmp/b.xlsx", "/tmp/a.xlsx"} {
		w.handleEvent(ctx, fsnotify.Event{Name: name, Op: fsnotify.Write})
	}
	if got := w.pending(); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	w.inflight.Wait()
	if got := calls.Load(); got != 2 {
		t.Errorf("handler calls = %d, want 2 after debouncing", got)
	}
	if got := w.pending(); got != 0 {
		t.Errorf("pending = %d after timers fired, want 0", got)
	}
}
