// Package watch monitors directories for new or modified workbooks and
// hands each settled file to a handler, typically an analysis run.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/klytics/sheetlens/internal/workbook"
)

// DefaultDebounce is the quiet period after the last write before a file
// is processed.
const DefaultDebounce = 500 * time.Millisecond

// Event statuses.
const (
	StatusProcessed = "processed"
	StatusError     = "error"
	StatusSkipped   = "skipped"
)

// Config holds the watcher configuration.
type Config struct {
	Directories []string
	Recursive   bool
	// Pattern, if set, is a glob matched against the base name.
	Pattern  string
	Debounce time.Duration
}

// Event represents a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Handler is called once per settled workbook.
type Handler func(ctx context.Context, path string) error

// Watcher monitors directories for workbook changes.
type Watcher struct {
	Config  Config
	Logger  logrus.FieldLogger
	Handler Handler

	mu       sync.Mutex
	events   []Event
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
	inflight sync.WaitGroup
}

// New creates a Watcher. Close it by cancelling the context passed to Start.
func New(config Config, handler Handler, log logrus.FieldLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Watcher{
		Config:   config,
		Logger:   log.WithField("component", "watch"),
		Handler:  handler,
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the configured directories. It blocks until the
// context is cancelled, then waits for in-flight handlers. Pending
// debounced files are dropped.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Config.Directories {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}

		if w.Config.Recursive {
			if err := w.addRecursive(absDir); err != nil {
				return err
			}
		} else if err := w.watcher.Add(absDir); err != nil {
			return fmt.Errorf("could not watch %s: %w", absDir, err)
		}
	}

	w.Logger.WithField("directories", len(w.Config.Directories)).Info("Watching for workbooks")

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Stopping watcher")
			w.stopTimers()
			w.inflight.Wait()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.Matches(event.Name) {
		return
	}

	path := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[path]; ok && timer.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.Config.Debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.debounce[path] == timer {
			delete(w.debounce, path)
		}
		w.mu.Unlock()
		w.process(ctx, path, event.Op.String())
	})
	w.debounce[path] = timer
}

// pending returns the number of paths waiting out their debounce delay.
func (w *Watcher) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.debounce)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.debounce {
		if timer.Stop() {
			w.inflight.Done()
		}
		delete(w.debounce, path)
	}
}

// Matches reports whether path is a workbook the watcher should process:
// a supported extension, not an Office lock file, and matching Pattern.
func (w *Watcher) Matches(path string) bool {
	if !workbook.IsSupported(path) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	if w.Config.Pattern != "" {
		matched, _ := filepath.Match(w.Config.Pattern, base)
		return matched
	}
	return true
}

func (w *Watcher) process(ctx context.Context, path, operation string) {
	evt := Event{
		Time:      time.Now(),
		Path:      path,
		Operation: operation,
		Status:    StatusSkipped,
	}
	log := w.Logger.WithField("file", path)

	if ctx.Err() == nil && w.Handler != nil {
		if err := w.Handler(ctx, path); err != nil {
			evt.Status = StatusError
			evt.Error = err.Error()
			log.WithError(err).Error("Analysis failed")
		} else {
			evt.Status = StatusProcessed
			log.Info("Analysed workbook")
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// Events returns all recorded events.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}
