// Package watch merges SBOM documents as they appear in a directory.
//
// Events are debounced: a burst of writes to one or more files produces a
// single batch, merged in lexical path order so that a given set of files
// always yields the same graph.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler merges the document at path. An error is logged and the watch
// continues.
type Handler func(ctx context.Context, path string) error

// Watcher debounces filesystem events in one directory.
//
// Not safe for concurrent use; Run owns all state.
type Watcher struct {
	dir      string
	debounce time.Duration
	handle   Handler
	logger   *slog.Logger
	pending  map[string]struct{}
}

// New creates a watcher for *.json files directly under dir.
func New(dir string, debounce time.Duration, handle Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handle:   handle,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}
}

// Run merges the documents already present, then watches until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	existing, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.pending[path] = struct{}{}
	}
	w.flush(ctx)
	w.logger.Info("watching", "dir", w.dir, "debounce", w.debounce)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			w.flush(ctx)
		}
	}
}

// handleEvent queues a document path. It reports whether the event was
// relevant.
func (w *Watcher) handleEvent(ev fsnotify.Event) bool {
	if !isDocument(ev.Name) {
		return false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	w.pending[ev.Name] = struct{}{}
	return true
}

// flush merges every pending path in lexical order and returns the paths
// handed to the handler.
func (w *Watcher) flush(ctx context.Context) []string {
	paths := slices.Sorted(maps.Keys(w.pending))
	clear(w.pending)

	merged := make([]string, 0, len(paths))
	for _, path := range paths {
		// Removed again before the window closed.
		if _, err := os.Stat(path); err != nil {
			w.logger.Debug("skip vanished document", "path", path)
			continue
		}
		merged = append(merged, path)
		if err := w.handle(ctx, path); err != nil {
			w.logger.Warn("document not merged", "path", path, "error", err)
		}
	}
	return merged
}

func isDocument(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
