// Package inbox imports workflow documents dropped into a directory.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meikuraledutech/flow"
)

// DefaultDelay is how long a file must stay quiet before it is imported.
const DefaultDelay = 500 * time.Millisecond

// Config tunes a Watcher. Zero values pick the defaults.
type Config struct {
	Delay  time.Duration
	Logger *slog.Logger
	// OnImport, if set, is called after each import attempt.
	OnImport func(path string, w *flow.StoredWorkflow, err error)
}

// Watcher imports every *.json file written to a directory as a new workflow.
// Each write imports again; files are never modified or removed.
type Watcher struct {
	svc     *flow.Service
	cfg     Config
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	timers   map[string]*time.Timer
	closed   bool
	inflight sync.WaitGroup
	done     chan struct{}
}

// Watch starts watching dir, creating it if needed.
func Watch(dir string, svc *flow.Service, cfg Config) (*Watcher, error) {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("flow: create inbox: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("flow: create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("flow: watch %s: %w", dir, err)
	}

	w := &Watcher{
		svc:     svc,
		cfg:     cfg,
		watcher: fw,
		timers:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops watching. Imports that have not started yet are dropped;
// running ones are waited for.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	w.inflight.Wait()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.cfg.Logger.Warn("inbox watcher", slog.String("error", err.Error()))
		}
	}
}

// schedule (re)starts the quiet timer for path so a file written in
// several chunks is read once.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Delay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		w.importFile(path)
	})
}

func (w *Watcher) importFile(path string) {
	data, err := os.ReadFile(path)
	var wf *flow.StoredWorkflow
	if err == nil {
		wf, err = w.svc.Import(context.Background(), data)
	}

	if err != nil {
		w.cfg.Logger.Warn("inbox import failed", slog.String("file", path), slog.String("error", err.Error()))
	} else {
		w.cfg.Logger.Info("inbox import",
			slog.String("file", path),
			slog.String("workflow", wf.ID),
			slog.Int("nodes", len(wf.Schema.Nodes)))
	}
	if w.cfg.OnImport != nil {
		w.cfg.OnImport(path, wf, err)
	}
}
