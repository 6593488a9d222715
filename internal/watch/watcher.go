// Package watch reports batches of changed vault documents.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/ignore"
)

// Event is the last operation seen for one document during a debounce
// window. Path is vault-relative and slash-separated.
type Event struct {
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// Removed reports whether the document is gone.
func (e Event) Removed() bool {
	return e.Operation == fsnotify.Remove.String() || e.Operation == fsnotify.Rename.String()
}

// Handler receives each batch, sorted by path. Batches never overlap.
type Handler func(ctx context.Context, events []Event)

// Options configures a Watcher. Only documents with one of Extensions that
// IgnoreRules do not exclude are reported.
type Options struct {
	Root        string
	Extensions  []string
	IgnoreRules []string
	Debounce    time.Duration
	Logger      *log.Logger
	Handler     Handler
}

// Watcher buffers filesystem events under Root and hands them to the
// Handler once no new event arrived for the debounce window.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     *log.Logger
	root       string
	extensions []string
	ignore     *ignore.Matcher
	handler    Handler

	ctx        context.Context
	shutdownCh chan struct{}
	stopOnce   sync.Once

	buffer         map[string]Event
	bufferTimer    *time.Timer
	bufferMu       sync.Mutex
	bufferDuration time.Duration
	processMu      sync.Mutex
}

// New creates a watcher for opts.Root. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	if opts.Handler == nil {
		return nil, errors.New("watch handler is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Watcher{
		watcher:        watcher,
		logger:         logger,
		root:           opts.Root,
		extensions:     opts.Extensions,
		ignore:         ignore.NewMatcher(opts.IgnoreRules),
		handler:        opts.Handler,
		ctx:            context.Background(),
		shutdownCh:     make(chan struct{}),
		buffer:         make(map[string]Event),
		bufferDuration: opts.Debounce,
	}, nil
}

// Start watches every non-ignored directory under the root.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx = ctx
	w.logger.Info("starting watcher", "root", w.root, "debounce", w.bufferDuration)

	if err := w.addTree(w.root); err != nil {
		return err
	}

	go w.eventLoop()
	return nil
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.logger.Info("stopping watcher")
		close(w.shutdownCh)

		w.bufferMu.Lock()
		if w.bufferTimer != nil {
			w.bufferTimer.Stop()
		}
		w.bufferMu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "." && w.ignore.ShouldIgnore(rel, true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
	return errors.Wrap(err, "failed to add directories to watcher")
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("watcher events channel closed")
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("watcher errors channel closed")
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-w.shutdownCh:
			return
		}
	}
}

func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && !w.ignore.ShouldIgnore(rel, true) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("failed to watch new directory", "error", err, "path", rel)
			}
		}
		return
	}

	if w.ignore.ShouldIgnore(rel, false) || !fileutil.HasExtension(rel, w.extensions) {
		return
	}

	w.bufferFileEvent(Event{
		Path:      rel,
		Operation: operation(event.Op),
		Timestamp: time.Now(),
	})
}

func (w *Watcher) bufferFileEvent(event Event) {
	w.bufferMu.Lock()
	defer w.bufferMu.Unlock()

	w.buffer[event.Path] = event
	w.logger.Debug("buffered event", "path", event.Path, "operation", event.Operation, "buffered", len(w.buffer))

	if w.bufferTimer != nil {
		w.bufferTimer.Stop()
	}
	w.bufferTimer = time.AfterFunc(w.bufferDuration, w.processBatchedEvents)
}

func (w *Watcher) processBatchedEvents() {
	w.processMu.Lock()
	defer w.processMu.Unlock()

	w.bufferMu.Lock()
	events := make([]Event, 0, len(w.buffer))
	for _, event := range w.buffer {
		events = append(events, event)
	}
	w.buffer = make(map[string]Event)
	w.bufferMu.Unlock()

	if len(events) == 0 {
		return
	}
	select {
	case <-w.shutdownCh:
		return
	default:
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Path < events[j].Path
	})
	w.logger.Debug("processing batch", "count", len(events))
	w.handler(w.ctx, events)
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || len(rel) > 2 && rel[:3] == "../" {
		return "", false
	}
	return rel, true
}

// operation collapses an fsnotify op to the single operation that matters
// for a rewrite.
func operation(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove):
		return fsnotify.Remove.String()
	case op.Has(fsnotify.Rename):
		return fsnotify.Rename.String()
	case op.Has(fsnotify.Create):
		return fsnotify.Create.String()
	default:
		return fsnotify.Write.String()
	}
}
