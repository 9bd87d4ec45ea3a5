package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned by Run when the underlying event source goes away.
var ErrClosed = errors.New("watch event source closed")

type Kind int

const (
	KindOther Kind = iota
	KindCreated
)

func (k Kind) String() string {
	if k == KindCreated {
		return "created"
	}
	return "other"
}

// Event is a filesystem notification. Only KindCreated events with at least
// one path are meant to trigger processing.
type Event struct {
	Kind  Kind
	Paths []string
}

// Watcher forwards filesystem events under a root directory, including all
// of its subdirectories, to a buffered channel. When the buffer is full the
// forwarder blocks, so the consumer sees events one at a time in arrival
// order.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan Event
	logger *slog.Logger
}

func New(root string, buffer int, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:   root,
		fsw:    fsw,
		events: make(chan Event, buffer),
		logger: logger,
	}
	if _, err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events is the channel Run delivers to. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run pumps fsnotify events until ctx is cancelled or the source closes.
// Watch errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case fe, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			w.logger.Debug("watch event", "op", fe.Op.String(), "path", fe.Name)

			ev := toEvent(fe)
			var existing []string
			if ev.Kind == KindCreated {
				existing = w.watchIfDir(fe.Name)
			}
			if !w.send(ctx, ev) {
				return nil
			}
			// Files already inside a new directory never get their own
			// Create event; forward them as if they had.
			if len(existing) > 0 && !w.send(ctx, Event{Kind: KindCreated, Paths: existing}) {
				return nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func toEvent(fe fsnotify.Event) Event {
	kind := KindOther
	if fe.Has(fsnotify.Create) {
		kind = KindCreated
	}
	return Event{Kind: kind, Paths: []string{fe.Name}}
}

func (w *Watcher) send(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// watchIfDir adds path to the watch set when it is a directory and returns
// the regular files already present below it.
func (w *Watcher) watchIfDir(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	files, err := w.addTree(path)
	if err != nil {
		w.logger.Error("failed to watch new directory", "path", path, "error", err)
	}
	return files
}

// addTree watches root and every directory below it. It returns the
// regular files it came across.
func (w *Watcher) addTree(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	return files, err
}
