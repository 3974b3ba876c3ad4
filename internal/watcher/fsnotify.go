package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// bufferSize is the capacity of the event and error channels. Events that
// arrive while they are full are dropped.
const bufferSize = 64

// FS watches directories with fsnotify.
type FS struct {
	fsw    *fsnotify.Watcher
	filter Filter

	events  chan Event
	errors  chan error
	stopped chan struct{}

	closeOnce sync.Once
	closeErr  error
}

var _ Watcher = (*FS)(nil)

// NewFS starts a watcher. A nil filter accepts every event.
func NewFS(filter Filter) (*FS, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FS{
		fsw:     fsw,
		filter:  filter,
		events:  make(chan Event, bufferSize),
		errors:  make(chan error, bufferSize),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Add starts watching dir.
func (w *FS) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrPathNotExist, abs)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDir, abs)
	}

	if slices.Contains(w.fsw.WatchList(), abs) {
		return nil
	}
	if err := w.fsw.Add(abs); err != nil {
		if errors.Is(err, fsnotify.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Events returns the filtered events.
func (w *FS) Events() <-chan Event {
	return w.events
}

// Errors returns errors reported by fsnotify.
func (w *FS) Errors() <-chan error {
	return w.errors
}

// Close stops watching and waits for the channels to close.
func (w *FS) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	<-w.stopped
	return w.closeErr
}

// run forwards fsnotify events until fsnotify closes its channels.
func (w *FS) run() {
	defer close(w.stopped)
	defer close(w.errors)
	defer close(w.events)

	for {
		select {
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			ev := Event{Path: e.Name, Op: opOf(e.Op)}
			if ev.Op == 0 || (w.filter != nil && !w.filter(ev)) {
				continue
			}
			select {
			case w.events <- ev:
			default:
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// opOf maps fsnotify operations. Chmod alone maps to 0.
func opOf(o fsnotify.Op) Op {
	var op Op
	for _, m := range []struct {
		from fsnotify.Op
		to   Op
	}{
		{fsnotify.Create, Create},
		{fsnotify.Write, Write},
		{fsnotify.Remove, Remove},
		{fsnotify.Rename, Rename},
	} {
		if o.Has(m.from) {
			op |= m.to
		}
	}
	return op
}
