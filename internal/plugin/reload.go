package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"time"

	"github.com/dshills/emoted/internal/watcher"
	"github.com/rs/zerolog"
)

// PostFunc schedules fn on the goroutine that owns the editor.
type PostFunc func(fn func())

// Reloader reloads scripts whose files change on disk.
type Reloader struct {
	scripts *ScriptManager
	watcher watcher.Watcher
	post    PostFunc
	logger  zerolog.Logger

	// dirs load any script that appears in them; files are single
	// scripts whose directory is watched for them alone.
	dirs  map[string]bool
	files map[string]bool

	done chan struct{}
}

// NewReloader watches dirs for .lua changes, and the directories of files
// for changes to those files only. Reloads run through post so they
// happen on the editor goroutine. Directories that do not exist are
// skipped.
func NewReloader(scripts *ScriptManager, dirs, files []string, delay time.Duration, post PostFunc, logger zerolog.Logger) (*Reloader, error) {
	fsw, err := watcher.NewFS(watcher.All(
		watcher.Visible,
		watcher.Ext(ScriptExt),
		watcher.Ops(watcher.Create|watcher.Write),
	))
	if err != nil {
		return nil, err
	}
	return newReloader(scripts, watcher.NewDebounced(fsw, delay), dirs, files, post, logger)
}

func newReloader(scripts *ScriptManager, w watcher.Watcher, dirs, files []string, post PostFunc, logger zerolog.Logger) (*Reloader, error) {
	r := &Reloader{
		scripts: scripts,
		watcher: w,
		post:    post,
		logger:  logger.With().Str("component", "reloader").Logger(),
		dirs:    make(map[string]bool),
		files:   make(map[string]bool),
		done:    make(chan struct{}),
	}

	watch := make([]string, 0, len(dirs)+len(files))
	for _, dir := range dirs {
		dir = absPath(dir)
		r.dirs[dir] = true
		watch = append(watch, dir)
	}
	for _, file := range files {
		file = absPath(file)
		r.files[file] = true
		if dir := filepath.Dir(file); !slices.Contains(watch, dir) {
			watch = append(watch, dir)
		}
	}

	for _, dir := range watch {
		err := w.Add(dir)
		switch {
		case err == nil:
			r.logger.Debug().Str("dir", dir).Msg("watching scripts")
		case errors.Is(err, watcher.ErrPathNotExist):
		default:
			_ = w.Close()
			return nil, err
		}
	}
	return r, nil
}

// wants reports whether a change to path should be reloaded.
func (r *Reloader) wants(path string) bool {
	path = absPath(path)
	return r.files[path] || r.dirs[filepath.Dir(path)]
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Run delivers reloads until ctx is done or the watcher is closed.
func (r *Reloader) Run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-r.watcher.Events():
			if !ok {
				return
			}
			path := ev.Path
			if !r.wants(path) {
				r.logger.Debug().Str("path", path).Msg("ignoring script that was not requested")
				continue
			}
			r.post(func() {
				if err := r.scripts.Reload(ctx, path); err != nil {
					r.logger.Warn().Err(err).Str("path", path).Msg("script reload failed")
				}
			})

		case err, ok := <-r.watcher.Errors():
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Close stops watching. Run returns once the watcher channels close.
func (r *Reloader) Close() error {
	return r.watcher.Close()
}

// Done is closed when Run returns.
func (r *Reloader) Done() <-chan struct{} {
	return r.done
}
