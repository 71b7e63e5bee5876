package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reloading.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc produces a fresh, validated configuration.
type ReloadFunc func() (*Config, error)

// Watcher reloads configuration when any of its files change and publishes
// the result through a Holder. A reload that fails keeps the previous
// configuration in place.
type Watcher struct {
	files    map[string]bool
	reload   ReloadFunc
	holder   *Holder
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher

	reloads  atomic.Int64
	failures atomic.Int64

	// OnReload, when set, is called after each successful swap.
	OnReload func(*Config)
	// OnError, when set, is called for each rejected reload.
	OnError func(error)
}

// NewWatcher watches paths for changes. Parent directories are watched rather
// than the files themselves so that editors which replace files by rename are
// still noticed.
func NewWatcher(paths []string, reload ReloadFunc, holder *Holder, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]bool),
		reload:   reload,
		holder:   holder,
		logger:   logger,
		debounce: DefaultDebounce,
		fsw:      fsw,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("Watching config directory", "path", dir)
	}
	return w, nil
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Failures returns the number of rejected reloads.
func (w *Watcher) Failures() int64 { return w.failures.Load() }

// Run processes file events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Config change detected", "path", event.Name, "op", event.Op.String())
			fire = time.After(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-fire:
			fire = nil
			w.apply()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// apply reloads and swaps the configuration.
func (w *Watcher) apply() {
	cfg, err := w.reload()
	if err != nil {
		w.failures.Add(1)
		w.logger.Warn("Config reload rejected, keeping previous config", "error", err)
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	w.holder.Set(cfg)
	w.reloads.Add(1)
	w.logger.Info("Config reloaded")
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}
