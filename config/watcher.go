package config

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives every configuration that loads successfully after a
// change on disk.
type ReloadFunc func(cfg *Config)

// Watcher reloads the configuration when the config file, or the JSON rows
// file it names, changes. A config that fails to load is reported and the
// previous one stays in effect.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	getenv     func(string) string
	onReload   ReloadFunc
	stdout     io.Writer
	stderr     io.Writer

	// A burst of changes reloads once, debounce after the last event
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	current *Config
	reloads uint64
}

// NewWatcher creates a watcher for the config at configPath. cfg is the
// configuration already loaded from it.
func NewWatcher(cfg *Config, configPath string, getenv func(string) string, onReload ReloadFunc, stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:    fsWatcher,
		configPath: configPath,
		getenv:     getenv,
		onReload:   onReload,
		stdout:     stdout,
		stderr:     stderr,
		current:    cfg,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config dir %s: %w", configDir, err)
	}
	w.logInfo("watching config: %s", w.configPath)

	if rowsFile := w.Current().Rows.File; rowsFile != "" {
		rowsDir := filepath.Dir(rowsFile)
		if rowsDir != configDir {
			if err := w.watcher.Add(rowsDir); err != nil {
				w.logError("failed to watch rows dir %s: %v", rowsDir, err)
			}
		}
		w.logInfo("watching rows: %s", rowsFile)
	}

	go w.eventLoop(ctx)

	return nil
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only handle write and create events
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.isWatched(event.Name) {
				continue
			}

			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// schedule reloads for path once no further change arrives within the
// debounce window. Each call restarts the window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = path
	if w.timer != nil {
		w.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.timer != t {
			// superseded by a later change
			w.mu.Unlock()
			return
		}
		path := w.pending
		w.timer = nil
		w.mu.Unlock()

		w.handleFileChange(path)
	})
	w.timer = t
}

// isWatched reports whether path is the config file or the rows file.
func (w *Watcher) isWatched(path string) bool {
	if filepath.Base(path) == filepath.Base(w.configPath) {
		return true
	}
	rowsFile := w.Current().Rows.File
	return rowsFile != "" && filepath.Clean(path) == filepath.Clean(rowsFile)
}

// handleFileChange reloads the configuration and hands it to the callback.
func (w *Watcher) handleFileChange(path string) {
	w.logInfo("changed: %s", path)

	cfg, err := Load(w.configPath, w.getenv)
	if err != nil {
		w.logError("reload failed, keeping previous config: %v", err)
		return
	}
	for _, warning := range Warnings(cfg) {
		w.logInfo("warning: %s", warning)
	}

	w.mu.Lock()
	w.current = cfg
	w.reloads++
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reloads returns how many times the configuration has been reloaded.
func (w *Watcher) Reloads() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Close stops the watcher and drops any pending reload
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...interface{}) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...interface{}) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
