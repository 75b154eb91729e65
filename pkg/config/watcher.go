package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded configuration after the watched
// file changes. It is never called with a config that failed validation.
type ReloadFunc func(cfg *Config)

// Watcher reloads the configuration file when it changes on disk. Editors
// tend to emit bursts of write events, so reloads are debounced.
type Watcher struct {
	path     string
	onReload ReloadFunc
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	if onReload == nil {
		return nil, fmt.Errorf("reload callback required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the parent directory: atomic saves replace the file, which
	// drops a watch placed on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:     path,
		onReload: onReload,
		debounce: 250 * time.Millisecond,
		fsw:      fsw,
	}, nil
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				// Invalid intermediate states are expected while the file
				// is being edited; keep the previous config.
				continue
			}
			w.onReload(cfg)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
