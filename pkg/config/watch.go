package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a settings file when it changes on disk.
type Watcher struct {
	cfg     Config
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewWatcher starts watching cfg.File. The parent directory is watched so
// editors that replace the file by rename are still seen.
func NewWatcher(cfg Config, logger zerolog.Logger) (*Watcher, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	path, err := filepath.Abs(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", cfg.File, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{cfg: cfg, path: path, watcher: w, logger: logger}, nil
}

// Run delivers the display settings of every valid revision of the file to
// out until ctx is done. Invalid revisions are logged and skipped.
func (w *Watcher) Run(ctx context.Context, out chan<- Display) error {
	defer w.watcher.Close()
	last := w.cfg.Display()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			next, err := w.cfg.Reload()
			if err != nil {
				w.logger.Warn().Err(err).Str("path", w.path).Msg("ignoring invalid config revision")
				continue
			}
			w.cfg = next
			display := next.Display()
			if display == last {
				continue
			}
			last = display
			w.logger.Info().Int("topk", display.TopK).Bool("hide_kernel", display.HideKernel).
				Str("user", display.User).Msg("display settings reloaded")
			select {
			case out <- display:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
