package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce lets editors finish writing before the dataset is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// DatasetWatcher reloads the dataset when its local file changes.
type DatasetWatcher struct {
	path     string
	reload   func(context.Context) error
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// NewDatasetWatcher starts watching path. The parent directory is watched so
// that files replaced by rename are still seen.
func NewDatasetWatcher(path string, reload func(context.Context) error, logger *slog.Logger) (*DatasetWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &DatasetWatcher{
		path:     abs,
		reload:   reload,
		watcher:  w,
		debounce: DefaultDebounce,
		logger:   logger,
	}, nil
}

// Run delivers reloads until ctx is done, then releases the watcher.
func (d *DatasetWatcher) Run(ctx context.Context) error {
	defer d.watcher.Close()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != d.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			d.logger.Debug("dataset file changed", "event", ev.String())
			if timer == nil {
				timer = time.AfterFunc(d.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(d.debounce)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("dataset watcher error", "err", err)
		case <-fire:
			if err := d.reload(ctx); err != nil {
				d.logger.Warn("dataset reload failed, keeping previous data", "path", d.path, "err", err)
				continue
			}
			d.logger.Info("dataset reloaded", "path", d.path)
		}
	}
}
