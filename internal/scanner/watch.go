package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"recsync/internal/logging"
)

// watchLoop reacts to filesystem events under the recording directories
// until ctx is cancelled. fsnotify watches a single directory, so the whole
// tree is registered up front and new subdirectories are registered as they
// appear.
func (e *Engine) watchLoop(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range e.roots {
		if err := addWatchTree(watcher, root); err != nil {
			return err
		}
	}
	e.logger.Info("watching recording directories", logging.Int("directories", len(e.roots)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			e.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			e.logger.Error("watcher error", logging.Error(err))
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Has(fsnotify.Create):
		if stat, err := os.Stat(path); err == nil && stat.IsDir() {
			if err := addWatchTree(watcher, path); err != nil {
				e.logger.Error("failed to watch new directory",
					logging.String("directory", path),
					logging.Error(err))
			}
			// Files may already exist inside a directory moved in whole.
			e.scanMovedTree(ctx, path)
			return
		}
		e.handleChange(ctx, path)
	case event.Has(fsnotify.Write):
		e.handleChange(ctx, path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		e.handleRemoval(ctx, path)
	}
}

// handleChange throttles change events per path: while a file keeps growing
// the pipeline runs at most once per throttle interval. A file seen for the
// first time with a recent mtime is tracked before the pipeline runs, so its
// event stream is throttled even when the pipeline cannot persist it yet.
func (e *Engine) handleChange(ctx context.Context, path string) {
	if !e.isTargetFile(path) {
		return
	}
	stat, err := os.Stat(path)
	if err != nil {
		return
	}
	now := time.Now()

	if entry, ok := e.tracker.Get(path); ok {
		// Keep the entry's size as of the last pipeline pass so growth since
		// then stays detectable.
		e.tracker.Set(path, Entry{
			ModifiedAt: stat.ModTime(),
			CheckedAt:  now,
			Size:       entry.Size,
		})
		if now.Sub(entry.CheckedAt) < e.throttle {
			return
		}
	} else if now.Sub(stat.ModTime()) <= e.maxAge {
		e.tracker.Set(path, Entry{
			ModifiedAt: stat.ModTime(),
			CheckedAt:  now,
			Size:       stat.Size(),
		})
	}

	if err := e.processFile(ctx, path); err != nil && ctx.Err() == nil {
		e.logger.Error("failed to process changed file",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}
}

func (e *Engine) handleRemoval(ctx context.Context, path string) {
	if !e.isTargetFile(path) {
		return
	}
	if err := e.removeFile(ctx, path); err != nil && ctx.Err() == nil {
		e.logger.Error("failed to remove vanished recording",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}
}

// scanMovedTree pushes the files inside a newly appeared directory through
// the pipeline, since no per-file events fire for them.
func (e *Engine) scanMovedTree(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil || entry.IsDir() {
			return nil
		}
		e.handleChange(ctx, path)
		return nil
	})
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
