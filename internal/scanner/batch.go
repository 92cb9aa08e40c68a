package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"recsync/internal/logging"
	"recsync/internal/recdb"
)

// BatchScan reconciles the database with the directory trees in two phases:
// every eligible file on disk goes through the pipeline, then records whose
// files have vanished are deleted in one batch. Per-file errors are logged
// and counted so one bad file cannot stall the rest of the scan.
func (e *Engine) BatchScan(ctx context.Context) error {
	started := time.Now()

	videos, err := e.store.ListVideos(ctx)
	if err != nil {
		return err
	}
	byPath := make(map[string]int, len(videos))
	for i, video := range videos {
		byPath[video.FilePath] = i
	}

	found := make(map[string]struct{})
	var processed, failed int
	for _, root := range e.roots {
		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if errors.Is(walkErr, os.ErrNotExist) {
					return nil
				}
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.IsDir() || !e.isTargetFile(path) {
				return nil
			}

			found[path] = struct{}{}
			existing := videoAt(videos, byPath, path)
			if err := e.processFileWith(ctx, path, existing); err != nil {
				if ctx.Err() != nil {
					return err
				}
				failed++
				e.logger.Error("scan failed for file",
					logging.String(logging.FieldPath, path),
					logging.Error(err))
				return nil
			}
			processed++
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("directory walk failed",
				logging.String("directory", root),
				logging.Error(err))
		}
	}

	// Phase two: records pointing at files that are gone. Absence is
	// re-verified with a fresh stat because the walk above takes time.
	var orphaned []int64
	for _, video := range videos {
		if _, ok := found[video.FilePath]; ok {
			continue
		}
		if _, err := os.Stat(video.FilePath); err == nil {
			continue
		}
		e.tracker.Remove(video.FilePath)
		orphaned = append(orphaned, video.ProgramID)
	}
	var deleted int64
	if len(orphaned) > 0 {
		deleted, err = e.store.DeletePrograms(ctx, orphaned)
		if err != nil {
			return err
		}
	}

	e.logger.Info("batch scan finished",
		logging.Int("processed", processed),
		logging.Int("failed", failed),
		logging.Int64("deleted", deleted),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func videoAt(videos []*recdb.Video, byPath map[string]int, path string) *recdb.Video {
	if i, ok := byPath[path]; ok {
		return videos[i]
	}
	return nil
}
