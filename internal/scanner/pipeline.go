package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"recsync/internal/logging"
	"recsync/internal/metadata"
	"recsync/internal/recdb"
)

// processFile runs the full pipeline for one path, looking up the existing
// database record itself.
func (e *Engine) processFile(ctx context.Context, path string) error {
	existing, err := e.store.GetVideoByPath(ctx, path)
	if err != nil {
		return err
	}
	return e.processFileWith(ctx, path, existing)
}

// processFileWith is the pipeline body. The steps are ordered so that cheap
// checks run before the fingerprint and the fingerprint before ffprobe, and
// every step is safe to repeat for the same path.
//
// Files that vanish mid-pipeline lost a race with the recorder or the user
// and are skipped without noise. Persistence errors are returned to the
// caller so a failing database surfaces while other files keep flowing.
func (e *Engine) processFileWith(ctx context.Context, path string, existing *recdb.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stat, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		e.tracker.Remove(path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	now := time.Now()

	// A file already under observation needs no re-probe while its database
	// row says Recording, or while it has not grown since the last check.
	entry, tracked := e.tracker.Get(path)
	if tracked {
		if existing != nil && existing.Status == recdb.StatusRecording {
			return nil
		}
		if stat.Size() == entry.Size {
			return nil
		}
	}

	hash, err := e.probe.Fingerprint(path)
	if errors.Is(err, metadata.ErrFileTooSmall) {
		e.logger.Warn("file too small to analyze, skipping",
			logging.String(logging.FieldPath, path),
			logging.Int64("size", stat.Size()))
		return nil
	}
	if metadata.IsTransient(err) {
		e.tracker.Remove(path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", path, err)
	}

	// Unchanged content with an unchanged classification is the common case
	// on rescans and costs only the fingerprint.
	if existing != nil && existing.FileHash == hash {
		if status := e.classify(tracked, now, stat.ModTime()); existing.Status == status {
			e.noteStatus(path, stat, status)
			return nil
		}
	}

	info, err := e.probe.Analyze(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if metadata.IsTransient(err) {
			e.tracker.Remove(path)
			return nil
		}
		e.logger.Error("metadata extraction failed, skipping",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		return nil
	}

	// Too short to be a real recording yet. The file stays tracked; a later
	// pass picks it up once it has grown past the threshold.
	if info.Duration < e.minDuration.Seconds() {
		e.logger.Warn("recording shorter than minimum duration, skipping",
			logging.String(logging.FieldPath, path),
			logging.Float64("duration", info.Duration))
		return nil
	}

	status := e.classify(tracked, now, stat.ModTime())

	saved, err := e.store.SaveRecording(ctx, info, status, existing)
	if err != nil {
		return fmt.Errorf("save recording %s: %w", path, err)
	}

	e.logger.Info("recording saved",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldStatus, string(status)),
		logging.Float64("duration", info.Duration))

	e.noteStatus(path, stat, status)
	if status == recdb.StatusRecorded {
		e.startIndexing(ctx, path, saved.ID)
	}
	return nil
}

// classify decides Recording versus Recorded: a file is still recording when
// it is already under observation or its last write is more recent than the
// quiet period. File copies land here too, going quiet once the copy is done.
func (e *Engine) classify(tracked bool, now time.Time, modifiedAt time.Time) recdb.Status {
	if tracked || now.Sub(modifiedAt) < e.quietPeriod {
		return recdb.StatusRecording
	}
	return recdb.StatusRecorded
}

// noteStatus keeps the tracker in line with the decided status: files still
// recording stay under sweep observation, finished files leave it.
func (e *Engine) noteStatus(path string, stat os.FileInfo, status recdb.Status) {
	if status == recdb.StatusRecording {
		e.tracker.Set(path, Entry{
			ModifiedAt: stat.ModTime(),
			CheckedAt:  time.Now(),
			Size:       stat.Size(),
		})
		return
	}
	e.tracker.Remove(path)
}

// removeFile deletes the database records for a path that no longer exists
// on disk. The file's absence is re-verified first so a rename burst cannot
// drop a live recording.
func (e *Engine) removeFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	e.tracker.Remove(path)

	video, err := e.store.GetVideoByPath(ctx, path)
	if err != nil {
		return err
	}
	if video == nil {
		return nil
	}
	if err := e.store.DeleteProgram(ctx, video.ProgramID); err != nil {
		return err
	}
	e.logger.Info("recording removed",
		logging.String(logging.FieldPath, path),
		logging.Int64("program_id", video.ProgramID))
	return nil
}
