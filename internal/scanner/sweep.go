package scanner

import (
	"context"
	"errors"
	"os"
	"time"

	"recsync/internal/logging"
)

// sweepLoop periodically inspects every tracked in-progress recording and
// finalizes the ones that have settled. A recording counts as finished when
// its file has not been written for the quiet period and its size matches
// the last observation.
func (e *Engine) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	now := time.Now()
	for path, entry := range e.tracker.Snapshot() {
		if ctx.Err() != nil {
			return
		}

		stat, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			if err := e.removeFile(ctx, path); err != nil && ctx.Err() == nil {
				e.logger.Error("failed to remove vanished recording",
					logging.String(logging.FieldPath, path),
					logging.Error(err))
			}
			continue
		}
		if err != nil {
			continue
		}

		if stat.Size() != entry.Size || !stat.ModTime().Equal(entry.ModifiedAt) {
			// Still growing.
			e.tracker.Touch(path, stat.ModTime(), stat.Size())
			continue
		}

		if now.Sub(stat.ModTime()) < e.quietPeriod {
			continue
		}

		// Untracking first lets the pipeline classify the settled file as a
		// finished recording.
		e.tracker.Remove(path)
		e.logger.Info("recording settled, finalizing",
			logging.String(logging.FieldPath, path),
			logging.Duration("idle", now.Sub(stat.ModTime())))
		if err := e.processFile(ctx, path); err != nil && ctx.Err() == nil {
			e.logger.Error("failed to finalize recording",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
		}
	}
}
