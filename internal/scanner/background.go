package scanner

import (
	"context"

	"github.com/google/uuid"

	"recsync/internal/logging"
)

// startIndexing launches keyframe index construction for a finalized
// recording. One job per path runs at a time; a repeat request while the
// first is still running is dropped, since both would produce the same index.
func (e *Engine) startIndexing(ctx context.Context, path string, videoID int64) {
	e.bgMu.Lock()
	if _, busy := e.bgJobs[path]; busy {
		e.bgMu.Unlock()
		return
	}
	jobID := uuid.NewString()
	e.bgJobs[path] = jobID
	e.bgMu.Unlock()

	logger := e.logger.With(
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldPath, path))

	e.bgWG.Add(1)
	go func() {
		defer e.bgWG.Done()
		defer func() {
			e.bgMu.Lock()
			delete(e.bgJobs, path)
			e.bgMu.Unlock()
		}()

		keyFrames, err := e.indexer.BuildIndex(ctx, path)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("keyframe indexing failed", logging.Error(err))
			}
			return
		}
		if err := e.store.UpdateKeyFrames(ctx, videoID, keyFrames); err != nil {
			if ctx.Err() == nil {
				logger.Error("failed to store keyframe index", logging.Error(err))
			}
			return
		}
		logger.Info("keyframe index built", logging.Int("key_frames", len(keyFrames)))
	}()
}

// BackgroundJobs returns the number of running analysis jobs.
func (e *Engine) BackgroundJobs() int {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	return len(e.bgJobs)
}
