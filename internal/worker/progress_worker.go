package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
)

// ProgressWorker persists queued autosave snapshots to PostgreSQL.
type ProgressWorker struct {
	subRepo *repository.SubmissionRepository
	b       *batcher[model.ProgressSnapshot]
	log     zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(subRepo *repository.SubmissionRepository, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	w := &ProgressWorker{
		subRepo: subRepo,
		log:     log.With().Str("component", "progress_worker").Logger(),
	}
	w.b = &batcher[model.ProgressSnapshot]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistProgressQueue,
		log:   w.log,
		flush: w.flushSafe,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")
	w.b.run(ctx)
}

// flushSafe attempts a bulk update, then row-by-row, then requeue.
func (w *ProgressWorker) flushSafe(ctx context.Context, batch []model.ProgressSnapshot) {
	writes, err := toWrites(batch)
	if err == nil {
		if err = w.subRepo.BulkSaveProgress(ctx, writes); err == nil {
			return
		}
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk progress update failed, attempting row-by-row recovery")

	var failed []model.ProgressSnapshot
	for _, snap := range batch {
		ws, err := toWrites([]model.ProgressSnapshot{snap})
		if err != nil {
			w.log.Error().Err(err).Str("submission_id", snap.SubmissionID.String()).Msg("Dropping unencodable progress")
			continue
		}
		if err := w.subRepo.SaveProgress(ctx, ws[0]); err != nil {
			w.log.Error().Err(err).Str("submission_id", snap.SubmissionID.String()).Msg("Progress update failed, requeueing")
			failed = append(failed, snap)
		}
	}
	w.b.requeue(ctx, failed)
}

func toWrites(batch []model.ProgressSnapshot) ([]repository.ProgressWrite, error) {
	writes := make([]repository.ProgressWrite, 0, len(batch))
	for _, snap := range batch {
		raw, err := json.Marshal(snap.Progress)
		if err != nil {
			return nil, err
		}
		writes = append(writes, repository.ProgressWrite{
			SubmissionID:         snap.SubmissionID,
			ProgressJSON:         string(raw),
			SavedAt:              snap.SavedAt,
			TimeRemainingSeconds: snap.Progress.TimeRemainingSeconds,
		})
	}
	return writes, nil
}
