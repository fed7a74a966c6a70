package worker

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
)

// ResultWorker fans finalized attempts out to Redis: it drops the autosave
// cache, raises the student's best score on the exam leaderboard and
// notifies the live monitor.
type ResultWorker struct {
	rdb *redis.Client
	b   *batcher[model.AttemptResult]
	log zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	w := &ResultWorker{
		rdb: rdb,
		log: log.With().Str("component", "result_worker").Logger(),
	}
	w.b = &batcher[model.AttemptResult]{
		rdb:   rdb,
		queue: config.WorkerKey.AttemptResultsQueue,
		log:   w.log,
		flush: w.flushSafe,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")
	w.b.run(ctx)
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.AttemptResult) {
	pipe := w.rdb.Pipeline()
	for _, r := range batch {
		examID := r.ExamID.String()
		pipe.Del(ctx, config.CacheKey.AttemptProgressKey(r.SubmissionID.String()))

		// Pending attempts carry a partial total, so only graded ones rank.
		if r.Status == model.SubmissionStatusGraded && r.TotalScore != nil && r.MaxScore > 0 {
			pipe.ZAddGT(ctx, config.CacheKey.ExamBestScoresKey(examID), redis.Z{
				Score:  *r.TotalScore / r.MaxScore,
				Member: strconv.Itoa(r.StudentID),
			})
		}

		status := r.Status
		maxScore := r.MaxScore
		event, err := json.Marshal(model.MonitorEvent{
			Type:         model.MonitorEventAttemptFinished,
			ExamID:       r.ExamID,
			SubmissionID: r.SubmissionID,
			StudentID:    r.StudentID,
			Status:       &status,
			TotalScore:   r.TotalScore,
			MaxScore:     &maxScore,
			Terminated:   r.Terminated,
			At:           r.FinishedAt,
		})
		if err != nil {
			w.log.Error().Err(err).Str("submission_id", r.SubmissionID.String()).Msg("Dropping unencodable monitor event")
			continue
		}
		pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID), event)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Result fan-out failed, requeueing")
		w.b.requeue(ctx, batch)
	}
}
