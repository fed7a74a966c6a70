package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
)

// ViolationWorker copies queued proctoring violations into the audit table.
type ViolationWorker struct {
	violationRepo *repository.ViolationRepository
	b             *batcher[model.ViolationEvent]
	log           zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(violationRepo *repository.ViolationRepository, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	w := &ViolationWorker{
		violationRepo: violationRepo,
		log:           log.With().Str("component", "violation_worker").Logger(),
	}
	w.b = &batcher[model.ViolationEvent]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistViolationsQueue,
		log:   w.log,
		flush: w.flushSafe,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")
	w.b.run(ctx)
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []model.ViolationEvent) {
	err := w.violationRepo.BulkInsert(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.ViolationEvent
	for _, ev := range batch {
		if err := w.violationRepo.Insert(ctx, ev); err != nil {
			w.log.Error().Err(err).Int("student_id", ev.StudentID).Msg("Insert failed, requeueing")
			failed = append(failed, ev)
		}
	}
	w.b.requeue(ctx, failed)
}
