package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/repository"
)

const (
	HistoryBatchSize    = 50
	HistoryBatchTimeout = 2 * time.Second
	HistoryPollTimeout  = 1 * time.Second
)

// HistoryWorker drains the persist_attempts_queue and writes finished
// attempts into exam_attempts. Inserts are keyed on attempt_id, so a
// payload that gets requeued and processed twice is harmless.
type HistoryWorker struct {
	attempts *repository.AttemptRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewHistoryWorker(attempts *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *HistoryWorker {
	return &HistoryWorker{
		attempts: attempts,
		rdb:      rdb,
		log:      log.With().Str("component", "history_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *HistoryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("HistoryWorker started")

	batch := make([]*model.AttemptResult, 0, HistoryBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= HistoryBatchSize || time.Since(lastFlush) >= HistoryBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, HistoryPollTimeout, config.WorkerKey.PersistAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.AttemptResult
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &a)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper with single-row fallback
// ----------------------------------------------------------------

func (w *HistoryWorker) flushSafe(ctx context.Context, batch []*model.AttemptResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.attempts.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk attempt insert failed, using fallback")

		for _, a := range batch {
			if err := w.attempts.Insert(ctx, a); err != nil {
				w.log.Error().Err(err).Str("attempt_id", a.AttemptID.String()).Msg("Insert failed — requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw)
			}
		}
	}
}
