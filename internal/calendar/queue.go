package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/pkg/logging"
)

var queueTracer = otel.Tracer("zapai.internal.calendar.queue")

const (
	queueKey      = "calendar:sync"
	deadLetterKey = "calendar:sync:dead"
	popTimeout    = 5 * time.Second
)

// Queue enqueues calendar sync jobs onto a Redis list. Tool handlers push
// here so a slow or failing Google API never blocks a conversation turn.
type Queue struct {
	rdb    redis.UniversalClient
	logger *logging.Logger
}

func NewQueue(rdb redis.UniversalClient, logger *logging.Logger) *Queue {
	if rdb == nil {
		panic("calendar: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{rdb: rdb, logger: logger.Component("calendar_queue")}
}

// Upsert schedules an insert-or-update sync for an appointment.
func (q *Queue) Upsert(ctx context.Context, appointmentID uuid.UUID) error {
	return q.enqueue(ctx, SyncJob{AppointmentID: appointmentID, Action: ActionUpsert})
}

// Delete schedules removal of an appointment's calendar event.
func (q *Queue) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	return q.enqueue(ctx, SyncJob{AppointmentID: appointmentID, Action: ActionDelete})
}

func (q *Queue) enqueue(ctx context.Context, job SyncJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("calendar: encode sync job: %w", err)
	}
	if err := q.rdb.RPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("calendar: enqueue sync job: %w", err)
	}
	q.logger.Info("calendar sync queued", "appointment_id", job.AppointmentID, "action", job.Action)
	return nil
}

// Syncer is the calendar backend the worker drives.
type Syncer interface {
	UpsertEvent(ctx context.Context, rec *SyncRecord) (string, error)
	DeleteEvent(ctx context.Context, rec *SyncRecord) error
}

// RecordStore is the persistence slice the worker needs.
type RecordStore interface {
	Load(ctx context.Context, appointmentID uuid.UUID) (*SyncRecord, error)
	SaveEventID(ctx context.Context, appointmentID uuid.UUID, eventID string) error
}

// Worker drains the sync queue. Each job gets a bounded number of attempts
// with a delay between them; jobs that still fail land on the dead-letter
// list for manual replay.
type Worker struct {
	rdb      redis.UniversalClient
	store    RecordStore
	syncer   Syncer
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewWorker(rdb redis.UniversalClient, store RecordStore, syncer Syncer, attempts int, delay time.Duration, m *metrics.PipelineMetrics, logger *logging.Logger) *Worker {
	if rdb == nil {
		panic("calendar: redis client required")
	}
	if store == nil {
		panic("calendar: record store required")
	}
	if syncer == nil {
		panic("calendar: syncer required")
	}
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		rdb:      rdb,
		store:    store,
		syncer:   syncer,
		metrics:  m,
		logger:   logger.Component("calendar_worker"),
		attempts: attempts,
		delay:    delay,
		sleep:    sleepContext,
	}
}

// Run blocks draining the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := w.rdb.BLPop(ctx, popTimeout, queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Error("queue pop failed", "error", err)
			if err := w.sleep(ctx, time.Second); err != nil {
				return err
			}
			continue
		}
		// BLPop returns [key, value].
		if len(res) < 2 {
			continue
		}
		w.handle(ctx, []byte(res[1]))
	}
}

func (w *Worker) handle(ctx context.Context, payload []byte) {
	ctx, span := queueTracer.Start(ctx, "calendar.sync")
	defer span.End()

	var job SyncJob
	if err := json.Unmarshal(payload, &job); err != nil {
		w.logger.Error("malformed sync job dropped", "error", err)
		w.metrics.ObserveCalendarJob("malformed")
		return
	}
	span.SetAttributes(
		attribute.String("zapai.appointment_id", job.AppointmentID.String()),
		attribute.String("zapai.calendar.action", job.Action),
	)

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		lastErr = w.syncOnce(ctx, job)
		if lastErr == nil {
			w.metrics.ObserveCalendarJob("ok")
			return
		}
		if errors.Is(lastErr, ErrNotFound) {
			// Appointment deleted between enqueue and sync; nothing to do.
			w.logger.Info("sync job skipped, appointment gone", "appointment_id", job.AppointmentID)
			w.metrics.ObserveCalendarJob("skipped")
			return
		}
		w.logger.Warn("calendar sync attempt failed",
			"appointment_id", job.AppointmentID, "attempt", attempt, "error", lastErr)
		if attempt < w.attempts {
			if err := w.sleep(ctx, w.delay); err != nil {
				break
			}
		}
	}
	span.RecordError(lastErr)
	w.metrics.ObserveCalendarJob("dead")
	job.Attempt = w.attempts
	dead, err := json.Marshal(job)
	if err == nil {
		if pushErr := w.rdb.RPush(ctx, deadLetterKey, dead).Err(); pushErr != nil {
			w.logger.Error("dead-letter push failed", "error", pushErr)
		}
	}
	w.logger.Error("calendar sync exhausted retries",
		"appointment_id", job.AppointmentID, "action", job.Action, "error", lastErr)
}

func (w *Worker) syncOnce(ctx context.Context, job SyncJob) error {
	rec, err := w.store.Load(ctx, job.AppointmentID)
	if err != nil {
		return err
	}
	switch job.Action {
	case ActionDelete:
		return w.syncer.DeleteEvent(ctx, rec)
	default:
		eventID, err := w.syncer.UpsertEvent(ctx, rec)
		if err != nil {
			return err
		}
		if rec.GoogleEventID == "" && eventID != "" {
			return w.store.SaveEventID(ctx, job.AppointmentID, eventID)
		}
		return nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
