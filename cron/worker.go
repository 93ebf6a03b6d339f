package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/services/notification"
	"sessionbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// EventWorker consumes booking:event tasks and fans them out to the parties.
type EventWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewEventWorker builds the async worker on the queue's Redis database.
func NewEventWorker(redisOpts asynq.RedisClientOpt, notifier notification.Notifier, logger *zap.Logger) *EventWorker {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingEvent, HandleBookingEvent(notifier, logger))

	return &EventWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *EventWorker) Start() {
	go func() {
		w.logger.Info("starting booking event worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Warn("event worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				w.logger.Error("event worker gave up; events stay queued until restart")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *EventWorker) Shutdown() {
	w.srv.Shutdown()
}

// HandleBookingEvent delivers one lifecycle event to every recipient. A failed
// delivery fails the task so asynq retries it.
func HandleBookingEvent(notifier notification.Notifier, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		evt, err := tasks.ParseBookingEvent(task)
		if err != nil {
			logger.Error("invalid booking event payload", zap.Error(err))
			// Retrying a malformed payload never helps.
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		var errs []error
		for _, r := range notification.ForEvent(evt) {
			if err := notifier.Notify(ctx, r.UserID, r.Message); err != nil {
				logger.Warn("notification delivery failed",
					zap.String("eventID", evt.ID),
					zap.String("userID", r.UserID),
					zap.Error(err),
				)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
