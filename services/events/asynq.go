package events

import (
	"context"
	"errors"
	"fmt"

	"sessionbook/models"
	"sessionbook/services/tasks"

	"github.com/hibiken/asynq"
)

// AsynqPublisher enqueues events on the Redis-backed task queue consumed by cron.EventWorker.
type AsynqPublisher struct {
	client *asynq.Client
}

func NewAsynqPublisher(opt asynq.RedisClientOpt) *AsynqPublisher {
	return &AsynqPublisher{client: asynq.NewClient(opt)}
}

func (p *AsynqPublisher) Publish(ctx context.Context, evt models.Event) error {
	task, opts, err := tasks.NewBookingEventTask(evt)
	if err != nil {
		return fmt.Errorf("failed to build event task: %w", err)
	}
	if _, err := p.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue event %s: %w", evt.ID, err)
	}
	return nil
}

func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}
