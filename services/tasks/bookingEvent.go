package tasks

import (
	"encoding/json"
	"time"

	"sessionbook/models"

	"github.com/hibiken/asynq"
)

const TypeBookingEvent = "booking:event"

// NewBookingEventTask wraps a committed lifecycle event for the worker queue.
func NewBookingEventTask(evt models.Event) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingEvent, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		// Same event id enqueued twice is dropped by asynq.
		asynq.TaskID(evt.ID),
	}
	return task, opts, nil
}

// ParseBookingEvent decodes the payload of a booking:event task.
func ParseBookingEvent(t *asynq.Task) (models.Event, error) {
	var evt models.Event
	err := json.Unmarshal(t.Payload(), &evt)
	return evt, err
}
