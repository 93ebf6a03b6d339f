package events

import (
	"context"
	"sync"
	"time"

	"sessionbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher delivers committed lifecycle events. Callers treat errors as
// best-effort: a failed publish is logged and never undoes the mutation.
type Publisher interface {
	Publish(ctx context.Context, evt models.Event) error
}

// New fills in the id and timestamp of an event for booking b.
func New(typ models.EventType, b *models.Booking, actor models.Actor, now time.Time, data map[string]string) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		BookingID:  b.ID,
		ConsumerID: b.ConsumerID,
		ProviderID: b.ProviderID,
		Status:     b.Status,
		Actor:      actor,
		Data:       data,
		OccurredAt: now,
	}
}

// LogPublisher writes events to the structured log only.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt models.Event) error {
	p.logger.Info("booking event",
		zap.String("eventID", evt.ID),
		zap.String("type", string(evt.Type)),
		zap.String("bookingID", evt.BookingID),
		zap.String("status", string(evt.Status)),
		zap.String("actor", string(evt.Actor.Role)),
	)
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, evt models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Count returns how many events of typ were published for bookingID.
func (r *Recorder) Count(bookingID string, typ models.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.BookingID == bookingID && e.Type == typ {
			n++
		}
	}
	return n
}
