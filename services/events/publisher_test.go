package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEventCopiesBookingParties(t *testing.T) {
	b := &models.Booking{ID: "b1", ConsumerID: "c1", ProviderID: "p1", Status: models.StatusConfirmed}
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	evt := New(models.EventBookingConfirmed, b, models.SystemActor, now, map[string]string{"k": "v"})

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "b1", evt.BookingID)
	assert.Equal(t, "c1", evt.ConsumerID)
	assert.Equal(t, "p1", evt.ProviderID)
	assert.Equal(t, models.StatusConfirmed, evt.Status)
	assert.Equal(t, now, evt.OccurredAt)
	assert.Equal(t, "v", evt.Data["k"])
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	b := &models.Booking{ID: "b1"}
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, New(models.EventBookingCreated, b, models.SystemActor, time.Now(), nil)))
	require.NoError(t, r.Publish(ctx, New(models.EventBookingCreated, b, models.SystemActor, time.Now(), nil)))
	assert.Equal(t, 2, r.Count("b1", models.EventBookingCreated))
	assert.Equal(t, 0, r.Count("b1", models.EventBookingConfirmed))

	r.Err = errors.New("sink down")
	assert.Error(t, r.Publish(ctx, New(models.EventBookingCreated, b, models.SystemActor, time.Now(), nil)))
	assert.Len(t, r.Events(), 2)
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher(zap.NewNop())
	err := p.Publish(context.Background(), New(models.EventBookingUpdate, &models.Booking{ID: "b"}, models.SystemActor, time.Now(), nil))
	assert.NoError(t, err)
}
