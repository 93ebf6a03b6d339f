package notification

import (
	"testing"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
)

func TestForEventAudience(t *testing.T) {
	evt := models.Event{BookingID: "b1", ConsumerID: "c1", ProviderID: "p1"}

	tests := []struct {
		typ  models.EventType
		want []string
	}{
		{models.EventPaymentRequired, []string{"c1"}},
		{models.EventBookingCreated, []string{"p1"}},
		{models.EventBookingConfirmed, []string{"c1", "p1"}},
		{models.EventBookingCompleted, []string{"c1", "p1"}},
		{models.EventBookingExpired, []string{"c1"}},
		{models.EventPayoutRequested, nil},
		{models.EventRefundFailed, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			e := evt
			e.Type = tt.typ
			var got []string
			for _, r := range ForEvent(e) {
				got = append(got, r.UserID)
				assert.Equal(t, "b1", r.Message.BookingID)
				assert.NotEmpty(t, r.Message.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCancelBodyIncludesReason(t *testing.T) {
	evt := models.Event{Type: models.EventBookingCancelled, Data: map[string]string{"reason": "sick"}}
	recipients := ForEvent(evt)
	assert.Len(t, recipients, 2)
	assert.Contains(t, recipients[0].Message.Body, "sick")
}
