package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

const calendlyJaneDoe = `{
  "event": "invitee.created",
  "payload": {
    "uri": "https://api.calendly.com/scheduled_events/EV1/invitees/INV1",
    "name": "Jane Doe",
    "email": "Jane@Example.com",
    "text_reminder_number": "+1 555 010 2000",
    "questions_and_answers": [
      {"question": "Business name", "answer": "Doe Dental"},
      {"question": "Anything else?", "answer": "Looking for after-hours coverage"}
    ],
    "scheduled_event": {
      "name": "Strategy Call",
      "start_time": "2025-12-05T14:00:00Z",
      "end_time": "2025-12-05T14:15:00Z",
      "location": {"type": "zoom", "join_url": "https://zoom.us/j/1"}
    }
  }
}`

func TestNormalizeCalendlyInvitee(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(calendlyJaneDoe))
	require.NoError(t, err)

	assert.Equal(t, usecase.ProviderCalendly, ev.Provider)
	assert.Equal(t, usecase.KindMeetingBooked, ev.Kind)
	assert.Equal(t, "jane@example.com", ev.Refs.Email)
	assert.Equal(t, "+1 555 010 2000", ev.Refs.Phone)

	b := ev.Booking
	require.NotNil(t, b)
	assert.Equal(t, "https://api.calendly.com/scheduled_events/EV1/invitees/INV1", b.ExternalRef)
	assert.Equal(t, "Jane Doe", b.InviteeName)
	assert.Equal(t, "Doe Dental", b.BusinessName)
	assert.Equal(t, time.Date(2025, 12, 5, 14, 0, 0, 0, time.UTC), b.ScheduledAt)
	assert.Equal(t, 15, b.DurationMinutes)
	assert.Equal(t, "Strategy Call", b.MeetingType)
	assert.Equal(t, "https://zoom.us/j/1", b.Location)
	assert.Contains(t, b.Notes, "after-hours coverage")
}

// calendlyNested is the v2 webhook shape with the invitee under payload.invitee.
const calendlyNested = `{
  "event": "invitee.created",
  "payload": {
    "event_type": {"name": "Intro Call", "duration": 45},
    "invitee": {
      "name": "Jane Doe",
      "email": "jane@x.com",
      "text_reminder_number": "+15550102000"
    },
    "scheduled_event": {"start_time": "2025-12-05T14:00:00Z"},
    "questions_and_answers": [{"question": "Company", "answer": "Doe Dental"}]
  }
}`

func TestNormalizeCalendlyNestedInvitee(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(calendlyNested))
	require.NoError(t, err)

	assert.Equal(t, usecase.KindMeetingBooked, ev.Kind)
	assert.Equal(t, "jane@x.com", ev.Refs.Email)
	assert.Equal(t, "+15550102000", ev.Refs.Phone)

	b := ev.Booking
	require.NotNil(t, b)
	assert.Equal(t, "Jane Doe", b.InviteeName)
	assert.Equal(t, "Doe Dental", b.BusinessName)
	assert.Equal(t, time.Date(2025, 12, 5, 14, 0, 0, 0, time.UTC), b.ScheduledAt)
	assert.Equal(t, 45, b.DurationMinutes)
	assert.Equal(t, "Intro Call", b.MeetingType)
	assert.Equal(t, "calendly:jane@x.com:2025-12-05T14:00:00Z", b.ExternalRef)
}

func TestNormalizeCalendlyNestedQuestions(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(`{
	  "event": "invitee.created",
	  "payload": {
	    "invitee": {
	      "name": "Jane Doe",
	      "email": "jane@x.com",
	      "questions_and_answers": [{"question": "Phone number", "answer": "+15550103000"}]
	    },
	    "scheduled_event": {"start_time": "2025-12-05T14:00:00Z"}
	  }
	}`))
	require.NoError(t, err)
	assert.Equal(t, "+15550103000", ev.Refs.Phone)
}

func TestNormalizeCalendlyWithoutURI(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(`{
	  "event": "invitee.created",
	  "payload": {
	    "first_name": "Sam", "last_name": "Lee", "email": "sam@example.com",
	    "scheduled_event": {"start_time": "2025-12-05T14:00:00Z"}
	  }
	}`))
	require.NoError(t, err)
	assert.Equal(t, "calendly:sam@example.com:2025-12-05T14:00:00Z", ev.Booking.ExternalRef)
	assert.Equal(t, "Sam Lee", ev.Booking.InviteeName)
	assert.Equal(t, 30, ev.Booking.DurationMinutes)
	assert.Equal(t, "Calendly", ev.Booking.Location)
}

func TestNormalizeCalComBooking(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(`{
	  "triggerEvent": "BOOKING_CREATED",
	  "payload": {
	    "uid": "bk_123",
	    "title": "Discovery",
	    "startTime": "2025-12-05T14:00:00Z",
	    "endTime": "2025-12-05T14:45:00Z",
	    "attendees": [{"name": "Ana Ruiz", "email": "ANA@example.com"}],
	    "responses": {
	      "name": "Ana Ruiz",
	      "companyName": {"label": "Company", "value": "Ruiz HVAC"},
	      "attendeePhoneNumber": "+15550103000"
	    },
	    "metadata": {"user_id": "user-7"}
	  }
	}`))
	require.NoError(t, err)

	assert.Equal(t, usecase.ProviderCalCom, ev.Provider)
	assert.Equal(t, usecase.KindMeetingBooked, ev.Kind)
	assert.Equal(t, "user-7", ev.Refs.UserID)
	assert.Equal(t, "ana@example.com", ev.Refs.Email)
	assert.Equal(t, "+15550103000", ev.Refs.Phone)
	assert.Equal(t, "calcom:bk_123", ev.Booking.ExternalRef)
	assert.Equal(t, "Ruiz HVAC", ev.Booking.BusinessName)
	assert.Equal(t, 45, ev.Booking.DurationMinutes)
	assert.Equal(t, "Cal.com", ev.Booking.Location)
}

func TestNormalizeBookingIgnoredAndInvalid(t *testing.T) {
	ev, err := usecase.NormalizeBookingEvent([]byte(`{"event":"invitee.canceled","payload":{}}`))
	require.NoError(t, err)
	assert.True(t, ev.Ignored())

	ev, err = usecase.NormalizeBookingEvent([]byte(`{"triggerEvent":"BOOKING_CANCELLED","payload":{}}`))
	require.NoError(t, err)
	assert.True(t, ev.Ignored())

	_, err = usecase.NormalizeBookingEvent([]byte(`not json`))
	assert.Equal(t, usecase.CodeInvalidPayload, usecase.DomainCode(err))

	_, err = usecase.NormalizeBookingEvent([]byte(`{"event":"invitee.created","payload":{"email":"x@example.com"}}`))
	assert.Equal(t, usecase.CodeMissingFields, usecase.DomainCode(err))
}
