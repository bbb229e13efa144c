package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const (
	calendlyInviteeCreated = "invitee.created"
	calComBookingCreated   = "BOOKING_CREATED"

	defaultSchedulerDuration = 30
)

type bookingEnvelope struct {
	Event        string          `json:"event"`
	TriggerEvent string          `json:"triggerEvent"`
	Payload      json.RawMessage `json:"payload"`
}

type calendlyQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type calendlyTracking struct {
	UTMContent string `json:"utm_content"`
}

// calendlyPerson holds the invitee fields. Webhook v2 payloads nest them
// under payload.invitee; older deliveries put them directly on payload.
type calendlyPerson struct {
	URI                 string           `json:"uri"`
	Name                string           `json:"name"`
	FirstName           string           `json:"first_name"`
	LastName            string           `json:"last_name"`
	Email               string           `json:"email"`
	TextReminderNumber  string           `json:"text_reminder_number"`
	QuestionsAndAnswers []calendlyQA     `json:"questions_and_answers"`
	Tracking            calendlyTracking `json:"tracking"`
}

type calendlyInvitee struct {
	calendlyPerson
	Invitee        *calendlyPerson `json:"invitee"`
	ScheduledEvent struct {
		URI       string    `json:"uri"`
		Name      string    `json:"name"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
		Location  struct {
			Type     string `json:"type"`
			JoinURL  string `json:"join_url"`
			Location string `json:"location"`
		} `json:"location"`
	} `json:"scheduled_event"`
	EventType struct {
		Name     string `json:"name"`
		Duration int    `json:"duration"`
	} `json:"event_type"`
}

// person prefers the nested invitee and fills gaps from the flat fields.
func (inv calendlyInvitee) person() calendlyPerson {
	flat := inv.calendlyPerson
	if inv.Invitee == nil {
		return flat
	}
	p := *inv.Invitee
	p.URI = firstNonEmpty(p.URI, flat.URI)
	p.Name = firstNonEmpty(p.Name, flat.Name)
	p.FirstName = firstNonEmpty(p.FirstName, flat.FirstName)
	p.LastName = firstNonEmpty(p.LastName, flat.LastName)
	p.Email = firstNonEmpty(p.Email, flat.Email)
	p.TextReminderNumber = firstNonEmpty(p.TextReminderNumber, flat.TextReminderNumber)
	p.Tracking.UTMContent = firstNonEmpty(p.Tracking.UTMContent, flat.Tracking.UTMContent)
	if len(p.QuestionsAndAnswers) == 0 {
		p.QuestionsAndAnswers = flat.QuestionsAndAnswers
	}
	return p
}

type calComAttendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	TimeZone    string `json:"timeZone"`
}

type calComBooking struct {
	UID       string           `json:"uid"`
	BookingID int64            `json:"bookingId"`
	Title     string           `json:"title"`
	Type      string           `json:"type"`
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Location  string           `json:"location"`
	Attendees []calComAttendee `json:"attendees"`
	Responses map[string]any   `json:"responses"`
	Metadata  map[string]any   `json:"metadata"`
}

// NormalizeBookingEvent detects Calendly and Cal.com deliveries by shape.
// Anything other than a new booking is KindIgnored.
func NormalizeBookingEvent(body []byte) (NormalizedEvent, error) {
	var env bookingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return NormalizedEvent{}, newDomainError(CodeInvalidPayload, "invalid JSON body: %v", err)
	}

	switch {
	case env.TriggerEvent != "":
		return normalizeCalCom(env)
	case env.Event != "":
		return normalizeCalendly(env)
	}
	return NormalizedEvent{Provider: ProviderCalendly, Kind: KindIgnored}, nil
}

func normalizeCalendly(env bookingEnvelope) (NormalizedEvent, error) {
	out := NormalizedEvent{Provider: ProviderCalendly, EventType: env.Event, Kind: KindIgnored}
	if env.Event != calendlyInviteeCreated {
		return out, nil
	}

	var inv calendlyInvitee
	if err := json.Unmarshal(env.Payload, &inv); err != nil {
		return out, newDomainError(CodeInvalidPayload, "decoding Calendly invitee: %v", err)
	}
	start := inv.ScheduledEvent.StartTime
	if start.IsZero() {
		return out, newDomainError(CodeMissingFields, "scheduled_event.start_time is required")
	}

	who := inv.person()
	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = strings.TrimSpace(who.FirstName + " " + who.LastName)
	}
	phone := who.TextReminderNumber

	var notes []string
	var business string
	for _, qa := range who.QuestionsAndAnswers {
		if qa.Answer == "" {
			continue
		}
		notes = append(notes, qa.Question+": "+qa.Answer)
		q := strings.ToLower(qa.Question)
		switch {
		case business == "" && (strings.Contains(q, "business") || strings.Contains(q, "company")):
			business = qa.Answer
		case phone == "" && strings.Contains(q, "phone"):
			phone = qa.Answer
		}
	}

	duration := inv.EventType.Duration
	if end := inv.ScheduledEvent.EndTime; end.After(start) {
		duration = int(end.Sub(start).Minutes())
	}
	if duration <= 0 {
		duration = defaultSchedulerDuration
	}

	meetingType := inv.EventType.Name
	if meetingType == "" {
		meetingType = inv.ScheduledEvent.Name
	}

	loc := inv.ScheduledEvent.Location
	location := firstNonEmpty(loc.JoinURL, loc.Location, loc.Type, "Calendly")

	email := strings.ToLower(strings.TrimSpace(who.Email))
	ref := who.URI
	if ref == "" {
		ref = entity.MeetingRef("calendly", email, start)
	}

	out.Kind = KindMeetingBooked
	out.OccurredAt = start.UTC()
	out.Refs = EntityRefs{
		Email:  email,
		Phone:  strings.TrimSpace(phone),
		UserID: who.Tracking.UTMContent,
	}
	out.Booking = &BookingFields{
		ExternalRef:     ref,
		InviteeName:     name,
		BusinessName:    business,
		ScheduledAt:     start.UTC(),
		DurationMinutes: duration,
		MeetingType:     meetingType,
		Location:        location,
		Notes:           strings.Join(notes, "\n"),
	}
	return out, nil
}

func normalizeCalCom(env bookingEnvelope) (NormalizedEvent, error) {
	out := NormalizedEvent{Provider: ProviderCalCom, EventType: env.TriggerEvent, Kind: KindIgnored}
	if env.TriggerEvent != calComBookingCreated {
		return out, nil
	}

	var b calComBooking
	if err := json.Unmarshal(env.Payload, &b); err != nil {
		return out, newDomainError(CodeInvalidPayload, "decoding Cal.com booking: %v", err)
	}
	if b.StartTime.IsZero() {
		return out, newDomainError(CodeMissingFields, "startTime is required")
	}

	var attendee calComAttendee
	if len(b.Attendees) > 0 {
		attendee = b.Attendees[0]
	}

	phone := attendee.PhoneNumber
	var notes []string
	var business string
	keys := make([]string, 0, len(b.Responses))
	for k := range b.Responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := responseValue(b.Responses[k])
		if v == "" {
			continue
		}
		lk := strings.ToLower(k)
		switch {
		case lk == "name" || lk == "email":
			continue
		case business == "" && (strings.Contains(lk, "business") || strings.Contains(lk, "company")):
			business = v
		case phone == "" && strings.Contains(lk, "phone"):
			phone = v
		}
		notes = append(notes, k+": "+v)
	}

	duration := defaultSchedulerDuration
	if b.EndTime.After(b.StartTime) {
		duration = int(b.EndTime.Sub(b.StartTime).Minutes())
	}

	ref := b.UID
	if ref == "" && b.BookingID != 0 {
		ref = strconv.FormatInt(b.BookingID, 10)
	}
	if ref == "" {
		ref = entity.MeetingRef("calcom", strings.ToLower(attendee.Email), b.StartTime)
	} else {
		ref = "calcom:" + ref
	}

	out.Kind = KindMeetingBooked
	out.OccurredAt = b.StartTime.UTC()
	out.Refs = EntityRefs{
		Email:  strings.ToLower(strings.TrimSpace(attendee.Email)),
		Phone:  strings.TrimSpace(phone),
		UserID: metaString(b.Metadata, "user_id", "userId"),
	}
	out.Booking = &BookingFields{
		ExternalRef:     ref,
		InviteeName:     attendee.Name,
		BusinessName:    business,
		ScheduledAt:     b.StartTime.UTC(),
		DurationMinutes: duration,
		MeetingType:     firstNonEmpty(b.Title, b.Type),
		Location:        firstNonEmpty(b.Location, "Cal.com"),
		Notes:           strings.Join(notes, "\n"),
	}
	return out, nil
}

// responseValue flattens Cal.com booking responses, which arrive either as
// plain values or as {"label": ..., "value": ...} objects.
func responseValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return responseValue(t["value"])
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := responseValue(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
