package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const (
	defaultBookingTimeZone = "America/New_York"
	phoneBookingDuration   = 30

	FallbackBookingMessage  = "I'm sorry, I couldn't complete the booking right now. Let me take your information and have someone call you back to confirm your appointment."
	FallbackBusinessMessage = "I'm sorry, I'm having trouble creating the booking. Let me take your information and have someone call you back to confirm."
	fallbackNotConfigured   = "I've noted your preferred time. Someone will call you back shortly to confirm the appointment."
	fallbackDecryptFailed   = "I'm having trouble with the booking system. Let me note this down and have someone confirm your appointment shortly."
)

type CreateBookingInput struct {
	AgentID       string `json:"agent_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeePhone string `json:"attendee_phone"`
	AttendeeEmail string `json:"attendee_email"`
	StartTime     string `json:"start_time"`
	ServiceType   string `json:"service_type"`
	Notes         string `json:"notes"`
	TimeZone      string `json:"time_zone"`
}

type CreateBookingOutput struct {
	Success             bool   `json:"success"`
	BookingID           string `json:"booking_id,omitempty"`
	BookingUID          string `json:"booking_uid,omitempty"`
	Datetime            string `json:"datetime,omitempty"`
	DisplayTime         string `json:"display_time,omitempty"`
	ConfirmationMessage string `json:"confirmation_message,omitempty"`
	CalendarConfigured  *bool  `json:"calendar_configured,omitempty"`
	Error               string `json:"error,omitempty"`
	FallbackMessage     string `json:"fallback_message,omitempty"`
}

// CreateBookingUseCase books a slot in the tenant's Cal.com calendar on behalf
// of the phone agent, then mirrors it as a lead and meeting.
type CreateBookingUseCase struct {
	Businesses entity.BusinessRepositoryInterface
	Calendar   CalendarClient
	Keys       SecretDecrypter
	Resolver   *LeadResolver
	Meetings   entity.MeetingRepositoryInterface
	Leads      entity.LeadRepositoryInterface
	Notifier   Notifier
	Logger     *slog.Logger
}

func NewCreateBookingUseCase(
	businesses entity.BusinessRepositoryInterface,
	calendar CalendarClient,
	keys SecretDecrypter,
	resolver *LeadResolver,
	meetings entity.MeetingRepositoryInterface,
	leads entity.LeadRepositoryInterface,
	notifier Notifier,
	logger *slog.Logger,
) *CreateBookingUseCase {
	return &CreateBookingUseCase{
		Businesses: businesses,
		Calendar:   calendar,
		Keys:       keys,
		Resolver:   resolver,
		Meetings:   meetings,
		Leads:      leads,
		Notifier:   notifier,
		Logger:     logger,
	}
}

func (uc *CreateBookingUseCase) Execute(ctx context.Context, in CreateBookingInput) (*CreateBookingOutput, error) {
	switch {
	case in.AgentID == "":
		return nil, newDomainError(CodeMissingFields, "agent_id is required")
	case in.AttendeeName == "":
		return nil, newDomainError(CodeMissingFields, "attendee_name is required")
	case in.StartTime == "":
		return nil, newDomainError(CodeMissingFields, "start_time is required")
	}
	start, err := time.Parse(time.RFC3339, in.StartTime)
	if err != nil {
		return nil, newDomainError(CodeInvalidPayload, "start_time must be RFC 3339: %v", err)
	}
	tz := firstNonEmpty(in.TimeZone, defaultBookingTimeZone)
	log := uc.Logger.With("agent_id", in.AgentID)

	business, err := uc.Businesses.FindByAgentID(ctx, in.AgentID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, newDomainError(CodeNotFound, "business not found for this agent")
	}
	if err != nil {
		return nil, storeError("finding business", err)
	}

	if !business.CalendarConfigured() {
		log.Info("calendar not configured", "business", business.BusinessName)
		configured := false
		return &CreateBookingOutput{CalendarConfigured: &configured, FallbackMessage: fallbackNotConfigured}, nil
	}

	if uc.Keys == nil {
		log.Error("calendar key cipher not configured")
		return &CreateBookingOutput{Error: "Calendar configuration error", FallbackMessage: fallbackDecryptFailed}, nil
	}
	apiKey, err := uc.Keys.Decrypt(business.CalComAPIKeyEncrypted)
	if err != nil {
		log.Error("decrypting calendar key", "error", err)
		return &CreateBookingOutput{Error: "Calendar configuration error", FallbackMessage: fallbackDecryptFailed}, nil
	}

	notes := bookingNotes(in)
	booking, err := uc.Calendar.CreateBooking(ctx, CalendarBookingInput{
		APIKey:      apiKey,
		EventTypeID: business.CalComEventTypeID,
		Start:       in.StartTime,
		Name:        in.AttendeeName,
		Email:       firstNonEmpty(in.AttendeeEmail, placeholderEmail(in.AttendeePhone)),
		Phone:       in.AttendeePhone,
		Notes:       notes,
		TimeZone:    tz,
		Metadata: map[string]string{
			"source":       "greenline_ai_phone",
			"agent_id":     in.AgentID,
			"service_type": in.ServiceType,
			"user_id":      business.UserID,
		},
	})
	if err != nil {
		return nil, &TechnicalError{Code: CodeIntegrationError, Message: "creating calendar booking", Err: err}
	}

	// The booking exists upstream now; failing to mirror it locally must not
	// turn into an error the caller would retry.
	if err := uc.mirror(ctx, business, in, start, notes, booking); err != nil {
		log.Error("recording phone booking", "booking_uid", booking.UID, "error", err)
	}

	display := DisplayTime(start, tz)
	return &CreateBookingOutput{
		Success:             true,
		BookingID:           fmt.Sprint(booking.ID),
		BookingUID:          booking.UID,
		Datetime:            in.StartTime,
		DisplayTime:         display,
		ConfirmationMessage: fmt.Sprintf("Your appointment is confirmed for %s. You should receive a confirmation email shortly. Is there anything else I can help you with?", display),
	}, nil
}

func (uc *CreateBookingUseCase) mirror(ctx context.Context, b *entity.Business, in CreateBookingInput, start time.Time, notes string, booking *CalendarBooking) error {
	create := entity.NewLead(b.UserID, in.AttendeeName, in.AttendeePhone)
	create.ContactName = in.AttendeeName
	create.Email = in.AttendeeEmail
	create.Industry = firstNonEmpty(in.ServiceType, "service_request")
	create.Status = entity.LeadMeetingScheduled
	create.Source = "phone_booking"
	create.Notes = "Booked via phone call. Service: " + firstNonEmpty(in.ServiceType, "Not specified")

	lead, created, err := uc.Resolver.Resolve(ctx, LeadRef{
		UserID: b.UserID,
		Phone:  in.AttendeePhone,
		Email:  in.AttendeeEmail,
	}, create)
	if err != nil {
		return err
	}

	m := entity.NewMeeting(b.UserID, lead.ID, start)
	m.DurationMinutes = phoneBookingDuration
	m.MeetingType = firstNonEmpty(in.ServiceType, "service_appointment")
	m.Notes = notes
	m.Location = "Cal.com"
	m.ExternalRef = "calcom:" + firstNonEmpty(booking.UID, fmt.Sprint(booking.ID))
	if err := uc.Meetings.Upsert(ctx, m); err != nil {
		return err
	}

	if !created {
		if _, err := uc.Leads.Transition(ctx, lead.ID, entity.LeadMeetingScheduled); err != nil {
			return err
		}
	}

	if uc.Notifier != nil {
		uc.Notifier.Notify(ctx, entity.Notification{
			Kind:        entity.NotifyMeetingBooked,
			UserID:      b.UserID,
			LeadID:      lead.ID,
			LeadName:    in.AttendeeName,
			LeadPhone:   in.AttendeePhone,
			LeadEmail:   in.AttendeeEmail,
			MeetingID:   m.ID,
			ScheduledAt: m.ScheduledAt,
			Source:      "phone_booking",
		})
	}
	return nil
}

func bookingNotes(in CreateBookingInput) string {
	var lines []string
	if in.ServiceType != "" {
		lines = append(lines, "Service: "+in.ServiceType)
	}
	if in.AttendeePhone != "" {
		lines = append(lines, "Phone: "+in.AttendeePhone)
	}
	if in.Notes != "" {
		lines = append(lines, "Notes: "+in.Notes)
	}
	lines = append(lines, "Booked via GreenLine AI phone agent")
	return strings.Join(lines, "\n")
}

// placeholderEmail satisfies Cal.com's required email for callers who only
// gave a phone number.
func placeholderEmail(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return digits + "@placeholder.greenline-ai.com"
}

// DisplayTime renders a slot the way the agent reads it to callers, e.g.
// "Friday, December 5 at 9:00 AM".
func DisplayTime(t time.Time, timeZone string) string {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday, January 2 at 3:04 PM")
}
