package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const meetingBookedEvent = "meeting_booked"

// MeetingBookedInput is the body of the meeting-booked webhook the voice
// agent fires when it sets an appointment during a call.
type MeetingBookedInput struct {
	Event           string `json:"event"`
	CallID          string `json:"call_id"`
	UserID          string `json:"user_id"`
	LeadPhone       string `json:"lead_phone"`
	LeadEmail       string `json:"lead_email"`
	LeadName        string `json:"lead_name"`
	ScheduledAt     string `json:"scheduled_at"`
	Duration        int    `json:"duration"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingType     string `json:"meeting_type"`
	Notes           string `json:"notes"`
}

type MeetingOutcome struct {
	MeetingID   string
	LeadID      string
	LeadCreated bool
	LeadChanged bool
}

type ReconcileMeetingUseCase struct {
	Resolver *LeadResolver
	Leads    entity.LeadRepositoryInterface
	Calls    entity.OutreachCallRepositoryInterface
	Meetings entity.MeetingRepositoryInterface
	Notifier Notifier
	Logger   *slog.Logger
}

func NewReconcileMeetingUseCase(
	resolver *LeadResolver,
	leads entity.LeadRepositoryInterface,
	calls entity.OutreachCallRepositoryInterface,
	meetings entity.MeetingRepositoryInterface,
	notifier Notifier,
	logger *slog.Logger,
) *ReconcileMeetingUseCase {
	return &ReconcileMeetingUseCase{
		Resolver: resolver,
		Leads:    leads,
		Calls:    calls,
		Meetings: meetings,
		Notifier: notifier,
		Logger:   logger,
	}
}

// BookFromCall records a meeting reported by the voice agent. The lead must
// already exist.
func (uc *ReconcileMeetingUseCase) BookFromCall(ctx context.Context, in MeetingBookedInput) (*MeetingOutcome, error) {
	if in.Event != meetingBookedEvent {
		return nil, newDomainError(CodeInvalidPayload, "unsupported event %q", in.Event)
	}
	if in.ScheduledAt == "" || (in.LeadPhone == "" && in.LeadEmail == "") {
		return nil, newDomainError(CodeMissingFields, "scheduled_at and lead_phone or lead_email are required")
	}
	scheduledAt, err := parseScheduledAt(in.ScheduledAt)
	if err != nil {
		return nil, newDomainError(CodeInvalidPayload, "scheduled_at must be an ISO 8601 time: %v", err)
	}

	lead, _, err := uc.Resolver.Resolve(ctx, LeadRef{
		UserID: in.UserID,
		Phone:  in.LeadPhone,
		Email:  in.LeadEmail,
	}, nil)
	if err != nil {
		return nil, err
	}

	var call *entity.OutreachCall
	if in.CallID != "" {
		call, err = uc.Calls.FindByExternalID(ctx, in.CallID)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			uc.Logger.Warn("meeting references unknown call", "call_id", in.CallID)
			call = nil
		case err != nil:
			return nil, storeError("finding call", err)
		}
	}

	m := entity.NewMeeting(lead.UserID, lead.ID, scheduledAt)
	if d := max(in.DurationMinutes, in.Duration); d > 0 {
		m.DurationMinutes = d
	}
	if in.MeetingType != "" {
		m.MeetingType = in.MeetingType
	}
	m.Notes = in.Notes
	if call != nil {
		m.CallID = call.ID
		m.ExternalRef = entity.MeetingRef("call", call.ExternalCallID, scheduledAt)
	} else {
		m.ExternalRef = entity.MeetingRef("lead", lead.ID, scheduledAt)
	}

	out, err := uc.record(ctx, lead, m, false)
	if err != nil {
		return nil, err
	}

	if call != nil {
		if err := uc.Calls.MarkMeetingBooked(ctx, call.ID); err != nil {
			return nil, storeError("flagging call", err)
		}
	}

	uc.notify(ctx, lead, m, string(ProviderMeetings))
	return out, nil
}

// BookFromScheduler records a Calendly or Cal.com booking, creating the lead
// when the invitee is new.
func (uc *ReconcileMeetingUseCase) BookFromScheduler(ctx context.Context, ev NormalizedEvent, tenantHint string) (*MeetingOutcome, error) {
	b := ev.Booking
	if ev.Kind != KindMeetingBooked || b == nil {
		return nil, newDomainError(CodeInvalidPayload, "not a booking event")
	}

	tenant := firstNonEmpty(tenantHint, ev.Refs.UserID)
	lead, created, err := uc.Resolver.Resolve(ctx, LeadRef{
		UserID: tenant,
		Phone:  ev.Refs.Phone,
		Email:  ev.Refs.Email,
	}, newSchedulerLead(ev))
	if err != nil {
		return nil, err
	}

	m := entity.NewMeeting(lead.UserID, lead.ID, b.ScheduledAt)
	m.ExternalRef = b.ExternalRef
	if b.DurationMinutes > 0 {
		m.DurationMinutes = b.DurationMinutes
	}
	if b.MeetingType != "" {
		m.MeetingType = b.MeetingType
	}
	m.Location = b.Location
	m.Notes = b.Notes

	out, err := uc.record(ctx, lead, m, created)
	if err != nil {
		return nil, err
	}

	uc.notify(ctx, lead, m, string(ev.Provider))
	return out, nil
}

func (uc *ReconcileMeetingUseCase) record(ctx context.Context, lead *entity.Lead, m *entity.Meeting, created bool) (*MeetingOutcome, error) {
	if err := uc.Meetings.Upsert(ctx, m); err != nil {
		return nil, storeError("saving meeting", err)
	}

	out := &MeetingOutcome{MeetingID: m.ID, LeadID: lead.ID, LeadCreated: created}
	if lead.Status != entity.LeadMeetingScheduled {
		changed, err := uc.Leads.Transition(ctx, lead.ID, entity.LeadMeetingScheduled)
		if err != nil {
			return nil, storeError("updating lead status", err)
		}
		out.LeadChanged = changed
		lead.Status = entity.LeadMeetingScheduled
	}

	uc.Logger.Info("meeting recorded",
		"meeting_id", m.ID,
		"lead_id", lead.ID,
		"user_id", lead.UserID,
		"scheduled_at", m.ScheduledAt,
		"lead_created", created,
	)
	return out, nil
}

func (uc *ReconcileMeetingUseCase) notify(ctx context.Context, lead *entity.Lead, m *entity.Meeting, source string) {
	if uc.Notifier == nil {
		return
	}
	uc.Notifier.Notify(ctx, entity.Notification{
		Kind:        entity.NotifyMeetingBooked,
		UserID:      lead.UserID,
		LeadID:      lead.ID,
		LeadName:    firstNonEmpty(lead.ContactName, lead.BusinessName),
		LeadPhone:   lead.Phone,
		LeadEmail:   lead.Email,
		MeetingID:   m.ID,
		ScheduledAt: m.ScheduledAt,
		Source:      source,
	})
}

func newSchedulerLead(ev NormalizedEvent) *entity.Lead {
	b := ev.Booking
	phone := ev.Refs.Phone
	if phone == "" {
		phone = "N/A"
	}

	lead := entity.NewLead("", firstNonEmpty(b.BusinessName, b.InviteeName, ev.Refs.Email), phone)
	lead.ContactName = b.InviteeName
	lead.Email = ev.Refs.Email
	lead.City = "Unknown"
	lead.State = "Unknown"
	lead.Industry = "Other"
	lead.Status = entity.LeadMeetingScheduled
	lead.Score = entity.LeadHot
	lead.Source = string(ev.Provider)
	lead.Notes = strings.TrimSpace("Booking webhook: " + string(ev.Provider) + "\n" + b.Notes)
	return lead
}

// zonelessLayouts are accepted for scheduled_at when the agent sends no
// offset. Those times are read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseScheduledAt(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return t.UTC(), nil
	}
	for _, layout := range zonelessLayouts {
		if t, lerr := time.Parse(layout, v); lerr == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
