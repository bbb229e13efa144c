package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

type CallOutcome struct {
	CallID      string
	LeadID      string
	LeadStatus  entity.LeadStatus
	LeadChanged bool
}

// ReconcileCallUseCase applies Retell call lifecycle events to the outreach
// call they describe and cascades the outcome onto its lead.
type ReconcileCallUseCase struct {
	Calls  entity.OutreachCallRepositoryInterface
	Leads  entity.LeadRepositoryInterface
	Logger *slog.Logger
	now    func() time.Time
}

func NewReconcileCallUseCase(
	calls entity.OutreachCallRepositoryInterface,
	leads entity.LeadRepositoryInterface,
	logger *slog.Logger,
) *ReconcileCallUseCase {
	return &ReconcileCallUseCase{
		Calls:  calls,
		Leads:  leads,
		Logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReconcileCallUseCase) Execute(ctx context.Context, ev NormalizedEvent) (*CallOutcome, error) {
	externalID := ev.Refs.ExternalCallID
	if externalID == "" {
		return nil, newDomainError(CodeMissingFields, "call.call_id is required")
	}
	if ev.Call == nil {
		return nil, newDomainError(CodeInvalidPayload, "event carries no call fields")
	}
	log := uc.Logger.With("call_id", externalID, "event", ev.EventType)

	call, err := uc.Calls.FindByExternalID(ctx, externalID)
	if errors.Is(err, entity.ErrNotFound) {
		log.Warn("call not found, ignoring event")
		return nil, newDomainError(CodeNotFound, "call not found")
	}
	if err != nil {
		return nil, storeError("finding call", err)
	}

	f := ev.Call
	if !f.KnownStatus {
		log.Warn("unknown call status, defaulting", "raw_status", f.RawStatus, "status", f.Status)
	}

	update := entity.CallUpdate{
		Status:          f.Status,
		DurationSeconds: f.Duration,
		Transcript:      f.Transcript,
		RecordingURL:    f.RecordingURL,
		Summary:         f.Summary,
		Sentiment:       f.Sentiment,
		MeetingBooked:   f.MeetingBooked,
	}
	if _, err := uc.Calls.ApplyUpdate(ctx, externalID, update); err != nil {
		return nil, storeError("updating call", err)
	}

	leadID, err := uc.cascadeLead(ctx, log, call, ev.Refs.LeadID)
	if err != nil {
		return nil, err
	}
	out := &CallOutcome{CallID: call.ID, LeadID: leadID}
	if leadID == "" {
		log.Info("call updated", "status", f.Status)
		return out, nil
	}

	if ev.EventType == RetellCallEnded || ev.EventType == RetellCallAnalyzed {
		at := ev.OccurredAt
		if at.IsZero() {
			at = uc.now()
		}
		if err := uc.Leads.TouchLastContacted(ctx, leadID, at); err != nil {
			return nil, storeError("updating lead last_contacted", err)
		}
	}

	target, ok := cascadeLeadStatus(f)
	if !ok {
		log.Info("call updated", "status", f.Status, "lead_id", leadID)
		return out, nil
	}

	changed, err := uc.Leads.Transition(ctx, leadID, target)
	if err != nil {
		return nil, storeError("updating lead status", err)
	}
	out.LeadStatus = target
	out.LeadChanged = changed

	log.Info("call reconciled",
		"status", f.Status,
		"lead_id", leadID,
		"lead_status", target,
		"lead_changed", changed,
	)
	return out, nil
}

// cascadeLead picks the lead a call outcome lands on. The call row's lead
// wins; the metadata leadId is used only when the row has none and the lead
// belongs to the same tenant.
func (uc *ReconcileCallUseCase) cascadeLead(ctx context.Context, log *slog.Logger, call *entity.OutreachCall, metaLeadID string) (string, error) {
	if call.LeadID != "" {
		if metaLeadID != "" && metaLeadID != call.LeadID {
			log.Warn("call metadata names a different lead, using the stored one",
				"lead_id", call.LeadID, "metadata_lead_id", metaLeadID)
		}
		return call.LeadID, nil
	}
	if metaLeadID == "" {
		return "", nil
	}

	lead, err := uc.Leads.FindByID(ctx, metaLeadID)
	if errors.Is(err, entity.ErrNotFound) {
		log.Warn("metadata lead not found", "metadata_lead_id", metaLeadID)
		return "", nil
	}
	if err != nil {
		return "", storeError("finding lead", err)
	}
	if call.UserID != "" && lead.UserID != call.UserID {
		log.Warn("metadata lead belongs to another tenant", "metadata_lead_id", metaLeadID)
		return "", nil
	}
	return lead.ID, nil
}

// cascadeLeadStatus picks the lead status a call outcome implies, strongest
// signal first. Whether it is applied is up to the status lattice.
func cascadeLeadStatus(f *CallFields) (entity.LeadStatus, bool) {
	switch {
	case f.MeetingBooked:
		return entity.LeadMeetingScheduled, true
	case f.Sentiment == entity.SentimentPositive:
		return entity.LeadInterested, true
	case f.Status == entity.CallCompleted:
		return entity.LeadContacted, true
	case f.Status == entity.CallNoAnswer || f.Status == entity.CallVoicemail:
		return entity.LeadNoAnswer, true
	}
	return "", false
}
