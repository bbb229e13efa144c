package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

// LeadRef lists the identifiers a delivery may carry for a lead, strongest
// first.
type LeadRef struct {
	UserID         string
	LeadID         string
	ExternalCallID string
	Phone          string
	Email          string
}

func (r LeadRef) empty() bool {
	return r.LeadID == "" && r.ExternalCallID == "" && r.Phone == "" && r.Email == ""
}

type LeadResolver struct {
	Leads           entity.LeadRepositoryInterface
	Calls           entity.OutreachCallRepositoryInterface
	Profiles        entity.ProfileRepositoryInterface
	DefaultTenantID string
	Logger          *slog.Logger
}

func NewLeadResolver(
	leads entity.LeadRepositoryInterface,
	calls entity.OutreachCallRepositoryInterface,
	profiles entity.ProfileRepositoryInterface,
	defaultTenantID string,
	logger *slog.Logger,
) *LeadResolver {
	return &LeadResolver{
		Leads:           leads,
		Calls:           calls,
		Profiles:        profiles,
		DefaultTenantID: defaultTenantID,
		Logger:          logger,
	}
}

// Resolve finds the lead ref points at. When nothing matches and create is
// non-nil, create is persisted and returned with created set.
func (r *LeadResolver) Resolve(ctx context.Context, ref LeadRef, create *entity.Lead) (*entity.Lead, bool, error) {
	if ref.empty() {
		return nil, false, newDomainError(CodeUnresolvableEntity, "no phone, email or call id to identify the lead")
	}
	if ref.UserID == "" {
		r.Logger.Warn("resolving lead without tenant scope", "phone", ref.Phone, "email", ref.Email)
	}

	lead, err := r.lookup(ctx, ref)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}

	if create == nil {
		return nil, false, newDomainError(CodeNotFound, "lead not found")
	}

	if create.UserID == "" {
		tenant, err := r.ResolveTenant(ctx, ref.UserID)
		if err != nil {
			return nil, false, err
		}
		create.UserID = tenant
	}
	if err := r.Leads.Create(ctx, create); err != nil {
		return nil, false, storeError("creating lead", err)
	}
	r.Logger.Info("lead created", "lead_id", create.ID, "user_id", create.UserID, "source", create.Source)
	return create, true, nil
}

func (r *LeadResolver) lookup(ctx context.Context, ref LeadRef) (*entity.Lead, error) {
	if ref.LeadID != "" {
		lead, err := r.Leads.FindByID(ctx, ref.LeadID)
		if err == nil || !errors.Is(err, entity.ErrNotFound) {
			return lead, wrapStore("finding lead", err)
		}
	}

	if ref.ExternalCallID != "" {
		call, err := r.Calls.FindByExternalID(ctx, ref.ExternalCallID)
		switch {
		case err == nil:
			lead, err := r.Leads.FindByID(ctx, call.LeadID)
			if err == nil || !errors.Is(err, entity.ErrNotFound) {
				return lead, wrapStore("finding lead", err)
			}
		case !errors.Is(err, entity.ErrNotFound):
			return nil, storeError("finding call", err)
		}
	}

	if ref.Phone != "" {
		lead, err := r.Leads.FindByPhone(ctx, ref.UserID, ref.Phone)
		if err == nil || !errors.Is(err, entity.ErrNotFound) {
			return lead, wrapStore("finding lead by phone", err)
		}
	}

	if ref.Email != "" {
		lead, err := r.Leads.FindByEmail(ctx, ref.UserID, ref.Email)
		if err == nil || !errors.Is(err, entity.ErrNotFound) {
			return lead, wrapStore("finding lead by email", err)
		}
	}

	return nil, entity.ErrNotFound
}

// ResolveTenant picks the owner for a new record: the hint, then the
// configured default, then the oldest profile.
func (r *LeadResolver) ResolveTenant(ctx context.Context, hint string) (string, error) {
	if hint != "" {
		return hint, nil
	}
	if r.DefaultTenantID != "" {
		return r.DefaultTenantID, nil
	}

	p, err := r.Profiles.FindFirst(ctx)
	if errors.Is(err, entity.ErrNotFound) {
		return "", newDomainError(CodeUnresolvableEntity, "no tenant to own the lead")
	}
	if err != nil {
		return "", storeError("finding fallback profile", err)
	}
	r.Logger.Warn("no tenant on delivery, assigning to first profile", "user_id", p.ID)
	return p.ID, nil
}

func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return storeError(op, err)
}
