package database

import (
	"context"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const profilesTable = "profiles"

type ProfileRepository struct {
	Store RowStore
}

func NewProfileRepository(store RowStore) *ProfileRepository {
	return &ProfileRepository{Store: store}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	return r.findOne(ctx, Query{Table: profilesTable, Filters: []Filter{Eq("id", id)}})
}

func (r *ProfileRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*entity.Profile, error) {
	return r.findOne(ctx, Query{Table: profilesTable, Filters: []Filter{Eq("stripe_customer_id", customerID)}})
}

// FindFirst returns the oldest profile, the fallback owner for bookings that
// arrive without a tenant.
func (r *ProfileRepository) FindFirst(ctx context.Context) (*entity.Profile, error) {
	return r.findOne(ctx, Query{Table: profilesTable, OrderBy: "created_at"})
}

func (r *ProfileRepository) findOne(ctx context.Context, q Query) (*entity.Profile, error) {
	row, err := selectOne(ctx, r.Store, q)
	if err != nil {
		return nil, err
	}
	return profileFromRow(row), nil
}

func (r *ProfileRepository) ApplySubscription(ctx context.Context, key entity.ProfileKey, u entity.SubscriptionUpdate) (bool, error) {
	filters := []Filter{NullOrAtMost("stripe_event_at", u.EventAt.UTC())}
	switch {
	case key.ID != "":
		filters = append(filters, Eq("id", key.ID))
	case key.StripeCustomerID != "":
		filters = append(filters, Eq("stripe_customer_id", key.StripeCustomerID))
	default:
		return false, errNotFound
	}

	values := Row{
		"stripe_event_at": u.EventAt.UTC(),
		"updated_at":      time.Now().UTC(),
	}
	if u.Plan != nil {
		values["plan"] = *u.Plan
	}
	if u.StripeCustomerID != nil {
		values["stripe_customer_id"] = *u.StripeCustomerID
	}
	if u.StripeSubscriptionID != nil {
		values["stripe_subscription_id"] = *u.StripeSubscriptionID
	}
	if u.ClearSubscriptionID {
		values["stripe_subscription_id"] = nil
	}
	if u.Status != nil {
		values["subscription_status"] = string(*u.Status)
	}
	if u.PeriodEnd != nil {
		values["subscription_period_end"] = u.PeriodEnd.UTC()
	}

	n, err := r.Store.Update(ctx, Query{Table: profilesTable, Filters: filters}, values)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func profileFromRow(r Row) *entity.Profile {
	return &entity.Profile{
		ID:          getString(r, "id"),
		Email:       getString(r, "email"),
		FullName:    getString(r, "full_name"),
		CompanyName: getString(r, "company_name"),
		Subscription: entity.Subscription{
			Plan:                 getString(r, "plan"),
			StripeCustomerID:     getString(r, "stripe_customer_id"),
			StripeSubscriptionID: getString(r, "stripe_subscription_id"),
			Status:               entity.SubscriptionStatus(getString(r, "subscription_status")),
			PeriodEnd:            getTimePtr(r, "subscription_period_end"),
			LastEventAt:          getTimePtr(r, "stripe_event_at"),
		},
		CreatedAt: getTime(r, "created_at"),
	}
}
