package database

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

const leadsTable = "leads"

type LeadRepository struct {
	Store RowStore
}

func NewLeadRepository(store RowStore) *LeadRepository {
	return &LeadRepository{Store: store}
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row, err := selectOne(ctx, r.Store, Query{Table: leadsTable, Filters: []Filter{Eq("id", id)}})
	if err != nil {
		return nil, err
	}
	return leadFromRow(row), nil
}

// FindByPhone matches the stored phone exactly, then falls back to a
// substring match on the last ten digits. The newest lead wins.
func (r *LeadRepository) FindByPhone(ctx context.Context, userID, phone string) (*entity.Lead, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, errNotFound
	}

	lead, err := r.findOne(ctx, userID, Eq("phone", phone))
	if !errors.Is(err, errNotFound) {
		return lead, err
	}

	digits := lastDigits(phone, 10)
	if len(digits) < 10 || digits == phone {
		return nil, errNotFound
	}
	return r.findOne(ctx, userID, Contains("phone", digits))
}

func (r *LeadRepository) FindByEmail(ctx context.Context, userID, email string) (*entity.Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errNotFound
	}
	return r.findOne(ctx, userID, Eq("email", email))
}

func (r *LeadRepository) findOne(ctx context.Context, userID string, f Filter) (*entity.Lead, error) {
	filters := []Filter{f}
	if userID != "" {
		filters = append(filters, Eq("user_id", userID))
	}
	row, err := selectOne(ctx, r.Store, Query{
		Table:      leadsTable,
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return leadFromRow(row), nil
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	row, err := r.Store.Insert(ctx, leadsTable, leadToRow(lead))
	if err != nil {
		return err
	}
	lead.ID = getString(row, "id")
	lead.CreatedAt = getTime(row, "created_at")
	return nil
}

func (r *LeadRepository) Transition(ctx context.Context, id string, status entity.LeadStatus) (bool, error) {
	from := entity.LeadStatusesAdvancingTo(status)
	if len(from) == 0 {
		return false, nil
	}
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	n, err := r.Store.Update(ctx,
		Query{Table: leadsTable, Filters: []Filter{Eq("id", id), In("status", allowed...)}},
		Row{"status": string(status), "updated_at": time.Now().UTC()},
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LeadRepository) TouchLastContacted(ctx context.Context, id string, at time.Time) error {
	_, err := r.Store.Update(ctx,
		Query{Table: leadsTable, Filters: []Filter{Eq("id", id)}},
		Row{"last_contacted": at.UTC(), "updated_at": time.Now().UTC()},
	)
	return err
}

// UpdateDetails rewrites the contact and scoring fields lead carries. Empty
// fields keep their stored value; status goes through Transition only.
func (r *LeadRepository) UpdateDetails(ctx context.Context, lead *entity.Lead) error {
	values := leadToRow(lead)
	for k, v := range values {
		if v == nil || v == "" {
			delete(values, k)
		}
	}
	for _, k := range []string{"id", "user_id", "status", "created_at"} {
		delete(values, k)
	}
	values["updated_at"] = time.Now().UTC()

	_, err := r.Store.Update(ctx, Query{Table: leadsTable, Filters: []Filter{Eq("id", lead.ID)}}, values)
	return err
}

func leadToRow(l *entity.Lead) Row {
	row := Row{
		"user_id":        l.UserID,
		"business_name":  l.BusinessName,
		"contact_name":   nullString(l.ContactName),
		"phone":          l.Phone,
		"email":          nullString(strings.ToLower(l.Email)),
		"website":        nullString(l.Website),
		"address":        nullString(l.Address),
		"city":           nullString(l.City),
		"state":          nullString(l.State),
		"zip":            nullString(l.Zip),
		"industry":       nullString(l.Industry),
		"status":         string(l.Status),
		"lead_score":     nullString(string(l.Score)),
		"notes":          nullString(l.Notes),
		"source":         nullString(l.Source),
		"last_contacted": nullTime(l.LastContacted),
		"updated_at":     time.Now().UTC(),
	}
	if l.ID != "" {
		row["id"] = l.ID
	}
	if !l.CreatedAt.IsZero() {
		row["created_at"] = l.CreatedAt.UTC()
	}
	return row
}

func leadFromRow(r Row) *entity.Lead {
	return &entity.Lead{
		ID:            getString(r, "id"),
		UserID:        getString(r, "user_id"),
		BusinessName:  getString(r, "business_name"),
		ContactName:   getString(r, "contact_name"),
		Phone:         getString(r, "phone"),
		Email:         getString(r, "email"),
		Website:       getString(r, "website"),
		Address:       getString(r, "address"),
		City:          getString(r, "city"),
		State:         getString(r, "state"),
		Zip:           getString(r, "zip"),
		Industry:      getString(r, "industry"),
		Status:        entity.LeadStatus(getString(r, "status")),
		Score:         entity.LeadScore(getString(r, "lead_score")),
		Notes:         getString(r, "notes"),
		Source:        getString(r, "source"),
		LastContacted: getTimePtr(r, "last_contacted"),
		CreatedAt:     getTime(r, "created_at"),
		UpdatedAt:     getTime(r, "updated_at"),
	}
}

func lastDigits(s string, n int) string {
	var digits []rune
	for _, c := range s {
		if unicode.IsDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits) > n {
		digits = digits[len(digits)-n:]
	}
	return string(digits)
}
