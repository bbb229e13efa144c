package entity

import "fmt"

type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanBusiness     Plan = "business"
)

// Plan values as stored on profiles.plan.
const (
	DBPlanLeads      = "leads"
	DBPlanOutreach   = "outreach"
	DBPlanWhitelabel = "whitelabel"
)

var planToDB = map[Plan]string{
	PlanStarter:      DBPlanLeads,
	PlanProfessional: DBPlanOutreach,
	PlanBusiness:     DBPlanWhitelabel,
}

func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	_, ok := planToDB[p]
	return p, ok
}

// DBValue returns the stored plan value. Unknown plans fall back to the
// entry tier.
func (p Plan) DBValue() string {
	if v, ok := planToDB[p]; ok {
		return v
	}
	return DBPlanLeads
}

type PlanPrices struct {
	Monthly string
	Annual  string
}

// PlanCatalog resolves Stripe price ids to plans.
type PlanCatalog struct {
	byPrice map[string]Plan
}

// NewPlanCatalog fails when a price id is empty or shared by two plans, so
// every configured price resolves to exactly one plan.
func NewPlanCatalog(prices map[Plan]PlanPrices) (*PlanCatalog, error) {
	c := &PlanCatalog{byPrice: make(map[string]Plan)}
	for plan, pp := range prices {
		if _, ok := planToDB[plan]; !ok {
			return nil, fmt.Errorf("unknown plan %q", plan)
		}
		for _, id := range []string{pp.Monthly, pp.Annual} {
			if id == "" {
				return nil, fmt.Errorf("plan %s has an empty price id", plan)
			}
			if other, dup := c.byPrice[id]; dup && other != plan {
				return nil, fmt.Errorf("price %s is mapped to both %s and %s", id, other, plan)
			}
			c.byPrice[id] = plan
		}
	}
	return c, nil
}

func (c *PlanCatalog) PlanForPrice(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}
