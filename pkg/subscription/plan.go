package subscription

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultPlanCode is the plan used when a subscription is created with an
// unknown plan code. Creation never fails on a bad code; it falls back to
// this plan's price with a logged warning.
const DefaultPlanCode = "basic"

// Plan describes a subscription plan from the fixed price table.
// Code doubles as the payment provider's price identifier so charges map
// directly during gateway calls.
type Plan struct {
	Code         string
	Name         string
	Price        decimal.Decimal
	Currency     string
	PeriodMonths int // billing period length, 1 for monthly
}

// PlanSource defines how plans are loaded into the billing components.
// Plans are loaded once at construction and cached in memory.
type PlanSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// DefaultPlans returns the built-in price table.
func DefaultPlans() []Plan {
	return []Plan{
		{Code: "basic", Name: "Basic", Price: decimal.RequireFromString("9.90"), Currency: "EUR", PeriodMonths: 1},
		{Code: "pro", Name: "Pro", Price: decimal.RequireFromString("29.90"), Currency: "EUR", PeriodMonths: 1},
		{Code: "ultimate", Name: "Ultimate", Price: decimal.RequireFromString("49.90"), Currency: "EUR", PeriodMonths: 1},
	}
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory PlanSource holding a copy of the given
// plans. Panics if no plans are provided so the components always have at
// least one valid plan to fall back to.
func NewInMemSource(plans ...Plan) PlanSource {
	if len(plans) < 1 {
		panic("at least one plan is required")
	}
	byCode := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		byCode[plan.Code] = plan
	}
	return &inMemSource{plans: byCode}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.plans), nil
}

// loadPlans loads and validates plans from a source, normalizing omitted
// period lengths to one month.
func loadPlans(ctx context.Context, src PlanSource) (map[string]Plan, error) {
	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrFailedToLoadPlans, errors.New("plan source returned no plans"))
	}

	for code, plan := range plans {
		if plan.Code != code {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan code mismatch: map key %s != plan.Code %s", code, plan.Code))
		}
		if plan.Price.IsNegative() {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative price: %s", code, plan.Price))
		}
		if plan.PeriodMonths < 0 {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative period: %d", code, plan.PeriodMonths))
		}
		if plan.PeriodMonths == 0 {
			plan.PeriodMonths = 1
			plans[code] = plan
		}
	}

	return plans, nil
}
