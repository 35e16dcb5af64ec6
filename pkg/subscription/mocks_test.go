package subscription_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// Mock implementations
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Charge(ctx context.Context, req subscription.ChargeRequest) (*subscription.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.ChargeResult), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req subscription.RefundRequest) (*subscription.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.RefundResult), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendCancellationConfirmation(ctx context.Context, sub *subscription.Subscription, reason string, refundAmount decimal.Decimal, withinCoolingOff bool) error {
	args := m.Called(ctx, sub, reason, refundAmount, withinCoolingOff)
	return args.Error(0)
}

// fixedClock returns a clock function pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// testPlans returns a deterministic plan source for tests.
func testPlans() subscription.PlanSource {
	return subscription.NewInMemSource(
		subscription.Plan{Code: "basic", Name: "Basic", Price: decimal.RequireFromString("9.90"), Currency: "EUR", PeriodMonths: 1},
		subscription.Plan{Code: "pro", Name: "Pro", Price: decimal.RequireFromString("29.90"), Currency: "EUR", PeriodMonths: 1},
	)
}

// seedActive creates and stores an active subscription starting at start with
// a one-month billing period, bypassing the service.
func seedActive(ctx context.Context, store subscription.Store, start time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:             uuid.New(),
		SubscriberID:   uuid.New(),
		PlanID:         "pro",
		Status:         subscription.StatusActive,
		Amount:         decimal.RequireFromString("29.90"),
		Currency:       "EUR",
		StartDate:      start,
		NextChargeDate: start.AddDate(0, 1, 0),
		RefundStatus:   subscription.RefundStatusNone,
		CreatedAt:      start,
		UpdatedAt:      start,
	}
	if err := store.Create(ctx, sub); err != nil {
		panic(err)
	}
	return sub
}
