package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// Service manages the subscription lifecycle: creation, lookup,
// administrative status changes, entitlement checks and cancellation.
//
// Billing-cycle processing lives in Runner; Service covers everything
// triggered by subscribers or operators.
type Service interface {
	// Create starts a new subscription for the subscriber on the given plan.
	// Unknown plan codes do not fail creation: the default plan's price is
	// applied with a logged warning and the requested code is kept for audit.
	Create(ctx context.Context, subscriberID uuid.UUID, planID string) (*Subscription, error)

	// Get retrieves a subscription by id.
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// SetStatus is the administrative status override. It validates the
	// target status but not the transition; operators use it to repair state.
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Subscription, error)

	// Reactivate returns a delinquent subscription to active with a reset
	// retry budget, e.g. after the subscriber updates their payment method.
	// Returns ErrInvalidState unless the subscription is delinquent.
	Reactivate(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// IsEntitled reports whether the subscriber currently holds paid access
	// through any of their subscriptions.
	IsEntitled(ctx context.Context, subscriberID uuid.UUID) (bool, error)

	// MostRecent returns the subscriber's most recently started subscription.
	// Returns ErrNotFound when the subscriber has none.
	MostRecent(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error)

	// ListDueForBilling returns all active subscriptions due for a charge
	// as of the given time.
	ListDueForBilling(ctx context.Context, asOf time.Time) ([]*Subscription, error)

	// Cancel terminates an active subscription, determines the refund tier
	// and submits the refund to the payment gateway. See CancelParams.
	Cancel(ctx context.Context, params CancelParams) (*CancellationResult, error)
}

type service struct {
	plans    map[string]Plan
	store    Store
	gateway  PaymentGateway
	notifier Notifier
	cache    EntitlementCache
	log      *slog.Logger
	now      func() time.Time

	coolingOffPeriod time.Duration
	refundTimeout    time.Duration
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEntitlementCache enables caching of entitlement checks. Writes through
// the service invalidate the affected subscriber's entry.
func WithEntitlementCache(cache EntitlementCache) ServiceOption {
	return func(s *service) {
		s.cache = cache
	}
}

// WithRefundTimeout bounds the gateway refund call during cancellation.
// Defaults to 15 seconds.
func WithRefundTimeout(timeout time.Duration) ServiceOption {
	return func(s *service) {
		if timeout > 0 {
			s.refundTimeout = timeout
		}
	}
}

// CoolingOffPeriod is the window after the start date in which a
// cancellation always yields a full refund.
const CoolingOffPeriod = 7 * 24 * time.Hour

// NewService creates the subscription lifecycle service. Plans are loaded
// once from src and cached for the service's lifetime.
//
// Panics if src or store is nil. A nil gateway is replaced by the disabled
// implementation, a nil notifier by the no-op one, so callers opt into the
// real collaborators explicitly.
func NewService(ctx context.Context, src PlanSource, store Store, gateway PaymentGateway, notifier Notifier, opts ...ServiceOption) (Service, error) {
	if src == nil {
		panic("subscription: plan source is required")
	}
	if store == nil {
		panic("subscription: store is required")
	}

	s := &service{
		store:            store,
		gateway:          gateway,
		notifier:         notifier,
		log:              slog.Default(),
		now:              time.Now,
		coolingOffPeriod: CoolingOffPeriod,
		refundTimeout:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gateway == nil {
		s.gateway = NewDisabledGateway(s.log)
	}
	if s.notifier == nil {
		s.notifier = NewNoopNotifier(s.log)
	}

	plans, err := loadPlans(ctx, src)
	if err != nil {
		return nil, err
	}
	s.plans = plans

	return s, nil
}

func (s *service) Create(ctx context.Context, subscriberID uuid.UUID, planID string) (*Subscription, error) {
	plan, ok := s.plans[planID]
	if !ok {
		s.log.WarnContext(ctx, "unknown plan code, falling back to default plan price",
			logger.SubscriberID(subscriberID),
			logger.PlanID(planID),
			slog.String("default_plan", DefaultPlanCode))
		plan, ok = s.plans[DefaultPlanCode]
		if !ok {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				errors.New("default plan missing from price table"))
		}
	}

	now := s.now().UTC()
	sub := &Subscription{
		ID:             uuid.New(),
		SubscriberID:   subscriberID,
		PlanID:         planID,
		Status:         StatusActive,
		Amount:         plan.Price,
		Currency:       plan.Currency,
		StartDate:      now,
		NextChargeDate: now.AddDate(0, plan.PeriodMonths, 0),
		RefundStatus:   RefundStatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateEntitlement(ctx, subscriberID)

	s.log.InfoContext(ctx, "subscription created",
		logger.SubscriptionID(sub.ID),
		logger.SubscriberID(subscriberID),
		logger.PlanID(planID),
		slog.String("amount", sub.Amount.StringFixed(2)),
		slog.Time("next_charge_date", sub.NextChargeDate))

	return sub, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Subscription, error) {
	if !status.Valid() {
		return nil, errors.Join(ErrInvalidState, errors.New("unknown status: "+string(status)))
	}

	now := s.now().UTC()
	sub, err := s.store.UpdateByID(ctx, id, func(sub *Subscription) error {
		sub.Status = status
		if status == StatusCancelled && sub.EndDate == nil {
			sub.EndDate = &now
		}
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEntitlement(ctx, sub.SubscriberID)

	s.log.InfoContext(ctx, "subscription status overridden",
		logger.SubscriptionID(id),
		slog.String("status", string(status)))

	return sub, nil
}

func (s *service) Reactivate(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	now := s.now().UTC()
	sub, err := s.store.UpdateByID(ctx, id, func(sub *Subscription) error {
		if !sub.IsDelinquent() {
			return errors.Join(ErrInvalidState,
				errors.New("only delinquent subscriptions can be reactivated, current status: "+string(sub.Status)))
		}
		sub.Status = StatusActive
		sub.AttemptCount = 0
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEntitlement(ctx, sub.SubscriberID)

	s.log.InfoContext(ctx, "subscription reactivated",
		logger.SubscriptionID(id),
		logger.SubscriberID(sub.SubscriberID))

	return sub, nil
}

func (s *service) IsEntitled(ctx context.Context, subscriberID uuid.UUID) (bool, error) {
	if s.cache != nil {
		if entitled, ok := s.cache.Get(ctx, subscriberID); ok {
			return entitled, nil
		}
	}

	subs, err := s.store.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	entitled := false
	for _, sub := range subs {
		if sub.EntitledAt(now) {
			entitled = true
			break
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, subscriberID, entitled)
	}
	return entitled, nil
}

func (s *service) MostRecent(ctx context.Context, subscriberID uuid.UUID) (*Subscription, error) {
	subs, err := s.store.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	// ListBySubscriber returns most recently started first.
	return subs[0], nil
}

func (s *service) ListDueForBilling(ctx context.Context, asOf time.Time) ([]*Subscription, error) {
	return s.store.ListDueForBilling(ctx, asOf)
}

func (s *service) invalidateEntitlement(ctx context.Context, subscriberID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, subscriberID)
	}
}

// periodMonths returns the billing period length for a plan code, defaulting
// to one month for codes missing from the price table.
func (s *service) periodMonths(planID string) int {
	if plan, ok := s.plans[planID]; ok && plan.PeriodMonths > 0 {
		return plan.PeriodMonths
	}
	return 1
}
