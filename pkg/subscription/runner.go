package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// RetryLimit is the number of failed charge attempts before a subscription
// is marked delinquent.
const RetryLimit = 3

// RunnerConfig holds the billing runner settings loaded from the environment.
type RunnerConfig struct {
	CycleInterval  time.Duration `env:"BILLING_CYCLE_INTERVAL" envDefault:"24h"`
	GatewayTimeout time.Duration `env:"BILLING_GATEWAY_TIMEOUT" envDefault:"15s"`
}

// CycleStats summarizes one billing cycle run.
type CycleStats struct {
	Processed  int // subscriptions picked up as due
	Charged    int // successful charges
	Failed     int // declined or errored charge attempts
	Delinquent int // subscriptions marked delinquent this cycle
	Errors     int // store errors that prevented processing an item
}

// Runner drives the periodic billing cycle: it charges every due
// subscription, advances billing periods, counts failed attempts and marks
// subscriptions delinquent once the retry budget is spent.
type Runner struct {
	plans   map[string]Plan
	store   Store
	gateway PaymentGateway
	cache   EntitlementCache
	log     *slog.Logger
	now     func() time.Time

	chargeTimeout time.Duration
	schedule      Schedule
}

// RunnerOption configures optional runner collaborators.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the structured logger. Defaults to slog.Default().
func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRunnerClock overrides the time source, used in tests.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunnerCache wires the entitlement cache so status changes made by the
// runner invalidate cached entitlement answers.
func WithRunnerCache(cache EntitlementCache) RunnerOption {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithChargeTimeout bounds each gateway charge call. Defaults to 15 seconds.
func WithChargeTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.chargeTimeout = timeout
		}
	}
}

// WithSchedule sets when Start runs billing cycles.
// Defaults to every 24 hours.
func WithSchedule(schedule Schedule) RunnerOption {
	return func(r *Runner) {
		if schedule != nil {
			r.schedule = schedule
		}
	}
}

// NewRunner creates the billing cycle runner. Plans are loaded once from src
// and cached for the runner's lifetime. Panics if src or store is nil; a
// nil gateway is replaced by the disabled implementation.
func NewRunner(ctx context.Context, src PlanSource, store Store, gateway PaymentGateway, opts ...RunnerOption) (*Runner, error) {
	if src == nil {
		panic("subscription: plan source is required")
	}
	if store == nil {
		panic("subscription: store is required")
	}

	r := &Runner{
		store:         store,
		gateway:       gateway,
		log:           slog.Default(),
		now:           time.Now,
		chargeTimeout: 15 * time.Second,
		schedule:      EveryInterval(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gateway == nil {
		r.gateway = NewDisabledGateway(r.log)
	}

	plans, err := loadPlans(ctx, src)
	if err != nil {
		return nil, err
	}
	r.plans = plans

	return r, nil
}

// Start runs billing cycles on the configured schedule until ctx is
// cancelled. The first cycle runs immediately. Returns ctx.Err() on shutdown.
func (r *Runner) Start(ctx context.Context) error {
	r.log.InfoContext(ctx, "billing runner started",
		logger.Component("billing_runner"),
		slog.String("schedule", r.schedule.String()))

	for {
		stats := r.RunCycle(ctx)
		r.log.InfoContext(ctx, "billing cycle finished",
			logger.Component("billing_runner"),
			slog.Int("processed", stats.Processed),
			slog.Int("charged", stats.Charged),
			slog.Int("failed", stats.Failed),
			slog.Int("delinquent", stats.Delinquent),
			slog.Int("errors", stats.Errors))

		next := r.schedule.Next(r.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.InfoContext(ctx, "billing runner stopped", logger.Component("billing_runner"))
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle executes one billing cycle over every due subscription. Failures
// are isolated per subscription: one bad row or declined charge never stops
// the rest of the batch.
func (r *Runner) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats

	now := r.now().UTC()
	due, err := r.store.ListDueForBilling(ctx, now)
	if err != nil {
		r.log.ErrorContext(ctx, "failed to list subscriptions due for billing",
			logger.Component("billing_runner"), logger.Error(err))
		stats.Errors++
		return stats
	}

	for _, sub := range due {
		stats.Processed++
		if err := r.processDue(ctx, sub, now, &stats); err != nil {
			stats.Errors++
			r.log.ErrorContext(ctx, "failed to process due subscription",
				logger.Component("billing_runner"),
				logger.SubscriptionID(sub.ID),
				logger.Error(err))
		}
	}
	return stats
}

func (r *Runner) processDue(ctx context.Context, sub *Subscription, now time.Time, stats *CycleStats) error {
	// The retry budget may already be exhausted, e.g. when a previous cycle
	// crashed between counting the attempt and flipping the status.
	if sub.AttemptCount >= RetryLimit {
		if err := r.markDelinquent(ctx, sub.ID, now); err != nil {
			return err
		}
		stats.Delinquent++
		r.log.WarnContext(ctx, "retry budget exhausted, subscription marked delinquent",
			logger.SubscriptionID(sub.ID),
			logger.SubscriberID(sub.SubscriberID),
			logger.AttemptCount(sub.AttemptCount))
		r.invalidateEntitlement(ctx, sub.SubscriberID)
		return nil
	}

	res, chargeErr := r.charge(ctx, sub)
	if chargeErr != nil {
		return r.recordFailedAttempt(ctx, sub, now, chargeErr, stats)
	}
	return r.recordSuccessfulCharge(ctx, sub, now, res, stats)
}

func (r *Runner) charge(ctx context.Context, sub *Subscription) (*ChargeResult, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, r.chargeTimeout)
	defer cancel()

	return r.gateway.Charge(chargeCtx, ChargeRequest{
		SubscriptionID:      sub.ID,
		SubscriberID:        sub.SubscriberID,
		PlanID:              sub.PlanID,
		Amount:              sub.Amount,
		Currency:            sub.Currency,
		CustomerReferenceID: sub.CustomerReferenceID,
	})
}

func (r *Runner) recordSuccessfulCharge(ctx context.Context, sub *Subscription, now time.Time, res *ChargeResult, stats *CycleStats) error {
	period := r.periodMonths(sub.PlanID)
	updated, err := r.store.UpdateByID(ctx, sub.ID, func(row *Subscription) error {
		// When the row was cancelled between listing and charging, the
		// charge linkage is still recorded for the audit trail; the
		// terminal status and schedule stay untouched.
		if row.IsActive() {
			row.AttemptCount = 0
			row.NextChargeDate = row.NextChargeDate.AddDate(0, period, 0)
		}
		row.LastAttemptDate = &now
		row.ChargeReferenceID = res.ChargeReferenceID
		if res.CustomerReferenceID != "" {
			row.CustomerReferenceID = res.CustomerReferenceID
		}
		if res.ExternalSubscriptionID != "" {
			row.ExternalSubscriptionID = res.ExternalSubscriptionID
		}
		row.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	stats.Charged++
	r.invalidateEntitlement(ctx, updated.SubscriberID)
	r.log.InfoContext(ctx, "subscription charged",
		logger.SubscriptionID(updated.ID),
		logger.PlanID(updated.PlanID),
		slog.String("amount", updated.Amount.StringFixed(2)),
		slog.Time("next_charge_date", updated.NextChargeDate))
	return nil
}

func (r *Runner) recordFailedAttempt(ctx context.Context, sub *Subscription, now time.Time, chargeErr error, stats *CycleStats) error {
	wentDelinquent := false
	updated, err := r.store.UpdateByID(ctx, sub.ID, func(row *Subscription) error {
		if !row.IsActive() {
			return errors.Join(ErrInvalidState,
				fmt.Errorf("subscription no longer active: %s", row.Status))
		}
		row.AttemptCount++
		row.LastAttemptDate = &now
		if row.AttemptCount >= RetryLimit {
			row.Status = StatusDelinquent
			wentDelinquent = true
		}
		row.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	stats.Failed++
	if wentDelinquent {
		stats.Delinquent++
		r.invalidateEntitlement(ctx, updated.SubscriberID)
		r.log.WarnContext(ctx, "retry budget exhausted, subscription marked delinquent",
			logger.SubscriptionID(updated.ID),
			logger.SubscriberID(updated.SubscriberID),
			logger.AttemptCount(updated.AttemptCount),
			logger.Error(chargeErr))
		return nil
	}

	r.log.WarnContext(ctx, "charge attempt failed",
		logger.SubscriptionID(updated.ID),
		logger.AttemptCount(updated.AttemptCount),
		logger.Error(chargeErr))
	return nil
}

func (r *Runner) markDelinquent(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.store.UpdateByID(ctx, id, func(row *Subscription) error {
		if !row.IsActive() {
			return nil
		}
		row.Status = StatusDelinquent
		row.UpdatedAt = now
		return nil
	})
	return err
}

func (r *Runner) invalidateEntitlement(ctx context.Context, subscriberID uuid.UUID) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, subscriberID)
	}
}

func (r *Runner) periodMonths(planID string) int {
	if plan, ok := r.plans[planID]; ok && plan.PeriodMonths > 0 {
		return plan.PeriodMonths
	}
	return 1
}
