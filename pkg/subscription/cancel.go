package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// CancelParams describes a cancellation request.
type CancelParams struct {
	SubscriptionID uuid.UUID
	// Reason is free-form text recorded in the audit trail and passed to
	// the gateway with any refund.
	Reason string
	// RequestRefund asks for a refund where one is due. Without it the
	// subscription is cancelled and no gateway call is made.
	RequestRefund bool
	// EffectiveDate backdates or postpones the cancellation. Nil means now.
	EffectiveDate *time.Time
	// CancelledBy identifies the actor, e.g. "subscriber" or an operator id.
	CancelledBy string
}

// CancellationResult reports everything the cancellation decided and did.
type CancellationResult struct {
	SubscriptionID   uuid.UUID
	Status           Status
	Reason           string
	CancelDate       time.Time
	EndDate          time.Time
	RefundRequested  bool
	RefundTier       RefundTier
	RefundAmount     decimal.Decimal
	WithinCoolingOff bool
	// RefundReferenceID is empty when no refund was submitted or the
	// gateway call failed; the cancellation itself still stands.
	RefundReferenceID string
	Summary           string
	CompletedAt       time.Time
}

// Cancel terminates an active subscription and settles any refund due.
//
// The cancellation write always precedes the gateway refund call and
// survives its failure: a subscriber must never stay subscribed because
// the payment provider was down. Refund tiers:
//
//   - within the cooling-off period after the start date: full refund
//   - after cooling-off with unused paid days remaining: prorated refund
//   - otherwise: no refund
//
// The prorated amount is the plan price scaled by unused whole days over
// the total days of the current billing period.
func (s *service) Cancel(ctx context.Context, params CancelParams) (*CancellationResult, error) {
	now := s.now().UTC()
	cancelDate := now
	if params.EffectiveDate != nil {
		cancelDate = params.EffectiveDate.UTC()
	}

	// Everything derived from the row is computed inside the locked update
	// so a billing cycle renewing the period just before the cancellation
	// cannot leave a stale period end or refund behind.
	var (
		withinCoolingOff bool
		endDate          time.Time
		tier             RefundTier
		refundAmount     decimal.Decimal
	)
	sub, err := s.store.UpdateByID(ctx, params.SubscriptionID, func(row *Subscription) error {
		if !row.IsActive() {
			return errors.Join(ErrInvalidState,
				fmt.Errorf("cannot cancel subscription in status %s", row.Status))
		}

		withinCoolingOff = cancelDate.Sub(row.StartDate) <= s.coolingOffPeriod

		// Paid-for access runs to the next charge date. If the cancellation
		// is effective on or after it the current period was already
		// renewed, so access runs one more period.
		endDate = row.NextChargeDate
		if !cancelDate.Before(endDate) {
			endDate = endDate.AddDate(0, s.periodMonths(row.PlanID), 0)
		}

		tier, refundAmount = s.refundFor(row, cancelDate, endDate, withinCoolingOff)

		row.Status = StatusCancelled
		row.EndDate = &endDate
		row.CancellationReason = params.Reason
		row.CancelledAt = &cancelDate
		row.CancelledBy = params.CancelledBy
		row.AttemptCount = 0
		row.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEntitlement(ctx, sub.SubscriberID)

	s.log.InfoContext(ctx, "subscription cancelled",
		logger.SubscriptionID(sub.ID),
		logger.SubscriberID(sub.SubscriberID),
		slog.String("refund_tier", string(tier)),
		slog.String("refund_amount", refundAmount.StringFixed(2)),
		slog.Bool("within_cooling_off", withinCoolingOff),
		slog.Time("end_date", endDate))

	result := &CancellationResult{
		SubscriptionID:   sub.ID,
		Status:           sub.Status,
		Reason:           params.Reason,
		CancelDate:       cancelDate,
		EndDate:          endDate,
		RefundRequested:  params.RequestRefund,
		RefundTier:       tier,
		RefundAmount:     refundAmount,
		WithinCoolingOff: withinCoolingOff,
	}

	refundFailed := false
	if params.RequestRefund && refundAmount.IsPositive() {
		refID, err := s.submitRefund(ctx, sub, refundAmount, params.Reason)
		if err != nil {
			// The subscription is already cancelled; the refund is retried
			// out of band by support using the audit trail.
			refundFailed = true
			s.log.ErrorContext(ctx, "refund submission failed after cancellation",
				logger.SubscriptionID(sub.ID),
				slog.String("refund_amount", refundAmount.StringFixed(2)),
				logger.Error(err))
		} else {
			result.RefundReferenceID = refID
		}
	}

	if err := s.notifier.SendCancellationConfirmation(ctx, sub, params.Reason, refundAmount, withinCoolingOff); err != nil {
		s.log.WarnContext(ctx, "cancellation confirmation delivery failed",
			logger.SubscriptionID(sub.ID),
			logger.Error(err))
	}

	result.Summary = cancellationSummary(result, refundFailed)
	result.CompletedAt = s.now().UTC()
	return result, nil
}

// refundFor decides the refund tier and amount for a cancellation.
func (s *service) refundFor(sub *Subscription, cancelDate, endDate time.Time, withinCoolingOff bool) (RefundTier, decimal.Decimal) {
	if withinCoolingOff {
		return RefundTierFull, sub.Amount
	}

	unusedDays := daysBetween(cancelDate, endDate)
	if unusedDays <= 0 {
		return RefundTierNone, decimal.Zero
	}

	totalDays := daysBetween(sub.StartDate, sub.NextChargeDate)
	if totalDays <= 0 {
		return RefundTierNone, decimal.Zero
	}

	amount := sub.Amount.
		Mul(decimal.NewFromInt(int64(unusedDays))).
		Div(decimal.NewFromInt(int64(totalDays))).
		Round(2)
	if amount.GreaterThan(sub.Amount) {
		amount = sub.Amount
	}
	if !amount.IsPositive() {
		return RefundTierNone, decimal.Zero
	}
	return RefundTierProrated, amount
}

// submitRefund calls the gateway and records the accepted refund on the row.
func (s *service) submitRefund(ctx context.Context, sub *Subscription, amount decimal.Decimal, reason string) (string, error) {
	if sub.ChargeReferenceID == "" {
		s.log.WarnContext(ctx, "refund due but no charge reference on record, skipping gateway call",
			logger.SubscriptionID(sub.ID),
			slog.String("refund_amount", amount.StringFixed(2)))
		return "", errors.New("no charge reference on record")
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.refundTimeout)
	defer cancel()

	res, err := s.gateway.Refund(refundCtx, RefundRequest{
		ChargeReferenceID: sub.ChargeReferenceID,
		Amount:            amount,
		Currency:          sub.Currency,
		Reason:            reason,
	})
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	if _, err := s.store.UpdateByID(ctx, sub.ID, func(row *Subscription) error {
		row.RefundReferenceID = res.RefundReferenceID
		row.RefundStatus = res.Status
		row.RefundAmount = &amount
		row.RefundReason = reason
		row.RefundProcessedAt = &now
		row.UpdatedAt = now
		return nil
	}); err != nil {
		// The gateway accepted the refund; losing the reference is an audit
		// gap, not a subscriber problem.
		s.log.ErrorContext(ctx, "failed to record accepted refund",
			logger.SubscriptionID(sub.ID),
			slog.String("refund_reference_id", res.RefundReferenceID),
			logger.Error(err))
	}

	s.log.InfoContext(ctx, "refund submitted",
		logger.SubscriptionID(sub.ID),
		slog.String("refund_reference_id", res.RefundReferenceID),
		slog.String("refund_amount", amount.StringFixed(2)))

	return res.RefundReferenceID, nil
}

func cancellationSummary(r *CancellationResult, refundFailed bool) string {
	summary := fmt.Sprintf("Subscription cancelled effective %s; access ends %s.",
		r.CancelDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))

	switch {
	case !r.RefundRequested && r.RefundAmount.IsPositive():
		summary += fmt.Sprintf(" A refund of %s was due but not requested.", r.RefundAmount.StringFixed(2))
	case refundFailed:
		summary += fmt.Sprintf(" A refund of %s is due but could not be processed; it will be retried by support.",
			r.RefundAmount.StringFixed(2))
	case r.RefundReferenceID != "":
		if r.WithinCoolingOff {
			summary += fmt.Sprintf(" Full refund of %s submitted (cancelled within the cooling-off period).",
				r.RefundAmount.StringFixed(2))
		} else {
			summary += fmt.Sprintf(" Prorated refund of %s submitted for the unused part of the billing period.",
				r.RefundAmount.StringFixed(2))
		}
	default:
		summary += " No refund is due."
	}
	return summary
}
