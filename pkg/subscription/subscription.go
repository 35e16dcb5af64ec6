package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription represents a subscriber's recurring paid subscription.
// Amount is fixed from the plan price table at creation time and never
// changes afterwards; refunds are computed from it, not from gateway state.
type Subscription struct {
	ID           uuid.UUID
	SubscriberID uuid.UUID
	PlanID       string
	Status       Status
	Amount       decimal.Decimal
	Currency     string

	StartDate      time.Time
	NextChargeDate time.Time
	EndDate        *time.Time // set only on cancellation or lapse

	AttemptCount    int
	LastAttemptDate *time.Time

	// Gateway linkage, empty until the first successful charge.
	ChargeReferenceID      string
	CustomerReferenceID    string
	ExternalSubscriptionID string

	// Refund and cancellation audit trail, populated only on cancellation.
	RefundReferenceID  string
	RefundStatus       RefundStatus
	RefundAmount       *decimal.Decimal
	RefundReason       string
	RefundProcessedAt  *time.Time
	CancellationReason string
	CancelledAt        *time.Time
	CancelledBy        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsDelinquent() bool {
	return s.Status == StatusDelinquent
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// DueAt reports whether the subscription is due for billing at the given time.
func (s *Subscription) DueAt(asOf time.Time) bool {
	return s.Status == StatusActive && s.NextChargeDate.Before(asOf)
}

// EntitledAt reports whether the subscription grants access at the given
// time: it must be active with its next charge date still in the future.
func (s *Subscription) EntitledAt(now time.Time) bool {
	return s.Status == StatusActive && s.NextChargeDate.After(now)
}

// Clone returns a deep copy so stores can hand out values without sharing
// mutable pointer fields with callers.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	clone := *s
	clone.EndDate = cloneTime(s.EndDate)
	clone.LastAttemptDate = cloneTime(s.LastAttemptDate)
	clone.RefundProcessedAt = cloneTime(s.RefundProcessedAt)
	clone.CancelledAt = cloneTime(s.CancelledAt)
	if s.RefundAmount != nil {
		amount := *s.RefundAmount
		clone.RefundAmount = &amount
	}
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// daysBetween returns the number of whole calendar days from a to b,
// truncating both to day precision in UTC. Negative when b precedes a.
func daysBetween(a, b time.Time) int {
	a = truncateToDay(a)
	b = truncateToDay(b)
	return int(b.Sub(a).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
