package subscription

// Status represents the current state of a subscription.
//
// Valid transitions:
//
//	active -> delinquent   (retry budget exhausted by the billing runner)
//	active -> cancelled    (cancellation engine, terminal)
//	delinquent -> active   (administrative reactivation)
//
// No other transition is valid.
type Status string

const (
	StatusActive     Status = "active"
	StatusDelinquent Status = "delinquent"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known subscription status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDelinquent, StatusCancelled:
		return true
	}
	return false
}

// RefundTier classifies the refund a cancellation entitles the subscriber to.
type RefundTier string

const (
	// RefundTierFull applies within the statutory cooling-off window:
	// the full plan price is refunded regardless of usage.
	RefundTierFull RefundTier = "full_refund"
	// RefundTierProrated applies when paid-for access remains at the
	// cancellation date; the refund covers the unused fraction of the period.
	RefundTierProrated RefundTier = "prorated_refund"
	// RefundTierNone applies when no paid-for access remains.
	RefundTierNone RefundTier = "no_refund"
)

// RefundStatus tracks the gateway-side state of a requested refund.
type RefundStatus string

const (
	// RefundStatusNone means no refund has been submitted to the gateway.
	RefundStatusNone RefundStatus = "none"
	// RefundStatusPending means the refund was accepted by the gateway and
	// awaits settlement.
	RefundStatusPending RefundStatus = "pending"
)
