package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines durable persistence for subscriptions.
//
// Implementations must provide per-row read-modify-write atomicity through
// UpdateByID so a cancellation racing a billing attempt cannot silently lose
// an update; writers always recompute from a freshly read row.
type Store interface {
	// Create persists a new subscription.
	// Returns ErrDuplicateID when the id already exists.
	Create(ctx context.Context, sub *Subscription) error

	// GetByID retrieves a subscription by id.
	// Returns ErrNotFound if no subscription exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// GetByChargeReference retrieves the subscription linked to a
	// gateway-assigned charge or external subscription reference.
	// Returns ErrNotFound if no subscription matches.
	GetByChargeReference(ctx context.Context, ref string) (*Subscription, error)

	// ListBySubscriber returns all subscriptions of one subscriber,
	// most recently started first.
	ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*Subscription, error)

	// ListDueForBilling returns all active subscriptions whose next charge
	// date lies strictly before asOf, regardless of attempt count.
	ListDueForBilling(ctx context.Context, asOf time.Time) ([]*Subscription, error)

	// UpdateByID applies fn to a freshly read row and persists the result
	// atomically. If fn returns an error the row is left unchanged and the
	// error is returned as-is. Returns the updated subscription.
	UpdateByID(ctx context.Context, id uuid.UUID, fn func(*Subscription) error) (*Subscription, error)
}
