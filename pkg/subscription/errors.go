package subscription

import "errors"

var (
	// ErrNotFound is returned when a referenced subscription does not exist.
	ErrNotFound = errors.New("subscription not found")

	// ErrInvalidState is returned when an operation is attempted on a
	// subscription whose status forbids it, e.g. cancelling a subscription
	// that is not active.
	ErrInvalidState = errors.New("invalid subscription state")

	// ErrGatewayFailure wraps charge or refund calls that failed or timed out.
	ErrGatewayFailure = errors.New("payment gateway failure")

	// ErrGatewayDisabled is returned by the disabled gateway implementation.
	ErrGatewayDisabled = errors.New("payment gateway is disabled")

	// ErrPersistenceFailure wraps store errors other than "not found".
	ErrPersistenceFailure = errors.New("subscription store failure")

	ErrFailedToLoadPlans        = errors.New("failed to load subscription plans")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")

	// ErrDuplicateID is returned when creating a subscription whose id
	// already exists in the store.
	ErrDuplicateID = errors.New("subscription id already exists")
)
