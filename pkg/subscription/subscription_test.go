package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

func TestSubscription_DueAt(t *testing.T) {
	t.Parallel()

	chargeDate := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub := subscription.Subscription{
		Status:         subscription.StatusActive,
		NextChargeDate: chargeDate,
	}

	assert.False(t, sub.DueAt(chargeDate.Add(-time.Hour)))
	assert.False(t, sub.DueAt(chargeDate), "due only strictly after the charge date")
	assert.True(t, sub.DueAt(chargeDate.Add(time.Hour)))

	sub.Status = subscription.StatusDelinquent
	assert.False(t, sub.DueAt(chargeDate.Add(time.Hour)))
}

func TestSubscription_EntitledAt(t *testing.T) {
	t.Parallel()

	chargeDate := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub := subscription.Subscription{
		Status:         subscription.StatusActive,
		NextChargeDate: chargeDate,
	}

	assert.True(t, sub.EntitledAt(chargeDate.Add(-time.Hour)))
	assert.False(t, sub.EntitledAt(chargeDate.Add(time.Hour)), "lapsed once the charge date passes")

	sub.Status = subscription.StatusCancelled
	assert.False(t, sub.EntitledAt(chargeDate.Add(-time.Hour)))
}

func TestSubscription_Clone(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	refund := decimal.RequireFromString("10.61")
	sub := &subscription.Subscription{
		ID:           uuid.New(),
		Status:       subscription.StatusCancelled,
		EndDate:      &end,
		RefundAmount: &refund,
	}

	clone := sub.Clone()
	require.NotSame(t, sub, clone)
	assert.Equal(t, sub.ID, clone.ID)

	*clone.EndDate = end.AddDate(0, 1, 0)
	*clone.RefundAmount = decimal.Zero
	assert.Equal(t, end, *sub.EndDate, "pointer fields must not be shared")
	assert.Equal(t, "10.61", sub.RefundAmount.StringFixed(2))
}

func TestStatus_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.StatusActive.Valid())
	assert.True(t, subscription.StatusDelinquent.Valid())
	assert.True(t, subscription.StatusCancelled.Valid())
	assert.False(t, subscription.Status("paused").Valid())
	assert.False(t, subscription.Status("").Valid())
}
