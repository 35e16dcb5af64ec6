package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

func TestMemoryStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate id", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := seedActive(context.Background(), store, time.Now().UTC())

		err := store.Create(context.Background(), sub)
		assert.ErrorIs(t, err, subscription.ErrDuplicateID)
	})

	t.Run("stored row is isolated from the caller's value", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := seedActive(context.Background(), store, time.Now().UTC())

		sub.Status = subscription.StatusCancelled

		stored, err := store.GetByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, stored.Status)
	})
}

func TestMemoryStore_GetByChargeReference(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	sub := seedActive(context.Background(), store, time.Now().UTC())
	_, err := store.UpdateByID(context.Background(), sub.ID, func(row *subscription.Subscription) error {
		row.ChargeReferenceID = "txn_1"
		row.ExternalSubscriptionID = "sub_1"
		return nil
	})
	require.NoError(t, err)

	t.Run("by charge reference", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByChargeReference(context.Background(), "txn_1")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("by external subscription reference", func(t *testing.T) {
		t.Parallel()

		got, err := store.GetByChargeReference(context.Background(), "sub_1")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("empty reference never matches", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetByChargeReference(context.Background(), "")
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}

func TestMemoryStore_ListBySubscriber(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := subscription.NewMemoryStore()

	first := seedActive(context.Background(), store, now.AddDate(-1, 0, 0))
	second := seedActive(context.Background(), store, now)
	_, err := store.UpdateByID(context.Background(), second.ID, func(row *subscription.Subscription) error {
		row.SubscriberID = first.SubscriberID
		return nil
	})
	require.NoError(t, err)

	subs, err := store.ListBySubscriber(context.Background(), first.SubscriberID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].ID, "most recently started first")
	assert.Equal(t, first.ID, subs[1].ID)
}

func TestMemoryStore_ListDueForBilling(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC)
	store := subscription.NewMemoryStore()

	due := seedActive(context.Background(), store, now.AddDate(0, -1, -1))
	notDue := seedActive(context.Background(), store, now.AddDate(0, 0, -5))
	cancelled := seedActive(context.Background(), store, now.AddDate(0, -2, 0))
	_, err := store.UpdateByID(context.Background(), cancelled.ID, func(row *subscription.Subscription) error {
		row.Status = subscription.StatusCancelled
		return nil
	})
	require.NoError(t, err)

	got, err := store.ListDueForBilling(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
	assert.NotEqual(t, notDue.ID, got[0].ID)
}

func TestMemoryStore_UpdateByID(t *testing.T) {
	t.Parallel()

	t.Run("applies the mutation", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := seedActive(context.Background(), store, time.Now().UTC())

		updated, err := store.UpdateByID(context.Background(), sub.ID, func(row *subscription.Subscription) error {
			row.AttemptCount = 2
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.AttemptCount)

		stored, err := store.GetByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.AttemptCount)
	})

	t.Run("failed mutation leaves the row unchanged", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := seedActive(context.Background(), store, time.Now().UTC())

		_, err := store.UpdateByID(context.Background(), sub.ID, func(row *subscription.Subscription) error {
			row.Status = subscription.StatusCancelled
			return errors.New("abort")
		})
		require.Error(t, err)

		stored, err := store.GetByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, stored.Status)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		_, err := store.UpdateByID(context.Background(), uuid.New(), func(row *subscription.Subscription) error {
			return nil
		})
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}
