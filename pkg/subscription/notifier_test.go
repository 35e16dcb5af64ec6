package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

type captureSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *captureSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func TestEmailNotifier_SendCancellationConfirmation(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub := &subscription.Subscription{
		ID:           uuid.New(),
		SubscriberID: uuid.New(),
		PlanID:       "pro",
		Status:       subscription.StatusCancelled,
		Currency:     "EUR",
		EndDate:      &end,
	}

	t.Run("full refund body", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := subscription.NewEmailNotifier(sender, func(ctx context.Context, subscriberID uuid.UUID) (string, error) {
			assert.Equal(t, sub.SubscriberID, subscriberID)
			return "subscriber@example.com", nil
		}, nil)

		err := notifier.SendCancellationConfirmation(context.Background(), sub, "too expensive",
			decimal.RequireFromString("29.90"), true)
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		msg := sender.sent[0]
		assert.Equal(t, "subscriber@example.com", msg.SendTo)
		assert.Equal(t, "Your subscription has been cancelled", msg.Subject)
		assert.Contains(t, msg.BodyHTML, "cooling-off")
		assert.Contains(t, msg.BodyHTML, "29.90 EUR")
		assert.Contains(t, msg.BodyHTML, "too expensive")
		assert.Contains(t, msg.BodyHTML, "April 1, 2026")
	})

	t.Run("prorated refund body", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := subscription.NewEmailNotifier(sender, func(ctx context.Context, subscriberID uuid.UUID) (string, error) {
			return "subscriber@example.com", nil
		}, nil)

		err := notifier.SendCancellationConfirmation(context.Background(), sub, "",
			decimal.RequireFromString("10.61"), false)
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].BodyHTML, "prorated refund of 10.61 EUR")
	})

	t.Run("no refund body", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := subscription.NewEmailNotifier(sender, func(ctx context.Context, subscriberID uuid.UUID) (string, error) {
			return "subscriber@example.com", nil
		}, nil)

		err := notifier.SendCancellationConfirmation(context.Background(), sub, "", decimal.Zero, false)
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].BodyHTML, "No refund is due")
	})

	t.Run("resolver failure", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := subscription.NewEmailNotifier(sender, func(ctx context.Context, subscriberID uuid.UUID) (string, error) {
			return "", errors.New("unknown subscriber")
		}, nil)

		err := notifier.SendCancellationConfirmation(context.Background(), sub, "", decimal.Zero, false)
		assert.Error(t, err)
		assert.Empty(t, sender.sent)
	})

	t.Run("requires collaborators", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { subscription.NewEmailNotifier(nil, nil, nil) })
	})
}

func TestNoopNotifier(t *testing.T) {
	t.Parallel()

	notifier := subscription.NewNoopNotifier(nil)
	err := notifier.SendCancellationConfirmation(context.Background(),
		&subscription.Subscription{ID: uuid.New()}, "reason", decimal.Zero, false)
	assert.NoError(t, err)
}
