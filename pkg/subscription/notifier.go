package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// Notifier dispatches subscriber-facing notifications. Callers treat every
// notification as fire-and-forget: errors are logged and never propagated.
type Notifier interface {
	SendCancellationConfirmation(ctx context.Context, sub *Subscription, reason string, refundAmount decimal.Decimal, withinCoolingOff bool) error
}

// NoopNotifier is the explicit disabled implementation selected by
// configuration when no delivery channel is wired.
type NoopNotifier struct {
	log *slog.Logger
}

// NewNoopNotifier creates a notifier that only logs.
// A nil logger falls back to slog.Default().
func NewNoopNotifier(log *slog.Logger) *NoopNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &NoopNotifier{log: log}
}

func (n *NoopNotifier) SendCancellationConfirmation(ctx context.Context, sub *Subscription, reason string, refundAmount decimal.Decimal, withinCoolingOff bool) error {
	n.log.DebugContext(ctx, "cancellation confirmation suppressed, notifier disabled",
		logger.SubscriptionID(sub.ID),
		slog.String("refund_amount", refundAmount.StringFixed(2)))
	return nil
}

// RecipientResolver maps a subscriber id to their email address. Subscriber
// account data lives outside the billing core, so the address is resolved
// through this callback.
type RecipientResolver func(ctx context.Context, subscriberID uuid.UUID) (string, error)

// EmailNotifier delivers cancellation confirmations through an EmailSender.
type EmailNotifier struct {
	sender  email.EmailSender
	resolve RecipientResolver
	log     *slog.Logger
}

// NewEmailNotifier creates an email-backed notifier. Panics if sender or
// resolver is nil to fail fast during initialization.
func NewEmailNotifier(sender email.EmailSender, resolve RecipientResolver, log *slog.Logger) *EmailNotifier {
	if sender == nil {
		panic("subscription: email sender is required")
	}
	if resolve == nil {
		panic("subscription: recipient resolver is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &EmailNotifier{sender: sender, resolve: resolve, log: log}
}

func (n *EmailNotifier) SendCancellationConfirmation(ctx context.Context, sub *Subscription, reason string, refundAmount decimal.Decimal, withinCoolingOff bool) error {
	recipient, err := n.resolve(ctx, sub.SubscriberID)
	if err != nil {
		return fmt.Errorf("resolve recipient for subscriber %s: %w", sub.SubscriberID, err)
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   recipient,
		Subject:  "Your subscription has been cancelled",
		BodyHTML: cancellationBodyHTML(sub, reason, refundAmount, withinCoolingOff),
		Tag:      "cancellation-confirmation",
	})
}

func cancellationBodyHTML(sub *Subscription, reason string, refundAmount decimal.Decimal, withinCoolingOff bool) string {
	body := fmt.Sprintf("<p>Your %s subscription has been cancelled.</p>", sub.PlanID)
	if reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	if sub.EndDate != nil {
		body += fmt.Sprintf("<p>Your access remains available until %s.</p>", sub.EndDate.Format("January 2, 2006"))
	}
	switch {
	case withinCoolingOff:
		body += fmt.Sprintf("<p>As you cancelled within the cooling-off period, the full amount of %s %s will be refunded.</p>",
			refundAmount.StringFixed(2), sub.Currency)
	case refundAmount.IsPositive():
		body += fmt.Sprintf("<p>A prorated refund of %s %s will be processed for the unused part of your billing period.</p>",
			refundAmount.StringFixed(2), sub.Currency)
	default:
		body += "<p>No refund is due for this cancellation.</p>"
	}
	return body
}
