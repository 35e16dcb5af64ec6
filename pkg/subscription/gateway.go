package subscription

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// PaymentGateway defines the minimal interface to the external payment
// provider. The billing core only needs two operations: charge a subscriber
// for a plan and refund a prior charge by its gateway reference.
//
// Any error from Charge, including a timeout, is treated by the billing
// runner as a declined charge; any error from Refund is absorbed by the
// cancellation engine after logging.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// ChargeRequest describes a single billing-cycle charge.
type ChargeRequest struct {
	SubscriptionID uuid.UUID
	SubscriberID   uuid.UUID
	PlanID         string
	Amount         decimal.Decimal
	Currency       string
	// CustomerReferenceID carries the gateway's customer id once known,
	// letting providers charge a stored payment method.
	CustomerReferenceID string
}

// ChargeResult carries the gateway-assigned references for a successful charge.
type ChargeResult struct {
	ChargeReferenceID      string
	CustomerReferenceID    string
	ExternalSubscriptionID string
}

// RefundRequest describes a refund of a prior charge.
type RefundRequest struct {
	ChargeReferenceID string
	Amount            decimal.Decimal
	Currency          string
	Reason            string
}

// RefundResult carries the gateway-assigned reference for an accepted refund.
type RefundResult struct {
	RefundReferenceID string
	Status            RefundStatus
}

// DisabledGateway is the explicit no-op gateway selected by configuration
// when no payment provider is wired, e.g. in development. Every call logs
// and fails with ErrGatewayDisabled, which the callers translate into their
// normal failure paths.
type DisabledGateway struct {
	log *slog.Logger
}

// NewDisabledGateway creates a gateway that rejects all operations.
// A nil logger falls back to slog.Default().
func NewDisabledGateway(log *slog.Logger) *DisabledGateway {
	if log == nil {
		log = slog.Default()
	}
	return &DisabledGateway{log: log}
}

func (g *DisabledGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	g.log.WarnContext(ctx, "charge requested on disabled gateway",
		logger.SubscriptionID(req.SubscriptionID),
		logger.PlanID(req.PlanID))
	return nil, ErrGatewayDisabled
}

func (g *DisabledGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	g.log.WarnContext(ctx, "refund requested on disabled gateway",
		slog.String("charge_reference_id", req.ChargeReferenceID),
		slog.String("amount", req.Amount.StringFixed(2)))
	return nil, ErrGatewayDisabled
}
