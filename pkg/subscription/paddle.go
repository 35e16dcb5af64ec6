package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle payment gateway.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleGateway implements PaymentGateway on top of Paddle Billing.
// Plan codes are Paddle price identifiers, so charges map directly to
// catalog items.
type PaddleGateway struct {
	client *paddle.SDK
}

// NewPaddleGateway creates a Paddle-backed payment gateway.
func NewPaddleGateway(config PaddleConfig) (*PaddleGateway, error) {
	if config.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleGateway{client: client}, nil
}

// Charge creates a Paddle transaction for the subscription's plan price.
// The subscription and subscriber ids travel in custom data so webhook
// events can be correlated back to our rows.
func (g *PaddleGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.PlanID == "" {
		return nil, errors.Join(ErrGatewayFailure, errors.New("plan id is required"))
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PlanID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"subscription_id": req.SubscriptionID.String(),
			"subscriber_id":   req.SubscriberID.String(),
		},
	}
	if req.CustomerReferenceID != "" {
		transactionReq.CustomerID = paddle.PtrTo(req.CustomerReferenceID)
	}

	transaction, err := g.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrGatewayFailure,
			fmt.Errorf("failed to create paddle transaction: %w", err))
	}

	result := &ChargeResult{
		ChargeReferenceID:   transaction.ID,
		CustomerReferenceID: req.CustomerReferenceID,
	}
	if transaction.CustomerID != nil {
		result.CustomerReferenceID = *transaction.CustomerID
	}
	if transaction.SubscriptionID != nil {
		result.ExternalSubscriptionID = *transaction.SubscriptionID
	}
	return result, nil
}

// Refund submits a refund adjustment against the original transaction.
// Paddle computes partial amounts from adjustment items, so refunds here
// always target the full transaction; the decided amount is recorded on our
// side for the audit trail.
func (g *PaddleGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.ChargeReferenceID == "" {
		return nil, errors.Join(ErrGatewayFailure, errors.New("charge reference id is required"))
	}

	adjustment, err := g.client.AdjustmentsClient.CreateAdjustment(ctx, &paddle.CreateAdjustmentRequest{
		Action:        paddle.AdjustmentActionRefund,
		TransactionID: req.ChargeReferenceID,
		Reason:        req.Reason,
		Type:          paddle.PtrTo(paddle.AdjustmentTypeFull),
	})
	if err != nil {
		return nil, errors.Join(ErrGatewayFailure,
			fmt.Errorf("failed to create paddle refund adjustment: %w", err))
	}

	return &RefundResult{
		RefundReferenceID: adjustment.ID,
		Status:            RefundStatusPending,
	}, nil
}
