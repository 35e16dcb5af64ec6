package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/billingkit/pkg/pg"
)

// pgStore implements Store on PostgreSQL. Per-row atomicity for UpdateByID
// comes from SELECT ... FOR UPDATE inside a transaction, so a cancellation
// racing a billing attempt serializes on the row lock.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL-backed subscription store.
// Panics if pool is nil.
func NewPgStore(pool *pgxpool.Pool) Store {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &pgStore{pool: pool}
}

const subscriptionColumns = `id, subscriber_id, plan_id, status, amount, currency,
	start_date, next_charge_date, end_date, attempt_count, last_attempt_date,
	charge_reference_id, customer_reference_id, external_subscription_id,
	refund_reference_id, refund_status, refund_amount, refund_reason, refund_processed_at,
	cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at`

func (s *pgStore) Create(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		sub.ID, sub.SubscriberID, sub.PlanID, string(sub.Status), sub.Amount, sub.Currency,
		sub.StartDate, sub.NextChargeDate, sub.EndDate, sub.AttemptCount, sub.LastAttemptDate,
		sub.ChargeReferenceID, sub.CustomerReferenceID, sub.ExternalSubscriptionID,
		sub.RefundReferenceID, string(sub.RefundStatus), refundAmountParam(sub), sub.RefundReason, sub.RefundProcessedAt,
		sub.CancellationReason, sub.CancelledAt, sub.CancelledBy, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return errors.Join(ErrPersistenceFailure, err)
	}
	return nil
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1`, id)
	return scanSubscription(row)
}

func (s *pgStore) GetByChargeReference(ctx context.Context, ref string) (*Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE charge_reference_id = $1 OR external_subscription_id = $1`, ref)
	return scanSubscription(row)
}

func (s *pgStore) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_id = $1
		ORDER BY start_date DESC`, subscriberID)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *pgStore) ListDueForBilling(ctx context.Context, asOf time.Time) ([]*Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = $1 AND next_charge_date < $2
		ORDER BY next_charge_date ASC`, string(StatusActive), asOf)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *pgStore) UpdateByID(ctx context.Context, id uuid.UUID, fn func(*Subscription) error) (*Subscription, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	row := tx.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1
		FOR UPDATE`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, err
	}

	if err := fn(sub); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE subscriptions SET
			status = $2, amount = $3, currency = $4,
			start_date = $5, next_charge_date = $6, end_date = $7,
			attempt_count = $8, last_attempt_date = $9,
			charge_reference_id = $10, customer_reference_id = $11, external_subscription_id = $12,
			refund_reference_id = $13, refund_status = $14, refund_amount = $15,
			refund_reason = $16, refund_processed_at = $17,
			cancellation_reason = $18, cancelled_at = $19, cancelled_by = $20,
			updated_at = $21
		WHERE id = $1`,
		sub.ID, string(sub.Status), sub.Amount, sub.Currency,
		sub.StartDate, sub.NextChargeDate, sub.EndDate,
		sub.AttemptCount, sub.LastAttemptDate,
		sub.ChargeReferenceID, sub.CustomerReferenceID, sub.ExternalSubscriptionID,
		sub.RefundReferenceID, string(sub.RefundStatus), refundAmountParam(sub),
		sub.RefundReason, sub.RefundProcessedAt,
		sub.CancellationReason, sub.CancelledAt, sub.CancelledBy,
		sub.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	return sub, nil
}

func refundAmountParam(sub *Subscription) decimal.NullDecimal {
	if sub.RefundAmount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *sub.RefundAmount, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var (
		sub          Subscription
		status       string
		refundStatus string
		refundAmount decimal.NullDecimal
	)
	err := row.Scan(
		&sub.ID, &sub.SubscriberID, &sub.PlanID, &status, &sub.Amount, &sub.Currency,
		&sub.StartDate, &sub.NextChargeDate, &sub.EndDate, &sub.AttemptCount, &sub.LastAttemptDate,
		&sub.ChargeReferenceID, &sub.CustomerReferenceID, &sub.ExternalSubscriptionID,
		&sub.RefundReferenceID, &refundStatus, &refundAmount, &sub.RefundReason, &sub.RefundProcessedAt,
		&sub.CancellationReason, &sub.CancelledAt, &sub.CancelledBy, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	sub.Status = Status(status)
	sub.RefundStatus = RefundStatus(refundStatus)
	if refundAmount.Valid {
		amount := refundAmount.Decimal
		sub.RefundAmount = &amount
	}
	return &sub, nil
}

func scanSubscriptions(rows pgx.Rows) ([]*Subscription, error) {
	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrPersistenceFailure, err)
	}
	return subs, nil
}
