package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

const defaultCurrency = "USD"

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			booking_id,
			gateway_reference,
			amount,
			currency,
			status
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.GatewayReference,
		payment.Amount,
		currencyOrDefault(payment.Currency),
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)

	return classifyError(err)
}

// Upsert stores a payment keyed by its gateway reference, so a redelivered
// gateway notification updates the existing row.
func (p *PostgresPaymentRepository) Upsert(ctx context.Context, payment *domain.Payment) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		return upsertPayment(ctx, tx, payment)
	})
}

func upsertPayment(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (booking_id, gateway_reference, payment_intent, amount, currency, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (gateway_reference) DO UPDATE
			SET status = EXCLUDED.status,
				payment_intent = COALESCE(EXCLUDED.payment_intent, payments.payment_intent),
				error_message = EXCLUDED.error_message,
				updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	return tx.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.GatewayReference,
		payment.PaymentIntent,
		payment.Amount,
		currencyOrDefault(payment.Currency),
		payment.Status,
		payment.ErrorMsg,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return defaultCurrency
	}

	return currency
}
