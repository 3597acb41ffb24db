package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rifei/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, reservation_id, raffle_id, user_id, amount, fee, net_amount, status,
		       status_detail, method, external_payment_id, preference_id, checkout_url,
		       pix_qr_code, pix_qr_code_base64, pix_ticket_url, paid_at, refunded_at,
		       expires_at, created_at, updated_at`

// PaymentRepository implements payment data access
type PaymentRepository struct {
	q Queryable
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(q Queryable) *PaymentRepository {
	return &PaymentRepository{q: q}
}

func scanPayment(row pgx.Row) (*entities.Payment, error) {
	var payment entities.Payment
	err := row.Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.RaffleID,
		&payment.UserID,
		&payment.Amount,
		&payment.Fee,
		&payment.NetAmount,
		&payment.Status,
		&payment.StatusDetail,
		&payment.Method,
		&payment.ExternalPaymentID,
		&payment.PreferenceID,
		&payment.CheckoutURL,
		&payment.PixQRCode,
		&payment.PixQRCodeBase64,
		&payment.PixTicketURL,
		&payment.PaidAt,
		&payment.RefundedAt,
		&payment.ExpiresAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a payment and sets its ID and timestamps
func (r *PaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	query := `
		INSERT INTO payments (reservation_id, raffle_id, user_id, amount, fee, net_amount,
		                      status, status_detail, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		payment.ReservationID,
		payment.RaffleID,
		payment.UserID,
		payment.Amount,
		payment.Fee,
		payment.NetAmount,
		payment.Status,
		payment.StatusDetail,
		payment.ExpiresAt,
		payment.CreatedAt,
	).Scan(&payment.ID, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*entities.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by ID %d: %w", id, err)
	}

	return payment, nil
}

// GetByIDForUpdate retrieves a payment by ID with row lock for update
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment for update by ID %d: %w", id, translateError(err))
	}

	return payment, nil
}

// GetPendingByReservation returns the pending payment of a reservation
func (r *PaymentRepository) GetPendingByReservation(ctx context.Context, reservationID uuid.UUID) (*entities.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 AND status = 'pending'`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, reservationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending payment for reservation %s: %w", reservationID, err)
	}

	return payment, nil
}

// Update persists mutable payment fields
func (r *PaymentRepository) Update(ctx context.Context, payment *entities.Payment) error {
	query := `
		UPDATE payments
		SET status = $2,
		    status_detail = $3,
		    method = $4,
		    external_payment_id = $5,
		    preference_id = $6,
		    checkout_url = $7,
		    pix_qr_code = $8,
		    pix_qr_code_base64 = $9,
		    pix_ticket_url = $10,
		    paid_at = $11,
		    refunded_at = $12,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		payment.ID,
		payment.Status,
		payment.StatusDetail,
		payment.Method,
		payment.ExternalPaymentID,
		payment.PreferenceID,
		payment.CheckoutURL,
		payment.PixQRCode,
		payment.PixQRCodeBase64,
		payment.PixTicketURL,
		payment.PaidAt,
		payment.RefundedAt,
	).Scan(&payment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("payment %d not found", payment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment %d: %w", payment.ID, translateError(err))
	}

	return nil
}

// ExpirePending cancels pending payments past their expiry and returns them
func (r *PaymentRepository) ExpirePending(ctx context.Context, now time.Time, limit int) ([]*entities.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'cancelled',
		    status_detail = 'expired',
		    updated_at = $1
		WHERE id IN (
			SELECT id
			FROM payments
			WHERE status = 'pending'
			  AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		  AND status = 'pending'
		RETURNING ` + paymentColumns

	payments, err := r.queryPayments(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire pending payments: %w", translateError(err))
	}

	return payments, nil
}

// List returns payments matching filter, newest first
func (r *PaymentRepository) List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1::bigint IS NULL OR raffle_id = $1)
		  AND ($2::bigint IS NULL OR user_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	payments, err := r.queryPayments(ctx, query, filter.RaffleID, filter.UserID, filter.Status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]*entities.Payment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*entities.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}
