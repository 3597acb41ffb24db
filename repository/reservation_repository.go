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

const reservationColumns = `id, raffle_id, user_id, numbers, total_amount, status, created_at, expires_at, updated_at`

// ReservationRepository implements reservation data access
type ReservationRepository struct {
	q Queryable
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(q Queryable) *ReservationRepository {
	return &ReservationRepository{q: q}
}

func scanReservation(row pgx.Row) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.RaffleID,
		&reservation.UserID,
		&reservation.Numbers,
		&reservation.TotalAmount,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Create inserts a reservation
func (r *ReservationRepository) Create(ctx context.Context, reservation *entities.Reservation) error {
	query := `
		INSERT INTO reservations (id, raffle_id, user_id, numbers, total_amount, status, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7)
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		reservation.ID,
		reservation.RaffleID,
		reservation.UserID,
		reservation.Numbers,
		reservation.TotalAmount,
		reservation.Status,
		reservation.CreatedAt,
		reservation.ExpiresAt,
	).Scan(&reservation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a reservation by its ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	reservation, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %s: %w", id, err)
	}

	return reservation, nil
}

// GetByIDForUpdate retrieves a reservation by ID with row lock for update
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	reservation, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %s for update: %w", id, translateError(err))
	}

	return reservation, nil
}

// UpdateStatus transitions a reservation
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.ReservationStatus, now time.Time) error {
	query := `UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status, now)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s to %s: %w", id, status, translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id)
	}

	return nil
}

// ExpireStale marks pending reservations past their expiry as expired. Rows locked by
// a concurrent confirmation or sweep are skipped, so each reservation transitions once.
func (r *ReservationRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entities.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = 'expired',
		    updated_at = $1
		WHERE id IN (
			SELECT id
			FROM reservations
			WHERE status = 'pending'
			  AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		  AND status = 'pending'
		RETURNING ` + reservationColumns

	reservations, err := r.queryReservations(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale reservations: %w", translateError(err))
	}

	return reservations, nil
}

// CancelPendingByRaffle cancels every pending reservation of a raffle
func (r *ReservationRepository) CancelPendingByRaffle(ctx context.Context, raffleID int64, now time.Time) ([]*entities.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = 'cancelled',
		    updated_at = $2
		WHERE raffle_id = $1
		  AND status = 'pending'
		RETURNING ` + reservationColumns

	reservations, err := r.queryReservations(ctx, query, raffleID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel pending reservations for raffle %d: %w", raffleID, translateError(err))
	}

	return reservations, nil
}

// ListByUser returns a user's reservations, newest first
func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	reservations, err := r.queryReservations(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for user %d: %w", userID, err)
	}

	return reservations, nil
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]*entities.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*entities.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}

	return reservations, rows.Err()
}
