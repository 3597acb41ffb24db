package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus represents the state of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// MaxNumbersPerReservation is the hard cap on numbers held by one reservation
const MaxNumbersPerReservation = 100

// Reservation is a time-boxed hold on numbers during checkout
type Reservation struct {
	ID          uuid.UUID         `db:"id"`
	RaffleID    int64             `db:"raffle_id"`
	UserID      int64             `db:"user_id"`
	Numbers     []int64           `db:"numbers"`
	TotalAmount decimal.Decimal   `db:"total_amount"`
	Status      ReservationStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// IsPending returns true if the reservation still holds its numbers
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationStatusPending
}

// IsExpiredAt returns true if the hold has lapsed at now, whatever its recorded status
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return r.Status == ReservationStatusExpired ||
		(r.Status == ReservationStatusPending && !now.Before(r.ExpiresAt))
}

// IsActiveAt returns true if the reservation is pending and unexpired at now
func (r *Reservation) IsActiveAt(now time.Time) bool {
	return r.Status == ReservationStatusPending && now.Before(r.ExpiresAt)
}

// NumberCount returns how many numbers the reservation holds
func (r *Reservation) NumberCount() int {
	return len(r.Numbers)
}
