package testutil

import (
	"context"
	"testing"
	"time"

	"rifei/database"
	"rifei/domain/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestRaffle creates an active raffle with sensible defaults
func CreateTestRaffle(creatorID int64, totalNumbers int64) *entities.Raffle {
	return &entities.Raffle{
		CreatorID:    creatorID,
		Title:        "Test raffle",
		Description:  "A raffle for tests",
		Price:        decimal.RequireFromString("10.00"),
		TotalNumbers: totalNumbers,
		Status:       entities.RaffleStatusActive,
		EndDate:      time.Now().UTC().Add(24 * time.Hour),
	}
}

// CreateTestReservation creates a pending reservation for numbers in raffle
func CreateTestReservation(raffle *entities.Raffle, userID int64, numbers []int64, now time.Time, ttl time.Duration) *entities.Reservation {
	return &entities.Reservation{
		ID:          uuid.New(),
		RaffleID:    raffle.ID,
		UserID:      userID,
		Numbers:     numbers,
		TotalAmount: raffle.PriceFor(len(numbers)),
		Status:      entities.ReservationStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// CreateTestPayment creates a pending payment for a reservation
func CreateTestPayment(reservation *entities.Reservation, now time.Time) *entities.Payment {
	fee, net := entities.CalculateFee(reservation.TotalAmount, decimal.RequireFromString("0.05"))
	return &entities.Payment{
		ReservationID: reservation.ID,
		RaffleID:      reservation.RaffleID,
		UserID:        reservation.UserID,
		Amount:        reservation.TotalAmount,
		Fee:           fee,
		NetAmount:     net,
		Status:        entities.PaymentStatusPending,
		ExpiresAt:     now.Add(30 * time.Minute),
		CreatedAt:     now,
	}
}

// InsertActiveRaffle stores an active raffle directly through the pool
func InsertActiveRaffle(t *testing.T, db *database.DB, totalNumbers int64) *entities.Raffle {
	t.Helper()

	raffle := CreateTestRaffle(1, totalNumbers)
	err := db.QueryRow(context.Background(), `
		INSERT INTO raffles (creator_id, title, description, price, total_numbers, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW(), $6)
		RETURNING id, created_at, updated_at`,
		raffle.CreatorID, raffle.Title, raffle.Description, raffle.Price, raffle.TotalNumbers, raffle.EndDate,
	).Scan(&raffle.ID, &raffle.CreatedAt, &raffle.UpdatedAt)
	require.NoError(t, err)

	return raffle
}
