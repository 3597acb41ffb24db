package services

import (
	"time"

	"rifei/domain/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// Helper to create an active raffle with common defaults
func createTestRaffle(id int64, opts ...func(*entities.Raffle)) *entities.Raffle {
	start := testNow.Add(-time.Hour)
	raffle := &entities.Raffle{
		ID:           id,
		CreatorID:    1,
		Title:        "Bike raffle",
		Price:        decimal.RequireFromString("10.00"),
		TotalNumbers: 100,
		Status:       entities.RaffleStatusActive,
		StartDate:    &start,
		EndDate:      testNow.Add(24 * time.Hour),
		CreatedAt:    testNow.Add(-2 * time.Hour),
	}
	for _, opt := range opts {
		opt(raffle)
	}
	return raffle
}

// Helper to create a pending reservation
func createTestReservation(raffleID, userID int64, numbers []int64, opts ...func(*entities.Reservation)) *entities.Reservation {
	reservation := &entities.Reservation{
		ID:          uuid.New(),
		RaffleID:    raffleID,
		UserID:      userID,
		Numbers:     numbers,
		TotalAmount: decimal.NewFromInt(int64(10 * len(numbers))),
		Status:      entities.ReservationStatusPending,
		CreatedAt:   testNow.Add(-time.Minute),
		ExpiresAt:   testNow.Add(14 * time.Minute),
	}
	for _, opt := range opts {
		opt(reservation)
	}
	return reservation
}

// Helper to create a pending payment for a reservation
func createTestPayment(id int64, reservation *entities.Reservation, opts ...func(*entities.Payment)) *entities.Payment {
	fee, net := entities.CalculateFee(reservation.TotalAmount, decimal.RequireFromString("0.05"))
	payment := &entities.Payment{
		ID:            id,
		ReservationID: reservation.ID,
		RaffleID:      reservation.RaffleID,
		UserID:        reservation.UserID,
		Amount:        reservation.TotalAmount,
		Fee:           fee,
		NetAmount:     net,
		Status:        entities.PaymentStatusPending,
		CreatedAt:     testNow.Add(-time.Minute),
		ExpiresAt:     testNow.Add(29 * time.Minute),
	}
	for _, opt := range opts {
		opt(payment)
	}
	return payment
}
