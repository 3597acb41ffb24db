package api

import (
	"context"

	"rifei/application"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
)

// RaffleService is the raffle surface of the application layer
type RaffleService interface {
	CreateRaffle(ctx context.Context, actor application.Actor, params interfaces.CreateRaffleParams) (*entities.Raffle, error)
	GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error)
	ListRaffles(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error)
	ListEndingSoon(ctx context.Context, days, limit int) ([]*entities.Raffle, error)
	UpdateRaffle(ctx context.Context, actor application.Actor, raffleID int64, params interfaces.UpdateRaffleParams) (*entities.Raffle, error)
	DeleteRaffle(ctx context.Context, actor application.Actor, raffleID int64) error
	ActivateRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*entities.Raffle, error)
	CancelRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*entities.Raffle, error)
	DrawRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*interfaces.RaffleDrawResult, error)
	VerifyDraw(ctx context.Context, raffleID int64) (*interfaces.DrawVerification, error)
	GetRaffleStats(ctx context.Context, raffleID int64) (*entities.RaffleStats, error)
	GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error)
	GetRafflePayments(ctx context.Context, actor application.Actor, raffleID int64, status *entities.PaymentStatus) ([]*entities.Payment, *entities.PaymentStats, error)
}

// ReservationService is the reservation surface of the application layer
type ReservationService interface {
	CreateReservation(ctx context.Context, actor application.Actor, raffleID int64, numbers []int64) (*entities.Reservation, error)
	GetReservation(ctx context.Context, actor application.Actor, reservationID uuid.UUID) (*entities.Reservation, error)
	ListReservations(ctx context.Context, actor application.Actor) ([]*entities.Reservation, error)
	CancelReservation(ctx context.Context, actor application.Actor, reservationID uuid.UUID) (*entities.Reservation, error)
	GetAvailableNumbers(ctx context.Context, raffleID int64) ([]int64, error)
}

// CheckoutService opens gateway checkouts
type CheckoutService interface {
	Checkout(ctx context.Context, actor application.Actor, params application.CheckoutParams) (*entities.Payment, error)
}

// PaymentService is the payment surface of the application layer
type PaymentService interface {
	GetPayment(ctx context.Context, actor application.Actor, paymentID int64) (*entities.Payment, error)
	ListMyPayments(ctx context.Context, actor application.Actor, limit int) ([]*entities.Payment, error)
	GetMyPaymentStats(ctx context.Context, actor application.Actor) (*entities.PaymentStats, error)
	Refund(ctx context.Context, actor application.Actor, paymentID int64) (*entities.Payment, error)
}

// WebhookService settles gateway notifications
type WebhookService interface {
	HandleDelivery(ctx context.Context, delivery application.WebhookDelivery) (*application.WebhookResult, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the routes call into
type Services struct {
	Raffles      RaffleService
	Reservations ReservationService
	Checkout     CheckoutService
	Payments     PaymentService
	Webhooks     WebhookService
	Database     Pinger // Optional; /health skips the check when nil
}
