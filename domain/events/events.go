package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeReservationCreated   EventType = "reservation.created"
	EventTypeReservationExpired   EventType = "reservation.expired"
	EventTypeReservationCancelled EventType = "reservation.cancelled"

	EventTypePaymentCreated        EventType = "payment.created"
	EventTypePaymentApproved       EventType = "payment.approved"
	EventTypePaymentRejected       EventType = "payment.rejected"
	EventTypePaymentCancelled      EventType = "payment.cancelled"
	EventTypePaymentRefunded       EventType = "payment.refunded"
	EventTypePaymentRequiresRefund EventType = "payment.requires_refund"

	EventTypeRaffleActivated EventType = "raffle.activated"
	EventTypeRaffleCompleted EventType = "raffle.completed"
	EventTypeRaffleCancelled EventType = "raffle.cancelled"
)

// AllEventTypes lists every event type the domain emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeReservationCreated,
		EventTypeReservationExpired,
		EventTypeReservationCancelled,
		EventTypePaymentCreated,
		EventTypePaymentApproved,
		EventTypePaymentRejected,
		EventTypePaymentCancelled,
		EventTypePaymentRefunded,
		EventTypePaymentRequiresRefund,
		EventTypeRaffleActivated,
		EventTypeRaffleCompleted,
		EventTypeRaffleCancelled,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ReservationCreatedEvent is emitted when numbers are held for checkout
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	RaffleID      int64     `json:"raffle_id"`
	UserID        int64     `json:"user_id"`
	Numbers       []int64   `json:"numbers"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (e ReservationCreatedEvent) Type() EventType {
	return EventTypeReservationCreated
}

// ReservationReleasedEvent is emitted when held numbers return to the pool
type ReservationReleasedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	RaffleID      int64     `json:"raffle_id"`
	UserID        int64     `json:"user_id"`
	Numbers       []int64   `json:"numbers"`
	Expired       bool      `json:"expired"` // false when cancelled
	Reason        string    `json:"reason,omitempty"`
}

func (e ReservationReleasedEvent) Type() EventType {
	if e.Expired {
		return EventTypeReservationExpired
	}
	return EventTypeReservationCancelled
}

// PaymentCreatedEvent is emitted when a checkout is opened
type PaymentCreatedEvent struct {
	PaymentID     int64           `json:"payment_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	RaffleID      int64           `json:"raffle_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func (e PaymentCreatedEvent) Type() EventType {
	return EventTypePaymentCreated
}

// PaymentApprovedEvent is emitted when money is received and tickets are issued
type PaymentApprovedEvent struct {
	PaymentID     int64           `json:"payment_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	RaffleID      int64           `json:"raffle_id"`
	UserID        int64           `json:"user_id"`
	Numbers       []int64         `json:"numbers"`
	Amount        decimal.Decimal `json:"amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

func (e PaymentApprovedEvent) Type() EventType {
	return EventTypePaymentApproved
}

// PaymentClosedEvent is emitted when a pending payment ends without money
type PaymentClosedEvent struct {
	PaymentID     int64     `json:"payment_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	RaffleID      int64     `json:"raffle_id"`
	UserID        int64     `json:"user_id"`
	Rejected      bool      `json:"rejected"` // false when cancelled
	StatusDetail  string    `json:"status_detail"`
}

func (e PaymentClosedEvent) Type() EventType {
	if e.Rejected {
		return EventTypePaymentRejected
	}
	return EventTypePaymentCancelled
}

// PaymentRefundedEvent is emitted when an approved payment is reversed
type PaymentRefundedEvent struct {
	PaymentID int64           `json:"payment_id"`
	RaffleID  int64           `json:"raffle_id"`
	UserID    int64           `json:"user_id"`
	Numbers   []int64         `json:"numbers"`
	Amount    decimal.Decimal `json:"amount"`
}

func (e PaymentRefundedEvent) Type() EventType {
	return EventTypePaymentRefunded
}

// PaymentRequiresRefundEvent is emitted when the gateway captured money that granted no numbers
type PaymentRequiresRefundEvent struct {
	PaymentID         int64           `json:"payment_id"`
	ExternalPaymentID string          `json:"external_payment_id"`
	RaffleID          int64           `json:"raffle_id"`
	UserID            int64           `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
}

func (e PaymentRequiresRefundEvent) Type() EventType {
	return EventTypePaymentRequiresRefund
}

// RaffleActivatedEvent is emitted when a raffle opens for sales
type RaffleActivatedEvent struct {
	RaffleID     int64     `json:"raffle_id"`
	CreatorID    int64     `json:"creator_id"`
	TotalNumbers int64     `json:"total_numbers"`
	EndDate      time.Time `json:"end_date"`
}

func (e RaffleActivatedEvent) Type() EventType {
	return EventTypeRaffleActivated
}

// RaffleCompletedEvent is emitted when a winner has been drawn
type RaffleCompletedEvent struct {
	RaffleID     int64     `json:"raffle_id"`
	Title        string    `json:"title"`
	WinnerNumber int64     `json:"winner_number"`
	WinnerID     int64     `json:"winner_id"`
	SoldCount    int64     `json:"sold_count"`
	DrawProof    string    `json:"draw_proof"`
	DrawnAt      time.Time `json:"drawn_at"`
}

func (e RaffleCompletedEvent) Type() EventType {
	return EventTypeRaffleCompleted
}

// RaffleCancelledEvent is emitted when a raffle is called off
type RaffleCancelledEvent struct {
	RaffleID  int64 `json:"raffle_id"`
	SoldCount int64 `json:"sold_count"`
}

func (e RaffleCancelledEvent) Type() EventType {
	return EventTypeRaffleCancelled
}
