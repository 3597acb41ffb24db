package entities

import (
	"time"
)

// Ticket is a sold number. Tickets exist only for approved payments.
type Ticket struct {
	ID        int64     `db:"id"`
	RaffleID  int64     `db:"raffle_id"`
	Number    int64     `db:"number"`
	UserID    int64     `db:"user_id"`
	PaymentID int64     `db:"payment_id"`
	IsWinner  bool      `db:"is_winner"`
	CreatedAt time.Time `db:"created_at"`
}

// RaffleParticipantInfo summarizes a buyer's tickets in a raffle
type RaffleParticipantInfo struct {
	UserID      int64 `db:"user_id"`
	TicketCount int64 `db:"ticket_count"`
}
