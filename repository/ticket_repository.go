package repository

import (
	"context"
	"fmt"

	"rifei/domain/entities"
)

// TicketRepository implements sold ticket data access
type TicketRepository struct {
	q Queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(q Queryable) *TicketRepository {
	return &TicketRepository{q: q}
}

// CreateBatch creates multiple tickets in a single batch insert
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []*entities.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	// Build batch insert query with parameterized values
	query := `
		INSERT INTO tickets (raffle_id, number, user_id, payment_id)
		VALUES `

	values := make([]any, 0, len(tickets)*4)
	for i, ticket := range tickets {
		if i > 0 {
			query += ", "
		}
		paramOffset := i * 4
		query += fmt.Sprintf("($%d, $%d, $%d, $%d)",
			paramOffset+1, paramOffset+2, paramOffset+3, paramOffset+4)
		values = append(values, ticket.RaffleID, ticket.Number, ticket.UserID, ticket.PaymentID)
	}
	query += " RETURNING id, created_at"

	rows, err := r.q.Query(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to batch create tickets: %w", translateError(err))
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&tickets[i].ID, &tickets[i].CreatedAt); err != nil {
			return fmt.Errorf("failed to scan ticket result: %w", err)
		}
		i++
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to batch create tickets: %w", translateError(err))
	}

	return nil
}

// DeleteByPayment removes the tickets bought by a payment
func (r *TicketRepository) DeleteByPayment(ctx context.Context, paymentID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE payment_id = $1`, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tickets for payment %d: %w", paymentID, translateError(err))
	}
	return tag.RowsAffected(), nil
}

// GetByRaffle returns all tickets of a raffle ordered by number
func (r *TicketRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.Ticket, error) {
	query := `
		SELECT id, raffle_id, number, user_id, payment_id, is_winner, created_at
		FROM tickets
		WHERE raffle_id = $1
		ORDER BY number ASC
	`

	tickets, err := r.queryTickets(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for raffle %d: %w", raffleID, err)
	}

	return tickets, nil
}

// GetByUser returns all tickets a user holds in a raffle
func (r *TicketRepository) GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.Ticket, error) {
	query := `
		SELECT id, raffle_id, number, user_id, payment_id, is_winner, created_at
		FROM tickets
		WHERE raffle_id = $1 AND user_id = $2
		ORDER BY number ASC
	`

	tickets, err := r.queryTickets(ctx, query, raffleID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for user %d in raffle %d: %w", userID, raffleID, err)
	}

	return tickets, nil
}

// MarkWinner flags the winning ticket
func (r *TicketRepository) MarkWinner(ctx context.Context, ticketID int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE tickets SET is_winner = TRUE WHERE id = $1`, ticketID)
	if err != nil {
		return fmt.Errorf("failed to mark ticket %d as winner: %w", ticketID, translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d not found", ticketID)
	}
	return nil
}

// GetParticipantSummary returns ticket counts per buyer, largest first
func (r *TicketRepository) GetParticipantSummary(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipantInfo, error) {
	query := `
		SELECT user_id, COUNT(*) AS ticket_count
		FROM tickets
		WHERE raffle_id = $1
		GROUP BY user_id
		ORDER BY ticket_count DESC, user_id ASC
	`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant summary for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	var participants []*entities.RaffleParticipantInfo
	for rows.Next() {
		var info entities.RaffleParticipantInfo
		if err := rows.Scan(&info.UserID, &info.TicketCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant info: %w", err)
		}
		participants = append(participants, &info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...any) ([]*entities.Ticket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*entities.Ticket
	for rows.Next() {
		var ticket entities.Ticket
		err := rows.Scan(
			&ticket.ID,
			&ticket.RaffleID,
			&ticket.Number,
			&ticket.UserID,
			&ticket.PaymentID,
			&ticket.IsWinner,
			&ticket.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &ticket)
	}

	return tickets, rows.Err()
}
