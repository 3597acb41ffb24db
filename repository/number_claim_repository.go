package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NumberClaimRepository implements per-number ownership state. A number with no
// claim row, or with a reserved claim past its expiry, is available.
type NumberClaimRepository struct {
	q Queryable
}

// NewNumberClaimRepository creates a new number claim repository
func NewNumberClaimRepository(q Queryable) *NumberClaimRepository {
	return &NumberClaimRepository{q: q}
}

// Claim reserves numbers for a reservation inside a savepoint. Stale reserved claims
// are taken over; sold or actively reserved numbers are not. If any number is lost
// the savepoint is rolled back and the lost numbers are returned in request order.
func (r *NumberClaimRepository) Claim(ctx context.Context, raffleID int64, numbers []int64, reservationID uuid.UUID, expiresAt, now time.Time) ([]int64, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	sp, err := r.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open claim savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	query := `
		INSERT INTO number_claims (raffle_id, number, reservation_id, state, expires_at, claimed_at)
		SELECT $1::bigint, n, $3::uuid, 'reserved', $4::timestamptz, $5::timestamptz
		FROM unnest($2::int[]) AS n
		ON CONFLICT (raffle_id, number) DO UPDATE
		SET reservation_id = EXCLUDED.reservation_id,
		    state = 'reserved',
		    expires_at = EXCLUDED.expires_at,
		    claimed_at = EXCLUDED.claimed_at
		WHERE number_claims.state = 'reserved'
		  AND number_claims.expires_at <= $5
		RETURNING number
	`

	rows, err := sp.Query(ctx, query, raffleID, numbers, reservationID, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim numbers for raffle %d: %w", raffleID, translateError(err))
	}

	claimed := make(map[int64]struct{}, len(numbers))
	for rows.Next() {
		var number int64
		if err := rows.Scan(&number); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claimed number: %w", err)
		}
		claimed[number] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to claim numbers for raffle %d: %w", raffleID, translateError(err))
	}

	if len(claimed) != len(numbers) {
		lost := make([]int64, 0, len(numbers)-len(claimed))
		for _, n := range numbers {
			if _, ok := claimed[n]; !ok {
				lost = append(lost, n)
			}
		}
		return lost, nil
	}

	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to release claim savepoint: %w", translateError(err))
	}

	return nil, nil
}

// MarkSold turns a reservation's reserved claims into sold claims
func (r *NumberClaimRepository) MarkSold(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	query := `
		UPDATE number_claims
		SET state = 'sold',
		    expires_at = NULL
		WHERE reservation_id = $1
		  AND state = 'reserved'
	`

	tag, err := r.q.Exec(ctx, query, reservationID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark claims sold for reservation %s: %w", reservationID, translateError(err))
	}

	return tag.RowsAffected(), nil
}

// Release deletes every claim still held by a reservation
func (r *NumberClaimRepository) Release(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	query := `DELETE FROM number_claims WHERE reservation_id = $1`

	tag, err := r.q.Exec(ctx, query, reservationID)
	if err != nil {
		return 0, fmt.Errorf("failed to release claims for reservation %s: %w", reservationID, translateError(err))
	}

	return tag.RowsAffected(), nil
}

// GetAvailable returns the numbers in [1, total] that are neither sold nor actively reserved
func (r *NumberClaimRepository) GetAvailable(ctx context.Context, raffleID int64, total int64, now time.Time) ([]int64, error) {
	query := `
		SELECT n::bigint
		FROM generate_series(1, $2::int) AS n
		WHERE NOT EXISTS (
			SELECT 1
			FROM number_claims c
			WHERE c.raffle_id = $1
			  AND c.number = n
			  AND (c.state = 'sold' OR c.expires_at > $3)
		)
		ORDER BY n
	`

	rows, err := r.q.Query(ctx, query, raffleID, total, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get available numbers for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	available := make([]int64, 0)
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan available number: %w", err)
		}
		available = append(available, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate available numbers: %w", err)
	}

	return available, nil
}

// CountHeldByUser counts numbers a user has sold or actively reserved in a raffle
func (r *NumberClaimRepository) CountHeldByUser(ctx context.Context, raffleID, userID int64, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM number_claims c
		JOIN reservations res ON res.id = c.reservation_id
		WHERE c.raffle_id = $1
		  AND res.user_id = $2
		  AND (c.state = 'sold' OR c.expires_at > $3)
	`

	var count int64
	if err := r.q.QueryRow(ctx, query, raffleID, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count numbers held by user %d in raffle %d: %w", userID, raffleID, err)
	}

	return count, nil
}
