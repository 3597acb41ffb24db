package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rifei/domain/entities"

	"github.com/jackc/pgx/v5"
)

const raffleColumns = `id, creator_id, title, description, price, total_numbers, max_numbers_per_user,
		       status, start_date, end_date, draw_date, winner_number, winner_id, draw_proof,
		       sold_count, created_at, updated_at`

// RaffleRepository implements raffle data access
type RaffleRepository struct {
	q Queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(q Queryable) *RaffleRepository {
	return &RaffleRepository{q: q}
}

func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var raffle entities.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.CreatorID,
		&raffle.Title,
		&raffle.Description,
		&raffle.Price,
		&raffle.TotalNumbers,
		&raffle.MaxNumbersPerUser,
		&raffle.Status,
		&raffle.StartDate,
		&raffle.EndDate,
		&raffle.DrawDate,
		&raffle.WinnerNumber,
		&raffle.WinnerID,
		&raffle.DrawProof,
		&raffle.SoldCount,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// Create inserts a raffle and sets its ID and timestamps
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		INSERT INTO raffles (creator_id, title, description, price, total_numbers,
		                     max_numbers_per_user, status, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		raffle.CreatorID,
		raffle.Title,
		raffle.Description,
		raffle.Price,
		raffle.TotalNumbers,
		raffle.MaxNumbersPerUser,
		raffle.Status,
		raffle.EndDate,
	).Scan(&raffle.ID, &raffle.CreatedAt, &raffle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raffle: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a raffle by its ID
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle by ID %d: %w", id, err)
	}

	return raffle, nil
}

// GetByIDForUpdate retrieves a raffle by ID with row lock for update
func (r *RaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle for update by ID %d: %w", id, translateError(err))
	}

	return raffle, nil
}

// Update persists mutable raffle fields. sold_count is changed only through AdjustSoldCount.
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		UPDATE raffles
		SET title = $2,
		    description = $3,
		    status = $4,
		    start_date = $5,
		    end_date = $6,
		    draw_date = $7,
		    winner_number = $8,
		    winner_id = $9,
		    draw_proof = $10,
		    price = $11,
		    total_numbers = $12,
		    max_numbers_per_user = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		raffle.ID,
		raffle.Title,
		raffle.Description,
		raffle.Status,
		raffle.StartDate,
		raffle.EndDate,
		raffle.DrawDate,
		raffle.WinnerNumber,
		raffle.WinnerID,
		raffle.DrawProof,
		raffle.Price,
		raffle.TotalNumbers,
		raffle.MaxNumbersPerUser,
	).Scan(&raffle.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("raffle %d not found", raffle.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update raffle %d: %w", raffle.ID, translateError(err))
	}

	return nil
}

// AdjustSoldCount adds delta to sold_count and returns the new value
func (r *RaffleRepository) AdjustSoldCount(ctx context.Context, id int64, delta int64) (int64, error) {
	query := `
		UPDATE raffles
		SET sold_count = sold_count + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING sold_count
	`

	var soldCount int64
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&soldCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("raffle %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust sold count for raffle %d by %d: %w", id, delta, translateError(err))
	}

	return soldCount, nil
}

// Delete removes a draft raffle that has sold nothing
func (r *RaffleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM raffles WHERE id = $1 AND status = 'draft' AND sold_count = 0`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete raffle %d: %w", id, translateError(err))
	}

	return tag.RowsAffected() == 1, nil
}

// Sort columns are whitelisted; the identifier is spliced into ORDER BY
var raffleSortColumns = map[entities.RaffleSort]string{
	entities.RaffleSortCreatedAt: "created_at",
	entities.RaffleSortEndDate:   "end_date",
	entities.RaffleSortPrice:     "price",
	entities.RaffleSortSoldCount: "sold_count",
}

const raffleFilterClause = `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR title ILIKE $2 OR description ILIKE $2)
		  AND ($3::bigint IS NULL OR creator_id = $3)
		  AND ($4::numeric IS NULL OR price >= $4)
		  AND ($5::numeric IS NULL OR price <= $5)`

// List returns a page of raffles matching filter with the total match count
func (r *RaffleRepository) List(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error) {
	var search *string
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		search = &pattern
	}
	args := []any{filter.Status, search, filter.CreatorID, filter.MinPrice, filter.MaxPrice}

	var total int64
	countQuery := `SELECT COUNT(*) FROM raffles` + raffleFilterClause
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count raffles: %w", err)
	}

	query := `
		SELECT ` + raffleColumns + `
		FROM raffles` + raffleFilterClause + `
		ORDER BY ` + raffleOrderBy(filter.SortBy, filter.Ascending) + `
		LIMIT $6 OFFSET $7
	`

	raffles, err := r.queryRaffles(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list raffles: %w", err)
	}

	return raffles, total, nil
}

// ListEndingSoon returns active raffles whose end date falls in (now, until]
func (r *RaffleRepository) ListEndingSoon(ctx context.Context, now, until time.Time, limit int) ([]*entities.Raffle, error) {
	query := `
		SELECT ` + raffleColumns + `
		FROM raffles
		WHERE status = 'active'
		  AND end_date > $1
		  AND end_date <= $2
		ORDER BY end_date ASC, id ASC
		LIMIT $3
	`

	raffles, err := r.queryRaffles(ctx, query, now, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles ending soon: %w", err)
	}

	return raffles, nil
}

// GetDueForDraw returns active raffles that ended or sold out, oldest end date first
func (r *RaffleRepository) GetDueForDraw(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	query := `
		SELECT ` + raffleColumns + `
		FROM raffles
		WHERE status = 'active'
		  AND (end_date <= $1 OR sold_count >= total_numbers)
		ORDER BY end_date ASC
	`

	raffles, err := r.queryRaffles(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffles due for draw: %w", err)
	}

	return raffles, nil
}

// GetNextEndDate returns the earliest end date among active raffles
func (r *RaffleRepository) GetNextEndDate(ctx context.Context) (*time.Time, error) {
	query := `SELECT MIN(end_date) FROM raffles WHERE status = 'active'`

	var next *time.Time
	if err := r.q.QueryRow(ctx, query).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to get next raffle end date: %w", err)
	}

	return next, nil
}

func (r *RaffleRepository) queryRaffles(ctx context.Context, query string, args ...any) ([]*entities.Raffle, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raffles []*entities.Raffle
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffles: %w", err)
	}

	return raffles, nil
}

func raffleOrderBy(sort entities.RaffleSort, ascending bool) string {
	column, ok := raffleSortColumns[sort]
	if !ok {
		column = raffleSortColumns[entities.RaffleSortCreatedAt]
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}

// containsPattern wraps term for ILIKE, escaping its wildcards
func containsPattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(term)
	return "%" + escaped + "%"
}
