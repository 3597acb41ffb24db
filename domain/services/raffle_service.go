package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	defaultRaffleListLimit = 20
	maxRaffleListLimit     = 100
	defaultEndingSoonDays  = 3
	maxEndingSoonDays      = 30
	defaultEndingSoonLimit = 6
	maxEndingSoonLimit     = 20
)

type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	ticketRepo     interfaces.TicketRepository
	reservations   interfaces.ReservationService
	eventPublisher interfaces.EventPublisher
	clock          clock.Clock
	config         *config.Config
	seedFn         func() ([]byte, error)
}

// NewRaffleService creates a new raffle lifecycle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	ticketRepo interfaces.TicketRepository,
	reservations interfaces.ReservationService,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
	cfg *config.Config,
) interfaces.RaffleService {
	return newRaffleService(raffleRepo, ticketRepo, reservations, eventPublisher, clk, cfg, entities.GenerateDrawSeed)
}

func newRaffleService(
	raffleRepo interfaces.RaffleRepository,
	ticketRepo interfaces.TicketRepository,
	reservations interfaces.ReservationService,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
	cfg *config.Config,
	seedFn func() ([]byte, error),
) *raffleService {
	return &raffleService{
		raffleRepo:     raffleRepo,
		ticketRepo:     ticketRepo,
		reservations:   reservations,
		eventPublisher: eventPublisher,
		clock:          clk,
		config:         cfg,
		seedFn:         seedFn,
	}
}

// Create stores a new draft raffle
func (s *raffleService) Create(ctx context.Context, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	raffle := &entities.Raffle{
		CreatorID:         params.CreatorID,
		Title:             strings.TrimSpace(params.Title),
		Description:       params.Description,
		Price:             params.Price,
		TotalNumbers:      params.TotalNumbers,
		MaxNumbersPerUser: params.MaxNumbersPerUser,
		Status:            entities.RaffleStatusDraft,
		EndDate:           params.EndDate,
	}
	if err := s.validate(raffle); err != nil {
		return nil, err
	}
	raffle.Price = raffle.Price.Round(2)

	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	return raffle, nil
}

// GetByID returns a raffle
func (s *raffleService) GetByID(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}
	return raffle, nil
}

// List returns a page of raffles matching filter with the total count
func (s *raffleService) List(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultRaffleListLimit
	}
	if filter.Limit > maxRaffleListLimit {
		filter.Limit = maxRaffleListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.SortBy == "" {
		filter.SortBy = entities.RaffleSortCreatedAt
	}
	if !filter.SortBy.Valid() {
		return nil, 0, fmt.Errorf("cannot sort by %q: %w", filter.SortBy, domain.ErrInvalidFilter)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MaxPrice.LessThan(*filter.MinPrice) {
		return nil, 0, fmt.Errorf("max price below min price: %w", domain.ErrInvalidFilter)
	}

	raffles, total, err := s.raffleRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list raffles: %w", err)
	}
	return raffles, total, nil
}

// ListEndingSoon returns active raffles that end within days of now
func (s *raffleService) ListEndingSoon(ctx context.Context, days, limit int) ([]*entities.Raffle, error) {
	if days <= 0 {
		days = defaultEndingSoonDays
	}
	days = min(days, maxEndingSoonDays)
	if limit <= 0 {
		limit = defaultEndingSoonLimit
	}
	limit = min(limit, maxEndingSoonLimit)

	now := s.clock.Now()
	raffles, err := s.raffleRepo.ListEndingSoon(ctx, now, now.AddDate(0, 0, days), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles ending soon: %w", err)
	}
	return raffles, nil
}

// Update edits a draft raffle. Once active, its terms are fixed.
func (s *raffleService) Update(ctx context.Context, raffleID int64, params interfaces.UpdateRaffleParams) (*entities.Raffle, error) {
	raffle, err := s.lock(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.IsEditable() {
		return nil, fmt.Errorf("raffle is %s: %w", raffle.Status, domain.ErrRaffleNotEditable)
	}

	if params.Title != nil {
		raffle.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		raffle.Description = *params.Description
	}
	if params.Price != nil {
		raffle.Price = *params.Price
	}
	if params.TotalNumbers != nil {
		raffle.TotalNumbers = *params.TotalNumbers
	}
	if params.MaxNumbersPerUser != nil {
		raffle.MaxNumbersPerUser = params.MaxNumbersPerUser
	}
	if params.EndDate != nil {
		raffle.EndDate = *params.EndDate
	}
	if err := s.validate(raffle); err != nil {
		return nil, err
	}
	raffle.Price = raffle.Price.Round(2)

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}
	return raffle, nil
}

// Delete removes a draft raffle that has sold nothing
func (s *raffleService) Delete(ctx context.Context, raffleID int64) error {
	raffle, err := s.lock(ctx, raffleID)
	if err != nil {
		return err
	}
	if raffle.Status != entities.RaffleStatusDraft || raffle.SoldCount > 0 {
		return fmt.Errorf("%s raffle with %d sold: %w", raffle.Status, raffle.SoldCount, domain.ErrDeleteNotAllowed)
	}

	deleted, err := s.raffleRepo.Delete(ctx, raffleID)
	if err != nil {
		return fmt.Errorf("failed to delete raffle: %w", err)
	}
	if !deleted {
		return domain.ErrDeleteNotAllowed
	}

	log.WithField("raffleId", raffleID).Info("Raffle deleted")
	return nil
}

// Activate opens a draft raffle for sales
func (s *raffleService) Activate(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.lock(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if raffle.Status != entities.RaffleStatusDraft {
		return nil, fmt.Errorf("cannot activate %s raffle: %w", raffle.Status, domain.ErrInvalidTransition)
	}
	if !raffle.EndDate.After(now) {
		return nil, domain.ErrEndDateInPast
	}
	if raffle.TotalNumbers < int64(s.config.RaffleMinTotalNumbers) {
		return nil, fmt.Errorf("raffle needs at least %d numbers: %w", s.config.RaffleMinTotalNumbers, domain.ErrTooFewNumbers)
	}

	raffle.Status = entities.RaffleStatusActive
	raffle.StartDate = &now
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to activate raffle: %w", err)
	}

	if err := s.eventPublisher.Publish(events.RaffleActivatedEvent{
		RaffleID:     raffle.ID,
		CreatorID:    raffle.CreatorID,
		TotalNumbers: raffle.TotalNumbers,
		EndDate:      raffle.EndDate,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish raffle activated event")
	}

	return raffle, nil
}

// Draw selects the winning number among sold tickets and completes the raffle
func (s *raffleService) Draw(ctx context.Context, raffleID int64) (*interfaces.RaffleDrawResult, error) {
	raffle, err := s.lock(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !raffle.IsActive() {
		return nil, domain.ErrRaffleNotActive
	}
	if raffle.SoldCount == 0 {
		return nil, domain.ErrNoTicketsSold
	}
	if !raffle.IsDrawDue(now) {
		return nil, domain.ErrDrawNotDue
	}

	// Step 1: Collect sold numbers in ascending order
	tickets, err := s.ticketRepo.GetByRaffle(ctx, raffle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	if len(tickets) == 0 {
		return nil, domain.ErrNoTicketsSold
	}
	soldNumbers := make([]int64, len(tickets))
	for i, ticket := range tickets {
		soldNumbers[i] = ticket.Number
	}

	// Step 2: Pick the winner from a fresh seed
	seed, err := s.seedFn()
	if err != nil {
		return nil, err
	}
	result, err := entities.SelectWinner(raffle.ID, soldNumbers, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to select winner: %w", err)
	}
	winner := tickets[result.WinnerIndex]

	// Step 3: Persist the outcome
	if err := s.ticketRepo.MarkWinner(ctx, winner.ID); err != nil {
		return nil, fmt.Errorf("failed to mark winning ticket: %w", err)
	}
	winner.IsWinner = true

	raffle.Complete(winner.Number, winner.UserID, result.Proof, now)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to complete raffle: %w", err)
	}

	// Step 4: Holds on a finished raffle can never be paid
	cancelled, err := s.reservations.CancelPendingForRaffle(ctx, raffle.ID, "raffle_completed")
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleId":     raffle.ID,
		"winnerNumber": winner.Number,
		"winnerId":     winner.UserID,
		"tickets":      len(tickets),
		"cancelled":    cancelled,
	}).Info("Raffle drawn")

	if err := s.eventPublisher.Publish(events.RaffleCompletedEvent{
		RaffleID:     raffle.ID,
		Title:        raffle.Title,
		WinnerNumber: winner.Number,
		WinnerID:     winner.UserID,
		SoldCount:    raffle.SoldCount,
		DrawProof:    result.Proof,
		DrawnAt:      now,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish raffle completed event")
	}

	return &interfaces.RaffleDrawResult{
		Raffle:       raffle,
		WinnerTicket: winner,
		TicketCount:  len(tickets),
	}, nil
}

// Cancel calls off a draft or active raffle while it has at most
// RAFFLE_CANCEL_MAX_SOLD numbers sold
func (s *raffleService) Cancel(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.lock(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if raffle.IsFinal() {
		return nil, fmt.Errorf("cannot cancel %s raffle: %w", raffle.Status, domain.ErrInvalidTransition)
	}
	if raffle.SoldCount > int64(s.config.RaffleCancelMaxSold) {
		return nil, fmt.Errorf("%d numbers already sold: %w", raffle.SoldCount, domain.ErrCancelNotAllowed)
	}

	raffle.Status = entities.RaffleStatusCancelled
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to cancel raffle: %w", err)
	}

	if _, err := s.reservations.CancelPendingForRaffle(ctx, raffle.ID, "raffle_cancelled"); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.RaffleCancelledEvent{
		RaffleID:  raffle.ID,
		SoldCount: raffle.SoldCount,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish raffle cancelled event")
	}

	return raffle, nil
}

// VerifyDraw replays a completed draw against the sold numbers it was taken from.
// Tickets of a completed raffle cannot be refunded, so the set is the one drawn over.
func (s *raffleService) VerifyDraw(ctx context.Context, raffleID int64) (*interfaces.DrawVerification, error) {
	raffle, err := s.GetByID(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != entities.RaffleStatusCompleted || raffle.WinnerNumber == nil || raffle.DrawProof == nil {
		return nil, domain.ErrNotDrawn
	}

	tickets, err := s.ticketRepo.GetByRaffle(ctx, raffle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	soldNumbers := make([]int64, len(tickets))
	for i, ticket := range tickets {
		soldNumbers[i] = ticket.Number
	}

	verified := entities.VerifyDrawProof(raffle.ID, soldNumbers, *raffle.WinnerNumber, *raffle.DrawProof)
	if !verified {
		log.WithFields(log.Fields{
			"raffleId": raffle.ID,
			"tickets":  len(tickets),
		}).Warn("Draw proof does not match sold numbers")
	}

	return &interfaces.DrawVerification{
		Raffle:      raffle,
		TicketCount: len(tickets),
		Verified:    verified,
	}, nil
}

// validate checks the terms a draft raffle must satisfy
func (s *raffleService) validate(raffle *entities.Raffle) error {
	if raffle.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrInvalidRaffle)
	}
	if !raffle.Price.IsPositive() {
		return fmt.Errorf("price must be positive: %w", domain.ErrInvalidRaffle)
	}
	if raffle.TotalNumbers <= 0 {
		return fmt.Errorf("total numbers must be positive: %w", domain.ErrInvalidRaffle)
	}
	if raffle.MaxNumbersPerUser != nil && (*raffle.MaxNumbersPerUser <= 0 || *raffle.MaxNumbersPerUser > raffle.TotalNumbers) {
		return fmt.Errorf("max numbers per user must be in [1, %d]: %w", raffle.TotalNumbers, domain.ErrInvalidRaffle)
	}
	if !raffle.EndDate.After(s.clock.Now()) {
		return domain.ErrEndDateInPast
	}
	return nil
}

func (s *raffleService) lock(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}
	return raffle, nil
}

// IsDrawSkippable reports whether a draw failure means the raffle has nothing to draw
func IsDrawSkippable(err error) bool {
	return errors.Is(err, domain.ErrNoTicketsSold) || errors.Is(err, domain.ErrDrawNotDue)
}
