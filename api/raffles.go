package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rifei/application"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createRaffleRequest struct {
	Title             string          `json:"title" binding:"required"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	TotalNumbers      int64           `json:"total_numbers" binding:"required,gt=0"`
	MaxNumbersPerUser *int64          `json:"max_numbers_per_user"`
	EndDate           time.Time       `json:"end_date" binding:"required"`
}

type updateRaffleRequest struct {
	Title             *string          `json:"title"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	TotalNumbers      *int64           `json:"total_numbers"`
	MaxNumbersPerUser *int64           `json:"max_numbers_per_user"`
	EndDate           *time.Time       `json:"end_date"`
}

type numbersRequest struct {
	Numbers []int64 `json:"numbers" binding:"required"`
}

type numbersResponse struct {
	RaffleID  int64   `json:"raffle_id"`
	Available []int64 `json:"available"`
	Count     int     `json:"count"`
}

type rafflePaymentsResponse struct {
	Payments []paymentResponse    `json:"payments"`
	Stats    paymentStatsResponse `json:"stats"`
}

func (s *Server) listRaffles(c *gin.Context) {
	filter, err := parseRaffleFilter(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	raffles, total, err := s.services.Raffles.ListRaffles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := raffleListResponse{
		Raffles: newRaffleList(raffles),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listEndingSoon(c *gin.Context) {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	raffles, err := s.services.Raffles.ListEndingSoon(c.Request.Context(), days, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffles": newRaffleList(raffles)})
}

func (s *Server) getMarketplaceStats(c *gin.Context) {
	stats, err := s.services.Raffles.GetMarketplaceStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMarketplaceStatsResponse(stats))
}

func (s *Server) getRaffle(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	raffle, err := s.services.Raffles.GetRaffle(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaffleResponse(raffle))
}

func (s *Server) getAvailableNumbers(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	available, err := s.services.Reservations.GetAvailableNumbers(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	if available == nil {
		available = []int64{}
	}
	c.JSON(http.StatusOK, numbersResponse{RaffleID: raffleID, Available: available, Count: len(available)})
}

func (s *Server) getRaffleStats(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	stats, err := s.services.Raffles.GetRaffleStats(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaffleStatsResponse(stats))
}

func (s *Server) createRaffle(c *gin.Context) {
	var req createRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	raffle, err := s.services.Raffles.CreateRaffle(c.Request.Context(), mustActor(c), interfaces.CreateRaffleParams{
		Title:             req.Title,
		Description:       req.Description,
		Price:             req.Price,
		TotalNumbers:      req.TotalNumbers,
		MaxNumbersPerUser: req.MaxNumbersPerUser,
		EndDate:           req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRaffleResponse(raffle))
}

func (s *Server) updateRaffle(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	raffle, err := s.services.Raffles.UpdateRaffle(c.Request.Context(), mustActor(c), raffleID, interfaces.UpdateRaffleParams{
		Title:             req.Title,
		Description:       req.Description,
		Price:             req.Price,
		TotalNumbers:      req.TotalNumbers,
		MaxNumbersPerUser: req.MaxNumbersPerUser,
		EndDate:           req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaffleResponse(raffle))
}

func (s *Server) deleteRaffle(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.services.Raffles.DeleteRaffle(c.Request.Context(), mustActor(c), raffleID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) activateRaffle(c *gin.Context) {
	s.raffleTransition(c, s.services.Raffles.ActivateRaffle)
}

func (s *Server) cancelRaffle(c *gin.Context) {
	s.raffleTransition(c, s.services.Raffles.CancelRaffle)
}

func (s *Server) drawRaffle(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := s.services.Raffles.DrawRaffle(c.Request.Context(), mustActor(c), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDrawResponse(result))
}

func (s *Server) verifyDraw(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	verification, err := s.services.Raffles.VerifyDraw(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDrawVerificationResponse(verification))
}

func (s *Server) getRafflePayments(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	var status *entities.PaymentStatus
	if raw := c.Query("status"); raw != "" {
		parsed := entities.PaymentStatus(strings.ToLower(raw))
		status = &parsed
	}

	payments, stats, err := s.services.Raffles.GetRafflePayments(c.Request.Context(), mustActor(c), raffleID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rafflePaymentsResponse{
		Payments: newPaymentList(payments),
		Stats:    newPaymentStatsResponse(stats),
	})
}

func (s *Server) createReservation(c *gin.Context) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	var req numbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	reservation, err := s.services.Reservations.CreateReservation(c.Request.Context(), mustActor(c), raffleID, req.Numbers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(reservation))
}

func (s *Server) raffleTransition(c *gin.Context, transition func(context.Context, application.Actor, int64) (*entities.Raffle, error)) {
	raffleID, ok := pathID(c)
	if !ok {
		return
	}

	raffle, err := transition(c.Request.Context(), mustActor(c), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaffleResponse(raffle))
}

// pathID parses the :id parameter as a positive integer
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid id "+c.Param("id"))
		return 0, false
	}
	return id, true
}

// pathUUID parses the :id parameter as a reservation id
func pathUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id "+c.Param("id"))
		return uuid.Nil, false
	}
	return id, true
}

// parseRaffleFilter reads the listing query: status, search, creator_id,
// min_price, max_price, sort_by, sort_order, limit and offset
func parseRaffleFilter(c *gin.Context) (entities.RaffleFilter, error) {
	filter := entities.RaffleFilter{Search: strings.TrimSpace(c.Query("search"))}

	if raw := c.Query("status"); raw != "" {
		parsed := entities.RaffleStatus(strings.ToLower(raw))
		switch parsed {
		case entities.RaffleStatusDraft, entities.RaffleStatusActive, entities.RaffleStatusCompleted, entities.RaffleStatusCancelled:
			filter.Status = &parsed
		default:
			return filter, fmt.Errorf("unknown raffle status %s", raw)
		}
	}

	if raw := c.Query("creator_id"); raw != "" {
		creatorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || creatorID <= 0 {
			return filter, fmt.Errorf("invalid creator_id %q", raw)
		}
		filter.CreatorID = &creatorID
	}

	var err error
	if filter.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return filter, err
	}

	if raw := c.Query("sort_by"); raw != "" {
		filter.SortBy = entities.RaffleSort(strings.ToLower(raw))
		if !filter.SortBy.Valid() {
			return filter, fmt.Errorf("cannot sort by %s", raw)
		}
	}
	switch strings.ToLower(c.DefaultQuery("sort_order", "desc")) {
	case "asc":
		filter.Ascending = true
	case "desc":
	default:
		return filter, fmt.Errorf("invalid sort_order %q", c.Query("sort_order"))
	}

	if filter.Limit, err = queryInt(c, "limit", 20); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &value, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}
