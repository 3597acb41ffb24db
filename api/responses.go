package api

import (
	"time"

	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type raffleResponse struct {
	ID                int64           `json:"id"`
	CreatorID         int64           `json:"creator_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	TotalNumbers      int64           `json:"total_numbers"`
	MaxNumbersPerUser *int64          `json:"max_numbers_per_user,omitempty"`
	Status            string          `json:"status"`
	SoldCount         int64           `json:"sold_count"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           time.Time       `json:"end_date"`
	DrawDate          *time.Time      `json:"draw_date,omitempty"`
	WinnerNumber      *int64          `json:"winner_number,omitempty"`
	WinnerID          *int64          `json:"winner_id,omitempty"`
	DrawProof         *string         `json:"draw_proof,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newRaffleResponse(r *entities.Raffle) raffleResponse {
	return raffleResponse{
		ID:                r.ID,
		CreatorID:         r.CreatorID,
		Title:             r.Title,
		Description:       r.Description,
		Price:             r.Price,
		TotalNumbers:      r.TotalNumbers,
		MaxNumbersPerUser: r.MaxNumbersPerUser,
		Status:            string(r.Status),
		SoldCount:         r.SoldCount,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		DrawDate:          r.DrawDate,
		WinnerNumber:      r.WinnerNumber,
		WinnerID:          r.WinnerID,
		DrawProof:         r.DrawProof,
		CreatedAt:         r.CreatedAt,
	}
}

func newRaffleList(raffles []*entities.Raffle) []raffleResponse {
	out := make([]raffleResponse, 0, len(raffles))
	for _, r := range raffles {
		out = append(out, newRaffleResponse(r))
	}
	return out
}

type raffleListResponse struct {
	Raffles []raffleResponse `json:"raffles"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type drawResponse struct {
	Raffle       raffleResponse `json:"raffle"`
	WinnerNumber int64          `json:"winner_number"`
	WinnerID     int64          `json:"winner_id"`
	TicketCount  int            `json:"ticket_count"`
}

func newDrawResponse(result *interfaces.RaffleDrawResult) drawResponse {
	resp := drawResponse{
		Raffle:      newRaffleResponse(result.Raffle),
		TicketCount: result.TicketCount,
	}
	if result.WinnerTicket != nil {
		resp.WinnerNumber = result.WinnerTicket.Number
		resp.WinnerID = result.WinnerTicket.UserID
	}
	return resp
}

type reservationResponse struct {
	ID          uuid.UUID       `json:"id"`
	RaffleID    int64           `json:"raffle_id"`
	UserID      int64           `json:"user_id"`
	Numbers     []int64         `json:"numbers"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newReservationResponse(r *entities.Reservation) reservationResponse {
	return reservationResponse{
		ID:          r.ID,
		RaffleID:    r.RaffleID,
		UserID:      r.UserID,
		Numbers:     r.Numbers,
		TotalAmount: r.TotalAmount,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

type paymentResponse struct {
	ID                int64           `json:"id"`
	ReservationID     uuid.UUID       `json:"reservation_id"`
	RaffleID          int64           `json:"raffle_id"`
	UserID            int64           `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	Fee               decimal.Decimal `json:"fee"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail,omitempty"`
	Method            *string         `json:"method,omitempty"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty"`
	CheckoutURL       *string         `json:"checkout_url,omitempty"`
	PixQRCode         *string         `json:"pix_qr_code,omitempty"`
	PixQRCodeBase64   *string         `json:"pix_qr_code_base64,omitempty"`
	PixTicketURL      *string         `json:"pix_ticket_url,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	ExpiresAt         time.Time       `json:"expires_at"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newPaymentResponse(p *entities.Payment) paymentResponse {
	resp := paymentResponse{
		ID:                p.ID,
		ReservationID:     p.ReservationID,
		RaffleID:          p.RaffleID,
		UserID:            p.UserID,
		Amount:            p.Amount,
		Fee:               p.Fee,
		NetAmount:         p.NetAmount,
		Status:            string(p.Status),
		StatusDetail:      p.StatusDetail,
		ExternalPaymentID: p.ExternalPaymentID,
		CheckoutURL:       p.CheckoutURL,
		PixQRCode:         p.PixQRCode,
		PixQRCodeBase64:   p.PixQRCodeBase64,
		PixTicketURL:      p.PixTicketURL,
		PaidAt:            p.PaidAt,
		RefundedAt:        p.RefundedAt,
		ExpiresAt:         p.ExpiresAt,
		CreatedAt:         p.CreatedAt,
	}
	if p.Method != nil {
		method := string(*p.Method)
		resp.Method = &method
	}
	return resp
}

func newPaymentList(payments []*entities.Payment) []paymentResponse {
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, newPaymentResponse(p))
	}
	return out
}

type paymentStatsResponse struct {
	TotalCount     int64           `json:"total_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ApprovedCount  int64           `json:"approved_count"`
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	RefundedCount  int64           `json:"refunded_count"`
}

func newPaymentStatsResponse(s *entities.PaymentStats) paymentStatsResponse {
	if s == nil {
		return paymentStatsResponse{}
	}
	return paymentStatsResponse{
		TotalCount:     s.TotalCount,
		TotalAmount:    s.TotalAmount,
		ApprovedCount:  s.ApprovedCount,
		ApprovedAmount: s.ApprovedAmount,
		RefundedCount:  s.RefundedCount,
	}
}

type raffleStatsResponse struct {
	RaffleID         int64           `json:"raffle_id"`
	TotalNumbers     int64           `json:"total_numbers"`
	SoldNumbers      int64           `json:"sold_numbers"`
	ReservedNumbers  int64           `json:"reserved_numbers"`
	AvailableNumbers int64           `json:"available_numbers"`
	UniqueBuyers     int64           `json:"unique_buyers"`
	Revenue          decimal.Decimal `json:"revenue"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
	ProgressPercent  float64         `json:"progress_percent"`
}

func newRaffleStatsResponse(s *entities.RaffleStats) raffleStatsResponse {
	return raffleStatsResponse{
		RaffleID:         s.RaffleID,
		TotalNumbers:     s.TotalNumbers,
		SoldNumbers:      s.SoldNumbers,
		ReservedNumbers:  s.ReservedNumbers,
		AvailableNumbers: s.AvailableNumbers,
		UniqueBuyers:     s.UniqueBuyers,
		Revenue:          s.Revenue,
		NetRevenue:       s.NetRevenue,
		ProgressPercent:  s.ProgressPercent,
	}
}

type drawVerificationResponse struct {
	RaffleID     int64  `json:"raffle_id"`
	WinnerNumber int64  `json:"winner_number"`
	DrawProof    string `json:"draw_proof"`
	TicketCount  int    `json:"ticket_count"`
	Verified     bool   `json:"verified"`
}

func newDrawVerificationResponse(v *interfaces.DrawVerification) drawVerificationResponse {
	resp := drawVerificationResponse{
		RaffleID:    v.Raffle.ID,
		TicketCount: v.TicketCount,
		Verified:    v.Verified,
	}
	if v.Raffle.WinnerNumber != nil {
		resp.WinnerNumber = *v.Raffle.WinnerNumber
	}
	if v.Raffle.DrawProof != nil {
		resp.DrawProof = *v.Raffle.DrawProof
	}
	return resp
}

type marketplaceStatsResponse struct {
	TotalRaffles     int64           `json:"total_raffles"`
	ActiveRaffles    int64           `json:"active_raffles"`
	CompletedRaffles int64           `json:"completed_raffles"`
	CancelledRaffles int64           `json:"cancelled_raffles"`
	NumbersSold      int64           `json:"numbers_sold"`
	UniqueBuyers     int64           `json:"unique_buyers"`
	EstimatedRevenue decimal.Decimal `json:"estimated_revenue"`
}

func newMarketplaceStatsResponse(s *entities.MarketplaceStats) marketplaceStatsResponse {
	return marketplaceStatsResponse{
		TotalRaffles:     s.TotalRaffles,
		ActiveRaffles:    s.ActiveRaffles,
		CompletedRaffles: s.CompletedRaffles,
		CancelledRaffles: s.CancelledRaffles,
		NumbersSold:      s.NumbersSold,
		UniqueBuyers:     s.UniqueBuyers,
		EstimatedRevenue: s.EstimatedRevenue,
	}
}
