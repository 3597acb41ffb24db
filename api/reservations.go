package api

import (
	"net/http"
	"strings"

	"rifei/application"
	"rifei/domain/entities"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Method     string `json:"method"`
	PayerEmail string `json:"payer_email"`
}

func (s *Server) listReservations(c *gin.Context) {
	reservations, err := s.services.Reservations.ListReservations(c.Request.Context(), mustActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]reservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, newReservationResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"reservations": out})
}

func (s *Server) getReservation(c *gin.Context) {
	reservationID, ok := pathUUID(c)
	if !ok {
		return
	}

	reservation, err := s.services.Reservations.GetReservation(c.Request.Context(), mustActor(c), reservationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(reservation))
}

func (s *Server) cancelReservation(c *gin.Context) {
	reservationID, ok := pathUUID(c)
	if !ok {
		return
	}

	reservation, err := s.services.Reservations.CancelReservation(c.Request.Context(), mustActor(c), reservationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(reservation))
}

func (s *Server) checkout(c *gin.Context) {
	reservationID, ok := pathUUID(c)
	if !ok {
		return
	}

	var req checkoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	method, ok := parseMethod(req.Method)
	if !ok {
		respondBadRequest(c, "unsupported payment method "+req.Method)
		return
	}

	payment, err := s.services.Checkout.Checkout(c.Request.Context(), mustActor(c), application.CheckoutParams{
		ReservationID: reservationID,
		Method:        method,
		PayerEmail:    req.PayerEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPaymentResponse(payment))
}

// parseMethod accepts an empty method, which lets the buyer choose on the hosted checkout
func parseMethod(raw string) (entities.PaymentMethod, bool) {
	method := entities.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case "", entities.PaymentMethodPix, entities.PaymentMethodCreditCard, entities.PaymentMethodDebitCard, entities.PaymentMethodAccountMoney:
		return method, true
	}
	return "", false
}
