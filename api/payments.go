package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxPaymentListLimit = 100

func (s *Server) listMyPayments(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if limit == 0 || limit > maxPaymentListLimit {
		limit = maxPaymentListLimit
	}

	payments, err := s.services.Payments.ListMyPayments(c.Request.Context(), mustActor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": newPaymentList(payments)})
}

func (s *Server) getMyPaymentStats(c *gin.Context) {
	stats, err := s.services.Payments.GetMyPaymentStats(c.Request.Context(), mustActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentStatsResponse(stats))
}

func (s *Server) getPayment(c *gin.Context) {
	paymentID, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := s.services.Payments.GetPayment(c.Request.Context(), mustActor(c), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(payment))
}

func (s *Server) refundPayment(c *gin.Context) {
	paymentID, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := s.services.Payments.Refund(c.Request.Context(), mustActor(c), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(payment))
}
