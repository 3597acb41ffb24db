package api

import (
	"errors"
	"io"
	"net/http"

	"rifei/application"
	"rifei/domain"
	"rifei/infrastructure/mercadopago"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	providerMercadoPago = "mercadopago"
	maxWebhookBody      = 64 << 10
)

// mercadoPagoWebhook records and settles a Mercado Pago notification. Anything
// but a 2xx makes the gateway retry, so only transient failures return 5xx.
func (s *Server) mercadoPagoWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondBadRequest(c, "failed to read body")
		return
	}

	notification := &mercadopago.Notification{}
	if len(body) > 0 {
		notification, err = mercadopago.ParseNotification(body)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	// Some notification flavours only carry the id in the query string
	if notification.Data.ID == "" {
		notification.Data.ID = c.Query("data.id")
	}
	if notification.Type == "" {
		notification.Type = c.Query("type")
	}

	if len(body) == 0 {
		body = notification.Payload()
	}

	requestID := c.GetHeader("x-request-id")
	result, err := s.services.Webhooks.HandleDelivery(c.Request.Context(), application.WebhookDelivery{
		Provider:    providerMercadoPago,
		DeliveryKey: notification.DeliveryKey(requestID),
		Type:        notification.Type,
		Action:      notification.Action,
		DataID:      notification.Data.ID,
		Payload:     body,
		Signature:   c.GetHeader("x-signature"),
		RequestID:   requestID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			respondError(c, err)
			return
		}
		log.WithFields(log.Fields{
			"dataId": notification.Data.ID,
			"error":  err,
		}).Error("Failed to process webhook")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "retry",
			Message: "delivery not processed",
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": result.Outcome,
		"reason":  result.Reason,
	})
}
