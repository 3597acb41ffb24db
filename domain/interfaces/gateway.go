package interfaces

import (
	"context"

	"rifei/domain/entities"
)

// PaymentGateway is the external payment provider
type PaymentGateway interface {
	// CreateCheckout opens a hosted checkout or PIX charge for a pending payment
	CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error)

	// GetPayment fetches the gateway's view of a payment by its gateway id
	GetPayment(ctx context.Context, externalPaymentID string) (*entities.GatewayPayment, error)

	// Refund returns the full amount of a gateway payment to the payer
	Refund(ctx context.Context, externalPaymentID string) error
}
