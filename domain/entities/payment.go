package entities

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the local state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentMethod is how the buyer paid
type PaymentMethod string

const (
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodAccountMoney PaymentMethod = "account_money"
)

// Status details recorded by the reconciler
const (
	StatusDetailExpired            = "expired"
	StatusDetailReservationExpired = "reservation_expired"
	StatusDetailAmountMismatch     = "amount_mismatch"
	// A second capture against a reference that another gateway payment settled
	StatusDetailDuplicateCapture = "duplicate_capture"
	// A capture for a payment that was already closed locally
	StatusDetailClosedPayment = "payment_closed"
)

// Payment tracks money for one reservation
type Payment struct {
	ID                int64           `db:"id"`
	ReservationID     uuid.UUID       `db:"reservation_id"`
	RaffleID          int64           `db:"raffle_id"`
	UserID            int64           `db:"user_id"`
	Amount            decimal.Decimal `db:"amount"`
	Fee               decimal.Decimal `db:"fee"`
	NetAmount         decimal.Decimal `db:"net_amount"`
	Status            PaymentStatus   `db:"status"`
	StatusDetail      string          `db:"status_detail"`
	Method            *PaymentMethod  `db:"method"`
	ExternalPaymentID *string         `db:"external_payment_id"` // Gateway payment id, set on first notification
	PreferenceID      *string         `db:"preference_id"`
	CheckoutURL       *string         `db:"checkout_url"`
	PixQRCode         *string         `db:"pix_qr_code"`
	PixQRCodeBase64   *string         `db:"pix_qr_code_base64"`
	PixTicketURL      *string         `db:"pix_ticket_url"`
	PaidAt            *time.Time      `db:"paid_at"`
	RefundedAt        *time.Time      `db:"refunded_at"`
	ExpiresAt         time.Time       `db:"expires_at"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// IsTerminal returns true once the payment has left pending
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}

// IsExpiredAt returns true if a pending payment can no longer be approved at now
func (p *Payment) IsExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// ExternalReference is the value sent to the gateway to find this payment again
func (p *Payment) ExternalReference() string {
	return strconv.FormatInt(p.ID, 10)
}

// ParseExternalReference converts a gateway external_reference back to a payment id
func ParseExternalReference(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid external reference %q", ref)
	}
	return id, nil
}

// CalculateFee splits amount into the platform fee and the creator's net amount.
// The fee is rounded to cents.
func CalculateFee(amount, rate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(rate).Round(2)
	return fee, amount.Sub(fee)
}

// CheckoutSession is what the gateway returns when a checkout is opened
type CheckoutSession struct {
	PreferenceID    string
	CheckoutURL     string
	PixQRCode       string
	PixQRCodeBase64 string
	PixTicketURL    string
	// ExternalPaymentID is known immediately for PIX charges
	ExternalPaymentID string
}

// CheckoutRequest describes the charge to open at the gateway
type CheckoutRequest struct {
	Payment     *Payment
	Raffle      *Raffle
	Reservation *Reservation
	Method      PaymentMethod // pix opens a PIX charge, anything else a hosted checkout
	PayerEmail  string
}
