package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatus is a payment status as reported by the gateway
type GatewayStatus string

const (
	GatewayStatusPending     GatewayStatus = "pending"
	GatewayStatusApproved    GatewayStatus = "approved"
	GatewayStatusAuthorized  GatewayStatus = "authorized"
	GatewayStatusInProcess   GatewayStatus = "in_process"
	GatewayStatusInMediation GatewayStatus = "in_mediation"
	GatewayStatusRejected    GatewayStatus = "rejected"
	GatewayStatusCancelled   GatewayStatus = "cancelled"
	GatewayStatusRefunded    GatewayStatus = "refunded"
	GatewayStatusChargedBack GatewayStatus = "charged_back"
)

// GatewayEventTypePayment is the only notification type that moves money
const GatewayEventTypePayment = "payment"

// TargetStatus maps a gateway status to the local status it settles to.
// ok is false for statuses that do not settle anything yet.
func (s GatewayStatus) TargetStatus() (PaymentStatus, bool) {
	switch s {
	case GatewayStatusApproved:
		return PaymentStatusApproved, true
	case GatewayStatusRejected:
		return PaymentStatusRejected, true
	case GatewayStatusCancelled:
		return PaymentStatusCancelled, true
	case GatewayStatusRefunded, GatewayStatusChargedBack:
		return PaymentStatusRefunded, true
	default:
		return "", false
	}
}

// GatewayPayment is the gateway's view of a payment
type GatewayPayment struct {
	ID                string
	Status            GatewayStatus
	StatusDetail      string
	ExternalReference string
	PaymentTypeID     string
	TransactionAmount decimal.Decimal
	DateApproved      *time.Time
}

// Method maps the gateway payment type to a local payment method
func (g *GatewayPayment) Method() *PaymentMethod {
	var m PaymentMethod
	switch g.PaymentTypeID {
	case "bank_transfer", "pix":
		m = PaymentMethodPix
	case "credit_card":
		m = PaymentMethodCreditCard
	case "debit_card", "prepaid_card":
		m = PaymentMethodDebitCard
	case "account_money":
		m = PaymentMethodAccountMoney
	default:
		return nil
	}
	return &m
}

// PaymentEvent is a gateway notification resolved to the payment it concerns
type PaymentEvent struct {
	Type    string
	Action  string
	Payment *GatewayPayment
}

// ApplyOutcome is the result kind of applying a gateway event
type ApplyOutcome string

const (
	OutcomeApplied          ApplyOutcome = "applied"
	OutcomeIgnored          ApplyOutcome = "ignored"
	OutcomeUnknownReference ApplyOutcome = "unknown_reference"
)

// Ignore reasons
const (
	IgnoreReasonNotPayment       = "not_payment"
	IgnoreReasonNonTerminal      = "non_terminal"
	IgnoreReasonDuplicate        = "duplicate"
	IgnoreReasonTerminalConflict = "terminal_conflict"
	IgnoreReasonReversalPending  = "reversal_of_pending"
	IgnoreReasonRefundRequired   = "refund_required"
)

// ApplyResult reports what a gateway event did
type ApplyResult struct {
	Outcome ApplyOutcome
	Reason  string
	Payment *Payment
}

// GatewayEvent is the audit record of one webhook delivery
type GatewayEvent struct {
	ID              int64      `db:"id"`
	Provider        string     `db:"provider"`
	DeliveryKey     string     `db:"delivery_key"`
	EventType       string     `db:"event_type"`
	Action          string     `db:"action"`
	DataID          string     `db:"data_id"`
	Payload         []byte     `db:"payload"`
	SignatureValid  bool       `db:"signature_valid"`
	Outcome         *string    `db:"outcome"`
	ProcessingError *string    `db:"processing_error"`
	Attempts        int        `db:"attempts"`
	ReceivedAt      time.Time  `db:"received_at"`
	ProcessedAt     *time.Time `db:"processed_at"`
}

// IsSettled returns true if the delivery was already handled successfully
func (e *GatewayEvent) IsSettled() bool {
	return e.ProcessedAt != nil && e.Outcome != nil && e.ProcessingError == nil
}
