package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/entities"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	currencyBRL         = "BRL"
	statementDescriptor = "RIFEI"
	webhookPath         = "/api/webhooks/mercadopago"
	requestTimeout      = 15 * time.Second
)

// Client talks to the Mercado Pago REST API
type Client struct {
	baseURL     string
	accessToken string
	appURL      string
	httpClient  *http.Client
}

// NewClient creates a Mercado Pago client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.MercadoPagoBaseURL, "/"),
		accessToken: cfg.MercadoPagoAccessToken,
		appURL:      strings.TrimRight(cfg.AppURL, "/"),
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
}

// APIError is a non-2xx response from the gateway
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

// Amounts go out as JSON numbers; decimal.Decimal marshals as a string.
type item struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type payer struct {
	Email string `json:"email,omitempty"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items               []item    `json:"items"`
	Payer               *payer    `json:"payer,omitempty"`
	BackURLs            backURLs  `json:"back_urls"`
	AutoReturn          string    `json:"auto_return"`
	ExternalReference   string    `json:"external_reference"`
	StatementDescriptor string    `json:"statement_descriptor"`
	NotificationURL     string    `json:"notification_url"`
	Expires             bool      `json:"expires"`
	ExpirationDateFrom  time.Time `json:"expiration_date_from"`
	ExpirationDateTo    time.Time `json:"expiration_date_to"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type pixPaymentRequest struct {
	TransactionAmount float64   `json:"transaction_amount"`
	Description       string    `json:"description"`
	PaymentMethodID   string    `json:"payment_method_id"`
	Payer             payer     `json:"payer"`
	ExternalReference string    `json:"external_reference"`
	NotificationURL   string    `json:"notification_url"`
	DateOfExpiration  time.Time `json:"date_of_expiration"`
}

// paymentResponse is the subset of /v1/payments fields the service reads
type paymentResponse struct {
	ID                 int64           `json:"id"`
	Status             string          `json:"status"`
	StatusDetail       string          `json:"status_detail"`
	ExternalReference  string          `json:"external_reference"`
	PaymentTypeID      string          `json:"payment_type_id"`
	TransactionAmount  decimal.Decimal `json:"transaction_amount"`
	DateApproved       *time.Time      `json:"date_approved"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCheckout opens a PIX charge or a hosted checkout preference for a pending payment
func (c *Client) CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error) {
	if req.Method == entities.PaymentMethodPix {
		return c.createPixPayment(ctx, req)
	}
	return c.createPreference(ctx, req)
}

func (c *Client) createPreference(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error) {
	ref := req.Payment.ExternalReference()
	body := preferenceRequest{
		Items: []item{{
			Title:      itemTitle(req),
			Quantity:   1,
			UnitPrice:  req.Payment.Amount.InexactFloat64(),
			CurrencyID: currencyBRL,
		}},
		BackURLs: backURLs{
			Success: fmt.Sprintf("%s/payment/success?payment_id=%s", c.appURL, ref),
			Failure: fmt.Sprintf("%s/payment/failure?payment_id=%s", c.appURL, ref),
			Pending: fmt.Sprintf("%s/payment/pending?payment_id=%s", c.appURL, ref),
		},
		AutoReturn:          "approved",
		ExternalReference:   ref,
		StatementDescriptor: statementDescriptor,
		NotificationURL:     c.appURL + webhookPath,
		Expires:             true,
		ExpirationDateFrom:  req.Payment.CreatedAt,
		ExpirationDateTo:    req.Payment.ExpiresAt,
	}
	if req.PayerEmail != "" {
		body.Payer = &payer{Email: req.PayerEmail}
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", "preference-"+ref, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}

	log.WithFields(log.Fields{
		"paymentId":    req.Payment.ID,
		"preferenceId": resp.ID,
	}).Info("Created Mercado Pago preference")

	return &entities.CheckoutSession{
		PreferenceID: resp.ID,
		CheckoutURL:  resp.InitPoint,
	}, nil
}

func (c *Client) createPixPayment(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error) {
	ref := req.Payment.ExternalReference()
	body := pixPaymentRequest{
		TransactionAmount: req.Payment.Amount.InexactFloat64(),
		Description:       itemTitle(req),
		PaymentMethodID:   "pix",
		Payer:             payer{Email: req.PayerEmail},
		ExternalReference: ref,
		NotificationURL:   c.appURL + webhookPath,
		DateOfExpiration:  req.Payment.ExpiresAt,
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", "pix-"+ref, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create PIX payment: %w", err)
	}

	log.WithFields(log.Fields{
		"paymentId":         req.Payment.ID,
		"externalPaymentId": resp.ID,
	}).Info("Created Mercado Pago PIX charge")

	data := resp.PointOfInteraction.TransactionData
	return &entities.CheckoutSession{
		PixQRCode:         data.QRCode,
		PixQRCodeBase64:   data.QRCodeBase64,
		PixTicketURL:      data.TicketURL,
		ExternalPaymentID: fmt.Sprintf("%d", resp.ID),
	}, nil
}

// GetPayment fetches a payment by its gateway id. A 404 wraps domain.ErrUnknownReference.
func (c *Client) GetPayment(ctx context.Context, externalPaymentID string) (*entities.GatewayPayment, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+externalPaymentID, "", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("payment %s: %w", externalPaymentID, domain.ErrUnknownReference)
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", externalPaymentID, err)
	}

	return &entities.GatewayPayment{
		ID:                fmt.Sprintf("%d", resp.ID),
		Status:            entities.GatewayStatus(resp.Status),
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		PaymentTypeID:     resp.PaymentTypeID,
		TransactionAmount: resp.TransactionAmount,
		DateApproved:      resp.DateApproved,
	}, nil
}

// Refund returns the full amount of a gateway payment
func (c *Client) Refund(ctx context.Context, externalPaymentID string) error {
	path := fmt.Sprintf("/v1/payments/%s/refunds", externalPaymentID)
	if err := c.do(ctx, http.MethodPost, path, "refund-"+externalPaymentID, struct{}{}, nil); err != nil {
		return fmt.Errorf("failed to refund payment %s: %w", externalPaymentID, err)
	}

	log.WithField("externalPaymentId", externalPaymentID).Info("Refunded Mercado Pago payment")
	return nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func itemTitle(req entities.CheckoutRequest) string {
	title := "Rifa"
	if req.Raffle != nil {
		title = req.Raffle.Title
	}
	count := 0
	if req.Reservation != nil {
		count = len(req.Reservation.Numbers)
	}
	return fmt.Sprintf("%s - %d número(s)", title, count)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
