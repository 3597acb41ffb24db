package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"rifei/domain"
)

// Notification is the body Mercado Pago posts to the webhook endpoint
type Notification struct {
	ID     json.Number `json:"id,omitempty"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ParseNotification decodes a webhook body
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	return &n, nil
}

// Payload encodes the notification. Deliveries that arrive without a body are
// stored this way, built from their query parameters.
func (n *Notification) Payload() []byte {
	// A struct of strings always encodes
	payload, _ := json.Marshal(n)
	return payload
}

// DeliveryKey identifies a delivery so retries of the same notification collapse
func (n *Notification) DeliveryKey(requestID string) string {
	if requestID != "" {
		return requestID
	}
	if n.ID != "" {
		return n.ID.String()
	}
	return fmt.Sprintf("%s:%s:%s", n.Type, n.Action, n.Data.ID)
}

// SignatureVerifier checks the x-signature header of webhook deliveries
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier creates a verifier for the given webhook secret
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Verify checks an x-signature header ("ts=<ts>,v1=<hex>") against the
// manifest built from the data id and the x-request-id header
func (v *SignatureVerifier) Verify(xSignature, xRequestID, dataID string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("no webhook secret configured: %w", domain.ErrInvalidSignature)
	}

	ts, sig := parseSignatureHeader(xSignature)
	if ts == "" || sig == "" {
		return fmt.Errorf("malformed x-signature header: %w", domain.ErrInvalidSignature)
	}

	expected, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("signature is not hex: %w", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(Manifest(dataID, xRequestID, ts)))
	if !hmac.Equal(mac.Sum(nil), expected) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign produces an x-signature header value for a delivery
func (v *SignatureVerifier) Sign(dataID, xRequestID, ts string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(Manifest(dataID, xRequestID, ts)))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// Manifest builds the signed template. Absent values are left out.
// Alphanumeric data ids are signed lowercased.
func Manifest(dataID, xRequestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if xRequestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", xRequestID)
	}
	if ts != "" {
		fmt.Fprintf(&b, "ts:%s;", ts)
	}
	return b.String()
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}
