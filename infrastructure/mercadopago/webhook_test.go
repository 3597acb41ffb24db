package mercadopago

import (
	"testing"

	"rifei/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dataID    string
		requestID string
		ts        string
		expected  string
	}{
		{"all parts", "123", "req-1", "1700000000", "id:123;request-id:req-1;ts:1700000000;"},
		{"no request id", "123", "", "1700000000", "id:123;ts:1700000000;"},
		{"alphanumeric id lowercased", "ABC123", "req-1", "1", "id:abc123;request-id:req-1;ts:1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Manifest(tt.dataID, tt.requestID, tt.ts))
		})
	}
}

func TestSignatureVerifier(t *testing.T) {
	t.Parallel()

	verifier := NewSignatureVerifier("secret")
	header := verifier.Sign("123", "req-1", "1700000000")

	tests := []struct {
		name      string
		header    string
		requestID string
		dataID    string
		valid     bool
	}{
		{"valid", header, "req-1", "123", true},
		{"valid with spaces", " ts=1700000000 , " + header[len("ts=1700000000,"):], "req-1", "123", true},
		{"different data id", header, "req-1", "124", false},
		{"different request id", header, "req-2", "123", false},
		{"missing v1", "ts=1700000000", "req-1", "123", false},
		{"not hex", "ts=1700000000,v1=zz", "req-1", "123", false},
		{"empty", "", "req-1", "123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := verifier.Verify(tt.header, tt.requestID, tt.dataID)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidSignature)
			}
		})
	}
}

func TestSignatureVerifier_WrongSecret(t *testing.T) {
	t.Parallel()

	header := NewSignatureVerifier("other").Sign("123", "req-1", "1")
	err := NewSignatureVerifier("secret").Verify(header, "req-1", "123")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = NewSignatureVerifier("").Verify(header, "req-1", "123")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseNotification(t *testing.T) {
	t.Parallel()

	n, err := ParseNotification([]byte(`{"id": 12345, "type": "payment", "action": "payment.updated", "data": {"id": "987"}}`))
	require.NoError(t, err)

	assert.Equal(t, "payment", n.Type)
	assert.Equal(t, "payment.updated", n.Action)
	assert.Equal(t, "987", n.Data.ID)
	assert.Equal(t, "req-1", n.DeliveryKey("req-1"))
	assert.Equal(t, "12345", n.DeliveryKey(""))

	_, err = ParseNotification([]byte(`not json`))
	assert.Error(t, err)
}
