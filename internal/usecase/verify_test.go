package usecase_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

func TestStripeVerifier(t *testing.T) {
	v := usecase.NewStripeVerifier(testStripeSecret, 0)
	body := stripePayload("evt_1", "invoice.payment_failed", time.Now().Unix(), map[string]any{"id": "in_1"})

	ev, err := v.Verify(body, signStripe(body, testStripeSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)

	_, err = v.Verify(body, signStripe(body, "whsec_other", time.Now()))
	assert.Equal(t, usecase.CodeInvalidSignature, usecase.DomainCode(err))

	_, err = v.Verify(body, signStripe(body, testStripeSecret, time.Now().Add(-time.Hour)))
	assert.Equal(t, usecase.CodeInvalidSignature, usecase.DomainCode(err))
}

func signCalendly(body []byte, secret string, at time.Time) string {
	ts := fmt.Sprint(at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(body)))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestCalendlyVerifier(t *testing.T) {
	const secret = "calendly-signing-key"
	body := []byte(`{"event":"invitee.created"}`)
	v := usecase.NewCalendlyVerifier(secret, 0, discardLogger())

	tests := []struct {
		name   string
		body   []byte
		header string
		ok     bool
	}{
		{"valid", body, signCalendly(body, secret, time.Now()), true},
		{"tampered body", []byte(`{"event":"invitee.canceled"}`), signCalendly(body, secret, time.Now()), false},
		{"wrong key", body, signCalendly(body, "other", time.Now()), false},
		{"expired", body, signCalendly(body, secret, time.Now().Add(-10*time.Minute)), false},
		{"missing header", body, "", false},
		{"garbage header", body, "nonsense", false},
		{"non hex signature", body, fmt.Sprintf("t=%d,v1=zz", time.Now().Unix()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.body, tt.header)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
		})
	}
}

func TestCalendlyVerifierWithoutSecretAcceptsAll(t *testing.T) {
	v := usecase.NewCalendlyVerifier("", 0, discardLogger())
	assert.NoError(t, v.Verify([]byte(`{}`), ""))
}
