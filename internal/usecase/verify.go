package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type StripeVerifier struct {
	Secret    string
	Tolerance time.Duration
}

func NewStripeVerifier(secret string, tolerance time.Duration) *StripeVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeVerifier{Secret: secret, Tolerance: tolerance}
}

func (v *StripeVerifier) Configured() bool {
	return v.Secret != ""
}

// Verify checks the Stripe-Signature header against the raw body and decodes
// the event. Every failure maps to ErrInvalidSignature.
func (v *StripeVerifier) Verify(body []byte, header string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(body, header, v.Secret, webhook.ConstructEventOptions{
		Tolerance:                v.Tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, &DomainError{Code: CodeInvalidSignature, Message: "invalid webhook signature: " + err.Error()}
	}
	return event, nil
}

// CalendlyVerifier checks Calendly-Webhook-Signature headers of the form
// "t=<unix>,v1=<hex hmac-sha256 of t.body>". Without a signing key every
// request is accepted.
type CalendlyVerifier struct {
	Secret    string
	Tolerance time.Duration
	Logger    *slog.Logger
	now       func() time.Time
}

func NewCalendlyVerifier(secret string, tolerance time.Duration, logger *slog.Logger) *CalendlyVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	if secret == "" {
		logger.Warn("CALENDLY_WEBHOOK_SECRET not set, booking webhook signatures are not verified")
	}
	return &CalendlyVerifier{Secret: secret, Tolerance: tolerance, Logger: logger, now: time.Now}
}

func (v *CalendlyVerifier) Verify(body []byte, header string) error {
	if v.Secret == "" {
		return nil
	}
	if header == "" {
		return ErrInvalidSignature
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v1":
			sig = val
		}
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sig == "" {
		return ErrInvalidSignature
	}
	if age := v.now().Sub(time.Unix(unix, 0)); age > v.Tolerance || age < -v.Tolerance {
		return ErrInvalidSignature
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, calendlySignature(v.Secret, ts, body)) {
		return ErrInvalidSignature
	}
	return nil
}

func calendlySignature(secret, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
