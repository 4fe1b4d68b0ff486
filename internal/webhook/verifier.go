// Package webhook verifies, classifies and processes payment processor notifications.
package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// SignatureHeader carries the processor's signature.
const SignatureHeader = "Stripe-Signature"

// ErrInvalidSignature is returned when a payload was not signed with our secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verifier checks webhook signatures over the exact delivered bytes.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier for the endpoint's signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify authenticates payload against the signature header and parses it.
// payload must be the raw request body, untouched.
func (v *Verifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidSignature)
	}
	if signature == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ev, nil
}
