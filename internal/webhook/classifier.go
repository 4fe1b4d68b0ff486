package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
)

var (
	// ErrUnhandledEvent is returned for verified events that are not payment completions.
	ErrUnhandledEvent = errors.New("unhandled event type")
	// ErrUndecodable is returned when a handled event's object cannot be decoded.
	ErrUndecodable = errors.New("undecodable event object")
)

// Classify keeps completed checkout sessions and succeeded payment intents and
// tags them with their flow. Untagged metadata means a course.
func Classify(ev stripe.Event) (models.PaymentEvent, error) {
	pe := models.PaymentEvent{ID: ev.ID, Type: string(ev.Type)}

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := decodeObject(ev, &s); err != nil {
			return pe, err
		}
		pe.SessionID = s.ID
		pe.Metadata = s.Metadata
		pe.AmountCents = s.AmountTotal
		pe.CustomerEmail = s.CustomerEmail
		if s.CustomerDetails != nil {
			if pe.CustomerEmail == "" {
				pe.CustomerEmail = s.CustomerDetails.Email
			}
			pe.CustomerName = s.CustomerDetails.Name
		}
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := decodeObject(ev, &pi); err != nil {
			return pe, err
		}
		pe.SessionID = pi.ID
		pe.Metadata = pi.Metadata
		pe.AmountCents = pi.AmountReceived
		if pe.AmountCents == 0 {
			pe.AmountCents = pi.Amount
		}
		pe.CustomerEmail = pi.ReceiptEmail
	default:
		return pe, fmt.Errorf("%w: %s", ErrUnhandledEvent, ev.Type)
	}

	if pe.Metadata == nil {
		pe.Metadata = map[string]string{}
	}
	pe.Flow = flowOf(pe.Metadata)
	return pe, nil
}

func flowOf(md map[string]string) models.Flow {
	if models.Flow(md[records.MetaType]) == models.FlowDonation {
		return models.FlowDonation
	}
	return models.FlowCourse
}

func decodeObject(ev stripe.Event, v interface{}) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrUndecodable, ev.ID)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUndecodable, ev.ID, err)
	}
	return nil
}
