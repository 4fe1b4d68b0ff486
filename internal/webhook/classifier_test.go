package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/vestige-studio/payments-bridge/internal/models"
)

func event(t *testing.T, eventType stripe.EventType, object map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		eventType stripe.EventType
		object    map[string]interface{}
		wantFlow  models.Flow
		wantErr   error
	}{
		{
			name:      "SessionWithoutTagIsCourse",
			eventType: stripe.EventTypeCheckoutSessionCompleted,
			object:    map[string]interface{}{"id": "cs_1", "metadata": map[string]string{"userData": "{}"}},
			wantFlow:  models.FlowCourse,
		},
		{
			name:      "SessionTaggedCourse",
			eventType: stripe.EventTypeCheckoutSessionCompleted,
			object:    map[string]interface{}{"id": "cs_1", "metadata": map[string]string{"type": "cours"}},
			wantFlow:  models.FlowCourse,
		},
		{
			name:      "SessionTaggedDonation",
			eventType: stripe.EventTypeCheckoutSessionCompleted,
			object:    map[string]interface{}{"id": "cs_1", "metadata": map[string]string{"type": "don"}},
			wantFlow:  models.FlowDonation,
		},
		{
			name:      "IntentTaggedDonation",
			eventType: stripe.EventTypePaymentIntentSucceeded,
			object:    map[string]interface{}{"id": "pi_1", "amount": 1000, "metadata": map[string]string{"type": "don"}},
			wantFlow:  models.FlowDonation,
		},
		{
			name:      "Refund",
			eventType: stripe.EventTypeChargeRefunded,
			object:    map[string]interface{}{"id": "ch_1"},
			wantErr:   ErrUnhandledEvent,
		},
		{
			name:      "FailedIntent",
			eventType: stripe.EventTypePaymentIntentPaymentFailed,
			object:    map[string]interface{}{"id": "pi_1"},
			wantErr:   ErrUnhandledEvent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe, err := Classify(event(t, tt.eventType, tt.object))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlow, pe.Flow)
			assert.Equal(t, string(tt.eventType), pe.Type)
		})
	}
}

func TestClassifySessionFields(t *testing.T) {
	pe, err := Classify(event(t, stripe.EventTypeCheckoutSessionCompleted, map[string]interface{}{
		"id":           "cs_1",
		"amount_total": 4500,
		"customer_details": map[string]interface{}{
			"email": "details@b.com",
			"name":  "Marie Dupont",
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, "cs_1", pe.SessionID)
	assert.Equal(t, int64(4500), pe.AmountCents)
	assert.Equal(t, "details@b.com", pe.CustomerEmail)
	assert.Equal(t, "Marie Dupont", pe.CustomerName)
	assert.NotNil(t, pe.Metadata)
}

func TestClassifyWithoutData(t *testing.T) {
	_, err := Classify(stripe.Event{ID: "evt_1", Type: stripe.EventTypeCheckoutSessionCompleted})
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestVerifier(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)

	_, err = NewVerifier("").Verify(payload, sign(payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = NewVerifier(testSecret).Verify(append(payload, ' '), sign(payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
