package models

// Flow discriminates the two payment flows. The value is written verbatim to
// the record's "type" column.
type Flow string

const (
	FlowCourse   Flow = "cours"
	FlowDonation Flow = "don"
)

// Event types the pipeline acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// PaymentSession is what the initiator hands back to the client. Only one of
// URL (hosted checkout) or ClientSecret (payment intent) is set.
type PaymentSession struct {
	ID           string `json:"id"`
	URL          string `json:"url,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Flow         Flow   `json:"-"`
}

// PaymentEvent is a verified and classified completion event.
type PaymentEvent struct {
	ID            string
	Type          string
	Flow          Flow
	SessionID     string
	Metadata      map[string]string
	AmountCents   int64
	CustomerEmail string
	CustomerName  string
}
