package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
)

// mockGateway records the params it receives.
type mockGateway struct {
	sessionParams *stripe.CheckoutSessionParams
	intentParams  *stripe.PaymentIntentParams
	err           error
}

func (m *mockGateway) NewCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.sessionParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"}, nil
}

func (m *mockGateway) NewPaymentIntent(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	m.intentParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &stripe.PaymentIntent{ID: "pi_test_123", ClientSecret: "pi_test_123_secret_abc"}, nil
}

type testServer struct {
	gateway *mockGateway
	router  *gin.Engine
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	gw := &mockGateway{}
	svc := NewService(gw, config.CheckoutConfig{
		Currency:   "eur",
		SuccessURL: "https://studio.test/success",
		CancelURL:  "https://studio.test/cancel",
		StudioName: "Vestige Live Studio",
	})
	h := NewHandler(svc, nil, nil)

	router := gin.New()
	router.POST("/create-checkout-session", h.CreateCheckoutSession)
	router.POST("/start-checkout", h.StartCheckout)
	router.POST("/create-donation-intent", h.CreateDonationIntent)
	return &testServer{gateway: gw, router: router}
}

func (ts *testServer) post(t *testing.T, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

const salsaBody = `{
	"nom": "Dupont",
	"prenom": "Marie",
	"age": 34,
	"email": "a@b.com",
	"telephone": "0600000000",
	"ville": "Lyon",
	"course": {"style": "Salsa", "date": "2024-05-01", "time": "18:00", "teacher": "X", "level": "Débutant", "price": 45},
	"amount": 45
}`

func TestCreateCheckoutSession(t *testing.T) {
	ts := newTestServer()
	w, out := ts.post(t, "/create-checkout-session", salsaBody)

	require.Equal(t, http.StatusOK, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "cs_test_123", data["id"])
	assert.NotEmpty(t, data["url"])

	p := ts.gateway.sessionParams
	require.NotNil(t, p)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(4500), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "eur", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, "Cours: Salsa - 2024-05-01 (18:00)", *p.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, "a@b.com", *p.CustomerEmail)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *p.Mode)
	require.NotNil(t, p.IdempotencyKey)
	assert.NotEmpty(t, *p.IdempotencyKey)

	// Metadata must come back out of the webhook as the same registrant.
	reg, course, err := records.DecodeCourseMetadata(p.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "Dupont", reg.Nom)
	assert.Equal(t, models.FlexString("34"), reg.Age)
	assert.Equal(t, models.FlexString("Non"), reg.PremierCours)
	assert.Equal(t, "Salsa", course.Style)
	assert.Equal(t, "cours", p.Metadata[records.MetaType])
}

func TestCreateCheckoutSessionUsesCoursePriceWithoutAmount(t *testing.T) {
	ts := newTestServer()
	body := `{"nom":"Dupont","email":"a@b.com","course":{"style":"Rock","date":"2024-06-01","price":"19.90"}}`
	w, _ := ts.post(t, "/create-checkout-session", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1990), *ts.gateway.sessionParams.LineItems[0].PriceData.UnitAmount)
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"NegativeAmount", `{"nom":"D","email":"a@b.com","course":{"style":"Salsa","date":"d"},"amount":-1}`},
		{"ThreeDecimals", `{"nom":"D","email":"a@b.com","course":{"style":"Salsa","date":"d"},"amount":10.005}`},
		{"AmountOverflowsCents", `{"nom":"D","email":"a@b.com","course":{"style":"Salsa","date":"d"},"amount":1e20}`},
		{"PriceAboveMaximum", `{"nom":"D","email":"a@b.com","course":{"style":"Salsa","date":"d","price":1000000}}`},
		{"BadEmail", `{"nom":"D","email":"not-an-email","course":{"style":"Salsa","date":"d"},"amount":10}`},
		{"MissingCourse", `{"nom":"D","email":"a@b.com","amount":10}`},
		{"MissingName", `{"email":"a@b.com","course":{"style":"Salsa","date":"d"},"amount":10}`},
		{"Malformed", `{"nom":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			w, out := ts.post(t, "/create-checkout-session", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, out["success"])
			assert.Nil(t, ts.gateway.sessionParams, "processor must not be called")
		})
	}
}

func TestCreateCheckoutSessionProcessorError(t *testing.T) {
	ts := newTestServer()
	ts.gateway.err = errors.New("card_error: invalid amount")

	w, out := ts.post(t, "/create-checkout-session", salsaBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to create payment session", out["error"])
}

func TestStartCheckout(t *testing.T) {
	ts := newTestServer()
	w, out := ts.post(t, "/start-checkout", `{"nom":"Martin","prenom":"Paul","email":"p@m.fr","tarif":"30"}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", data["url"])

	p := ts.gateway.sessionParams
	assert.Equal(t, int64(3000), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "Inscription Vestige Live Studio", *p.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, map[string]string{
		"type":   "cours",
		"nom":    "Martin",
		"prenom": "Paul",
		"email":  "p@m.fr",
		"tarif":  "30",
	}, p.Metadata)
}

func TestCreateDonationIntent(t *testing.T) {
	ts := newTestServer()
	w, out := ts.post(t, "/create-donation-intent", `{"amount":25.5,"donateur":"Jeanne","email":"j@d.org","message":"Bravo"}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "pi_test_123", data["id"])
	assert.Equal(t, "pi_test_123_secret_abc", data["client_secret"])

	p := ts.gateway.intentParams
	require.NotNil(t, p)
	assert.Equal(t, int64(2550), *p.Amount)
	assert.Equal(t, "don", p.Metadata[records.MetaType])
	assert.Equal(t, "25.50", p.Metadata[records.MetaMontant])
	assert.Equal(t, "Bravo", p.Metadata[records.MetaMessage])
	assert.Equal(t, "j@d.org", *p.ReceiptEmail)
}

func TestCreateDonationIntentRejectsNegative(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.post(t, "/create-donation-intent", `{"amount":-5,"donateur":"Jeanne","email":"j@d.org"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, ts.gateway.intentParams)
}
