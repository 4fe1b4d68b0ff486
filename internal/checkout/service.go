// Package checkout creates payment sessions for course registrations and donations.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
	"github.com/vestige-studio/payments-bridge/internal/validation"
)

var (
	// ErrValidation wraps input the processor must never see.
	ErrValidation = errors.New("invalid payment request")
	// ErrProcessor wraps a processor rejection or transport failure.
	ErrProcessor = errors.New("payment processor error")
)

// CourseCheckout is the body for a paid course registration.
type CourseCheckout struct {
	models.Registrant
	Course models.Course    `json:"course"`
	Amount decimal.Decimal `json:"amount" binding:"money"`
}

// Charge returns the amount to bill: the explicit amount, else the course price.
func (r CourseCheckout) Charge() decimal.Decimal {
	if r.Amount.IsZero() {
		return r.Course.Price
	}
	return r.Amount
}

// Inscription is the body for the flat studio inscription checkout.
type Inscription struct {
	Nom    string          `json:"nom" binding:"required"`
	Prenom string          `json:"prenom"`
	Email  string          `json:"email" binding:"required,email"`
	Tarif  decimal.Decimal `json:"tarif" binding:"money"`
}

// Service builds processor requests from submitted form data.
type Service struct {
	gateway  Gateway
	checkout config.CheckoutConfig
	newKey   func() string
}

// NewService creates a checkout service.
func NewService(gateway Gateway, cfg config.CheckoutConfig) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	return &Service{gateway: gateway, checkout: cfg, newKey: func() string { return uuid.New().String() }}
}

// CreateCourseSession creates a hosted checkout for a course, carrying the
// registrant and course as serialized metadata.
func (s *Service) CreateCourseSession(ctx context.Context, req CourseCheckout) (*models.PaymentSession, error) {
	amount := req.Charge()
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	md, err := records.CourseMetadata(req.Registrant, req.Course)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	name := fmt.Sprintf("Cours: %s - %s (%s)", req.Course.Style, req.Course.Date, req.Course.Time)
	return s.hostedSession(ctx, name, req.Email, amount, md)
}

// CreateInscriptionSession creates a hosted checkout for a flat inscription.
func (s *Service) CreateInscriptionSession(ctx context.Context, req Inscription) (*models.PaymentSession, error) {
	if err := checkAmount(req.Tarif); err != nil {
		return nil, err
	}
	md, err := records.InscriptionMetadata(req.Nom, req.Prenom, req.Email, req.Tarif.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.hostedSession(ctx, "Inscription "+s.checkout.StudioName, req.Email, req.Tarif, md)
}

// CreateDonationIntent creates a payment intent whose client secret the
// browser uses to confirm the donation.
func (s *Service) CreateDonationIntent(ctx context.Context, d models.Donation) (*models.PaymentSession, error) {
	if err := checkAmount(d.Amount); err != nil {
		return nil, err
	}
	md, err := records.DonationMetadata(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(records.ToCents(d.Amount)),
		Currency:     stripe.String(s.checkout.Currency),
		ReceiptEmail: stripe.String(d.DonorEmail),
		Description:  stripe.String("Don " + s.checkout.StudioName),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: md,
	}
	params.SetIdempotencyKey(s.newKey())

	pi, err := s.gateway.NewPaymentIntent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	return &models.PaymentSession{ID: pi.ID, ClientSecret: pi.ClientSecret, Flow: models.FlowDonation}, nil
}

func (s *Service) hostedSession(ctx context.Context, product, email string, amount decimal.Decimal, md map[string]string) (*models.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(s.checkout.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(product),
				},
				UnitAmount: stripe.Int64(records.ToCents(amount)),
			},
			Quantity: stripe.Int64(1),
		}},
		CustomerEmail: stripe.String(email),
		SuccessURL:    stripe.String(s.checkout.SuccessURL),
		CancelURL:     stripe.String(s.checkout.CancelURL),
		Metadata:      md,
	}
	params.SetIdempotencyKey(s.newKey())

	sess, err := s.gateway.NewCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	return &models.PaymentSession{ID: sess.ID, URL: sess.URL, Flow: models.FlowCourse}, nil
}

func checkAmount(amount decimal.Decimal) error {
	if !validation.IsMoney(amount) {
		return fmt.Errorf("%w: amount %s must be between 0 and %s with at most 2 decimals", ErrValidation, amount, validation.MaxAmount.StringFixed(2))
	}
	return nil
}
