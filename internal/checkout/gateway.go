package checkout

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/config"
)

// Gateway is the part of the processor API the initiator uses.
type Gateway interface {
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway calls Stripe through a client built for this process only.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a Stripe client with an explicit timeout and no
// automatic network retries.
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout()},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &StripeGateway{api: api}
}

// NewCheckoutSession creates a hosted checkout session.
func (g *StripeGateway) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return g.api.CheckoutSessions.New(params)
}

// NewPaymentIntent creates a payment intent confirmed client-side.
func (g *StripeGateway) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return g.api.PaymentIntents.New(params)
}
