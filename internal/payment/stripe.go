package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
)

// StripeID is the gateway id of the Stripe gateway.
const StripeID = "stripe"

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Stripe creates a PaymentIntent for the order. The client confirms it with
// the returned client secret; the order stays pending until then.
type Stripe struct {
	intents stripeIntentAPI
	logger  *zap.Logger
}

// NewStripe builds the gateway from a secret key. backends may be nil.
func NewStripe(apiKey string, backends *stripe.Backends, logger *zap.Logger) (*Stripe, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(apiKey, backends)
	return newStripe(sc.PaymentIntents, logger), nil
}

func newStripe(intents stripeIntentAPI, logger *zap.Logger) *Stripe {
	return &Stripe{intents: intents, logger: logging.OrNop(logger).Named("stripe_gateway")}
}

func (g *Stripe) ID() string    { return StripeID }
func (g *Stripe) Title() string { return "Credit card (Stripe)" }

func (g *Stripe) Process(ctx context.Context, order *domain.Order) (*domain.PaymentResult, error) {
	if order.TotalCents <= 0 {
		return nil, fmt.Errorf("stripe: order %d has nothing to charge", order.ID)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.TotalCents),
		Currency: stripe.String(strings.ToLower(order.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	// retries of the same order reuse the intent
	params.SetIdempotencyKey(order.OrderKey)
	params.AddMetadata("order_id", strconv.FormatInt(order.ID, 10))
	params.AddMetadata("order_key", order.OrderKey)
	if email := order.Billing["email"]; email != "" {
		params.ReceiptEmail = stripe.String(email)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	g.logger.Info("payment intent created",
		zap.Int64("order_id", order.ID),
		zap.String("payment_intent", intent.ID),
		zap.String("status", string(intent.Status)),
	)
	return &domain.PaymentResult{
		Result:        ResultSuccess,
		OrderID:       order.ID,
		Status:        domain.OrderPending,
		Gateway:       StripeID,
		TransactionID: intent.ID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}
