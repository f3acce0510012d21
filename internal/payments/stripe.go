package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	pkgstripe "github.com/angelmondragon/storefront/pkg/stripe"
)

// intentAPI is the subset of Stripe payment intent operations in use.
type intentAPI interface {
	New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type stripeIntents struct{}

func (stripeIntents) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (stripeIntents) Get(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.Get(id, params)
}

func (stripeIntents) Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.Confirm(id, params)
}

// Stripe talks to Stripe directly. It is an IntentProvider, a Processor and a
// Verifier.
type Stripe struct {
	api      intentAPI
	currency string
}

// NewStripe requires an initialized client (which also sets the API key).
func NewStripe(client *pkgstripe.Client) (*Stripe, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe client is required")
	}
	return &Stripe{api: stripeIntents{}, currency: client.Currency()}, nil
}

func (s *Stripe) CreateIntent(ctx context.Context, _ string, amount decimal.Decimal) (Intent, error) {
	cents, err := MinorUnits(amount)
	if err != nil {
		return Intent{}, err
	}
	pi, err := s.api.New(ctx, &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	})
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Confirm confirms server-side when a payment method was collected; otherwise the
// browser SDK confirms with the client secret.
func (s *Stripe) Confirm(ctx context.Context, req ConfirmRequest) (Handoff, error) {
	if req.PaymentMethodID == "" {
		return BrowserProcessor{}.Confirm(ctx, req)
	}
	intentID := IntentIDFromSecret(req.ClientSecret)
	if intentID == "" {
		return Handoff{}, pkgerrors.New(pkgerrors.CodePaymentNotReady, "payment form not ready")
	}

	pi, err := s.api.Confirm(ctx, intentID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethodID),
		ReturnURL:     stripe.String(req.ReturnURL),
	})
	if err != nil {
		return Handoff{}, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment could not be confirmed")
	}

	handoff := Handoff{ClientSecret: req.ClientSecret, ReturnURL: req.ReturnURL}
	switch {
	case pi.NextAction != nil && pi.NextAction.RedirectToURL != nil && pi.NextAction.RedirectToURL.URL != "":
		handoff.RedirectURL = pi.NextAction.RedirectToURL.URL
	case pi.Status == stripe.PaymentIntentStatusSucceeded || pi.Status == stripe.PaymentIntentStatusProcessing:
		handoff.RedirectURL = ReturnLocation(req.ReturnURL, pi.ID, req.ClientSecret, string(pi.Status))
	default:
		return Handoff{}, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment could not be confirmed").
			WithDetails(map[string]string{"status": string(pi.Status)})
	}
	return handoff, nil
}

// Verify fails unless Stripe reports the intent as succeeded.
func (s *Stripe) Verify(ctx context.Context, intentID string) error {
	if intentID == "" {
		return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment intent missing")
	}
	pi, err := s.api.Get(ctx, intentID, &stripe.PaymentIntentParams{})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment not completed").
			WithDetails(map[string]string{"status": string(pi.Status)})
	}
	return nil
}
