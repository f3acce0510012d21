package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Requester is the slice of the backend client used for payment intents.
type Requester interface {
	JSON(ctx context.Context, req backend.Request, out any) error
}

type backendProvider struct {
	backend  Requester
	currency string
}

// NewBackendProvider creates intents through the backend payment endpoint.
func NewBackendProvider(b Requester, currency string) (IntentProvider, error) {
	if b == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment backend is required")
	}
	return &backendProvider{backend: b, currency: strings.ToLower(currency)}, nil
}

type createIntentRequest struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency,omitempty"`
}

func (p *backendProvider) CreateIntent(ctx context.Context, token string, amount decimal.Decimal) (Intent, error) {
	if _, err := MinorUnits(amount); err != nil {
		return Intent{}, err
	}
	body, err := backend.JSONBody(createIntentRequest{
		Amount:   json.Number(amount.StringFixed(2)),
		Currency: p.currency,
	})
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment intent")
	}

	var out Intent
	err = p.backend.JSON(ctx, backend.Request{
		Method:      http.MethodPost,
		Path:        "/api/payment/create-payment-intent",
		Token:       token,
		Body:        body,
		ContentType: "application/json",
	}, &out)
	if err != nil {
		return Intent{}, backend.Classify(err, "create payment intent")
	}
	if out.ClientSecret == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no client secret")
	}
	if out.ID == "" {
		out.ID = IntentIDFromSecret(out.ClientSecret)
	}
	return out, nil
}
