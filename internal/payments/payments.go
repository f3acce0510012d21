// Package payments adapts the card payment processor: creating payment intents,
// confirming them with a return URL and verifying their final status.
package payments

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Intent is a created payment intent. ClientSecret is what the browser or the
// processor needs to confirm it.
type Intent struct {
	ID           string `json:"id,omitempty"`
	ClientSecret string `json:"clientSecret"`
}

// IntentProvider creates payment intents for an amount in major currency units.
type IntentProvider interface {
	CreateIntent(ctx context.Context, token string, amount decimal.Decimal) (Intent, error)
}

// ConfirmRequest asks the processor to confirm an intent. Without a PaymentMethodID
// the confirmation is handed to the browser.
type ConfirmRequest struct {
	ClientSecret    string
	PaymentMethodID string
	ReturnURL       string
}

// Handoff tells the visitor where to go next. RedirectURL is set when the processor
// produced one; otherwise the browser confirms ClientSecret itself and the processor
// redirects to ReturnURL.
type Handoff struct {
	RedirectURL  string `json:"redirectUrl,omitempty"`
	ClientSecret string `json:"clientSecret"`
	ReturnURL    string `json:"returnUrl"`
}

// Processor confirms staged card payments.
type Processor interface {
	Confirm(ctx context.Context, req ConfirmRequest) (Handoff, error)
}

// Verifier checks with the processor that an intent really succeeded.
type Verifier interface {
	Verify(ctx context.Context, intentID string) error
}

// BrowserProcessor leaves confirmation to the processor's browser SDK.
type BrowserProcessor struct{}

func (BrowserProcessor) Confirm(_ context.Context, req ConfirmRequest) (Handoff, error) {
	if strings.TrimSpace(req.ClientSecret) == "" {
		return Handoff{}, pkgerrors.New(pkgerrors.CodePaymentNotReady, "payment form not ready")
	}
	return Handoff{ClientSecret: req.ClientSecret, ReturnURL: req.ReturnURL}, nil
}

// IntentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromSecret(secret string) string {
	id, _, found := strings.Cut(secret, "_secret_")
	if !found {
		return ""
	}
	return id
}

// MinorUnits converts an amount to the smallest currency unit (cents).
func MinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Shift(2).Round(0)
	if !cents.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return cents.IntPart(), nil
}

// ReturnLocation builds the URL the processor appends to when it sends the visitor
// back, with the same query parameters the hosted flow uses.
func ReturnLocation(returnURL string, intentID, clientSecret, status string) string {
	q := url.Values{}
	q.Set("payment_intent", intentID)
	q.Set("payment_intent_client_secret", clientSecret)
	q.Set("redirect_status", status)
	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}
	return returnURL + sep + q.Encode()
}
