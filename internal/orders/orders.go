// Package orders holds the order submission contract shared by direct checkout and the
// card return flow, and the visitor-local staging of a pending card checkout.
package orders

import (
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// PaymentMethod is the payment option chosen at checkout.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentPayPal         PaymentMethod = "PAYPAL"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// ParsePaymentMethod accepts the method names case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw))); m {
	case PaymentCreditCard, PaymentPayPal, PaymentCashOnDelivery:
		return m, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": raw})
	}
}

// IsCard reports whether the method is settled through the external card processor.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentCreditCard
}

// ShippingAddress is where the order ships. Every field is required.
type ShippingAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// Validate trims the address and checks that every field is present.
func (a ShippingAddress) Validate() (ShippingAddress, error) {
	normalized := a.Normalize()
	if err := validation.Struct(normalized); err != nil {
		return a, err
	}
	return normalized, nil
}

// Submission is the body of the unified order-creation request.
type Submission struct {
	ShippingAddress ShippingAddress `json:"shippingAddress" validate:"required"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" validate:"required,oneof=CREDIT_CARD PAYPAL CASH_ON_DELIVERY"`
	Items           []cart.Item     `json:"items" validate:"required,min=1,dive"`
}

// Validate checks the submission before it is sent to the backend.
func (s Submission) Validate() error {
	return validation.Struct(s)
}

// Summary is the backend's order representation, kept verbatim.
type Summary = json.RawMessage

// PendingIntent is the checkout state staged before the card processor redirect.
type PendingIntent struct {
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Items           []cart.Item     `json:"items"`
}
