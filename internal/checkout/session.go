// Package checkout drives a visitor from shipping address to a created order, either
// directly or through the external card processor.
package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// State is a checkout session state.
type State string

const (
	StateCollectingAddress       State = "collecting_address"
	StateSelectingPaymentMethod  State = "selecting_payment_method"
	StateDirectSubmit            State = "direct_submit"
	StateAwaitingExternalPayment State = "awaiting_external_payment"
	StateSubmitted               State = "submitted"
)

// Session is one checkout attempt. The zero value is not usable; call NewSession.
type Session struct {
	state           State
	address         orders.ShippingAddress
	method          orders.PaymentMethod
	clientSecret    string
	paymentMethodID string
}

func NewSession() *Session {
	return &Session{state: StateCollectingAddress}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Address() orders.ShippingAddress {
	return s.address
}

func (s *Session) PaymentMethod() orders.PaymentMethod {
	return s.method
}

// Loading reports a card checkout still waiting for its payment form.
func (s *Session) Loading() bool {
	return s.method.IsCard() && s.clientSecret == ""
}

// SetAddress validates addr. On failure the session returns to collecting the address.
func (s *Session) SetAddress(addr orders.ShippingAddress) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	normalized, err := addr.Validate()
	if err != nil {
		s.state = StateCollectingAddress
		return err
	}
	s.address = normalized
	s.state = StateSelectingPaymentMethod
	if s.method != "" {
		s.applyMethod()
	}
	return nil
}

// SelectPaymentMethod records the method. Non-card methods are ready to submit
// immediately; card waits for AttachClientSecret.
func (s *Session) SelectPaymentMethod(raw string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	method, err := orders.ParsePaymentMethod(raw)
	if err != nil {
		return err
	}
	if method != s.method {
		s.clientSecret = ""
	}
	s.method = method
	if s.state != StateCollectingAddress {
		s.applyMethod()
	}
	return nil
}

// AttachClientSecret completes the card payment form. paymentMethodID is optional.
func (s *Session) AttachClientSecret(secret, paymentMethodID string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if !s.method.IsCard() {
		return pkgerrors.New(pkgerrors.CodeValidation, "client secret only applies to card payments")
	}
	s.clientSecret = strings.TrimSpace(secret)
	s.paymentMethodID = strings.TrimSpace(paymentMethodID)
	return nil
}

// ready checks that the session can be submitted.
func (s *Session) ready() error {
	switch {
	case s.state == StateSubmitted || s.state == StateAwaitingExternalPayment:
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout already submitted")
	case s.state == StateCollectingAddress:
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	case s.method == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	case s.Loading():
		return pkgerrors.New(pkgerrors.CodePaymentNotReady, "payment form not ready")
	}
	return nil
}

func (s *Session) applyMethod() {
	if s.method.IsCard() {
		s.state = StateSelectingPaymentMethod
		return
	}
	s.state = StateDirectSubmit
}

func (s *Session) ensureOpen() error {
	if s.state == StateSubmitted || s.state == StateAwaitingExternalPayment {
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout already submitted")
	}
	return nil
}
