package storefront

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/confirmation"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/payments"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// CheckoutRunner is implemented by *checkout.Orchestrator.
type CheckoutRunner interface {
	PaymentSession(ctx context.Context, visitorID, token string) (payments.Intent, error)
	Submit(ctx context.Context, visitorID, token string, session *checkout.Session) (checkout.Result, error)
}

// Confirmer is implemented by *confirmation.Handler.
type Confirmer interface {
	Handle(ctx context.Context, visitorID, token string, p confirmation.Params) (confirmation.Result, error)
}

type checkoutRequest struct {
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
	ClientSecret    string                 `json:"clientSecret"`
	PaymentMethodID string                 `json:"paymentMethodId"`
}

func (req checkoutRequest) session() (*checkout.Session, error) {
	session := checkout.NewSession()
	if err := session.SetAddress(req.ShippingAddress); err != nil {
		return nil, err
	}
	if err := session.SelectPaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	if session.PaymentMethod().IsCard() {
		if err := session.AttachClientSecret(req.ClientSecret, req.PaymentMethodID); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// PaymentSession creates the processor intent for the current cart total.
func PaymentSession(runner CheckoutRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			unavailable(w, r, logg, "checkout")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		intent, err := runner.PaymentSession(r.Context(), visitorID, middleware.TokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// Checkout submits the visitor's cart. Direct methods answer 201 with the order;
// card payments answer 200 with the processor handoff.
func Checkout(runner CheckoutRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			unavailable(w, r, logg, "checkout")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := payload.session()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := runner.Submit(r.Context(), visitorID, middleware.TokenFromContext(r.Context()), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.State == checkout.StateSubmitted {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// LastOrder returns the summary cached by the most recent successful checkout.
func LastOrder(store storage.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			unavailable(w, r, logg, "visitor storage")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		summary, err := orders.LastSummary(r.Context(), store, visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// PaymentConfirmation handles the processor's return redirect.
func PaymentConfirmation(confirmer Confirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if confirmer == nil {
			unavailable(w, r, logg, "payment confirmation")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		q := r.URL.Query()
		result, err := confirmer.Handle(r.Context(), visitorID, middleware.TokenFromContext(r.Context()), confirmation.Params{
			RedirectStatus: q.Get("redirect_status"),
			PaymentIntent:  q.Get("payment_intent"),
			ClientSecret:   q.Get("payment_intent_client_secret"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
