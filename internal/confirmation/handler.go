// Package confirmation finalizes card checkouts when the payment processor sends the
// visitor back. The staged intent is consumed exactly once.
package confirmation

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
)

type State string

const (
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Reason explains a failed confirmation.
type Reason string

const (
	ReasonPaymentNotSucceeded Reason = "payment_not_succeeded"
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonPaymentUnverified   Reason = "payment_unverified"
	ReasonIntentMissing       Reason = "intent_missing"
	ReasonIntentEmpty         Reason = "intent_empty"
	ReasonOrderFailed         Reason = "order_failed"
)

const (
	nextOnSuccess = "/orders"
	nextOnFailure = "/checkout"
	metricStage   = "confirmation"
)

var reasonMessages = map[Reason]string{
	ReasonPaymentNotSucceeded: "payment was not completed",
	ReasonUnauthenticated:     "sign in to finish your order",
	ReasonPaymentUnverified:   "payment could not be verified",
	ReasonIntentMissing:       "order already processed or invalid",
	ReasonIntentEmpty:         "no items to order",
	ReasonOrderFailed:         "order could not be created",
}

// Params are the query parameters the processor appends to the return URL.
type Params struct {
	RedirectStatus string
	PaymentIntent  string
	ClientSecret   string
}

type Result struct {
	State  State          `json:"state"`
	Reason Reason         `json:"reason,omitempty"`
	Order  orders.Summary `json:"order,omitempty"`
	Next   string         `json:"next"`
}

type HandlerParams struct {
	Store  storage.Store
	Carts  cart.Service
	Orders orders.Creator
	// Verifier is optional; when set the processor must confirm the intent succeeded.
	Verifier payments.Verifier
	Metrics  *metrics.WorkflowMetrics
	Logger   *logger.Logger
}

type Handler struct {
	store    storage.Store
	carts    cart.Service
	orders   orders.Creator
	verifier payments.Verifier
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
}

func NewHandler(p HandlerParams) (*Handler, error) {
	if p.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service required")
	}
	if p.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order creator required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Handler{
		store:    p.Store,
		carts:    p.Carts,
		orders:   p.Orders,
		verifier: p.Verifier,
		metrics:  p.Metrics,
		logg:     p.Logger,
	}, nil
}

// Handle runs the confirmation. Failed results are returned together with a
// CodePaymentFailed error carrying the state, reason and next location.
func (h *Handler) Handle(ctx context.Context, visitorID, token string, p Params) (Result, error) {
	ctx = h.logg.WithFields(ctx, map[string]any{
		"redirect_status": p.RedirectStatus,
		"payment_intent":  p.PaymentIntent,
	})

	if !strings.EqualFold(strings.TrimSpace(p.RedirectStatus), "succeeded") {
		return h.fail(ctx, ReasonPaymentNotSucceeded, nil)
	}
	if token == "" {
		return h.fail(ctx, ReasonUnauthenticated, nil)
	}

	if h.verifier != nil {
		intentID := strings.TrimSpace(p.PaymentIntent)
		if intentID == "" {
			intentID = payments.IntentIDFromSecret(p.ClientSecret)
		}
		if err := h.verifier.Verify(ctx, intentID); err != nil {
			return h.fail(ctx, ReasonPaymentUnverified, err)
		}
	}

	intent, err := orders.Consume(ctx, h.store, visitorID)
	switch {
	case errors.Is(err, orders.ErrIntentMissing):
		return h.fail(ctx, ReasonIntentMissing, err)
	case errors.Is(err, orders.ErrIntentEmpty):
		return h.fail(ctx, ReasonIntentEmpty, err)
	case err != nil:
		return Result{State: StateFailed, Next: nextOnFailure}, err
	}

	summary, err := h.orders.Create(ctx, token, orders.Submission{
		ShippingAddress: intent.ShippingAddress,
		PaymentMethod:   orders.PaymentCreditCard,
		Items:           intent.Items,
	})
	if err != nil {
		// the intent stays consumed: a paid order is never retried implicitly
		return h.fail(ctx, ReasonOrderFailed, err)
	}

	if err := orders.CacheSummary(ctx, h.store, visitorID, summary); err != nil {
		h.logg.Error(ctx, "confirmation.cache_summary_failed", err)
	}
	if err := h.carts.Clear(ctx, visitorID); err != nil {
		h.logg.Error(ctx, "confirmation.clear_cart_failed", err)
	}

	h.metrics.Record(metricStage, string(StateSucceeded))
	h.logg.Info(ctx, "confirmation.order_created")
	return Result{State: StateSucceeded, Order: summary, Next: nextOnSuccess}, nil
}

func (h *Handler) fail(ctx context.Context, reason Reason, cause error) (Result, error) {
	h.metrics.Record(metricStage, string(reason))

	result := Result{State: StateFailed, Reason: reason, Next: nextOnFailure}
	message := reasonMessages[reason]
	var typed *pkgerrors.Error
	if cause != nil {
		typed = pkgerrors.Wrap(pkgerrors.CodePaymentFailed, cause, message)
	} else {
		typed = pkgerrors.New(pkgerrors.CodePaymentFailed, message)
	}
	h.logg.Warn(h.logg.WithField(ctx, "reason", string(reason)), "confirmation.failed")
	return result, typed.WithDetails(map[string]string{
		"state":  string(result.State),
		"reason": string(reason),
		"next":   result.Next,
	})
}
