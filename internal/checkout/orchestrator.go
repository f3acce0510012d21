package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const metricStage = "checkout"

// NextOrders is where a visitor goes after an order is created.
const NextOrders = "/orders"

// Result describes what happened to a submitted session.
type Result struct {
	State       State             `json:"state"`
	Next        string            `json:"next,omitempty"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	Payment     *payments.Handoff `json:"payment,omitempty"`
	Order       orders.Summary    `json:"order,omitempty"`
}

// Params groups the orchestrator dependencies.
type Params struct {
	Carts     cart.Service
	Catalog   cart.ProductLister
	Orders    orders.Creator
	Intents   payments.IntentProvider
	Processor payments.Processor
	Store     storage.Store
	ReturnURL string
	Metrics   *metrics.WorkflowMetrics
	Logger    *logger.Logger
}

// Orchestrator runs checkout submissions.
type Orchestrator struct {
	carts     cart.Service
	catalog   cart.ProductLister
	orders    orders.Creator
	intents   payments.IntentProvider
	processor payments.Processor
	store     storage.Store
	returnURL string
	metrics   *metrics.WorkflowMetrics
	logg      *logger.Logger
}

func NewOrchestrator(p Params) (*Orchestrator, error) {
	if p.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service required")
	}
	if p.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order creator required")
	}
	if p.Processor == nil {
		p.Processor = payments.BrowserProcessor{}
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Orchestrator{
		carts:     p.Carts,
		catalog:   p.Catalog,
		orders:    p.Orders,
		intents:   p.Intents,
		processor: p.Processor,
		store:     p.Store,
		returnURL: p.ReturnURL,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

// PaymentSession creates a payment intent for the visitor's current cart total.
func (o *Orchestrator) PaymentSession(ctx context.Context, visitorID, token string) (payments.Intent, error) {
	if token == "" {
		return payments.Intent{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if o.intents == nil || o.catalog == nil {
		return payments.Intent{}, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	summary, err := o.carts.Summary(ctx, visitorID, o.catalog)
	if err != nil {
		return payments.Intent{}, err
	}
	if summary.ItemCount == 0 {
		return payments.Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	total, err := decimal.NewFromString(summary.Total)
	if err != nil {
		return payments.Intent{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse cart total")
	}
	return o.intents.CreateIntent(ctx, token, total)
}

// Submit finishes the session. Direct methods create the order now; card payments
// stage the pending intent and hand the visitor to the processor.
func (o *Orchestrator) Submit(ctx context.Context, visitorID, token string, session *Session) (Result, error) {
	if token == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if session == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	if err := session.ready(); err != nil {
		return Result{State: session.state}, err
	}

	items, err := o.carts.Get(ctx, visitorID)
	if err != nil {
		return Result{State: session.state}, err
	}
	if len(items) == 0 {
		return Result{State: session.state}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ctx = o.logg.WithFields(ctx, map[string]any{
		"payment_method": string(session.method),
		"item_count":     len(items),
	})

	if session.method.IsCard() {
		return o.handOff(ctx, visitorID, session, items)
	}
	return o.submitDirect(ctx, visitorID, token, session, items)
}

func (o *Orchestrator) submitDirect(ctx context.Context, visitorID, token string, session *Session, items []cart.Item) (Result, error) {
	summary, err := o.orders.Create(ctx, token, orders.Submission{
		ShippingAddress: session.address,
		PaymentMethod:   session.method,
		Items:           items,
	})
	if err != nil {
		o.metrics.Record(metricStage, "failed")
		return Result{State: session.state}, err
	}

	if err := orders.CacheSummary(ctx, o.store, visitorID, summary); err != nil {
		o.logg.Error(ctx, "checkout.cache_summary_failed", err)
	}
	if err := o.carts.Clear(ctx, visitorID); err != nil {
		o.logg.Error(ctx, "checkout.clear_cart_failed", err)
	}

	session.state = StateSubmitted
	o.metrics.Record(metricStage, "submitted")
	o.logg.Info(ctx, "checkout.order_created")
	return Result{State: session.state, Next: NextOrders, Order: summary}, nil
}

func (o *Orchestrator) handOff(ctx context.Context, visitorID string, session *Session, items []cart.Item) (Result, error) {
	if err := orders.Stage(ctx, o.store, visitorID, orders.PendingIntent{
		ShippingAddress: session.address,
		Items:           items,
	}); err != nil {
		o.metrics.Record(metricStage, "stage_failed")
		return Result{State: session.state}, err
	}

	handoff, err := o.processor.Confirm(ctx, payments.ConfirmRequest{
		ClientSecret:    session.clientSecret,
		PaymentMethodID: session.paymentMethodID,
		ReturnURL:       o.returnURL,
	})
	if err != nil {
		o.metrics.Record(metricStage, "confirm_failed")
		return Result{State: session.state}, err
	}

	session.state = StateAwaitingExternalPayment
	o.metrics.Record(metricStage, "awaiting_payment")
	o.logg.Info(ctx, "checkout.handed_to_processor")
	return Result{State: session.state, RedirectURL: handoff.RedirectURL, Payment: &handoff}, nil
}
