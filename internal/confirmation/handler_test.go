package confirmation

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
)

const visitor = "visitor-1"

type stubCreator struct {
	mu    sync.Mutex
	calls []orders.Submission
	err   error
}

func (s *stubCreator) Create(_ context.Context, _ string, sub orders.Submission) (orders.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sub)
	if s.err != nil {
		return nil, s.err
	}
	return orders.Summary(`{"id":42}`), nil
}

type stubVerifier struct {
	ids []string
	err error
}

func (s *stubVerifier) Verify(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

type fixture struct {
	store   *memory.Store
	carts   cart.Service
	creator *stubCreator
	handler *Handler
}

func newFixture(t *testing.T, verifier *stubVerifier) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:   store,
		carts:   cart.NewService(cart.ServiceParams{Store: store, ShippingCost: decimal.Zero}),
		creator: &stubCreator{},
	}
	params := HandlerParams{Store: store, Carts: f.carts, Orders: f.creator}
	if verifier != nil {
		params.Verifier = verifier
	}
	h, err := NewHandler(params)
	require.NoError(t, err)
	f.handler = h
	return f
}

func (f *fixture) stage(t *testing.T, items []cart.Item) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.Replace(ctx, visitor, items)
	require.NoError(t, err)
	require.NoError(t, orders.Stage(ctx, f.store, visitor, orders.PendingIntent{
		ShippingAddress: orders.ShippingAddress{Street: "1 Main", City: "Town", State: "ST", ZipCode: "1", Country: "US"},
		Items:           items,
	}))
}

func succeeded() Params {
	return Params{RedirectStatus: "succeeded", PaymentIntent: "pi_1", ClientSecret: "pi_1_secret_a"}
}

func requireFailed(t *testing.T, res Result, err error, reason Reason) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, reason, res.Reason)
	assert.Equal(t, "/checkout", res.Next)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentFailed, typed.Code())
	assert.Equal(t, map[string]string{"state": "failed", "reason": string(reason), "next": "/checkout"}, typed.Details())
}

func TestHandleSucceedsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 2}})

	res, err := f.handler.Handle(ctx, visitor, "tok", succeeded())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, "/orders", res.Next)
	assert.JSONEq(t, `{"id":42}`, string(res.Order))

	require.Len(t, f.creator.calls, 1)
	assert.Equal(t, orders.PaymentCreditCard, f.creator.calls[0].PaymentMethod)
	assert.Equal(t, []cart.Item{{ProductID: 5, Quantity: 2}}, f.creator.calls[0].Items)

	items, _ := f.carts.Get(ctx, visitor)
	assert.Empty(t, items)
	last, err := orders.LastSummary(ctx, f.store, visitor)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42}`, string(last))

	res, err = f.handler.Handle(ctx, visitor, "tok", succeeded())
	requireFailed(t, res, err, ReasonIntentMissing)
	assert.Len(t, f.creator.calls, 1, "re-run must not create a second order")
}

func TestHandleNonSucceededStatusLeavesIntent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 1}})

	for _, status := range []string{"failed", "", "requires_payment_method"} {
		res, err := f.handler.Handle(ctx, visitor, "tok", Params{RedirectStatus: status})
		requireFailed(t, res, err, ReasonPaymentNotSucceeded)
	}
	assert.Empty(t, f.creator.calls)

	_, found, _ := f.store.Get(ctx, visitor, storage.KeyPendingCartItems)
	assert.True(t, found, "staged intent must survive a failed payment")
}

func TestHandleWithoutTokenFails(t *testing.T) {
	f := newFixture(t, nil)
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 1}})

	res, err := f.handler.Handle(context.Background(), visitor, "", succeeded())
	requireFailed(t, res, err, ReasonUnauthenticated)
	assert.Empty(t, f.creator.calls)
}

func TestHandleWithoutStagedIntent(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.handler.Handle(context.Background(), visitor, "tok", succeeded())
	requireFailed(t, res, err, ReasonIntentMissing)
	assert.Empty(t, f.creator.calls)
}

func TestHandleEmptyStagedItems(t *testing.T) {
	f := newFixture(t, nil)
	f.stage(t, []cart.Item{})
	res, err := f.handler.Handle(context.Background(), visitor, "tok", succeeded())
	requireFailed(t, res, err, ReasonIntentEmpty)
	assert.Empty(t, f.creator.calls)
}

func TestHandleOrderFailureConsumesIntent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.creator.err = pkgerrors.New(pkgerrors.CodeTimeout, "create order: timed out")
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 1}})

	res, err := f.handler.Handle(ctx, visitor, "tok", succeeded())
	requireFailed(t, res, err, ReasonOrderFailed)

	items, _ := f.carts.Get(ctx, visitor)
	assert.Len(t, items, 1, "cart is kept when no order was created")

	f.creator.err = nil
	res, err = f.handler.Handle(ctx, visitor, "tok", succeeded())
	requireFailed(t, res, err, ReasonIntentMissing)
	assert.Len(t, f.creator.calls, 1)
}

func TestHandleVerifiesWithProcessor(t *testing.T) {
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodePaymentFailed, "payment not completed")}
	f := newFixture(t, verifier)
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 1}})

	res, err := f.handler.Handle(context.Background(), visitor, "tok", Params{RedirectStatus: "succeeded", ClientSecret: "pi_9_secret_b"})
	requireFailed(t, res, err, ReasonPaymentUnverified)
	assert.Equal(t, []string{"pi_9"}, verifier.ids)
	assert.Empty(t, f.creator.calls)

	verifier.err = nil
	_, err = f.handler.Handle(context.Background(), visitor, "tok", succeeded())
	require.NoError(t, err)
}

func TestHandleConcurrentRunsCreateOneOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.stage(t, []cart.Item{{ProductID: 5, Quantity: 1}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.handler.Handle(context.Background(), visitor, "tok", succeeded()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, f.creator.calls, 1)
}
