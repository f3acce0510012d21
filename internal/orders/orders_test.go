package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
)

const visitor = "visitor-1"

func validAddress() ShippingAddress {
	return ShippingAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

type stubRequester struct {
	calls []backend.Request
	body  []byte
	resp  *backend.Response
	err   error
	wait  bool
}

func (s *stubRequester) Do(ctx context.Context, req backend.Request) (*backend.Response, error) {
	s.calls = append(s.calls, req)
	if req.Body != nil {
		s.body, _ = io.ReadAll(req.Body)
	}
	if s.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.resp, s.err
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" credit_card ")
	require.NoError(t, err)
	assert.Equal(t, PaymentCreditCard, m)
	assert.True(t, m.IsCard())

	m, err = ParsePaymentMethod("PAYPAL")
	require.NoError(t, err)
	assert.False(t, m.IsCard())

	_, err = ParsePaymentMethod("BITCOIN")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestShippingAddressValidateTrimsAndRequiresAllFields(t *testing.T) {
	addr := validAddress()
	addr.City = "  Springfield  "
	got, err := addr.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got.City)

	addr.ZipCode = "   "
	_, err = addr.Validate()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details(), "zipCode")
}

func TestBackendCreatorPostsSubmission(t *testing.T) {
	stub := &stubRequester{resp: &backend.Response{Status: http.StatusCreated, Body: []byte(` {"id":9} `)}}
	creator, err := NewBackendCreator(stub, time.Second)
	require.NoError(t, err)

	summary, err := creator.Create(context.Background(), "tok", Submission{
		ShippingAddress: validAddress(),
		PaymentMethod:   PaymentCashOnDelivery,
		Items:           []cart.Item{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9}`, string(summary))

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "/api/orders", stub.calls[0].Path)
	assert.Equal(t, "tok", stub.calls[0].Token)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(stub.body, &sent))
	assert.Equal(t, "CASH_ON_DELIVERY", sent["paymentMethod"])
	assert.Contains(t, sent, "shippingAddress")
}

func TestBackendCreatorRejectsBeforeCalling(t *testing.T) {
	stub := &stubRequester{}
	creator, err := NewBackendCreator(stub, time.Second)
	require.NoError(t, err)

	_, err = creator.Create(context.Background(), "", Submission{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = creator.Create(context.Background(), "tok", Submission{ShippingAddress: validAddress(), PaymentMethod: PaymentPayPal})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, stub.calls)
}

func TestBackendCreatorClassifiesFailures(t *testing.T) {
	sub := Submission{ShippingAddress: validAddress(), PaymentMethod: PaymentPayPal, Items: []cart.Item{{ProductID: 1, Quantity: 1}}}

	upstream := &stubRequester{resp: &backend.Response{Status: http.StatusInternalServerError, Body: []byte("boom")}}
	creator, _ := NewBackendCreator(upstream, time.Second)
	_, err := creator.Create(context.Background(), "tok", sub)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	slow := &stubRequester{wait: true}
	creator, _ = NewBackendCreator(slow, 10*time.Millisecond)
	_, err = creator.Create(context.Background(), "tok", sub)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTimeout))
}

func TestStageAndConsumeIsReadOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	intent := PendingIntent{ShippingAddress: validAddress(), Items: []cart.Item{{ProductID: 3, Quantity: 1}}}

	require.NoError(t, Stage(ctx, store, visitor, intent))

	got, err := Consume(ctx, store, visitor)
	require.NoError(t, err)
	assert.Equal(t, intent, got)

	_, err = Consume(ctx, store, visitor)
	assert.ErrorIs(t, err, ErrIntentMissing)

	_, found, _ := store.Get(ctx, visitor, storage.KeyPendingShippingAddress)
	assert.False(t, found)
}

func TestConsumeEmptyItems(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, Stage(ctx, store, visitor, PendingIntent{ShippingAddress: validAddress(), Items: []cart.Item{}}))

	_, err := Consume(ctx, store, visitor)
	assert.ErrorIs(t, err, ErrIntentEmpty)
}

func TestConsumeWithoutAddressIsMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, visitor, storage.KeyPendingCartItems, `[{"productId":1,"quantity":1}]`))

	_, err := Consume(ctx, store, visitor)
	assert.ErrorIs(t, err, ErrIntentMissing)
	_, found, _ := store.Get(ctx, visitor, storage.KeyPendingCartItems)
	assert.False(t, found, "items must be consumed even when the intent is incomplete")
}

func TestStageFailureSurfaces(t *testing.T) {
	store := memory.New()
	store.FailWith = errors.New("down")
	err := Stage(context.Background(), store, visitor, PendingIntent{ShippingAddress: validAddress()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	err = Stage(context.Background(), nil, visitor, PendingIntent{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSummaryCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := LastSummary(ctx, store, visitor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, CacheSummary(ctx, store, visitor, Summary(`{"id":1}`)))
	got, err := LastSummary(ctx, store, visitor)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(got))
}
