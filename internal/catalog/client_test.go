package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubRequester struct {
	lastReq backend.Request
	payload string
	err     error
}

func (s *stubRequester) JSON(_ context.Context, req backend.Request, out any) error {
	s.lastReq = req
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.payload), out)
}

func TestListProductsRequestsNoStore(t *testing.T) {
	stub := &stubRequester{payload: `[{"id":1,"name":"Lotus Mandala","price":25.5,"category":"Wall Art"}]`}
	client, err := NewClient(stub, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Lotus Mandala" || products[0].Price.String() != "25.5" {
		t.Fatalf("unexpected products %+v", products)
	}
	if stub.lastReq.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store cache header, got %v", stub.lastReq.Header)
	}
	if stub.lastReq.Path != "/api/products" {
		t.Fatalf("unexpected path %q", stub.lastReq.Path)
	}
}

func TestListProductsEmptyIsNotNil(t *testing.T) {
	client, _ := NewClient(&stubRequester{payload: `null`}, time.Second)
	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", products)
	}
}

func TestGetProductNotFound(t *testing.T) {
	stub := &stubRequester{err: &backend.UpstreamError{Status: http.StatusNotFound}}
	client, _ := NewClient(stub, time.Second)

	_, err := client.GetProduct(context.Background(), 42)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if stub.lastReq.Path != "/api/products/42" || stub.lastReq.Route != "GET /api/products/{id}" {
		t.Fatalf("unexpected request %+v", stub.lastReq)
	}
}

func TestGetProductRejectsInvalidID(t *testing.T) {
	client, _ := NewClient(&stubRequester{}, time.Second)
	if _, err := client.GetProduct(context.Background(), 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListProductsUpstreamFailureIsDependency(t *testing.T) {
	client, _ := NewClient(&stubRequester{err: errors.New("connection reset")}, time.Second)
	if _, err := client.ListProducts(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestListProductsTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, _ := NewClient(backend.NewWithHTTPClient(srv.URL, srv.Client()), 25*time.Millisecond)
	_, err := client.ListProducts(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestNewClientRequiresBackend(t *testing.T) {
	if _, err := NewClient(nil, time.Second); err == nil {
		t.Fatal("expected error without backend")
	}
}
