package catalog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Requester is the slice of the backend client the catalog needs.
type Requester interface {
	JSON(ctx context.Context, req backend.Request, out any) error
}

// Client reads products from the backend. Every call is bounded by the configured
// timeout and never cached.
type Client struct {
	backend Requester
	timeout time.Duration
}

func NewClient(b Requester, timeout time.Duration) (*Client, error) {
	if b == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog backend is required")
	}
	return &Client{backend: b, timeout: timeout}, nil
}

// ListProducts returns all products as received from the backend.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	ctx, cancel := backend.WithTimeout(ctx, c.timeout)
	defer cancel()

	var products []Product
	err := c.backend.JSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/api/products",
		Header: http.Header{"Cache-Control": {"no-store"}},
		Route:  "GET /api/products",
	}, &products)
	if err != nil {
		return nil, backend.Classify(err, "load products")
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// GetProduct returns one product or a CodeNotFound error.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	ctx, cancel := backend.WithTimeout(ctx, c.timeout)
	defer cancel()

	var product Product
	err := c.backend.JSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/api/products/" + strconv.FormatInt(id, 10),
		Route:  "GET /api/products/{id}",
	}, &product)
	if err != nil {
		classified := backend.Classify(err, "load product")
		if pkgerrors.IsCode(classified, pkgerrors.CodeNotFound) {
			return Product{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Product not found")
		}
		return Product{}, classified
	}
	return product, nil
}
