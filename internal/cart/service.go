package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/shopspring/decimal"
)

// ProductLister supplies catalog data for cart summaries.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// Service is the visitor-local cart. Every operation reads and writes storage
// immediately; concurrent writers for the same visitor are last-write-wins.
type Service interface {
	Get(ctx context.Context, visitorID string) ([]Item, error)
	Add(ctx context.Context, visitorID string, productID int64, quantity int) ([]Item, error)
	Remove(ctx context.Context, visitorID string, productID int64) ([]Item, error)
	SetQuantity(ctx context.Context, visitorID string, productID int64, quantity int) ([]Item, error)
	Replace(ctx context.Context, visitorID string, items []Item) ([]Item, error)
	Clear(ctx context.Context, visitorID string) error
	Summary(ctx context.Context, visitorID string, products ProductLister) (Summary, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Store        storage.Store
	Logger       *logger.Logger
	ShippingCost decimal.Decimal
}

type service struct {
	store        storage.Store
	logg         *logger.Logger
	shippingCost decimal.Decimal
}

// NewService builds a cart service. A nil store is allowed: every operation then
// behaves as an always-empty cart.
func NewService(params ServiceParams) Service {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:        params.Store,
		logg:         logg,
		shippingCost: params.ShippingCost,
	}
}

func (s *service) Get(ctx context.Context, visitorID string) ([]Item, error) {
	return s.load(ctx, storage.For(s.store, visitorID))
}

// Add merges into an existing line by summing. A zero quantity means one unit.
func (s *service) Add(ctx context.Context, visitorID string, productID int64, quantity int) ([]Item, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > MaxQuantity {
		return nil, errTooMany
	}
	var overLimit bool
	items, err := s.mutate(ctx, visitorID, func(items []Item) []Item {
		for i := range items {
			if items[i].ProductID == productID {
				if items[i].Quantity > MaxQuantity-quantity {
					overLimit = true
					return items
				}
				items[i].Quantity += quantity
				return items
			}
		}
		return append(items, Item{ProductID: productID, Quantity: quantity})
	})
	if err != nil {
		return nil, err
	}
	if overLimit {
		return nil, errTooMany
	}
	return items, nil
}

var errTooMany = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity per item cannot exceed %d", MaxQuantity))

func (s *service) Remove(ctx context.Context, visitorID string, productID int64) ([]Item, error) {
	return s.mutate(ctx, visitorID, func(items []Item) []Item {
		out := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				out = append(out, it)
			}
		}
		return out
	})
}

// SetQuantity is a no-op when quantity < 1 or the product is not in the cart.
func (s *service) SetQuantity(ctx context.Context, visitorID string, productID int64, quantity int) ([]Item, error) {
	if quantity < 1 {
		return s.Get(ctx, visitorID)
	}
	if quantity > MaxQuantity {
		return nil, errTooMany
	}
	return s.mutate(ctx, visitorID, func(items []Item) []Item {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

func (s *service) Replace(ctx context.Context, visitorID string, items []Item) ([]Item, error) {
	return s.mutate(ctx, visitorID, func([]Item) []Item {
		return append([]Item(nil), items...)
	})
}

func (s *service) Clear(ctx context.Context, visitorID string) error {
	err := storage.For(s.store, visitorID).Delete(ctx, storage.KeyCart)
	if errors.Is(err, storage.ErrUnavailable) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, visitorID string, products ProductLister) (Summary, error) {
	items, err := s.Get(ctx, visitorID)
	if err != nil {
		return Summary{}, err
	}
	var catalogProducts []catalog.Product
	if len(items) > 0 {
		catalogProducts, err = products.ListProducts(ctx)
		if err != nil {
			return Summary{}, err
		}
	}
	return Price(items, catalogProducts, s.shippingCost), nil
}

// Price computes the summary of items against a product list. Shipping is charged
// only for non-empty carts.
func Price(items []Item, products []catalog.Product, shipping decimal.Decimal) Summary {
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	summary := Summary{Lines: make([]Line, 0, len(items))}
	subtotal := decimal.Zero
	for _, it := range items {
		line := Line{Item: it, LineTotal: decimal.Zero.StringFixed(2)}
		if p, ok := byID[it.ProductID]; ok {
			product := p
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			line.Product = &product
			line.LineTotal = lineTotal.StringFixed(2)
			subtotal = subtotal.Add(lineTotal)
		}
		summary.ItemCount += it.Quantity
		summary.Lines = append(summary.Lines, line)
	}
	if len(items) == 0 {
		shipping = decimal.Zero
	}
	summary.Subtotal = subtotal.StringFixed(2)
	summary.ShippingCost = shipping.StringFixed(2)
	summary.Total = subtotal.Add(shipping).StringFixed(2)
	return summary
}

// load reads the stored cart. Missing storage and corrupt values both read as empty.
func (s *service) load(ctx context.Context, ns storage.Namespace) ([]Item, error) {
	var items []Item
	_, err := storage.GetJSON(ctx, ns, storage.KeyCart, &items)
	switch {
	case err == nil:
		return normalize(items), nil
	case errors.Is(err, storage.ErrUnavailable):
		return []Item{}, nil
	case storage.IsDecodeError(err):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.corrupt_value_ignored")
		return []Item{}, nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}
}

func (s *service) mutate(ctx context.Context, visitorID string, fn func([]Item) []Item) ([]Item, error) {
	ns := storage.For(s.store, visitorID)
	items, err := s.load(ctx, ns)
	if err != nil {
		return nil, err
	}
	next := normalize(fn(items))
	if err := storage.SetJSON(ctx, ns, storage.KeyCart, next); err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return []Item{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart")
	}
	return next, nil
}
