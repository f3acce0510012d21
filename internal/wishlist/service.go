package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/shopspring/decimal"
)

// Item is a saved product. Name, Price and Image are captured when the item is added
// and are not refreshed afterwards.
type Item struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Size      string          `json:"size,omitempty"`
}

// FromProduct snapshots a catalog product for the wishlist.
func FromProduct(p catalog.Product, size string) Item {
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image(),
		Size:      strings.TrimSpace(size),
	}
}

func (i Item) matches(productID int64, size string) bool {
	return i.ProductID == productID && i.Size == strings.TrimSpace(size)
}

// CartAdder is the part of the cart the wishlist needs to move items over.
type CartAdder interface {
	Add(ctx context.Context, visitorID string, productID int64, quantity int) ([]cart.Item, error)
}

// Service is the visitor-local wishlist, unique per (product, size).
type Service interface {
	Get(ctx context.Context, visitorID string) ([]Item, error)
	// Add reports false when the (product, size) pair is already present.
	Add(ctx context.Context, visitorID string, item Item) (bool, error)
	Remove(ctx context.Context, visitorID string, productID int64, size string) ([]Item, error)
	RemoveProduct(ctx context.Context, visitorID string, productID int64) ([]Item, error)
	Clear(ctx context.Context, visitorID string) error
	MoveToCart(ctx context.Context, visitorID string, productID int64, size string, carts CartAdder) ([]cart.Item, error)
}

type service struct {
	store storage.Store
	logg  *logger.Logger
}

func NewService(store storage.Store, logg *logger.Logger) Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, logg: logg}
}

func (s *service) Get(ctx context.Context, visitorID string) ([]Item, error) {
	return s.load(ctx, storage.For(s.store, visitorID))
}

func (s *service) Add(ctx context.Context, visitorID string, item Item) (bool, error) {
	if item.ProductID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	item.Size = strings.TrimSpace(item.Size)

	ns := storage.For(s.store, visitorID)
	items, err := s.load(ctx, ns)
	if err != nil {
		return false, err
	}
	for _, existing := range items {
		if existing.matches(item.ProductID, item.Size) {
			return false, nil
		}
	}
	if err := s.save(ctx, ns, append(items, item)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Remove(ctx context.Context, visitorID string, productID int64, size string) ([]Item, error) {
	return s.filter(ctx, visitorID, func(it Item) bool { return !it.matches(productID, size) })
}

// RemoveProduct drops every size of the product.
func (s *service) RemoveProduct(ctx context.Context, visitorID string, productID int64) ([]Item, error) {
	return s.filter(ctx, visitorID, func(it Item) bool { return it.ProductID != productID })
}

func (s *service) Clear(ctx context.Context, visitorID string) error {
	err := storage.For(s.store, visitorID).Delete(ctx, storage.KeyWishlist)
	if err != nil && !errors.Is(err, storage.ErrUnavailable) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
}

// MoveToCart adds one unit of a wishlisted product to the cart. The wishlist entry is
// kept.
func (s *service) MoveToCart(ctx context.Context, visitorID string, productID int64, size string, carts CartAdder) ([]cart.Item, error) {
	items, err := s.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.matches(productID, size) {
			return carts.Add(ctx, visitorID, productID, 1)
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the wishlist")
}

func (s *service) filter(ctx context.Context, visitorID string, keep func(Item) bool) ([]Item, error) {
	ns := storage.For(s.store, visitorID)
	items, err := s.load(ctx, ns)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	if err := s.save(ctx, ns, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) load(ctx context.Context, ns storage.Namespace) ([]Item, error) {
	var items []Item
	_, err := storage.GetJSON(ctx, ns, storage.KeyWishlist, &items)
	switch {
	case err == nil:
		if items == nil {
			items = []Item{}
		}
		return items, nil
	case errors.Is(err, storage.ErrUnavailable):
		return []Item{}, nil
	case storage.IsDecodeError(err):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "wishlist.corrupt_value_ignored")
		return []Item{}, nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read wishlist")
	}
}

func (s *service) save(ctx context.Context, ns storage.Namespace, items []Item) error {
	err := storage.SetJSON(ctx, ns, storage.KeyWishlist, items)
	if err == nil || errors.Is(err, storage.ErrUnavailable) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write wishlist")
}
