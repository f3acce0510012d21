package storefront

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/wishlist"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type addWishlistRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Size      string `json:"size" validate:"max=32"`
}

type wishlistAddResponse struct {
	Added bool            `json:"added"`
	Items []wishlist.Item `json:"items"`
}

func WishlistGet(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wishlist service")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		items, err := svc.Get(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// WishlistAdd snapshots the catalog product; a duplicate (product, size) is reported
// with added=false.
func WishlistAdd(svc wishlist.Service, products Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || products == nil {
			unavailable(w, r, logg, "wishlist service")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		var payload addWishlistRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := products.GetProduct(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		added, err := svc.Add(r.Context(), visitorID, wishlist.FromProduct(product, payload.Size))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Get(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if !added {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, wishlistAddResponse{Added: added, Items: items})
	}
}

// WishlistRemove removes one size when ?size= is given, else every entry of the product.
func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "wishlist service")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var items []wishlist.Item
		if r.URL.Query().Has("size") {
			items, err = svc.Remove(r.Context(), visitorID, productID, r.URL.Query().Get("size"))
		} else {
			items, err = svc.RemoveProduct(r.Context(), visitorID, productID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// WishlistMoveToCart adds one unit of a saved item to the cart. The wishlist entry stays.
func WishlistMoveToCart(svc wishlist.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			unavailable(w, r, logg, "wishlist service")
			return
		}
		visitorID, ok := visitor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.MoveToCart(r.Context(), visitorID, productID, r.URL.Query().Get("size"), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
