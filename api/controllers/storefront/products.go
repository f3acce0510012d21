package storefront

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Products lists the catalog filtered by ?category, searched by ?q and sorted by ?sort.
func Products(products Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		list, err := products.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		view := catalog.View{
			Category: validators.SanitizeString(q.Get("category"), 64),
			Search:   validators.SanitizeString(q.Get("q"), 128),
			Sort:     catalog.ParseSort(q.Get("sort")),
		}
		responses.WriteSuccess(w, view.Apply(list))
	}
}

func Product(products Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := products.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// Categories lists "All" followed by the catalog's categories in first-seen order.
func Categories(products Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		list, err := products.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, append([]string{catalog.AllCategories}, catalog.Categories(list)...))
	}
}
