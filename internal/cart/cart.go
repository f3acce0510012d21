package cart

import "github.com/angelmondragon/storefront/internal/catalog"

// Item is one cart line. Quantity is always >= 1 and ProductID is unique per cart.
type Item struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// MaxQuantity bounds a single cart line.
const MaxQuantity = 999

// normalize merges duplicate product lines by summing quantities, caps each line at
// MaxQuantity and drops lines with quantity < 1, preserving first-seen order.
func normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity < 1 {
			continue
		}
		it.Quantity = min(it.Quantity, MaxQuantity)
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity = min(out[i].Quantity+it.Quantity, MaxQuantity)
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// Line is a cart item enriched with its catalog product. Product is nil when the
// product no longer exists in the catalog.
type Line struct {
	Item
	Product   *catalog.Product `json:"product,omitempty"`
	LineTotal string           `json:"lineTotal"`
}

// Summary is the priced view of a cart.
type Summary struct {
	Lines        []Line `json:"items"`
	ItemCount    int    `json:"itemCount"`
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shippingCost"`
	Total        string `json:"total"`
}
