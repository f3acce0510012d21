package catalog

import "github.com/shopspring/decimal"

// Product is the catalog entry as served by the backend.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	Category      string          `json:"category"`
	Customizable  bool            `json:"customizable"`
	Images        []string        `json:"images"`
	Sizes         []string        `json:"sizes,omitempty"`
}

// Image returns the primary image URL or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
