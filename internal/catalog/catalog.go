package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a product id does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrUnavailable is returned when the catalog backend cannot be reached.
	ErrUnavailable = errors.New("catalog: unavailable")
)

// Product is the sellable unit the register works with. Prices are
// stored as the configured default (tax inclusive or exclusive); the
// tax engine is told which mode applies at computation time.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	TaxClass  string          `json:"taxClass"`
	IsService bool            `json:"isService"`
	Stock     int64           `json:"stock"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
