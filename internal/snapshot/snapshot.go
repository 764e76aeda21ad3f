package snapshot

import (
	"github.com/shopspring/decimal"
)

// SchemaVersion is written into every stored snapshot so future changes to
// the line-item shape do not silently break persisted carts.
const SchemaVersion = 1

// Item is one cart line captured at save time. The unit price is a
// snapshot: recovering an old cart must not re-price it.
type Item struct {
	ProductID       int64           `json:"productId"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// Cart is the serialized snapshot shared by parked tickets and active
// carts: an ordered item list plus optional payment metadata.
type Cart struct {
	Version       int    `json:"version"`
	Items         []Item `json:"items"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// New builds a current-version snapshot around the provided items.
func New(items []Item) Cart {
	return Cart{Version: SchemaVersion, Items: items}
}

// Empty reports whether the snapshot carries no items.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the number of lines in the snapshot.
func (c Cart) ItemCount() int {
	return len(c.Items)
}
