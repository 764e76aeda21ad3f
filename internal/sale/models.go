package sale

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when a finalize request carries no items.
	ErrEmptyCart = errors.New("sale: cart is empty")
	// ErrInvalidDiscount is returned for a negative sale discount or one
	// exceeding the pre-discount total.
	ErrInvalidDiscount = errors.New("sale: invalid discount")
	// ErrNumberingConflict is returned when a freshly issued sale number
	// collides with a stored one even after retrying.
	ErrNumberingConflict = errors.New("sale: sale number conflict")
	// ErrNotFound is returned when a sale number does not exist.
	ErrNotFound = errors.New("sale: not found")
	// ErrCustomerRequired is returned when settings demand a customer name
	// and none was given.
	ErrCustomerRequired = errors.New("sale: customer name required")
	// ErrDiscountsDisabled is returned when any discount is present while
	// settings forbid them.
	ErrDiscountsDisabled = errors.New("sale: discounts are disabled")
)

// Sale statuses. Finalize only ever writes StatusCompleted; the other
// values exist for imported or administratively amended rows.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Line is one priced sale line. All monetary fields are already rounded
// to two decimal places.
type Line struct {
	ProductID       int64           `json:"productId"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	IsService       bool            `json:"isService"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	TaxClass        string          `json:"taxClass"`
	Net             decimal.Decimal `json:"net"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Position        int             `json:"position"`
}

// TaxBucket accumulates base and tax for one tax rate.
type TaxBucket struct {
	Base decimal.Decimal `json:"base"`
	Tax  decimal.Decimal `json:"tax"`
}

// Totals are the sale-level aggregates derived from rounded lines.
type Totals struct {
	Subtotal  decimal.Decimal      `json:"subtotal"`
	TaxAmount decimal.Decimal      `json:"taxAmount"`
	Discount  decimal.Decimal      `json:"discount"`
	Total     decimal.Decimal      `json:"total"`
	Breakdown map[string]TaxBucket `json:"breakdown"`
}

// Sale is a finalized ledger entry with its lines.
type Sale struct {
	ID             int64                `json:"-"`
	Number         string               `json:"number"`
	Status         string               `json:"status"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TaxAmount      decimal.Decimal      `json:"taxAmount"`
	TaxBreakdown   map[string]TaxBucket `json:"taxBreakdown"`
	DiscountAmount decimal.Decimal      `json:"discountAmount"`
	Total          decimal.Decimal      `json:"total"`
	PaymentMethod  string               `json:"paymentMethod"`
	AmountPaid     decimal.Decimal      `json:"amountPaid"`
	ChangeGiven    decimal.Decimal      `json:"changeGiven"`
	CustomerName   string               `json:"customerName,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Operator       string               `json:"operator"`
	SessionID      *uuid.UUID           `json:"sessionId,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	Lines          []Line               `json:"lines,omitempty"`
}

// Summary is the list-view projection without lines.
type Summary struct {
	Number        string          `json:"number"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	CustomerName  string          `json:"customerName,omitempty"`
	Operator      string          `json:"operator"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SideEffect reports one post-commit step of finalize. The sale itself is
// durable either way; a failed effect is an operational follow-up, not a
// rollback.
type SideEffect struct {
	Effect string `json:"effect"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}
