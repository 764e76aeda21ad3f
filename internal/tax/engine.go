package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrInvalidLineItem is returned for quantities, prices or rates the engine
// has no model for (the engine does not handle returns, so negatives are
// rejected outright).
var ErrInvalidLineItem = errors.New("invalid line item")

var one = decimal.NewFromInt(1)

// Amounts holds the computed monetary fields of a single line. All three
// values are already rounded to two places and always reconcile exactly:
// Gross == Net + Tax in both pricing modes.
type Amounts struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// ComputeLine calculates net, tax and gross for one line item.
//
// taxIncluded is the store-wide pricing policy, passed in explicitly so the
// engine stays free of configuration lookups: true means the unit price
// already contains tax and the tax component is extracted; false means tax
// is added on top of the discounted net amount.
func ComputeLine(unitPrice, quantity, discountPercent, taxRate decimal.Decimal, taxIncluded bool) (Amounts, error) {
	if unitPrice.IsNegative() {
		return Amounts{}, fmt.Errorf("unit price %s: %w", unitPrice, ErrInvalidLineItem)
	}
	if quantity.IsNegative() {
		return Amounts{}, fmt.Errorf("quantity %s: %w", quantity, ErrInvalidLineItem)
	}
	if err := money.ValidatePercent(discountPercent); err != nil {
		return Amounts{}, fmt.Errorf("discount percent %s: %w", discountPercent, ErrInvalidLineItem)
	}
	if taxRate.IsNegative() {
		return Amounts{}, fmt.Errorf("tax rate %s: %w", taxRate, ErrInvalidLineItem)
	}

	discountedPrice := unitPrice.Mul(one.Sub(money.Fraction(discountPercent)))

	if taxIncluded {
		// Extract the tax share: tax is derived by subtraction, not rounded
		// independently, so net + tax always equals gross to the cent.
		netUnit := discountedPrice.Div(one.Add(money.Fraction(taxRate)))
		net := money.Round2(netUnit.Mul(quantity))
		gross := money.Round2(discountedPrice.Mul(quantity))
		return Amounts{
			Net:   net,
			Tax:   gross.Sub(net),
			Gross: gross,
		}, nil
	}

	net := money.Round2(discountedPrice.Mul(quantity))
	taxAmount := money.Round2(net.Mul(money.Fraction(taxRate)))
	return Amounts{
		Net:   net,
		Tax:   taxAmount,
		Gross: net.Add(taxAmount),
	}, nil
}
