package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned when a monetary amount is below zero.
var ErrNegativeAmount = errors.New("amount must not be negative")

// ErrPercentOutOfRange is returned when a percentage is outside [0, 100].
var ErrPercentOutOfRange = errors.New("percent must be between 0 and 100")

// Zero is the canonical zero amount.
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// Round2 quantizes a value to two decimal places using half-up rounding.
// Every computed monetary field is rounded through here before it is
// stored or summed; downstream aggregation relies on already-rounded
// per-line values.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a non-negative monetary amount.
func ParseAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// ParsePercent parses a percentage and validates it against [0, 100].
func ParsePercent(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse percent %q: %w", value, err)
	}
	if err := ValidatePercent(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidatePercent reports whether the value is a usable percentage.
func ValidatePercent(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return ErrPercentOutOfRange
	}
	return nil
}

// Fraction converts a percentage to its fractional multiplier (21 -> 0.21).
func Fraction(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// RateLabel renders a tax rate the way receipts key their breakdown ("21.00").
func RateLabel(rate decimal.Decimal) string {
	return rate.StringFixed(2)
}

// MustDecimal parses a decimal literal and panics on failure. Test helper.
func MustDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
