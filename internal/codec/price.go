// Package codec converts between stored and displayed representations of
// tier prices and feature lists.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not non-negative decimals.
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Price is an amount in minor currency units (cents). It is marshalled as a
// JSON number with two fraction digits and accepts either a JSON number or
// a numeric string on input.
type Price int64

// ParsePrice converts a decimal display value ("19.99", "200") to minor units.
// Values with more than two fraction digits are rounded half away from zero.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal major-unit amount to minor units.
func FromDecimal(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, d.String())
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Price(cents.IntPart()), nil
}

// Decimal returns the major-unit decimal value.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// String formats the price with exactly two fraction digits.
func (p Price) String() string {
	return p.Decimal().StringFixed(2)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
