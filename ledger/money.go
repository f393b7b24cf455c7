/*
money.go - Exact monetary amounts

PURPOSE:
  Money is the only representation of monetary value in the engine. It wraps
  decimal.Decimal, normalized to two decimal places (minor units), so amounts
  survive arithmetic and storage round-trips exactly. Binary floats never
  enter or leave this type.

ROUNDING:
  Percentage application (scholarships, percent discounts) rounds half-up to
  two decimal places. All amounts in this system are derived from non-negative
  base fees, where decimal's round-half-away-from-zero and round-half-up
  coincide.

SEE ALSO:
  - adjustment.go: percent-based adjustments built on ApplyPercent
  - account.go: derived-field arithmetic
*/
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the scale every Money value is normalized to.
const moneyPlaces = 2

// Money is a fixed-point monetary amount. The zero value is 0.00 and usable.
// Currency is a presentation concern and intentionally absent.
type Money struct {
	value decimal.Decimal
}

// NewMoney builds a Money from a decimal value, normalizing to two places.
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d.Round(moneyPlaces)}
}

// MoneyFromMinorUnits builds a Money from an integer count of minor units,
// e.g. 150000 -> 1500.00.
func MoneyFromMinorUnits(n int64) Money {
	return Money{value: decimal.New(n, -moneyPlaces)}
}

// ParseMoney parses a plain decimal string ("1500", "1500.50", "-25.00").
// This is the form money takes across every external boundary.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	if d.Exponent() < -moneyPlaces {
		return Money{}, fmt.Errorf("parse money %q: more than %d decimal places", s, moneyPlaces)
	}
	return NewMoney(d), nil
}

// MustMoney parses a decimal string and panics on failure. Test and fixture
// helper; production paths use ParseMoney.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{value: m.value.Add(o.value)} }
func (m Money) Sub(o Money) Money { return Money{value: m.value.Sub(o.value)} }
func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }
func (m Money) IsNegative() bool  { return m.value.IsNegative() }
func (m Money) IsZero() bool      { return m.value.IsZero() }
func (m Money) IsPositive() bool  { return m.value.IsPositive() }

func (m Money) GreaterThan(o Money) bool { return m.value.GreaterThan(o.value) }
func (m Money) LessThan(o Money) bool    { return m.value.LessThan(o.value) }
func (m Money) Equal(o Money) bool       { return m.value.Equal(o.value) }

// ApplyPercent returns p percent of m, rounded half-up to two places.
// ApplyPercent(10) of 1000.00 is 100.00.
func (m Money) ApplyPercent(p decimal.Decimal) Money {
	return Money{value: m.value.Mul(p).Div(decimal.NewFromInt(100)).Round(moneyPlaces)}
}

// MinorUnits returns the amount as an integer count of minor units.
func (m Money) MinorUnits() int64 {
	return m.value.Shift(moneyPlaces).IntPart()
}

// String renders the amount with exactly two decimal places: "1500.00".
func (m Money) String() string {
	return m.value.StringFixed(moneyPlaces)
}

// MarshalJSON encodes as a quoted decimal string, the boundary form.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
