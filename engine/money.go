package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact non-negative amounts in the school's single currency
// =============================================================================

// Money is a non-negative amount in a currency with no fractional sub-unit.
// It wraps decimal.Decimal so arithmetic is exact; no floats anywhere.
type Money struct {
	Value decimal.Decimal
}

// NewMoney builds an amount from a whole number of currency units.
// Callers validate sign where it matters; the schedule constructor and
// the service reject negatives before they reach arithmetic.
func NewMoney(units int64) Money {
	return Money{Value: decimal.NewFromInt(units)}
}

// Zero is the zero amount.
func Zero() Money {
	return Money{Value: decimal.Zero}
}

// ParseMoney parses a decimal string amount, rejecting negatives.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative amount %q", ErrInvariantViolation, s)
	}
	return Money{Value: d}, nil
}

func (m Money) Add(n Money) Money {
	return Money{Value: m.Value.Add(n.Value)}
}

// Sub subtracts n from m. Underflow is never clamped: producing a negative
// amount is a programmer error surfaced as InvariantViolation.
func (m Money) Sub(n Money) (Money, error) {
	r := m.Value.Sub(n.Value)
	if r.IsNegative() {
		return Money{}, &InvariantError{
			Check:  "money_underflow",
			Detail: fmt.Sprintf("%s - %s would be negative", m.Value, n.Value),
		}
	}
	return Money{Value: r}, nil
}

func (m Money) Equal(n Money) bool       { return m.Value.Equal(n.Value) }
func (m Money) LessThan(n Money) bool    { return m.Value.LessThan(n.Value) }
func (m Money) GreaterThan(n Money) bool { return m.Value.GreaterThan(n.Value) }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }

func (m Money) Min(n Money) Money {
	if m.LessThan(n) {
		return m
	}
	return n
}

func (m Money) String() string {
	return m.Value.String()
}

// JSON form is the quoted decimal string, matching decimal.Decimal.
func (m Money) MarshalJSON() ([]byte, error) { return m.Value.MarshalJSON() }

func (m *Money) UnmarshalJSON(b []byte) error { return m.Value.UnmarshalJSON(b) }
