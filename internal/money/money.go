// Package money is the fixed-point decimal kernel. Every monetary or quantity
// value that crosses a function boundary in this repository is a money.Amount,
// money.Qty or money.Rate; float64 never appears in the posting path.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MonetaryScale is the number of fractional digits a posted monetary amount
// is rounded to before it is written.
const MonetaryScale = 2

// RateScale is the number of fractional digits an exchange rate or WAC value
// is held at.
const RateScale = 6

// Amount is a monetary value, always rounded to MonetaryScale digits before
// it is persisted. It wraps decimal.Decimal rather than aliasing it so that
// rounding discipline lives in one place.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// NewAmount parses s as a decimal string and rounds it half-away-from-zero to
// MonetaryScale digits.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Amount{d: roundHalfAwayFromZero(d, MonetaryScale)}, nil
}

// NewAmountFromDecimal rounds d to MonetaryScale digits.
func NewAmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{d: roundHalfAwayFromZero(d, MonetaryScale)}
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount {
	return Amount{d: roundHalfAwayFromZero(a.d.Add(b.d), MonetaryScale)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{d: roundHalfAwayFromZero(a.d.Sub(b.d), MonetaryScale)}
}

func (a Amount) Neg() Amount { return Amount{d: a.d.Neg()} }

// MulRate multiplies a transaction-currency amount by an exchange rate,
// rounding the base-currency result to MonetaryScale digits.
func (a Amount) MulRate(r Rate) Amount {
	return Amount{d: roundHalfAwayFromZero(a.d.Mul(r.d), MonetaryScale)}
}

func (a Amount) Equal(b Amount) bool        { return a.d.Equal(b.d) }
func (a Amount) IsZero() bool               { return a.d.IsZero() }
func (a Amount) IsNegative() bool           { return a.d.IsNegative() }
func (a Amount) IsPositive() bool           { return a.d.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool  { return a.d.GreaterThan(b.d) }
func (a Amount) LessThan(b Amount) bool     { return a.d.LessThan(b.d) }
func (a Amount) LessThanOrEqual(b Amount) bool {
	return a.d.LessThanOrEqual(b.d)
}
func (a Amount) String() string { return a.d.StringFixed(MonetaryScale) }

// MarshalJSON encodes Amount as a decimal string, matching the DB storage
// format (String()) so a command's JSON payload, its idempotency fingerprint,
// and its persisted response all agree on one wire representation.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	amt, err := NewAmount(s)
	if err != nil {
		return err
	}
	*a = amt
	return nil
}

// Rate is an exchange rate or unit-cost ratio. NewRate keeps the parsed
// precision; WAC rounds to RateScale digits, and String prints RateScale
// digits.
type Rate struct {
	d decimal.Decimal
}

var OneRate = Rate{d: decimal.NewFromInt(1)}

func NewRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, fmt.Errorf("money: invalid rate %q: %w", s, err)
	}
	return Rate{d: d}, nil
}

func (r Rate) Decimal() decimal.Decimal { return r.d }
func (r Rate) IsZero() bool             { return r.d.IsZero() }
func (r Rate) IsPositive() bool         { return r.d.IsPositive() }
func (r Rate) String() string           { return r.d.StringFixed(RateScale) }

func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	rate, err := NewRate(s)
	if err != nil {
		return err
	}
	*r = rate
	return nil
}

// Qty is an inventory quantity. Quantities are not rounded on construction —
// they carry whatever precision the caller supplied, and String prints that
// precision as is.
type Qty struct {
	d decimal.Decimal
}

var ZeroQty = Qty{d: decimal.Zero}

func NewQty(s string) (Qty, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Qty{}, fmt.Errorf("money: invalid quantity %q: %w", s, err)
	}
	return Qty{d: d}, nil
}

func NewQtyFromDecimal(d decimal.Decimal) Qty { return Qty{d: d} }

func (q Qty) Decimal() decimal.Decimal { return q.d }
func (q Qty) Add(o Qty) Qty            { return Qty{d: q.d.Add(o.d)} }
func (q Qty) Sub(o Qty) Qty            { return Qty{d: q.d.Sub(o.d)} }
func (q Qty) Neg() Qty                 { return Qty{d: q.d.Neg()} }
func (q Qty) IsZero() bool             { return q.d.IsZero() }
func (q Qty) IsNegative() bool         { return q.d.IsNegative() }
func (q Qty) IsPositive() bool         { return q.d.IsPositive() }
func (q Qty) LessThan(o Qty) bool      { return q.d.LessThan(o.d) }
func (q Qty) GreaterThan(o Qty) bool   { return q.d.GreaterThan(o.d) }
func (q Qty) String() string           { return q.d.String() }

func (q Qty) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

func (q *Qty) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	qty, err := NewQty(s)
	if err != nil {
		return err
	}
	*q = qty
	return nil
}

// MulAmount multiplies a quantity by a per-unit Amount (itself decimal, not
// yet scale-locked), producing a monetary Amount rounded to MonetaryScale.
func (q Qty) MulAmount(unit Amount) Amount {
	return Amount{d: roundHalfAwayFromZero(q.d.Mul(unit.d), MonetaryScale)}
}

// WAC computes totalValue / quantityOnHand rounded to RateScale digits. The
// caller must ensure quantityOnHand is positive; WAC of a zero or negative
// quantity is undefined and panics, mirroring the invariant that
// InventoryBalance.totalValue is forced to zero whenever quantityOnHand is
// zero (callers check that case before calling WAC).
func WAC(totalValue Amount, quantityOnHand Qty) Rate {
	if !quantityOnHand.IsPositive() {
		panic("money: WAC of non-positive quantity")
	}
	return Rate{d: totalValue.d.DivRound(quantityOnHand.d, RateScale)}
}

// ApplyWAC multiplies a quantity by a WAC rate, rounding the result to
// MonetaryScale digits — used to cost an OUT stock move.
func ApplyWAC(qty Qty, wac Rate) Amount {
	return Amount{d: roundHalfAwayFromZero(qty.d.Mul(wac.d), MonetaryScale)}
}

// roundHalfAwayFromZero rounds d to scale digits. decimal.Decimal.Round
// already implements half-away-from-zero (ties round away from zero in both
// directions), which is the rounding mode spec.md §4.1 requires for monetary
// values.
func roundHalfAwayFromZero(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}
