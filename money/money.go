// Package money does exact decimal arithmetic on dollar amounts. Postgres
// NUMERIC columns are read as text and kept exact until display.
package money

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

var ctx = apd.BaseContext.WithPrecision(34)

// Amount is an exact decimal dollar value. The zero value is $0.
type Amount struct {
	value apd.Decimal
}

// Parse reads a decimal string such as "137514151481.50".
func Parse(s string) (Amount, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// FromFloat converts using the shortest decimal representation of f.
func FromFloat(f float64) (Amount, error) {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %v: %w", f, err)
	}
	return Amount{value: d}, nil
}

func FromInt(i int64) Amount {
	var d apd.Decimal
	d.SetInt64(i)
	return Amount{value: d}
}

func (a Amount) Add(b Amount) Amount {
	var r apd.Decimal
	ctx.Add(&r, &a.value, &b.value)
	return Amount{value: r}
}

func (a Amount) Sub(b Amount) Amount {
	var r apd.Decimal
	ctx.Sub(&r, &a.value, &b.value)
	return Amount{value: r}
}

func (a Amount) Mul(b Amount) Amount {
	var r apd.Decimal
	ctx.Mul(&r, &a.value, &b.value)
	return Amount{value: r}
}

// Div returns a/b, or false when b is zero.
func (a Amount) Div(b Amount) (Amount, bool) {
	if b.IsZero() {
		return Amount{}, false
	}
	var r apd.Decimal
	ctx.Quo(&r, &a.value, &b.value)
	return Amount{value: r}, true
}

// MulPct returns pct percent of a, e.g. the federal share at a given FMAP.
func (a Amount) MulPct(pct float64) Amount {
	p, err := FromFloat(pct)
	if err != nil {
		return Amount{}
	}
	r := a.Mul(p)
	var out apd.Decimal
	ctx.Quo(&out, &r.value, apd.New(100, 0))
	return Amount{value: out}
}

// Round rounds half up to the given number of decimal places.
func (a Amount) Round(places int32) Amount {
	var r apd.Decimal
	ctx.Quantize(&r, &a.value, -places)
	return Amount{value: r}
}

func (a Amount) IsZero() bool { return a.value.IsZero() }

func (a Amount) Cmp(b Amount) int { return a.value.Cmp(&b.value) }

// Float64 converts for statistics. Precision beyond float64 is lost.
func (a Amount) Float64() float64 {
	f, err := a.value.Float64()
	if err != nil {
		return 0
	}
	return f
}

func (a Amount) String() string { return a.value.Text('f') }

// Billions renders the amount in billions with the given decimal places,
// e.g. "137.51".
func (a Amount) Billions(places int32) string {
	var r apd.Decimal
	ctx.Quo(&r, &a.value, apd.New(1, 9))
	b := Amount{value: r}.Round(places)
	return b.String()
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.Text('f')), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds amounts exactly.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
