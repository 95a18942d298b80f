// Package fixed wraps decimal arithmetic with a fixed 28-digit, half-even
// context so that repeated simulation of a turn is bit-identical.
package fixed

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

const Precision = 28

var ctx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(Precision)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// Dec is an immutable decimal value. Operations allocate their result.
type Dec struct {
	d *apd.Decimal
}

func Int(n int64) Dec { return Dec{d: apd.New(n, 0)} }

// Ratio returns num/den rounded to the context precision.
func Ratio(num, den int64) Dec { return Int(num).Quo(Int(den)) }

func Zero() Dec { return Int(0) }

func Parse(s string) (Dec, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Dec{}, err
	}
	return Dec{d: d}, nil
}

// MustParse is for package-level constants.
func MustParse(s string) Dec {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (a Dec) dec() *apd.Decimal {
	if a.d == nil {
		return apd.New(0, 0)
	}
	return a.d
}

func (a Dec) op(name string, fn func(d, x, y *apd.Decimal) (apd.Condition, error), b Dec) Dec {
	out := new(apd.Decimal)
	if _, err := fn(out, a.dec(), b.dec()); err != nil {
		panic(fmt.Sprintf("fixed: %s %s %s: %v", a, name, b, err))
	}
	return Dec{d: out}
}

func (a Dec) Add(b Dec) Dec { return a.op("+", ctx.Add, b) }
func (a Dec) Sub(b Dec) Dec { return a.op("-", ctx.Sub, b) }
func (a Dec) Mul(b Dec) Dec { return a.op("*", ctx.Mul, b) }
func (a Dec) Quo(b Dec) Dec { return a.op("/", ctx.Quo, b) }

func (a Dec) Sqrt() Dec {
	out := new(apd.Decimal)
	if _, err := ctx.Sqrt(out, a.dec()); err != nil {
		panic(fmt.Sprintf("fixed: sqrt %s: %v", a, err))
	}
	return Dec{d: out}
}

// Round rounds to the nearest integral value, ties to even.
func (a Dec) Round() Dec {
	out := new(apd.Decimal)
	if _, err := ctx.RoundToIntegralValue(out, a.dec()); err != nil {
		panic(fmt.Sprintf("fixed: round %s: %v", a, err))
	}
	return Dec{d: out}
}

// Trunc rounds toward zero.
func (a Dec) Trunc() Dec {
	c := *ctx
	c.Rounding = apd.RoundDown
	out := new(apd.Decimal)
	if _, err := c.RoundToIntegralValue(out, a.dec()); err != nil {
		panic(fmt.Sprintf("fixed: trunc %s: %v", a, err))
	}
	return Dec{d: out}
}

// Int64 converts an integral value. Non-integral values are rounded first.
func (a Dec) Int64() int64 {
	n, err := a.Round().d.Int64()
	if err != nil {
		panic(fmt.Sprintf("fixed: int64 %s: %v", a, err))
	}
	return n
}

func (a Dec) Cmp(b Dec) int    { return a.dec().Cmp(b.dec()) }
func (a Dec) Equal(b Dec) bool { return a.Cmp(b) == 0 }
func (a Dec) Sign() int        { return a.dec().Sign() }
func (a Dec) String() string   { return a.dec().String() }
