// Package taylor implements the exact coefficient algebra behind the
// win-probability engine: cubic polynomials in x = p - 1/2 with
// arbitrary-precision rational coefficients, truncated at degree 3.
package taylor

import (
	"fmt"
	"math/big"
)

// Poly is a truncated cubic polynomial in x = p - 1/2, representing
// c0 + c1·x + c2·x^2 + c3·x^3 with exact big.Rat coefficients.
//
// Values are immutable. Every operation allocates a fresh result and
// never mutates a receiver, an operand, or their coefficients, so a
// Poly can be copied, shared across goroutines, and cached freely.
// Terms of degree 4 and above do not exist in this representation;
// Mul omits them by construction.
type Poly struct {
	c0, c1, c2, c3 *big.Rat
}

// New builds a Poly from four coefficients in degree order, copying
// each one. A nil coefficient counts as zero.
func New(c0, c1, c2, c3 *big.Rat) Poly {
	return Poly{ratCopy(c0), ratCopy(c1), ratCopy(c2), ratCopy(c3)}
}

// Zero returns the constant polynomial 0, the certain-loss terminal.
func Zero() Poly {
	return Poly{new(big.Rat), new(big.Rat), new(big.Rat), new(big.Rat)}
}

// One returns the constant polynomial 1, the certain-win terminal.
func One() Poly {
	return Poly{big.NewRat(1, 1), new(big.Rat), new(big.Rat), new(big.Rat)}
}

// P returns the polynomial equal to the per-point win probability p
// itself: 1/2 + x.
func P() Poly {
	return Poly{big.NewRat(1, 2), big.NewRat(1, 1), new(big.Rat), new(big.Rat)}
}

// Q returns the polynomial equal to the complement q = 1 - p: 1/2 - x.
func Q() Poly {
	return Poly{big.NewRat(1, 2), big.NewRat(-1, 1), new(big.Rat), new(big.Rat)}
}

// Add returns a + b coefficient by coefficient. Degree cannot grow
// under addition, so nothing is truncated.
func (a Poly) Add(b Poly) Poly {
	return Poly{
		new(big.Rat).Add(a.c0, b.c0),
		new(big.Rat).Add(a.c1, b.c1),
		new(big.Rat).Add(a.c2, b.c2),
		new(big.Rat).Add(a.c3, b.c3),
	}
}

// Sub returns a - b coefficient by coefficient.
func (a Poly) Sub(b Poly) Poly {
	return Poly{
		new(big.Rat).Sub(a.c0, b.c0),
		new(big.Rat).Sub(a.c1, b.c1),
		new(big.Rat).Sub(a.c2, b.c2),
		new(big.Rat).Sub(a.c3, b.c3),
	}
}

// Mul returns the product a·b truncated at degree 3. The full product
// of two cubics runs to degree 6; the sums below only form cross terms
// whose degrees total 3 or less, so a1·b3, a2·b2 and the other
// high-degree products are never computed at all.
func (a Poly) Mul(b Poly) Poly {
	return Poly{
		new(big.Rat).Mul(a.c0, b.c0),
		ratSum(
			new(big.Rat).Mul(a.c0, b.c1),
			new(big.Rat).Mul(a.c1, b.c0),
		),
		ratSum(
			new(big.Rat).Mul(a.c0, b.c2),
			new(big.Rat).Mul(a.c1, b.c1),
			new(big.Rat).Mul(a.c2, b.c0),
		),
		ratSum(
			new(big.Rat).Mul(a.c0, b.c3),
			new(big.Rat).Mul(a.c1, b.c2),
			new(big.Rat).Mul(a.c2, b.c1),
			new(big.Rat).Mul(a.c3, b.c0),
		),
	}
}

// Eq reports exact rational equality of all four coefficients.
func (a Poly) Eq(b Poly) bool {
	return a.c0.Cmp(b.c0) == 0 &&
		a.c1.Cmp(b.c1) == 0 &&
		a.c2.Cmp(b.c2) == 0 &&
		a.c3.Cmp(b.c3) == 0
}

// Coeff returns a copy of the coefficient of x^deg. Degrees outside
// 0..3 are identically zero in this representation.
func (a Poly) Coeff(deg int) *big.Rat {
	switch deg {
	case 0:
		return new(big.Rat).Set(a.c0)
	case 1:
		return new(big.Rat).Set(a.c1)
	case 2:
		return new(big.Rat).Set(a.c2)
	case 3:
		return new(big.Rat).Set(a.c3)
	}
	return new(big.Rat)
}

// RatStrings returns the coefficients as exact rational strings in
// degree order, e.g. "11/16". Lossless, so suitable for persistence.
func (a Poly) RatStrings() [4]string {
	return [4]string{
		a.c0.RatString(),
		a.c1.RatString(),
		a.c2.RatString(),
		a.c3.RatString(),
	}
}

// String renders the exact form, constant first, then one signed term
// per degree with the coefficient magnitude as a rational:
//
//	11/16 + 9/8 (p - 1/2) - 3/4 (p - 1/2)^2 - 5/2 (p - 1/2)^3
//
// Zero coefficients keep their terms; the rendered shape is always
// four terms.
func (a Poly) String() string {
	return fmt.Sprintf("%s %s %s (p - 1/2) %s %s (p - 1/2)^2 %s %s (p - 1/2)^3",
		a.c0.RatString(),
		ratSign(a.c1), new(big.Rat).Abs(a.c1).RatString(),
		ratSign(a.c2), new(big.Rat).Abs(a.c2).RatString(),
		ratSign(a.c3), new(big.Rat).Abs(a.c3).RatString(),
	)
}

// Float converts to the display flavor via standard float64 conversion
// of each coefficient. One way only: a FloatPoly never feeds back into
// exact arithmetic.
func (a Poly) Float() FloatPoly {
	c0, _ := a.c0.Float64()
	c1, _ := a.c1.Float64()
	c2, _ := a.c2.Float64()
	c3, _ := a.c3.Float64()
	return FloatPoly{C0: c0, C1: c1, C2: c2, C3: c3}
}

func ratCopy(x *big.Rat) *big.Rat {
	if x == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(x)
}

func ratSum(terms ...*big.Rat) *big.Rat {
	s := new(big.Rat)
	for _, t := range terms {
		s.Add(s, t)
	}
	return s
}

func ratSign(x *big.Rat) string {
	if x.Sign() >= 0 {
		return "+"
	}
	return "-"
}
