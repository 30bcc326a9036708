package taylor

import (
	"fmt"
	"math"
)

// FloatPoly is the display flavor of Poly: the same cubic shape in
// x = p - 1/2 with float64 coefficients. It exists for human-readable
// output and point evaluation only and takes no part in the exact
// algebra, so its fields are plain exported values.
type FloatPoly struct {
	C0, C1, C2, C3 float64
}

// String renders the polynomial in the same shape as Poly.String with
// every magnitude formatted to four decimal places.
func (f FloatPoly) String() string {
	return fmt.Sprintf("%.4f %s %.4f (p - 1/2) %s %.4f (p - 1/2)^2 %s %.4f (p - 1/2)^3",
		f.C0,
		floatSign(f.C1), math.Abs(f.C1),
		floatSign(f.C2), math.Abs(f.C2),
		floatSign(f.C3), math.Abs(f.C3),
	)
}

// Eval substitutes a concrete per-point probability, returning the
// approximate win probability at x = p - 1/2. The truncation error of
// the cubic form grows as p moves away from 1/2.
func (f FloatPoly) Eval(p float64) float64 {
	x := p - 0.5
	return f.C0 + x*(f.C1+x*(f.C2+x*f.C3))
}

func floatSign(x float64) string {
	if x >= 0 {
		return "+"
	}
	return "-"
}
