package taylor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func rat(a, b int64) *big.Rat { return big.NewRat(a, b) }

func TestConstants(t *testing.T) {
	t.Run("p plus q is one", func(t *testing.T) {
		require.True(t, P().Add(Q()).Eq(One()), "p + (1-p) should collapse to the constant 1")
	})

	t.Run("p minus q is twice the offset", func(t *testing.T) {
		want := New(nil, rat(2, 1), nil, nil)
		require.True(t, P().Sub(Q()).Eq(want), "p - q should equal 2x")
	})

	t.Run("terminals", func(t *testing.T) {
		require.Equal(t, [4]string{"1", "0", "0", "0"}, One().RatStrings())
		require.Equal(t, [4]string{"0", "0", "0", "0"}, Zero().RatStrings())
		require.Equal(t, [4]string{"1/2", "1", "0", "0"}, P().RatStrings())
		require.Equal(t, [4]string{"1/2", "-1", "0", "0"}, Q().RatStrings())
	})
}

func TestAddSub(t *testing.T) {
	a := New(rat(1, 2), rat(3, 4), rat(-1, 3), rat(5, 1))
	b := New(rat(1, 3), rat(-1, 4), rat(1, 6), rat(-2, 1))

	t.Run("componentwise sum", func(t *testing.T) {
		want := New(rat(5, 6), rat(1, 2), rat(-1, 6), rat(3, 1))
		require.True(t, a.Add(b).Eq(want), "coefficients should add independently")
	})

	t.Run("componentwise difference", func(t *testing.T) {
		want := New(rat(1, 6), rat(1, 1), rat(-1, 2), rat(7, 1))
		require.True(t, a.Sub(b).Eq(want), "coefficients should subtract independently")
	})

	t.Run("subtracting self yields zero", func(t *testing.T) {
		require.True(t, a.Sub(a).Eq(Zero()))
	})
}

func TestMul(t *testing.T) {
	t.Run("squaring p", func(t *testing.T) {
		// (1/2 + x)^2 = 1/4 + x + x^2
		want := New(rat(1, 4), rat(1, 1), rat(1, 1), nil)
		require.True(t, P().Mul(P()).Eq(want))
	})

	t.Run("squaring q", func(t *testing.T) {
		// (1/2 - x)^2 = 1/4 - x + x^2
		want := New(rat(1, 4), rat(-1, 1), rat(1, 1), nil)
		require.True(t, Q().Mul(Q()).Eq(want))
	})

	t.Run("p times q", func(t *testing.T) {
		// (1/2 + x)(1/2 - x) = 1/4 - x^2
		want := New(rat(1, 4), nil, rat(-1, 1), nil)
		require.True(t, P().Mul(Q()).Eq(want))
	})

	t.Run("general cubic product", func(t *testing.T) {
		a := New(rat(1, 1), rat(2, 1), rat(3, 1), rat(4, 1))
		b := New(rat(5, 1), rat(6, 1), rat(7, 1), rat(8, 1))
		// c0 = 1*5, c1 = 1*6+2*5, c2 = 1*7+2*6+3*5, c3 = 1*8+2*7+3*6+4*5
		want := New(rat(5, 1), rat(16, 1), rat(34, 1), rat(60, 1))
		require.True(t, a.Mul(b).Eq(want))
	})

	t.Run("multiplying by one is identity", func(t *testing.T) {
		a := New(rat(7, 3), rat(-2, 5), rat(11, 13), rat(-1, 7))
		require.True(t, a.Mul(One()).Eq(a))
		require.True(t, One().Mul(a).Eq(a))
	})
}

func TestMulTruncation(t *testing.T) {
	t.Run("cubic times linear vanishes", func(t *testing.T) {
		// x^3 * x = x^4: every surviving degree is zero, so the a3·b1
		// cross term must not leak into c3.
		cubic := New(nil, nil, nil, rat(1, 1))
		linear := New(nil, rat(1, 1), nil, nil)
		require.True(t, cubic.Mul(linear).Eq(Zero()), "degree 4 products should not appear anywhere")
		require.True(t, linear.Mul(cubic).Eq(Zero()))
	})

	t.Run("quadratic squared vanishes", func(t *testing.T) {
		quad := New(nil, nil, rat(1, 1), nil)
		require.True(t, quad.Mul(quad).Eq(Zero()), "the a2·b2 cross term should not appear")
	})

	t.Run("only low cross terms reach c3", func(t *testing.T) {
		// Both operands carry nonzero degree-3 coefficients; c3 of the
		// product must still be exactly a0·b3 + a1·b2 + a2·b1 + a3·b0.
		a := New(rat(1, 1), rat(2, 1), rat(3, 1), rat(100, 1))
		b := New(rat(4, 1), rat(5, 1), rat(6, 1), rat(200, 1))
		want := rat(1*200+2*6+3*5+100*4, 1)
		require.Zero(t, a.Mul(b).Coeff(3).Cmp(want))
	})
}

func TestImmutability(t *testing.T) {
	a := New(rat(1, 2), rat(1, 3), rat(1, 5), rat(1, 7))
	b := New(rat(2, 1), rat(3, 1), rat(5, 1), rat(7, 1))
	aCopy := New(a.Coeff(0), a.Coeff(1), a.Coeff(2), a.Coeff(3))

	a.Add(b)
	a.Sub(b)
	a.Mul(b)
	a.Float()
	_ = a.String()

	require.True(t, a.Eq(aCopy), "operations should never mutate their operands")

	t.Run("constructor copies its inputs", func(t *testing.T) {
		c0 := rat(1, 2)
		p := New(c0, nil, nil, nil)
		c0.SetInt64(99)
		require.Equal(t, "1/2", p.RatStrings()[0], "mutating the source Rat should not reach the Poly")
	})

	t.Run("accessor hands back a copy", func(t *testing.T) {
		p := One()
		p.Coeff(0).SetInt64(5)
		require.True(t, p.Eq(One()))
	})
}

func TestCoeff(t *testing.T) {
	a := New(rat(1, 1), rat(2, 1), rat(3, 1), rat(4, 1))
	require.Zero(t, a.Coeff(2).Cmp(rat(3, 1)))
	require.Zero(t, a.Coeff(4).Sign(), "degrees past the truncation point are zero")
	require.Zero(t, a.Coeff(-1).Sign())
}

func TestString(t *testing.T) {
	t.Run("exact rendering", func(t *testing.T) {
		require.Equal(t, "1/2 + 1 (p - 1/2) + 0 (p - 1/2)^2 + 0 (p - 1/2)^3", P().String())
		require.Equal(t, "1/2 - 1 (p - 1/2) + 0 (p - 1/2)^2 + 0 (p - 1/2)^3", Q().String())
		require.Equal(t, "1 + 0 (p - 1/2) + 0 (p - 1/2)^2 + 0 (p - 1/2)^3", One().String())
	})

	t.Run("negative magnitudes render sign separately", func(t *testing.T) {
		a := New(rat(-1, 4), rat(-3, 8), rat(5, 16), rat(-7, 32))
		require.Equal(t, "-1/4 - 3/8 (p - 1/2) + 5/16 (p - 1/2)^2 - 7/32 (p - 1/2)^3", a.String())
	})

	t.Run("display rendering", func(t *testing.T) {
		f := New(rat(1, 2), rat(9, 8), rat(-3, 4), nil).Float()
		require.Equal(t, "0.5000 + 1.1250 (p - 1/2) - 0.7500 (p - 1/2)^2 + 0.0000 (p - 1/2)^3", f.String())
	})
}

func TestFloat(t *testing.T) {
	a := New(rat(11, 16), rat(9, 8), rat(-3, 4), rat(-5, 2))
	f := a.Float()

	require.Equal(t, 0.6875, f.C0)
	require.Equal(t, 1.125, f.C1)
	require.Equal(t, -0.75, f.C2)
	require.Equal(t, -2.5, f.C3)
}

func TestEval(t *testing.T) {
	t.Run("linear form tracks p", func(t *testing.T) {
		require.Equal(t, 0.75, P().Float().Eval(0.75))
		require.Equal(t, 0.25, Q().Float().Eval(0.75))
	})

	t.Run("midpoint reads the constant term", func(t *testing.T) {
		a := New(rat(11, 16), rat(9, 8), rat(-3, 4), rat(-5, 2))
		require.Equal(t, 0.6875, a.Float().Eval(0.5))
	})
}
