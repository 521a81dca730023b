package opensbli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opensbli "github.com/jresch/opensbli"
)

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	assert.Equal(t, "42", opensbli.N(42).String())
}

func TestNum_Rational(t *testing.T) {
	assert.Equal(t, "1/3", opensbli.F(1, 3).String())
}

func TestNum_RationalReduces(t *testing.T) {
	assert.Equal(t, "1/2", opensbli.F(2, 4).String())
}

func TestNum_LaTeX_Rational(t *testing.T) {
	assert.Equal(t, `\frac{2}{5}`, opensbli.F(2, 5).LaTeX())
}

func TestNum_Equal(t *testing.T) {
	assert.True(t, opensbli.F(2, 4).Equal(opensbli.F(1, 2)))
	assert.False(t, opensbli.N(1).Equal(opensbli.N(2)))
}

// ============================================================
// Add tests
// ============================================================

func TestAdd_CombinesLikeTerms(t *testing.T) {
	a := opensbli.S("a")
	sum := opensbli.AddOf(a, a, a, opensbli.N(2))
	assert.Equal(t, "3*a + 2", sum.String())
}

func TestAdd_CancelsToZero(t *testing.T) {
	a := opensbli.S("a")
	sum := opensbli.AddOf(a, opensbli.MulOf(opensbli.N(-1), a))
	assert.Equal(t, "0", sum.String())
}

func TestAdd_RationalCoefficients(t *testing.T) {
	a := opensbli.S("a")
	sum := opensbli.AddOf(
		opensbli.MulOf(opensbli.F(1, 3), a),
		opensbli.MulOf(opensbli.F(5, 6), a),
	)
	assert.Equal(t, "7/6*a", sum.String())
}

func TestAdd_Flattens(t *testing.T) {
	a, b, c := opensbli.S("a"), opensbli.S("b"), opensbli.S("c")
	sum := opensbli.AddOf(opensbli.AddOf(a, b), c)
	assert.Equal(t, "a + b + c", sum.String())
}

// ============================================================
// Mul tests
// ============================================================

func TestMul_SortsFactors(t *testing.T) {
	prod := opensbli.MulOf(opensbli.S("b"), opensbli.S("a"))
	assert.Equal(t, "a*b", prod.String())
}

func TestMul_ZeroAnnihilates(t *testing.T) {
	prod := opensbli.MulOf(opensbli.N(0), opensbli.S("a"))
	assert.Equal(t, "0", prod.String())
}

func TestMul_FoldsCoefficients(t *testing.T) {
	prod := opensbli.MulOf(opensbli.N(2), opensbli.S("a"), opensbli.N(3))
	assert.Equal(t, "6*a", prod.String())
}

func TestMul_ParenthesizesSums(t *testing.T) {
	sum := opensbli.AddOf(opensbli.S("a"), opensbli.S("b"))
	prod := opensbli.MulOf(opensbli.N(2), sum)
	assert.Equal(t, "2*(a + b)", prod.String())
}

// ============================================================
// Pow tests
// ============================================================

func TestPow_IntegerFold(t *testing.T) {
	assert.Equal(t, "1024", opensbli.PowOf(opensbli.N(2), opensbli.N(10)).String())
}

func TestPow_Identity(t *testing.T) {
	a := opensbli.S("a")
	assert.Equal(t, "a", opensbli.PowOf(a, opensbli.N(1)).String())
	assert.Equal(t, "1", opensbli.PowOf(a, opensbli.N(0)).String())
}

func TestPow_NegativeExponentFolds(t *testing.T) {
	assert.Equal(t, "1/4", opensbli.PowOf(opensbli.N(2), opensbli.N(-2)).String())
}

func TestPow_NestedExponentsMerge(t *testing.T) {
	a := opensbli.S("a")
	p := opensbli.PowOf(opensbli.PowOf(a, opensbli.N(2)), opensbli.N(3))
	assert.Equal(t, "a^6", p.String())
}

// ============================================================
// Determinism and substitution
// ============================================================

func TestSimplify_Deterministic(t *testing.T) {
	a, b, c := opensbli.S("a"), opensbli.S("b"), opensbli.S("c")
	want := opensbli.AddOf(opensbli.MulOf(a, b), c, opensbli.N(4)).String()
	for i := 0; i < 100; i++ {
		got := opensbli.AddOf(opensbli.N(4), c, opensbli.MulOf(b, a)).String()
		require.Equal(t, want, got)
	}
}

func TestSubSymbol_Sym(t *testing.T) {
	a := opensbli.S("a")
	expr := opensbli.AddOf(opensbli.MulOf(opensbli.N(2), a), opensbli.N(3))
	got := expr.SubSymbol("a", opensbli.N(5)).Simplify()
	assert.Equal(t, "13", got.String())
}

func TestSubSymbol_Indexed(t *testing.T) {
	ctx, err := opensbli.NewContext(2, "x", nil)
	require.NoError(t, err)
	u := ctx.Indexed("u0")
	got := u.SubSymbol("u0", opensbli.N(7))
	assert.Equal(t, "7", got.String())
	assert.Equal(t, "u0[x0, x1, t]", u.SubSymbol("u1", opensbli.N(7)).String())
}
