package opensbli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opensbli "github.com/jresch/opensbli"
)

func testContext(t *testing.T, ndim int, constants ...string) *opensbli.Context {
	t.Helper()
	ctx, err := opensbli.NewContext(ndim, "x", constants)
	require.NoError(t, err)
	return ctx
}

// ============================================================
// Derivative tests
// ============================================================

func TestDerivative_FieldStaysSymbolic(t *testing.T) {
	ctx := testContext(t, 2)
	d := opensbli.DerOf(ctx.Indexed("u0"), ctx.Sym("x0"))
	assert.Equal(t, "Der(u0[x0, x1, t], x0)", d.String())
}

func TestDerivative_ConstantAnnihilates(t *testing.T) {
	ctx := testContext(t, 2)
	assert.Equal(t, "0", opensbli.DerOf(opensbli.N(5), ctx.Sym("x0")).String())
	assert.Equal(t, "0", opensbli.DerOf(ctx.Sym("Re"), ctx.Sym("x0")).String())
}

func TestDerivative_SelfIsOne(t *testing.T) {
	ctx := testContext(t, 2)
	x0 := ctx.Sym("x0")
	assert.Equal(t, "1", opensbli.DerOf(x0, x0).String())
}

func TestDerivative_Linearity(t *testing.T) {
	ctx := testContext(t, 2)
	u, v := ctx.Indexed("u0"), ctx.Indexed("v0")
	x0 := ctx.Sym("x0")
	d := opensbli.DerOf(opensbli.AddOf(u, v), x0)
	assert.Equal(t, "Der(u0[x0, x1, t], x0) + Der(v0[x0, x1, t], x0)", d.String())
}

func TestDerivative_ProductRule(t *testing.T) {
	ctx := testContext(t, 2)
	u, v := ctx.Indexed("u0"), ctx.Indexed("v0")
	d := opensbli.DerOf(opensbli.MulOf(u, v), ctx.Sym("x0"))
	sum, ok := d.(*opensbli.Add)
	require.True(t, ok)
	assert.Len(t, sum.Terms(), 2)
	assert.Contains(t, d.String(), "Der(u0[x0, x1, t], x0)")
	assert.Contains(t, d.String(), "Der(v0[x0, x1, t], x0)")
}

func TestDerivative_PowerRule(t *testing.T) {
	ctx := testContext(t, 2)
	u := ctx.Indexed("u0")
	d := opensbli.DerOf(opensbli.PowOf(u, opensbli.N(2)), ctx.Sym("x0"))
	assert.Equal(t, "2*Der(u0[x0, x1, t], x0)*u0[x0, x1, t]", d.String())
}

func TestDerivative_NestedMerge(t *testing.T) {
	ctx := testContext(t, 2)
	u := ctx.Indexed("u0")
	inner := opensbli.DerOf(u, ctx.Sym("x1"))
	d := opensbli.DerOf(inner, ctx.Sym("x0"))
	assert.Equal(t, "Der(u0[x0, x1, t], x0, x1)", d.String())
}

func TestDerivative_Temporal(t *testing.T) {
	ctx := testContext(t, 2)
	d, ok := opensbli.DerOf(ctx.Indexed("rho"), ctx.Sym("t")).(*opensbli.Derivative)
	require.True(t, ok)
	assert.True(t, d.Temporal())

	s, ok := opensbli.DerOf(ctx.Indexed("rho"), ctx.Sym("x0")).(*opensbli.Derivative)
	require.True(t, ok)
	assert.False(t, s.Temporal())
}

// ============================================================
// Conservative form tests
// ============================================================

func TestConservative_StaysFrozen(t *testing.T) {
	ctx := testContext(t, 2)
	u, v := ctx.Indexed("u0"), ctx.Indexed("v0")
	c := opensbli.ConservativeOf(opensbli.MulOf(u, v), ctx.Sym("x0"))
	assert.Equal(t, "Der(u0[x0, x1, t]*v0[x0, x1, t], x0)", c.String())

	// The flux stays in divergence form through simplification too.
	assert.Equal(t, c.String(), c.Simplify().String())
}

func TestConservative_SubstitutionKeepsForm(t *testing.T) {
	ctx := testContext(t, 2)
	c := opensbli.ConservativeOf(ctx.Indexed("phi"), ctx.Sym("x0"))
	got := c.SubSymbol("phi", opensbli.AddOf(ctx.Indexed("a"), ctx.Indexed("b")))
	d, ok := got.(*opensbli.Derivative)
	require.True(t, ok)
	assert.True(t, d.Conservative())
	assert.Equal(t, "Der(a[x0, x1, t] + b[x0, x1, t], x0)", got.String())
}

func TestDerivative_SubstitutionReevaluates(t *testing.T) {
	ctx := testContext(t, 2)
	d := opensbli.DerOf(ctx.Indexed("phi"), ctx.Sym("x0"))
	got := d.SubSymbol("phi", opensbli.AddOf(ctx.Indexed("a"), ctx.Indexed("b")))
	assert.Equal(t, "Der(a[x0, x1, t], x0) + Der(b[x0, x1, t], x0)", got.String())
}

// ============================================================
// Kronecker delta tests
// ============================================================

func TestKroneckerDelta_String(t *testing.T) {
	kd := opensbli.KDOf("i", "j")
	assert.Equal(t, "KD(_i, _j)", kd.String())
	assert.Same(t, kd, kd.Simplify())
}

func TestKroneckerDelta_DerivativeIsZero(t *testing.T) {
	ctx := testContext(t, 2)
	assert.Equal(t, "0", opensbli.DerOf(opensbli.KDOf("i", "j"), ctx.Sym("x0")).String())
}
