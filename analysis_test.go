package opensbli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opensbli "github.com/jresch/opensbli"
)

func massProblem2D(t *testing.T) []*opensbli.Equation {
	t.Helper()
	prob, err := opensbli.NewProblem(
		[]string{"Eq(Der(rho, t), -conser(rhou_j, x_j))"},
		nil, 2, nil, "x", []bool{false}, nil)
	require.NoError(t, err)
	eqs, _, err := prob.Expand()
	require.NoError(t, err)
	return eqs
}

// ============================================================
// Extractor tests
// ============================================================

func TestIndexedVariables_MassEquation(t *testing.T) {
	flat := opensbli.Flatten(massProblem2D(t))
	vars, n := opensbli.IndexedVariables(flat)
	assert.Equal(t, 2, n)

	got := make([]string, len(vars))
	for i, v := range vars {
		got[i] = v.String()
	}
	assert.Equal(t, []string{
		"rho[x0, x1, t]",
		"rhou0[x0, x1, t]",
		"rhou1[x0, x1, t]",
	}, got)
}

func TestIndexedVariables_Dedupes(t *testing.T) {
	ctx := testContext(t, 2)
	u := ctx.Indexed("u0")
	vars, _ := opensbli.IndexedVariables([]opensbli.Expr{
		opensbli.MulOf(u, u),
		opensbli.AddOf(u, ctx.Indexed("v0")),
	})
	assert.Len(t, vars, 2)
}

func TestDerivatives_SplitsTemporalAndSpatial(t *testing.T) {
	flat := opensbli.Flatten(massProblem2D(t))
	spatial, temporal := opensbli.Derivatives(flat)

	require.Len(t, temporal, 1)
	assert.Equal(t, "Der(rho[x0, x1, t], t)", temporal[0].String())

	require.Len(t, spatial, 2)
	assert.Equal(t, "Der(rhou0[x0, x1, t], x0)", spatial[0].String())
	assert.Equal(t, "Der(rhou1[x0, x1, t], x1)", spatial[1].String())
}

func TestDerivatives_FindsNestedDerivatives(t *testing.T) {
	ctx := testContext(t, 2)
	inner := opensbli.DerOf(ctx.Indexed("u0"), ctx.Sym("x0"))
	outer := opensbli.ConservativeOf(inner, ctx.Sym("x1"))
	spatial, temporal := opensbli.Derivatives([]opensbli.Expr{outer})
	assert.Empty(t, temporal)
	require.Len(t, spatial, 2)
	assert.Equal(t, "Der(Der(u0[x0, x1, t], x0), x1)", spatial[0].String())
	assert.Equal(t, "Der(u0[x0, x1, t], x0)", spatial[1].String())
}

func TestEquationsToDict_KeyedByLHS(t *testing.T) {
	eqs := massProblem2D(t)
	dict := opensbli.EquationsToDict(eqs[0].Expanded)
	require.Len(t, dict, 1)
	rhs, ok := dict["Der(rho[x0, x1, t], t)"]
	require.True(t, ok)
	assert.Contains(t, rhs.String(), "Der(rhou0[x0, x1, t], x0)")
}

func TestEquationsToDict_NavierStokes(t *testing.T) {
	prob := navierStokes2D(t)
	eqs, _, err := prob.Expand()
	require.NoError(t, err)

	var comps []*opensbli.Equality
	for _, eq := range eqs {
		comps = append(comps, eq.Expanded...)
	}
	dict := opensbli.EquationsToDict(comps)
	require.Len(t, dict, 4)
	for _, key := range []string{
		"Der(rho[x0, x1, t], t)",
		"Der(rhou0[x0, x1, t], t)",
		"Der(rhou1[x0, x1, t], t)",
		"Der(rhoE[x0, x1, t], t)",
	} {
		assert.Contains(t, dict, key)
	}
}

func TestFlatten_OrdersSidesPerComponent(t *testing.T) {
	eqs := massProblem2D(t)
	flat := opensbli.Flatten(eqs)
	require.Len(t, flat, 2)
	assert.Equal(t, "Der(rho[x0, x1, t], t)", flat[0].String())
}
