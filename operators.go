package opensbli

import (
	"fmt"
	"sort"
	"strings"
)

// ============================================================
// Derivative — Der(expr, var...) and the conservative/divergence form
// ============================================================

// Derivative is a partial derivative with one variable per differentiation
// step (repeated variables give higher order). A conservative derivative is
// a divergence-form flux term: it is kept structurally intact instead of
// being pushed through products and sums, because downstream discretization
// consumes the flux as written.
type Derivative struct {
	arg          Expr
	vars         []Expr
	conservative bool
}

// DerOf builds Der(arg, vars...) and eagerly evaluates it: derivatives
// distribute over sums, apply the product rule, annihilate constants, and
// nested derivatives merge into one multi-variable node.
func DerOf(arg Expr, vars ...Expr) Expr {
	if len(vars) == 0 {
		panic("opensbli: DerOf needs at least one differentiation variable")
	}
	return derivativeN(arg.Simplify(), vars)
}

// ConservativeOf builds the divergence-form derivative of a flux with
// respect to one variable, left unevaluated.
func ConservativeOf(arg Expr, v Expr) Expr {
	return &Derivative{arg: arg.Simplify(), vars: []Expr{v}, conservative: true}
}

func derivativeN(arg Expr, vars []Expr) Expr {
	e := arg
	for _, v := range vars {
		e = derivative(e, v)
	}
	return e
}

func derivative(arg Expr, v Expr) Expr {
	switch a := arg.(type) {
	case *Num:
		return N(0)
	case *Sym:
		if a.Equal(v) {
			return N(1)
		}
		return N(0)
	case *Indexed:
		return &Derivative{arg: a, vars: []Expr{v}}
	case *Add:
		terms := make([]Expr, len(a.terms))
		for i, t := range a.terms {
			terms[i] = derivative(t, v)
		}
		return AddOf(terms...)
	case *Mul:
		terms := make([]Expr, len(a.factors))
		for i, fi := range a.factors {
			dfi := derivative(fi, v)
			others := make([]Expr, 0, len(a.factors))
			others = append(others, dfi)
			for j, fj := range a.factors {
				if j != i {
					others = append(others, fj)
				}
			}
			terms[i] = MulOf(others...)
		}
		return AddOf(terms...)
	case *Pow:
		if en, ok := a.exp.(*Num); ok {
			newExp := numAdd(en, N(-1))
			return MulOf(en, PowOf(a.base, newExp), derivative(a.base, v))
		}
		return &Derivative{arg: a, vars: []Expr{v}}
	case *Derivative:
		merged := make([]Expr, len(a.vars), len(a.vars)+1)
		copy(merged, a.vars)
		merged = append(merged, v)
		sortDiffVars(merged)
		return &Derivative{arg: a.arg, vars: merged, conservative: a.conservative}
	case *KroneckerDelta:
		return N(0)
	default:
		return &Derivative{arg: arg, vars: []Expr{v}}
	}
}

// Mixed partials commute; keep differentiation variables in canonical order
// so structurally equal derivatives compare and deduplicate as one.
func sortDiffVars(vars []Expr) {
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].String() < vars[j].String() })
}

func (d *Derivative) Simplify() Expr {
	arg := d.arg.Simplify()
	if d.conservative {
		return &Derivative{arg: arg, vars: d.vars, conservative: true}
	}
	return derivativeN(arg, d.vars)
}

func (d *Derivative) String() string {
	parts := make([]string, 0, len(d.vars)+1)
	parts = append(parts, d.arg.String())
	for _, v := range d.vars {
		parts = append(parts, v.String())
	}
	return "Der(" + strings.Join(parts, ", ") + ")"
}

func (d *Derivative) LaTeX() string {
	order := len(d.vars)
	num := "\\partial"
	if order > 1 {
		num = fmt.Sprintf("\\partial^{%d}", order)
	}
	den := make([]string, len(d.vars))
	for i, v := range d.vars {
		den[i] = "\\partial " + v.LaTeX()
	}
	return fmt.Sprintf("\\frac{%s %s}{%s}", num, d.arg.LaTeX(), strings.Join(den, "\\, "))
}

func (d *Derivative) SubSymbol(name string, value Expr) Expr {
	newArg := d.arg.SubSymbol(name, value)
	if d.conservative {
		return &Derivative{arg: newArg, vars: d.vars, conservative: true}
	}
	// Substitution may expose structure the derivative can push through.
	return derivativeN(newArg.Simplify(), d.vars)
}

func (d *Derivative) Equal(other Expr) bool {
	o, ok := other.(*Derivative)
	if !ok || len(d.vars) != len(o.vars) || !d.arg.Equal(o.arg) {
		return false
	}
	for i := range d.vars {
		if !d.vars[i].Equal(o.vars[i]) {
			return false
		}
	}
	return true
}

func (d *Derivative) exprType() string { return "derivative" }
func (d *Derivative) Arg() Expr        { return d.arg }
func (d *Derivative) Vars() []Expr     { return d.vars }

// Conservative reports whether this derivative is a divergence-form flux.
func (d *Derivative) Conservative() bool { return d.conservative }

// Temporal reports whether this is a time derivative.
func (d *Derivative) Temporal() bool {
	for _, v := range d.vars {
		if s, ok := v.(*Sym); ok && s.Name() == TimeSymbol {
			return true
		}
	}
	return false
}

// ============================================================
// KroneckerDelta — KD(_i, _j)
// ============================================================

// KroneckerDelta reduces to 1 when its two indices bind to equal values and
// to 0 otherwise; until both bind it stays symbolic.
type KroneckerDelta struct {
	A, B IndexSlot
}

func KDOf(a, b string) *KroneckerDelta {
	return &KroneckerDelta{A: IndexSlot{Name: a}, B: IndexSlot{Name: b}}
}

func (k *KroneckerDelta) Simplify() Expr {
	if k.A.Bound && k.B.Bound {
		if k.A.Value == k.B.Value {
			return N(1)
		}
		return N(0)
	}
	return k
}

func kdSlotString(s IndexSlot) string {
	if s.Bound {
		return fmt.Sprintf("%d", s.Value)
	}
	return "_" + s.Name
}

func (k *KroneckerDelta) String() string {
	return "KD(" + kdSlotString(k.A) + ", " + kdSlotString(k.B) + ")"
}

func (k *KroneckerDelta) LaTeX() string {
	a, b := k.A.Name, k.B.Name
	if k.A.Bound {
		a = fmt.Sprintf("%d", k.A.Value)
	}
	if k.B.Bound {
		b = fmt.Sprintf("%d", k.B.Value)
	}
	return "\\delta_{" + a + " " + b + "}"
}

func (k *KroneckerDelta) SubSymbol(string, Expr) Expr { return k }

func (k *KroneckerDelta) Equal(other Expr) bool {
	o, ok := other.(*KroneckerDelta)
	return ok && k.A == o.A && k.B == o.B
}

func (k *KroneckerDelta) exprType() string { return "kronecker" }

func (k *KroneckerDelta) bind(idx string, val int) *KroneckerDelta {
	a, b := k.A, k.B
	changed := false
	if !a.Bound && a.Name == idx {
		a.Value, a.Bound = val, true
		changed = true
	}
	if !b.Bound && b.Name == idx {
		b.Value, b.Bound = val, true
		changed = true
	}
	if !changed {
		return k
	}
	return &KroneckerDelta{A: a, B: b}
}
