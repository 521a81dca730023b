package opensbli

// ============================================================
// Tree walking and extraction
// ============================================================

// walkExpr visits every node of e in preorder.
func walkExpr(e Expr, visit func(Expr)) {
	visit(e)
	switch n := e.(type) {
	case *Add:
		for _, t := range n.terms {
			walkExpr(t, visit)
		}
	case *Mul:
		for _, f := range n.factors {
			walkExpr(f, visit)
		}
	case *Pow:
		walkExpr(n.base, visit)
		walkExpr(n.exp, visit)
	case *Derivative:
		walkExpr(n.arg, visit)
		for _, v := range n.vars {
			walkExpr(v, visit)
		}
	case *Indexed:
		for _, a := range n.args {
			walkExpr(a, visit)
		}
	}
}

// IndexedVariables collects the distinct grid fields appearing in the
// expressions, in first-encounter order, together with the number of
// expressions scanned.
func IndexedVariables(exprs []Expr) ([]Expr, int) {
	seen := map[string]bool{}
	var out []Expr
	for _, e := range exprs {
		walkExpr(e, func(n Expr) {
			if ix, ok := n.(*Indexed); ok && !seen[ix.String()] {
				seen[ix.String()] = true
				out = append(out, ix)
			}
		})
	}
	return out, len(exprs)
}

// Derivatives collects every derivative node in the expressions, split
// into spatial and temporal. Nested derivatives inside a flux argument are
// collected as well. Occurrences are kept as encountered, so a derivative
// shared by two equations appears once per equation.
func Derivatives(exprs []Expr) (spatial, temporal []Expr) {
	for _, e := range exprs {
		walkExpr(e, func(n Expr) {
			if d, ok := n.(*Derivative); ok {
				if d.Temporal() {
					temporal = append(temporal, d)
				} else {
					spatial = append(spatial, d)
				}
			}
		})
	}
	return spatial, temporal
}

// EquationsToDict maps each equality's left-hand side, rendered as a
// string, to its right-hand side. Later equalities overwrite earlier ones
// with the same left-hand side.
func EquationsToDict(eqs []*Equality) map[string]Expr {
	out := make(map[string]Expr, len(eqs))
	for _, eq := range eqs {
		out[eq.LHS.String()] = eq.RHS
	}
	return out
}

// Flatten lists every expanded component's sides in order, left-hand side
// first.
func Flatten(eqs []*Equation) []Expr {
	var out []Expr
	for _, eq := range eqs {
		for _, c := range eq.Expanded {
			out = append(out, c.LHS, c.RHS)
		}
	}
	return out
}
