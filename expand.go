package opensbli

// ============================================================
// Index classification
// ============================================================

// ClassifyIndices walks both sides of an equation and classifies every
// index name as free (one occurrence along a multiplicative path) or
// summed (two occurrences along a path). An index is free at equation
// scope when it occurs free on the left-hand side or free in every path
// of the equation; an index-free term then simply broadcasts into each
// component. A genuine conflict (free in one term, summed or absent in
// another, or a third occurrence in one product) is an ExpansionError.
// Both result slices are in first-encounter order.
func ClassifyIndices(eq *Equality) (free []string, summed []string, err error) {
	var (
		order     []string
		seen      = map[string]bool{}
		summedSet = map[string]bool{}
		lhsFree   = map[string]bool{}
		pathFrees []map[string]bool
	)
	note := func(idx string) {
		if !seen[idx] {
			seen[idx] = true
			order = append(order, idx)
		}
	}
	collect := func(side Expr, lhs bool) error {
		for _, term := range additiveTerms(side) {
			for _, path := range indexPaths(term) {
				counts := map[string]int{}
				for _, idx := range path {
					note(idx)
					counts[idx]++
					if counts[idx] > 2 {
						return &ExpansionError{
							Equation: eq.String(), Index: idx,
							Msg: "index occurs more than twice in a product",
						}
					}
				}
				pf := map[string]bool{}
				for idx, c := range counts {
					if c == 1 {
						pf[idx] = true
						if lhs {
							lhsFree[idx] = true
						}
					} else {
						summedSet[idx] = true
					}
				}
				pathFrees = append(pathFrees, pf)
			}
		}
		return nil
	}
	if err := collect(eq.LHS, true); err != nil {
		return nil, nil, err
	}
	if err := collect(eq.RHS, false); err != nil {
		return nil, nil, err
	}

	freeSet := map[string]bool{}
	for idx := range lhsFree {
		freeSet[idx] = true
	}
	for _, idx := range order {
		if freeSet[idx] {
			continue
		}
		inAll := true
		for _, pf := range pathFrees {
			if !pf[idx] {
				inAll = false
				break
			}
		}
		if inAll {
			freeSet[idx] = true
		}
	}

	for _, pf := range pathFrees {
		for idx := range pf {
			if !freeSet[idx] {
				return nil, nil, &ExpansionError{
					Equation: eq.String(), Index: idx,
					Msg: "index is free in one term but not in every term",
				}
			}
		}
	}
	for idx := range freeSet {
		if summedSet[idx] {
			return nil, nil, &ExpansionError{
				Equation: eq.String(), Index: idx,
				Msg: "index is free in one term and summed in another",
			}
		}
	}

	for _, idx := range order {
		if freeSet[idx] {
			free = append(free, idx)
		}
	}
	for _, idx := range order {
		if summedSet[idx] && !freeSet[idx] {
			summed = append(summed, idx)
		}
	}
	return free, summed, nil
}

func additiveTerms(e Expr) []Expr {
	if a, ok := e.(*Add); ok {
		return a.terms
	}
	return []Expr{e}
}

// indexPaths returns the multiset of unbound index names along every
// multiplicative path through e. Sums fork paths, products concatenate
// them, a derivative appends its differentiation indices to each path of
// its argument.
func indexPaths(e Expr) [][]string {
	switch n := e.(type) {
	case *EinsteinTerm:
		return [][]string{n.FreeIndexes()}
	case *KroneckerDelta:
		var p []string
		if !n.A.Bound {
			p = append(p, n.A.Name)
		}
		if !n.B.Bound {
			p = append(p, n.B.Name)
		}
		return [][]string{p}
	case *Add:
		var out [][]string
		for _, t := range n.terms {
			out = append(out, indexPaths(t)...)
		}
		return out
	case *Mul:
		out := [][]string{nil}
		for _, f := range n.factors {
			out = crossPaths(out, indexPaths(f))
		}
		return out
	case *Pow:
		return crossPaths(indexPaths(n.base), indexPaths(n.exp))
	case *Derivative:
		var varIdx []string
		for _, v := range n.vars {
			if t, ok := v.(*EinsteinTerm); ok {
				varIdx = append(varIdx, t.FreeIndexes()...)
			}
		}
		paths := indexPaths(n.arg)
		out := make([][]string, len(paths))
		for i, p := range paths {
			out[i] = append(append([]string(nil), p...), varIdx...)
		}
		return out
	default:
		return [][]string{nil}
	}
}

func crossPaths(a, b [][]string) [][]string {
	out := make([][]string, 0, len(a)*len(b))
	for _, pa := range a {
		for _, pb := range b {
			p := make([]string, 0, len(pa)+len(pb))
			p = append(p, pa...)
			p = append(p, pb...)
			out = append(out, p)
		}
	}
	return out
}

// ============================================================
// Binding and summation unrolling
// ============================================================

// bindIndex rewrites e with every unbound occurrence of idx set to val.
// The tree keeps its structure; nothing simplifies here.
func bindIndex(e Expr, idx string, val int) Expr {
	switch n := e.(type) {
	case *EinsteinTerm:
		return n.bind(idx, val)
	case *KroneckerDelta:
		return n.bind(idx, val)
	case *Add:
		terms := make([]Expr, len(n.terms))
		for i, t := range n.terms {
			terms[i] = bindIndex(t, idx, val)
		}
		return &Add{terms: terms}
	case *Mul:
		factors := make([]Expr, len(n.factors))
		for i, f := range n.factors {
			factors[i] = bindIndex(f, idx, val)
		}
		return &Mul{factors: factors}
	case *Pow:
		return &Pow{base: bindIndex(n.base, idx, val), exp: bindIndex(n.exp, idx, val)}
	case *Derivative:
		vars := make([]Expr, len(n.vars))
		for i, v := range n.vars {
			vars[i] = bindIndex(v, idx, val)
		}
		return &Derivative{arg: bindIndex(n.arg, idx, val), vars: vars, conservative: n.conservative}
	default:
		return e
	}
}

// carriedIndices is the index multiset a subtree contributes to its
// enclosing product scope. Children of a sum contribute uniformly, so one
// representative branch suffices.
func carriedIndices(e Expr) []string {
	switch n := e.(type) {
	case *EinsteinTerm:
		return n.FreeIndexes()
	case *KroneckerDelta:
		var p []string
		if !n.A.Bound {
			p = append(p, n.A.Name)
		}
		if !n.B.Bound {
			p = append(p, n.B.Name)
		}
		return p
	case *Add:
		if len(n.terms) == 0 {
			return nil
		}
		return carriedIndices(n.terms[0])
	case *Mul:
		var out []string
		for _, f := range n.factors {
			out = append(out, carriedIndices(f)...)
		}
		return out
	case *Pow:
		return append(carriedIndices(n.base), carriedIndices(n.exp)...)
	case *Derivative:
		out := carriedIndices(n.arg)
		for _, v := range n.vars {
			out = append(out, carriedIndices(v)...)
		}
		return out
	default:
		return nil
	}
}

// unrollSums expands repeated indices into explicit sums, bottom-up. A
// repeated index is summed at the innermost scope where both of its
// occurrences meet, which keeps sums out of unrelated additive branches.
func unrollSums(e Expr, ndim int) Expr {
	switch n := e.(type) {
	case *Add:
		terms := make([]Expr, len(n.terms))
		for i, t := range n.terms {
			terms[i] = unrollSums(t, ndim)
		}
		return &Add{terms: terms}
	case *Mul:
		factors := make([]Expr, len(n.factors))
		for i, f := range n.factors {
			factors[i] = unrollSums(f, ndim)
		}
		return sumRepeated(&Mul{factors: factors}, ndim)
	case *Pow:
		return sumRepeated(&Pow{base: unrollSums(n.base, ndim), exp: unrollSums(n.exp, ndim)}, ndim)
	case *Derivative:
		vars := append([]Expr(nil), n.vars...)
		d := &Derivative{arg: unrollSums(n.arg, ndim), vars: vars, conservative: n.conservative}
		return sumRepeated(d, ndim)
	case *EinsteinTerm, *KroneckerDelta:
		return sumRepeated(e, ndim)
	default:
		return e
	}
}

// sumRepeated replaces each index occurring twice in e's immediate scope
// with an explicit sum over the dimensions.
func sumRepeated(e Expr, ndim int) Expr {
	counts := map[string]int{}
	var order []string
	for _, idx := range carriedIndices(e) {
		if counts[idx] == 0 {
			order = append(order, idx)
		}
		counts[idx]++
	}
	for _, idx := range order {
		if counts[idx] != 2 {
			continue
		}
		terms := make([]Expr, ndim)
		for v := 0; v < ndim; v++ {
			terms[v] = bindIndex(e, idx, v)
		}
		e = &Add{terms: terms}
	}
	return e
}

// ============================================================
// Resolution to scalar form
// ============================================================

// resolve rewrites a fully bound tree into concrete scalar nodes: tensor
// atoms become grid fields or symbols, Kronecker deltas fold to numbers,
// derivatives evaluate (or stay in divergence form) and, with metrics on,
// conservative fluxes pick up the Jacobian weighting.
func resolve(ctx *Context, e Expr, metric bool) (Expr, error) {
	switch n := e.(type) {
	case *Num, *Sym, *Indexed:
		return e, nil
	case *EinsteinTerm:
		return ctx.resolveTerm(n)
	case *KroneckerDelta:
		out := n.Simplify()
		if _, still := out.(*KroneckerDelta); still {
			return nil, &ExpansionError{Equation: n.String(), Msg: "Kronecker delta index survived expansion"}
		}
		return out, nil
	case *Add:
		terms := make([]Expr, len(n.terms))
		for i, t := range n.terms {
			r, err := resolve(ctx, t, metric)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return AddOf(terms...), nil
	case *Mul:
		factors := make([]Expr, len(n.factors))
		for i, f := range n.factors {
			r, err := resolve(ctx, f, metric)
			if err != nil {
				return nil, err
			}
			factors[i] = r
		}
		return MulOf(factors...), nil
	case *Pow:
		base, err := resolve(ctx, n.base, metric)
		if err != nil {
			return nil, err
		}
		exp, err := resolve(ctx, n.exp, metric)
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	case *Derivative:
		arg, err := resolve(ctx, n.arg, metric)
		if err != nil {
			return nil, err
		}
		vars := make([]Expr, len(n.vars))
		for i, v := range n.vars {
			r, err := resolve(ctx, v, metric)
			if err != nil {
				return nil, err
			}
			vars[i] = r
		}
		if n.conservative {
			if metric {
				jac := ctx.Indexed("jac")
				flux := &Derivative{arg: MulOf(jac, arg), vars: vars, conservative: true}
				return MulOf(PowOf(jac, N(-1)), flux), nil
			}
			return &Derivative{arg: arg, vars: vars, conservative: true}, nil
		}
		return derivativeN(arg.Simplify(), vars), nil
	default:
		return nil, &ExpansionError{Equation: e.String(), Msg: "unexpected node in expansion"}
	}
}

// ============================================================
// Equation expansion
// ============================================================

// expandEquality enumerates every assignment of the equation's free
// indices over [0, ndim) and produces one scalar equality per component.
// Assignments run in lexicographic order with the first-encountered index
// slowest, so momentum components come out 0, 1, 2.
func expandEquality(ctx *Context, eq *Equality, metric bool) ([]*Equality, error) {
	free, _, err := ClassifyIndices(eq)
	if err != nil {
		return nil, err
	}
	total := 1
	for range free {
		total *= ctx.NDim
	}
	out := make([]*Equality, 0, total)
	vals := make([]int, len(free))
	for c := 0; c < total; c++ {
		lhs, rhs := eq.LHS, eq.RHS
		for i, idx := range free {
			lhs = bindIndex(lhs, idx, vals[i])
			rhs = bindIndex(rhs, idx, vals[i])
		}
		lhs, rhs = unrollSums(lhs, ctx.NDim), unrollSums(rhs, ctx.NDim)
		rl, err := resolve(ctx, lhs, metric)
		if err != nil {
			return nil, err
		}
		rr, err := resolve(ctx, rhs, metric)
		if err != nil {
			return nil, err
		}
		out = append(out, &Equality{LHS: rl.Simplify(), RHS: rr.Simplify()})
		for i := len(vals) - 1; i >= 0; i-- {
			vals[i]++
			if vals[i] < ctx.NDim {
				break
			}
			vals[i] = 0
		}
	}
	return out, nil
}
