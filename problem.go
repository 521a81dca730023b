package opensbli

import "fmt"

// ============================================================
// Problem — one complete equation-expansion job
// ============================================================

// Problem bundles a set of governing equations in Einstein notation with
// the substitutions, formulas and configuration needed to expand them into
// concrete per-component scalar equations.
type Problem struct {
	ctx *Context

	equations     []*Equation
	substitutions []*Equation
	formulas      []*Equation

	expanded bool
}

// NewProblem parses every input string and validates the configuration.
// Equations, substitutions and formulas are all written as Eq(lhs, rhs);
// metrics carries one flag per governing equation and enables the Jacobian
// weighting of that equation's conservative fluxes.
func NewProblem(equations, substitutions []string, ndim int, constants []string, coordinateSymbol string, metrics []bool, formulas []string) (*Problem, error) {
	ctx, err := NewContext(ndim, coordinateSymbol, constants)
	if err != nil {
		return nil, err
	}
	if len(metrics) != len(equations) {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("have %d equations but %d metric flags", len(equations), len(metrics))}
	}
	p := &Problem{ctx: ctx}
	for i, text := range equations {
		eq, err := NewEquation(ctx, text, metrics[i])
		if err != nil {
			return nil, err
		}
		p.equations = append(p.equations, eq)
	}
	for _, text := range substitutions {
		eq, err := NewEquation(ctx, text, false)
		if err != nil {
			return nil, err
		}
		p.substitutions = append(p.substitutions, eq)
	}
	for _, text := range formulas {
		eq, err := NewEquation(ctx, text, false)
		if err != nil {
			return nil, err
		}
		p.formulas = append(p.formulas, eq)
	}
	return p, nil
}

// Context exposes the problem's symbol context, mainly so callers can build
// comparison expressions against the same interning tables.
func (p *Problem) Context() *Context { return p.ctx }

// Expand expands every governing equation and formula to scalar components
// and eliminates all substitution-defined variables from both. The result
// is cached; calling Expand again returns the same slices.
func (p *Problem) Expand() (equations, formulas []*Equation, err error) {
	if !p.expanded {
		if err := p.expandAll(); err != nil {
			return nil, nil, err
		}
		p.expanded = true
	}
	return p.equations, p.formulas, nil
}

// namedSub is one scalar substitution rule, tau01 -> its defining
// expression.
type namedSub struct {
	name  string
	value Expr
}

func (p *Problem) expandAll() error {
	subs, err := p.resolveSubstitutions()
	if err != nil {
		return err
	}
	for _, group := range [][]*Equation{p.equations, p.formulas} {
		for _, eq := range group {
			comps, err := eq.Expand(p.ctx)
			if err != nil {
				return err
			}
			for i, c := range comps {
				for _, s := range subs {
					c = c.SubSymbol(s.name, s.value)
				}
				comps[i] = c
			}
			eq.Expanded = comps
			if err := p.checkClosure(eq, subs); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveSubstitutions expands each substitution to scalar components and
// registers them in order, folding earlier rules into the right-hand side
// of later ones so every registered value is closed over its predecessors.
func (p *Problem) resolveSubstitutions() ([]namedSub, error) {
	var subs []namedSub
	for _, s := range p.substitutions {
		comps, err := s.Expand(p.ctx)
		if err != nil {
			return nil, err
		}
		for i, c := range comps {
			name, err := substitutionName(c.LHS)
			if err != nil {
				return nil, err
			}
			rhs := c.RHS
			for _, prev := range subs {
				rhs = rhs.SubSymbol(prev.name, prev.value).Simplify()
			}
			comps[i] = &Equality{LHS: c.LHS, RHS: rhs}
			subs = append(subs, namedSub{name: name, value: rhs})
		}
		s.Expanded = comps
	}
	return subs, nil
}

func substitutionName(lhs Expr) (string, error) {
	switch v := lhs.(type) {
	case *Indexed:
		return v.Base(), nil
	case *Sym:
		return v.Name(), nil
	default:
		return "", &ConfigurationError{Msg: "substitution left-hand side must be a single variable, got " + lhs.String()}
	}
}

// checkClosure verifies that no substitution-defined variable survives in
// an expanded equation. A survivor means a rule referred to one defined
// after it, which the sequential fold cannot close.
func (p *Problem) checkClosure(eq *Equation, subs []namedSub) error {
	names := make(map[string]bool, len(subs))
	for _, s := range subs {
		names[s.name] = true
	}
	for _, c := range eq.Expanded {
		for _, side := range []Expr{c.LHS, c.RHS} {
			var bad string
			walkExpr(side, func(e Expr) {
				switch v := e.(type) {
				case *Indexed:
					if names[v.Base()] && bad == "" {
						bad = v.Base()
					}
				case *Sym:
					if names[v.Name()] && bad == "" {
						bad = v.Name()
					}
				}
			})
			if bad != "" && !definesName(c.LHS, bad) {
				return &UnresolvedSymbolError{Symbol: bad, Equation: c.String()}
			}
		}
	}
	return nil
}

// definesName reports whether lhs is itself the variable named, which is
// the one place a substitution name legitimately appears.
func definesName(lhs Expr, name string) bool {
	switch v := lhs.(type) {
	case *Indexed:
		return v.Base() == name
	case *Sym:
		return v.Name() == name
	}
	return false
}
