package opensbli

// ============================================================
// Equality and Equation
// ============================================================

// Equality is a single lhs = rhs relation over expression trees.
type Equality struct {
	LHS Expr
	RHS Expr
}

func (e *Equality) String() string {
	return e.LHS.String() + " = " + e.RHS.String()
}

func (e *Equality) LaTeX() string {
	return e.LHS.LaTeX() + " = " + e.RHS.LaTeX()
}

func (e *Equality) Equal(other *Equality) bool {
	return other != nil && e.LHS.Equal(other.LHS) && e.RHS.Equal(other.RHS)
}

// SubSymbol substitutes into both sides and simplifies.
func (e *Equality) SubSymbol(name string, value Expr) *Equality {
	return &Equality{
		LHS: e.LHS.SubSymbol(name, value).Simplify(),
		RHS: e.RHS.SubSymbol(name, value).Simplify(),
	}
}

// Equation is one input equation in Einstein notation together with its
// parsed tree and, after expansion, its per-component scalar equalities.
type Equation struct {
	Original string
	Parsed   *Equality
	Expanded []*Equality

	metric bool
}

// NewEquation parses the equation text within ctx. The tree stays in index
// notation until Expand.
func NewEquation(ctx *Context, text string, metric bool) (*Equation, error) {
	text = stripOuterSpace(text)
	parsed, err := ParseEquation(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Equation{Original: text, Parsed: parsed, metric: metric}, nil
}

// Expand enumerates the free index values of the equation and resolves each
// component to concrete scalar form. Results are cached.
func (eq *Equation) Expand(ctx *Context) ([]*Equality, error) {
	if eq.Expanded != nil {
		return eq.Expanded, nil
	}
	out, err := expandEquality(ctx, eq.Parsed, eq.metric)
	if err != nil {
		return nil, err
	}
	eq.Expanded = out
	return out, nil
}
