package opensbli

import (
	"fmt"
	"strings"
)

// TimeSymbol is the implicit trailing time argument of every field and the
// differentiation variable of temporal derivatives.
const TimeSymbol = "t"

// TermKind classifies what a tensor atom resolves to once its indices bind.
type TermKind int

const (
	KindField TermKind = iota
	KindConstant
	KindCoordinate
	KindTime
)

// IndexSlot is one index position of a tensor term. Slots bind positionally,
// so tau_i_j with i=0, j=1 resolves to tau01.
type IndexSlot struct {
	Name  string
	Value int
	Bound bool
}

// EinsteinTerm is a tensor-indexed symbolic atom: a base name plus the free
// index structure it still carries. Terms are interned per Context; a term
// with no remaining free slots resolves to an Indexed field or a plain Sym.
type EinsteinTerm struct {
	Base     string
	Slots    []IndexSlot
	Kind     TermKind
	Constant bool
}

func (t *EinsteinTerm) Simplify() Expr   { return t }
func (t *EinsteinTerm) exprType() string { return "einstein" }

func (t *EinsteinTerm) String() string {
	var sb strings.Builder
	sb.WriteString(t.Base)
	for _, s := range t.Slots {
		sb.WriteByte('_')
		if s.Bound {
			fmt.Fprintf(&sb, "%d", s.Value)
		} else {
			sb.WriteString(s.Name)
		}
	}
	return sb.String()
}

func (t *EinsteinTerm) LaTeX() string {
	if len(t.Slots) == 0 {
		return t.Base
	}
	parts := make([]string, len(t.Slots))
	for i, s := range t.Slots {
		if s.Bound {
			parts[i] = fmt.Sprintf("%d", s.Value)
		} else {
			parts[i] = s.Name
		}
	}
	return t.Base + "_{" + strings.Join(parts, " ") + "}"
}

func (t *EinsteinTerm) SubSymbol(string, Expr) Expr { return t }

func (t *EinsteinTerm) Equal(other Expr) bool {
	o, ok := other.(*EinsteinTerm)
	if !ok || t.Base != o.Base || len(t.Slots) != len(o.Slots) {
		return false
	}
	for i := range t.Slots {
		if t.Slots[i] != o.Slots[i] {
			return false
		}
	}
	return true
}

// FreeIndexes returns the names of the still-unbound index slots, in slot
// order.
func (t *EinsteinTerm) FreeIndexes() []string {
	var out []string
	for _, s := range t.Slots {
		if !s.Bound {
			out = append(out, s.Name)
		}
	}
	return out
}

// bind returns a copy of the term with every slot named idx bound to val.
func (t *EinsteinTerm) bind(idx string, val int) *EinsteinTerm {
	changed := false
	slots := make([]IndexSlot, len(t.Slots))
	copy(slots, t.Slots)
	for i := range slots {
		if !slots[i].Bound && slots[i].Name == idx {
			slots[i].Value = val
			slots[i].Bound = true
			changed = true
		}
	}
	if !changed {
		return t
	}
	return &EinsteinTerm{Base: t.Base, Slots: slots, Kind: t.Kind, Constant: t.Constant}
}

// boundName is the concrete scalar name once every slot is bound, e.g.
// tau_i_j at i=0, j=1 becomes tau01.
func (t *EinsteinTerm) boundName() string {
	var sb strings.Builder
	sb.WriteString(t.Base)
	for _, s := range t.Slots {
		fmt.Fprintf(&sb, "%d", s.Value)
	}
	return sb.String()
}

// ============================================================
// Context — configuration plus explicit interning tables
// ============================================================

// Context owns the per-problem configuration and the symbol interning
// tables. Identically named atoms are identical objects within one Context,
// never across Contexts.
type Context struct {
	NDim       int
	Coordinate string

	constants map[string]bool
	terms     map[string]*EinsteinTerm
	indexed   map[string]*Indexed
	syms      map[string]*Sym
	gridArgs  []Expr
}

func NewContext(ndim int, coordinateSymbol string, constants []string) (*Context, error) {
	if ndim < 1 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("ndim must be >= 1, got %d", ndim)}
	}
	if coordinateSymbol == "" {
		return nil, &ConfigurationError{Msg: "coordinate symbol must not be empty"}
	}
	ctx := &Context{
		NDim:       ndim,
		Coordinate: coordinateSymbol,
		constants:  map[string]bool{},
		terms:      map[string]*EinsteinTerm{},
		indexed:    map[string]*Indexed{},
		syms:       map[string]*Sym{},
	}
	for _, c := range constants {
		if c == "" {
			return nil, &ConfigurationError{Msg: "constant name must not be empty"}
		}
		ctx.constants[c] = true
	}
	for d := 0; d < ndim; d++ {
		ctx.gridArgs = append(ctx.gridArgs, ctx.Sym(fmt.Sprintf("%s%d", coordinateSymbol, d)))
	}
	ctx.gridArgs = append(ctx.gridArgs, ctx.Sym(TimeSymbol))
	return ctx, nil
}

// GridArgs is the coordinate-and-time argument tuple shared by every field,
// (x0, ..., x<ndim-1>, t).
func (ctx *Context) GridArgs() []Expr { return ctx.gridArgs }

// Sym interns a plain scalar symbol.
func (ctx *Context) Sym(name string) *Sym {
	if s, ok := ctx.syms[name]; ok {
		return s
	}
	s := S(name)
	ctx.syms[name] = s
	return s
}

// Indexed interns a field variable at the grid argument tuple.
func (ctx *Context) Indexed(base string) *Indexed {
	if ix, ok := ctx.indexed[base]; ok {
		return ix
	}
	ix := &Indexed{base: base, args: ctx.gridArgs}
	ctx.indexed[base] = ix
	return ix
}

// IsConstant reports whether name was declared constant, either by its full
// notation (e.g. "c_j") or by its base name.
func (ctx *Context) IsConstant(name, base string) bool {
	return ctx.constants[name] || ctx.constants[base]
}

// Term parses a tensor atom name like rhou_i or tau_i_j into an interned
// EinsteinTerm, classifying it as field, constant, coordinate or time.
// A malformed index token (empty subscript) is a ParseError.
func (ctx *Context) Term(name string) (*EinsteinTerm, error) {
	if t, ok := ctx.terms[name]; ok {
		return t, nil
	}
	pieces := strings.Split(name, "_")
	base := pieces[0]
	if base == "" {
		return nil, &ParseError{Input: name, Msg: "term has empty base name"}
	}
	var slots []IndexSlot
	for _, p := range pieces[1:] {
		if p == "" {
			return nil, &ParseError{Input: name, Msg: "term has empty index subscript"}
		}
		slots = append(slots, IndexSlot{Name: p})
	}
	t := &EinsteinTerm{Base: base, Slots: slots}
	switch {
	case ctx.IsConstant(name, base):
		t.Kind = KindConstant
		t.Constant = true
	case base == ctx.Coordinate && len(slots) == 1:
		t.Kind = KindCoordinate
	case name == TimeSymbol:
		t.Kind = KindTime
	case len(slots) == 0 && coordinateDigits(base, ctx.Coordinate) >= 0:
		// A literal component like x0 is the coordinate pre-bound to that
		// direction.
		t.Base = ctx.Coordinate
		t.Slots = []IndexSlot{{Value: coordinateDigits(base, ctx.Coordinate), Bound: true}}
		t.Kind = KindCoordinate
	default:
		t.Kind = KindField
	}
	ctx.terms[name] = t
	return t, nil
}

// resolveTerm converts a fully bound term into its concrete scalar node:
// fields become Indexed at the grid arguments, everything else a Sym.
// Constants never carry coordinate or time arguments.
func (ctx *Context) resolveTerm(t *EinsteinTerm) (Expr, error) {
	for _, s := range t.Slots {
		if !s.Bound {
			return nil, &ExpansionError{Equation: t.String(), Index: s.Name, Msg: "free index survived expansion"}
		}
		if s.Value < 0 || s.Value >= ctx.NDim {
			return nil, &IndexRangeError{Index: s.Name, Value: s.Value, NDim: ctx.NDim}
		}
	}
	switch t.Kind {
	case KindField:
		return ctx.Indexed(t.boundName()), nil
	default:
		return ctx.Sym(t.boundName()), nil
	}
}

// coordinateDigits recognises a literal coordinate component name such as
// x0, returning the direction it names or -1.
func coordinateDigits(name, coord string) int {
	if coord == "" || !strings.HasPrefix(name, coord) || len(name) == len(coord) {
		return -1
	}
	n := 0
	for _, r := range name[len(coord):] {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
