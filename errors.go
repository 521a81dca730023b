package opensbli

import "fmt"

// ParseError reports malformed equation syntax: unbalanced parentheses,
// unknown operators, arity mismatches, or malformed index tokens.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return "parse error: " + e.Msg
	}
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Pos, e.Input, e.Msg)
}

// IndexRangeError reports an index bound to a value outside 0..ndim-1.
type IndexRangeError struct {
	Index string
	Value int
	NDim  int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("index %s bound to %d, outside 0..%d", e.Index, e.Value, e.NDim-1)
}

// ExpansionError reports an index whose free-vs-summed status cannot be
// classified unambiguously, or an Einstein-convention violation (an index
// repeated more than twice along one multiplicative path).
type ExpansionError struct {
	Equation string
	Index    string
	Msg      string
}

func (e *ExpansionError) Error() string {
	if e.Index == "" {
		return fmt.Sprintf("cannot expand %q: %s", e.Equation, e.Msg)
	}
	return fmt.Sprintf("cannot expand %q: index %s: %s", e.Equation, e.Index, e.Msg)
}

// UnresolvedSymbolError reports a substitution left-hand symbol that
// survives resolution without a definition available at its position in
// declaration order.
type UnresolvedSymbolError struct {
	Symbol   string
	Equation string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("symbol %s in %q has no substitution defined before use", e.Symbol, e.Equation)
}

// ConfigurationError reports invalid Problem construction input.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Msg }
