// Package ir defines the read-only data model the inter-procedural engine
// consumes: function declarations, control-flow graphs, and call graphs.
// Construction of these values (parsing, CFG building, the variable
// factory) belongs to the caller; this package only fixes the shapes
// the engine is allowed to assume.
package ir

// Var is a variable name as it appears in the abstract domain's support.
type Var string

// FuncDecl is the stable identity of a function: its name, its ordered
// formal parameters, and an optional return identifier. Equality and a
// stable hash are required because FuncDecl is the key into the
// summary table, the call-context table, and the driver's invariant map.
// A string Name is already a stable, comparable, hashable Go value, so Key
// returns it directly rather than computing a synthetic hash.
type FuncDecl struct {
	Name   string
	Params []Var
	Return *Var
}

// Key returns the stable hash key used by tables keyed on FuncDecl.
func (f *FuncDecl) Key() string {
	return f.Name
}

// Equal reports whether two declarations denote the same function.
func (f *FuncDecl) Equal(other *FuncDecl) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name
}

// HasReturn reports whether the function has a distinguished return variable.
func (f *FuncDecl) HasReturn() bool {
	return f.Return != nil
}

// Formals returns the parameters followed by the return variable, if any.
// This is exactly the variable set a summary's value is projected onto.
func (f *FuncDecl) Formals() []Var {
	out := make([]Var, 0, len(f.Params)+1)
	out = append(out, f.Params...)
	if f.Return != nil {
		out = append(out, *f.Return)
	}
	return out
}
