// Package domain fixes the abstract-value contract the engine computes
// over. The engine is generic over any type satisfying Domain; it never
// inspects a value's internal representation.
package domain

import "interfwd/ir"

// Domain is an abstract value in some numerical or relational lattice. All
// methods are pure: they return a new value rather than mutating the
// receiver, since the intra-procedural iterator keeps several live copies
// of a value around (pre-states of every block, the widening accumulator,
// the narrowing accumulator) and must be able to compare an old copy
// against a new one.
type Domain interface {
	// Leq reports whether the receiver is below or equal to other in the
	// lattice order (d ⊑ other).
	Leq(other Domain) bool

	// Join computes the least upper bound of the receiver and other.
	Join(other Domain) Domain

	// Meet computes the greatest lower bound of the receiver and other.
	Meet(other Domain) Domain

	// Widening returns a value that over-approximates both the receiver
	// (the previous iterate) and other (the new iterate), and guarantees
	// termination of an ascending iteration sequence.
	Widening(other Domain) Domain

	// Narrowing refines the receiver using other without going below the
	// meet of the two, used during the descending iteration sequence.
	Narrowing(other Domain) Domain

	// IsBottom reports whether the value denotes the empty set of states.
	IsBottom() bool

	// IsTop reports whether the value denotes no constraint at all.
	IsTop() bool

	// Assign incorporates the effect of binding result to the evaluation
	// of value.
	Assign(result ir.Var, value ir.Expr) Domain

	// Assume incorporates the constraint that cond holds, returning Bottom
	// when cond and the receiver are jointly unsatisfiable.
	Assume(cond ir.Expr) Domain

	// Havoc forgets any constraint on vars, giving them an unconstrained
	// value, without otherwise affecting the receiver.
	Havoc(vars []ir.Var) Domain

	// Forget removes vars from the value's support entirely: the result
	// carries no information about them at all, not even "unconstrained
	// but tracked". Used to strip dead and shadow variables.
	Forget(vars []ir.Var) Domain

	// Project restricts the value to exactly vars, forgetting everything
	// else. Used to build a summary's restricted postcondition, whose
	// support never exceeds the formals plus the return variable.
	Project(vars []ir.Var) Domain

	// Expand introduces a fresh variable to alias an existing one, copying
	// from's constraints onto to. Used at call sites to bind actual
	// arguments onto a callee's formal parameters without renaming the
	// caller's own variables.
	Expand(from, to ir.Var) Domain

	// Rename substitutes each from[i] with to[i] in place, used to map a
	// callee's formals back onto the caller's actuals when a summary's
	// restricted postcondition is pulled into the call site.
	Rename(from, to []ir.Var) Domain

	// Clone returns an independent copy safe to mutate through further
	// calls without aliasing the receiver's storage.
	Clone() Domain

	String() string
}

// Factory constructs the two distinguished domain values and the initial
// seed an analysis starts from. A concrete domain package registers one
// Factory per abstract value representation it offers.
type Factory interface {
	// Top returns the domain's top element (no constraints).
	Top() Domain

	// Bottom returns the domain's bottom element (unreachable).
	Bottom() Domain

	// Entry returns the seed value an intra-procedural analysis of decl
	// should start from when no caller context is available (the
	// bottom-up phase) or when one is supplied (the top-down phase passes
	// its own seed and does not call this).
	Entry(decl *ir.FuncDecl) Domain
}
