// Package transform supplies the two abstract transformers the
// intra-procedural iterator drives: BottomUp, used while synthesizing
// summaries, and TopDown, used while propagating calling contexts and
// collecting final invariants. They share every non-call statement's
// semantics through an injected StmtTransformer and differ only in what a CallStmt does to the summary and call-context tables.
package transform

import (
	"interfwd/callctx"
	"interfwd/domain"
	"interfwd/ir"
	"interfwd/summary"
	"interfwd/varfactory"
)

// StmtTransformer applies one statement's effect to state. Implementations
// are only ever asked about non-call statements; BottomUp and TopDown
// intercept ir.CallStmt themselves before delegating anything else to the
// wrapped StmtTransformer.
type StmtTransformer interface {
	Transform(state domain.Domain, stmt ir.Statement) domain.Domain
}

// Basic is the StmtTransformer every domain gets for free: assignment,
// assume, and havoc go straight to the matching domain.Domain method.
// PrimitiveStmt is left as a no-op, since the core has no way to know what
// a domain-specific primitive means; a caller that needs primitives
// interpreted wraps Basic and special-cases them before falling back to it.
type Basic struct{}

func (Basic) Transform(state domain.Domain, stmt ir.Statement) domain.Domain {
	switch s := stmt.(type) {
	case ir.AssignStmt:
		return state.Assign(s.Result, s.Value)
	case ir.AssumeStmt:
		return state.Assume(s.Cond)
	case ir.HavocStmt:
		return state.Havoc(s.Vars)
	default:
		return state
	}
}

// CallResolver decides what an unresolved call site does to the caller's
// state: a call whose callee has no node in the call graph (an external or
// built-in function the driver was never given a CFG for).
type CallResolver interface {
	UnknownCall(state domain.Domain, call ir.CallStmt) domain.Domain
}

// HavocUnknownCalls is the conservative default CallResolver: an unknown
// callee may do anything, so its result binding is forgotten and nothing
// else about the caller's state is assumed to have changed.
type HavocUnknownCalls struct{}

func (HavocUnknownCalls) UnknownCall(state domain.Domain, call ir.CallStmt) domain.Domain {
	if call.Result == nil {
		return state
	}
	return state.Havoc([]ir.Var{*call.Result})
}

// Unresolved is the StmtTransformer for analyses run without any call
// graph to consult: every call statement goes straight to Resolver (no
// summary can exist for it), everything else to Base. The driver uses it
// on the no-edges short circuit, where a program may still call external
// functions it has no CFG for.
type Unresolved struct {
	Base     StmtTransformer
	Resolver CallResolver
}

// NewUnresolved wires the defaults (Basic, HavocUnknownCalls).
func NewUnresolved() *Unresolved {
	return &Unresolved{Base: Basic{}, Resolver: HavocUnknownCalls{}}
}

func (t *Unresolved) Transform(state domain.Domain, stmt ir.Statement) domain.Domain {
	if call, ok := stmt.(ir.CallStmt); ok {
		return t.Resolver.UnknownCall(state, call)
	}
	return t.Base.Transform(state, stmt)
}

// bindArgs assigns each actual argument onto a freshly minted shadow copy
// of the corresponding formal, using Expand when the actual is a bare
// variable reference (preserving any aliasing a relational domain tracks)
// and Assign otherwise. It returns the extended state and the shadow
// names, in formal order.
func bindArgs(state domain.Domain, params []ir.Var, args []ir.Expr, vf *varfactory.Factory) (domain.Domain, []ir.Var) {
	shadows := make([]ir.Var, len(params))
	for i, p := range params {
		shadow := vf.Fresh(p)
		if ve, ok := args[i].(ir.VarExpr); ok {
			state = state.Expand(ve.Name, shadow)
		} else {
			state = state.Assign(shadow, args[i])
		}
		shadows[i] = shadow
	}
	return state, shadows
}

// applySummary incorporates callee's restricted summary into the caller's
// state at a call site: the summary's formal/return variables are renamed
// onto shadow copies disjoint from the caller's own namespace, met into
// the (shadow-extended) caller state, and the call's result variable is
// bound from the shadow return before every shadow is forgotten again.
// This is the one piece of call-site handling BottomUp and TopDown share.
func applySummary(state domain.Domain, decl *ir.FuncDecl, sum domain.Domain, call ir.CallStmt, vf *varfactory.Factory) domain.Domain {
	state, shadowParams := bindArgs(state, decl.Params, call.Args, vf)
	renamed := sum.Rename(decl.Params, shadowParams)

	var shadowReturn ir.Var
	if decl.Return != nil {
		shadowReturn = vf.Fresh(*decl.Return)
		renamed = renamed.Rename([]ir.Var{*decl.Return}, []ir.Var{shadowReturn})
	}

	state = state.Meet(renamed)

	if call.Result != nil {
		if decl.Return != nil {
			state = state.Assign(*call.Result, ir.VarExpr{Name: shadowReturn})
		} else {
			state = state.Havoc([]ir.Var{*call.Result})
		}
	}

	toForget := append([]ir.Var{}, shadowParams...)
	if decl.Return != nil {
		toForget = append(toForget, shadowReturn)
	}
	return state.Forget(vf.ShadowVars(toForget))
}

// contextAtCallSite computes the entry context a call site contributes to
// its callee: the actual arguments' values, renamed onto the callee's own
// parameter names and restricted to exactly those, independent of
// whatever else the caller's state happens to track.
func contextAtCallSite(state domain.Domain, decl *ir.FuncDecl, call ir.CallStmt, vf *varfactory.Factory) domain.Domain {
	extended, shadowParams := bindArgs(state, decl.Params, call.Args, vf)
	ctx := extended.Project(shadowParams)
	return ctx.Rename(shadowParams, decl.Params)
}

// BottomUp is the StmtTransformer the summary-synthesis phase drives. A
// call to a callee with no summary yet (a peer in the same recursive SCC,
// or a bug in traversal order) falls back to Resolver.UnknownCall, which
// is the soundness escape hatch the recursive-SCC handling relies
// on: the driver never asks BottomUp to analyze a recursive SCC's members
// against each other's summaries.
type BottomUp struct {
	Graph      *ir.CallGraph
	Summaries  *summary.Table
	VarFactory *varfactory.Factory
	Base       StmtTransformer
	Resolver   CallResolver
}

// NewBottomUp wires the defaults (Basic, HavocUnknownCalls) for any nil
// collaborator.
func NewBottomUp(graph *ir.CallGraph, summaries *summary.Table, vf *varfactory.Factory) *BottomUp {
	return &BottomUp{Graph: graph, Summaries: summaries, VarFactory: vf, Base: Basic{}, Resolver: HavocUnknownCalls{}}
}

func (t *BottomUp) Transform(state domain.Domain, stmt ir.Statement) domain.Domain {
	call, ok := stmt.(ir.CallStmt)
	if !ok {
		return t.Base.Transform(state, stmt)
	}
	callee, found := t.Graph.Lookup(call.Callee)
	if !found {
		return t.Resolver.UnknownCall(state, call)
	}
	sum, ok := t.Summaries.Get(callee.Decl)
	if !ok {
		return t.Resolver.UnknownCall(state, call)
	}
	return applySummary(state, callee.Decl, sum, call, t.VarFactory)
}

// TopDown is the StmtTransformer the context-propagation phase drives. It
// applies the same summary effect BottomUp does (the caller's continuing
// state needs it regardless of phase) and additionally joins the call
// site's contribution into CallCtx, so that once the driver reaches
// callee in forward order its accumulated entry context is complete.
type TopDown struct {
	Graph      *ir.CallGraph
	Summaries  *summary.Table
	CallCtx    *callctx.Table
	VarFactory *varfactory.Factory
	Base       StmtTransformer
	Resolver   CallResolver
}

// NewTopDown wires the defaults (Basic, HavocUnknownCalls) for any nil
// collaborator.
func NewTopDown(graph *ir.CallGraph, summaries *summary.Table, ctx *callctx.Table, vf *varfactory.Factory) *TopDown {
	return &TopDown{Graph: graph, Summaries: summaries, CallCtx: ctx, VarFactory: vf, Base: Basic{}, Resolver: HavocUnknownCalls{}}
}

func (t *TopDown) Transform(state domain.Domain, stmt ir.Statement) domain.Domain {
	call, ok := stmt.(ir.CallStmt)
	if !ok {
		return t.Base.Transform(state, stmt)
	}
	callee, found := t.Graph.Lookup(call.Callee)
	if !found {
		return t.Resolver.UnknownCall(state, call)
	}

	t.CallCtx.Join(callee.Decl, contextAtCallSite(state, callee.Decl, call, t.VarFactory))

	sum, ok := t.Summaries.Get(callee.Decl)
	if !ok {
		return t.Resolver.UnknownCall(state, call)
	}
	return applySummary(state, callee.Decl, sum, call, t.VarFactory)
}
