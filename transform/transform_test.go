package transform

import (
	"testing"

	"interfwd/callctx"
	"interfwd/domain/intervals"
	"interfwd/ir"
	"interfwd/summary"
	"interfwd/varfactory"
)

func buildCallGraph(t *testing.T) (*ir.CallGraph, *ir.CFG, *ir.CFG) {
	t.Helper()
	ret := ir.Var("ret")
	calleeDecl := &ir.FuncDecl{Name: "inc", Params: []ir.Var{"y"}, Return: &ret}
	calleeEntry := ir.NewBlock("entry")
	calleeEntry.Terminator = ir.ReturnTerm{}
	callee := ir.New(calleeDecl, calleeEntry)
	if err := callee.Finalize(); err != nil {
		t.Fatal(err)
	}

	callerDecl := &ir.FuncDecl{Name: "main"}
	callerEntry := ir.NewBlock("entry")
	callerEntry.Terminator = ir.ReturnTerm{}
	caller := ir.New(callerDecl, callerEntry)
	if err := caller.Finalize(); err != nil {
		t.Fatal(err)
	}

	graph := ir.NewCallGraph()
	if err := graph.AddNode(caller); err != nil {
		t.Fatal(err)
	}
	if err := graph.AddNode(callee); err != nil {
		t.Fatal(err)
	}
	graph.AddEdge(caller, callee)
	return graph, caller, callee
}

func TestBasicTransformHandlesAssignAssumeHavoc(t *testing.T) {
	b := Basic{}
	factory := intervals.Factory{}
	state := factory.Top()

	state = b.Transform(state, ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 5}})
	state = b.Transform(state, ir.AssumeStmt{Cond: ir.BinExpr{Op: ">=", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 0}}})
	if state.IsBottom() {
		t.Fatal("assuming a fact already true should not yield bottom")
	}

	state = b.Transform(state, ir.HavocStmt{Vars: []ir.Var{"x"}})
	if state.IsBottom() {
		t.Fatal("havoc should never produce bottom")
	}
}

func TestHavocUnknownCallsForgetsResult(t *testing.T) {
	factory := intervals.Factory{}
	state := factory.Top().Assign("r", ir.ConstExpr{Value: 1})

	r := HavocUnknownCalls{}
	out := r.UnknownCall(state, ir.CallStmt{Result: varPtr("r"), Callee: "unknown"})
	if out.IsBottom() {
		t.Fatal("UnknownCall should never yield bottom")
	}
	if got := out.String(); got != "{r: [-inf, +inf]}" {
		t.Fatalf("UnknownCall should forget the call's result, got %s", got)
	}
}

func TestUnresolvedHavocsEveryCallResult(t *testing.T) {
	factory := intervals.Factory{}
	u := NewUnresolved()

	state := factory.Top().Assign("r", ir.ConstExpr{Value: 5})
	state = u.Transform(state, ir.CallStmt{Result: varPtr("r"), Callee: "anything"})
	if got := state.String(); got != "{r: [-inf, +inf]}" {
		t.Fatalf("Unresolved should forget a call's result, got %s", got)
	}

	state = u.Transform(state, ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 1}})
	if state.IsBottom() {
		t.Fatal("non-call statements should flow through Base unchanged")
	}
}

func TestBottomUpAppliesSummaryAtCallSite(t *testing.T) {
	graph, caller, callee := buildCallGraph(t)
	vf := varfactory.New()
	sums := summary.New()

	// inc's summary, built from ret = y + 1 with y unconstrained: intervals
	// keep only each variable's range, so both y and ret are unbounded.
	factory := intervals.Factory{}
	sumVal := factory.Entry(callee.Decl).
		Assign("ret", ir.BinExpr{Op: "+", Left: ir.VarExpr{Name: "y"}, Right: ir.ConstExpr{Value: 1}}).
		Project(callee.Decl.Formals())
	sums.Insert(callee.Decl, sumVal)

	bu := NewBottomUp(graph, sums, vf)

	state := factory.Entry(caller.Decl).Assign("x", ir.ConstExpr{Value: 1})
	call := ir.CallStmt{Result: varPtr("r"), Callee: "inc", Args: []ir.Expr{ir.VarExpr{Name: "x"}}}
	out := bu.Transform(state, call)

	if out.IsBottom() {
		t.Fatal("applying a summary should not yield bottom for a satisfiable call")
	}
	if got := out.String(); got == "" {
		t.Fatal("expected a non-empty rendered state")
	}
}

func TestBottomUpFallsBackToHavocOnUnknownCallee(t *testing.T) {
	graph, caller, _ := buildCallGraph(t)
	vf := varfactory.New()
	sums := summary.New()
	bu := NewBottomUp(graph, sums, vf)

	factory := intervals.Factory{}
	state := factory.Entry(caller.Decl)
	call := ir.CallStmt{Result: varPtr("r"), Callee: "does_not_exist", Args: nil}
	out := bu.Transform(state, call)

	if out.IsBottom() {
		t.Fatal("unknown callee fallback should never yield bottom")
	}
}

func TestTopDownRecordsCallSiteContext(t *testing.T) {
	graph, caller, callee := buildCallGraph(t)
	vf := varfactory.New()
	sums := summary.New()
	ctx := callctx.New()

	factory := intervals.Factory{}
	sumVal := factory.Entry(callee.Decl).Project(callee.Decl.Formals())
	sums.Insert(callee.Decl, sumVal)

	td := NewTopDown(graph, sums, ctx, vf)

	state := factory.Entry(caller.Decl).Assign("x", ir.ConstExpr{Value: 7})
	call := ir.CallStmt{Result: varPtr("r"), Callee: "inc", Args: []ir.Expr{ir.VarExpr{Name: "x"}}}
	td.Transform(state, call)

	if !ctx.Has(callee.Decl) {
		t.Fatal("TopDown should record a calling context for the callee")
	}
}

func varPtr(name string) *ir.Var {
	v := ir.Var(name)
	return &v
}
