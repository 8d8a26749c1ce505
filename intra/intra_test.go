package intra

import (
	"testing"

	"interfwd/domain/intervals"
	"interfwd/ir"
	"interfwd/liveness"
	"interfwd/transform"
	"interfwd/varfactory"
)

// buildLoopCFG builds: entry: x = 0; jump header
//
//	header: branch(x < n) -> body, exit
//	body:   assume(x < n); x = x + 1; jump header
//	exit:   assume(!(x < n)); return x
func buildLoopCFG(t *testing.T) (*ir.CFG, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock) {
	t.Helper()
	entry := ir.NewBlock("entry")
	header := ir.NewBlock("header")
	body := ir.NewBlock("body")
	exit := ir.NewBlock("exit")

	cond := ir.BinExpr{Op: "<", Left: ir.VarExpr{Name: "x"}, Right: ir.VarExpr{Name: "n"}}

	entry.Statements = []ir.Statement{ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 0}}}
	entry.Terminator = ir.JumpTerm{Target: header}

	header.Terminator = ir.BranchTerm{Cond: cond, TrueBlock: body, FalseBlock: exit}

	body.Statements = []ir.Statement{
		ir.AssumeStmt{Cond: cond},
		ir.AssignStmt{Result: "x", Value: ir.BinExpr{Op: "+", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 1}}},
	}
	body.Terminator = ir.JumpTerm{Target: header}

	exit.Statements = []ir.Statement{ir.AssumeStmt{Cond: ir.Negate(cond)}}
	exit.Terminator = ir.ReturnTerm{Value: ir.VarExpr{Name: "x"}}

	decl := &ir.FuncDecl{Name: "loop", Params: []ir.Var{"n"}}
	cfg := ir.New(decl, entry)
	cfg.AddBlock(header)
	cfg.AddBlock(body)
	cfg.AddBlock(exit)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	return cfg, entry, header, body, exit
}

func newIterator(cfg *ir.CFG, opts Options) *Iterator {
	return New(cfg, transform.Basic{}, liveness.NoPruning{}, varfactory.New(), intervals.Factory{}, opts)
}

func TestAnalyzeLinearChainPropagatesAssignment(t *testing.T) {
	entry := ir.NewBlock("entry")
	exit := ir.NewBlock("exit")
	entry.Statements = []ir.Statement{ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 7}}}
	entry.Terminator = ir.JumpTerm{Target: exit}
	exit.Terminator = ir.ReturnTerm{Value: ir.VarExpr{Name: "x"}}

	decl := &ir.FuncDecl{Name: "f"}
	cfg := ir.New(decl, entry)
	cfg.AddBlock(exit)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	it := newIterator(cfg, WithDefaults())
	result := it.Analyze(intervals.Factory{}.Top())

	post := result.PostAt(exit).(*intervals.Env)
	if got := post.String(); got != "{x: [7, 7]}" {
		t.Fatalf("PostAt(exit) = %s, want {x: [7, 7]}", got)
	}
}

func TestAnalyzeLoopWideningConverges(t *testing.T) {
	cfg, _, header, _, exit := buildLoopCFG(t)
	it := newIterator(cfg, WithDefaults())

	seed := intervals.Factory{}.Entry(cfg.Decl)
	result := it.Analyze(seed)

	if result.PreAt(header) == nil || result.PreAt(header).IsBottom() {
		t.Fatal("loop header should be reachable and non-bottom")
	}
	post := result.PostAt(exit)
	if post == nil || post.IsBottom() {
		t.Fatal("exit block should be reachable")
	}
}

func TestAnalyzeNarrowingDoesNotWidenBeyondFixpoint(t *testing.T) {
	cfg, _, header, _, _ := buildLoopCFG(t)

	withNarrowing := newIterator(cfg, Options{WideningDelay: 1, DescendingIters: 2, JumpSetSize: 50})
	withoutNarrowing := newIterator(cfg, Options{WideningDelay: 1, DescendingIters: 0, JumpSetSize: 50})

	seed := intervals.Factory{}.Entry(cfg.Decl)
	narrowedResult := withNarrowing.Analyze(seed)
	wideResult := withoutNarrowing.Analyze(seed)

	narrowedHeader := narrowedResult.PreAt(header)
	wideHeader := wideResult.PreAt(header)
	if !narrowedHeader.Leq(wideHeader) {
		t.Fatalf("narrowing pass should only refine, not grow: narrowed=%v wide=%v", narrowedHeader, wideHeader)
	}
}

func TestAnalyzeWithoutWideningDelayStillTerminates(t *testing.T) {
	cfg, _, _, _, exit := buildLoopCFG(t)
	it := newIterator(cfg, Options{WideningDelay: 0, DescendingIters: 0, JumpSetSize: 0})

	seed := intervals.Factory{}.Entry(cfg.Decl)
	result := it.Analyze(seed)
	if result.PostAt(exit) == nil {
		t.Fatal("expected a result even with widening applied from the first visit")
	}
}

// TestAnalyzeJumpSetWideningBoundsLoopByGuardConstant builds a loop with
// the constant guard x < 10 and checks that jump-set widening lands on the
// guard's threshold instead of jumping straight to +inf, without any help
// from the narrowing phase.
func TestAnalyzeJumpSetWideningBoundsLoopByGuardConstant(t *testing.T) {
	entry := ir.NewBlock("entry")
	header := ir.NewBlock("header")
	body := ir.NewBlock("body")
	exit := ir.NewBlock("exit")

	cond := ir.BinExpr{Op: "<", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 10}}
	entry.Statements = []ir.Statement{ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 0}}}
	entry.Terminator = ir.JumpTerm{Target: header}
	header.Terminator = ir.BranchTerm{Cond: cond, TrueBlock: body, FalseBlock: exit}
	body.Statements = []ir.Statement{
		ir.AssumeStmt{Cond: cond},
		ir.AssignStmt{Result: "x", Value: ir.BinExpr{Op: "+", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 1}}},
	}
	body.Terminator = ir.JumpTerm{Target: header}
	exit.Statements = []ir.Statement{ir.AssumeStmt{Cond: ir.Negate(cond)}}
	exit.Terminator = ir.ReturnTerm{Value: ir.VarExpr{Name: "x"}}

	decl := &ir.FuncDecl{Name: "count"}
	cfg := ir.New(decl, entry)
	cfg.AddBlock(header)
	cfg.AddBlock(body)
	cfg.AddBlock(exit)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	bound := intervals.Factory{}.Top().
		Assume(ir.BinExpr{Op: "<=", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 10}})

	withJumpSet := newIterator(cfg, Options{WideningDelay: 1, DescendingIters: 0, JumpSetSize: 8})
	jumpPre := withJumpSet.Analyze(intervals.Factory{}.Top()).PreAt(header)
	if !jumpPre.Leq(bound) {
		t.Fatalf("jump-set widening should bound the header by the guard constant, got %v", jumpPre)
	}

	plain := newIterator(cfg, Options{WideningDelay: 1, DescendingIters: 0, JumpSetSize: 0})
	plainPre := plain.Analyze(intervals.Factory{}.Top()).PreAt(header)
	if plainPre.Leq(bound) {
		t.Fatalf("without the jump set and without narrowing, the header should widen past the guard, got %v", plainPre)
	}
}

func TestAnalyzePrunesDeadVariablesAtExit(t *testing.T) {
	entry := ir.NewBlock("entry")
	mid := ir.NewBlock("mid")
	entry.Statements = []ir.Statement{
		ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 1}},
		ir.AssignStmt{Result: "unused", Value: ir.ConstExpr{Value: 2}},
	}
	entry.Terminator = ir.JumpTerm{Target: mid}
	mid.Statements = []ir.Statement{ir.AssignStmt{Result: "z", Value: ir.VarExpr{Name: "x"}}}
	mid.Terminator = ir.ReturnTerm{Value: ir.VarExpr{Name: "z"}}

	decl := &ir.FuncDecl{Name: "f"}
	cfg := ir.New(decl, entry)
	cfg.AddBlock(mid)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	it := New(cfg, transform.Basic{}, liveness.NewAnalyzer(cfg), varfactory.New(), intervals.Factory{}, WithDefaults())
	result := it.Analyze(intervals.Factory{}.Top())

	post := result.PostAt(entry).(*intervals.Env)
	for _, v := range post.Vars() {
		if v == "unused" {
			t.Fatal("pruneDead should have forgotten the dead variable 'unused'")
		}
	}
}

func TestAnalyzeStripsShadowVariables(t *testing.T) {
	entry := ir.NewBlock("entry")
	entry.Terminator = ir.ReturnTerm{}
	decl := &ir.FuncDecl{Name: "f"}
	cfg := ir.New(decl, entry)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	vf := varfactory.New()
	shadow := vf.Fresh("tmp")
	it := New(cfg, transform.Basic{}, liveness.NoPruning{}, vf, intervals.Factory{}, WithDefaults())

	seed := intervals.Factory{}.Top().Assign(shadow, ir.ConstExpr{Value: 1})
	result := it.Analyze(seed)

	post := result.PostAt(entry).(*intervals.Env)
	for _, v := range post.Vars() {
		if v == shadow {
			t.Fatal("shadow variables should be stripped from the final result by default")
		}
	}
}

func TestAnalyzeKeepShadowsOptionRetainsThem(t *testing.T) {
	entry := ir.NewBlock("entry")
	entry.Terminator = ir.ReturnTerm{}
	decl := &ir.FuncDecl{Name: "f"}
	cfg := ir.New(decl, entry)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	vf := varfactory.New()
	shadow := vf.Fresh("tmp")
	opts := WithDefaults()
	opts.KeepShadows = true
	it := New(cfg, transform.Basic{}, liveness.NoPruning{}, vf, intervals.Factory{}, opts)

	seed := intervals.Factory{}.Top().Assign(shadow, ir.ConstExpr{Value: 1})
	result := it.Analyze(seed)

	post := result.PostAt(entry).(*intervals.Env)
	found := false
	for _, v := range post.Vars() {
		if v == shadow {
			found = true
		}
	}
	if !found {
		t.Fatal("KeepShadows should retain minted shadow variables in the final result")
	}
}
