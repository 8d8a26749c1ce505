package ir

import "testing"

func TestFuncDeclFormals(t *testing.T) {
	ret := Var("ret")
	decl := &FuncDecl{Name: "f", Params: []Var{"a", "b"}, Return: &ret}

	formals := decl.Formals()
	want := []Var{"a", "b", "ret"}
	if len(formals) != len(want) {
		t.Fatalf("Formals() = %v, want %v", formals, want)
	}
	for i := range want {
		if formals[i] != want[i] {
			t.Fatalf("Formals()[%d] = %q, want %q", i, formals[i], want[i])
		}
	}
}

func TestFuncDeclFormalsNoReturn(t *testing.T) {
	decl := &FuncDecl{Name: "f", Params: []Var{"a"}}
	if got := decl.Formals(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Formals() = %v, want [a]", got)
	}
}

func TestFuncDeclEqual(t *testing.T) {
	a := &FuncDecl{Name: "f"}
	b := &FuncDecl{Name: "f"}
	c := &FuncDecl{Name: "g"}
	if !a.Equal(b) {
		t.Fatal("same-name decls should be Equal")
	}
	if a.Equal(c) {
		t.Fatal("different-name decls should not be Equal")
	}
	var nilDecl *FuncDecl
	if nilDecl.Equal(a) {
		t.Fatal("nil should not Equal a non-nil decl")
	}
}

func TestCFGFinalizeComputesExitAndEdges(t *testing.T) {
	decl := &FuncDecl{Name: "f"}
	entry := NewBlock("entry")
	body := NewBlock("body")
	exit := NewBlock("exit")

	cfg := New(decl, entry)
	cfg.AddBlock(body)
	cfg.AddBlock(exit)

	entry.Terminator = JumpTerm{Target: body}
	body.Terminator = JumpTerm{Target: exit}
	exit.Terminator = ReturnTerm{}

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if !cfg.HasExit() || cfg.Exit() != exit {
		t.Fatalf("expected exit block to be %v, got %v (hasExit=%v)", exit, cfg.Exit(), cfg.HasExit())
	}
	if len(entry.Successors) != 1 || entry.Successors[0] != body {
		t.Fatalf("entry.Successors = %v, want [body]", entry.Successors)
	}
	if len(body.Predecessors) != 1 || body.Predecessors[0] != entry {
		t.Fatalf("body.Predecessors = %v, want [entry]", body.Predecessors)
	}
}

func TestCFGFinalizeRecordsEveryReturnBlock(t *testing.T) {
	decl := &FuncDecl{Name: "f"}
	entry := NewBlock("entry")
	thenB := NewBlock("then")
	elseB := NewBlock("else")

	cfg := New(decl, entry)
	cfg.AddBlock(thenB)
	cfg.AddBlock(elseB)

	entry.Terminator = BranchTerm{Cond: VarExpr{"c"}, TrueBlock: thenB, FalseBlock: elseB}
	thenB.Terminator = ReturnTerm{Value: ConstExpr{1}}
	elseB.Terminator = ReturnTerm{Value: ConstExpr{2}}

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	exits := cfg.Exits()
	if len(exits) != 2 || exits[0] != thenB || exits[1] != elseB {
		t.Fatalf("Exits() = %v, want [then, else]", exits)
	}
	if !cfg.HasExit() || cfg.Exit() != thenB {
		t.Fatalf("Exit() = %v, want the first returning block", cfg.Exit())
	}
}

func TestCFGFinalizeRejectsMissingFuncDecl(t *testing.T) {
	cfg := &CFG{Entry: NewBlock("entry")}
	cfg.Blocks = append(cfg.Blocks, cfg.Entry)
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected error for CFG with no FuncDecl")
	}
}

func TestCFGFinalizeRejectsDuplicateBlock(t *testing.T) {
	decl := &FuncDecl{Name: "f"}
	entry := NewBlock("entry")
	cfg := New(decl, entry)
	cfg.AddBlock(entry)
	entry.Terminator = ReturnTerm{}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected error for duplicate block registration")
	}
}

func TestCFGNoExitWhenNoReturn(t *testing.T) {
	decl := &FuncDecl{Name: "f"}
	entry := NewBlock("entry")
	cfg := New(decl, entry)
	loop := NewBlock("loop")
	cfg.AddBlock(loop)
	entry.Terminator = JumpTerm{Target: loop}
	loop.Terminator = JumpTerm{Target: loop}

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.HasExit() {
		t.Fatal("non-returning CFG should report HasExit() == false")
	}
}

func TestCallGraphLookupAndSuccessors(t *testing.T) {
	g := NewCallGraph()
	caller := New(&FuncDecl{Name: "caller"}, NewBlock("entry"))
	callee := New(&FuncDecl{Name: "callee"}, NewBlock("entry"))
	if err := g.AddNode(caller); err != nil {
		t.Fatalf("AddNode(caller) error = %v", err)
	}
	if err := g.AddNode(callee); err != nil {
		t.Fatalf("AddNode(callee) error = %v", err)
	}
	g.AddEdge(caller, callee)

	got, ok := g.Lookup("callee")
	if !ok || got != callee {
		t.Fatalf("Lookup(callee) = (%v, %v), want (%v, true)", got, ok, callee)
	}
	if _, ok := g.Lookup("nonexistent"); ok {
		t.Fatal("Lookup of an unregistered name should report ok=false")
	}

	succs := g.Successors(caller)
	if len(succs) != 1 || succs[0] != callee {
		t.Fatalf("Successors(caller) = %v, want [callee]", succs)
	}
}

func TestCallGraphRejectsDuplicateName(t *testing.T) {
	g := NewCallGraph()
	a := New(&FuncDecl{Name: "f"}, NewBlock("entry"))
	b := New(&FuncDecl{Name: "f"}, NewBlock("entry"))
	if err := g.AddNode(a); err != nil {
		t.Fatalf("AddNode(a) error = %v", err)
	}
	if err := g.AddNode(b); err == nil {
		t.Fatal("expected error registering a duplicate function name")
	}
}

func TestNegate(t *testing.T) {
	cases := []struct {
		in   Expr
		want Expr
	}{
		{BinExpr{Op: "<", Left: VarExpr{"x"}, Right: ConstExpr{1}}, BinExpr{Op: ">=", Left: VarExpr{"x"}, Right: ConstExpr{1}}},
		{BinExpr{Op: "==", Left: VarExpr{"x"}, Right: ConstExpr{1}}, BinExpr{Op: "!=", Left: VarExpr{"x"}, Right: ConstExpr{1}}},
		{UnaryExpr{Op: "!", Operand: VarExpr{"x"}}, VarExpr{"x"}},
	}
	for _, c := range cases {
		if got := Negate(c.in); got != c.want {
			t.Errorf("Negate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNegateDoubleNegationRoundTrips(t *testing.T) {
	e := BinExpr{Op: "<=", Left: VarExpr{"x"}, Right: ConstExpr{5}}
	twice := Negate(Negate(e))
	if twice != e {
		t.Fatalf("Negate(Negate(e)) = %v, want %v", twice, e)
	}
}
