package liveness

import (
	"sort"
	"testing"

	"interfwd/ir"
)

// buildCFG constructs: entry: x = 1; y = 2; jump mid
//                       mid: z = x + 1; return z
// so y is never used again once computed and should be dead at entry's exit.
func buildCFG(t *testing.T) (*ir.CFG, *ir.BasicBlock, *ir.BasicBlock) {
	t.Helper()
	entry := ir.NewBlock("entry")
	mid := ir.NewBlock("mid")
	entry.Statements = []ir.Statement{
		ir.AssignStmt{Result: "x", Value: ir.ConstExpr{Value: 1}},
		ir.AssignStmt{Result: "y", Value: ir.ConstExpr{Value: 2}},
	}
	entry.Terminator = ir.JumpTerm{Target: mid}
	mid.Statements = []ir.Statement{
		ir.AssignStmt{Result: "z", Value: ir.BinExpr{Op: "+", Left: ir.VarExpr{Name: "x"}, Right: ir.ConstExpr{Value: 1}}},
	}
	mid.Terminator = ir.ReturnTerm{Value: ir.VarExpr{Name: "z"}}

	cfg := ir.New(&ir.FuncDecl{Name: "f"}, entry)
	cfg.AddBlock(mid)
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	return cfg, entry, mid
}

func TestDeadAtExitFindsUnusedVariable(t *testing.T) {
	cfg, entry, _ := buildCFG(t)
	a := NewAnalyzer(cfg)

	dead := a.DeadAtExit(cfg, entry)
	names := make([]string, len(dead))
	for i, v := range dead {
		names[i] = string(v)
	}
	sort.Strings(names)

	found := false
	for _, n := range names {
		if n == "y" {
			found = true
		}
		if n == "x" {
			t.Fatalf("x is still live (used in mid); should not be reported dead, got %v", names)
		}
	}
	if !found {
		t.Fatalf("expected y to be dead at entry's exit, got %v", names)
	}
}

func TestDeadAtExitAtReturnBlockMarksEverythingDead(t *testing.T) {
	cfg, _, mid := buildCFG(t)
	a := NewAnalyzer(cfg)

	dead := a.DeadAtExit(cfg, mid)
	if len(dead) == 0 {
		t.Fatal("f has no formals, so after it returns every tracked variable should be dead")
	}
}

func TestNoPruningReportsNothingDead(t *testing.T) {
	cfg, entry, _ := buildCFG(t)
	var np Interface = NoPruning{}
	if got := np.DeadAtExit(cfg, entry); got != nil {
		t.Fatalf("NoPruning.DeadAtExit() = %v, want nil", got)
	}
}

func TestPerCFGCacheReusesAnalyzer(t *testing.T) {
	cfg, entry, _ := buildCFG(t)
	cache := NewPerCFGCache()

	first := cache.DeadAtExit(cfg, entry)
	second := cache.DeadAtExit(cfg, entry)
	if len(first) != len(second) {
		t.Fatalf("cached analyzer gave inconsistent results: %v vs %v", first, second)
	}
}
