// Package liveness supplies the engine's one externally-injected analysis:
// which variables are dead at the exit of a block, so the intra-procedural iterator can forget them and keep
// its abstract values from growing without bound across a large CFG.
package liveness

import "interfwd/ir"

// Interface is what the engine asks of a liveness oracle. A caller that
// does not want dead-variable pruning at all can pass NoPruning{}.
type Interface interface {
	// DeadAtExit returns the variables that are live nowhere after control
	// leaves block within cfg: safe to Forget from the post-state computed
	// for block.
	DeadAtExit(cfg *ir.CFG, block *ir.BasicBlock) []ir.Var
}

// NoPruning is an Interface that never reports anything dead, used when a
// caller prefers precision (keeping every variable) over the memory
// savings pruning gives.
type NoPruning struct{}

func (NoPruning) DeadAtExit(*ir.CFG, *ir.BasicBlock) []ir.Var { return nil }

// PerCFGCache builds one Analyzer per distinct CFG it is asked about, the
// first time it sees that CFG, and reuses it for every later query. The
// driver only ever asks about blocks belonging to whichever CFG it is
// currently analyzing, so this turns into one Analyzer construction per
// function over the lifetime of a run.
type PerCFGCache struct {
	analyzers map[*ir.CFG]*Analyzer
}

// NewPerCFGCache creates an empty cache.
func NewPerCFGCache() *PerCFGCache {
	return &PerCFGCache{analyzers: make(map[*ir.CFG]*Analyzer)}
}

func (c *PerCFGCache) DeadAtExit(cfg *ir.CFG, block *ir.BasicBlock) []ir.Var {
	a, ok := c.analyzers[cfg]
	if !ok {
		a = NewAnalyzer(cfg)
		c.analyzers[cfg] = a
	}
	return a.DeadAtExit(cfg, block)
}

// Analyzer computes classic backward liveness over a CFG: a variable is
// live at a program point if some path from that point reads it before it
// is redefined. A returning block's live-out set holds the function's
// formals (parameters and return variable), which its summary is projected
// onto. It is built once per CFG (NewAnalyzer) and then answers DeadAtExit
// for any block in that CFG in time linear in the number of variables.
type Analyzer struct {
	cfg     *ir.CFG
	liveIn  map[*ir.BasicBlock]map[ir.Var]struct{}
	liveOut map[*ir.BasicBlock]map[ir.Var]struct{}
	allVars map[ir.Var]struct{}
}

// NewAnalyzer runs the fixpoint and returns a ready-to-query Analyzer.
func NewAnalyzer(cfg *ir.CFG) *Analyzer {
	a := &Analyzer{
		cfg:     cfg,
		liveIn:  make(map[*ir.BasicBlock]map[ir.Var]struct{}),
		liveOut: make(map[*ir.BasicBlock]map[ir.Var]struct{}),
		allVars: make(map[ir.Var]struct{}),
	}
	uses, defs := a.useDefSets()
	for _, b := range cfg.Blocks {
		a.liveIn[b] = make(map[ir.Var]struct{})
		a.liveOut[b] = make(map[ir.Var]struct{})
	}

	changed := true
	for changed {
		changed = false
		for i := len(cfg.Blocks) - 1; i >= 0; i-- {
			b := cfg.Blocks[i]
			out := make(map[ir.Var]struct{})
			for _, succ := range b.Successors {
				for v := range a.liveIn[succ] {
					out[v] = struct{}{}
				}
			}
			if _, returns := b.Terminator.(ir.ReturnTerm); returns && cfg.Decl != nil {
				for _, v := range cfg.Decl.Formals() {
					out[v] = struct{}{}
				}
			}
			in := make(map[ir.Var]struct{}, len(out))
			for v := range out {
				in[v] = struct{}{}
			}
			for v := range defs[b] {
				delete(in, v)
			}
			for v := range uses[b] {
				in[v] = struct{}{}
			}
			if !setEqual(in, a.liveIn[b]) || !setEqual(out, a.liveOut[b]) {
				a.liveIn[b] = in
				a.liveOut[b] = out
				changed = true
			}
		}
	}
	return a
}

// DeadAtExit returns every variable mentioned anywhere in the function
// that is not in block's live-out set: dead immediately after block runs.
func (a *Analyzer) DeadAtExit(_ *ir.CFG, block *ir.BasicBlock) []ir.Var {
	out := a.liveOut[block]
	dead := make([]ir.Var, 0, len(a.allVars))
	for v := range a.allVars {
		if _, live := out[v]; !live {
			dead = append(dead, v)
		}
	}
	return dead
}

func setEqual(a, b map[ir.Var]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

// useDefSets computes, per block, the variables it uses before any local
// definition (its upward-exposed uses) and the variables it defines.
func (a *Analyzer) useDefSets() (uses, defs map[*ir.BasicBlock]map[ir.Var]struct{}) {
	uses = make(map[*ir.BasicBlock]map[ir.Var]struct{})
	defs = make(map[*ir.BasicBlock]map[ir.Var]struct{})
	for _, b := range a.cfg.Blocks {
		use := make(map[ir.Var]struct{})
		def := make(map[ir.Var]struct{})
		noteUse := func(v ir.Var) {
			a.allVars[v] = struct{}{}
			if _, alreadyDef := def[v]; !alreadyDef {
				use[v] = struct{}{}
			}
		}
		noteDef := func(v ir.Var) {
			a.allVars[v] = struct{}{}
			def[v] = struct{}{}
		}
		for _, s := range b.Statements {
			switch st := s.(type) {
			case ir.AssignStmt:
				exprVars(st.Value, noteUse)
				noteDef(st.Result)
			case ir.AssumeStmt:
				exprVars(st.Cond, noteUse)
			case ir.HavocStmt:
				for _, v := range st.Vars {
					noteDef(v)
				}
			case ir.CallStmt:
				for _, arg := range st.Args {
					exprVars(arg, noteUse)
				}
				if st.Result != nil {
					noteDef(*st.Result)
				}
			case ir.PrimitiveStmt:
				for _, arg := range st.Args {
					exprVars(arg, noteUse)
				}
			}
		}
		if b.Terminator != nil {
			switch t := b.Terminator.(type) {
			case ir.ReturnTerm:
				if t.Value != nil {
					exprVars(t.Value, noteUse)
				}
			case ir.BranchTerm:
				exprVars(t.Cond, noteUse)
			}
		}
		uses[b] = use
		defs[b] = def
	}
	return uses, defs
}

func exprVars(e ir.Expr, note func(ir.Var)) {
	switch x := e.(type) {
	case nil:
		return
	case ir.VarExpr:
		note(x.Name)
	case ir.BinExpr:
		exprVars(x.Left, note)
		exprVars(x.Right, note)
	case ir.UnaryExpr:
		exprVars(x.Operand, note)
	}
}
