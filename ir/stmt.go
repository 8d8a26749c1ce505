package ir

// Statement is the set of non-terminator instructions a basic block holds.
// The vocabulary is fixed: assignment, assume, havoc, call, or a
// domain-specific primitive. Control transfer (jump/branch/return) lives in
// Terminator instead, mirroring the call graph / CFG's separation of
// straight-line code from control flow.
type Statement interface {
	stmtNode()
}

// AssignStmt binds the result of evaluating Value to Result.
type AssignStmt struct {
	Result Var
	Value  Expr
}

// AssumeStmt constrains the state to the cases where Cond holds. Branch
// edges are lowered to an AssumeStmt at the head of each successor block
// (Cond for the true edge, Negate(Cond) for the false edge) by the CFG
// builder, so the iterator never has to special-case BranchTerm itself.
type AssumeStmt struct {
	Cond Expr
}

// HavocStmt forgets the listed variables, giving them an unconstrained
// (top) value.
type HavocStmt struct {
	Vars []Var
}

// CallStmt calls Callee with Args, optionally binding the result to Result.
// This is the only statement the bottom-up and top-down transformers
// handle differently from one another.
type CallStmt struct {
	Result *Var
	Callee string
	Args   []Expr
}

// PrimitiveStmt is an opaque domain-specific operation the core passes
// through unchanged to the injected statement transformer.
type PrimitiveStmt struct {
	Name string
	Args []Expr
}

func (AssignStmt) stmtNode()    {}
func (AssumeStmt) stmtNode()    {}
func (HavocStmt) stmtNode()     {}
func (CallStmt) stmtNode()      {}
func (PrimitiveStmt) stmtNode() {}

// Terminator ends a basic block. Every terminator reports its successor
// blocks so the engine can build predecessor lists and weak topological
// order without knowing the concrete terminator kind.
type Terminator interface {
	Successors() []*BasicBlock
	termNode()
}

// ReturnTerm ends the function; Value is the returned expression, or nil
// for a value-less return.
type ReturnTerm struct {
	Value Expr
}

// JumpTerm is an unconditional transfer to Target.
type JumpTerm struct {
	Target *BasicBlock
}

// BranchTerm transfers to TrueBlock when Cond holds, FalseBlock otherwise.
type BranchTerm struct {
	Cond                  Expr
	TrueBlock, FalseBlock *BasicBlock
}

func (ReturnTerm) termNode() {}
func (JumpTerm) termNode()   {}
func (BranchTerm) termNode() {}

func (ReturnTerm) Successors() []*BasicBlock { return nil }
func (j JumpTerm) Successors() []*BasicBlock { return []*BasicBlock{j.Target} }
func (b BranchTerm) Successors() []*BasicBlock {
	return []*BasicBlock{b.TrueBlock, b.FalseBlock}
}
