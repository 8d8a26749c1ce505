package cfgbuild

import (
	"interfwd/internal/lang"
	"interfwd/ir"
)

// funcBuilder lowers one function's body, tracking the basic block new
// statements should be appended to as control-flow constructs split and
// rejoin it.
type funcBuilder struct {
	b       *Builder
	cfg     *ir.CFG
	current *ir.BasicBlock
}

func (fb *funcBuilder) lowerBlock(blk *lang.Block) {
	for _, s := range blk.Statements {
		fb.lowerStmt(s)
	}
}

func (fb *funcBuilder) lowerStmt(s *lang.Statement) {
	switch {
	case s.Let != nil:
		val := fb.lowerExpr(s.Let.Expr)
		fb.emit(ir.AssignStmt{Result: ir.Var(s.Let.Name), Value: val})
	case s.Assign != nil:
		val := fb.lowerExpr(s.Assign.Expr)
		fb.emit(ir.AssignStmt{Result: ir.Var(s.Assign.Name), Value: val})
	case s.If != nil:
		fb.lowerIf(s.If)
	case s.While != nil:
		fb.lowerWhile(s.While)
	case s.Require != nil:
		cond := fb.lowerExpr(s.Require.Expr)
		fb.emit(ir.AssumeStmt{Cond: cond})
	case s.Havoc != nil:
		vars := make([]ir.Var, len(s.Havoc.Names))
		for i, n := range s.Havoc.Names {
			vars[i] = ir.Var(n)
		}
		fb.emit(ir.HavocStmt{Vars: vars})
	case s.Return != nil:
		var val ir.Expr
		if s.Return.Expr != nil {
			val = fb.lowerExpr(s.Return.Expr)
		}
		// Bind the declared return variable before terminating: the
		// terminator's value is never interpreted by the statement
		// transformer, so this assignment is what makes the returned
		// value visible in the function's summary.
		if ret := fb.cfg.Decl.Return; ret != nil && val != nil {
			fb.emit(ir.AssignStmt{Result: *ret, Value: val})
			val = ir.VarExpr{Name: *ret}
		}
		fb.current.Terminator = ir.ReturnTerm{Value: val}
		fb.startDeadBlock()
	case s.ExprS != nil:
		fb.lowerCall(s.ExprS.Call, false)
	}
}

// startDeadBlock gives any statements lexically following a return
// somewhere to live, without letting them silently attach to the already
// terminated block. Such code is unreachable; the engine will simply never
// propagate any abstract value into this block.
func (fb *funcBuilder) startDeadBlock() {
	dead := fb.b.newBlock("unreachable")
	fb.cfg.AddBlock(dead)
	fb.current = dead
}

func (fb *funcBuilder) emit(stmt ir.Statement) {
	fb.current.Statements = append(fb.current.Statements, stmt)
}

func (fb *funcBuilder) lowerIf(s *lang.IfStmt) {
	cond := fb.lowerExpr(s.Cond)

	thenBlock := fb.b.newBlock("if_then")
	elseBlock := fb.b.newBlock("if_else")
	joinBlock := fb.b.newBlock("if_join")
	fb.cfg.AddBlock(thenBlock)
	fb.cfg.AddBlock(elseBlock)
	fb.cfg.AddBlock(joinBlock)

	fb.current.Terminator = ir.BranchTerm{Cond: cond, TrueBlock: thenBlock, FalseBlock: elseBlock}

	fb.current = thenBlock
	fb.emit(ir.AssumeStmt{Cond: cond})
	fb.lowerBlock(s.Then)
	if fb.current.Terminator == nil {
		fb.current.Terminator = ir.JumpTerm{Target: joinBlock}
	}

	fb.current = elseBlock
	fb.emit(ir.AssumeStmt{Cond: ir.Negate(cond)})
	if s.Else != nil {
		fb.lowerBlock(s.Else)
	}
	if fb.current.Terminator == nil {
		fb.current.Terminator = ir.JumpTerm{Target: joinBlock}
	}

	fb.current = joinBlock
}

func (fb *funcBuilder) lowerWhile(s *lang.WhileStmt) {
	header := fb.b.newBlock("while_head")
	body := fb.b.newBlock("while_body")
	exit := fb.b.newBlock("while_exit")
	fb.cfg.AddBlock(header)
	fb.cfg.AddBlock(body)
	fb.cfg.AddBlock(exit)

	fb.current.Terminator = ir.JumpTerm{Target: header}

	cond := fb.lowerExprIn(header, s.Cond)
	header.Terminator = ir.BranchTerm{Cond: cond, TrueBlock: body, FalseBlock: exit}

	fb.current = body
	fb.emit(ir.AssumeStmt{Cond: cond})
	fb.lowerBlock(s.Body)
	if fb.current.Terminator == nil {
		fb.current.Terminator = ir.JumpTerm{Target: header}
	}

	exit.Statements = append(exit.Statements, ir.AssumeStmt{Cond: ir.Negate(cond)})
	fb.current = exit
}

// lowerExprIn lowers e with fb.current temporarily redirected to host,
// used for a while loop's condition: any call embedded in the condition
// must be evaluated in the header block, not the block that precedes the
// loop.
func (fb *funcBuilder) lowerExprIn(host *ir.BasicBlock, e *lang.Expr) ir.Expr {
	prev := fb.current
	fb.current = host
	result := fb.lowerExpr(e)
	fb.current = prev
	return result
}

func (fb *funcBuilder) lowerExpr(e *lang.Expr) ir.Expr {
	left := fb.lowerArith(e.Left)
	if e.Op == nil {
		return left
	}
	right := fb.lowerArith(e.Right)
	return ir.BinExpr{Op: *e.Op, Left: left, Right: right}
}

func (fb *funcBuilder) lowerArith(a *lang.Arith) ir.Expr {
	left := fb.lowerTerm(a.Left)
	for _, op := range a.Ops {
		left = ir.BinExpr{Op: op.Operator, Left: left, Right: fb.lowerTerm(op.Right)}
	}
	return left
}

func (fb *funcBuilder) lowerTerm(t *lang.Term) ir.Expr {
	left := fb.lowerUnary(t.Left)
	for _, op := range t.Ops {
		left = ir.BinExpr{Op: op.Operator, Left: left, Right: fb.lowerUnary(op.Right)}
	}
	return left
}

func (fb *funcBuilder) lowerUnary(u *lang.Unary) ir.Expr {
	val := fb.lowerPrimary(u.Value)
	if u.Operator == nil {
		return val
	}
	return ir.UnaryExpr{Op: *u.Operator, Operand: val}
}

func (fb *funcBuilder) lowerPrimary(p *lang.Primary) ir.Expr {
	switch {
	case p.Call != nil:
		result := fb.lowerCall(p.Call, true)
		return ir.VarExpr{Name: result}
	case p.Number != nil:
		return ir.ConstExpr{Value: *p.Number}
	case p.Ident != nil:
		return ir.VarExpr{Name: ir.Var(*p.Ident)}
	case p.Sub != nil:
		return fb.lowerExpr(p.Sub)
	default:
		return ir.ConstExpr{Value: 0}
	}
}

// lowerCall emits a CallStmt for call, recording a call-graph edge when the
// callee resolves within this program. When needResult is true a fresh
// temporary is minted to hold the result; otherwise the call is emitted
// for its side effect alone, as internal/lang's ExprStmt requires.
func (fb *funcBuilder) lowerCall(call *lang.CallExpr, needResult bool) ir.Var {
	args := make([]ir.Expr, len(call.Args))
	for i, a := range call.Args {
		args[i] = fb.lowerExpr(a)
	}

	var result *ir.Var
	var temp ir.Var
	if needResult {
		temp = fb.b.newTemp(call.Name)
		result = &temp
	}

	fb.emit(ir.CallStmt{Result: result, Callee: call.Name, Args: args})
	if callee, ok := fb.b.byName[call.Name]; ok {
		fb.b.graph.AddEdge(fb.cfg, callee)
	}
	return temp
}
