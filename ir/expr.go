package ir

import "strconv"

// Expr is the minimal expression grammar statements carry. Concrete
// abstract domains interpret these through their transfer operations; the
// engine itself never evaluates an Expr.
type Expr interface {
	exprNode()
	String() string
}

// VarExpr reads a variable.
type VarExpr struct{ Name Var }

// ConstExpr is an integer literal.
type ConstExpr struct{ Value int64 }

// BinExpr is a binary arithmetic or relational operation.
// Relational operators ("<", "<=", ">", ">=", "==", "!=") are the ones
// Assume statements and branch conditions use.
type BinExpr struct {
	Op          string
	Left, Right Expr
}

// UnaryExpr is a unary operation; "!" negates a boolean/relational value,
// "-" negates an arithmetic one.
type UnaryExpr struct {
	Op      string
	Operand Expr
}

func (VarExpr) exprNode()   {}
func (ConstExpr) exprNode() {}
func (BinExpr) exprNode()   {}
func (UnaryExpr) exprNode() {}

func (v VarExpr) String() string   { return string(v.Name) }
func (c ConstExpr) String() string { return strconv.FormatInt(c.Value, 10) }
func (b BinExpr) String() string   { return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")" }
func (u UnaryExpr) String() string { return u.Op + u.Operand.String() }

var relOpposite = map[string]string{
	"<":  ">=",
	"<=": ">",
	">":  "<=",
	">=": "<",
	"==": "!=",
	"!=": "==",
}

// Negate returns the logical negation of a (boolean-valued) expression.
// Relational BinExprs are negated by flipping the operator, which keeps
// the result in the same shape domains know how to Assume on; anything
// else is wrapped in a "!" UnaryExpr, which a domain is free to treat as
// an unconstraining no-op if it does not understand it.
func Negate(e Expr) Expr {
	switch n := e.(type) {
	case BinExpr:
		if flipped, ok := relOpposite[n.Op]; ok {
			return BinExpr{Op: flipped, Left: n.Left, Right: n.Right}
		}
	case UnaryExpr:
		if n.Op == "!" {
			return n.Operand
		}
	}
	return UnaryExpr{Op: "!", Operand: e}
}
