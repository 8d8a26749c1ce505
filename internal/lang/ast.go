// Package lang is a small imperative language whose only purpose is to
// give internal/cfgbuild something realistic to lower into a call graph of
// CFGs: functions with integer parameters, let/assign, if/while, require
// (an assume), havoc, call, and return. It carries no types, structs, or
// module system; those belong to a real source language, not to this
// engine's test fixtures.
package lang

import "github.com/alecthomas/participle/v2/lexer"

type Program struct {
	Pos       lexer.Position
	Functions []*Function `@@*`
}

type Function struct {
	Pos    lexer.Position
	Name   string   `"fn" @Ident "("`
	Params []*Param `[ @@ { "," @@ } ] ")"`
	Return *string  `[ ":" @Ident ]`
	Body   *Block   `@@`
}

type Param struct {
	Name string `@Ident ":"`
	Type string `@Ident`
}

type Block struct {
	Statements []*Statement `"{" @@* "}"`
}

type Statement struct {
	Let     *LetStmt     `  @@`
	Assign  *AssignStmt  `| @@`
	If      *IfStmt      `| @@`
	While   *WhileStmt   `| @@`
	Require *RequireStmt `| @@`
	Havoc   *HavocStmt   `| @@`
	Return  *ReturnStmt  `| @@`
	ExprS   *ExprStmt    `| @@`
}

type LetStmt struct {
	Name string `"let" @Ident "="`
	Expr *Expr  `@@ ";"`
}

type AssignStmt struct {
	Name string `@Ident "="`
	Expr *Expr  `@@ ";"`
}

type IfStmt struct {
	Cond *Expr  `"if" "(" @@ ")"`
	Then *Block `@@`
	Else *Block `[ "else" @@ ]`
}

type WhileStmt struct {
	Cond *Expr  `"while" "(" @@ ")"`
	Body *Block `@@`
}

// RequireStmt lowers to an ir.AssumeStmt: the function's continuing
// analysis only considers the states where Expr holds.
type RequireStmt struct {
	Expr *Expr `"require" "(" @@ ")" ";"`
}

// HavocStmt forgets the named variables, giving them an unconstrained
// value; used in fixtures to model input from an untracked source.
type HavocStmt struct {
	Names []string `"havoc" @Ident { "," @Ident } ";"`
}

type ReturnStmt struct {
	Expr *Expr `"return" [ @@ ] ";"`
}

// ExprStmt is a call made for its side effect, its result discarded.
type ExprStmt struct {
	Call *CallExpr `@@ ";"`
}

// Expr is a single optional relational comparison over two Arith operands;
// require/if/while conditions are always this shape or a bare Arith, which
// the lowering pass passes through unchanged as the condition (no implicit
// "!= 0" comparison is added).
type Expr struct {
	Left  *Arith  `@@`
	Op    *string `( @("<=" | ">=" | "==" | "!=" | "<" | ">")`
	Right *Arith  `  @@ )?`
}

type Arith struct {
	Left *Term      `@@`
	Ops  []*ArithOp `{ @@ }`
}

type ArithOp struct {
	Operator string `@("+" | "-")`
	Right    *Term  `@@`
}

type Term struct {
	Left *Unary    `@@`
	Ops  []*TermOp `{ @@ }`
}

type TermOp struct {
	Operator string `@("*" | "/")`
	Right    *Unary `@@`
}

type Unary struct {
	Operator *string  `[ @("-" | "!") ]`
	Value    *Primary `@@`
}

type Primary struct {
	Call   *CallExpr `  @@`
	Number *int64    `| @Int`
	Ident  *string   `| @Ident`
	Sub    *Expr     `| "(" @@ ")"`
}

type CallExpr struct {
	Name string  `@Ident "("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}
