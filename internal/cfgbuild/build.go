// Package cfgbuild lowers an internal/lang Program into the ir.CallGraph
// the engine operates on: one ir.CFG per function, structured control flow
// rewritten into basic blocks and branch/assume pairs, and one ir.CallGraph
// edge per resolvable call site.
package cfgbuild

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"interfwd/internal/lang"
	"interfwd/ir"
)

// Builder lowers one Program at a time. A fresh Builder should be used per
// Program: its block/temp counters are not meant to be shared across
// unrelated programs.
type Builder struct {
	blockCounter int
	tempCounter  int
	byName       map[string]*ir.CFG
	graph        *ir.CallGraph
}

// New creates a Builder.
func New() *Builder {
	return &Builder{byName: make(map[string]*ir.CFG), graph: ir.NewCallGraph()}
}

// Build lowers prog into a call graph. Every function in prog gets a node
// regardless of whether anything calls it; a call naming a function not
// declared in prog resolves to nothing and is left for the engine's
// CallResolver to treat as an external call.
func (b *Builder) Build(prog *lang.Program) (*ir.CallGraph, error) {
	for _, fn := range prog.Functions {
		decl := b.declFor(fn)
		entry := b.newBlock("entry")
		cfg := ir.New(decl, entry)
		if err := b.graph.AddNode(cfg); err != nil {
			return nil, err
		}
		b.byName[fn.Name] = cfg
	}

	for _, fn := range prog.Functions {
		cfg := b.byName[fn.Name]
		fb := &funcBuilder{b: b, cfg: cfg, current: cfg.Entry}
		fb.lowerBlock(fn.Body)
		if fb.current.Terminator == nil {
			fb.current.Terminator = ir.ReturnTerm{}
		}
		if err := cfg.Finalize(); err != nil {
			return nil, fmt.Errorf("finalizing %q: %w", fn.Name, err)
		}
	}
	return b.graph, nil
}

func (b *Builder) declFor(fn *lang.Function) *ir.FuncDecl {
	params := make([]ir.Var, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ir.Var(p.Name)
	}
	decl := &ir.FuncDecl{Name: fn.Name, Params: params}
	if fn.Return != nil {
		ret := ir.Var("ret")
		decl.Return = &ret
	}
	return decl
}

// newBlock mints a uniquely labeled block. The label only needs to be
// unique within its CFG, but the counter is shared across the whole
// program so two functions' blocks are never confusable from a trace log
// even though that's stricter than strictly necessary.
func (b *Builder) newBlock(prefix string) *ir.BasicBlock {
	b.blockCounter++
	return ir.NewBlock(strcase.ToSnake(fmt.Sprintf("%s_%d", prefix, b.blockCounter)))
}

// newTemp mints a fresh variable name for an intermediate value (a call's
// result when it appears nested inside a larger expression). Names are
// normalized through strcase into lowerCamel form (tmp_inc_1 becomes
// tmpInc1). The lexer accepts such names as ordinary identifiers too, so
// nothing stops a source program from using a name that collides with a
// temporary.
func (b *Builder) newTemp(base string) ir.Var {
	b.tempCounter++
	return ir.Var(strcase.ToLowerCamel(fmt.Sprintf("tmp_%s_%d", base, b.tempCounter)))
}
