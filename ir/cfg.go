package ir

import "github.com/pkg/errors"

// CFG is a directed graph of basic blocks with a designated entry block, an
// optional exit block, and a reference to its owning FuncDecl. It
// is immutable once Finalize has been called; the engine only ever borrows
// it for the lifetime of one analysis run.
type CFG struct {
	Decl   *FuncDecl
	Entry  *BasicBlock
	Blocks []*BasicBlock

	exits []*BasicBlock
}

// New creates a CFG for decl rooted at entry. Call AddBlock for every other
// block, then Finalize once all blocks and terminators are in place.
func New(decl *FuncDecl, entry *BasicBlock) *CFG {
	cfg := &CFG{Decl: decl, Entry: entry}
	cfg.Blocks = append(cfg.Blocks, entry)
	return cfg
}

// AddBlock registers b as belonging to this CFG. Entry is added
// automatically by New and must not be passed again.
func (c *CFG) AddBlock(b *BasicBlock) {
	c.Blocks = append(c.Blocks, b)
}

// Finalize computes predecessor/successor lists from each block's
// terminator and records the exit blocks: every block whose terminator is
// a ReturnTerm, in Blocks order. A function may return from several
// blocks (the source language allows multiple return statements), and a
// caller that needs the function's overall exit state must account for
// all of them; summary synthesis joins the post-states of every exit.
func (c *CFG) Finalize() error {
	if c.Decl == nil {
		return errors.Wrap(newContractError(ErrorMissingFuncDecl, "CFG has no FuncDecl"), "ir.CFG.Finalize")
	}
	if c.Entry == nil {
		return errors.Wrap(newContractError(ErrorMissingEntry, "CFG %q has no entry block", c.Decl.Name), "ir.CFG.Finalize")
	}

	c.exits = nil
	seen := make(map[*BasicBlock]bool, len(c.Blocks))
	for _, b := range c.Blocks {
		if seen[b] {
			return errors.Wrap(newContractError(ErrorDuplicateCFGNode, "block %q registered twice", b.Label), "ir.CFG.Finalize")
		}
		seen[b] = true
		b.Predecessors = nil
		b.Successors = nil
	}

	for _, b := range c.Blocks {
		if b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.Successors() {
			if succ == nil {
				continue
			}
			b.Successors = append(b.Successors, succ)
			succ.Predecessors = append(succ.Predecessors, b)
		}
		if _, ok := b.Terminator.(ReturnTerm); ok {
			c.exits = append(c.exits, b)
		}
	}
	return nil
}

// HasExit reports whether the function contains a return statement.
// Non-returning functions contribute no summary.
func (c *CFG) HasExit() bool { return len(c.exits) > 0 }

// Exit returns the first exit block, or nil if HasExit is false. Callers
// that need every returning block use Exits instead.
func (c *CFG) Exit() *BasicBlock {
	if len(c.exits) == 0 {
		return nil
	}
	return c.exits[0]
}

// Exits returns every block terminated by a ReturnTerm, in Blocks order.
func (c *CFG) Exits() []*BasicBlock { return c.exits }

// ReturnVar returns the function's declared return variable, or nil. The
// engine asks the CFG's owning FuncDecl rather than scanning the exit block's ReturnTerm, since
// the declaration is the authoritative source of the formal name a summary
// is projected onto.
func (c *CFG) ReturnVar() *Var {
	if c.Decl == nil {
		return nil
	}
	return c.Decl.Return
}
