// Package callctx is the top-down phase's accumulator of calling
// contexts: the join, over every call site anywhere in the program, of
// the caller-side state reaching that callee. Unlike the summary table
// (single-writer, insert-once), every insert here joins with whatever is
// already present, since a function may be called from several sites (or
// the same site inside a loop) before the top-down sweep reaches it.
package callctx

import (
	"sync"

	"interfwd/domain"
	"interfwd/ir"
)

// Table accumulates call-site contexts keyed by callee.
type Table struct {
	mu      sync.Mutex
	entries map[string]domain.Domain
}

// New creates an empty call-context table.
func New() *Table {
	return &Table{entries: make(map[string]domain.Domain)}
}

// Join merges ctx into whatever context fn already has recorded (or
// installs it as-is if fn has none yet).
func (t *Table) Join(fn *ir.FuncDecl, ctx domain.Domain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := fn.Key()
	if existing, ok := t.entries[key]; ok {
		t.entries[key] = existing.Join(ctx)
		return
	}
	t.entries[key] = ctx
}

// Get returns fn's accumulated context, or ok=false if fn has not been
// called from anywhere reached so far (true only of the analysis roots).
func (t *Table) Get(fn *ir.FuncDecl) (domain.Domain, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[fn.Key()]
	return v, ok
}

// Has reports whether fn has any recorded context.
func (t *Table) Has(fn *ir.FuncDecl) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[fn.Key()]
	return ok
}
