// Package summary is the single-writer table the bottom-up phase fills
// in and the top-down phase reads from. Each entry is a function's
// context-insensitive effect, restricted to its formals and return
// variable: the invariant "vars(s) ⊆ formals ∪ {return}" is the writer's
// responsibility, and Insert stores the value it is given unchecked.
package summary

import (
	"fmt"
	"sync"

	"interfwd/domain"
	"interfwd/ir"
)

// Table maps a function to its synthesized summary. Entries are written
// exactly once: the bottom-up phase visits each SCC once in reverse
// topological order, so no function's summary is ever recomputed once
// inserted, and Insert panics if asked to overwrite one. This catches a
// driver bug (revisiting a node) immediately instead of silently losing precision.
type Table struct {
	mu      sync.RWMutex
	entries map[string]domain.Domain
}

// New creates an empty summary table.
func New() *Table {
	return &Table{entries: make(map[string]domain.Domain)}
}

// Insert records fn's summary. restricted must already be projected onto
// fn.Formals(); Insert does not re-project it. The bottom-up driver
// (inter's runBottomUp) projects each exit state before inserting it.
func (t *Table) Insert(fn *ir.FuncDecl, restricted domain.Domain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := fn.Key()
	if _, exists := t.entries[key]; exists {
		panic(fmt.Sprintf("summary: duplicate insert for %q", key))
	}
	t.entries[key] = restricted
}

// Has reports whether fn already has a summary.
func (t *Table) Has(fn *ir.FuncDecl) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[fn.Key()]
	return ok
}

// Get returns fn's summary, or ok=false if none has been synthesized yet
// (a forward call to a function later in reverse-topological order, or a
// function whose body never reaches a return).
func (t *Table) Get(fn *ir.FuncDecl) (domain.Domain, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[fn.Key()]
	return v, ok
}
