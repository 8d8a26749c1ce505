// Package intra is the intra-procedural fixpoint iterator: it drives
// one CFG to a fixpoint given a seed at the entry block, using the
// weak topological order from package wto to decide visiting order and
// where to apply widening/narrowing instead of a plain join.
package intra

import (
	"math"

	"interfwd/domain"
	"interfwd/ir"
	"interfwd/liveness"
	"interfwd/transform"
	"interfwd/varfactory"
	"interfwd/wto"
)

// UnboundedDescent lets the narrowing phase run to its natural fixpoint
// instead of a fixed pass count. Narrowing only ever refines, so the loop
// still terminates for any domain whose Narrowing stabilizes.
const UnboundedDescent = math.MaxInt

// Options configures the iteration schedule. Zero-value Options uses a
// widening delay of 0 (Widening from the first visit to a widening point)
// and no descending (narrowing) phase at all, which is sound but
// imprecise on loops; WithDefaults fills in the usual schedule.
type Options struct {
	// WideningDelay is how many plain joins a widening point gets before
	// the iterator switches to Widening.
	WideningDelay int
	// DescendingIters bounds the narrowing phase; 0 disables it and
	// UnboundedDescent runs it to fixpoint.
	DescendingIters int
	// JumpSetSize caps how many constant thresholds are extracted from the
	// CFG for jump-set widening. 0 disables the optimization outright.
	JumpSetSize int
	// KeepShadows, when false (the default), forgets every
	// varfactory-minted shadow variable from the final pre/post states
	// before returning them.
	KeepShadows bool
}

// WithDefaults returns the standard schedule: widening after one plain
// join, narrowing to fixpoint, jump-set widening off.
func WithDefaults() Options {
	return Options{WideningDelay: 1, DescendingIters: UnboundedDescent, JumpSetSize: 0}
}

// Result is the fixpoint: the abstract value reaching the head and the
// tail of every block in the CFG.
type Result struct {
	Pre  map[*ir.BasicBlock]domain.Domain
	Post map[*ir.BasicBlock]domain.Domain
}

func (r *Result) PreAt(b *ir.BasicBlock) domain.Domain  { return r.Pre[b] }
func (r *Result) PostAt(b *ir.BasicBlock) domain.Domain { return r.Post[b] }

// ThresholdWidener is an optional capability a domain can implement to
// take part in jump-set widening: the iterator offers it the constants
// syntactically present in the CFG's conditions rather than leaving
// every widening step to jump straight to +-infinity.
type ThresholdWidener interface {
	WideningWithThresholds(other domain.Domain, thresholds []int64) domain.Domain
}

// varEnumerable is an optional capability used to strip shadow variables
// from a final result; a domain that does not implement it simply keeps
// whatever its Transform calls left behind.
type varEnumerable interface {
	Vars() []ir.Var
}

// Iterator runs the fixpoint computation for one CFG.
type Iterator struct {
	CFG         *ir.CFG
	Transformer transform.StmtTransformer
	Liveness    liveness.Interface
	VarFactory  *varfactory.Factory
	Factory     domain.Factory
	Options     Options
}

// New creates an Iterator with the given collaborators. Liveness may be
// liveness.NoPruning{} to disable dead-variable forgetting.
func New(cfg *ir.CFG, t transform.StmtTransformer, live liveness.Interface, vf *varfactory.Factory, factory domain.Factory, opts Options) *Iterator {
	return &Iterator{CFG: cfg, Transformer: t, Liveness: live, VarFactory: vf, Factory: factory, Options: opts}
}

// Analyze runs the CFG to a fixpoint starting from seed at the entry
// block.
func (it *Iterator) Analyze(seed domain.Domain) *Result {
	order := wto.Compute(it.CFG)
	thresholds := it.thresholds()

	pre := make(map[*ir.BasicBlock]domain.Domain, len(it.CFG.Blocks))
	post := make(map[*ir.BasicBlock]domain.Domain, len(it.CFG.Blocks))
	for _, b := range it.CFG.Blocks {
		pre[b] = it.Factory.Bottom()
		post[b] = it.Factory.Bottom()
	}
	pre[it.CFG.Entry] = seed

	visits := make(map[*ir.BasicBlock]int)
	it.fixpoint(order, pre, post, seed, func(b *ir.BasicBlock, old, in domain.Domain) domain.Domain {
		if !order.IsWideningPoint(b) {
			return old.Join(in)
		}
		visits[b]++
		if visits[b] <= it.Options.WideningDelay {
			return old.Join(in)
		}
		return it.widen(old, in, thresholds)
	})

	for i := 0; i < it.Options.DescendingIters; i++ {
		changed := it.fixpoint(order, pre, post, seed, func(b *ir.BasicBlock, old, in domain.Domain) domain.Domain {
			if !order.IsWideningPoint(b) {
				return in
			}
			return old.Narrowing(in)
		})
		if !changed {
			break
		}
	}

	it.pruneDead(post)
	if !it.Options.KeepShadows {
		it.stripShadows(pre)
		it.stripShadows(post)
	}
	return &Result{Pre: pre, Post: post}
}

// fixpoint runs one pass-to-stability over order.Blocks, using combine to
// fold each block's joined predecessor state into its current pre-state.
// It returns whether anything changed, so the narrowing loop can stop
// early once the descending sequence stabilizes on its own.
func (it *Iterator) fixpoint(order *wto.Order, pre, post map[*ir.BasicBlock]domain.Domain, seed domain.Domain, combine func(b *ir.BasicBlock, old, in domain.Domain) domain.Domain) bool {
	anyChanged := false
	for {
		changed := false
		for _, b := range order.Blocks {
			in := it.joinPredecessors(b, pre, post, seed)
			newIn := combine(b, pre[b], in)
			if !equalDomain(newIn, pre[b]) {
				pre[b] = newIn
				changed = true
			}
			out := it.applyBlock(pre[b], b)
			if !equalDomain(out, post[b]) {
				post[b] = out
				changed = true
			}
		}
		anyChanged = anyChanged || changed
		if !changed {
			return anyChanged
		}
	}
}

func (it *Iterator) joinPredecessors(b *ir.BasicBlock, pre, post map[*ir.BasicBlock]domain.Domain, seed domain.Domain) domain.Domain {
	var acc domain.Domain
	if b == it.CFG.Entry {
		acc = seed
	}
	for _, p := range b.Predecessors {
		if acc == nil {
			acc = post[p]
		} else {
			acc = acc.Join(post[p])
		}
	}
	if acc == nil {
		return pre[b]
	}
	return acc
}

func (it *Iterator) applyBlock(in domain.Domain, b *ir.BasicBlock) domain.Domain {
	state := in
	for _, s := range b.Statements {
		state = it.Transformer.Transform(state, s)
	}
	return state
}

func (it *Iterator) widen(old, newVal domain.Domain, thresholds []int64) domain.Domain {
	if len(thresholds) > 0 {
		if tw, ok := old.(ThresholdWidener); ok {
			return tw.WideningWithThresholds(newVal, thresholds)
		}
	}
	return old.Widening(newVal)
}

func (it *Iterator) pruneDead(post map[*ir.BasicBlock]domain.Domain) {
	for _, b := range it.CFG.Blocks {
		dead := it.Liveness.DeadAtExit(it.CFG, b)
		if len(dead) > 0 {
			post[b] = post[b].Forget(dead)
		}
	}
}

func (it *Iterator) stripShadows(states map[*ir.BasicBlock]domain.Domain) {
	for b, d := range states {
		ve, ok := d.(varEnumerable)
		if !ok {
			continue
		}
		shadow := it.VarFactory.ShadowVars(ve.Vars())
		if len(shadow) > 0 {
			states[b] = d.Forget(shadow)
		}
	}
}

// thresholds collects the integer constants syntactically compared
// against in the CFG's Assume statements, capped at JumpSetSize, for
// jump-set widening.
func (it *Iterator) thresholds() []int64 {
	if it.Options.JumpSetSize <= 0 {
		return nil
	}
	seen := make(map[int64]struct{})
	var out []int64
	add := func(v int64) {
		if _, ok := seen[v]; ok {
			return
		}
		if len(out) >= it.Options.JumpSetSize {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	var walk func(e ir.Expr)
	walk = func(e ir.Expr) {
		switch x := e.(type) {
		case ir.ConstExpr:
			add(x.Value)
		case ir.BinExpr:
			walk(x.Left)
			walk(x.Right)
		case ir.UnaryExpr:
			walk(x.Operand)
		}
	}
	for _, b := range it.CFG.Blocks {
		for _, s := range b.Statements {
			if as, ok := s.(ir.AssumeStmt); ok {
				walk(as.Cond)
			}
		}
	}
	return out
}

func equalDomain(a, b domain.Domain) bool {
	return a.Leq(b) && b.Leq(a)
}
