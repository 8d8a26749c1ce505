// Package inter is the inter-procedural driver: it condenses a
// call graph into SCCs, runs a bottom-up phase synthesizing one summary
// per function, then a top-down phase propagating calling contexts and
// recording the final per-block invariants every query in this package
// answers from.
package inter

import (
	"interfwd/callctx"
	"interfwd/diag"
	"interfwd/domain"
	"interfwd/intra"
	"interfwd/ir"
	"interfwd/liveness"
	"interfwd/sccgraph"
	"interfwd/summary"
	"interfwd/transform"
	"interfwd/varfactory"
)

// Options configures a run. Use New with functional Option values rather
// than constructing Options directly.
type Options struct {
	// EntryPoint is the distinguished root analyzed when AnalyzeAllOnNoEdges
	// is false and the call graph has no edges at all.
	EntryPoint string
	// AnalyzeAllOnNoEdges, when the call graph has zero edges, analyzes
	// every function independently instead of only EntryPoint. Default
	// false: with no calls to propagate context through, there is nothing
	// inter-procedural left to do beyond the one function the caller
	// asked about.
	AnalyzeAllOnNoEdges bool
	// Intra configures every per-function fixpoint the driver runs.
	Intra intra.Options
}

func defaultOptions() Options {
	return Options{EntryPoint: "main", Intra: intra.WithDefaults()}
}

// Option mutates an Options value under construction.
type Option func(*Options)

// WithEntryPoint overrides the default "main" distinguished root.
func WithEntryPoint(name string) Option {
	return func(o *Options) { o.EntryPoint = name }
}

// WithAnalyzeAllOnNoEdges toggles analyzing every function when the call
// graph has no edges, instead of only EntryPoint.
func WithAnalyzeAllOnNoEdges(v bool) Option {
	return func(o *Options) { o.AnalyzeAllOnNoEdges = v }
}

// WithIntraOptions overrides the per-function fixpoint schedule.
func WithIntraOptions(i intra.Options) Option {
	return func(o *Options) { o.Intra = i }
}

// Analyzer is the inter-procedural driver itself.
type Analyzer struct {
	graph      *ir.CallGraph
	factory    domain.Factory
	liveness   liveness.Interface
	varFactory *varfactory.Factory
	resolver   transform.CallResolver
	logger     diag.Logger
	stats      *diag.Stats
	opts       Options

	summaries *summary.Table
	callCtx   *callctx.Table
	results   map[*ir.CFG]*intra.Result
	preSeed   map[*ir.CFG]domain.Domain
}

// New builds an Analyzer over graph. factory must produce values of the
// same domain used for both the bottom-up and top-down phases; live may be
// liveness.NoPruning{} to disable dead-variable forgetting.
func New(graph *ir.CallGraph, factory domain.Factory, live liveness.Interface, opts ...Option) *Analyzer {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Analyzer{
		graph:      graph,
		factory:    factory,
		liveness:   live,
		varFactory: varfactory.New(),
		resolver:   transform.HavocUnknownCalls{},
		logger:     diag.NoopLogger{},
		stats:      diag.NewStats(),
		opts:       o,
		summaries:  summary.New(),
		callCtx:    callctx.New(),
		results:    make(map[*ir.CFG]*intra.Result),
		preSeed:    make(map[*ir.CFG]domain.Domain),
	}
}

// WithLogger installs a non-default diag.Logger; must be called before Run.
func (a *Analyzer) WithLogger(l diag.Logger) *Analyzer { a.logger = l; return a }

// WithCallResolver installs a non-default transform.CallResolver; must be
// called before Run.
func (a *Analyzer) WithCallResolver(r transform.CallResolver) *Analyzer { a.resolver = r; return a }

// WithVarFactory shares a caller-owned variable factory with the
// analyzer, so shadow variables the caller minted before the run are
// stripped from recorded invariants the same way the analyzer's own
// call-site shadows are; must be called before Run. By default each
// Analyzer owns a fresh factory.
func (a *Analyzer) WithVarFactory(vf *varfactory.Factory) *Analyzer {
	a.varFactory = vf
	return a
}

// Stats returns the run's counters (summary hits/misses, domain
// operation counts the domain itself chooses to report, if any).
func (a *Analyzer) Stats() *diag.Stats { return a.stats }

// Run performs the full analysis with the root seeded at Top, the
// default when the caller has no precondition to assert about the entry
// point. See RunFrom.
func (a *Analyzer) Run() error {
	return a.RunFrom(a.factory.Top())
}

// RunFrom performs the full analysis: Phase 0's no-edges short circuit
// when the call graph is call-free, otherwise the bottom-up summary phase
// followed by the top-down context propagation phase. init is the entry
// state of the distinguished root (the first function in forward
// topological order); every other function's entry state comes from the
// call-context table instead.
func (a *Analyzer) RunFrom(init domain.Domain) error {
	if totalEdges(a.graph) == 0 {
		return a.runNoEdges(init)
	}
	cond := sccgraph.Condense(a.graph)
	a.runBottomUp(cond)
	a.runTopDown(cond, init)
	return nil
}

// runNoEdges is Phase 0: with no call edges anywhere in the program there
// is no context to propagate, so the driver just runs the intra-procedural
// analyzer directly on the function(s) the caller cares about, each seeded
// with the caller-supplied initial value.
func (a *Analyzer) runNoEdges(init domain.Domain) error {
	a.logger.Infof(diag.ScopeInter, "call graph has no edges, skipping SCC phases")
	targets := a.graph.Nodes()
	if !a.opts.AnalyzeAllOnNoEdges {
		entry, ok := a.graph.Lookup(a.opts.EntryPoint)
		if !ok {
			a.logger.Warnf(diag.ScopeInter, "entry point %q not found; nothing to analyze", a.opts.EntryPoint)
			return nil
		}
		targets = []*ir.CFG{entry}
	}
	t := &transform.Unresolved{Base: transform.Basic{}, Resolver: a.resolver}
	for _, cfg := range targets {
		a.analyzeOne(cfg, t, init)
	}
	return nil
}

// runBottomUp is Phase 1: every SCC, leaves first, gets one member at a
// time run through the BottomUp transformer, and once every member is done
// each restricted postcondition is installed as that function's summary. A call to a peer in
// the same (necessarily still-unsummarized) SCC falls back to
// transform.CallResolver's conservative default, which is what makes
// recursion sound without any special-casing here. The entry point is
// skipped outright: nothing calls it, so its summary would never be
// consulted.
func (a *Analyzer) runBottomUp(cond *sccgraph.Condensation) {
	bu := transform.NewBottomUp(a.graph, a.summaries, a.varFactory)
	bu.Resolver = a.resolver
	for _, comp := range cond.ReverseOrder() {
		var decls []*ir.FuncDecl
		var restricted []domain.Domain
		for _, cfg := range comp.Members {
			if cfg.Decl.Name == a.opts.EntryPoint {
				continue
			}
			seed := a.factory.Entry(cfg.Decl)
			res := a.analyzeOne(cfg, bu, seed)
			if !cfg.HasExit() {
				a.logger.Infof(diag.ScopeBottomUp, "%s has no reachable return, contributing no summary", cfg.Decl.Name)
				continue
			}
			post := exitState(res, cfg)
			decls = append(decls, cfg.Decl)
			restricted = append(restricted, post.Project(cfg.Decl.Formals()))
			a.stats.Inc(diag.CounterDomainProject)
		}
		for i, decl := range decls {
			a.summaries.Insert(decl, restricted[i])
		}
	}
}

// runTopDown is Phase 2: every SCC, roots first, gets its accumulated
// calling context (seeded with Top for anything with no caller reached so
// far, including every recursive SCC's own members, the soundness
// fallback recursion requires) run through the TopDown transformer,
// which both records the final per-block invariants and joins each call
// site's contribution onto its callee's context for when the driver gets
// there.
func (a *Analyzer) runTopDown(cond *sccgraph.Condensation, init domain.Domain) {
	var root *ir.CFG
	if len(cond.Order) > 0 && len(cond.Order[0].Members) > 0 {
		root = cond.Order[0].Members[0]
	}
	for _, cfg := range a.graph.Nodes() {
		if cfg != root && len(a.callers(cfg)) == 0 {
			a.callCtx.Join(cfg.Decl, a.factory.Top())
		}
	}

	td := transform.NewTopDown(a.graph, a.summaries, a.callCtx, a.varFactory)
	td.Resolver = a.resolver

	for _, comp := range cond.Order {
		if comp.Recursive {
			for _, cfg := range comp.Members {
				a.callCtx.Join(cfg.Decl, a.factory.Top())
			}
		}
		for _, cfg := range comp.Members {
			var ctx domain.Domain
			if cfg == root {
				ctx = init
			} else if stored, ok := a.callCtx.Get(cfg.Decl); ok {
				ctx = stored
			} else {
				a.logger.Warnf(diag.ScopeTopDown, "%s is unreachable from %s; analyzing with Top", cfg.Decl.Name, a.opts.EntryPoint)
				ctx = a.factory.Top()
			}
			a.analyzeOne(cfg, td, ctx)
		}
	}
}

// exitState joins the post-states of every returning block: a function
// may return from several blocks, and a summary built from only one of
// them would under-approximate the others.
func exitState(res *intra.Result, cfg *ir.CFG) domain.Domain {
	var post domain.Domain
	for _, exit := range cfg.Exits() {
		p := res.PostAt(exit)
		if post == nil {
			post = p
		} else {
			post = post.Join(p)
		}
	}
	return post
}

func (a *Analyzer) analyzeOne(cfg *ir.CFG, t transform.StmtTransformer, seed domain.Domain) *intra.Result {
	it := intra.New(cfg, t, a.liveness, a.varFactory, a.factory, a.opts.Intra)
	res := it.Analyze(seed)
	a.results[cfg] = res
	a.preSeed[cfg] = seed
	return res
}

// callers returns every CFG in the program with a direct call edge to cfg.
func (a *Analyzer) callers(cfg *ir.CFG) []*ir.CFG {
	var out []*ir.CFG
	for _, n := range a.graph.Nodes() {
		for _, callee := range a.graph.Successors(n) {
			if callee == cfg {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func totalEdges(g *ir.CallGraph) int {
	n := 0
	for _, node := range g.Nodes() {
		n += len(g.Successors(node))
	}
	return n
}

// GetPre returns the abstract value reaching the head of block within cfg,
// and ok=false if cfg was never analyzed (Run has not been called, cfg is
// absent from the call graph, or Phase 0 left it out because it is not the
// entry point) or block has no recorded value. The query never fails: on
// a miss it still returns Factory.Top().
func (a *Analyzer) GetPre(cfg *ir.CFG, block *ir.BasicBlock) (domain.Domain, bool) {
	res, ok := a.results[cfg]
	if !ok {
		return a.factory.Top(), false
	}
	if v := res.PreAt(block); v != nil {
		return v, true
	}
	return a.factory.Top(), false
}

// GetPost returns the abstract value leaving block within cfg. See GetPre.
func (a *Analyzer) GetPost(cfg *ir.CFG, block *ir.BasicBlock) (domain.Domain, bool) {
	res, ok := a.results[cfg]
	if !ok {
		return a.factory.Top(), false
	}
	if v := res.PostAt(block); v != nil {
		return v, true
	}
	return a.factory.Top(), false
}

// EntryContext returns the seed value cfg was last analyzed from: the
// caller-supplied init for Phase 0's targets and for the top-down root,
// and its accumulated calling context for every other function in the
// top-down phase.
func (a *Analyzer) EntryContext(cfg *ir.CFG) (domain.Domain, bool) {
	v, ok := a.preSeed[cfg]
	return v, ok
}

// HasSummary reports whether decl has a synthesized summary.
func (a *Analyzer) HasSummary(decl *ir.FuncDecl) bool {
	return a.summaries.Has(decl)
}

// GetCallGraph returns the call graph this analyzer was constructed over.
func (a *Analyzer) GetCallGraph() *ir.CallGraph { return a.graph }

// GetAbsTransformer returns a statement-level transformer seeded with inv,
// for an external checker that wants to step individual statements (e.g.
// ones the driver never visited, or a hypothetical continuation) against
// the engine's finished summaries without re-running a fixpoint. It shares
// the bottom-up transformer's call-site semantics (apply the callee's
// summary, havoc on an unresolved callee) but never writes to the
// call-context table, since a one-off query is not a real call site the
// top-down phase needs to account for.
func (a *Analyzer) GetAbsTransformer(inv domain.Domain) *AbsTransformer {
	bu := transform.NewBottomUp(a.graph, a.summaries, a.varFactory)
	bu.Resolver = a.resolver
	return &AbsTransformer{state: inv, t: bu}
}

// AbsTransformer is a mutable cursor over an abstract value, advanced one
// statement at a time by Step. See Analyzer.GetAbsTransformer.
type AbsTransformer struct {
	state domain.Domain
	t     transform.StmtTransformer
}

// Step applies stmt's effect and returns the resulting value.
func (t *AbsTransformer) Step(stmt ir.Statement) domain.Domain {
	t.state = t.t.Transform(t.state, stmt)
	return t.state
}

// Value returns the abstract value at the transformer's current position.
func (t *AbsTransformer) Value() domain.Domain { return t.state }

// GetSummary returns decl's summary, or Factory.Top() with ok=false and a
// logged warning if none was synthesized; a miss is never a nil result.
func (a *Analyzer) GetSummary(decl *ir.FuncDecl) (domain.Domain, bool) {
	sum, ok := a.summaries.Get(decl)
	if !ok {
		a.stats.Inc(diag.CounterSummaryMiss)
		a.logger.Warnf(diag.ScopeInter, "no summary for %q", decl.Name)
		return a.factory.Top(), false
	}
	a.stats.Inc(diag.CounterSummaryHit)
	return sum, true
}
