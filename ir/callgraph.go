package ir

import "github.com/pkg/errors"

// CallGraph is the set of CFGs making up a program together with the call
// edges between them. Edges are directed caller -> callee; a
// self-edge or a cycle through several nodes marks a recursive SCC, which
// the condensation step is responsible for detecting.
type CallGraph struct {
	nodes  []*CFG
	edges  map[*CFG][]*CFG
	byName map[string]*CFG
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		edges:  make(map[*CFG][]*CFG),
		byName: make(map[string]*CFG),
	}
}

// AddNode registers cfg as belonging to the program. Adding the same
// function name twice is a contract violation: the driver relies on names
// being unique keys into byName.
func (g *CallGraph) AddNode(cfg *CFG) error {
	if cfg == nil || cfg.Decl == nil {
		return errors.Wrap(newContractError(ErrorMissingFuncDecl, "AddNode requires a CFG with a FuncDecl"), "ir.CallGraph.AddNode")
	}
	name := cfg.Decl.Name
	if _, exists := g.byName[name]; exists {
		return errors.Wrap(newContractError(ErrorDuplicateCFGNode, "function %q already registered", name), "ir.CallGraph.AddNode")
	}
	g.nodes = append(g.nodes, cfg)
	g.byName[name] = cfg
	return nil
}

// AddEdge records a call from caller to callee. Both must already be
// registered via AddNode.
func (g *CallGraph) AddEdge(caller, callee *CFG) {
	g.edges[caller] = append(g.edges[caller], callee)
}

// Nodes returns every CFG in the program, in registration order.
func (g *CallGraph) Nodes() []*CFG { return g.nodes }

// Successors returns the callees reachable from n by a direct call edge.
func (g *CallGraph) Successors(n *CFG) []*CFG { return g.edges[n] }

// Lookup resolves a call site's callee name to its CFG. A CallStmt whose
// Callee does not resolve is an external/unknown call, which the bottom-up
// and top-down transformers must treat conservatively rather
// than as a contract violation, so Lookup reports absence through ok rather
// than an error.
func (g *CallGraph) Lookup(name string) (*CFG, bool) {
	cfg, ok := g.byName[name]
	return cfg, ok
}
