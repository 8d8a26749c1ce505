// Package sccgraph condenses a call graph into its strongly connected
// components and orders them topologically, so the inter-procedural
// driver can visit every function exactly twice: once per SCC in reverse
// topological order (bottom-up) and once per SCC in forward topological
// order (top-down). An SCC with more than one member, or a
// single member with a self-edge, is flagged Recursive: the driver treats
// recursion as a soundness fallback (inject top) rather than attempting to
// analyze it precisely.
package sccgraph

import "interfwd/ir"

// Component is one strongly connected component of the call graph.
type Component struct {
	Members   []*ir.CFG
	Recursive bool
}

// Condensation is a call graph's SCCs in forward topological order:
// Order[0] contains a root (called by no one reached so far) and each
// component only calls components that appear later in Order, down to
// Order[len(Order)-1] which contains the leaves. This is the order the
// top-down phase needs.
type Condensation struct {
	Order []*Component
}

// ReverseOrder returns components from leaves to roots, the order the
// bottom-up summary phase needs: every callee synthesized before its
// caller is visited.
func (c *Condensation) ReverseOrder() []*Component {
	out := make([]*Component, len(c.Order))
	for i, comp := range c.Order {
		out[len(c.Order)-1-i] = comp
	}
	return out
}

// tarjanState is the per-node bookkeeping Condense needs during its single
// depth-first traversal.
type tarjanState struct {
	graph   *ir.CallGraph
	index   map[*ir.CFG]int
	low     map[*ir.CFG]int
	onStack map[*ir.CFG]bool
	stack   []*ir.CFG
	next    int
	comps   [][]*ir.CFG
}

// Condense computes the SCC condensation of graph using Tarjan's
// algorithm, then topologically sorts the resulting components.
func Condense(graph *ir.CallGraph) *Condensation {
	st := &tarjanState{
		graph:   graph,
		index:   make(map[*ir.CFG]int),
		low:     make(map[*ir.CFG]int),
		onStack: make(map[*ir.CFG]bool),
	}
	for _, n := range graph.Nodes() {
		if _, visited := st.index[n]; !visited {
			st.strongConnect(n)
		}
	}

	compOf := make(map[*ir.CFG]int, len(graph.Nodes()))
	components := make([]*Component, len(st.comps))
	for i, members := range st.comps {
		recursive := len(members) > 1
		if len(members) == 1 {
			for _, callee := range graph.Successors(members[0]) {
				if callee == members[0] {
					recursive = true
				}
			}
		}
		components[i] = &Component{Members: members, Recursive: recursive}
		for _, m := range members {
			compOf[m] = i
		}
	}

	return &Condensation{Order: topoSort(graph, components, compOf)}
}

// strongConnect is Tarjan's SCC algorithm as a recursive depth-first
// search that appends each completed component to st.comps (components are produced in reverse
// topological order by construction, which topoSort below re-derives
// explicitly rather than relying on).
func (st *tarjanState) strongConnect(v *ir.CFG) {
	st.index[v] = st.next
	st.low[v] = st.next
	st.next++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range st.graph.Successors(v) {
		if _, visited := st.index[w]; !visited {
			st.strongConnect(w)
			st.low[v] = minInt(st.low[v], st.low[w])
		} else if st.onStack[w] {
			st.low[v] = minInt(st.low[v], st.index[w])
		}
	}

	if st.low[v] == st.index[v] {
		var members []*ir.CFG
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		st.comps = append(st.comps, members)
	}
}

// topoSort orders components so that every edge in the condensed graph
// points from a lower index to a higher one (callers before callees),
// matching the driver's bottom-up traversal order once reversed.
func topoSort(graph *ir.CallGraph, components []*Component, compOf map[*ir.CFG]int) []*Component {
	n := len(components)
	adj := make([][]int, n)
	indeg := make([]int, n)
	seenEdge := make(map[[2]int]bool)
	for i, comp := range components {
		for _, m := range comp.Members {
			for _, callee := range graph.Successors(m) {
				j := compOf[callee]
				if j == i {
					continue
				}
				edge := [2]int{i, j}
				if seenEdge[edge] {
					continue
				}
				seenEdge[edge] = true
				adj[i] = append(adj[i], j)
				indeg[j]++
			}
		}
	}

	var queue []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]*Component, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, components[i])
		for _, j := range adj[i] {
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	return order
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
