// Package stratify partitions a Program's rules into strata: groups of
// mutually (positively) recursive relations that must be evaluated
// together, ordered so that every relation a stratum depends on negatively
// or through aggregation has already reached its fixed point (spec.md
// §4.3).
//
// Grounded on the original implementation's logic/stratify.rs, which
// builds a dependency graph over (EDB|IDB, RelationId) nodes, computes its
// strongly connected components with Kosaraju's algorithm (petgraph), and
// rejects any component containing a negative or aggregation edge between
// two of its own members. The dependency pack kept for this engine carries
// no graph library (pilosa and the hashicorp gossip stack were dropped as
// unrelated to a single-process Datalog engine), so the
// SCC step is a from-scratch Tarjan implementation rather than a ported
// Kosaraju; both compute the same partition.
package stratify

import (
	"sort"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/errs"
	"github.com/rhizomedb/rhizome/id"
)

// Node identifies one relation in the dependency graph, tagged with its
// storage class: EDB nodes are always sources (they never depend on
// anything, so they have no incoming edges) but still participate so a rule can depend on one directly.
type Node struct {
	Src ast.Source
	Rel id.RelationId
}

// Stratum is one group of relations to evaluate together, in the order
// returned by Stratify (earlier strata must finish before later ones
// begin).
type Stratum struct {
	Relations []id.RelationId
	Rules     []*ast.Rule
	Recursive bool
}

type edge struct {
	to       Node
	negative bool
}

// Stratify computes the evaluation order for prog's rules, or an
// errs.ProgramUnstratifiable error if no stratification exists.
func Stratify(prog *ast.Program) ([]Stratum, error) {
	g := newGraph()
	rulesByHead := map[id.RelationId][]*ast.Rule{}

	for _, r := range prog.Rules() {
		head := Node{Src: ast.IDB, Rel: r.Head}
		g.addNode(head)
		rulesByHead[r.Head] = append(rulesByHead[r.Head], r)

		for _, dep := range r.Dependencies() {
			decl := prog.Decls[dep.Rel]
			from := Node{Src: decl.Src, Rel: dep.Rel}
			g.addNode(from)
			g.addEdge(from, head, dep.Negative)
		}
	}

	sccs := g.tarjanSCCs()

	// Tarjan (like Kosaraju) finalizes a component only after every node
	// it can reach. Edges run from a dependency to its dependent, so a
	// dependent's component is emitted before its dependency's. Reversing
	// yields evaluation order: dependencies first.
	for i, j := 0, len(sccs)-1; i < j; i, j = i+1, j-1 {
		sccs[i], sccs[j] = sccs[j], sccs[i]
	}

	strata := make([]Stratum, 0, len(sccs))
	for _, scc := range sccs {
		sccSet := make(map[Node]bool, len(scc))
		for _, n := range scc {
			sccSet[n] = true
		}

		recursive := len(scc) > 1
		for _, n := range scc {
			for _, e := range g.edges[n] {
				if !sccSet[e.to] {
					continue
				}
				if e.negative {
					return nil, errs.ProgramUnstratifiable.New(e.to.Rel)
				}
				if e.to == n {
					recursive = true
				}
			}
		}

		var relations []id.RelationId
		var rules []*ast.Rule
		for _, n := range scc {
			if n.Src != ast.IDB {
				continue
			}
			relations = append(relations, n.Rel)
			rules = append(rules, rulesByHead[n.Rel]...)
		}
		if len(relations) == 0 {
			// Pure-EDB component: nothing to evaluate, but still a valid
			// (trivial) point in the order.
			continue
		}

		sort.Slice(relations, func(i, j int) bool { return relations[i] < relations[j] })
		strata = append(strata, Stratum{Relations: relations, Rules: rules, Recursive: recursive})
	}

	return strata, nil
}

type graph struct {
	nodes []Node
	index map[Node]int
	edges map[Node][]edge
}

func newGraph() *graph {
	return &graph{index: map[Node]int{}, edges: map[Node][]edge{}}
}

func (g *graph) addNode(n Node) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

func (g *graph) addEdge(from, to Node, negative bool) {
	g.edges[from] = append(g.edges[from], edge{to: to, negative: negative})
}

// tarjanSCCs returns every strongly connected component of g, each
// component finalized (and appended) only after the DFS has fully
// explored every node reachable from it.
func (g *graph) tarjanSCCs() [][]Node {
	var (
		counter int
		stack   []Node
		onStack = map[Node]bool{}
		indices = map[Node]int{}
		lowlink = map[Node]int{}
		result  [][]Node
	)

	var visit func(v Node)
	visit = func(v Node) {
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.edges[v] {
			w := e.to
			if _, seen := indices[w]; !seen {
				visit(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []Node
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for _, n := range g.nodes {
		if _, seen := indices[n]; !seen {
			visit(n)
		}
	}

	return result
}
