package lower

import (
	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/ram"
)

// lowerRule expands r into its semi-naive rewrites and compiles each into
// an Insert statement writing to output (spec.md §4.4).
//
// A "self" RelPredicate — one over a relation in relSet, i.e. a relation
// this same stratum defines — is eligible to search either Delta or
// Total; every other RelPredicate always searches Total, since an
// earlier, already-converged stratum's output (and this tick's EDB input)
// has already been merged into Total by the time this stratum runs. A rule with k self RelPredicates produces 2^k-1 rewrites,
// skipping the all-Total combination (already covered by the previous
// round, or — when k is 0 — run exactly once at Total since there is no
// previous round to have covered it).
func lowerRule(r *ast.Rule, relSet map[id.RelationId]bool, output ram.Version, ag *id.AliasGen) []ram.Statement {
	selfIdx := make([]int, 0)
	for i, t := range r.Body {
		if rp, ok := t.(ast.RelPredicate); ok && relSet[rp.Rel.Relation] {
			selfIdx = append(selfIdx, i)
		}
	}
	k := len(selfIdx)

	var stmts []ram.Statement
	combos := 1
	if k > 0 {
		combos = (1 << uint(k)) - 1
	}
	for i := 1; i <= combos; i++ {
		versions := make([]ram.Version, len(r.Body))
		for j := range versions {
			versions[j] = ram.Total
		}
		for bit, bodyIdx := range selfIdx {
			if i&(1<<uint(bit)) != 0 {
				versions[bodyIdx] = ram.Delta
			}
		}
		stmts = append(stmts, compileRewrite(r, versions, output, ag))
	}
	return stmts
}

type indexedTerm struct {
	term    ast.BodyTerm
	version ram.Version // meaningful only when term is a RelPredicate
}

// compileRewrite builds one Insert statement for one delta/total
// assignment of r's self RelPredicates.
func compileRewrite(r *ast.Rule, versions []ram.Version, output ram.Version, ag *id.AliasGen) ram.Statement {
	terms := make([]indexedTerm, len(r.Body))
	for i, t := range r.Body {
		terms[i] = indexedTerm{term: t, version: versions[i]}
	}
	ordered := orderTerms(terms)

	c := &compiler{varTerms: map[id.VarId]ram.Term{}, ag: ag}
	var layers []ram.Operation
	for _, it := range ordered {
		switch t := it.term.(type) {
		case ast.RelPredicate:
			layers = append(layers, c.emitSearch(t, it.version))
		case ast.Negation:
			c.addNegation(t)
		case ast.VarPredicate:
			c.addVarPredicate(t)
		case ast.Aggregation:
			layers = append(layers, c.emitAggregation(t))
		}
	}

	mapping := make(map[id.ColId]ram.Term, len(r.HeadArgs))
	var headCols []id.ColId
	for col, cv := range r.HeadArgs {
		term, _ := c.resolve(cv)
		mapping[col] = term
		headCols = append(headCols, col)
	}
	headKey := ram.RelationKey{Rel: r.Head, Src: ast.IDB, Version: output}
	dedup := ram.NotIn{
		Key:      ram.RelationKey{Rel: r.Head, Src: ast.IDB, Version: ram.Total},
		Bindings: mapping,
	}
	project := ram.Operation(ram.Project{
		Mapping: mapping,
		When:    append(c.pending, dedup),
		Into:    headKey,
	})

	op := project
	for i := len(layers) - 1; i >= 0; i-- {
		op = attachThen(layers[i], op)
	}

	return ram.Insert{Op: op, Ground: false}
}

func attachThen(op ram.Operation, then ram.Operation) ram.Operation {
	switch o := op.(type) {
	case ram.Search:
		o.Then = then
		return o
	case ram.Aggregation:
		o.Then = then
		return o
	default:
		return op
	}
}

// orderTerms greedily orders body terms to maximize already-bound
// variables at each step, per the priority Negation > VarPredicate >
// RelPredicate(Delta) > RelPredicate(Total) > Aggregation (spec.md §4.4).
func orderTerms(terms []indexedTerm) []indexedTerm {
	remaining := append([]indexedTerm(nil), terms...)
	bound := map[id.VarId]bool{}
	ordered := make([]indexedTerm, 0, len(terms))

	for len(remaining) > 0 {
		bestIdx, bestClass, bestCount := -1, 99, -1
		for i, it := range remaining {
			class, ready, count := classify(it, bound)
			if !ready {
				continue
			}
			if class < bestClass || (class == bestClass && count > bestCount) {
				bestIdx, bestClass, bestCount = i, class, count
			}
		}
		if bestIdx == -1 {
			bestIdx = 0
		}
		picked := remaining[bestIdx]
		ordered = append(ordered, picked)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		for _, v := range picked.term.Vars() {
			bound[v.Id] = true
		}
	}
	return ordered
}

func classify(it indexedTerm, bound map[id.VarId]bool) (class int, ready bool, boundCount int) {
	switch t := it.term.(type) {
	case ast.Negation:
		ok, n := allBound(t.Vars(), bound)
		return 0, ok, n
	case ast.VarPredicate:
		ok, n := allBound(t.Vars(), bound)
		return 1, ok, n
	case ast.RelPredicate:
		n := countBound(t.Vars(), bound)
		if it.version == ram.Delta {
			return 2, true, n
		}
		return 3, true, n
	case ast.Aggregation:
		n := countBound(t.Vars(), bound)
		return 4, true, n
	}
	return 99, false, 0
}

func allBound(vars []ast.Var, bound map[id.VarId]bool) (bool, int) {
	n := 0
	for _, v := range vars {
		if !bound[v.Id] {
			return false, n
		}
		n++
	}
	return true, n
}

func countBound(vars []ast.Var, bound map[id.VarId]bool) int {
	n := 0
	for _, v := range vars {
		if bound[v.Id] {
			n++
		}
	}
	return n
}
