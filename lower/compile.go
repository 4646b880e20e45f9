package lower

import (
	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/ram"
	"github.com/rhizomedb/rhizome/value"
)

// compiler threads the growing variable-to-term binding map and pending
// "when" formulas through one rewrite's emission (spec.md §4.4: "Negation
// → append ... formulas to the current when", "VarPredicate → append ...
// to the current operation's when list").
type compiler struct {
	varTerms map[id.VarId]ram.Term
	pending  []ram.Formula
	ag       *id.AliasGen
}

// resolve converts a ColVal to a ram.Term and reports whether it already
// referred to a bound variable (a constraint) as opposed to introducing a
// fresh one.
func (c *compiler) resolve(cv ast.ColVal) (ram.Term, bool) {
	switch v := cv.(type) {
	case ast.Lit:
		return ram.Lit{Val: v.Val}, true
	case ast.VarRef:
		if t, ok := c.varTerms[v.Var.Id]; ok {
			return t, true
		}
		return nil, false
	}
	return nil, false
}

func (c *compiler) emitSearch(rp ast.RelPredicate, version ram.Version) ram.Search {
	alias := c.ag.Next()
	key := ram.RelationKey{Rel: rp.Rel.Relation, Src: rp.Rel.Src, Version: version}

	bindings := map[id.ColId]ram.Term{}
	var newlyBound []struct {
		col id.ColId
		v   ast.Var
	}
	for col, cv := range rp.Args {
		if term, isConstraint := c.resolve(cv); isConstraint {
			bindings[col] = term
		} else if vr, ok := cv.(ast.VarRef); ok {
			newlyBound = append(newlyBound, struct {
				col id.ColId
				v   ast.Var
			}{col, vr.Var})
		}
	}

	search := ram.Search{Key: key, Alias: alias, Bindings: bindings, When: c.pending}
	c.pending = nil

	for _, nb := range newlyBound {
		c.varTerms[nb.v.Id] = ram.Col{Rel: rp.Rel.Relation, Alias: alias, Col: nb.col}
	}
	if rp.CidVar != nil {
		c.varTerms[rp.CidVar.Id] = ram.Cid{Rel: rp.Rel.Relation, Alias: alias}
	}
	return search
}

func (c *compiler) addNegation(n ast.Negation) {
	bindings := map[id.ColId]ram.Term{}
	for col, cv := range n.Args {
		term, _ := c.resolve(cv)
		bindings[col] = term
	}
	deltaKey := ram.RelationKey{Rel: n.Rel.Relation, Src: n.Rel.Src, Version: ram.Delta}
	totalKey := ram.RelationKey{Rel: n.Rel.Relation, Src: n.Rel.Src, Version: ram.Total}
	c.pending = append(c.pending,
		ram.NotIn{Key: deltaKey, Bindings: bindings},
		ram.NotIn{Key: totalKey, Bindings: bindings},
	)
}

func (c *compiler) addVarPredicate(p ast.VarPredicate) {
	args := make([]ram.Term, len(p.Args))
	for i, v := range p.Args {
		args[i] = c.varTerms[v.Id]
	}
	c.pending = append(c.pending, ram.Predicate{
		Args: args,
		Name: p.Name,
		Fn: func(resolvedVals []value.Val) (bool, error) {
			resolved := make([]interface{}, len(resolvedVals))
			for i, v := range resolvedVals {
				resolved[i] = v
			}
			return p.Fn(resolved)
		},
	})
}

func (c *compiler) emitAggregation(a ast.Aggregation) ram.Aggregation {
	alias := c.ag.Next()
	src := ram.RelationKey{Rel: a.Rel.Relation, Src: a.Rel.Src, Version: ram.Total}

	groupBy := map[id.ColId]ram.Term{}
	for _, col := range a.GroupBy {
		if cv, ok := a.RelArgs[col]; ok {
			if term, isConstraint := c.resolve(cv); isConstraint {
				groupBy[col] = term
			}
		}
	}

	var args []ram.Term
	for _, v := range a.Vars {
		for col, cv := range a.RelArgs {
			if vr, ok := cv.(ast.VarRef); ok && vr.Var.Id == v.Id {
				args = append(args, ram.Col{Rel: a.Rel.Relation, Alias: alias, Col: col})
			}
		}
	}

	agg := ram.Aggregation{
		Rel:     a.Rel.Relation,
		Alias:   alias,
		Src:     src,
		GroupBy: groupBy,
		Args:    args,
		Agg:     a.Agg,
		Target:  a.Target.Id,
		When:    c.pending,
	}
	c.pending = nil
	c.varTerms[a.Target.Id] = ram.Agg{Rel: a.Rel.Relation, Alias: alias, Var: a.Target.Id}
	return agg
}
