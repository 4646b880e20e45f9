package ast

import (
	"fmt"
	"strings"

	"github.com/rhizomedb/rhizome/id"
)

// Rule is (head relation, head bindings, body) — a clause whose head is
// derived from its body rather than asserted directly (spec.md §3).
type Rule struct {
	Head     id.RelationId
	HeadDecl *Declaration
	HeadArgs map[id.ColId]ColVal
	Body     []BodyTerm
}

func (Rule) isClause() {}

// HeadVars returns the variables bound in the head, in column order.
func (r *Rule) HeadVars() []Var {
	var vars []Var
	for _, col := range sortedCols(r.HeadArgs) {
		if vr, ok := r.HeadArgs[col].(VarRef); ok {
			vars = append(vars, vr.Var)
		}
	}
	return vars
}

// BodyVars returns every variable mentioned anywhere in the body,
// duplicates included, in body order then per-term order.
func (r *Rule) BodyVars() []Var {
	var vars []Var
	for _, t := range r.Body {
		vars = append(vars, t.Vars()...)
	}
	return vars
}

// Dependencies returns the distinct relations the body refers to, each
// tagged with whether the reference is negative (used by package stratify
// to build the rule-to-relation dependency graph, spec.md §4.3).
func (r *Rule) Dependencies() []Dependency {
	seen := make(map[dependencyKey]bool)
	var deps []Dependency
	for _, t := range r.Body {
		switch term := t.(type) {
		case RelPredicate:
			addDep(&deps, seen, term.Rel.Relation, false)
		case Negation:
			addDep(&deps, seen, term.Rel.Relation, true)
		case Aggregation:
			// Aggregation is treated as a negative dependency (same as
			// Negation): a stratum cannot recursively aggregate over
			// itself, since the aggregate would need to see its own
			// still-growing result (original source logic/stratify.rs).
			addDep(&deps, seen, term.Rel.Relation, true)
		}
	}
	return deps
}

type dependencyKey struct {
	rel      id.RelationId
	negative bool
}

// Dependency is one edge from a rule's head to a relation its body reads.
type Dependency struct {
	Rel      id.RelationId
	Negative bool
}

func addDep(deps *[]Dependency, seen map[dependencyKey]bool, rel id.RelationId, negative bool) {
	key := dependencyKey{rel, negative}
	if seen[key] {
		return
	}
	seen[key] = true
	*deps = append(*deps, Dependency{Rel: rel, Negative: negative})
}

func (r *Rule) String() string {
	body := make([]string, len(r.Body))
	for i, t := range r.Body {
		body[i] = t.String()
	}
	return fmt.Sprintf("%s(%s) :- %s", r.Head, argsString(r.HeadArgs), strings.Join(body, ", "))
}
