package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rhizomedb/rhizome/id"
)

// BodyTerm is one term of a rule body: a relational predicate, a negation,
// a user predicate, or an aggregation (spec.md §3).
type BodyTerm interface {
	isBodyTerm()
	// Vars returns every variable this term mentions, in declaration
	// order, used by the validator (range-restriction,
	// domain-independence) and by the lowering term-orderer.
	Vars() []Var
	String() string
}

// RelPredicate is an atom over a relation appearing positively in a rule
// body. If CidVar is non-nil, the relation must be EDB (content-addressed
// IDB is rejected by validate).
type RelPredicate struct {
	Rel    *Declaration
	CidVar *Var
	Args   map[id.ColId]ColVal
}

func (RelPredicate) isBodyTerm() {}

func (p RelPredicate) Vars() []Var {
	var vars []Var
	if p.CidVar != nil {
		vars = append(vars, *p.CidVar)
	}
	for _, col := range sortedCols(p.Args) {
		if vr, ok := p.Args[col].(VarRef); ok {
			vars = append(vars, vr.Var)
		}
	}
	return vars
}

func (p RelPredicate) String() string {
	return fmt.Sprintf("%s(%s)", p.Rel.Relation, argsString(p.Args))
}

// Negation has the same shape as RelPredicate but means "absent from the
// total relation."
type Negation struct {
	Rel  *Declaration
	Args map[id.ColId]ColVal
}

func (Negation) isBodyTerm() {}

func (n Negation) Vars() []Var {
	var vars []Var
	for _, col := range sortedCols(n.Args) {
		if vr, ok := n.Args[col].(VarRef); ok {
			vars = append(vars, vr.Var)
		}
	}
	return vars
}

func (n Negation) String() string {
	return fmt.Sprintf("!%s(%s)", n.Rel.Relation, argsString(n.Args))
}

// PredicateFunc is a boolean function over a list of rule variables. It is
// not the type of VarPredicate.Fn, which receives the variables' resolved
// values instead.
type PredicateFunc func(args []Var) (bool, error)

// VarPredicate is a set of bound variables plus an opaque boolean function
// over their resolved values. An implementer may use vtable-style
// polymorphism or a tagged enum of builtins (spec.md §9); this engine uses
// a plain function value, Go's idiomatic equivalent of vtable dispatch for
// a single-method interface.
type VarPredicate struct {
	Name string
	Args []Var
	Fn   func(resolved []interface{}) (bool, error)
}

func (VarPredicate) isBodyTerm() {}

func (p VarPredicate) Vars() []Var { return p.Args }

func (p VarPredicate) String() string {
	names := make([]string, len(p.Args))
	for i, v := range p.Args {
		names[i] = v.Id.String()
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(names, ", "))
}

// Aggregate exposes init/step/finalize over a single accumulator value
// (spec.md §3). finalize may veto emission by returning ok=false — this
// engine follows the "aggregation" semantics of spec.md §9's Open Question,
// not the alternate "reduce" semantics that always emits using init.
type Aggregate interface {
	Init() interface{}
	Step(acc interface{}, args []interface{}) interface{}
	Finalize(acc interface{}) (interface{}, bool)
}

// Aggregation computes a target variable from a source relation, grouped
// by a subset of its columns.
type Aggregation struct {
	Target     Var
	Vars       []Var // aggregated argument variables, resolved from Rel
	Rel        *Declaration
	GroupBy    []id.ColId
	RelArgs    map[id.ColId]ColVal // how GroupBy/Vars map onto Rel's columns
	Agg        Aggregate
	Name       string
}

func (Aggregation) isBodyTerm() {}

func (a Aggregation) Vars() []Var {
	vars := append([]Var{a.Target}, a.Vars...)
	return vars
}

func (a Aggregation) String() string {
	return fmt.Sprintf("%s = reduce(%s over %s)", a.Target.Id, a.Name, a.Rel.Relation)
}

func sortedCols(args map[id.ColId]ColVal) []id.ColId {
	cols := make([]id.ColId, 0, len(args))
	for c := range args {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

func argsString(args map[id.ColId]ColVal) string {
	cols := sortedCols(args)
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s: %s", c, args[c])
	}
	return strings.Join(parts, ", ")
}
