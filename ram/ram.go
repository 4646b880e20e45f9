// Package ram is the relational-algebra intermediate representation
// lowering targets and the VM interprets (spec.md §4.4): versioned
// relation keys, Search/Project/Aggregation operations, Equality/NotIn/
// Predicate formulas, Col/Cid/Lit/Agg terms, and the eight statement
// kinds that drive the semi-naive fixpoint loop.
//
// Grounded on the original's ram/ast.rs (RelationRef/RelationVersion,
// Statement/Operation/Formula/Term enums) with GetLink generalized away —
// this engine surfaces CID-linked fact lookups through Term.Cid and a
// RelPredicate's optional CidVar rather than a dedicated operation, since
// spec.md §4.4 lists exactly Search/Project/Aggregation.
package ram

import (
	"fmt"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Version distinguishes the three slots a relation occupies during
// semi-naive evaluation.
type Version int

const (
	Total Version = iota
	Delta
	New
)

func (v Version) String() string {
	switch v {
	case Total:
		return "total"
	case Delta:
		return "delta"
	case New:
		return "new"
	default:
		return "unknown"
	}
}

// RelationKey names one versioned slot of a relation.
type RelationKey struct {
	Rel     id.RelationId
	Src     ast.Source
	Version Version
}

func (k RelationKey) String() string {
	return fmt.Sprintf("%s[%s]/%s", k.Rel, k.Src, k.Version)
}

// Term is a value an operation resolves against the current Bindings.
type Term interface {
	isTerm()
	String() string
}

// Col resolves to the value bound to (rel, alias, col) in the current
// bindings — the result of an earlier Search over that alias.
type Col struct {
	Rel   id.RelationId
	Alias id.AliasId
	Col   id.ColId
}

func (Col) isTerm() {}
func (c Col) String() string {
	return fmt.Sprintf("%s.%s[%s]", c.Rel, c.Col, c.Alias)
}

// Cid resolves to the content id of the tuple bound to (rel, alias) —
// only meaningful for a Search over an EDB relation.
type Cid struct {
	Rel   id.RelationId
	Alias id.AliasId
}

func (Cid) isTerm() {}
func (c Cid) String() string { return fmt.Sprintf("cid(%s[%s])", c.Rel, c.Alias) }

// Lit is a constant term.
type Lit struct{ Val value.Val }

func (Lit) isTerm()        {}
func (l Lit) String() string { return l.Val.String() }

// Agg resolves to the value an Aggregation operation bound to a target
// variable under (rel, alias, var).
type Agg struct {
	Rel   id.RelationId
	Alias id.AliasId
	Var   id.VarId
}

func (Agg) isTerm() {}
func (a Agg) String() string { return fmt.Sprintf("agg(%s[%s].%s)", a.Rel, a.Alias, a.Var) }

// Formula is a boolean condition an operation's "when" list evaluates
// before proceeding.
type Formula interface {
	isFormula()
	String() string
}

// Equality holds when both terms resolve to equal values.
type Equality struct{ Left, Right Term }

func (Equality) isFormula() {}
func (e Equality) String() string { return fmt.Sprintf("%s = %s", e.Left, e.Right) }

// NotIn holds when no tuple in the keyed relation satisfies bindings —
// the negation-as-failure and head-dedup check (spec.md §4.4).
type NotIn struct {
	Key      RelationKey
	Bindings map[id.ColId]Term
}

func (NotIn) isFormula() {}
func (n NotIn) String() string { return fmt.Sprintf("not_in(%s, %v)", n.Key, n.Bindings) }

// Predicate holds when Fn(args) does, where args are resolved terms —
// the lowered form of a VarPredicate.
type Predicate struct {
	Args []Term
	Fn   func(args []value.Val) (bool, error)
	Name string
}

func (Predicate) isFormula() {}
func (p Predicate) String() string { return fmt.Sprintf("%s(%v)", p.Name, p.Args) }

// Operation is one node of the tree a Statement's Insert drives (spec.md
// §4.4/§4.5).
type Operation interface {
	isOperation()
	String() string
}

// Search iterates every tuple of Key matching Bindings (the already-bound
// equality constraints), extends Bindings per matched tuple, evaluates
// When, and on success recurses into Then.
type Search struct {
	Key      RelationKey
	Alias    id.AliasId
	Bindings map[id.ColId]Term
	When     []Formula
	Then     Operation
}

func (Search) isOperation() {}
func (s Search) String() string { return fmt.Sprintf("search(%s as %s)", s.Key, s.Alias) }

// Project composes a tuple from Mapping and inserts it into Into,
// provided every When formula holds.
type Project struct {
	Mapping map[id.ColId]Term
	When    []Formula
	Into    RelationKey
}

func (Project) isOperation() {}
func (p Project) String() string { return fmt.Sprintf("project -> %s", p.Into) }

// Aggregation reads Src.search(GroupBy bindings) under the Total version,
// threads each matching tuple's Args through Agg, binds Target on a
// successful Finalize, and recurses into Then; a failed (vetoed) Finalize
// skips Then for that group (spec.md §9's resolved Open Question).
type Aggregation struct {
	Rel     id.RelationId
	Alias   id.AliasId
	Src     RelationKey
	GroupBy map[id.ColId]Term
	Args    []Term
	Agg     ast.Aggregate
	Target  id.VarId
	When    []Formula
	Then    Operation
}

func (Aggregation) isOperation() {}
func (a Aggregation) String() string { return fmt.Sprintf("aggregate(%s over %s)", a.Target, a.Src) }

// Statement is one instruction of the lowered program (spec.md §4.5).
type Statement interface {
	isStatement()
	String() string
}

// Sources drains the input queue into each listed EDB relation's Delta.
type Sources struct{ Relations []RelationKey }

func (Sources) isStatement()    {}
func (s Sources) String() string { return "sources" }

// Insert executes Op once. If Ground and the clock is past tick 0, the VM
// skips it — ground facts are inserted exactly once.
type Insert struct {
	Op     Operation
	Ground bool
}

func (Insert) isStatement()    {}
func (i Insert) String() string { return fmt.Sprintf("insert %s", i.Op) }

// Merge unions From into Into in place.
type Merge struct{ From, Into RelationKey }

func (Merge) isStatement()    {}
func (m Merge) String() string { return fmt.Sprintf("merge %s -> %s", m.From, m.Into) }

// Swap exchanges the relation handles bound to Left and Right.
type Swap struct{ Left, Right RelationKey }

func (Swap) isStatement()    {}
func (s Swap) String() string { return fmt.Sprintf("swap %s <-> %s", s.Left, s.Right) }

// Purge replaces the relation at Key with an empty one.
type Purge struct{ Key RelationKey }

func (Purge) isStatement()    {}
func (p Purge) String() string { return fmt.Sprintf("purge %s", p.Key) }

// Loop executes Body repeatedly until an Exit inside it fires.
type Loop struct{ Body []Statement }

func (Loop) isStatement()    {}
func (l Loop) String() string { return fmt.Sprintf("loop(%d stmts)", len(l.Body)) }

// Exit marks the enclosing Loop complete once every listed relation is
// empty.
type Exit struct{ Keys []RelationKey }

func (Exit) isStatement()    {}
func (e Exit) String() string { return fmt.Sprintf("exit %v", e.Keys) }

// Sinks pushes every tuple currently in each listed relation (a Delta, or
// inside a fixpoint loop a New) to the VM's output queue, tagged by
// relation id.
type Sinks struct{ Relations []RelationKey }

func (Sinks) isStatement()    {}
func (s Sinks) String() string { return "sinks" }

// Program is the full lowered statement list plus the input/output
// relation sets the reactor needs to wire streams and sinks.
type Program struct {
	Inputs     []id.RelationId
	Outputs    []id.RelationId
	Statements []Statement
}
