package ast

import (
	"fmt"

	"github.com/rhizomedb/rhizome/errs"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Clause is either a Fact or a Rule (spec.md §3).
type Clause interface {
	isClause()
}

// Fact is a ground assertion of a relation's columns. Package validate
// rejects a fact over an EDB relation.
type Fact struct {
	Rel  id.RelationId
	Decl *Declaration
	Cols map[id.ColId]value.Val
}

func (Fact) isClause() {}

func (f Fact) String() string {
	cols := sortedCols(colValMap(f.Cols))
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s: %s", c, f.Cols[c])
	}
	return fmt.Sprintf("%s(%s)", f.Rel, parts)
}

func colValMap(cols map[id.ColId]value.Val) map[id.ColId]ColVal {
	m := make(map[id.ColId]ColVal, len(cols))
	for c, v := range cols {
		m[c] = Lit{Val: v}
	}
	return m
}

// Program is a set of relation declarations plus the clauses (facts and
// rules) written against them. NewProgram performs only the structural
// assembly described in spec.md §3 — duplicate declarations, facts and
// rule heads referring to undeclared relations, and rules with an EDB
// head are rejected here; rule bodies are not checked here; typing,
// range-restriction and domain-independence are checked by package
// validate, and stratifiability by package stratify.
type Program struct {
	Decls   map[id.RelationId]*Declaration
	Clauses []Clause
}

// NewProgram assembles decls and clauses into a Program, rejecting
// duplicate relation declarations, facts over undeclared relations or
// naming columns outside their relation's schema, and rules whose head is
// undeclared or EDB. A Fact holds only values, so it is always ground.
func NewProgram(decls []*Declaration, clauses []Clause) (*Program, error) {
	byRel := make(map[id.RelationId]*Declaration, len(decls))
	for _, d := range decls {
		if _, ok := byRel[d.Relation]; ok {
			return nil, errs.ConflictingRelationDeclaration.New(d.Relation)
		}
		byRel[d.Relation] = d
	}

	for _, c := range clauses {
		switch cl := c.(type) {
		case Fact:
			decl, ok := byRel[cl.Rel]
			if !ok {
				return nil, errs.UnrecognizedRelation.New(cl.Rel)
			}
			for col := range cl.Cols {
				if !decl.HasCol(col) {
					return nil, errs.UnrecognizedColumnBinding.New(col, cl.Rel)
				}
			}
		case Rule:
			if cl.HeadDecl.Src == EDB {
				return nil, errs.ClauseHeadEDB.New(cl.Head)
			}
			if _, ok := byRel[cl.Head]; !ok {
				return nil, errs.UnrecognizedRelation.New(cl.Head)
			}
		}
	}

	return &Program{Decls: byRel, Clauses: clauses}, nil
}

// Rules returns every Rule clause in the program, in declaration order.
func (p *Program) Rules() []*Rule {
	var rules []*Rule
	for i := range p.Clauses {
		if r, ok := p.Clauses[i].(Rule); ok {
			rules = append(rules, &r)
		}
	}
	return rules
}

// Facts returns every Fact clause in the program, in declaration order.
func (p *Program) Facts() []Fact {
	var facts []Fact
	for _, c := range p.Clauses {
		if f, ok := c.(Fact); ok {
			facts = append(facts, f)
		}
	}
	return facts
}
