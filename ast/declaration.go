// Package ast defines the logical program model: declarations, clauses,
// rule bodies, column values and variables (spec.md §3). The package only
// enforces structural invariants (no duplicate column ids, no duplicate
// relation ids); full static validation — typing, range-restriction,
// domain-independence — lives in package validate to avoid an import
// cycle between the two.
package ast

import (
	"fmt"
	"sort"

	"github.com/rhizomedb/rhizome/errs"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/relation"
	"github.com/rhizomedb/rhizome/value"
)

// Source distinguishes extensional (input-only) from intensional (derived)
// relations.
type Source int

const (
	EDB Source = iota
	IDB
)

func (s Source) String() string {
	if s == EDB {
		return "EDB"
	}
	return "IDB"
}

// Declaration is (RelationId, Source, Schema). Column ids are unique within
// a relation; Cols preserves declaration order (String sorts a copy by
// name for display).
type Declaration struct {
	Relation id.RelationId
	Src      Source
	Cols     []id.ColId
	colTypes map[id.ColId]value.Type

	// Lattice and LatticeKeyCols opt an IDB relation's storage into
	// join-semilattice merge (relation.Lattice) instead of the plain
	// set-union Merge spec.md §4.1 specifies as the default: a later tuple
	// agreeing with an earlier one on every LatticeKeyCols value replaces
	// it with their join rather than being dropped as a duplicate. Both
	// zero disables it; neither is set by NewDeclaration.
	Lattice        relation.Lattice
	LatticeKeyCols []id.ColId
}

// NewDeclaration builds a Declaration from an ordered list of (ColId, Type)
// pairs, rejecting duplicate column ids.
func NewDeclaration(rel id.RelationId, src Source, cols []ColSpec) (*Declaration, error) {
	colTypes := make(map[id.ColId]value.Type, len(cols))
	ordered := make([]id.ColId, 0, len(cols))
	for _, c := range cols {
		if _, ok := colTypes[c.Col]; ok {
			return nil, errs.DuplicateDeclarationCol.New(rel, c.Col)
		}
		colTypes[c.Col] = c.Type
		ordered = append(ordered, c.Col)
	}
	return &Declaration{Relation: rel, Src: src, Cols: ordered, colTypes: colTypes}, nil
}

// ColSpec is one column of a Declaration under construction.
type ColSpec struct {
	Col  id.ColId
	Type value.Type
}

// ColType returns the declared type of col and whether col is declared.
func (d *Declaration) ColType(col id.ColId) (value.Type, bool) {
	t, ok := d.colTypes[col]
	return t, ok
}

// HasCol reports whether col is part of the schema.
func (d *Declaration) HasCol(col id.ColId) bool {
	_, ok := d.colTypes[col]
	return ok
}

func (d *Declaration) String() string {
	cols := append([]id.ColId(nil), d.Cols...)
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return fmt.Sprintf("%s(%s) [%s]", d.Relation, cols, d.Src)
}
