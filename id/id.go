// Package id provides the small, string-backed identifier types shared
// across the engine: relations, columns, links, and logic variables.
package id

import "fmt"

// RelationId names a declared relation, EDB or IDB.
type RelationId string

// NewRelationId interns a RelationId from a name.
func NewRelationId(name string) RelationId { return RelationId(name) }

func (r RelationId) String() string { return string(r) }

// ColId names a column within a relation's schema.
type ColId string

func NewColId(name string) ColId { return ColId(name) }

func (c ColId) String() string { return string(c) }

// LinkId names a causal link slot on an EDB fact.
type LinkId string

func NewLinkId(name string) LinkId { return LinkId(name) }

func (l LinkId) String() string { return string(l) }

// VarId names a logic variable within a rule. Two variables with the same
// VarId but different declared types are distinct — callers compare
// ast.Var values (VarId, Type), never VarId alone, for that reason.
type VarId string

func NewVarId(name string) VarId { return VarId(name) }

func (v VarId) String() string { return string(v) }

// AliasId distinguishes multiple occurrences of the same relation within a
// single semi-naive rewrite. Required because a rule like
// path(x,z) :- edge(x,y), path(y,z) may join a relation against itself.
type AliasId uint32

func (a AliasId) String() string { return fmt.Sprintf("a%d", uint32(a)) }

// AliasGen hands out fresh AliasIds, scoped to one rewrite compilation.
type AliasGen struct{ next uint32 }

func (g *AliasGen) Next() AliasId {
	a := AliasId(g.next)
	g.next++
	return a
}
