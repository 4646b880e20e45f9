package ast

import (
	"fmt"

	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Var is a (VarId, Type) pair (spec.md §3). Two Vars with the same VarId
// but different Type are distinct variables — comparisons must use Var,
// not VarId alone.
type Var struct {
	Id   id.VarId
	Type value.Type
}

func NewVar(name string, t value.Type) Var {
	return Var{Id: id.NewVarId(name), Type: t}
}

func (v Var) String() string { return fmt.Sprintf("%s:%s", v.Id, v.Type) }

// ColVal is either a literal Val or a binding to a Var (spec.md §3).
type ColVal interface {
	isColVal()
	String() string
}

// Lit is a literal column value.
type Lit struct{ Val value.Val }

func (Lit) isColVal()        {}
func (l Lit) String() string { return l.Val.String() }

// VarRef binds a column to a rule variable.
type VarRef struct{ Var Var }

func (VarRef) isColVal()        {}
func (v VarRef) String() string { return v.Var.Id.String() }
