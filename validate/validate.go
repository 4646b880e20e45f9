// Package validate performs the static checks spec.md §4.2 requires before
// a Program may be stratified and lowered: column typing, range
// restriction, domain independence, and the EDB/IDB placement rules around
// content-addressed facts and aggregation targets.
//
// The shape follows google/mangle's analysis.Analyzer (two passes: resolve
// declarations, then walk each rule's body left to right threading a
// "bound so far" set) generalized to this engine's richer body-term set
// (negation, user predicates, aggregation). Every error found across the
// whole program is collected via github.com/hashicorp/go-multierror rather
// than stopping at the first, so a caller sees the full list in one pass —
// the same aggregation style the teacher uses for multi-row batch errors.
package validate

import (
	"github.com/hashicorp/go-multierror"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/errs"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Validate checks every clause of prog and returns a single error
// aggregating every violation found, or nil if the program is valid.
func Validate(prog *ast.Program) error {
	var result *multierror.Error

	for _, f := range prog.Facts() {
		if err := validateFact(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, r := range prog.Rules() {
		if err := validateRule(r); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func validateFact(f ast.Fact) error {
	var result *multierror.Error
	if f.Decl.Src == ast.EDB {
		result = multierror.Append(result, errs.ClauseHeadEDB.New(f.Rel))
	}
	for col, v := range f.Cols {
		declType, ok := f.Decl.ColType(col)
		if !ok {
			result = multierror.Append(result, errs.UnrecognizedColumnBinding.New(col, f.Rel))
			continue
		}
		if _, ok := value.Unify(declType, v.TypeOf()); !ok {
			result = multierror.Append(result, errs.ColumnValueTypeConflict.New(col, f.Rel, declType, v.TypeOf()))
		}
	}
	for _, col := range f.Decl.Cols {
		if _, ok := f.Cols[col]; !ok {
			result = multierror.Append(result, errs.ColumnMissing.New(col, f.Rel))
		}
	}
	return result.ErrorOrNil()
}

// scope tracks, within one rule, which variables are bound so far and what
// type each was last seen at.
type scope struct {
	bound map[id.VarId]value.Type
}

func newScope() *scope { return &scope{bound: map[id.VarId]value.Type{}} }

func (s *scope) isBound(v ast.Var) bool {
	_, ok := s.bound[v.Id]
	return ok
}

// bind records v as bound, unifying against any prior sighting of the same
// VarId. Returns a VarTypeConflict error if the types don't unify.
func (s *scope) bind(v ast.Var) error {
	prior, ok := s.bound[v.Id]
	if !ok {
		s.bound[v.Id] = v.Type
		return nil
	}
	unified, ok := value.Unify(prior, v.Type)
	if !ok {
		return errs.VarTypeConflict.New(v.Id, prior, v.Type)
	}
	s.bound[v.Id] = unified
	return nil
}

func validateRule(r *ast.Rule) error {
	var result *multierror.Error
	s := newScope()

	for _, term := range r.Body {
		switch t := term.(type) {
		case ast.RelPredicate:
			if t.CidVar != nil && t.Rel.Src != ast.EDB {
				result = multierror.Append(result, errs.ContentAddressedIDB.New(t.Rel.Relation))
			}
			if err := checkAtomArgs(s, t.Rel, t.Args, true, &result); err != nil {
				result = multierror.Append(result, err)
			}
			checkColumnsPresent(t.Rel, t.Args, &result)
			if t.CidVar != nil {
				if err := s.bind(*t.CidVar); err != nil {
					result = multierror.Append(result, err)
				}
			}

		case ast.Negation:
			checkAtomArgs(s, t.Rel, t.Args, false, &result)

		case ast.VarPredicate:
			for _, v := range t.Args {
				if !s.isBound(v) {
					result = multierror.Append(result, errs.ClauseNotDomainIndependent.New(v.Id))
				}
			}

		case ast.Aggregation:
			if s.isBound(t.Target) {
				result = multierror.Append(result, errs.AggregationBoundTarget.New(t.Target.Id))
			}
			checkAtomArgs(s, t.Rel, t.RelArgs, false, &result)
			for _, col := range t.GroupBy {
				if !t.Rel.HasCol(col) {
					result = multierror.Append(result, errs.ColumnMissing.New(col, t.Rel.Relation))
				}
			}
			if err := s.bind(t.Target); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	for _, hv := range r.HeadVars() {
		if !s.isBound(hv) {
			result = multierror.Append(result, errs.ClauseNotRangeRestricted.New(hv.Id, r.Head))
		}
	}
	checkColumnsPresent(r.HeadDecl, r.HeadArgs, &result)

	return result.ErrorOrNil()
}

// checkColumnsPresent reports a ColumnMissing error for every column decl
// declares that args does not bind, covering both a rule's head and a
// positive body atom (spec.md §4.2: "ColumnMissing (head or atom omits a
// declared column)").
func checkColumnsPresent(decl *ast.Declaration, args map[id.ColId]ast.ColVal, result **multierror.Error) {
	for _, col := range decl.Cols {
		if _, ok := args[col]; !ok {
			*result = multierror.Append(*result, errs.ColumnMissing.New(col, decl.Relation))
		}
	}
}

// checkAtomArgs type-checks args against decl's schema. When bindNew is
// true (a positive RelPredicate), variables are added to the scope;
// otherwise (Negation, an aggregation's source atom) every variable
// referenced must already be bound — domain independence forbids a
// negation or aggregation from being the sole binder of a variable.
func checkAtomArgs(s *scope, decl *ast.Declaration, args map[id.ColId]ast.ColVal, bindNew bool, result **multierror.Error) error {
	for col, cv := range args {
		declType, ok := decl.ColType(col)
		if !ok {
			*result = multierror.Append(*result, errs.UnrecognizedColumnBinding.New(col, decl.Relation))
			continue
		}
		switch v := cv.(type) {
		case ast.Lit:
			if _, ok := value.Unify(declType, v.Val.TypeOf()); !ok {
				*result = multierror.Append(*result, errs.ColumnValueTypeConflict.New(col, decl.Relation, declType, v.Val.TypeOf()))
			}
		case ast.VarRef:
			unified, ok := value.Unify(declType, v.Var.Type)
			if !ok {
				*result = multierror.Append(*result, errs.ColumnValueTypeConflict.New(col, decl.Relation, declType, v.Var.Type))
				continue
			}
			if bindNew {
				if err := s.bind(ast.Var{Id: v.Var.Id, Type: unified}); err != nil {
					*result = multierror.Append(*result, err)
				}
			} else if !s.isBound(v.Var) {
				*result = multierror.Append(*result, errs.ClauseNotDomainIndependent.New(v.Var.Id))
			}
		}
	}
	return nil
}
