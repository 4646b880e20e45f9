// Package errs defines the engine's single error surface (spec.md §7):
// typed, synchronous build-time errors from program construction and
// lowering, plus a catch-all internal error for runtime invariant
// violations. Modeled on the teacher's dependency gopkg.in/src-d/go-errors.v1,
// which the teacher's sql package used for exactly this "one Kind per
// named failure mode" shape.
package errs

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Each Kind names one offending condition from spec.md §4.2, plus the
// stratifier's ProgramUnstratifiable and the catch-all internal error.
// Kind.New(args...) builds an *Error carrying the formatted message and
// the original args so callers (and tests) can still inspect offending
// ids with errors.As.
var (
	DuplicateDeclarationCol      = goerrors.NewKind("relation %s: duplicate column %s in declaration")
	ConflictingRelationDeclaration = goerrors.NewKind("relation %s already declared")
	ClauseHeadEDB                = goerrors.NewKind("relation %s is EDB and cannot be used as a rule head or fact")
	UnrecognizedRelation         = goerrors.NewKind("relation %s is not declared")
	UnrecognizedColumnBinding    = goerrors.NewKind("column %s is not declared on relation %s")
	ConflictingColumnBinding     = goerrors.NewKind("column %s is bound twice in one atom of relation %s")
	ColumnMissing                = goerrors.NewKind("column %s of relation %s is not bound")
	ColumnValueTypeConflict      = goerrors.NewKind("column %s of relation %s: type %s does not unify with %s")
	NonGroundFact                = goerrors.NewKind("fact for relation %s carries a variable and is not ground")
	ClauseNotRangeRestricted     = goerrors.NewKind("head variable %s of relation %s is not range-restricted")
	ClauseNotDomainIndependent   = goerrors.NewKind("variable %s is not domain-independent (bound under negation, predicate, or aggregation before any positive use)")
	ContentAddressedIDB          = goerrors.NewKind("relation %s is IDB and cannot carry a CID binding")
	AggregationBoundTarget       = goerrors.NewKind("aggregation target variable %s is already bound")
	ReduceBoundTarget            = goerrors.NewKind("reduce target variable %s is already bound")
	VarTypeConflict              = goerrors.NewKind("variable %s: declared type %s conflicts with column type %s")
	ProgramUnstratifiable        = goerrors.NewKind("program cannot be stratified: negative dependency cycle through %s")

	// Internal marks an invariant violation that the validator should have
	// prevented — e.g. a failed type downcast while resolving a user
	// predicate's arguments (spec.md §7). The VM must surface, not swallow,
	// these.
	Internal = goerrors.NewKind("internal rhizome error: %s")
)

// Error is the concrete error type produced by every Kind above.
type Error = goerrors.Error

// Is reports whether err was produced by kind, walking wrapped causes.
func Is(kind *goerrors.Kind, err error) bool {
	return kind.Is(err)
}
