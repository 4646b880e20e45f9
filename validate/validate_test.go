package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

func decl(t *testing.T, rel string, src ast.Source, cols ...ast.ColSpec) *ast.Declaration {
	t.Helper()
	d, err := ast.NewDeclaration(id.NewRelationId(rel), src, cols)
	require.NoError(t, err)
	return d
}

func TestValidateAcceptsTransitiveClosure(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x, y, z := ast.NewVar("x", value.Of(value.KindS32)), ast.NewVar("y", value.Of(value.KindS32)), ast.NewVar("z", value.Of(value.KindS32))

	base := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}},
		Body:     []ast.BodyTerm{ast.RelPredicate{Rel: edge, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}}},
	}
	step := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: z}},
		Body: []ast.BodyTerm{
			ast.RelPredicate{Rel: edge, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}},
			ast.RelPredicate{Rel: path, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: y}, to: ast.VarRef{Var: z}}},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{edge, path}, []ast.Clause{base, step})
	require.NoError(t, err)
	require.NoError(t, Validate(prog))
}

func TestValidateRejectsRangeRestrictionViolation(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x, y, z := ast.NewVar("x", value.Of(value.KindS32)), ast.NewVar("y", value.Of(value.KindS32)), ast.NewVar("z", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		// z never appears in the body.
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: z}},
		Body:     []ast.BodyTerm{ast.RelPredicate{Rel: edge, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}}},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{edge, path}, []ast.Clause{rule})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not range-restricted")
}

func TestValidateRejectsDomainIndependenceViolation(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	blocked := decl(t, "blocked", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x, y := ast.NewVar("x", value.Of(value.KindS32)), ast.NewVar("y", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}},
		// x, y are only ever bound via a negation: not domain independent.
		Body: []ast.BodyTerm{ast.Negation{Rel: blocked, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}}},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{edge, blocked, path}, []ast.Clause{rule})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "domain-independent")
}

func TestValidateRejectsFactMissingColumn(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	fact := ast.Fact{Rel: edge.Relation, Decl: edge, Cols: map[id.ColId]value.Val{from: value.S32(1)}}

	prog, err := ast.NewProgram([]*ast.Declaration{edge}, []ast.Clause{fact})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not bound")
}

func TestValidateRejectsRuleHeadMissingColumn(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x, y := ast.NewVar("x", value.Of(value.KindS32)), ast.NewVar("y", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		// to is never bound in the head.
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}},
		Body:     []ast.BodyTerm{ast.RelPredicate{Rel: edge, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}}},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{edge, path}, []ast.Clause{rule})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not bound")
}

func TestValidateRejectsAtomMissingColumn(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	edge := decl(t, "edge", ast.EDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x := ast.NewVar("x", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: path.Relation, HeadDecl: path,
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: x}},
		// edge's "to" column is never bound in the atom.
		Body: []ast.BodyTerm{ast.RelPredicate{Rel: edge, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}}}},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{edge, path}, []ast.Clause{rule})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not bound")
}

func TestValidateRejectsContentAddressedIDB(t *testing.T) {
	from, to := id.NewColId("from"), id.NewColId("to")
	path := decl(t, "path", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})
	other := decl(t, "other", ast.IDB, ast.ColSpec{Col: from, Type: value.Of(value.KindS32)}, ast.ColSpec{Col: to, Type: value.Of(value.KindS32)})

	x, y := ast.NewVar("x", value.Of(value.KindS32)), ast.NewVar("y", value.Of(value.KindS32))
	cidVar := ast.NewVar("c", value.Of(value.KindCid))
	rule := ast.Rule{
		Head: other.Relation, HeadDecl: other,
		HeadArgs: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}},
		Body: []ast.BodyTerm{
			ast.RelPredicate{Rel: path, CidVar: &cidVar, Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: x}, to: ast.VarRef{Var: y}}},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{path, other}, []ast.Clause{rule})
	require.NoError(t, err)
	err = Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot carry a CID binding")
}
