package rhizome_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rhizome "github.com/rhizomedb/rhizome"
	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/relation"
	"github.com/rhizomedb/rhizome/value"
	"github.com/rhizomedb/rhizome/vm"
)

func decl(t *testing.T, rel string, src ast.Source, cols ...ast.ColSpec) *ast.Declaration {
	t.Helper()
	d, err := ast.NewDeclaration(id.NewRelationId(rel), src, cols)
	require.NoError(t, err)
	return d
}

// TestTransitiveClosure is spec.md §8 scenario 1, exercised end to end
// through Engine -> VM -> fixpoint, the way a caller outside any single
// package would use this module.
func TestTransitiveClosure(t *testing.T) {
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

	engine, err := rhizome.New(prog, rhizome.Config{})
	require.NoError(t, err)

	machine := engine.NewVM()
	for i := int32(0); i < 4; i++ {
		machine.Enqueue(vm.InputFact{
			Rel:   edge.Relation,
			Tuple: relation.Tuple{from: value.S32(i), to: value.S32(i + 1)},
		})
	}

	require.NoError(t, machine.StepEpoch())
	got := collectPairs(machine.DrainOutput())

	want := map[[2]int32]bool{}
	for i := int32(0); i <= 4; i++ {
		for j := i + 1; j <= 4; j++ {
			want[[2]int32{i, j}] = true
		}
	}
	assert.Equal(t, want, got)

	// A second epoch with no new input produces no new tuples
	// (fixpoint, spec.md §8).
	require.NoError(t, machine.StepEpoch())
	assert.Empty(t, machine.DrainOutput())
}

func collectPairs(facts []vm.OutputFact) map[[2]int32]bool {
	out := map[[2]int32]bool{}
	for _, f := range facts {
		out[[2]int32{int32(f.Tuple[id.NewColId("from")].AsInt64()), int32(f.Tuple[id.NewColId("to")].AsInt64())}] = true
	}
	return out
}

// TestUserPredicateTriangle is spec.md §8 scenario 4: a user-defined
// predicate (a+b<c) filters a three-way join over a single EDB relation,
// exercised through VarPredicate's opaque Fn rather than any built-in
// comparison formula.
func TestUserPredicateTriangle(t *testing.T) {
	n := id.NewColId("n")
	num := decl(t, "num", ast.EDB, ast.ColSpec{Col: n, Type: value.Of(value.KindS32)})

	ac, bc, cc := id.NewColId("a"), id.NewColId("b"), id.NewColId("c")
	triangle := decl(t, "triangle", ast.IDB,
		ast.ColSpec{Col: ac, Type: value.Of(value.KindS32)},
		ast.ColSpec{Col: bc, Type: value.Of(value.KindS32)},
		ast.ColSpec{Col: cc, Type: value.Of(value.KindS32)},
	)

	a, b, c := ast.NewVar("a", value.Of(value.KindS32)), ast.NewVar("b", value.Of(value.KindS32)), ast.NewVar("c", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: triangle.Relation, HeadDecl: triangle,
		HeadArgs: map[id.ColId]ast.ColVal{ac: ast.VarRef{Var: a}, bc: ast.VarRef{Var: b}, cc: ast.VarRef{Var: c}},
		Body: []ast.BodyTerm{
			ast.RelPredicate{Rel: num, Args: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: a}}},
			ast.RelPredicate{Rel: num, Args: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: b}}},
			ast.RelPredicate{Rel: num, Args: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: c}}},
			ast.VarPredicate{
				Name: "sum_lt",
				Args: []ast.Var{a, b, c},
				Fn: func(resolved []interface{}) (bool, error) {
					av := resolved[0].(value.Val).AsInt64()
					bv := resolved[1].(value.Val).AsInt64()
					cv := resolved[2].(value.Val).AsInt64()
					return av+bv < cv, nil
				},
			},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{num, triangle}, []ast.Clause{rule})
	require.NoError(t, err)

	engine, err := rhizome.New(prog, rhizome.Config{})
	require.NoError(t, err)

	machine := engine.NewVM()
	for i := int32(1); i <= 5; i++ {
		machine.Enqueue(vm.InputFact{Rel: num.Relation, Tuple: relation.Tuple{n: value.S32(i)}})
	}

	require.NoError(t, machine.StepEpoch())
	got := machine.DrainOutput()
	assert.Len(t, got, 10)
}

// sumAgg implements ast.Aggregate as a plain running sum over s32 values,
// vetoing emission on an empty group (spec.md §9's resolved Open Question).
type sumAgg struct{}

func (sumAgg) Init() interface{} { return int64(0) }

func (sumAgg) Step(acc interface{}, args []interface{}) interface{} {
	return acc.(int64) + args[0].(value.Val).AsInt64()
}

func (sumAgg) Finalize(acc interface{}) (interface{}, bool) {
	total := acc.(int64)
	if total == 0 {
		return nil, false
	}
	return value.S32(int32(total)), true
}

// TestAggregationSum is spec.md §8 scenario 5: a reduce-style aggregation
// over an entire EDB relation with no GroupBy columns.
func TestAggregationSum(t *testing.T) {
	n := id.NewColId("n")
	num := decl(t, "num", ast.EDB, ast.ColSpec{Col: n, Type: value.Of(value.KindS32)})

	total := id.NewColId("total")
	sum := decl(t, "sum", ast.IDB, ast.ColSpec{Col: total, Type: value.Of(value.KindS32)})

	x := ast.NewVar("x", value.Of(value.KindS32))
	target := ast.NewVar("t", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: sum.Relation, HeadDecl: sum,
		HeadArgs: map[id.ColId]ast.ColVal{total: ast.VarRef{Var: target}},
		Body: []ast.BodyTerm{
			// x must be bound by a positive atom before the aggregation may
			// reference it (domain independence, spec.md glossary); the
			// aggregation's own scan over num is independent of which row
			// this positive atom happens to bind, so every firing projects
			// the same sum fact and the sum Delta's set insert keeps one.
			ast.RelPredicate{Rel: num, Args: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: x}}},
			ast.Aggregation{
				Target:  target,
				Vars:    []ast.Var{x},
				Rel:     num,
				RelArgs: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: x}},
				Agg:     sumAgg{},
				Name:    "sum",
			},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{num, sum}, []ast.Clause{rule})
	require.NoError(t, err)

	engine, err := rhizome.New(prog, rhizome.Config{})
	require.NoError(t, err)

	machine := engine.NewVM()
	for i := int32(1); i <= 5; i++ {
		machine.Enqueue(vm.InputFact{Rel: num.Relation, Tuple: relation.Tuple{n: value.S32(i)}})
	}
	require.NoError(t, machine.StepEpoch())
	got := machine.DrainOutput()
	require.Len(t, got, 1)
	assert.Equal(t, int64(15), got[0].Tuple[total].AsInt64())
}

// TestAggregationSumVetoesOnEmptyGroup checks that an aggregation over an
// empty source relation emits nothing, per sumAgg.Finalize's veto. A
// separate trigger EDB relation fires the rule so the aggregation's own
// statement actually runs against an empty num rather than the rule simply
// never being reached.
func TestAggregationSumVetoesOnEmptyGroup(t *testing.T) {
	n := id.NewColId("n")
	num := decl(t, "num", ast.EDB, ast.ColSpec{Col: n, Type: value.Of(value.KindS32)})
	tcol := id.NewColId("v")
	trigger := decl(t, "trigger", ast.EDB, ast.ColSpec{Col: tcol, Type: value.Of(value.KindS32)})

	total := id.NewColId("total")
	sum := decl(t, "sum", ast.IDB, ast.ColSpec{Col: total, Type: value.Of(value.KindS32)})

	x := ast.NewVar("x", value.Of(value.KindS32))
	target := ast.NewVar("t", value.Of(value.KindS32))
	rule := ast.Rule{
		Head: sum.Relation, HeadDecl: sum,
		HeadArgs: map[id.ColId]ast.ColVal{total: ast.VarRef{Var: target}},
		Body: []ast.BodyTerm{
			ast.RelPredicate{Rel: trigger, Args: map[id.ColId]ast.ColVal{tcol: ast.VarRef{Var: x}}},
			ast.Aggregation{
				Target:  target,
				Vars:    []ast.Var{x},
				Rel:     num,
				RelArgs: map[id.ColId]ast.ColVal{n: ast.VarRef{Var: x}},
				Agg:     sumAgg{},
				Name:    "sum",
			},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{num, trigger, sum}, []ast.Clause{rule})
	require.NoError(t, err)

	engine, err := rhizome.New(prog, rhizome.Config{})
	require.NoError(t, err)

	machine := engine.NewVM()
	machine.Enqueue(vm.InputFact{Rel: trigger.Relation, Tuple: relation.Tuple{tcol: value.S32(1)}})
	require.NoError(t, machine.StepEpoch())
	assert.Empty(t, machine.DrainOutput())
}
