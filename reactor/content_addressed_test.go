package reactor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rhizome "github.com/rhizomedb/rhizome"
	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/blockstore"
	"github.com/rhizomedb/rhizome/cid"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/reactor"
	"github.com/rhizomedb/rhizome/value"
)

// contentAddressedEngine builds a program for spec.md §8 scenario 6:
// root(x) :- triple(cid:x, …), !links(from:x, …) — an IDB relation derived
// by reading an EDB atom's own content id (RelPredicate's CidVar) and
// rejecting any atom with an outgoing entry in the `links` relation the
// reactor synthesizes from a fact's Links (spec.md §9). Only a tuple whose
// own content id is never a link's `from` qualifies as a root.
func contentAddressedEngine(t *testing.T) *rhizome.Engine {
	t.Helper()
	triple := eavDecl(t, "triple", ast.EDB)

	from, to := id.NewColId("from"), id.NewColId("to")
	links, err := ast.NewDeclaration(id.NewRelationId("links"), ast.EDB, []ast.ColSpec{
		{Col: from, Type: value.Of(value.KindCid)},
		{Col: to, Type: value.Of(value.KindCid)},
	})
	require.NoError(t, err)

	rootCol := id.NewColId("root")
	root, err := ast.NewDeclaration(id.NewRelationId("root"), ast.IDB, []ast.ColSpec{
		{Col: rootCol, Type: value.Of(value.KindCid)},
	})
	require.NoError(t, err)

	e, a, v := ast.NewVar("e", value.Any), ast.NewVar("a", value.Any), ast.NewVar("val", value.Any)
	c := ast.NewVar("c", value.Of(value.KindCid))

	rule := ast.Rule{
		Head: root.Relation, HeadDecl: root,
		HeadArgs: map[id.ColId]ast.ColVal{rootCol: ast.VarRef{Var: c}},
		Body: []ast.BodyTerm{
			ast.RelPredicate{
				Rel: triple, CidVar: &c,
				Args: map[id.ColId]ast.ColVal{entityCol: ast.VarRef{Var: e}, attributeCol: ast.VarRef{Var: a}, valueCol: ast.VarRef{Var: v}},
			},
			ast.Negation{
				Rel:  links,
				Args: map[id.ColId]ast.ColVal{from: ast.VarRef{Var: c}},
			},
		},
	}

	prog, err := ast.NewProgram([]*ast.Declaration{triple, links, root}, []ast.Clause{rule})
	require.NoError(t, err)
	engine, err := rhizome.New(prog, rhizome.Config{})
	require.NoError(t, err)
	return engine
}

// TestReactorContentAddressedRead inserts one linked fact and one unlinked
// fact and checks that root only ever emits the unlinked one's content id —
// the negation over the synthesized links relation must actually exclude
// the linked fact, not just pass its own positive join.
func TestReactorContentAddressedRead(t *testing.T) {
	engine := contentAddressedEngine(t)
	sink := &fakeSink{}
	r := reactor.New(engine, blockstore.NewMem(), reactor.Config{})
	require.NoError(t, r.RegisterSink(id.NewRelationId("root"), func() (reactor.Sink, error) { return sink, nil }))

	targetCid := cid.Of([]byte("some other block"))
	ctx := context.Background()

	// InsertFact and Flush both block until a Tick drains their respective
	// commands (spec.md §5), so both must run concurrently with the single
	// Tick that services them.
	rootCh := make(chan cid.Cid, 1)
	linkedCh := make(chan cid.Cid, 1)
	go func() {
		c, err := r.InsertFact(ctx, reactor.EDBTuple{
			Rel: id.NewRelationId("triple"), Entity: value.Str("leaf"), Attribute: value.Str("kind"), Value: value.S32(1),
		})
		assert.NoError(t, err)
		rootCh <- c
	}()
	go func() {
		c, err := r.InsertFact(ctx, reactor.EDBTuple{
			Rel: id.NewRelationId("triple"), Entity: value.Str("doc"), Attribute: value.Str("next"), Value: value.S32(2),
			Links: []cid.Cid{targetCid},
		})
		assert.NoError(t, err)
		linkedCh <- c
	}()
	flushErrCh := make(chan error, 1)
	go func() { flushErrCh <- r.Flush(ctx) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Tick(ctx))
	rootC := <-rootCh
	<-linkedCh
	require.NoError(t, <-flushErrCh)

	facts, _ := sink.snapshot()
	require.Len(t, facts, 1)
	assert.Equal(t, value.Cid(rootC), facts[0].Tuple[id.NewColId("root")])
}
