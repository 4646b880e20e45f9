package blockstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhizomedb/rhizome/blockstore"
	"github.com/rhizomedb/rhizome/cid"
	"github.com/rhizomedb/rhizome/value"
)

func sampleTuple() blockstore.EVACTuple {
	return blockstore.EVACTuple{
		Entity:    value.U64(1),
		Attribute: value.Str("name"),
		Value:     value.Str("alice"),
	}
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	a := sampleTuple()
	b := sampleTuple()
	assert.Equal(t, a.MarshalCanonical(), b.MarshalCanonical())
	assert.Equal(t, a.Cid(), b.Cid())
}

func TestMarshalCanonicalLinkOrderIndependent(t *testing.T) {
	l1, l2 := cid.Of([]byte("a")), cid.Of([]byte("b"))
	t1 := sampleTuple()
	t1.Links = []cid.Cid{l1, l2}
	t2 := sampleTuple()
	t2.Links = []cid.Cid{l2, l1}
	assert.Equal(t, t1.Cid(), t2.Cid())
}

func TestCidChangesWithContent(t *testing.T) {
	a := sampleTuple()
	b := sampleTuple()
	b.Value = value.Str("bob")
	assert.NotEqual(t, a.Cid(), b.Cid())
}

func TestMemBlockstore(t *testing.T) {
	bs := blockstore.NewMem()
	tup := sampleTuple()
	c, err := blockstore.PutSerializable(bs, tup)
	require.NoError(t, err)

	has, err := bs.Has(c)
	require.NoError(t, err)
	assert.True(t, has)

	data, err := bs.Get(c)
	require.NoError(t, err)
	assert.Equal(t, tup.MarshalCanonical(), data)

	assert.Equal(t, 1, bs.Len())
	_, err = blockstore.PutSerializable(bs, tup)
	require.NoError(t, err)
	assert.Equal(t, 1, bs.Len(), "re-putting the same tuple must not create a second block")
}

func TestMemBlockstoreMissingGet(t *testing.T) {
	bs := blockstore.NewMem()
	data, err := bs.Get(cid.Of([]byte("nope")))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBoltBlockstore(t *testing.T) {
	dir := t.TempDir()
	bs, err := blockstore.OpenBolt(filepath.Join(dir, "blocks.db"))
	require.NoError(t, err)
	defer bs.Close()

	tup := sampleTuple()
	c, err := blockstore.PutSerializable(bs, tup)
	require.NoError(t, err)

	has, err := bs.Has(c)
	require.NoError(t, err)
	assert.True(t, has)

	data, err := bs.Get(c)
	require.NoError(t, err)
	assert.Equal(t, tup.MarshalCanonical(), data)

	require.NoError(t, bs.Close())
	bs2, err := blockstore.OpenBolt(filepath.Join(dir, "blocks.db"))
	require.NoError(t, err)
	defer bs2.Close()
	has2, err := bs2.Has(c)
	require.NoError(t, err)
	assert.True(t, has2, "data must survive reopening the db")
}
