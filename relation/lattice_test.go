package relation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// maxLattice keeps the larger "count" column for tuples agreeing on "key".
type maxLattice struct{ countCol id.ColId }

func (m maxLattice) Join(a, b Tuple) Tuple {
	if value.Compare(a[m.countCol], b[m.countCol]) >= 0 {
		return a
	}
	return b
}

func TestOrderedSetWithLatticeJoinsOnKeyColumns(t *testing.T) {
	key, count := id.NewColId("key"), id.NewColId("count")
	s := NewOrderedSetWithLattice([]id.ColId{key}, maxLattice{countCol: count})

	require.True(t, s.Insert(Tuple{key: value.Str("a"), count: value.S32(3)}))
	require.Equal(t, 1, s.Len())

	// Same key, smaller count: the join equals the existing tuple, so
	// nothing changes and Insert reports no new information.
	require.False(t, s.Insert(Tuple{key: value.Str("a"), count: value.S32(1)}))
	require.Equal(t, 1, s.Len())
	require.Equal(t, value.S32(3), s.All()[0][count])

	// Same key, larger count: replaces the stored tuple.
	require.True(t, s.Insert(Tuple{key: value.Str("a"), count: value.S32(7)}))
	require.Equal(t, 1, s.Len())
	require.Equal(t, value.S32(7), s.All()[0][count])

	// Distinct key: appended as its own group.
	require.True(t, s.Insert(Tuple{key: value.Str("b"), count: value.S32(1)}))
	require.Equal(t, 2, s.Len())
}

func TestOrderedSetWithLatticeMergePreservesLattice(t *testing.T) {
	key, count := id.NewColId("key"), id.NewColId("count")
	a := NewOrderedSetWithLattice([]id.ColId{key}, maxLattice{countCol: count})
	a.Insert(Tuple{key: value.Str("a"), count: value.S32(2)})
	b := NewOrderedSetWithLattice([]id.ColId{key}, maxLattice{countCol: count})
	b.Insert(Tuple{key: value.Str("a"), count: value.S32(9)})

	merged := a.Merge(b)
	require.Equal(t, 1, merged.Len())
	require.Equal(t, value.S32(9), merged.All()[0][count])
}
