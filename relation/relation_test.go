package relation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

func TestOrderedSetInsertIsIdempotentAndMonotone(t *testing.T) {
	s := NewOrderedSet()
	from, to := id.NewColId("from"), id.NewColId("to")
	tup := Tuple{from: value.S32(1), to: value.S32(2)}

	require.True(t, s.Insert(tup))
	require.Equal(t, 1, s.Len())
	require.False(t, s.Insert(tup))
	require.Equal(t, 1, s.Len())
}

func TestOrderedSetSearchIsStableAndFiltered(t *testing.T) {
	s := NewOrderedSet()
	from, to := id.NewColId("from"), id.NewColId("to")
	s.Insert(Tuple{from: value.S32(2), to: value.S32(3)})
	s.Insert(Tuple{from: value.S32(1), to: value.S32(2)})

	all1 := s.Search(nil)
	all2 := s.Search(nil)
	require.Equal(t, all1, all2)

	filtered := s.Search([]Binding{{Col: from, Val: value.S32(1)}})
	require.Len(t, filtered, 1)
	require.Equal(t, value.S32(2), filtered[0][to])
}

func TestOrderedSetMergeIsUnion(t *testing.T) {
	from := id.NewColId("from")
	a := NewOrderedSet()
	a.Insert(Tuple{from: value.S32(1)})
	b := NewOrderedSet()
	b.Insert(Tuple{from: value.S32(2)})

	merged := a.Merge(b)
	require.Equal(t, 2, merged.Len())
}

func TestHexastoreLookupsByColumn(t *testing.T) {
	h := NewHexastore()
	t1 := Tuple{entityCol: value.S32(1), attributeCol: value.Str("name"), valueCol: value.Str("alice")}
	t2 := Tuple{entityCol: value.S32(1), attributeCol: value.Str("age"), valueCol: value.S32(30)}
	t3 := Tuple{entityCol: value.S32(2), attributeCol: value.Str("name"), valueCol: value.Str("bob")}

	require.True(t, h.Insert(t1))
	require.True(t, h.Insert(t2))
	require.True(t, h.Insert(t3))
	require.False(t, h.Insert(t1))
	require.Equal(t, 3, h.Len())

	byEntity := h.Search([]Binding{{Col: entityCol, Val: value.S32(1)}})
	require.Len(t, byEntity, 2)

	byAttr := h.Search([]Binding{{Col: attributeCol, Val: value.Str("name")}})
	require.Len(t, byAttr, 2)

	byEntityAttr := h.Search([]Binding{{Col: entityCol, Val: value.S32(1)}, {Col: attributeCol, Val: value.Str("age")}})
	require.Len(t, byEntityAttr, 1)
	require.Equal(t, value.S32(30), byEntityAttr[0][valueCol])
}
