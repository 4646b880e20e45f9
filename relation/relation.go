// Package relation implements the storage layer spec.md §4.1 requires: an
// ordered multi-column tuple set supporting len/is_empty/contains/search/
// insert/merge (purge is done by the VM, which replaces a relation with a
// new empty one), plus a specialised six-index EAV store (Hexastore).
//
// Grounded on the original's relation/mod.rs (the Relation trait and its
// Binding/contains/search contract) and relation/hexastore.rs (the six
// shared-leaf BTreeMap indexes). Go has no BTreeMap in its standard
// library or in this dependency pack, so OrderedSet uses a sorted slice
// plus a canonical-key map instead of a borrowed B-tree type: the map
// gives O(1) exact full-tuple membership (Insert's duplicate check), and
// sort.Search gives O(log n) positioning on Insert. Hexastore uses
// string-keyed maps and sorts its results on each Search. An arbitrary
// partial-column Search/Contains is linear in both: OrderedSet walks its
// tuples, and Hexastore scans the keys of one of its indexes.
package relation

import (
	"sort"

	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Tuple is one row: a total binding of a relation's declared columns.
type Tuple map[id.ColId]value.Val

// Binding is one equality constraint passed to Search/Contains.
type Binding struct {
	Col id.ColId
	Val value.Val
}

// key returns a canonical, comparable representation of t usable as a map
// key and as a stable sort key, independent of map iteration order.
func key(t Tuple) string {
	cols := make([]id.ColId, 0, len(t))
	for c := range t {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	var b []byte
	for _, c := range cols {
		b = append(b, c.String()...)
		b = append(b, 0)
		b = append(b, t[c].String()...)
		b = append(b, 0)
	}
	return string(b)
}

// Relation is the storage contract every implementation in this package
// satisfies (spec.md §4.1).
type Relation interface {
	Len() int
	IsEmpty() bool
	Contains(bindings []Binding) bool
	// Search returns every tuple matching all of bindings, in the
	// relation's stable total order, duplicates suppressed.
	Search(bindings []Binding) []Tuple
	// Insert adds tuple, returning false if an identical tuple was
	// already present (idempotent).
	Insert(tuple Tuple) bool
	// Merge returns a new Relation holding the union of the receiver and
	// other; commutative and associative on the underlying tuple set.
	Merge(other Relation) Relation
	// All returns every tuple, equivalent to Search(nil).
	All() []Tuple
}

func matches(t Tuple, bindings []Binding) bool {
	for _, b := range bindings {
		v, ok := t[b.Col]
		if !ok || value.Compare(v, b.Val) != 0 {
			return false
		}
	}
	return true
}
