package relation

import (
	"sort"

	"github.com/rhizomedb/rhizome/id"
)

// OrderedSet is the generic reference Relation implementation (spec.md
// §4.1): a full-tuple index with no assumption about column names or
// count, used for IDB relations and for EDB relations that aren't stored
// as a Hexastore. Tuples are kept in a slice sorted by their canonical
// key, with a parallel map for O(1) membership/idempotence checks.
type OrderedSet struct {
	tuples []Tuple
	index  map[string]int

	// keyCols and lattice are non-nil only when this set was built with
	// NewOrderedSetWithLattice: a second tuple sharing keyCols' values then
	// replaces the first with lattice.Join(old, new) instead of being
	// dropped as an inert duplicate.
	keyCols    []id.ColId
	latticeIdx map[string]int
	lattice    Lattice
}

// NewOrderedSet returns an empty OrderedSet with plain set-union semantics.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{index: map[string]int{}}
}

// NewOrderedSetWithLattice returns an empty OrderedSet that merges tuples
// agreeing on keyCols via l instead of deduplicating on full tuple equality.
func NewOrderedSetWithLattice(keyCols []id.ColId, l Lattice) *OrderedSet {
	return &OrderedSet{
		index:      map[string]int{},
		keyCols:    keyCols,
		latticeIdx: map[string]int{},
		lattice:    l,
	}
}

func (s *OrderedSet) Len() int      { return len(s.tuples) }
func (s *OrderedSet) IsEmpty() bool { return len(s.tuples) == 0 }

// Contains reports whether some tuple satisfies bindings. Full-tuple
// membership (the Insert duplicate check) uses the canonical-key map and
// is O(1); an arbitrary partial-column query like this one has no such
// index here and costs a linear scan — see Search.
func (s *OrderedSet) Contains(bindings []Binding) bool {
	if len(bindings) == 0 {
		return !s.IsEmpty()
	}
	for _, t := range s.tuples {
		if matches(t, bindings) {
			return true
		}
	}
	return false
}

// Search returns tuples matching bindings in ascending canonical-key
// order, a total order stable across calls on an unchanging set. This
// set keeps only that one full-tuple ordering, not a per-column index, so
// an arbitrary partial-column binding set is checked with a linear scan
// over s.tuples rather than a binary search; a Search over no bindings
// degenerates to returning the set's full ordering. EAV-shaped relations
// use Hexastore instead, which picks an index by the bound columns but
// still scans that index's keys.
func (s *OrderedSet) Search(bindings []Binding) []Tuple {
	var out []Tuple
	for _, t := range s.tuples {
		if matches(t, bindings) {
			out = append(out, t)
		}
	}
	return out
}

func (s *OrderedSet) All() []Tuple { return s.Search(nil) }

// Insert adds tuple in key order, returning false if an equal tuple is
// already present. When s was built with a Lattice, a tuple agreeing with
// an existing one on every key column replaces it with their join instead
// of being treated as a duplicate.
func (s *OrderedSet) Insert(tuple Tuple) bool {
	if s.lattice != nil {
		return s.insertLattice(tuple)
	}
	k := key(tuple)
	if _, ok := s.index[k]; ok {
		return false
	}
	i := sort.Search(len(s.tuples), func(i int) bool { return key(s.tuples[i]) >= k })
	s.tuples = append(s.tuples, nil)
	copy(s.tuples[i+1:], s.tuples[i:])
	s.tuples[i] = tuple
	for kk, idx := range s.index {
		if idx >= i {
			s.index[kk] = idx + 1
		}
	}
	s.index[k] = i
	return true
}

// insertLattice replaces the tuple sharing tuple's key columns with their
// join, or appends tuple as a new key group, then re-sorts so Search/All
// keep the same stable canonical-key order plain OrderedSet guarantees.
func (s *OrderedSet) insertLattice(tuple Tuple) bool {
	lk := keyOf(tuple, s.keyCols)
	if i, ok := s.latticeIdx[lk]; ok {
		joined := s.lattice.Join(s.tuples[i], tuple)
		if key(joined) == key(s.tuples[i]) {
			return false
		}
		s.tuples[i] = joined
	} else {
		s.latticeIdx[lk] = len(s.tuples)
		s.tuples = append(s.tuples, tuple)
	}
	sort.Slice(s.tuples, func(i, j int) bool { return key(s.tuples[i]) < key(s.tuples[j]) })
	for i, t := range s.tuples {
		s.latticeIdx[keyOf(t, s.keyCols)] = i
	}
	return true
}

// Merge returns a new OrderedSet holding the union of s and other's
// tuples, preserving s's Lattice configuration if any.
func (s *OrderedSet) Merge(other Relation) Relation {
	var out *OrderedSet
	if s.lattice != nil {
		out = NewOrderedSetWithLattice(s.keyCols, s.lattice)
	} else {
		out = NewOrderedSet()
	}
	for _, t := range s.All() {
		out.Insert(t)
	}
	for _, t := range other.All() {
		out.Insert(t)
	}
	return out
}
