package relation

import "github.com/rhizomedb/rhizome/id"

// Lattice lets a relation merge two tuples that agree on a designated set
// of key columns into one, rather than treating a second matching tuple as
// an inert duplicate (the original's lattice.rs join-semilattice merge,
// supplemented here since the distilled set-union Merge spec.md §4.1
// specifies is the common case, not the only one). A relation with no
// Lattice keeps plain set-union semantics.
type Lattice interface {
	// Join computes the least upper bound of a and b, two tuples already
	// known to agree on every key column.
	Join(a, b Tuple) Tuple
}

func keyOf(t Tuple, cols []id.ColId) string {
	var b []byte
	for _, c := range cols {
		b = append(b, c.String()...)
		b = append(b, 0)
		b = append(b, t[c].String()...)
		b = append(b, 0)
	}
	return string(b)
}
