package relation

import (
	"github.com/rhizomedb/rhizome/cid"
)

// CidOf derives a stable content id from a tuple's own declared column
// values, independent of map iteration order — the scheme the VM uses to
// bind a Search's (rel, alias) cid (spec.md §4.5) for an EDB relation.
//
// This is distinct from, and narrower than, the canonical wire-level Cid
// package blockstore computes over the full EVAC-plus-links input form:
// that Cid is what external callers see and persist tuples under; this
// one is the lighter in-memory identity the VM needs to reproduce the
// same value deterministically every time the same tuple content is
// searched, so a rule's `cid:x` binding is stable across ticks. The two
// never coincide: this one hashes the tuple's canonical key (column names
// and rendered values), while the blockstore one hashes the binary EVAC
// encoding, so they differ even for a tuple with no links.
func CidOf(t Tuple) cid.Cid {
	return cid.Of([]byte(key(t)))
}
