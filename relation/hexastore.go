package relation

import (
	"sort"

	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/value"
)

// Hexastore is the specialised EAV store (spec.md §4.1): it keeps six
// indexes, each keyed by a different column permutation (original's
// relation/hexastore.rs), and answers a 1- or 2-column lookup from the
// index whose key starts with the bound columns. That lookup scans every
// key of the chosen index for the prefix, so it is linear in the number
// of stored tuples, not sublinear. Fact storage for EAV-shaped relations
// uses this rather than OrderedSet.
var (
	entityCol    = id.NewColId("entity")
	attributeCol = id.NewColId("attribute")
	valueCol     = id.NewColId("value")
)

type hexIndex map[string][]hexEntry

type hexEntry struct {
	tuple Tuple
}

// Hexastore stores EAV triples under all six column-order permutations.
type Hexastore struct {
	count int
	eav   hexIndex
	eva   hexIndex
	aev   hexIndex
	ave   hexIndex
	vea   hexIndex
	vae   hexIndex
	seen  map[string]bool
}

// NewHexastore returns an empty Hexastore.
func NewHexastore() *Hexastore {
	return &Hexastore{
		eav: hexIndex{}, eva: hexIndex{}, aev: hexIndex{},
		ave: hexIndex{}, vea: hexIndex{}, vae: hexIndex{},
		seen: map[string]bool{},
	}
}

func (h *Hexastore) Len() int      { return h.count }
func (h *Hexastore) IsEmpty() bool { return h.count == 0 }

func (h *Hexastore) Contains(bindings []Binding) bool {
	return len(h.Search(bindings)) > 0
}

// Search dispatches to whichever of the six indexes has the bound columns
// as its leading prefix, matching the original's eight-way (e,a,v)
// combination dispatch.
func (h *Hexastore) Search(bindings []Binding) []Tuple {
	e, a, v, hasE, hasA, hasV := extractEAV(bindings)

	var entries []hexEntry
	switch {
	case hasE && hasA && hasV:
		entries = lookup(h.eav, prefixKey(e, a, v))
	case hasE && hasA:
		entries = lookup(h.eav, prefixKey(e, a))
	case hasE && hasV:
		entries = lookup(h.eva, prefixKey(e, v))
	case hasA && hasV:
		entries = lookup(h.ave, prefixKey(a, v))
	case hasE:
		entries = lookup(h.eav, prefixKey(e))
	case hasA:
		entries = lookup(h.aev, prefixKey(a))
	case hasV:
		entries = lookup(h.vae, prefixKey(v))
	default:
		entries = allEntries(h.eav)
	}

	out := make([]Tuple, 0, len(entries))
	for _, e := range entries {
		if matches(e.tuple, bindings) {
			out = append(out, e.tuple)
		}
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func (h *Hexastore) All() []Tuple { return h.Search(nil) }

// Insert requires tuple to carry entity, attribute and value columns
// (spec.md §4.1's EAV store); other columns are rejected by callers
// upstream (the EDB fact schema always includes exactly these three plus
// link columns, carried alongside but not indexed here).
func (h *Hexastore) Insert(tuple Tuple) bool {
	k := key(tuple)
	if h.seen[k] {
		return false
	}
	h.seen[k] = true
	h.count++

	e, a, v := tuple[entityCol], tuple[attributeCol], tuple[valueCol]
	insertInto(h.eav, prefixKey(e, a, v), tuple)
	insertInto(h.eva, prefixKey(e, v, a), tuple)
	insertInto(h.aev, prefixKey(a, e, v), tuple)
	insertInto(h.ave, prefixKey(a, v, e), tuple)
	insertInto(h.vea, prefixKey(v, e, a), tuple)
	insertInto(h.vae, prefixKey(v, a, e), tuple)
	return true
}

func (h *Hexastore) Merge(other Relation) Relation {
	out := NewHexastore()
	for _, t := range h.All() {
		out.Insert(t)
	}
	for _, t := range other.All() {
		out.Insert(t)
	}
	return out
}

func extractEAV(bindings []Binding) (e, a, v value.Val, hasE, hasA, hasV bool) {
	for _, b := range bindings {
		switch b.Col {
		case entityCol:
			e, hasE = b.Val, true
		case attributeCol:
			a, hasA = b.Val, true
		case valueCol:
			v, hasV = b.Val, true
		}
	}
	return
}

func prefixKey(vals ...value.Val) string {
	var s string
	for _, v := range vals {
		s += v.String() + "\x00"
	}
	return s
}

func insertInto(idx hexIndex, prefix string, t Tuple) {
	idx[prefix] = append(idx[prefix], hexEntry{tuple: t})
}

// lookup returns every entry whose index key has prefix as a leading
// substring — since prefixKey is built incrementally column by column, an
// exact match on the leading fields is a string-prefix match here.
func lookup(idx hexIndex, prefix string) []hexEntry {
	var out []hexEntry
	for k, entries := range idx {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, entries...)
		}
	}
	return out
}

func allEntries(idx hexIndex) []hexEntry {
	var out []hexEntry
	for _, entries := range idx {
		out = append(out, entries...)
	}
	return out
}
