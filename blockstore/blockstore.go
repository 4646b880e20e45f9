// Package blockstore implements the content-addressing layer spec.md §6
// requires: a canonical, deterministic encoding of an input EAV tuple plus
// its links, the Cid derived from that encoding, and the immutable
// key/value contract the reactor uses to persist every EDB fact before
// admitting it to the VM.
//
// Grounded on the original's fact/evac_fact.rs for the EVAC tuple shape
// and canonical-serialization discipline (tag byte, length-prefixed
// strings, sorted link set) and on the teacher's own storage-engine split
// (memory.Table vs. a real backend) for the Mem/Bolt pairing below.
package blockstore

import (
	"encoding/binary"
	"sort"

	"github.com/rhizomedb/rhizome/cid"
	"github.com/rhizomedb/rhizome/value"
)

// EVACTuple is the wire form of one input fact (spec.md §6): an
// entity/attribute/value triple plus the set of prior facts it links to.
type EVACTuple struct {
	Entity    value.Val
	Attribute value.Val
	Value     value.Val
	Links     []cid.Cid
}

// MarshalCanonical encodes t deterministically: each Val as a tag byte
// followed by its payload (big-endian fixed-width integers,
// length-prefixed strings, raw fixed-size CID bytes), then the link count
// and the Links sorted by byte order and concatenated. Two equal
// EVACTuples — even built independently — always encode to the same
// bytes, which is the property t.Cid() depends on.
func (t EVACTuple) MarshalCanonical() []byte {
	var buf []byte
	buf = appendVal(buf, t.Entity)
	buf = appendVal(buf, t.Attribute)
	buf = appendVal(buf, t.Value)

	links := append([]cid.Cid(nil), t.Links...)
	sort.Slice(links, func(i, j int) bool { return links[i].Less(links[j]) })

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(links)))
	buf = append(buf, lenBuf[:]...)
	for _, l := range links {
		buf = append(buf, l.Bytes()...)
	}
	return buf
}

// Cid returns the content identifier of t's canonical encoding.
func (t EVACTuple) Cid() cid.Cid {
	return cid.Of(t.MarshalCanonical())
}

func appendVal(buf []byte, v value.Val) []byte {
	buf = append(buf, byte(v.Kind()))
	switch v.Kind() {
	case value.KindBool:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return append(buf, b)
	case value.KindS8, value.KindS16, value.KindS32, value.KindS64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.AsInt64()))
		return append(buf, b[:]...)
	case value.KindU8, value.KindU16, value.KindU32, value.KindU64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.AsUint64())
		return append(buf, b[:]...)
	case value.KindChar:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v.AsChar()))
		return append(buf, b[:]...)
	case value.KindString:
		return appendLenPrefixed(buf, []byte(v.AsString()))
	case value.KindCid:
		return append(buf, v.AsCid().Bytes()...)
	default:
		return buf
	}
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

// Blockstore is the immutable key/value contract spec.md §6 names: blocks
// are addressed by the Cid of their bytes, and re-putting the same Cid is
// a no-op.
type Blockstore interface {
	Has(c cid.Cid) (bool, error)
	Get(c cid.Cid) ([]byte, error)
	PutKeyed(c cid.Cid, data []byte) error
}

// PutSerializable hashes t's canonical encoding, stores it under the
// resulting Cid (a no-op if already present), and returns the Cid — the
// helper spec.md §6 names as put_serializable.
func PutSerializable(bs Blockstore, t EVACTuple) (cid.Cid, error) {
	data := t.MarshalCanonical()
	c := cid.Of(data)
	if err := bs.PutKeyed(c, data); err != nil {
		return cid.Undef, err
	}
	return c, nil
}
