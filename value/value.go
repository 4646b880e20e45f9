package value

import (
	"fmt"

	"github.com/rhizomedb/rhizome/cid"
)

// Val is a tagged scalar drawn from {bool, signed/unsigned 8/16/32/64-bit
// integers, char, string, CID} (spec.md §3). It is a plain comparable
// struct so it can be used directly as a Go map key. The relation indexes
// (hexastore, ordered-set) key on rendered strings instead.
type Val struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	r    rune
	s    string
	c    cid.Cid
}

func Bool(v bool) Val   { return Val{kind: KindBool, b: v} }
func S8(v int8) Val     { return Val{kind: KindS8, i: int64(v)} }
func U8(v uint8) Val    { return Val{kind: KindU8, u: uint64(v)} }
func S16(v int16) Val   { return Val{kind: KindS16, i: int64(v)} }
func U16(v uint16) Val  { return Val{kind: KindU16, u: uint64(v)} }
func S32(v int32) Val   { return Val{kind: KindS32, i: int64(v)} }
func U32(v uint32) Val  { return Val{kind: KindU32, u: uint64(v)} }
func S64(v int64) Val   { return Val{kind: KindS64, i: v} }
func U64(v uint64) Val  { return Val{kind: KindU64, u: v} }
func Char(v rune) Val   { return Val{kind: KindChar, r: v} }
func Str(v string) Val  { return Val{kind: KindString, s: v} }
func Cid(v cid.Cid) Val { return Val{kind: KindCid, c: v} }

// TypeOf returns the concrete Type of v.
func (v Val) TypeOf() Type { return Of(v.kind) }

func (v Val) Kind() Kind { return v.kind }

// Accessors panic if the Val does not carry the expected Kind; callers are
// expected to check Kind() (or rely on prior type-checking by validate)
// before calling them, mirroring the original's Fact/Val::as_* contract.

func (v Val) AsBool() bool {
	v.mustBe(KindBool)
	return v.b
}

func (v Val) AsInt64() int64 {
	switch v.kind {
	case KindS8, KindS16, KindS32, KindS64:
		return v.i
	}
	v.mustBe(KindS64)
	return 0
}

func (v Val) AsUint64() uint64 {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.u
	}
	v.mustBe(KindU64)
	return 0
}

func (v Val) AsChar() rune {
	v.mustBe(KindChar)
	return v.r
}

func (v Val) AsString() string {
	v.mustBe(KindString)
	return v.s
}

func (v Val) AsCid() cid.Cid {
	v.mustBe(KindCid)
	return v.c
}

func (v Val) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: expected %s, got %s", k, v.kind))
	}
}

// IsNumeric reports whether v carries one of the integer kinds.
func (v Val) IsNumeric() bool {
	switch v.kind {
	case KindS8, KindU8, KindS16, KindU16, KindS32, KindU32, KindS64, KindU64:
		return true
	default:
		return false
	}
}

// Compare gives Val a total order consistent across kinds, used to keep
// relation iteration order stable (spec.md §4.1: "some total order stable
// across repeated calls"). Values of different kinds order by Kind first.
func Compare(a, b Val) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindBool:
		return compareBool(a.b, b.b)
	case KindS8, KindS16, KindS32, KindS64:
		return compareInt64(a.i, b.i)
	case KindU8, KindU16, KindU32, KindU64:
		return compareUint64(a.u, b.u)
	case KindChar:
		return compareInt64(int64(a.r), int64(b.r))
	case KindString:
		return compareString(a.s, b.s)
	case KindCid:
		if a.c == b.c {
			return 0
		}
		if a.c.Less(b.c) {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Val) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindS8, KindS16, KindS32, KindS64:
		return fmt.Sprintf("%d", v.i)
	case KindU8, KindU16, KindU32, KindU64:
		return fmt.Sprintf("%d", v.u)
	case KindChar:
		return fmt.Sprintf("%q", v.r)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindCid:
		return v.c.String()
	default:
		return "<invalid val>"
	}
}
