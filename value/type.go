package value

// Kind identifies a concrete scalar type. The zero Kind is never a valid
// concrete kind; Type's Any case carries no Kind.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindChar
	KindString
	KindCid
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindS8:
		return "s8"
	case KindU8:
		return "u8"
	case KindS16:
		return "s16"
	case KindU16:
		return "u16"
	case KindS32:
		return "s32"
	case KindU32:
		return "u32"
	case KindS64:
		return "s64"
	case KindU64:
		return "u64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindCid:
		return "cid"
	default:
		return "<invalid kind>"
	}
}

// Type is either a concrete scalar Kind or the lattice top element Any.
// Columns declared Any accept any Val; a variable's static type is unified
// with every column it binds (spec.md §3).
type Type struct {
	any  bool
	kind Kind
}

// Any is the top of the type lattice.
var Any = Type{any: true}

// Of builds a concrete Type from a Kind.
func Of(k Kind) Type { return Type{kind: k} }

// IsAny reports whether t is the top type.
func (t Type) IsAny() bool { return t.any }

// Kind returns the concrete Kind, or 0 if t is Any.
func (t Type) Kind() Kind { return t.kind }

func (t Type) String() string {
	if t.any {
		return "any"
	}
	return t.kind.String()
}

// Unify computes the greatest lower bound of a and b in the type lattice
// (Any is the top):
// unify(t, t) = t, unify(Any, t) = t, otherwise failure.
func Unify(a, b Type) (Type, bool) {
	switch {
	case a.any:
		return b, true
	case b.any:
		return a, true
	case a.kind == b.kind:
		return a, true
	default:
		return Type{}, false
	}
}
