package value

import "github.com/spf13/cast"

// ToInt64 coerces any numeric Val to an int64, widening across the integer
// kinds the way a user-defined predicate or aggregate argument typically
// needs to (e.g. summing a column declared u32 into an s64 accumulator).
// Non-numeric kinds fail via spf13/cast's error return.
func ToInt64(v Val) (int64, error) {
	if v.IsNumeric() {
		if v.kind == KindS8 || v.kind == KindS16 || v.kind == KindS32 || v.kind == KindS64 {
			return v.i, nil
		}
		return cast.ToInt64E(v.u)
	}
	return cast.ToInt64E(v.String())
}

// ToFloat64 coerces a numeric Val to float64, used by aggregates (e.g. an
// average) that need a wider intermediate representation than any single
// integer Kind.
func ToFloat64(v Val) (float64, error) {
	if v.kind == KindS8 || v.kind == KindS16 || v.kind == KindS32 || v.kind == KindS64 {
		return cast.ToFloat64E(v.i)
	}
	if v.IsNumeric() {
		return cast.ToFloat64E(v.u)
	}
	return cast.ToFloat64E(v.String())
}

// ToString renders any Val as a plain string, for diagnostics and for
// user predicates that accept heterogeneous args by stringifying them.
func ToString(v Val) string {
	return cast.ToString(v.String())
}
