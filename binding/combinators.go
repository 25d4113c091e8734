package binding

import (
	"fmt"
	"strings"
)

// Map transforms the bound value with fn. fn must not have side effects.
func (b Binding) Map(fn func(v any) any) Binding {
	return b.with("map", fn)
}

func (b Binding) Not() Binding {
	return b.with("not", func(v any) any { return !Truthy(v) })
}

func (b Binding) Bool() Binding {
	return b.with("bool", func(v any) any { return Truthy(v) })
}

// Else replaces a missing (nil) value with v.
func (b Binding) Else(v any) Binding {
	return b.with("else", func(x any) any {
		if x == nil {
			return v
		}
		return x
	})
}

// Text converts the value to a string using a fmt format with one verb, or
// fmt.Sprint when format is empty. Missing values become missing.
func (b Binding) Text(format string, missing string) Binding {
	return b.with("text", func(v any) any {
		if v == nil {
			return missing
		}
		if format == "" {
			return text(v)
		}
		return fmt.Sprintf(format, coerceVerb(format, v))
	})
}

// Number converts the value to a float64, parsing strings. Values that are
// missing or not numeric become missing.
func (b Binding) Number(missing float64) Binding {
	return b.with("number", func(v any) any {
		if n, ok := toNumber(v); ok {
			return n
		}
		return missing
	})
}

// Select yields whenTrue if the value is truthy and whenFalse otherwise.
func (b Binding) Select(whenTrue, whenFalse any) Binding {
	return b.with("select", func(v any) any {
		if Truthy(v) {
			return whenTrue
		}
		return whenFalse
	})
}

func (b Binding) Equals(v any) Binding {
	return b.with("equals", func(x any) any { return Equal(x, v) })
}

// Less reports whether the value orders before v. Values that cannot be
// ordered compare false.
func (b Binding) Less(v any) Binding {
	return b.with("less", func(x any) any {
		c, ok := compare(x, v)
		return ok && c < 0
	})
}

func (b Binding) Greater(v any) Binding {
	return b.with("greater", func(x any) any {
		c, ok := compare(x, v)
		return ok && c > 0
	})
}

// Matches reports whether the value equals the value of other. Nothing is
// produced until both have resolved.
func (b Binding) Matches(other Binding) Binding {
	return join(b.desc+".matches("+other.desc+")", []Binding{b, other}, func(vals []any) any {
		return Equal(vals[0], vals[1])
	})
}

// And yields the first falsy operand, or the last operand if all are truthy.
// Nothing is produced until every operand has resolved; after that, every
// operand update produces a value even if it is unchanged.
func (b Binding) And(others ...Binding) Binding {
	return join(chainDesc(b, "and", others), append([]Binding{b}, others...), func(vals []any) any {
		for _, v := range vals[:len(vals)-1] {
			if !Truthy(v) {
				return v
			}
		}
		return vals[len(vals)-1]
	})
}

// Or yields the first truthy operand, or the last operand if none is. It
// settles like And.
func (b Binding) Or(others ...Binding) Binding {
	return join(chainDesc(b, "or", others), append([]Binding{b}, others...), func(vals []any) any {
		for _, v := range vals[:len(vals)-1] {
			if Truthy(v) {
				return v
			}
		}
		return vals[len(vals)-1]
	})
}

// All yields the slice of operand values once every operand has resolved.
func All(operands ...Binding) Binding {
	return join(chainDesc(Binding{desc: "all"}, "", operands), operands, func(vals []any) any {
		out := make([]any, len(vals))
		copy(out, vals)
		return out
	})
}

func chainDesc(first Binding, op string, rest []Binding) string {
	parts := make([]string, len(rest))
	for i, r := range rest {
		parts[i] = r.desc
	}
	return fmt.Sprintf("%s.%s(%s)", first.desc, op, strings.Join(parts, ", "))
}
