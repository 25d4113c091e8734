package binding

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/delaneyj/unitgraph/observed"
)

// Sequence is implemented by ordered containers so that index, #first,
// #last and * segments can resolve against them.
type Sequence interface {
	Len() int
	ElementAt(i int) (any, bool)
}

// live hides unlinked units: a binding never yields a retired unit. A nil
// pointer stored as a unit counts as missing.
func live(v any) any {
	if o, ok := v.(observed.Object); ok && (isNil(o) || o.Base().IsUnlinked()) {
		return nil
	}
	return v
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// lookup reads one segment from v. Anything that cannot be read yields nil.
func lookup(v any, seg Segment) any {
	v = live(v)
	if v == nil {
		return nil
	}
	switch seg.Kind {
	case SegProperty:
		switch x := v.(type) {
		case observed.Getter:
			out, _ := x.Property(seg.Name)
			return live(out)
		case map[string]any:
			return live(x[seg.Name])
		}
		return nil
	case SegAll:
		if _, ok := v.(Sequence); ok {
			return v
		}
		return nil
	}
	seq, ok := v.(Sequence)
	if !ok {
		return nil
	}
	i := seg.Index
	switch seg.Kind {
	case SegFirst:
		i = 0
	case SegLast:
		i = seq.Len() - 1
	}
	if i < 0 || i >= seq.Len() {
		return nil
	}
	out, _ := seq.ElementAt(i)
	return live(out)
}

// Truthy reports whether v counts as true for Not, Bool, And and Or: nil,
// false, zero numbers, empty strings and unlinked units are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case observed.Object:
		return !isNil(x) && !x.Base().IsUnlinked()
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// number converts numeric kinds to float64 without parsing strings.
func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toNumber is number plus string parsing and booleans.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return number(v)
}

// Equal compares numbers by value and everything else by identity.
func Equal(a, b any) bool {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return na == nb
		}
	}
	return observed.Same(a, b)
}

// compare orders numbers and strings. ok is false for anything else.
func compare(a, b any) (c int, ok bool) {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			switch {
			case na < nb:
				return -1, true
			case na > nb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
