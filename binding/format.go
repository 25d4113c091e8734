package binding

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/delaneyj/unitgraph/observed"
	"github.com/valyala/quicktemplate"
)

// Format builds a string from positional bindings. See FormatNamed for the
// placeholder syntax; positional placeholders consume args in order and
// args are also available by index, as in %[0].
func Format(format string, args ...Binding) Binding {
	named := make(map[string]Binding, len(args))
	for i, a := range args {
		named[strconv.Itoa(i)] = a
	}
	return FormatNamed(format, named)
}

// FormatNamed builds a string from named bindings.
//
//	%s %d %.2f %v   next positional argument with a fmt verb
//	%[name]         named argument, fmt.Sprint
//	%[name|.1f]     named argument with a fmt verb
//	%[name|plural:# item:# items]
//	                "one" form when the value is 1, "other" otherwise; # is
//	                replaced by the value
//	%[name|@other]  the specifier is the current value of the binding
//	                named other
//	%%              a literal percent sign
//
// The result is produced once every referenced binding has resolved and
// again whenever any of them, including nested specifiers, changes.
func FormatNamed(format string, named map[string]Binding) Binding {
	parts, err := parseFormat(format)
	desc := fmt.Sprintf("format(%q)", format)
	if err != nil {
		return Binding{err: observed.NewUsageError("format", format, err), desc: desc}
	}

	index := map[string]int{}
	var operands []Binding
	use := func(name string) error {
		if _, ok := index[name]; ok {
			return nil
		}
		b, ok := named[name]
		if !ok {
			return fmt.Errorf("no binding for placeholder %q", name)
		}
		index[name] = len(operands)
		operands = append(operands, b)
		return nil
	}
	for i := range parts {
		p := &parts[i]
		if !p.arg {
			continue
		}
		if err := use(p.name); err != nil {
			return Binding{err: observed.NewUsageError("format", format, err), desc: desc}
		}
		if p.specRef != "" {
			if err := use(p.specRef); err != nil {
				return Binding{err: observed.NewUsageError("format", format, err), desc: desc}
			}
		}
	}

	if len(operands) == 0 {
		return Const(render(parts, index, nil))
	}
	b := join(desc, operands, func(vals []any) any {
		return render(parts, index, vals)
	})
	b.desc = desc
	return b
}

type formatPart struct {
	literal string
	arg     bool
	name    string
	spec    string
	specRef string
}

func parseFormat(format string) ([]formatPart, error) {
	var (
		parts []formatPart
		lit   strings.Builder
		pos   int
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, formatPart{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return nil, fmt.Errorf("dangling %% at offset %d", i)
		}
		switch next := format[i+1]; {
		case next == '%':
			lit.WriteByte('%')
			i++
		case next == '[':
			end := strings.IndexByte(format[i+2:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			body := format[i+2 : i+2+end]
			name, spec, _ := strings.Cut(body, "|")
			if name == "" {
				return nil, fmt.Errorf("empty placeholder at offset %d", i)
			}
			p := formatPart{arg: true, name: name, spec: spec}
			if strings.HasPrefix(spec, "@") {
				p.spec, p.specRef = "", spec[1:]
			}
			flush()
			parts = append(parts, p)
			i += 2 + end
		default:
			j := i + 1
			for j < len(format) && strings.IndexByte("+-# 0123456789.", format[j]) >= 0 {
				j++
			}
			if j >= len(format) {
				return nil, fmt.Errorf("missing verb at offset %d", i)
			}
			flush()
			parts = append(parts, formatPart{arg: true, name: strconv.Itoa(pos), spec: format[i+1 : j+1]})
			pos++
			i = j
		}
	}
	flush()
	return parts, nil
}

func render(parts []formatPart, index map[string]int, vals []any) string {
	bb := quicktemplate.AcquireByteBuffer()
	defer quicktemplate.ReleaseByteBuffer(bb)
	qw := quicktemplate.AcquireWriter(bb)
	defer quicktemplate.ReleaseWriter(qw)

	w := qw.N()
	for _, p := range parts {
		if !p.arg {
			w.S(p.literal)
			continue
		}
		spec := p.spec
		if p.specRef != "" {
			spec = text(vals[index[p.specRef]])
		}
		w.S(formatValue(vals[index[p.name]], spec))
	}
	return string(bb.B)
}

func formatValue(v any, spec string) string {
	if one, other, ok := strings.Cut(spec, ":"); ok && one == "plural" {
		one, other, _ = strings.Cut(other, ":")
		form := other
		if n, ok := toNumber(v); ok && n == 1 {
			form = one
		}
		return strings.ReplaceAll(form, "#", text(v))
	}
	if v == nil {
		return ""
	}
	if spec == "" {
		return text(v)
	}
	format := "%" + spec
	return fmt.Sprintf(format, coerceVerb(format, v))
}

// coerceVerb adapts numeric values to the first verb of a fmt format so that
// %d prints floats and %f prints integers.
func coerceVerb(format string, v any) any {
	verb := verbOf(format)
	n, ok := number(v)
	if !ok {
		return v
	}
	switch verb {
	case 'd', 'b', 'o', 'x', 'X':
		return int64(math.Round(n))
	case 'e', 'E', 'f', 'F', 'g', 'G':
		return n
	}
	return v
}

// verbOf returns the first verb of a fmt format, skipping flags, width,
// precision and %% escapes. It returns 0 if there is none.
func verbOf(format string) byte {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && strings.IndexByte("+-# 0123456789.[]*", format[i]) >= 0 {
			i++
		}
		if i < len(format) && format[i] != '%' {
			return format[i]
		}
	}
	return 0
}
