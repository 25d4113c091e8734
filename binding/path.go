package binding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrPath = errors.New("invalid binding path")

type SegmentKind uint8

const (
	SegProperty SegmentKind = iota
	SegIndex
	SegFirst
	SegLast
	SegAll
)

// Reserved segment markers.
const (
	MarkFirst = "#first"
	MarkLast  = "#last"
	MarkAll   = "*"
)

type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

func (s Segment) String() string {
	switch s.Kind {
	case SegIndex:
		return strconv.Itoa(s.Index)
	case SegFirst:
		return MarkFirst
	case SegLast:
		return MarkLast
	case SegAll:
		return MarkAll
	default:
		return s.Name
	}
}

// Path is a parsed binding path. A leading "!" negates the result and a
// leading "!!" coerces it to a boolean.
type Path struct {
	Segments []Segment
	Negate   bool
	Coerce   bool
}

func ParsePath(s string) (Path, error) {
	var p Path
	switch {
	case strings.HasPrefix(s, "!!"):
		p.Coerce = true
		s = s[2:]
	case strings.HasPrefix(s, "!"):
		p.Negate = true
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return p, nil
	}
	parts := strings.Split(s, ".")
	p.Segments = make([]Segment, len(parts))
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("%w %q: segment %d: %w", ErrPath, s, i, err)
		}
		p.Segments[i] = seg
	}
	return p, nil
}

func parseSegment(part string) (Segment, error) {
	switch part {
	case "":
		return Segment{}, errors.New("empty segment")
	case MarkFirst:
		return Segment{Kind: SegFirst}, nil
	case MarkLast:
		return Segment{Kind: SegLast}, nil
	case MarkAll:
		return Segment{Kind: SegAll}, nil
	}
	if part[0] >= '0' && part[0] <= '9' {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Segment{}, fmt.Errorf("bad index %q", part)
		}
		return Segment{Kind: SegIndex, Index: n}, nil
	}
	if strings.ContainsAny(part, "#*! ") {
		return Segment{}, fmt.Errorf("bad property name %q", part)
	}
	return Segment{Kind: SegProperty, Name: part}, nil
}

func (p Path) String() string {
	var sb strings.Builder
	switch {
	case p.Coerce:
		sb.WriteString("!!")
	case p.Negate:
		sb.WriteString("!")
	}
	for i, s := range p.Segments {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}
