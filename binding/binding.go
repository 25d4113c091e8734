package binding

import (
	"errors"
	"fmt"

	"github.com/delaneyj/unitgraph/observed"
)

// running is a source bound to a target. Nothing is evaluated until begin,
// so the handle can always be stopped, even if the first evaluation fails.
type running interface {
	begin()
	stop()
	hops() int
}

// source produces values for a target. update is called with every
// (re)evaluated value; the first call marks the source as resolved.
type source interface {
	start(target *observed.Unit, update func(v any)) running
}

// Binding describes a live read of a value relative to the unit it is
// applied to. Bindings are immutable; every combinator returns a new one.
type Binding struct {
	src  source
	pipe []func(any) any
	err  error
	desc string
}

// Bind reads path starting at the target's current owner, and follows the
// target when it moves to another owner.
func Bind(path string) Binding {
	return newPathBinding(path, func(p *pathSource) {})
}

// Scoped reads path starting at the nearest ancestor of the target labeled
// with label. Nested scopes with the same label resolve to the nearest one.
func Scoped(label observed.Label, path string) Binding {
	return newPathBinding(path, func(p *pathSource) {
		p.label = label
		p.labeled = true
	})
}

// From reads path starting at origin, whatever the target.
func From(origin observed.Object, path string) Binding {
	b := newPathBinding(path, func(p *pathSource) {
		p.origin = origin
	})
	if origin == nil && b.err == nil {
		b.err = observed.NewUsageError("bind", path, errors.New("nil origin"))
	}
	return b
}

// Const is a binding that always resolves to v.
func Const(v any) Binding {
	return Binding{src: constSource{v: v}, desc: fmt.Sprintf("const(%v)", v)}
}

// MustBind is Bind for paths known to be valid.
func MustBind(path string) Binding {
	b := Bind(path)
	if b.err != nil {
		panic(b.err)
	}
	return b
}

func newPathBinding(path string, configure func(p *pathSource)) Binding {
	p, err := ParsePath(path)
	if err != nil {
		return Binding{err: observed.NewUsageError("bind", path, err), desc: path}
	}
	ps := &pathSource{path: p.Segments}
	configure(ps)
	b := Binding{src: ps, desc: path}
	switch {
	case p.Negate:
		b = b.Not()
	case p.Coerce:
		b = b.Bool()
	}
	b.desc = path
	return b
}

func (b Binding) Err() error {
	return b.err
}

func (b Binding) String() string {
	return b.desc
}

func (b Binding) with(desc string, fn func(any) any) Binding {
	pipe := make([]func(any) any, len(b.pipe), len(b.pipe)+1)
	copy(pipe, b.pipe)
	return Binding{src: b.src, pipe: append(pipe, fn), err: b.err, desc: b.desc + "." + desc}
}

func (b Binding) start(target *observed.Unit, update func(v any)) running {
	if len(b.pipe) == 0 {
		return b.src.start(target, update)
	}
	return b.src.start(target, func(v any) {
		if out, ok := b.transform(v); ok {
			update(out)
		}
	})
}

// transform runs the pipe. A panicking transform is reported and the value
// is dropped.
func (b Binding) transform(v any) (out any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			observed.ReportError(&observed.CallbackError{Op: "binding " + b.desc, Panic: r})
			ok = false
		}
	}()
	for _, fn := range b.pipe {
		v = fn(v)
	}
	return v, true
}

// Apply starts the binding on target and calls update with the current value
// whenever it changes. The subscription ends when target is unlinked or
// Close is called. Applying to an unlinked target yields a subscription that
// never resolves.
func (b Binding) Apply(target observed.Object, update func(v any)) (*Subscription, error) {
	if b.err != nil {
		return nil, b.err
	}
	if target == nil {
		return nil, observed.NewUsageError("apply", b.desc, errors.New("nil target"))
	}
	s := &Subscription{binding: b}
	t := target.Base()
	if t.IsUnlinked() {
		s.closed = true
		return s, nil
	}
	s.stopUnlink = t.OnUnlink(s.Close)
	s.run = b.start(t, func(v any) {
		if s.closed {
			return
		}
		s.value = v
		s.resolved = true
		if update != nil {
			observed.Guard("binding update", func() error {
				update(v)
				return nil
			})
		}
	})
	observed.Guard("binding", func() error {
		s.run.begin()
		return nil
	})
	return s, nil
}

// ApplyTo binds a property of a record.
func (b Binding) ApplyTo(target *observed.Record, property string) (*Subscription, error) {
	return b.Apply(target.Self(), func(v any) {
		target.Set(property, v)
	})
}

// Subscription is a binding applied to a target.
type Subscription struct {
	binding    Binding
	run        running
	stopUnlink func()
	value      any
	resolved   bool
	closed     bool
}

func (s *Subscription) Value() any {
	return s.value
}

// Resolved reports whether the binding has produced a value yet.
func (s *Subscription) Resolved() bool {
	return s.resolved
}

func (s *Subscription) Closed() bool {
	return s.closed
}

// Hops returns the number of path segments currently observed.
func (s *Subscription) Hops() int {
	if s.run == nil {
		return 0
	}
	return s.run.hops()
}

func (s *Subscription) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.stopUnlink != nil {
		s.stopUnlink()
	}
	if s.run != nil {
		s.run.stop()
	}
}

type pathSource struct {
	path    []Segment
	origin  observed.Object
	label   observed.Label
	labeled bool
}

type pathRun struct {
	chain  *chain
	origin observed.Object
	scoped *scoped
}

func (r *pathRun) begin() {
	if r.scoped != nil {
		r.scoped.update()
		return
	}
	r.chain.reset(r.origin)
}

func (r *pathRun) stop() {
	if r.scoped != nil {
		r.scoped.close()
		return
	}
	r.chain.close()
}

func (r *pathRun) hops() int {
	return len(r.chain.hops)
}

func (p *pathSource) start(target *observed.Unit, update func(v any)) running {
	r := &pathRun{chain: newChain(p.path, update), origin: p.origin}
	if p.origin == nil {
		r.scoped = &scoped{
			target:  target,
			label:   p.label,
			labeled: p.labeled,
			chain:   r.chain,
		}
	}
	return r
}

type constSource struct {
	v any
}

type constRun struct {
	v      any
	update func(v any)
}

func (r constRun) begin()  { r.update(r.v) }
func (constRun) stop()     {}
func (constRun) hops() int { return 0 }

func (c constSource) start(_ *observed.Unit, update func(v any)) running {
	return constRun{v: c.v, update: update}
}

// joined starts every operand and calls combine once all of them resolved
// at least once, then again after every operand update.
type joined struct {
	operands []Binding
	combine  func(vals []any) any
}

type joinedRun []running

func (r joinedRun) begin() {
	for _, run := range r {
		run.begin()
	}
}

func (r joinedRun) stop() {
	for _, run := range r {
		if run != nil {
			run.stop()
		}
	}
}

func (r joinedRun) hops() (n int) {
	for _, run := range r {
		if run != nil {
			n += run.hops()
		}
	}
	return n
}

func (j joined) start(target *observed.Unit, update func(v any)) running {
	vals := make([]any, len(j.operands))
	seen := make([]bool, len(j.operands))
	pending := len(j.operands)
	runs := make(joinedRun, len(j.operands))
	for i, op := range j.operands {
		runs[i] = op.start(target, func(v any) {
			vals[i] = v
			if !seen[i] {
				seen[i] = true
				pending--
			}
			if pending == 0 {
				update(j.combine(vals))
			}
		})
	}
	return runs
}

func join(desc string, operands []Binding, combine func(vals []any) any) Binding {
	b := Binding{src: joined{operands: operands, combine: combine}, desc: desc}
	for _, op := range operands {
		if op.err != nil {
			b.err = op.err
			break
		}
	}
	return b
}
