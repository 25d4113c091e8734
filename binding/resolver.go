package binding

import (
	"github.com/delaneyj/unitgraph/observed"
)

// hop is the observation of one path segment on the value it is read from.
type hop struct {
	source any
	token  uint64
	cancel func()
}

// chain resolves a path from a start value and keeps one hop per segment it
// currently traverses. When a hop's source reports a change, every hop after
// it is torn down and rebuilt against the new value. Each hop carries a
// token; callbacks from a hop whose token no longer sits at its position are
// stale and ignored.
type chain struct {
	path   []Segment
	start  any
	hops   []hop
	tail   func()
	value  any
	tokens uint64
	closed bool
	notify func(v any)
}

func newChain(path []Segment, notify func(v any)) *chain {
	return &chain{path: path, notify: notify}
}

// reset points the chain at a new start value, rebuilds it and notifies.
func (c *chain) reset(start any) {
	c.teardown(0)
	c.start = start
	c.walk(0, start)
	c.notify(c.value)
}

// refresh re-reads hop i from its unchanged source.
func (c *chain) refresh(i int) {
	src := c.hops[i].source
	c.teardown(i)
	c.walk(i, src)
	c.notify(c.value)
}

func (c *chain) current(i int, token uint64) bool {
	return !c.closed && i < len(c.hops) && c.hops[i].token == token
}

func (c *chain) walk(from int, cur any) {
	for i := from; i < len(c.path); i++ {
		cur = live(cur)
		if cur == nil {
			c.value = nil
			return
		}
		c.tokens++
		h := hop{source: cur, token: c.tokens}
		if o, ok := cur.(observed.Object); ok {
			idx, token := i, h.token
			h.cancel = watch(o, c.path[i], func() {
				if c.current(idx, token) {
					c.refresh(idx)
				}
			})
		}
		c.hops = append(c.hops, h)
		cur = lookup(cur, c.path[i])
	}
	c.value = live(cur)
	if o, ok := c.value.(observed.Object); ok {
		last, token := len(c.hops)-1, uint64(0)
		if last >= 0 {
			token = c.hops[last].token
		}
		c.tail = o.Base().OnUnlink(func() {
			switch {
			case c.closed:
			case last < 0:
				c.reset(c.start)
			case c.current(last, token):
				c.refresh(last)
			}
		})
	}
}

func (c *chain) teardown(from int) {
	if c.tail != nil {
		c.tail()
		c.tail = nil
	}
	for i := len(c.hops) - 1; i >= from; i-- {
		if cancel := c.hops[i].cancel; cancel != nil {
			cancel()
		}
		c.hops[i] = hop{}
	}
	c.hops = c.hops[:from]
}

func (c *chain) close() {
	if c.closed {
		return
	}
	c.teardown(0)
	c.closed = true
}

// watch calls fn when the value of seg read from o may have changed. Units
// are watched through their own change events; a change without a property
// is a generic notification and refreshes the hop whatever segment it reads.
// Events re-emitted on o on behalf of another unit are ignored.
func watch(o observed.Object, seg Segment, fn func()) (cancel func()) {
	u := o.Base()
	_, isSeq := o.(Sequence)
	stopEvents := u.ListenNamed(observed.EventChange, func(e observed.Event) error {
		if e.Source != nil && e.Source.Base() != u {
			return nil
		}
		switch data := e.Data.(type) {
		case nil:
			fn()
		case observed.Change:
			if isSeq && seg.Kind != SegProperty || data.Property == seg.Name {
				fn()
			}
		default:
			if isSeq {
				fn()
			}
		}
		return nil
	})
	stopUnlink := u.OnUnlink(fn)
	return func() {
		stopEvents()
		stopUnlink()
	}
}

// scoped resolves the start of a path relative to a target, either its
// current owner or its nearest ancestor carrying a label, and follows the
// target and its ancestors as they move.
type scoped struct {
	target   *observed.Unit
	label    observed.Label
	labeled  bool
	chain    *chain
	scope    observed.Object
	resolved bool
	watchers []func()
}

func (s *scoped) find() (scope observed.Object, path []*observed.Unit) {
	path = append(path, s.target)
	if !s.labeled {
		return s.target.Whence(), path
	}
	for o := s.target.Whence(); o != nil; o = o.Base().Whence() {
		if l, ok := o.(observed.Labeled); ok && l.HasLabel(s.label) {
			return o, path
		}
		path = append(path, o.Base())
	}
	return nil, path
}

func (s *scoped) update() {
	if s.chain.closed {
		return
	}
	scope, path := s.find()
	s.unwatch()
	for _, u := range path {
		s.watchers = append(s.watchers, u.OnOwnerChange(func(_, _ observed.Object) {
			s.update()
		}))
	}

	switch {
	case scope == nil && !s.resolved:
	case scope == nil:
		s.scope = nil
		s.chain.teardown(0)
		s.chain.value = nil
		s.chain.notify(nil)
	case s.resolved && scope == s.scope:
	default:
		s.scope = scope
		s.resolved = true
		s.chain.reset(scope)
	}
}

func (s *scoped) unwatch() {
	for _, stop := range s.watchers {
		stop()
	}
	s.watchers = s.watchers[:0]
}

func (s *scoped) close() {
	s.unwatch()
	s.chain.close()
}
