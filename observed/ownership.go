package observed

import (
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Attach makes owner the exclusive owner of child. If child already has an
// owner it is detached from it first, and the old owner's hooks run before
// the new owner's. Attaching to the current owner is a no-op.
func Attach(owner, child Object) error {
	if owner == nil || child == nil {
		return NewUsageError("attach", nil, errors.New("nil unit"))
	}
	o, c := owner.Base(), child.Base()
	switch {
	case o.state != stateActive:
		return NewUsageError("attach", owner, ErrUnlinked)
	case c.state != stateActive:
		return NewUsageError("attach", child, ErrUnlinked)
	case c == o || c.IsAncestorOf(o):
		return NewUsageError("attach", child, ErrCycle)
	case c.owner == o:
		return nil
	}
	if g, ok := o.Self().(AttachGuard); ok {
		if err := g.CanAttach(c.Self()); err != nil {
			if !errors.Is(err, ErrRestricted) {
				err = fmt.Errorf("%w: %w", ErrRestricted, err)
			}
			return NewUsageError("attach", child, err)
		}
	}

	old := c.owner
	if old != nil {
		old.removeChild(c)
	}
	c.owner = o
	o.addChild(c)

	if h, ok := o.Self().(ChildAttacher); ok {
		callHook("child attached", func() { h.ChildAttached(c.Self()) })
	}
	if h, ok := c.Self().(Attacher); ok {
		callHook("attached", func() { h.Attached(o.Self()) })
	}
	c.ownerChanged(old, o)
	return nil
}

// Detach removes child from its owner without unlinking it.
func Detach(child Object) {
	c := child.Base()
	old := c.owner
	if old == nil {
		return
	}
	old.removeChild(c)
	if c.state == stateActive {
		c.ownerChanged(old, nil)
	}
}

func (u *Unit) addChild(c *Unit) {
	if u.children == nil {
		u.children = mapset.NewThreadUnsafeSet[*Unit]()
	}
	u.children.Add(c)
	u.order = append(u.order, c)
}

// removeChild clears the edge and runs the owner's detach hook.
func (u *Unit) removeChild(c *Unit) {
	if u.children == nil || !u.children.Contains(c) {
		return
	}
	u.children.Remove(c)
	u.order = slices.DeleteFunc(u.order, func(x *Unit) bool { return x == c })
	c.owner = nil
	if h, ok := u.Self().(ChildDetacher); ok {
		callHook("child detached", func() { h.ChildDetached(c.Self()) })
	}
}

func (u *Unit) ownerChanged(old, new *Unit) {
	oldSelf, newSelf := selfOf(old), selfOf(new)
	for _, e := range u.ownerHooks.snapshot() {
		if e.removed {
			continue
		}
		fn := e.fn
		callHook("owner change", func() { fn(oldSelf, newSelf) })
	}
}

// Unlink permanently retires the unit. Children are unlinked depth first,
// each one completely before the next, then the unit detaches from its owner
// and the unlink hooks run. Calling Unlink again does nothing.
func (u *Unit) Unlink() {
	if u.state != stateActive {
		return
	}
	u.ID()
	u.state = stateUnlinking

	for _, c := range slices.Clone(u.order) {
		c.Unlink()
	}
	if u.owner != nil {
		u.owner.removeChild(u)
	}
	u.state = stateUnlinked

	if h, ok := u.Self().(Unlinker); ok {
		callHook("unlinked", h.Unlinked)
	}
	hooks := u.unlinkHooks
	u.unlinkHooks = nil
	for _, e := range hooks {
		if e.removed {
			continue
		}
		callHook("unlinked", e.fn)
	}

	u.listeners.clear()
	u.interceptor = nil
	u.ownerHooks.clear()
	for _, s := range u.streams {
		s.end()
	}
	u.streams = nil
}

func callHook(op string, fn func()) {
	guard(op, "", func() error {
		fn()
		return nil
	})
}
