package observed

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

var lastID atomic.Uint64

// Object is implemented by every type built on a Unit. Embedding Unit is
// enough to satisfy it.
type Object interface {
	Base() *Unit
}

type unitState uint8

const (
	stateActive unitState = iota
	stateUnlinking
	stateUnlinked
)

// Optional hooks, checked on the value passed to Init.
type (
	ChildAttacher interface{ ChildAttached(child Object) }
	ChildDetacher interface{ ChildDetached(child Object) }
	Attacher      interface{ Attached(owner Object) }
	Unlinker      interface{ Unlinked() }
	AttachGuard   interface{ CanAttach(child Object) error }
)

// Unit is the base lifecycle entity of the object graph. The zero value is
// ready to use; types that embed a Unit should call Init with themselves so
// hooks and scope lookups see the outer type.
//
// A Unit is not safe for concurrent use. All mutation happens on one
// goroutine; only Streams may be drained elsewhere.
type Unit struct {
	id    uint64
	self  Object
	state unitState

	owner    *Unit
	children mapset.Set[*Unit]
	order    []*Unit

	listeners   entries[Listener]
	interceptor *entry[Interceptor]
	streams     []*Stream

	ownerHooks  entries[func(old, new Object)]
	unlinkHooks entries[func()]
}

func New() *Unit {
	u := &Unit{}
	u.Init(u)
	return u
}

// Init records self as the value that embeds u.
func (u *Unit) Init(self Object) {
	if self == nil || self.Base() != u {
		panic(fmt.Sprintf("observed: Init called with %T that does not embed this unit", self))
	}
	u.self = self
	u.ID()
}

func (u *Unit) Base() *Unit {
	return u
}

// Self returns the value registered with Init, or u itself.
func (u *Unit) Self() Object {
	if u.self != nil {
		return u.self
	}
	return u
}

// ID returns a process unique handle for the unit.
func (u *Unit) ID() uint64 {
	if u.id == 0 {
		u.id = lastID.Add(1)
	}
	return u.id
}

func (u *Unit) IsUnlinked() bool {
	return u.state != stateActive
}

func (u *Unit) String() string {
	name := "unit"
	if u.self != nil && u.self != Object(u) {
		name = reflect.TypeOf(u.self).String()
	}
	return fmt.Sprintf("%s#%d", name, u.ID())
}

// Whence returns the current owner, or nil.
func (u *Unit) Whence() Object {
	return selfOf(u.owner)
}

// Children returns attached children in attach order.
func (u *Unit) Children() []Object {
	out := make([]Object, len(u.order))
	for i, c := range u.order {
		out[i] = c.Self()
	}
	return out
}

func (u *Unit) ChildCount() int {
	return len(u.order)
}

// IsAncestorOf reports whether u owns other, directly or transitively.
func (u *Unit) IsAncestorOf(other Object) bool {
	if other == nil {
		return false
	}
	for p := other.Base().owner; p != nil; p = p.owner {
		if p == u {
			return true
		}
	}
	return false
}

// Closest walks up the ownership graph, starting at the owner, and returns
// the first ancestor accepted by match.
func (u *Unit) Closest(match func(Object) bool) Object {
	for p := u.owner; p != nil; p = p.owner {
		if s := p.Self(); match(s) {
			return s
		}
	}
	return nil
}

// OnOwnerChange registers fn to run after the unit moves to a new owner or is
// detached. It does not run when the unit is unlinked.
func (u *Unit) OnOwnerChange(fn func(old, new Object)) (cancel func()) {
	if u.state == stateUnlinked {
		return func() {}
	}
	return u.ownerHooks.add(fn)
}

// OnUnlink registers fn to run once when the unit is unlinked.
func (u *Unit) OnUnlink(fn func()) (cancel func()) {
	if u.state == stateUnlinked {
		return func() {}
	}
	return u.unlinkHooks.add(fn)
}

func selfOf(u *Unit) Object {
	if u == nil {
		return nil
	}
	return u.Self()
}

// Same reports whether a and b are the identical value. Values of types that
// cannot be compared are never the same.
func Same(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

type entry[F any] struct {
	fn      F
	removed bool
}

// entries is a registration list that tolerates removal while a snapshot of
// it is being walked.
type entries[F any] []*entry[F]

func (l *entries[F]) add(fn F) func() {
	e := &entry[F]{fn: fn}
	*l = append(*l, e)
	return func() {
		if e.removed {
			return
		}
		e.removed = true
		*l = slices.DeleteFunc(*l, func(x *entry[F]) bool { return x == e })
	}
}

func (l entries[F]) snapshot() entries[F] {
	return slices.Clone(l)
}

func (l *entries[F]) clear() {
	for _, e := range *l {
		e.removed = true
	}
	*l = nil
}
