package container

import (
	"errors"
	"fmt"
	"iter"
	"reflect"

	"github.com/delaneyj/unitgraph/observed"
	"go.uber.org/multierr"
)

type node[T observed.Object] struct {
	item       T
	prev, next *node[T]
	removed    bool
	stop       func()
}

// List is an ordered set of units backed by a doubly linked list and an
// identity index. It is not safe for concurrent use.
type List[T observed.Object] struct {
	observed.Unit

	head, tail *node[T]
	index      map[*observed.Unit]*node[T]

	owning    bool
	propagate bool
	restrict  func(item T) error

	relinks int
}

func NewList[T observed.Object]() *List[T] {
	l := &List[T]{}
	l.InitList(l)
	return l
}

// InitList prepares a List embedded in self.
func (l *List[T]) InitList(self observed.Object) {
	l.index = map[*observed.Unit]*node[T]{}
	l.Init(self)
}

func (l *List[T]) Len() int {
	return len(l.index)
}

// Relinks returns how many nodes ReplaceAll has moved over the life of the
// list. Items that keep their position are not counted.
func (l *List[T]) Relinks() int {
	return l.relinks
}

// Owning reports whether the list owns its items.
func (l *List[T]) Owning() bool {
	return l.owning
}

// Own switches the list to owning mode. Items already in the list are
// attached; the ones that cannot be are dropped and reported.
func (l *List[T]) Own(opts ...OwnOption) error {
	if l.IsUnlinked() {
		return observed.NewUsageError("own", l, observed.ErrUnlinked)
	}
	cfg := ownConfig{propagate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if l.owning {
		l.propagate = cfg.propagate
		return nil
	}
	l.owning, l.propagate = true, cfg.propagate

	var errs error
	changed := false
	for n := l.head; n != nil; {
		next := n.next
		n.untrack()
		if err := observed.Attach(l.Self(), n.item); err != nil {
			errs = multierr.Append(errs, err)
			l.drop(n)
			changed = true
		} else {
			l.track(n)
		}
		n = next
	}
	if changed {
		l.EmitChange()
	}
	return errs
}

// Restrict limits the items the list accepts to those check approves. The
// restriction is only installed if every current item passes it.
func (l *List[T]) Restrict(check func(item T) error) error {
	if check != nil {
		var errs error
		for n := l.head; n != nil; n = n.next {
			if err := restricted(n.item, check); err != nil {
				errs = multierr.Append(errs, observed.NewUsageError("restrict", n.item, err))
			}
		}
		if errs != nil {
			return errs
		}
	}
	l.restrict = check
	return nil
}

// CanAttach rejects units that are not T or fail the restriction, whoever
// tries to attach them to the list.
func (l *List[T]) CanAttach(child observed.Object) error {
	item, ok := child.(T)
	if !ok {
		return fmt.Errorf("%w: %T is not %v", observed.ErrRestricted, child, reflect.TypeFor[T]())
	}
	return restricted(item, l.restrict)
}

func restricted[T observed.Object](item T, check func(T) error) error {
	if check == nil {
		return nil
	}
	err := check(item)
	if err == nil || errors.Is(err, observed.ErrRestricted) {
		return err
	}
	return fmt.Errorf("%w: %w", observed.ErrRestricted, err)
}

// validate checks that item may be inserted. seen holds the items of the
// same batch that were already accepted; items already in the list are
// duplicates as well.
func (l *List[T]) validate(op string, item T, seen map[*observed.Unit]bool) error {
	if isNil(item) {
		return observed.NewUsageError(op, nil, errors.New("nil item"))
	}
	u := item.Base()
	switch {
	case u.IsUnlinked():
		return observed.NewUsageError(op, item, observed.ErrUnlinked)
	case seen[u], l.index[u] != nil:
		return observed.NewUsageError(op, item, observed.ErrDuplicate)
	case l.owning && (u == &l.Unit || u.IsAncestorOf(l)):
		return observed.NewUsageError(op, item, observed.ErrCycle)
	}
	if err := restricted(item, l.restrict); err != nil {
		return observed.NewUsageError(op, item, err)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Add appends items in order. Nothing is added unless every item is valid;
// the errors for all invalid items are returned together.
func (l *List[T]) Add(items ...T) error {
	return l.insertAll("add", items, nil)
}

// Insert appends item.
func (l *List[T]) Insert(item T) error {
	return l.insertAll("insert", []T{item}, nil)
}

// InsertBefore inserts item in front of before, which must be in the list.
func (l *List[T]) InsertBefore(item, before T) error {
	if isNil(before) {
		return observed.NewUsageError("insert", nil, errors.New("nil position"))
	}
	at, ok := l.index[before.Base()]
	if !ok {
		return observed.NewUsageError("insert", before, observed.ErrNotFound)
	}
	return l.insertAll("insert", []T{item}, at)
}

func (l *List[T]) insertAll(op string, items []T, before *node[T]) error {
	if l.IsUnlinked() {
		return observed.NewUsageError(op, l, observed.ErrUnlinked)
	}
	if len(items) == 0 {
		return nil
	}
	seen := make(map[*observed.Unit]bool, len(items))
	var errs error
	for _, item := range items {
		if err := l.validate(op, item, seen); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		seen[item.Base()] = true
	}
	if errs != nil {
		return errs
	}

	added := make([]*node[T], 0, len(items))
	for _, item := range items {
		n := &node[T]{item: item}
		l.index[item.Base()] = n
		l.link(n, before)
		added = append(added, n)
	}
	errs = l.adopt(added)
	l.EmitChange()
	return errs
}

// adopt attaches freshly linked nodes in owning mode and starts watching
// them. Nodes that cannot be attached are dropped again.
func (l *List[T]) adopt(added []*node[T]) error {
	var errs error
	for _, n := range added {
		if n.removed {
			continue
		}
		if l.owning {
			if err := observed.Attach(l.Self(), n.item); err != nil {
				errs = multierr.Append(errs, err)
				l.drop(n)
				continue
			}
		}
		l.track(n)
	}
	return errs
}

// Remove takes item out of the list. In owning mode the item is unlinked
// after the change event, so bindings move off it first.
func (l *List[T]) Remove(item T) error {
	if isNil(item) {
		return observed.NewUsageError("remove", nil, errors.New("nil item"))
	}
	n, ok := l.index[item.Base()]
	if !ok {
		return observed.NewUsageError("remove", item, observed.ErrNotFound)
	}
	l.drop(n)
	l.EmitChange()
	if l.owning {
		item.Base().Unlink()
	}
	return nil
}

// Clear removes every item, unlinking them in owning mode.
func (l *List[T]) Clear() {
	if l.head == nil {
		return
	}
	var gone []T
	for n := l.head; n != nil; {
		next := n.next
		gone = append(gone, n.item)
		l.drop(n)
		n = next
	}
	l.EmitChange()
	if l.owning {
		for _, item := range gone {
			item.Base().Unlink()
		}
	}
}

// Reverse reverses the order of the items in place.
func (l *List[T]) Reverse() {
	if l.Len() < 2 {
		return
	}
	for n := l.head; n != nil; n = n.prev {
		n.prev, n.next = n.next, n.prev
	}
	l.head, l.tail = l.tail, l.head
	l.EmitChange()
}

func (l *List[T]) Has(item T) bool {
	if isNil(item) {
		return false
	}
	_, ok := l.index[item.Base()]
	return ok
}

// IndexOf returns the position of item, or -1.
func (l *List[T]) IndexOf(item T) int {
	if !l.Has(item) {
		return -1
	}
	i := 0
	for n := l.head; n != nil; n = n.next {
		if n.item.Base() == item.Base() {
			return i
		}
		i++
	}
	return -1
}

// Get returns the item at position i, walking from whichever end is closer.
func (l *List[T]) Get(i int) (item T, ok bool) {
	size := l.Len()
	if i < 0 || i >= size {
		return item, false
	}
	if i < size/2 {
		n := l.head
		for ; i > 0; i-- {
			n = n.next
		}
		return n.item, true
	}
	n := l.tail
	for j := size - 1; j > i; j-- {
		n = n.prev
	}
	return n.item, true
}

func (l *List[T]) First() (item T, ok bool) {
	if l.head == nil {
		return item, false
	}
	return l.head.item, true
}

func (l *List[T]) Last() (item T, ok bool) {
	if l.tail == nil {
		return item, false
	}
	return l.tail.item, true
}

// ElementAt is Get for readers that do not know T.
func (l *List[T]) ElementAt(i int) (any, bool) {
	item, ok := l.Get(i)
	if !ok {
		return nil, false
	}
	return item, true
}

func (l *List[T]) ToSlice() []T {
	out := make([]T, 0, l.Len())
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.item)
	}
	return out
}

// All iterates the items front to back. The loop body may remove the
// current item or any item already visited.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := l.head; n != nil; {
			next := n.next
			if !yield(n.item) {
				return
			}
			if !n.removed {
				next = n.next
			}
			if next != nil && next.removed {
				return
			}
			n = next
		}
	}
}

func (l *List[T]) Find(match func(item T) bool) (item T, ok bool) {
	for n := l.head; n != nil; n = n.next {
		if match(n.item) {
			return n.item, true
		}
	}
	return item, false
}

func (l *List[T]) Filter(match func(item T) bool) []T {
	var out []T
	for n := l.head; n != nil; n = n.next {
		if match(n.item) {
			out = append(out, n.item)
		}
	}
	return out
}

// ChildDetached drops an owned item that moved to another owner or was
// unlinked. The item itself is left alone.
func (l *List[T]) ChildDetached(child observed.Object) {
	n, ok := l.index[child.Base()]
	if !ok || !l.owning {
		return
	}
	l.drop(n)
	l.EmitChange()
}

// Unlinked releases the items of a list that does not own them.
func (l *List[T]) Unlinked() {
	for n := l.head; n != nil; {
		next := n.next
		l.drop(n)
		n = next
	}
}

// link inserts n before at, or at the tail when at is nil.
func (l *List[T]) link(n, at *node[T]) {
	n.removed = false
	if at == nil {
		n.prev, n.next = l.tail, nil
		if l.tail != nil {
			l.tail.next = n
		} else {
			l.head = n
		}
		l.tail = n
		return
	}
	n.prev, n.next = at.prev, at
	if at.prev != nil {
		at.prev.next = n
	} else {
		l.head = n
	}
	at.prev = n
}

// unlinkNode takes n out of the chain without touching the index.
func (l *List[T]) unlinkNode(n *node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// drop removes n from the chain and the index in one step.
func (l *List[T]) drop(n *node[T]) {
	if n.removed {
		return
	}
	l.unlinkNode(n)
	n.removed = true
	delete(l.index, n.item.Base())
	n.untrack()
}

// track starts watching an item: owned items have their events re-emitted
// on the list, items that are not owned are dropped when they unlink.
func (l *List[T]) track(n *node[T]) {
	u := n.item.Base()
	switch {
	case l.owning && l.propagate:
		n.stop = u.Listen(func(e observed.Event) error {
			l.EmitEvent(e)
			return nil
		})
	case !l.owning:
		n.stop = u.OnUnlink(func() {
			if n.removed {
				return
			}
			l.drop(n)
			l.EmitChange()
		})
	}
}

func (n *node[T]) untrack() {
	if n.stop != nil {
		n.stop()
		n.stop = nil
	}
}
