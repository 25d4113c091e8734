package container

import (
	"slices"

	"github.com/delaneyj/unitgraph/observed"
	"go.uber.org/multierr"
)

// ReplaceAll makes the list hold exactly items, in that order. Items already
// in the list keep their node and are only relinked when they are out of
// place; items missing from the list are inserted and the rest are removed
// (unlinked in owning mode). The whole target is validated first, and a
// single change event is emitted when anything changed.
func (l *List[T]) ReplaceAll(items []T) error {
	if l.IsUnlinked() {
		return observed.NewUsageError("replace", l, observed.ErrUnlinked)
	}
	keep := make(map[*observed.Unit]bool, len(items))
	var errs error
	for _, item := range items {
		if err := l.validateReplace(item, keep); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		keep[item.Base()] = true
	}
	if errs != nil {
		return errs
	}

	changed := false
	var gone []T
	for n := l.head; n != nil; {
		next := n.next
		if !keep[n.item.Base()] {
			gone = append(gone, n.item)
			l.drop(n)
			changed = true
		}
		n = next
	}

	// Walk the target back to front. After step i the items from i on form
	// the tail of the list, so a node already sitting right before its
	// successor stays where it is.
	var (
		added []*node[T]
		next  *node[T]
	)
	for i := len(items) - 1; i >= 0; i-- {
		n, ok := l.index[items[i].Base()]
		switch {
		case !ok:
			n = &node[T]{item: items[i]}
			l.index[items[i].Base()] = n
			l.link(n, next)
			added = append(added, n)
			changed = true
		case n.next != next:
			l.unlinkNode(n)
			l.link(n, next)
			l.relinks++
			changed = true
		}
		next = n
	}

	slices.Reverse(added)
	errs = l.adopt(added)

	if changed {
		l.EmitChange()
	}
	if l.owning {
		for _, item := range gone {
			item.Base().Unlink()
		}
	}
	return errs
}

// validateReplace is validate for a target where items already in the list
// are fine.
func (l *List[T]) validateReplace(item T, seen map[*observed.Unit]bool) error {
	if !isNil(item) && !seen[item.Base()] {
		if _, ok := l.index[item.Base()]; ok {
			return nil
		}
	}
	return l.validate("replace", item, seen)
}
