package observed

import (
	"maps"
	"slices"
)

// Getter is implemented by plain data holders that bindings can read from.
// Plain holders do not notify anyone when they change; the unit that holds
// them has to call EmitChange.
type Getter interface {
	Property(name string) (any, bool)
}

// Record is a unit with named properties. Assigning a property emits a change
// event naming it, so bindings through a Record update on their own.
type Record struct {
	Unit
	Labels

	props map[string]any
	owned map[string]Object
}

func NewRecord(props map[string]any) *Record {
	r := &Record{}
	r.InitRecord(r, props)
	return r
}

// InitRecord prepares a Record embedded in self.
func (r *Record) InitRecord(self Object, props map[string]any) {
	r.props = maps.Clone(props)
	if r.props == nil {
		r.props = map[string]any{}
	}
	r.owned = map[string]Object{}
	r.Init(self)
}

func (r *Record) Property(name string) (any, bool) {
	v, ok := r.props[name]
	return v, ok
}

func (r *Record) Get(name string) any {
	return r.props[name]
}

// Set assigns a property and emits a change event if the value is not the
// same as before.
func (r *Record) Set(name string, v any) {
	if r.props == nil {
		r.props = map[string]any{}
	}
	if old, ok := r.props[name]; ok && Same(old, v) {
		return
	}
	r.props[name] = v
	r.Emit(EventChange, Change{Property: name})
}

func (r *Record) Keys() []string {
	return slices.Sorted(maps.Keys(r.props))
}

// SetOwned assigns obj to a managed property: obj is attached to the record,
// the previously owned value is unlinked, and the property is cleared when
// obj is unlinked or moved to another owner.
func (r *Record) SetOwned(name string, obj Object) error {
	if r.owned == nil {
		r.owned = map[string]Object{}
	}
	prev := r.owned[name]
	if obj == nil {
		delete(r.owned, name)
	} else {
		if err := Attach(r.Self(), obj); err != nil {
			return err
		}
		r.owned[name] = obj
	}
	if prev != nil && (obj == nil || prev.Base() != obj.Base()) {
		if !r.ownsElsewhere(name, prev) {
			prev.Base().Unlink()
		}
	}
	if obj == nil {
		r.Set(name, nil)
	} else {
		r.Set(name, obj)
	}
	return nil
}

func (r *Record) ownsElsewhere(except string, obj Object) bool {
	for name, o := range r.owned {
		if name != except && o.Base() == obj.Base() {
			return true
		}
	}
	return false
}

func (r *Record) ChildDetached(child Object) {
	for _, name := range slices.Sorted(maps.Keys(r.owned)) {
		if r.owned[name].Base() == child.Base() {
			delete(r.owned, name)
			r.Set(name, nil)
		}
	}
}
