package observed

import "slices"

// EventChange is emitted by units whose observable state changed. A Change
// payload names the property; a nil payload is a generic change notification
// that tells bindings to re-read everything below the unit.
const EventChange = "change"

type Event struct {
	Name   string
	Data   any
	Source Object
}

// Change is the payload of a property change event.
type Change struct {
	Property string
}

type Listener func(e Event) error

// Interceptor sees an event before any listener. Listeners only receive the
// event if the interceptor calls forward, which may be passed a replacement.
type Interceptor func(e Event, forward func(Event)) error

// Listen registers fn for every event emitted on the unit. Listeners run in
// registration order. The returned cancel func may be called at any time,
// including from inside fn.
func (u *Unit) Listen(fn Listener) (cancel func()) {
	if u.state != stateActive {
		return func() {}
	}
	return u.listeners.add(fn)
}

// ListenNamed registers fn for events called name only.
func (u *Unit) ListenNamed(name string, fn Listener) (cancel func()) {
	return u.Listen(func(e Event) error {
		if e.Name != name {
			return nil
		}
		return fn(e)
	})
}

func (u *Unit) ListenerCount() int {
	return len(u.listeners)
}

// Intercept installs fn as the unit's interceptor, superseding any previous
// one. Cancelling a superseded interceptor has no effect.
func (u *Unit) Intercept(fn Interceptor) (cancel func()) {
	if u.state != stateActive {
		return func() {}
	}
	e := &entry[Interceptor]{fn: fn}
	if u.interceptor != nil {
		u.interceptor.removed = true
	}
	u.interceptor = e
	return func() {
		if e.removed {
			return
		}
		e.removed = true
		if u.interceptor == e {
			u.interceptor = nil
		}
	}
}

func (u *Unit) Emit(name string, data any) {
	u.EmitEvent(Event{Name: name, Data: data, Source: u.Self()})
}

// EmitChange emits a generic change notification.
func (u *Unit) EmitChange() {
	u.Emit(EventChange, nil)
}

// EmitEvent dispatches e synchronously. A nil Source is set to the unit.
// Nothing happens once the unit is being unlinked.
func (u *Unit) EmitEvent(e Event) {
	if u.state != stateActive {
		return
	}
	if e.Source == nil {
		e.Source = u.Self()
	}
	// Streams opened while e is being dispatched start with the next event.
	streams := slices.Clone(u.streams)
	ic := u.interceptor
	if ic == nil {
		u.deliver(e, streams)
		return
	}
	guard("intercept", e.Name, func() error {
		return ic.fn(e, func(fe Event) {
			if fe.Source == nil {
				fe.Source = e.Source
			}
			u.deliver(fe, streams)
		})
	})
}

func (u *Unit) deliver(e Event, streams []*Stream) {
	for _, l := range u.listeners.snapshot() {
		if l.removed {
			continue
		}
		fn := l.fn
		guard("listener", e.Name, func() error { return fn(e) })
	}
	if len(streams) == 0 || u.state != stateActive {
		return
	}
	stale := false
	for _, s := range streams {
		if !s.push(e) {
			stale = true
		}
	}
	if stale {
		u.streams = slices.DeleteFunc(u.streams, (*Stream).done)
	}
}
