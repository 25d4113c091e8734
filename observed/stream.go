package observed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Stream is an asynchronous consumer of a unit's events. Events emitted after
// the stream was created are buffered until read. The sequence ends with
// io.EOF once the unit is unlinked and the buffer is drained.
//
// Streams are the one part of the package that may be used from another
// goroutine than the one driving the unit.
type Stream struct {
	mu     sync.Mutex
	buf    []Event
	ended  bool
	err    error
	notify chan struct{}
}

// ListenAsync starts a new, independent event stream on the unit.
func (u *Unit) ListenAsync() *Stream {
	s := &Stream{notify: make(chan struct{}, 1)}
	if u.state != stateActive {
		s.ended = true
		return s
	}
	u.streams = append(u.streams, s)
	return s
}

// push appends e and reports whether the stream still wants events.
func (s *Stream) push(e Event) bool {
	s.mu.Lock()
	if s.ended || s.err != nil {
		s.mu.Unlock()
		return false
	}
	s.buf = append(s.buf, e)
	s.mu.Unlock()
	s.wake()
	return true
}

func (s *Stream) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended || s.err != nil
}

func (s *Stream) end() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the next buffered event, waiting for one if necessary.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		switch {
		case s.err != nil:
			err := s.err
			s.mu.Unlock()
			return Event{}, err
		case len(s.buf) > 0:
			e := s.buf[0]
			s.buf[0] = Event{}
			s.buf = s.buf[1:]
			s.mu.Unlock()
			return e, nil
		case s.ended:
			s.mu.Unlock()
			return Event{}, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Each calls fn for every event until the sequence ends, in which case it
// returns nil. If fn fails the stream is failed, nothing more is delivered,
// and the error is returned wrapped in ErrStreamFailed.
func (s *Stream) Each(ctx context.Context, fn func(Event) error) error {
	for {
		e, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return s.fail(err)
		}
	}
}

func (s *Stream) fail(cause error) error {
	err := fmt.Errorf("%w: %w", ErrStreamFailed, cause)
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.buf = nil
	err = s.err
	s.mu.Unlock()
	s.wake()
	return err
}

// Close ends the stream early and drops anything buffered.
func (s *Stream) Close() {
	s.mu.Lock()
	s.ended = true
	s.buf = nil
	s.mu.Unlock()
	s.wake()
}

// Buffered returns the number of events waiting to be read.
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
