package observed_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/delaneyj/unitgraph/observed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamBuffersUntilRead(t *testing.T) {
	ctx := context.Background()
	u := observed.New()
	s := u.ListenAsync()

	u.Emit("a", 1)
	u.Emit("b", 2)
	assert.Equal(t, 2, s.Buffered())

	e, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", e.Name)

	u.Emit("c", 3)
	u.Unlink()

	e, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", e.Name)
	e, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", e.Name)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamsAreIndependent(t *testing.T) {
	ctx := context.Background()
	u := observed.New()
	early := u.ListenAsync()
	u.Emit("a", nil)
	late := u.ListenAsync()
	u.Emit("b", nil)
	u.Unlink()

	var earlyNames, lateNames []string
	require.NoError(t, early.Each(ctx, func(e observed.Event) error {
		earlyNames = append(earlyNames, e.Name)
		return nil
	}))
	require.NoError(t, late.Each(ctx, func(e observed.Event) error {
		lateNames = append(lateNames, e.Name)
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, earlyNames)
	assert.Equal(t, []string{"b"}, lateNames)
}

func TestStreamFailureStopsDelivery(t *testing.T) {
	ctx := context.Background()
	u := observed.New()
	failing := u.ListenAsync()
	healthy := u.ListenAsync()
	syncCalls := 0
	u.Listen(func(observed.Event) error {
		syncCalls++
		return nil
	})

	u.Emit("a", nil)
	u.Emit("b", nil)

	seen := 0
	err := failing.Each(ctx, func(e observed.Event) error {
		seen++
		return errors.New("consumer broke")
	})
	require.ErrorIs(t, err, observed.ErrStreamFailed)
	assert.Contains(t, err.Error(), "consumer broke")
	assert.Equal(t, 1, seen)

	u.Emit("c", nil)
	_, err = failing.Next(ctx)
	require.ErrorIs(t, err, observed.ErrStreamFailed)
	assert.Zero(t, failing.Buffered())

	assert.Equal(t, 3, syncCalls)
	assert.Equal(t, 3, healthy.Buffered())
}

func TestStreamContextAndClose(t *testing.T) {
	u := observed.New()
	s := u.ListenAsync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	u.Emit("dropped", nil)
	s.Close()
	_, err = s.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)

	u.Emit("after", nil)
	assert.Zero(t, s.Buffered())
}

func TestStreamOnUnlinkedUnitEndsImmediately(t *testing.T) {
	u := observed.New()
	u.Unlink()
	_, err := u.ListenAsync().Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamAcrossGoroutines(t *testing.T) {
	u := observed.New()
	s := u.ListenAsync()

	var (
		wg    sync.WaitGroup
		names []string
		err   error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		err = s.Each(context.Background(), func(e observed.Event) error {
			names = append(names, e.Name)
			return nil
		})
	}()

	for _, name := range []string{"one", "two", "three"} {
		u.Emit(name, nil)
	}
	u.Unlink()
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, names)
}

func TestStreamOpenedDuringDispatchStartsWithNextEvent(t *testing.T) {
	u := observed.New()
	var s *observed.Stream
	u.Listen(func(observed.Event) error {
		if s == nil {
			s = u.ListenAsync()
		}
		return nil
	})

	u.Emit("a", 1)
	require.NotNil(t, s)
	assert.Zero(t, s.Buffered())

	u.Emit("b", 2)
	assert.Equal(t, 1, s.Buffered())
	e, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", e.Name)
}
