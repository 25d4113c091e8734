package container_test

import (
	"testing"

	"github.com/delaneyj/unitgraph/container"
	"github.com/delaneyj/unitgraph/observed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func owningList(t *testing.T, opts ...container.OwnOption) *container.List[*observed.Record] {
	t.Helper()
	l := container.NewList[*observed.Record]()
	require.NoError(t, l.Own(opts...))
	return l
}

func TestOwningMoveBetweenLists(t *testing.T) {
	x, y := owningList(t), owningList(t)
	item := observed.NewRecord(map[string]any{"name": "moved"})
	require.NoError(t, x.Add(item))
	xChanges := countChanges(&x.Unit)

	require.NoError(t, y.Add(item))

	assert.False(t, x.Has(item))
	assert.True(t, y.Has(item))
	assert.False(t, item.IsUnlinked())
	assert.Equal(t, "moved", item.Get("name"))
	assert.Equal(t, y, item.Whence())
	assert.Zero(t, x.ChildCount())
	assert.Equal(t, 1, *xChanges)
}

func TestOwningLastInsertWins(t *testing.T) {
	x, y := owningList(t), owningList(t)
	item := observed.NewRecord(nil)
	require.NoError(t, x.Add(item))
	require.NoError(t, y.Add(item))
	require.NoError(t, x.Add(item))

	assert.True(t, x.Has(item))
	assert.False(t, y.Has(item))
	assert.Equal(t, x, item.Whence())
}

func TestOwningRemoveUnlinks(t *testing.T) {
	l := owningList(t)
	all := items(4)
	require.NoError(t, l.Add(all...))
	assert.Equal(t, 4, l.ChildCount())

	require.NoError(t, l.Remove(all[0]))
	assert.True(t, all[0].IsUnlinked())

	all[1].Unlink()
	assert.False(t, l.Has(all[1]))

	observed.Detach(all[2])
	assert.False(t, l.Has(all[2]))
	assert.False(t, all[2].IsUnlinked())

	l.Clear()
	assert.True(t, all[3].IsUnlinked())
	assert.Zero(t, l.ChildCount())
}

func TestOwningUnlinkCascades(t *testing.T) {
	l := owningList(t)
	all := items(3)
	require.NoError(t, l.Add(all...))

	l.Unlink()
	for _, item := range all {
		assert.True(t, item.IsUnlinked())
	}
	assert.Zero(t, l.Len())
}

func TestOwnAttachesExistingItems(t *testing.T) {
	l := container.NewList[*observed.Record]()
	all := items(2)
	require.NoError(t, l.Add(all...))
	assert.Nil(t, all[0].Whence())

	require.NoError(t, l.Own())
	assert.True(t, l.Owning())
	assert.Equal(t, l, all[0].Whence())
	assert.Equal(t, l, all[1].Whence())
}

func TestOwningRejectsCycles(t *testing.T) {
	outer := container.NewList[observed.Object]()
	require.NoError(t, outer.Own())
	inner := container.NewList[observed.Object]()
	require.NoError(t, inner.Own())
	require.NoError(t, outer.Add(inner))

	assert.ErrorIs(t, inner.Add(outer), observed.ErrCycle)
	assert.ErrorIs(t, inner.Add(inner), observed.ErrCycle)
}

func TestItemEventsPropagate(t *testing.T) {
	l := owningList(t)
	item := observed.NewRecord(nil)
	require.NoError(t, l.Add(item))

	var got []observed.Event
	l.Listen(func(e observed.Event) error {
		got = append(got, e)
		return nil
	})
	item.Emit("ping", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "ping", got[0].Name)
	assert.Equal(t, item, got[0].Source)

	require.NoError(t, l.Remove(item))
	got = got[:0]
	other := observed.NewRecord(nil)
	require.NoError(t, l.Add(other))
	other.Emit("ping", 2)
	require.Len(t, got, 2)
	assert.Equal(t, observed.EventChange, got[0].Name)

	quiet := owningList(t, container.WithoutEventPropagation())
	muted := observed.NewRecord(nil)
	require.NoError(t, quiet.Add(muted))
	var heard int
	quiet.Listen(func(observed.Event) error {
		heard++
		return nil
	})
	muted.Emit("ping", nil)
	assert.Zero(t, heard)
}

func TestUnownedItemsDropOnUnlink(t *testing.T) {
	l := container.NewList[*observed.Record]()
	all := items(2)
	require.NoError(t, l.Add(all...))
	changes := countChanges(&l.Unit)

	all[0].Unlink()
	assert.Equal(t, []*observed.Record{all[1]}, l.ToSlice())
	assert.Equal(t, 1, *changes)
}
