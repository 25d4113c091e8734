package binding_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/unitgraph/binding"
	"github.com/delaneyj/unitgraph/observed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	values []any
}

func (r *recorder) update(v any) {
	r.values = append(r.values, v)
}

func apply(t *testing.T, b binding.Binding, target observed.Object) (*binding.Subscription, *recorder) {
	t.Helper()
	rec := &recorder{}
	sub, err := b.Apply(target, rec.update)
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	return sub, rec
}

func record(props map[string]any) *observed.Record {
	return observed.NewRecord(props)
}

func TestBindFollowsRebinding(t *testing.T) {
	root, target := record(nil), record(nil)
	require.NoError(t, observed.Attach(root, target))
	a1 := record(map[string]any{"b": 1})
	root.Set("a", a1)

	sub, rec := apply(t, binding.Bind("a.b"), target)
	assert.True(t, sub.Resolved())
	assert.Equal(t, 2, sub.Hops())
	assert.Equal(t, []any{1}, rec.values)

	a1.Set("b", 2)
	a2 := record(map[string]any{"b": 10})
	root.Set("a", a2)
	a1.Set("b", 3)
	a2.Set("b", 11)

	assert.Equal(t, []any{1, 2, 10, 11}, rec.values)
	assert.Equal(t, 11, sub.Value())
	assert.Equal(t, 0, a1.ListenerCount())
}

func TestStaleHopsAreIgnored(t *testing.T) {
	b1 := record(map[string]any{"c": 1})
	b2 := record(map[string]any{"c": 5})
	a1 := record(map[string]any{"b": b1})
	a2 := record(map[string]any{"b": b2})
	root := record(map[string]any{"a": a1})

	sub, rec := apply(t, binding.From(root, "a.b.c"), observed.New())
	assert.Equal(t, 3, sub.Hops())

	root.Set("a", a2)
	b1.Set("c", 99)
	a1.Set("b", record(map[string]any{"c": 42}))
	b2.Set("c", 6)

	assert.Equal(t, []any{1, 5, 6}, rec.values)
	assert.Zero(t, b1.ListenerCount())
}

func TestPartialPathIsMissing(t *testing.T) {
	root := record(nil)
	sub, rec := apply(t, binding.From(root, "a.b.c"), observed.New())

	assert.True(t, sub.Resolved())
	assert.Nil(t, sub.Value())
	assert.Equal(t, 1, sub.Hops())

	root.Set("a", record(map[string]any{"b": map[string]any{"c": "deep"}}))
	assert.Equal(t, []any{nil, "deep"}, rec.values)
	assert.Equal(t, 3, sub.Hops())
}

type bag struct {
	observed.Unit
	data map[string]any
}

func newBag(data map[string]any) *bag {
	b := &bag{data: data}
	b.Init(b)
	return b
}

func (b *bag) Property(name string) (any, bool) {
	v, ok := b.data[name]
	return v, ok
}

func TestGenericChangeRefreshesPlainValues(t *testing.T) {
	inner := map[string]any{"y": 1}
	src := newBag(map[string]any{"x": inner})

	sub, rec := apply(t, binding.From(src, "x.y"), observed.New())
	assert.Equal(t, 2, sub.Hops())

	inner["y"] = 2
	assert.Equal(t, []any{1}, rec.values)

	src.EmitChange()
	assert.Equal(t, []any{1, 2}, rec.values)

	src.Emit(observed.EventChange, observed.Change{Property: "other"})
	assert.Equal(t, []any{1, 2}, rec.values)
}

func TestUnlinkedValuesBecomeMissing(t *testing.T) {
	leaf := record(map[string]any{"v": "x"})
	root := record(map[string]any{"leaf": leaf})

	sub, rec := apply(t, binding.From(root, "leaf.v"), observed.New())
	leaf.Unlink()
	assert.Equal(t, []any{"x", nil}, rec.values)
	assert.Equal(t, 1, sub.Hops())

	child := observed.New()
	root.Set("child", child)
	sub, rec = apply(t, binding.From(root, "child"), observed.New())
	child.Unlink()
	assert.Equal(t, []any{child, nil}, rec.values)
	assert.Nil(t, sub.Value())
}

func TestBindFollowsTargetOwner(t *testing.T) {
	a := record(map[string]any{"name": "a"})
	b := record(map[string]any{"name": "b"})
	target := record(nil)

	sub, rec := apply(t, binding.Bind("name"), target)
	assert.False(t, sub.Resolved())

	require.NoError(t, observed.Attach(a, target))
	require.NoError(t, observed.Attach(b, target))
	a.Set("name", "changed")
	observed.Detach(target)

	assert.Equal(t, []any{"a", "b", nil}, rec.values)
}

func TestScopedNearestLabel(t *testing.T) {
	form := observed.NewLabel("form")
	outer := record(map[string]any{"title": "outer"})
	outer.AddLabel(form)
	inner := record(map[string]any{"title": "inner"})
	inner.AddLabel(form)
	mid, target := record(nil), record(nil)
	require.NoError(t, observed.Attach(outer, mid))
	require.NoError(t, observed.Attach(mid, target))

	sub, rec := apply(t, binding.Scoped(form, "title"), target)
	assert.Equal(t, "outer", sub.Value())

	require.NoError(t, observed.Attach(inner, mid))
	require.NoError(t, observed.Attach(outer, inner))
	outer.Set("title", "ignored")
	inner.Set("title", "renamed")
	observed.Detach(mid)

	assert.Equal(t, []any{"outer", "inner", "renamed", nil}, rec.values)
}

func TestScopedIgnoresTargetLabel(t *testing.T) {
	l := observed.NewLabel("scope")
	owner := record(map[string]any{"v": "owner"})
	owner.AddLabel(l)
	target := record(map[string]any{"v": "self"})
	target.AddLabel(l)
	require.NoError(t, observed.Attach(owner, target))

	sub, _ := apply(t, binding.Scoped(l, "v"), target)
	assert.Equal(t, "owner", sub.Value())
}

func TestApplyLifecycle(t *testing.T) {
	src := record(map[string]any{"v": 1})

	dead := observed.New()
	dead.Unlink()
	sub, err := binding.From(src, "v").Apply(dead, func(any) { t.Fatal("unexpected update") })
	require.NoError(t, err)
	assert.True(t, sub.Closed())
	assert.False(t, sub.Resolved())

	target := observed.New()
	sub, rec := apply(t, binding.From(src, "v"), target)
	target.Unlink()
	assert.True(t, sub.Closed())
	src.Set("v", 2)
	assert.Equal(t, []any{1}, rec.values)
	assert.Zero(t, src.ListenerCount())

	_, err = binding.From(nil, "v").Apply(observed.New(), nil)
	assert.True(t, observed.IsUsageError(err))
	_, err = binding.Const(1).Apply(nil, nil)
	assert.True(t, observed.IsUsageError(err))
}

func TestApplyTo(t *testing.T) {
	src := record(map[string]any{"name": "x"})
	dst := record(nil)

	_, err := binding.From(src, "name").Text("<%s>", "").ApplyTo(dst, "label")
	require.NoError(t, err)
	src.Set("name", "y")
	assert.Equal(t, "<y>", dst.Get("label"))
}

func TestUpdatePanicGoesToSink(t *testing.T) {
	var errs []error
	prev := observed.SetErrorSink(func(err error) { errs = append(errs, err) })
	t.Cleanup(func() { observed.SetErrorSink(prev) })

	src := record(map[string]any{"v": 1})
	sub, err := binding.From(src, "v").Apply(observed.New(), func(v any) {
		if v == 2 {
			panic("boom")
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	src.Set("v", 2)
	src.Set("v", 3)
	require.Len(t, errs, 1)
	var cbErr *observed.CallbackError
	assert.True(t, errors.As(errs[0], &cbErr))
	assert.Equal(t, 3, sub.Value())
}

func captureErrors(t *testing.T) *[]error {
	t.Helper()
	var errs []error
	prev := observed.SetErrorSink(func(err error) { errs = append(errs, err) })
	t.Cleanup(func() { observed.SetErrorSink(prev) })
	return &errs
}

func TestTransformPanicOnFirstValue(t *testing.T) {
	double := func(v any) any { return v.(int) * 2 }

	for name, stop := range map[string]func(sub *binding.Subscription, target *observed.Unit){
		"close":  func(sub *binding.Subscription, _ *observed.Unit) { sub.Close() },
		"unlink": func(_ *binding.Subscription, target *observed.Unit) { target.Unlink() },
	} {
		t.Run(name, func(t *testing.T) {
			errs := captureErrors(t)
			src := record(nil)
			target := observed.New()

			var got []any
			sub, err := binding.From(src, "n").Map(double).Apply(target, func(v any) { got = append(got, v) })
			require.NoError(t, err)
			require.Len(t, *errs, 1)
			var cbErr *observed.CallbackError
			assert.True(t, errors.As((*errs)[0], &cbErr))
			assert.False(t, sub.Resolved())
			assert.Equal(t, 1, src.ListenerCount())

			src.Set("n", 4)
			assert.Equal(t, []any{8}, got)

			stop(sub, target)
			assert.True(t, sub.Closed())
			assert.Zero(t, src.ListenerCount())

			src.Set("n", "oops")
			src.Set("n", "oops again")
			assert.Len(t, *errs, 1)
			assert.Equal(t, []any{8}, got)
		})
	}
}

type faulty struct {
	observed.Unit
	armed bool
}

func (f *faulty) Property(name string) (any, bool) {
	if f.armed {
		panic("read " + name)
	}
	return name, true
}

func TestGetterPanicOnFirstValue(t *testing.T) {
	errs := captureErrors(t)
	src := &faulty{armed: true}
	src.Init(src)

	sub, err := binding.From(src, "v").Apply(observed.New(), nil)
	require.NoError(t, err)
	require.Len(t, *errs, 1)
	assert.False(t, sub.Resolved())
	assert.Equal(t, 1, src.ListenerCount())

	sub.Close()
	assert.Zero(t, src.ListenerCount())
	src.armed = false
	src.EmitChange()
	assert.False(t, sub.Resolved())
	assert.Len(t, *errs, 1)
}

func TestNilUnitIsMissing(t *testing.T) {
	src := record(nil)
	src.Set("a", (*observed.Record)(nil))

	sub, _ := apply(t, binding.From(src, "a.b"), observed.New())
	assert.True(t, sub.Resolved())
	assert.Nil(t, sub.Value())

	sub, _ = apply(t, binding.From(src, "a").Bool(), observed.New())
	assert.Equal(t, false, sub.Value())
	assert.False(t, binding.Truthy((*observed.Record)(nil)))
}
