package binding_test

import (
	"testing"

	"github.com/delaneyj/unitgraph/binding"
	"github.com/delaneyj/unitgraph/observed"
	"github.com/stretchr/testify/assert"
)

func TestFormatNamed(t *testing.T) {
	src := record(map[string]any{"n": 1, "name": "Ann", "price": 3.14159, "prec": ".1f"})
	b := binding.FormatNamed("%[name] has %[n|plural:# item:# items] at %[price|@prec] (100%%)", map[string]binding.Binding{
		"name":  binding.From(src, "name"),
		"n":     binding.From(src, "n"),
		"price": binding.From(src, "price"),
		"prec":  binding.From(src, "prec"),
	})
	assert.NoError(t, b.Err())

	sub, rec := apply(t, b, observed.New())
	assert.Equal(t, "Ann has 1 item at 3.1 (100%)", sub.Value())

	src.Set("n", 3)
	src.Set("prec", ".3f")
	assert.Equal(t, []any{
		"Ann has 1 item at 3.1 (100%)",
		"Ann has 3 items at 3.1 (100%)",
		"Ann has 3 items at 3.142 (100%)",
	}, rec.values)
}

func TestFormatPositional(t *testing.T) {
	src := record(map[string]any{"name": "Ann", "score": 9.6, "pct": 50})
	b := binding.Format("%s scored %d (%.1f%%), again %[0]",
		binding.From(src, "name"),
		binding.From(src, "score"),
		binding.From(src, "pct"),
	)

	sub, _ := apply(t, b, observed.New())
	assert.Equal(t, "Ann scored 10 (50.0%), again Ann", sub.Value())

	src.Set("name", nil)
	assert.Equal(t, " scored 10 (50.0%), again ", sub.Value())
}

func TestFormatWaitsForEveryArgument(t *testing.T) {
	scope := record(map[string]any{"who": "Bob"})
	target := observed.New()
	sub, rec := apply(t, binding.Format("hi %s, %s", binding.Const("there"), binding.Bind("who")), target)
	assert.False(t, sub.Resolved())

	assert.NoError(t, observed.Attach(scope, target))
	assert.Equal(t, []any{"hi there, Bob"}, rec.values)
}

func TestFormatLiteral(t *testing.T) {
	sub, _ := apply(t, binding.Format("100%%"), observed.New())
	assert.Equal(t, "100%", sub.Value())
}

func TestFormatErrors(t *testing.T) {
	for _, format := range []string{"50%", "%[x]", "%[", "%[]", "%5", "%s %s"} {
		t.Run(format, func(t *testing.T) {
			err := binding.Format(format, binding.Const(1)).Err()
			assert.True(t, observed.IsUsageError(err), "%v", err)
		})
	}
}
