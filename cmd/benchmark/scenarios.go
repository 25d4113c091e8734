package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/delaneyj/unitgraph/binding"
	"github.com/delaneyj/unitgraph/container"
	"github.com/delaneyj/unitgraph/observed"
	"github.com/jamiealquiza/tachymeter"
)

type result struct {
	scenario string
	name     string
	iters    int
	metrics  *tachymeter.Metrics
	// relinks is the number of nodes ReplaceAll moved, or -1 if the
	// scenario does not reconcile.
	relinks int
}

type scenario struct {
	name  string
	title string
	run   func(cfg benchConfig) []result
}

var scenarioByName = map[string]scenario{
	"propagate": {name: "propagate", title: "Propagate", run: benchmarkPropagate},
	"rebind":    {name: "rebind", title: "Rebind", run: benchmarkRebind},
	"reconcile": {name: "reconcile", title: "Reconcile", run: benchmarkReconcile},
	"emit":      {name: "emit", title: "Emit", run: benchmarkEmit},
}

func measure(iters int, fn func(i int)) *tachymeter.Metrics {
	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		fn(i)
		tach.AddTime(time.Since(start))
	}
	return tach.Calc()
}

// chain builds depth records linked through "next" and returns the head,
// the tail and the path from the head to the tail's "value".
func chain(depth int) (head, tail *observed.Record, path string) {
	head = observed.NewRecord(nil)
	tail = head
	segments := make([]string, 0, depth+1)
	for i := 1; i < depth; i++ {
		next := observed.NewRecord(nil)
		tail.Set("next", next)
		tail = next
		segments = append(segments, "next")
	}
	tail.Set("value", 0)
	return head, tail, strings.Join(append(segments, "value"), ".")
}

// bindAll applies width bindings of path from origin and returns the number
// of values delivered so far.
func bindAll(origin observed.Object, path string, width int) (delivered *int, closeAll func()) {
	delivered = new(int)
	subs := make([]*binding.Subscription, 0, width)
	b := binding.From(origin, path)
	for i := 0; i < width; i++ {
		sub, err := b.Apply(observed.New(), func(any) { *delivered++ })
		if err != nil {
			panic(err)
		}
		subs = append(subs, sub)
	}
	return delivered, func() {
		for _, s := range subs {
			s.Close()
		}
	}
}

func checkDelivered(name string, got, want int) {
	if got != want {
		observed.ReportError(fmt.Errorf("%s: delivered %d updates, want %d", name, got, want))
	}
}

func benchmarkPropagate(cfg benchConfig) []result {
	var out []result
	for _, w := range cfg.Widths {
		for _, d := range cfg.Depths {
			name := fmt.Sprintf("propagate: %d * %d", w, d)
			head, tail, path := chain(d)
			delivered, closeAll := bindAll(head, path, w)
			*delivered = 0

			m := measure(cfg.Iters, func(i int) {
				tail.Set("value", i+1)
			})
			checkDelivered(name, *delivered, w*cfg.Iters)
			closeAll()
			out = append(out, result{scenario: "propagate", name: name, iters: cfg.Iters, metrics: m, relinks: -1})
		}
	}
	return out
}

func benchmarkRebind(cfg benchConfig) []result {
	var out []result
	for _, w := range cfg.Widths {
		for _, d := range cfg.Depths {
			name := fmt.Sprintf("rebind: %d * %d", w, d)
			root := observed.NewRecord(nil)
			a, _, path := chain(d)
			b, _, _ := chain(d)
			root.Set("branch", a)
			delivered, closeAll := bindAll(root, "branch."+path, w)
			*delivered = 0

			m := measure(cfg.Iters, func(i int) {
				if i%2 == 0 {
					root.Set("branch", b)
				} else {
					root.Set("branch", a)
				}
			})
			checkDelivered(name, *delivered, w*cfg.Iters)
			closeAll()
			out = append(out, result{scenario: "rebind", name: name, iters: cfg.Iters, metrics: m, relinks: -1})
		}
	}
	return out
}

func benchmarkReconcile(cfg benchConfig) []result {
	var out []result
	r := rand.New(rand.NewPCG(1, uint64(cfg.Iters)))
	for _, n := range cfg.Items {
		name := fmt.Sprintf("reconcile: %d items", n)
		l := container.NewList[*observed.Record]()
		pool := make([]*observed.Record, n)
		for i := range pool {
			pool[i] = observed.NewRecord(map[string]any{"index": i})
		}
		if err := l.Add(pool...); err != nil {
			panic(err)
		}

		// Each round shuffles the pool and swaps about a tenth of it for new
		// items. The list does not own the pool, so dropped items stay usable.
		targets := make([][]*observed.Record, cfg.Iters)
		for i := range targets {
			target := make([]*observed.Record, 0, n)
			for _, j := range r.Perm(n) {
				if r.IntN(10) == 0 {
					target = append(target, observed.NewRecord(map[string]any{"index": -1}))
					continue
				}
				target = append(target, pool[j])
			}
			targets[i] = target
		}

		m := measure(cfg.Iters, func(i int) {
			if err := l.ReplaceAll(targets[i]); err != nil {
				observed.ReportError(err)
			}
		})
		relinks := l.Relinks()
		l.Unlink()
		out = append(out, result{scenario: "reconcile", name: name, iters: cfg.Iters, metrics: m, relinks: relinks})
	}
	return out
}

func benchmarkEmit(cfg benchConfig) []result {
	var out []result
	for _, w := range cfg.Widths {
		name := fmt.Sprintf("emit: %d listeners", w)
		u := observed.New()
		heard := 0
		for i := 0; i < w; i++ {
			u.Listen(func(observed.Event) error {
				heard++
				return nil
			})
		}

		m := measure(cfg.Iters, func(i int) {
			u.Emit("tick", i)
		})
		checkDelivered(name, heard, w*cfg.Iters)
		u.Unlink()
		out = append(out, result{scenario: "emit", name: name, iters: cfg.Iters, metrics: m, relinks: -1})
	}
	return out
}
