// Package binding computes values from paths through the object graph and
// keeps them current.
//
// A path such as "form.fields.#first.value" is read one segment at a time.
// Each segment that is read from a unit is a hop: the binding listens to that
// unit and, when it reports a change affecting the segment, re-reads the path
// from there on. Hops further down are dropped and rebuilt, so a binding
// never delivers a value from a part of the graph it no longer traverses.
//
// Where the path starts depends on how the binding was made:
//
//	Bind(path)          the target's owner, followed as the target moves
//	Scoped(label, path) the nearest ancestor of the target with label
//	From(origin, path)  a fixed unit
//
// Bindings compose. Map, Not, Text and friends transform a single value; And,
// Or, Matches and Format combine several bindings and produce a result once
// all of them have resolved.
package binding
