// Package container provides List, an ordered, duplicate free collection of
// units.
//
// A List is itself a unit: it emits a change event after every structural
// mutation and bindings can read it with index, #first, #last and * path
// segments. In owning mode the list attaches its items, unlinks the ones it
// removes and lets go of items that are attached somewhere else.
//
// ReplaceAll reconciles the list against a new sequence in one pass, keeping
// the nodes of items that stay:
//
//	before   a ─ b ─ c
//	target   c ─ b ─ d
//	after    c ─ b ─ d     a removed, b relinked, c untouched, d inserted
package container
