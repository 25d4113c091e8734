// Package observed implements the base of the object graph: units with an
// exclusive owner, a synchronous event channel on every unit, and the process
// wide error sink that receives failures raised by callbacks.
//
// # Ownership
//
// Every unit has at most one owner. Attach moves a unit that already has an
// owner, it never duplicates it, and refuses to create a cycle. Unlinking a
// unit unlinks everything it owns first, depth first, then detaches it from
// its own owner. An unlinked unit stays unlinked.
//
// # Events
//
// Emit runs synchronously: the interceptor (at most one) sees the event
// first and decides whether listeners get it, then listeners run in the order
// they were registered. A listener that fails or panics does not stop the
// others; its error goes to the error sink. ListenAsync returns a buffered
// Stream for consumers on other goroutines.
//
// # Records
//
// Record is a unit with named properties that emits a change event on every
// assignment. Plain values (maps, Getter implementations) held by a unit do
// not, and the holder has to call EmitChange after mutating them.
package observed
