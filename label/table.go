// Package label implements the per-vertex label table: an atomic compare-and-set that
// enforces first-writer-wins labeling within one iteration, in the style of the vertex
// activation CAS (atomic.CompareAndSwapInt32(&vtm.Activity, 0, 1)).
package label

import (
	"sync/atomic"

	"github.com/ashgrover/distflow/mathutils"
)

// Label is a per-vertex, per-iteration reachability annotation.
//
// Value is 0 while unlabeled; positive means "reachable via a forward edge with that
// much residual slack"; negative means "reachable via a reverse edge with that much flow
// to cancel". PrevNode/PrevWorker/PrevLocal form the back-pointer to the predecessor in
// the search tree. The back-pointer fields are written after the CAS that sets Value and
// are themselves non-atomic: this is safe because no reader inspects them until the
// vertex appears in the work queue, which only happens after TrySet has returned true.
type Label struct {
	value      int64
	PrevNode   uint64
	PrevWorker int
	PrevLocal  uint32
}

// Value returns the current label value with an atomic load.
func (l *Label) Value() int64 {
	return atomic.LoadInt64(&l.value)
}

// Table is the per-worker array of labels, indexed by local vertex index.
type Table struct {
	slots []Label
}

// New allocates a label table sized for n local vertices.
func New(n int) *Table {
	return &Table{slots: make([]Label, n)}
}

// Len returns the number of slots in the table.
func (t *Table) Len() int {
	return len(t.slots)
}

// Get returns a pointer to the label at localIndex. Callers must go through TrySet to
// mutate Value; the back-pointer fields may be read freely once Value() is non-zero.
func (t *Table) Get(localIndex uint32) *Label {
	return &t.slots[localIndex]
}

// TrySet atomically compares the label's Value with 0; if equal, it is set to value and
// the back-pointer fields are written (non-atomically, safe per the doc comment on
// Label), and TrySet returns true. Otherwise it returns false and leaves the label
// untouched: first-writer-wins.
func (t *Table) TrySet(localIndex uint32, value int64, prevNode uint64, prevWorker int, prevLocal uint32) bool {
	slot := &t.slots[localIndex]
	if !atomic.CompareAndSwapInt64(&slot.value, 0, value) {
		return false
	}
	slot.PrevNode = prevNode
	slot.PrevWorker = prevWorker
	slot.PrevLocal = prevLocal
	return true
}

// Reset clears every label to unlabeled (Value 0), writing before any thread runs the
// labeling phase of the next iteration. The clear is parallelised across threads with
// mathutils.BatchParallelFor.
func (t *Table) Reset(threads int) {
	mathutils.BatchParallelFor(len(t.slots), threads, func(idx int, _ int) {
		t.slots[idx] = Label{}
	})
}
