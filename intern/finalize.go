// ABOUTME: String interning finalization: closes the intern-strings gate,
// ABOUTME: publishes the sorted canonical array, and drains anything it
// ABOUTME: transitively pulls in.
package intern

import (
	"github.com/kuaiwei/imageheap/discovery"
	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
)

// Finalizer publishes the canonical interned-strings array once discovery
// of ordinary objects is otherwise complete.
type Finalizer struct {
	Heap      *heapmodel.Heap
	Traversal *discovery.Traversal
	Target    hostiface.InternedStringsTarget
}

// Finalize implements spec §4.5: if the singleton's interned-strings field
// is even accessed, the string-array type's hub is admitted first (so the
// array type itself is guaranteed reachable), the intern-strings gate is
// closed, the accumulated table is snapshotted and sorted, the sorted
// array is published into the runtime-visible singleton and admitted
// immutable, and the worklist is drained again for anything the new array
// transitively references.
//
// Callers must call this after the initial add-objects pass has drained
// the worklist and before closing the new-objects gate.
func (fz *Finalizer) Finalize() error {
	if !fz.Target.HasInternedStringsField() {
		return nil
	}

	arrayType := fz.Target.StringArrayType()
	if arrayType != nil {
		if err := fz.Traversal.AddObject(arrayType.Hub(), false, heapmodel.Reason{RootLabel: "internedStringsArrayType"}); err != nil {
			return err
		}
		if err := fz.Traversal.Drain(); err != nil {
			return err
		}
	}

	fz.Heap.InternedStringsGate.Disallow()

	sorted := fz.Heap.SortedInternedStrings()
	arrayHost := fz.Target.PublishInternedStrings(sorted)

	if err := fz.Traversal.AddObject(arrayHost, true, heapmodel.Reason{RootLabel: "internedStrings"}); err != nil {
		return err
	}
	return fz.Traversal.Drain()
}
