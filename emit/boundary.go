// ABOUTME: Patches a singleton's first/last-object boundary fields after
// ABOUTME: emission, so runtime code can find each partition's extent.
package emit

import (
	"go.uber.org/zap"

	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
)

// BoundaryTarget is the singleton that owns one reference field per
// partition boundary, named by BoundaryField.
type BoundaryTarget interface {
	// SetBoundary overwrites the named boundary field with host (which
	// may be nil to represent an empty partition's absent boundary).
	SetBoundary(field BoundaryField, host hostiface.Host)
}

// BoundaryField names one of the eight first/last boundary fields.
type BoundaryField int

const (
	FirstReadOnlyPrimitive BoundaryField = iota
	LastReadOnlyPrimitive
	FirstReadOnlyReference
	LastReadOnlyReference
	FirstWritablePrimitive
	LastWritablePrimitive
	FirstWritableReference
	LastWritableReference
)

// BoundaryPatcher writes a heap's partition boundaries into the runtime
// singleton once emission has finished.
type BoundaryPatcher struct {
	Heap   *heapmodel.Heap
	Target BoundaryTarget
	Log    *zap.SugaredLogger
}

// Patch implements spec §4.7: plain boundaries for readOnlyPrimitive,
// writablePrimitive, and writableReference map directly onto their
// partition's first/last object; the read-only-reference boundary spans
// the union of readOnlyReference and readOnlyRelocatable, falling back to
// whichever of the two is non-empty if the other is empty.
func (bp *BoundaryPatcher) Patch() {
	bp.setPlain(FirstReadOnlyPrimitive, LastReadOnlyPrimitive, bp.Heap.Partition(heapmodel.ReadOnlyPrimitive))
	bp.setPlain(FirstWritablePrimitive, LastWritablePrimitive, bp.Heap.Partition(heapmodel.WritablePrimitive))
	bp.setPlain(FirstWritableReference, LastWritableReference, bp.Heap.Partition(heapmodel.WritableReference))
	bp.setReferenceUnion()
}

func (bp *BoundaryPatcher) setPlain(firstField, lastField BoundaryField, p *heapmodel.Partition) {
	first, ok := p.FirstObject()
	bp.setOrLog(firstField, first, ok)
	last, ok := p.LastObject()
	bp.setOrLog(lastField, last, ok)
}

func (bp *BoundaryPatcher) setReferenceUnion() {
	ref := bp.Heap.Partition(heapmodel.ReadOnlyReference)
	reloc := bp.Heap.Partition(heapmodel.ReadOnlyRelocatable)

	first, ok := ref.FirstObject()
	if !ok {
		first, ok = reloc.FirstObject()
	}
	bp.setOrLog(FirstReadOnlyReference, first, ok)

	last, ok := reloc.LastObject()
	if !ok {
		last, ok = ref.LastObject()
	}
	bp.setOrLog(LastReadOnlyReference, last, ok)
}

func (bp *BoundaryPatcher) setOrLog(field BoundaryField, host hostiface.Host, ok bool) {
	if !ok || host == nil {
		if bp.Log != nil {
			bp.Log.Debugw("boundary field left null: partition empty", "field", field)
		}
		bp.Target.SetBoundary(field, nil)
		return
	}
	bp.Target.SetBoundary(field, host)
}
