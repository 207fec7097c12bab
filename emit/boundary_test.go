// ABOUTME: Verifies the plain and reference-union boundary patching rules.
package emit_test

import (
	"testing"

	"github.com/kuaiwei/imageheap/emit"
	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
)

type fakeBoundaryTarget struct {
	set map[emit.BoundaryField]hostiface.Host
}

func newFakeBoundaryTarget() *fakeBoundaryTarget {
	return &fakeBoundaryTarget{set: make(map[emit.BoundaryField]hostiface.Host)}
}

func (f *fakeBoundaryTarget) SetBoundary(field emit.BoundaryField, host hostiface.Host) {
	f.set[field] = host
}

func TestPatchPlainBoundaries(t *testing.T) {
	h := heapmodel.NewHeap()
	h.Partition(heapmodel.ReadOnlyPrimitive).Allocate("p1", 8)
	h.Partition(heapmodel.ReadOnlyPrimitive).Allocate("p2", 8)
	h.Partition(heapmodel.WritablePrimitive).Allocate("w1", 8)

	target := newFakeBoundaryTarget()
	bp := &emit.BoundaryPatcher{Heap: h, Target: target}
	bp.Patch()

	if target.set[emit.FirstReadOnlyPrimitive] != hostiface.Host("p1") {
		t.Errorf("FirstReadOnlyPrimitive = %v, want p1", target.set[emit.FirstReadOnlyPrimitive])
	}
	if target.set[emit.LastReadOnlyPrimitive] != hostiface.Host("p2") {
		t.Errorf("LastReadOnlyPrimitive = %v, want p2", target.set[emit.LastReadOnlyPrimitive])
	}
	if target.set[emit.FirstWritablePrimitive] != hostiface.Host("w1") {
		t.Errorf("FirstWritablePrimitive = %v, want w1", target.set[emit.FirstWritablePrimitive])
	}
	if target.set[emit.LastWritablePrimitive] != hostiface.Host("w1") {
		t.Errorf("LastWritablePrimitive = %v, want w1", target.set[emit.LastWritablePrimitive])
	}
	// writableReference was never allocated into: both boundaries nil.
	if target.set[emit.FirstWritableReference] != nil {
		t.Errorf("FirstWritableReference = %v, want nil", target.set[emit.FirstWritableReference])
	}
}

func TestPatchReferenceUnionBothPopulated(t *testing.T) {
	h := heapmodel.NewHeap()
	h.Partition(heapmodel.ReadOnlyReference).Allocate("ref1", 8)
	h.Partition(heapmodel.ReadOnlyReference).Allocate("ref2", 8)
	h.Partition(heapmodel.ReadOnlyRelocatable).Allocate("rel1", 8)
	h.Partition(heapmodel.ReadOnlyRelocatable).Allocate("rel2", 8)

	target := newFakeBoundaryTarget()
	bp := &emit.BoundaryPatcher{Heap: h, Target: target}
	bp.Patch()

	if target.set[emit.FirstReadOnlyReference] != hostiface.Host("ref1") {
		t.Errorf("FirstReadOnlyReference = %v, want ref1 (readOnlyReference's own first)", target.set[emit.FirstReadOnlyReference])
	}
	if target.set[emit.LastReadOnlyReference] != hostiface.Host("rel2") {
		t.Errorf("LastReadOnlyReference = %v, want rel2 (relocatable's own last)", target.set[emit.LastReadOnlyReference])
	}
}

func TestPatchReferenceUnionFallsBackWhenOneSideEmpty(t *testing.T) {
	h := heapmodel.NewHeap()
	h.Partition(heapmodel.ReadOnlyRelocatable).Allocate("rel1", 8)
	h.Partition(heapmodel.ReadOnlyRelocatable).Allocate("rel2", 8)
	// readOnlyReference is left empty.

	target := newFakeBoundaryTarget()
	bp := &emit.BoundaryPatcher{Heap: h, Target: target}
	bp.Patch()

	if target.set[emit.FirstReadOnlyReference] != hostiface.Host("rel1") {
		t.Errorf("FirstReadOnlyReference = %v, want rel1 (fallback to relocatable's first)", target.set[emit.FirstReadOnlyReference])
	}
	if target.set[emit.LastReadOnlyReference] != hostiface.Host("rel2") {
		t.Errorf("LastReadOnlyReference = %v, want rel2 (relocatable's own last)", target.set[emit.LastReadOnlyReference])
	}
}

func TestPatchReferenceUnionBothEmpty(t *testing.T) {
	h := heapmodel.NewHeap()
	target := newFakeBoundaryTarget()
	bp := &emit.BoundaryPatcher{Heap: h, Target: target}
	bp.Patch()

	if target.set[emit.FirstReadOnlyReference] != nil {
		t.Errorf("FirstReadOnlyReference = %v, want nil", target.set[emit.FirstReadOnlyReference])
	}
	if target.set[emit.LastReadOnlyReference] != nil {
		t.Errorf("LastReadOnlyReference = %v, want nil", target.set[emit.LastReadOnlyReference])
	}
}
