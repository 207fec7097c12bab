// ABOUTME: Binds the five partitions into their two sections (read-only,
// ABOUTME: writable) at fixed, size-derived offsets, with optional
// ABOUTME: alignment padding around the relocatable region.
package emit

import "github.com/kuaiwei/imageheap/heapmodel"

// SectionBinder assigns partitions their section-relative base offsets in
// the fixed declaration order spec §4.8 requires.
type SectionBinder struct {
	Heap *heapmodel.Heap
}

// SetReadOnlySection binds readOnlyPrimitive, readOnlyReference, and
// readOnlyRelocatable, in that order, each starting immediately after its
// predecessor.
func (b *SectionBinder) SetReadOnlySection(name string, base int64) {
	offset := base
	for _, p := range b.Heap.ReadOnlyPartitions() {
		p.SetSection(name, offset)
		offset += p.Size()
	}
}

// SetWritableSection binds writablePrimitive and writableReference, in
// that order.
func (b *SectionBinder) SetWritableSection(name string, base int64) {
	offset := base
	for _, p := range b.Heap.WritablePartitions() {
		p.SetSection(name, offset)
		offset += p.Size()
	}
}

// AlignRelocatablePartition pads the primitive partition's tail and the
// relocatable partition's tail so the relocatable region starts and ends
// on an alignment boundary, minimizing the page range the dynamic linker
// must touch when applying relocations. Both pads land after whatever
// objects the partitions already hold — only the downstream partitions'
// section offsets need to shift, not any object already allocated — so
// this may be called any time after discovery completes, before
// SetReadOnlySection.
func (b *SectionBinder) AlignRelocatablePartition(alignment int64) {
	ro := b.Heap.ReadOnlyPartitions() // [primitive, reference, relocatable]
	leading := ro[0].Size() + ro[1].Size()
	if pad := alignUp(leading, alignment) - leading; pad > 0 {
		ro[0].AddPostPad(pad)
	}
	relocatable := ro[2]
	if pad := alignUp(relocatable.Size(), alignment) - relocatable.Size(); pad > 0 {
		relocatable.AddPostPad(pad)
	}
}

// ReserveNullOffset inserts a single alignment-sized pre-pad into
// readOnlyPrimitive so object offset zero is never assigned to a real
// object, keeping it available as the null reference under a compressed
// heap base. Unlike AlignRelocatablePartition, this pad must precede
// every real object in the partition, so it must be called before
// discovery admits anything — Partition.AddPrePad panics otherwise.
func (b *SectionBinder) ReserveNullOffset(alignment int64) {
	b.Heap.Partition(heapmodel.ReadOnlyPrimitive).AddPrePad(alignment)
}

// ReadOnlySectionSize returns the combined size of the three read-only
// partitions.
func (b *SectionBinder) ReadOnlySectionSize() int64 {
	var total int64
	for _, p := range b.Heap.ReadOnlyPartitions() {
		total += p.Size()
	}
	return total
}

// WritableSectionSize returns the combined size of the two writable
// partitions.
func (b *SectionBinder) WritableSectionSize() int64 {
	var total int64
	for _, p := range b.Heap.WritablePartitions() {
		total += p.Size()
	}
	return total
}

// ReadOnlyRelocatablePartitionSize returns the relocatable partition's
// size on its own.
func (b *SectionBinder) ReadOnlyRelocatablePartitionSize() int64 {
	return b.Heap.Partition(heapmodel.ReadOnlyRelocatable).Size()
}

func alignUp(v, a int64) int64 {
	if a <= 1 || v%a == 0 {
		return v
	}
	return v + (a - v%a)
}
