// ABOUTME: The five-partition image heap: admitted-object map, blacklist,
// ABOUTME: known-immutables, interned strings, hybrid-layout cache, phases.
package heapmodel

import (
	"sort"

	"github.com/kuaiwei/imageheap/hostiface"
)

// PendingAdmission is one entry on the discovery worklist: a candidate
// object to admit, whether its parent forces it immutable, and the
// reverse-reachability reason it was discovered through.
type PendingAdmission struct {
	Host                hostiface.Host
	ImmutableFromParent bool
	Reason              Reason
}

// Heap is the single-threaded, single-build image heap model. It owns the
// five fixed partitions, the identity-keyed admitted-object map, the
// hybrid-tail blacklist, the known-immutable sets, the canonical
// interned-strings table, and the two admission phase gates.
type Heap struct {
	partitions [5]*Partition

	objects map[hostiface.Host]*Descriptor
	// order preserves admission order for deterministic emission even
	// though objects is a map (map iteration order is not stable in Go).
	order []hostiface.Host

	blacklist           map[hostiface.Host]struct{}
	knownImmutableHosts map[hostiface.Host]struct{}
	knownImmutableTypes map[hostiface.Type]struct{}

	internedStrings map[string]struct{}

	hybridLayouts map[hostiface.Type]*hostiface.HybridLayout

	Worklist Worklist[PendingAdmission]

	NewObjectsGate      *Gate
	InternedStringsGate *Gate

	firstRelocatablePointerOffsetInSection    int64
	hasFirstRelocatablePointerOffsetInSection bool
}

// NewHeap creates an empty heap with all five partitions and both phase
// gates in the Before state.
func NewHeap() *Heap {
	h := &Heap{
		objects:             make(map[hostiface.Host]*Descriptor),
		blacklist:           make(map[hostiface.Host]struct{}),
		knownImmutableHosts: make(map[hostiface.Host]struct{}),
		knownImmutableTypes: make(map[hostiface.Type]struct{}),
		internedStrings:     make(map[string]struct{}),
		hybridLayouts:       make(map[hostiface.Type]*hostiface.HybridLayout),
		NewObjectsGate:      NewGate("newObjects"),
		InternedStringsGate: NewGate("internedStrings"),
	}
	for _, name := range []PartitionName{ReadOnlyPrimitive, ReadOnlyReference, ReadOnlyRelocatable, WritablePrimitive, WritableReference} {
		h.partitions[name] = NewPartition(name)
	}
	return h
}

// Partition returns the named partition.
func (h *Heap) Partition(name PartitionName) *Partition { return h.partitions[name] }

// AllPartitions returns all five partitions in their fixed declaration
// order: readOnlyPrimitive, readOnlyReference, readOnlyRelocatable,
// writablePrimitive, writableReference.
func (h *Heap) AllPartitions() []*Partition {
	return []*Partition{
		h.partitions[ReadOnlyPrimitive],
		h.partitions[ReadOnlyReference],
		h.partitions[ReadOnlyRelocatable],
		h.partitions[WritablePrimitive],
		h.partitions[WritableReference],
	}
}

// ReadOnlyPartitions returns the three read-only partitions in section order.
func (h *Heap) ReadOnlyPartitions() []*Partition {
	return []*Partition{
		h.partitions[ReadOnlyPrimitive],
		h.partitions[ReadOnlyReference],
		h.partitions[ReadOnlyRelocatable],
	}
}

// WritablePartitions returns the two writable partitions in section order.
func (h *Heap) WritablePartitions() []*Partition {
	return []*Partition{h.partitions[WritablePrimitive], h.partitions[WritableReference]}
}

// Descriptor returns the admitted descriptor for host, if any.
func (h *Heap) Descriptor(host hostiface.Host) (*Descriptor, bool) {
	d, ok := h.objects[host]
	return d, ok
}

// Admit records a newly-admitted descriptor, keyed by its object's
// identity. Admitting the same host twice is a programmer error — callers
// must check Descriptor first (addObject's idempotence check).
func (h *Heap) Admit(d *Descriptor) {
	if _, exists := h.objects[d.Object]; exists {
		panic("heapmodel: object admitted twice")
	}
	h.objects[d.Object] = d
	h.order = append(h.order, d.Object)
}

// NumObjects returns the number of admitted objects.
func (h *Heap) NumObjects() int { return len(h.objects) }

// ForEachObject iterates admitted descriptors in admission order, the
// stable order emission relies on for determinism.
func (h *Heap) ForEachObject(fn func(*Descriptor)) {
	for _, host := range h.order {
		fn(h.objects[host])
	}
}

// Blacklist marks a host as inlined into a parent's hybrid tail; it must
// never be emitted as an independent object.
func (h *Heap) Blacklist(host hostiface.Host) { h.blacklist[host] = struct{}{} }

// IsBlacklisted reports whether host was blacklisted.
func (h *Heap) IsBlacklisted(host hostiface.Host) bool {
	_, ok := h.blacklist[host]
	return ok
}

// RegisterAsImmutable records host as known-immutable regardless of where
// it is discovered from.
func (h *Heap) RegisterAsImmutable(host hostiface.Host) {
	h.knownImmutableHosts[host] = struct{}{}
}

// RegisterImmutableType records every instance of t as known-immutable.
func (h *Heap) RegisterImmutableType(t hostiface.Type) {
	h.knownImmutableTypes[t] = struct{}{}
}

// IsKnownImmutableObject reports whether host (or its type) was registered
// as known-immutable.
func (h *Heap) IsKnownImmutableObject(host hostiface.Host, t hostiface.Type) bool {
	if _, ok := h.knownImmutableHosts[host]; ok {
		return true
	}
	_, ok := h.knownImmutableTypes[t]
	return ok
}

// HybridLayoutFor returns the cached hybrid layout for t, if any.
func (h *Heap) HybridLayoutFor(t hostiface.Type) (*hostiface.HybridLayout, bool) {
	l, ok := h.hybridLayouts[t]
	return l, ok
}

// CacheHybridLayout stores the hybrid layout for t for reuse by later
// admissions of the same type.
func (h *Heap) CacheHybridLayout(t hostiface.Type, l *hostiface.HybridLayout) {
	h.hybridLayouts[t] = l
}

// InternString records s in the canonical interned-strings table. Must
// only be called while InternedStringsGate is Allowed.
func (h *Heap) InternString(s string) { h.internedStrings[s] = struct{}{} }

// SortedInternedStrings returns the interned-strings table's keys sorted
// lexicographically, producing a deterministic image regardless of
// discovery order.
func (h *Heap) SortedInternedStrings() []string {
	out := make([]string, 0, len(h.internedStrings))
	for s := range h.internedStrings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RecordFirstRelocatablePointerOffsetInSection records the section offset
// of the first relocation ever emitted, if one hasn't been recorded yet.
func (h *Heap) RecordFirstRelocatablePointerOffsetInSection(offset int64) {
	if h.hasFirstRelocatablePointerOffsetInSection {
		return
	}
	h.firstRelocatablePointerOffsetInSection = offset
	h.hasFirstRelocatablePointerOffsetInSection = true
}

// FirstRelocatablePointerOffsetInSection returns the offset recorded by
// RecordFirstRelocatablePointerOffsetInSection, if any.
func (h *Heap) FirstRelocatablePointerOffsetInSection() (int64, bool) {
	return h.firstRelocatablePointerOffsetInSection, h.hasFirstRelocatablePointerOffsetInSection
}
