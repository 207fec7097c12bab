// ABOUTME: Per-admitted-object record: identity, type, size, partition
// ABOUTME: assignment, and the reachability chain used for diagnostics.
package heapmodel

import "github.com/kuaiwei/imageheap/hostiface"

// Reason is the reverse-reachability back-edge for one admitted object:
// either it was discovered through a parent descriptor's field/element, or
// it is a root, labeled by a string. Reason chains form a tree rooted at
// string labels; they exist purely for diagnostics and must never be
// walked on any hot path (see diagnostics.Chain).
type Reason struct {
	// Exactly one of Parent or RootLabel is meaningful.
	Parent    *Descriptor
	RootLabel string
	// Detail describes how the parent reached this object, e.g. a field
	// name or "element[3]" — empty for root reasons.
	Detail string
}

// IsRoot reports whether this reason terminates the chain at a root label.
func (r Reason) IsRoot() bool { return r.Parent == nil }

// Descriptor is the internal record of one admitted object.
type Descriptor struct {
	Object       hostiface.Host
	Type         hostiface.Type
	Size         int64
	IdentityHash int32
	Reason       Reason

	partition    PartitionName
	offset       int64
	hasPartition bool
}

// NewDescriptor creates a descriptor with no partition assignment yet.
func NewDescriptor(obj hostiface.Host, t hostiface.Type, size int64, hash int32, reason Reason) *Descriptor {
	return &Descriptor{Object: obj, Type: t, Size: size, IdentityHash: hash, Reason: reason}
}

// AssignPartition sets the descriptor's partition and partition-relative
// offset. Once set it is immutable — a second call is a programmer error.
func (d *Descriptor) AssignPartition(p PartitionName, offset int64) {
	if d.hasPartition {
		panic("heapmodel: descriptor partition reassigned")
	}
	d.partition = p
	d.offset = offset
	d.hasPartition = true
}

// Partition returns the descriptor's assigned partition, if any.
func (d *Descriptor) Partition() (PartitionName, bool) { return d.partition, d.hasPartition }

// OffsetInPartition returns the descriptor's partition-relative offset.
// Valid only once AssignPartition has been called.
func (d *Descriptor) OffsetInPartition() int64 { return d.offset }
