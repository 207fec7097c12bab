// ABOUTME: Append-only arena tracking one homogeneous region of the image
// ABOUTME: heap: its size, padding, first/last objects, and section binding.
package heapmodel

import "github.com/kuaiwei/imageheap/hostiface"

// PartitionName identifies one of the five fixed partitions.
type PartitionName int

const (
	ReadOnlyPrimitive PartitionName = iota
	ReadOnlyReference
	ReadOnlyRelocatable
	WritablePrimitive
	WritableReference
)

func (n PartitionName) String() string {
	switch n {
	case ReadOnlyPrimitive:
		return "readOnlyPrimitive"
	case ReadOnlyReference:
		return "readOnlyReference"
	case ReadOnlyRelocatable:
		return "readOnlyRelocatable"
	case WritablePrimitive:
		return "writablePrimitive"
	case WritableReference:
		return "writableReference"
	default:
		return "unknown"
	}
}

func (n PartitionName) Writable() bool {
	return n == WritablePrimitive || n == WritableReference
}

// Partition is an append-only arena: objects are appended in admission
// order and the partition's size grows monotonically. It never shrinks
// and never reorders what it already holds.
type Partition struct {
	Name     PartitionName
	Writable bool

	size    int64
	prePad  int64
	postPad int64
	count   int

	firstObject hostiface.Host
	hasFirst    bool
	lastObject  hostiface.Host

	sectionName   string
	sectionOffset int64
	hasSection    bool
}

// NewPartition creates an empty partition with the given name.
func NewPartition(name PartitionName) *Partition {
	return &Partition{Name: name, Writable: name.Writable()}
}

// Size returns the partition's current total size in bytes, padding
// included.
func (p *Partition) Size() int64 { return p.size }

// PrePad returns the accumulated pre-padding.
func (p *Partition) PrePad() int64 { return p.prePad }

// PostPad returns the accumulated post-padding.
func (p *Partition) PostPad() int64 { return p.postPad }

// Count returns the number of objects allocated into the partition.
func (p *Partition) Count() int { return p.count }

// FirstObject returns the first object allocated into the partition, if any.
func (p *Partition) FirstObject() (hostiface.Host, bool) { return p.firstObject, p.hasFirst }

// LastObject returns the most recently allocated object, if any.
func (p *Partition) LastObject() (hostiface.Host, bool) {
	return p.lastObject, p.hasFirst
}

// Allocate appends an object of the given size and host identity, returning
// the partition-relative offset it was placed at (the pre-increment size).
func (p *Partition) Allocate(host hostiface.Host, size int64) int64 {
	offset := p.size
	p.size += size
	p.count++
	if !p.hasFirst {
		p.firstObject = host
		p.hasFirst = true
	}
	p.lastObject = host
	return offset
}

// AddPrePad grows the partition by n bytes of pre-padding, tracked
// separately from object bytes so section-boundary alignment can be
// reported accurately. Per-object offsets are frozen at Allocate time, so
// pre-padding can only ever precede objects that don't exist yet — it
// panics if the partition already holds any.
func (p *Partition) AddPrePad(n int64) {
	if p.count > 0 {
		panic("heapmodel: AddPrePad called after objects were already allocated into this partition")
	}
	p.prePad += n
	p.size += n
}

// AddPostPad grows the partition by n bytes of post-padding.
func (p *Partition) AddPostPad(n int64) {
	p.postPad += n
	p.size += n
}

// SetSection binds the partition into its enclosing section at the given
// section-relative base offset.
func (p *Partition) SetSection(name string, offset int64) {
	p.sectionName = name
	p.sectionOffset = offset
	p.hasSection = true
}

// Section returns the partition's section name and base offset, if bound.
func (p *Partition) Section() (name string, offset int64, ok bool) {
	return p.sectionName, p.sectionOffset, p.hasSection
}

// SectionOffsetOf translates a partition-relative offset into a
// section-relative one. Panics if the partition has not been bound to a
// section yet — calling this before SetSection is a programmer error.
func (p *Partition) SectionOffsetOf(partitionRelative int64) int64 {
	if !p.hasSection {
		panic("heapmodel: SectionOffsetOf called before SetSection")
	}
	return p.sectionOffset + partitionRelative
}
