// ABOUTME: Pure layout math — sizes, offsets, and alignment for the image
// ABOUTME: heap. No mutable state; the emitter and discovery both depend only on this.
package layout

import "github.com/kuaiwei/imageheap/hostiface"

// CompressEncoding describes the compressed-heap-base scheme in effect
// for a build: reference fields store a shifted section-relative offset
// instead of a full pointer, reconstructed at load time by shift-and-add.
type CompressEncoding struct {
	Shift   uint8
	HasBase bool
}

// Oracle answers layout questions for a fixed reference width and
// compression scheme. It holds no object-specific state.
type Oracle struct {
	// RefWidth is 4 or 8: the byte width of an object reference.
	RefWidth int64
	// ObjectAlignment is the alignment every object's size and every
	// partition section offset must satisfy.
	ObjectAlignment int64
	// HubOffsetVal is the byte offset of the hub header word within every
	// object (instance or array).
	HubOffsetVal int64
	// HeaderReservedBits, when true, marks that the hub header reserves
	// low bits for flags and must never be compression-shifted.
	HeaderReservedBits bool

	Compress CompressEncoding
}

// ReferenceWidth returns the byte width of an object reference.
func (o *Oracle) ReferenceWidth() int64 { return o.refWidth() }

func (o *Oracle) refWidth() int64 {
	if o.RefWidth != 4 && o.RefWidth != 8 {
		return 8
	}
	return o.RefWidth
}

// HubOffset returns the byte offset of the hub header word.
func (o *Oracle) HubOffset() int64 { return o.HubOffsetVal }

// Align rounds size up to the oracle's object alignment.
func (o *Oracle) Align(size int64) int64 {
	a := o.ObjectAlignment
	if a <= 0 {
		a = 8
	}
	if size%a == 0 {
		return size
	}
	return size + (a - size%a)
}

// IsAligned reports whether offset already satisfies the object alignment.
func (o *Oracle) IsAligned(offset int64) bool {
	a := o.ObjectAlignment
	if a <= 0 {
		a = 8
	}
	return offset%a == 0
}

// HashCodeOffset looks up where a type's hub stores the per-object
// identity-hash slot.
func (o *Oracle) HashCodeOffset(t hostiface.Type) (int64, bool) {
	return t.HashCodeOffset()
}

// ArrayLengthOffset returns the byte offset of the length field shared by
// every array layout: immediately after the hub header, aligned to 4 bytes
// (the length is always a 32-bit count).
func (o *Oracle) ArrayLengthOffset() int64 {
	return o.Align4(o.HubOffsetVal + o.refWidth())
}

// ArrayHashCodeOffset returns the byte offset of an array's identity-hash
// slot, immediately after its length field.
func (o *Oracle) ArrayHashCodeOffset() int64 {
	return o.ArrayLengthOffset() + 4
}

// ArrayBaseOffset returns the byte offset of element 0 of an array whose
// elements have the given kind: immediately after length + hash code,
// aligned to the element's own width.
func (o *Oracle) ArrayBaseOffset(kind hostiface.ElementKind) int64 {
	base := o.ArrayHashCodeOffset() + 4
	width := int64(kind.Size())
	if kind.IsObject() {
		width = o.refWidth()
	}
	return alignTo(base, width)
}

// ArrayElementOffset returns the byte offset of element index of an array
// of the given component kind.
func (o *Oracle) ArrayElementOffset(kind hostiface.ElementKind, index int64) int64 {
	width := int64(kind.Size())
	if kind.IsObject() {
		width = o.refWidth()
	}
	return o.ArrayBaseOffset(kind) + index*width
}

// ArraySize returns an array instance's total aligned size given its
// component kind and length.
func (o *Oracle) ArraySize(kind hostiface.ElementKind, length int64) int64 {
	return o.Align(o.ArrayElementOffset(kind, length))
}

// InstanceSize returns an instance's aligned size from its layout
// encoding.
func (o *Oracle) InstanceSize(enc hostiface.LayoutEncoding) int64 {
	return o.Align(enc.InstanceSize())
}

// ObjectHeaderBits returns the reserved flag bits the emitter ORs into the
// hub header word on top of the hub reference; it returns reservedFlags
// unchanged. When the header reserves bits, the compression shift must never be
// applied to this value — callers branch on HeaderReservedBits themselves.
func (o *Oracle) ObjectHeaderBits(reservedFlags int64) int64 {
	return reservedFlags
}

// Align4 rounds up to a 4-byte boundary.
func (o *Oracle) Align4(offset int64) int64 { return alignTo(offset, 4) }

func alignTo(offset, width int64) int64 {
	if width <= 1 {
		return offset
	}
	if offset%width == 0 {
		return offset
	}
	return offset + (width - offset%width)
}
