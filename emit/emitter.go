// ABOUTME: Serializes every admitted descriptor into its section's byte
// ABOUTME: buffer: hub header, instance fields, hybrid bit set and tail,
// ABOUTME: identity hash, and array length/elements.
package emit

import (
	"fmt"

	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
	"github.com/kuaiwei/imageheap/layout"
)

// Emitter writes the admitted heap's bytes into the read-only and
// writable section buffers. Both buffers must already belong to
// partitions bound to a section (see SectionBinder) before WriteHeap runs.
type Emitter struct {
	Heap     *heapmodel.Heap
	Oracle   *layout.Oracle
	Compress layout.CompressEncoding
	Arrays   hostiface.ArrayAccessor

	ReadOnlyBuffer hostiface.RelocatableBuffer
	WritableBuffer hostiface.RelocatableBuffer
}

func (e *Emitter) bufferFor(name heapmodel.PartitionName) hostiface.RelocatableBuffer {
	if e.Heap.Partition(name).Writable {
		return e.WritableBuffer
	}
	return e.ReadOnlyBuffer
}

func (e *Emitter) sectionOffsetOf(d *heapmodel.Descriptor) int64 {
	name, _ := d.Partition()
	return e.Heap.Partition(name).SectionOffsetOf(d.OffsetInPartition())
}

// WriteHeap serializes every admitted object. debug is accepted for
// parity with the exposed operation in spec §6 but otherwise unused: this
// emitter carries no separate debug-info side channel.
func (e *Emitter) WriteHeap(debug bool) error {
	var emitErr error
	e.Heap.ForEachObject(func(d *heapmodel.Descriptor) {
		if emitErr != nil {
			return
		}
		emitErr = e.emitOne(d)
	})
	return emitErr
}

func (e *Emitter) emitOne(d *heapmodel.Descriptor) error {
	name, ok := d.Partition()
	if !ok {
		return &InvariantError{Message: fmt.Sprintf("%v has no partition assignment at emission time", d.Object)}
	}
	buf := e.bufferFor(name)
	base := e.sectionOffsetOf(d)

	if err := e.writeHubHeader(buf, base, d); err != nil {
		return err
	}

	switch d.Type.Kind() {
	case hostiface.KindArray:
		return e.emitArray(buf, base, d)
	case hostiface.KindInstance:
		return e.emitInstance(buf, base, d)
	default:
		return &InvariantError{Message: fmt.Sprintf("cannot emit primitive-kind type %s", d.Type.Name())}
	}
}

func (e *Emitter) writeHubHeader(buf hostiface.RelocatableBuffer, base int64, d *heapmodel.Descriptor) error {
	idx := base + e.Oracle.HubOffset()
	headerBits := e.Oracle.ObjectHeaderBits(0)
	hubDescriptor, ok := e.Heap.Descriptor(d.Type.Hub())
	if !ok {
		return &DriftError{Message: fmt.Sprintf("hub of %s was never admitted", d.Type.Name())}
	}

	if !e.Compress.HasBase {
		buf.AddDirectRelocationWithAddend(idx, int(e.Oracle.ReferenceWidth()), headerBits, d.Type.Hub())
		return nil
	}
	offset := e.sectionOffsetOf(hubDescriptor)
	if !e.Oracle.HeaderReservedBits {
		offset >>= e.Compress.Shift
	}
	return e.writeRaw(buf, idx, uint64(offset)|uint64(headerBits), e.Oracle.ReferenceWidth())
}

func (e *Emitter) emitInstance(buf hostiface.RelocatableBuffer, base int64, d *heapmodel.Descriptor) error {
	t := d.Type
	hybrid, _ := t.HybridLayoutOf()

	for _, f := range t.InstanceFields() {
		if !f.IsAccessed() || !f.HasLocation() {
			continue
		}
		if hybrid != nil && (f == hybrid.ArrayField || f == hybrid.BitSetField) {
			continue
		}
		if err := e.emitField(buf, base, d, f); err != nil {
			return err
		}
	}

	if off, ok := t.HashCodeOffset(); ok {
		if err := e.writeRaw(buf, base+off, uint64(uint32(d.IdentityHash)), 4); err != nil {
			return err
		}
	}

	if hybrid == nil {
		return nil
	}
	return e.emitHybridTail(buf, base, d, hybrid)
}

func (e *Emitter) emitField(buf hostiface.RelocatableBuffer, base int64, d *heapmodel.Descriptor, f hostiface.Field) error {
	idx := base + f.Location()
	c, err := f.ReadValue(d.Object)
	if err != nil {
		return err
	}
	if f.Kind().IsObject() {
		return e.writeReference(buf, idx, c)
	}
	return e.writeRaw(buf, idx, c.Raw, int64(f.Kind().Size()))
}

func (e *Emitter) emitHybridTail(buf hostiface.RelocatableBuffer, base int64, d *heapmodel.Descriptor, hybrid *hostiface.HybridLayout) error {
	var length int64
	var arrHost hostiface.Host
	if hybrid.ArrayField != nil {
		c, err := hybrid.ArrayField.ReadValue(d.Object)
		if err != nil {
			return err
		}
		if !c.IsNull {
			arrHost = c.ObjectValue
			length = e.Arrays.Length(arrHost)
		}
	}

	if err := e.writeRaw(buf, base+hybrid.ArrayLengthOffset, uint64(uint32(length)), 4); err != nil {
		return err
	}

	if hybrid.BitSetField != nil {
		if c, err := hybrid.BitSetField.ReadValue(d.Object); err == nil && !c.IsNull {
			if err := e.emitBitSet(buf, base, hybrid, c.ObjectValue); err != nil {
				return err
			}
		}
	}

	if arrHost == nil {
		return nil
	}
	for i := int64(0); i < length; i++ {
		c, err := e.Arrays.Element(arrHost, i)
		if err != nil {
			return err
		}
		idx := base + hybrid.ArrayElementOffset(i)
		if hybrid.ElementKind.IsObject() {
			if err := e.writeReference(buf, idx, c); err != nil {
				return err
			}
			continue
		}
		if err := e.writeRaw(buf, idx, c.Raw, int64(hybrid.ElementKind.Size())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitBitSet(buf hostiface.RelocatableBuffer, base int64, hybrid *hostiface.HybridLayout, bitSetHost hostiface.Host) error {
	length := e.Arrays.Length(bitSetHost)
	var cur byte
	curIdx := int64(-1)
	for bit := int64(0); bit < length; bit++ {
		c, err := e.Arrays.Element(bitSetHost, bit)
		if err != nil {
			return err
		}
		if c.Raw == 0 {
			continue
		}
		byteIdx := base + hybrid.BitFieldOffset + bit/8
		if byteIdx != curIdx {
			cur, curIdx = 0, byteIdx
		}
		cur |= byte(1) << (uint(bit) % 8)
		buf.PutByte(byteIdx, cur)
	}
	return nil
}

func (e *Emitter) emitArray(buf hostiface.RelocatableBuffer, base int64, d *heapmodel.Descriptor) error {
	length := e.Arrays.Length(d.Object)
	if err := e.writeRaw(buf, base+e.Oracle.ArrayLengthOffset(), uint64(uint32(length)), 4); err != nil {
		return err
	}
	if err := e.writeRaw(buf, base+e.Oracle.ArrayHashCodeOffset(), uint64(uint32(d.IdentityHash)), 4); err != nil {
		return err
	}

	kind := d.Type.ComponentKind()
	for i := int64(0); i < length; i++ {
		c, err := e.Arrays.Element(d.Object, i)
		if err != nil {
			return err
		}
		idx := base + e.Oracle.ArrayElementOffset(kind, i)
		if kind.IsObject() {
			if err := e.writeReference(buf, idx, c); err != nil {
				return err
			}
			continue
		}
		if err := e.writeRaw(buf, idx, c.Raw, int64(kind.Size())); err != nil {
			return err
		}
	}
	return nil
}

// writeReference emits one object-kind field/element slot, following
// compression and relocation discipline uniformly for instance fields,
// array elements, and hybrid tail elements.
func (e *Emitter) writeReference(buf hostiface.RelocatableBuffer, idx int64, c hostiface.Constant) error {
	if idx%e.Oracle.ReferenceWidth() != 0 {
		return &InvariantError{Message: fmt.Sprintf("reference write at offset %d is not aligned to reference width %d", idx, e.Oracle.ReferenceWidth())}
	}

	if c.IsNull {
		return e.writeRaw(buf, idx, 0, e.Oracle.ReferenceWidth())
	}
	if c.Relocation != nil {
		if !c.Relocation.IsCompiled {
			return &InvariantError{Message: fmt.Sprintf("relocation target %q has unknown compilation status", c.Relocation.MethodName)}
		}
		buf.AddDirectRelocationWithoutAddend(idx, int(e.Oracle.ReferenceWidth()), c.ObjectValue)
		if e.Compress.HasBase {
			e.Heap.RecordFirstRelocatablePointerOffsetInSection(idx)
		}
		return nil
	}

	target, ok := e.Heap.Descriptor(c.ObjectValue)
	if !ok {
		return &DriftError{Message: fmt.Sprintf("reference at offset %d targets an unadmitted object: %v", idx, c.ObjectValue)}
	}
	if !e.Compress.HasBase {
		buf.AddDirectRelocationWithoutAddend(idx, int(e.Oracle.ReferenceWidth()), c.ObjectValue)
		return nil
	}
	offset := e.sectionOffsetOf(target) >> e.Compress.Shift
	return e.writeRaw(buf, idx, uint64(offset), e.Oracle.ReferenceWidth())
}

func (e *Emitter) writeRaw(buf hostiface.RelocatableBuffer, idx int64, raw uint64, width int64) error {
	switch width {
	case 1:
		buf.PutByte(idx, uint8(raw))
	case 2:
		buf.PutShort(idx, int16(raw))
	case 4:
		buf.PutInt(idx, int32(raw))
	case 8:
		buf.PutLong(idx, int64(raw))
	default:
		return &InvariantError{Message: fmt.Sprintf("unsupported write width %d at offset %d", width, idx)}
	}
	return nil
}
