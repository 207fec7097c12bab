package hostiface

// RelocatableBuffer is the byte-addressed output buffer the emitter writes
// into. A real implementation backs this with a growable byte slice paired
// with a relocation table consumed later by the section linker; this
// interface is the only contract the emitter depends on.
type RelocatableBuffer interface {
	PutByte(index int64, v uint8)
	PutShort(index int64, v int16)
	PutInt(index int64, v int32)
	PutLong(index int64, v int64)
	PutFloat(index int64, v float32)
	PutDouble(index int64, v float64)

	// AddDirectRelocationWithoutAddend records that the reference-width
	// word starting at index must be patched with target's final address.
	AddDirectRelocationWithoutAddend(index int64, size int, target Host)

	// AddDirectRelocationWithAddend is the same, but the patched value is
	// target's final address plus addend (used for hub headers, which OR
	// in reserved header bits on top of the hub's address).
	AddDirectRelocationWithAddend(index int64, size int, addend int64, target Host)
}
