// ABOUTME: The admission algorithm: validation, hybrid-layout handling,
// ABOUTME: field recursion via a worklist, immutability inference,
// ABOUTME: relocation detection, and partition selection.
package discovery

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kuaiwei/imageheap/diagnostics"
	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
	"github.com/kuaiwei/imageheap/layout"
)

// Traversal runs the single-threaded discovery algorithm against one Heap,
// consuming the external analysis-universe collaborators described in
// spec §6. Every field is a dependency injected at construction; Traversal
// itself holds no other mutable state beyond what Heap already owns.
type Traversal struct {
	Heap     *heapmodel.Heap
	Oracle   *layout.Oracle
	Universe hostiface.Universe
	Hash     hostiface.IdentityHasher
	Word     hostiface.WordType
	Strings  hostiface.StringInspector
	Arrays   hostiface.ArrayAccessor

	Compress layout.CompressEncoding
	// ForceAllWritable mirrors the UseOnlyWritableBootImageHeap override:
	// when set (and Compress.HasBase is false), every admitted object is
	// classified writableReference regardless of its own flags.
	ForceAllWritable bool

	Log *zap.SugaredLogger
}

// AddObject is the public admission entry point. It requires the
// new-objects gate to be Allowed; idempotent re-admission of an
// already-admitted host is a no-op.
func (t *Traversal) AddObject(host hostiface.Host, immutableFromParent bool, reason heapmodel.Reason) error {
	if err := t.Heap.NewObjectsGate.CheckAllowed(); err != nil {
		return err
	}
	if _, ok := t.Heap.Descriptor(host); ok {
		return nil
	}
	t.enqueue(host, immutableFromParent, reason)
	return nil
}

// RegisterAsImmutable records host as known-immutable without admitting it.
func (t *Traversal) RegisterAsImmutable(host hostiface.Host) {
	t.Heap.RegisterAsImmutable(host)
}

func (t *Traversal) enqueue(host hostiface.Host, immutableFromParent bool, reason heapmodel.Reason) {
	t.Heap.Worklist.Push(heapmodel.PendingAdmission{
		Host:                host,
		ImmutableFromParent: immutableFromParent,
		Reason:              reason,
	})
}

// Drain processes the worklist until empty, admitting every reachable
// object it can. The first error encountered aborts the drain; partial
// results are undefined past that point (spec §7).
func (t *Traversal) Drain() error {
	for {
		item, ok := t.Heap.Worklist.Pop()
		if !ok {
			return nil
		}
		if err := t.admitOne(item); err != nil {
			return err
		}
	}
}

func (t *Traversal) logf(msg string, args ...any) {
	if t.Log != nil {
		t.Log.Debugf(msg, args...)
	}
}

func (t *Traversal) admitOne(item heapmodel.PendingAdmission) error {
	host := item.Host

	if _, ok := t.Heap.Descriptor(host); ok {
		return nil // idempotent: already admitted via another path
	}
	if t.Heap.IsBlacklisted(host) {
		return nil // inlined into a parent's hybrid tail; never standalone
	}
	if t.Word.IsWordValue(host) {
		return &InvariantError{Message: fmt.Sprintf("attempted to admit a word-typed value: %v", host)}
	}
	if t.Word.IsClassHandle(host) {
		return &InvariantError{Message: fmt.Sprintf("attempted to admit a bare class handle, want its hub: %v", host)}
	}
	if t.Word.IsHub(host) && !t.Word.ClassInitInfoPopulated(host) {
		return &AnalysisGapError{
			Message: "hub missing class-initialization info: analysis did not see this type as instantiated",
			Chain:   diagnostics.FormatReason(fmt.Sprintf("%v", host), item.Reason),
		}
	}

	typ, ok := t.Universe.LookupType(host)
	if !ok {
		return &AnalysisGapError{
			Message: "class not seen as instantiated",
			Chain:   diagnostics.FormatReason(fmt.Sprintf("%v", host), item.Reason),
		}
	}
	if typ.Kind() == hostiface.KindInstance && !typ.IsInstantiated() {
		return &AnalysisGapError{
			Message: fmt.Sprintf("class %s not seen as instantiated", typ.Name()),
			Chain:   diagnostics.FormatReason(typ.Name(), item.Reason),
		}
	}

	isString := t.Strings.IsString(host)
	if isString {
		t.Strings.EnsureHashCached(host)
		if isInterned := t.Strings.IsInterned(host); isInterned {
			if t.Heap.InternedStringsGate.Phase() == heapmodel.Allowed {
				t.Heap.InternString(t.Strings.StringValue(host))
			}
		}
	}

	// For a hub this must already be the identity hash of its corresponding
	// class object, per IdentityHasher's contract — the traversal itself
	// does no hub substitution here.
	hash := t.Hash.IdentityHashOf(host)
	if hash == 0 {
		return &InvariantError{Message: fmt.Sprintf("identity hash of %v is zero (reserved marker)", host)}
	}

	size, hybrid, hybridArrayHost, hybridBitSetHost, hybridLen, err := t.sizeOf(host, typ)
	if err != nil {
		return err
	}
	if hybridArrayHost != nil {
		t.Heap.Blacklist(hybridArrayHost)
	}
	if hybridBitSetHost != nil {
		t.Heap.Blacklist(hybridBitSetHost)
	}

	descriptor := heapmodel.NewDescriptor(host, typ, size, hash, item.Reason)
	t.Heap.Admit(descriptor)

	t.enqueue(typ.Hub(), false, heapmodel.Reason{Parent: descriptor, Detail: "hub"})

	written, references, relocatable, err := t.recurse(host, typ, descriptor, isString, hybrid, hybridArrayHost, hybridLen)
	if err != nil {
		return err
	}
	if typ.HasMonitorField() {
		written = true
		references = true
	}

	immutable := item.ImmutableFromParent ||
		t.Heap.IsKnownImmutableObject(host, typ) ||
		(isString && t.Strings.HasNonZeroCachedHash(host))

	if relocatable && !immutable {
		return &InvariantError{Message: fmt.Sprintf("%s is relocatable but not immutable", typ.Name())}
	}
	writable := written && !immutable

	name := partitionFor(writable, references, relocatable)
	if t.ForceAllWritable && !t.Compress.HasBase {
		name = heapmodel.WritableReference
	}

	offset := t.Heap.Partition(name).Allocate(host, size)
	descriptor.AssignPartition(name, offset)

	t.logf("admitted %s into %s at offset %d (written=%v references=%v relocatable=%v)",
		typ.Name(), name, offset, written, references, relocatable)
	return nil
}

func partitionFor(writable, references, relocatable bool) heapmodel.PartitionName {
	switch {
	case relocatable:
		return heapmodel.ReadOnlyRelocatable
	case !writable && !references:
		return heapmodel.ReadOnlyPrimitive
	case !writable && references:
		return heapmodel.ReadOnlyReference
	case writable && !references:
		return heapmodel.WritablePrimitive
	default:
		return heapmodel.WritableReference
	}
}

// sizeOf computes an object's aligned size, handling hybrid-layout
// instances and arrays. Returns the hybrid tail array/bit-set hosts (for
// blacklisting) when applicable.
func (t *Traversal) sizeOf(host hostiface.Host, typ hostiface.Type) (
	size int64, hybrid *hostiface.HybridLayout, hybridArrayHost, hybridBitSetHost hostiface.Host, hybridLen int64, err error,
) {
	switch typ.Kind() {
	case hostiface.KindArray:
		length := t.Arrays.Length(host)
		return t.Oracle.ArraySize(typ.ComponentKind(), length), nil, nil, nil, 0, nil

	case hostiface.KindInstance:
		if !typ.IsHybrid() {
			return t.Oracle.InstanceSize(typ.LayoutEncoding()), nil, nil, nil, 0, nil
		}
		hl, ok := t.Heap.HybridLayoutFor(typ)
		if !ok {
			built, ok2 := typ.HybridLayoutOf()
			if !ok2 {
				return 0, nil, nil, nil, 0, &InvariantError{Message: fmt.Sprintf("%s is marked hybrid but has no hybrid layout", typ.Name())}
			}
			t.Heap.CacheHybridLayout(typ, built)
			hl = built
		}
		arrConst, rerr := hl.ArrayField.ReadValue(host)
		if rerr != nil {
			return 0, nil, nil, nil, 0, rerr
		}
		var arrHost hostiface.Host
		var length int64
		if !arrConst.IsNull {
			arrHost = arrConst.ObjectValue
			length = t.Arrays.Length(arrHost)
		}
		var bitSetHost hostiface.Host
		if hl.BitSetField != nil {
			bsConst, berr := hl.BitSetField.ReadValue(host)
			if berr == nil && !bsConst.IsNull {
				bitSetHost = bsConst.ObjectValue
			}
		}
		return t.Oracle.Align(hl.TotalSize(length)), hl, arrHost, bitSetHost, length, nil

	default:
		return 0, nil, nil, nil, 0, &InvariantError{Message: fmt.Sprintf("cannot admit a primitive-kind type %s as an object", typ.Name())}
	}
}

// recurse walks an admitted object's fields/elements, enqueuing every
// referenced object and accumulating the written/references/relocatable
// bits partition selection depends on.
func (t *Traversal) recurse(
	host hostiface.Host, typ hostiface.Type, self *heapmodel.Descriptor,
	isString bool, hybrid *hostiface.HybridLayout, hybridArrayHost hostiface.Host, hybridLen int64,
) (written, references, relocatable bool, err error) {
	childImmutable := isString // strings propagate immutability to their char-array payload

	switch typ.Kind() {
	case hostiface.KindArray:
		written = true // arrays are conservatively marked written; no per-element tracking
		if !typ.ComponentKind().IsObject() {
			return written, references, relocatable, nil
		}
		length := t.Arrays.Length(host)
		for i := int64(0); i < length; i++ {
			c, rerr := t.Arrays.Element(host, i)
			if rerr != nil {
				return false, false, false, rerr
			}
			fr, rerr := t.enqueueConstant(c, self, fmt.Sprintf("element[%d]", i), childImmutable)
			if rerr != nil {
				return false, false, false, rerr
			}
			if c.Kind == hostiface.Object && !c.IsNull {
				references = true
			}
			relocatable = relocatable || fr
		}
		return written, references, relocatable, nil

	case hostiface.KindInstance:
		for _, f := range typ.InstanceFields() {
			if !f.IsAccessed() || !f.HasLocation() {
				continue
			}
			if hybrid != nil && (f == hybrid.ArrayField || f == hybrid.BitSetField) {
				continue
			}
			fieldRelocatable := false
			if f.Kind() == hostiface.Object {
				c, rerr := f.ReadValue(host)
				if rerr != nil {
					return false, false, false, rerr
				}
				fr, rerr := t.enqueueConstant(c, self, "field "+f.Name(), childImmutable)
				if rerr != nil {
					return false, false, false, rerr
				}
				fieldRelocatable = fr
				if !c.IsNull {
					references = true
				}
			}
			relocatable = relocatable || fieldRelocatable
			written = written || (f.IsWritten() && !f.IsFinal() && !fieldRelocatable)
		}

		if hybrid != nil && hybridArrayHost != nil && hybrid.ElementKind.IsObject() {
			for i := int64(0); i < hybridLen; i++ {
				c, rerr := t.Arrays.Element(hybridArrayHost, i)
				if rerr != nil {
					return false, false, false, rerr
				}
				fr, rerr := t.enqueueConstant(c, self, fmt.Sprintf("hybrid tail[%d]", i), childImmutable)
				if rerr != nil {
					return false, false, false, rerr
				}
				if !c.IsNull {
					references = true
				}
				relocatable = relocatable || fr
			}
		}
		return written, references, relocatable, nil

	default:
		return false, false, false, &InvariantError{Message: fmt.Sprintf("cannot recurse into primitive-kind type %s", typ.Name())}
	}
}

// enqueueConstant pushes an object-kind constant's referenced host onto
// the worklist (applying the analysis-time replacement hook), or reports
// that the constant is itself a relocation-bearing pointer rather than a
// plain reference. Returns whether the field/element was relocatable.
func (t *Traversal) enqueueConstant(c hostiface.Constant, self *heapmodel.Descriptor, detail string, immutableFromParent bool) (bool, error) {
	if c.Kind != hostiface.Object || c.IsNull {
		return false, nil
	}
	if c.Relocation != nil {
		if !c.Relocation.IsCompiled {
			return false, &InvariantError{Message: fmt.Sprintf("relocation target %q has unknown compilation status", c.Relocation.MethodName)}
		}
		if t.Compress.HasBase {
			return true, nil
		}
		return false, nil
	}
	target := t.Universe.ReplaceObject(c.ObjectValue)
	t.enqueue(target, immutableFromParent, heapmodel.Reason{Parent: self, Detail: detail})
	return false, nil
}
