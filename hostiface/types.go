// ABOUTME: Interfaces the heap builder consumes from the external analysis
// ABOUTME: universe, metadata model, and host runtime — no implementation here.
package hostiface

// Host is an opaque, identity-bearing value supplied by the host runtime.
// Equality among Host values must be identity, never structural equality.
// Concrete implementations must be pointer types (or otherwise carry a
// pointer-identity dynamic type) so that Go's interface comparison — which
// compares (dynamic type, dynamic value) — gives identity semantics for
// free when a Host is used as a map key.
type Host = any

// Kind classifies a Type.
type Kind int

const (
	KindInstance Kind = iota
	KindArray
	KindPrimitive
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindArray:
		return "array"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// ElementKind identifies the storage kind of a field, array component, or
// constant value: either a reference ("object") or one of the fixed-width
// primitive kinds, plus the raw-integer "word" kind used for non-reference
// machine words (pointers into native memory, never heap objects).
type ElementKind int

const (
	Object ElementKind = iota
	Boolean
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Word
)

// Size returns the element's width in bytes, or -1 for Object (width
// depends on the oracle's reference width / compression mode).
func (k ElementKind) Size() int {
	switch k {
	case Boolean, Byte:
		return 1
	case Char, Short:
		return 2
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	case Word:
		return 8
	default:
		return -1
	}
}

func (k ElementKind) IsObject() bool { return k == Object }

// LayoutEncoding is the per-type layout fact supplied by the metadata
// model: how many bytes an instance of the type occupies, header included.
type LayoutEncoding interface {
	InstanceSize() int64
}

// Field describes one instance field of a Type.
type Field interface {
	Name() string
	Kind() ElementKind
	// Location is the byte offset of the field within an instance.
	Location() int64
	HasLocation() bool
	IsAccessed() bool
	IsWritten() bool
	IsFinal() bool
	// ReadValue reads the field's current value out of a live host object.
	ReadValue(receiver Host) (Constant, error)
}

// HybridLayout describes a type that inlines a variable-length tail
// (an array, and optionally a bit set) directly into the instance.
type HybridLayout struct {
	ArrayField  Field
	BitSetField Field // nil if the type has no inlined bit set
	ElementKind ElementKind

	BitFieldOffset    int64
	ArrayLengthOffset int64

	// ArrayElementOffset returns the byte offset of tail element i.
	ArrayElementOffset func(index int64) int64
	// TotalSize returns the instance's total size given the tail array's length.
	TotalSize func(length int64) int64
}

// Type is the per-class/array metadata the analysis universe and metadata
// model supply for every type reachable from the admitted object graph.
type Type interface {
	Name() string
	Kind() Kind
	IsInstantiated() bool
	IsHybrid() bool
	HasMonitorField() bool

	// Hub is the runtime metadata object representing this type; every
	// instance's header word references it.
	Hub() Host

	LayoutEncoding() LayoutEncoding
	InstanceFields() []Field

	// ComponentKind is valid only for KindArray types.
	ComponentKind() ElementKind

	// HybridLayoutOf builds (or returns the cached) hybrid layout for this
	// type. Returns nil, false for non-hybrid types.
	HybridLayoutOf() (*HybridLayout, bool)

	// HashCodeOffset reports the byte offset at which this type's hub
	// stores the per-object identity-hash field, if any.
	HashCodeOffset() (offset int64, ok bool)
}

// RelocationTarget names a function/method pointer that the dynamic
// linker must patch at load time. The compiled-code emitter (out of
// scope here) is the authority on whether a method is actually compiled.
type RelocationTarget struct {
	MethodName string
	IsCompiled bool
}

// Constant is the value read out of a field, array element, or hybrid tail
// slot. Exactly one of the payload fields is meaningful, selected by Kind.
type Constant struct {
	Kind ElementKind

	// Meaningful when Kind == Object and the value is a plain reference.
	ObjectValue Host
	IsNull      bool

	// Meaningful when Kind == Object and the value is a relocation-bearing
	// pointer (e.g. a boxed method pointer) rather than a plain reference.
	Relocation *RelocationTarget

	// Meaningful when Kind is a primitive kind: the raw bit pattern,
	// width determined by Kind.Size().
	Raw uint64
}

// Universe is the external static-analysis universe: it classifies which
// host classes were seen as instantiated during analysis and supplies
// type lookups by the host's runtime class handle.
type Universe interface {
	// LookupType returns the Type for a host object's runtime class, or
	// ok=false if analysis never saw the class.
	LookupType(host Host) (Type, bool)

	// ReplaceObject is the analysis-time substitution hook: implementations
	// may swap in a different host object in place of the one discovered
	// (used by the analysis to canonicalize or redirect objects).
	ReplaceObject(host Host) Host
}

// IdentityHasher computes identity hashes the way the host runtime would,
// so host-side hash maps keyed on the emitted objects remain valid once
// loaded into the generated executable.
//
// For a hub, IdentityHashOf must return the identity hash of the hub's
// corresponding host-language class object, not some hash intrinsic to
// the hub's own runtime-metadata representation — the traversal calls
// IdentityHashOf uniformly for every admitted host and relies on this
// implementation to make that substitution for hubs itself.
type IdentityHasher interface {
	IdentityHashOf(host Host) int32
}

// WordType reports whether a host value is word-typed (a raw integer,
// never a heap reference) and whether it represents a runtime class
// handle or a hub.
type WordType interface {
	IsWordValue(host Host) bool
	// IsClassHandle reports whether host is a bare runtime class handle —
	// these must be represented in the image by their hub, never admitted
	// directly.
	IsClassHandle(host Host) bool
	// IsHub reports whether host is itself a hub (a type's runtime
	// metadata object).
	IsHub(host Host) bool
	// ClassInitInfoPopulated reports whether a hub's class-initialization
	// info has been populated by analysis; an unpopulated hub indicates a
	// type analysis never saw as reachable.
	ClassInitInfoPopulated(hub Host) bool
}

// StringInspector exposes the host-string-specific operations the
// traversal needs: forcing hash-code materialization, checking whether a
// string value is host-interned, and reading its value.
type StringInspector interface {
	IsString(host Host) bool
	// EnsureHashCached forces the host's cached-hash field to be computed,
	// mirroring invoking the host language's hash function once.
	EnsureHashCached(host Host)
	// HasNonZeroCachedHash reports whether host's cached hash field is
	// already non-zero — one of the known-immutable conditions.
	HasNonZeroCachedHash(host Host) bool
	IsInterned(host Host) bool
	StringValue(host Host) string
}

// ArrayAccessor reads array-shaped host values: the object's own arrays,
// and a hybrid layout's inlined tail array.
type ArrayAccessor interface {
	Length(host Host) int64
	Element(host Host, index int64) (Constant, error)
}

// RootProvider supplies the initial set of root static-field holders that
// seed the discovery traversal.
type RootProvider interface {
	Roots() map[string]Host
}

// InternedStringsTarget is the runtime-visible singleton that owns the
// canonical interned-strings array field. Singleton is the object whose
// field will be overwritten once the sorted array is built.
type InternedStringsTarget interface {
	// HasInternedStringsField reports whether the singleton's
	// interned-strings array field is accessed at all — if not, the
	// intern-strings finalization step is skipped entirely.
	HasInternedStringsField() bool
	Singleton() Host
	StringArrayType() Type
	// PublishInternedStrings builds an array holding strs in order,
	// installs it as the singleton's interned-strings field value, and
	// returns the array host so it can be admitted.
	PublishInternedStrings(strs []string) Host
}
