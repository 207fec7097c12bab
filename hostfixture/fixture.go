// ABOUTME: A JSON-driven stand-in analysis universe and host runtime,
// ABOUTME: implementing every hostiface collaborator interface so the
// ABOUTME: discovery and intern packages can be exercised without a real
// ABOUTME: analysis toolchain.
package hostfixture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kuaiwei/imageheap/hostiface"
)

// objectHandle is the pointer-identity Host value every fixture object is
// represented by; two handles are the same object iff they are the same
// pointer, giving the identity semantics hostiface.Host requires.
type objectHandle struct {
	id string
}

// Fixture is a complete stand-in host graph loaded from a document: a
// fixed set of types and objects, reachable from a named set of roots.
type Fixture struct {
	doc document

	handles  map[string]*objectHandle
	objByH   map[*objectHandle]*objectDoc
	types    map[string]*fixtureType
	typeByH  map[*objectHandle]*fixtureType // objects whose Type field names a known type
	stringOf map[string]*objectHandle       // string value -> the handle that carries it, for re-publishing

	hashComputed map[*objectHandle]bool

	nextSynthetic int
}

// Load reads and parses a fixture document from path.
func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hostfixture: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader reads and parses a fixture document from r.
func LoadReader(r io.Reader) (*Fixture, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("hostfixture: decode: %w", err)
	}

	fx := &Fixture{
		doc:          doc,
		handles:      make(map[string]*objectHandle),
		objByH:       make(map[*objectHandle]*objectDoc),
		types:        make(map[string]*fixtureType),
		typeByH:      make(map[*objectHandle]*fixtureType),
		stringOf:     make(map[string]*objectHandle),
		hashComputed: make(map[*objectHandle]bool),
	}

	for i := range doc.Types {
		t := &fixtureType{fx: fx, spec: &doc.Types[i]}
		fx.types[t.spec.Name] = t
	}
	for i := range doc.Objects {
		od := &doc.Objects[i]
		h := fx.handleFor(od.ID)
		fx.objByH[h] = od
		if t, ok := fx.types[od.Type]; ok {
			fx.typeByH[h] = t
		}
		if od.IsString {
			fx.stringOf[od.StringValue] = h
		}
	}
	for _, t := range fx.types {
		if t.spec.Hub != "" {
			fx.handleFor(t.spec.Hub) // ensure the hub has a handle even if it has no object entry
		}
	}
	return fx, nil
}

// Handle returns the Host value for a fixture object by its document id,
// for use by callers (such as the CLI's -explain flag) that only have
// the id string on hand.
func (fx *Fixture) Handle(id string) hostiface.Host { return fx.handleFor(id) }

func (fx *Fixture) handleFor(id string) *objectHandle {
	if id == "" {
		return nil
	}
	if h, ok := fx.handles[id]; ok {
		return h
	}
	h := &objectHandle{id: id}
	fx.handles[id] = h
	return h
}

func asHandle(host hostiface.Host) *objectHandle {
	if host == nil {
		return nil
	}
	h, ok := host.(*objectHandle)
	if !ok {
		panic(fmt.Sprintf("hostfixture: host value of unexpected type %T", host))
	}
	return h
}

// --- hostiface.Universe ---

func (fx *Fixture) LookupType(host hostiface.Host) (hostiface.Type, bool) {
	h := asHandle(host)
	t, ok := fx.typeByH[h]
	return t, ok
}

// ReplaceObject is the identity substitution hook; the fixture performs
// no analysis-time canonicalization, so it is a no-op.
func (fx *Fixture) ReplaceObject(host hostiface.Host) hostiface.Host { return host }

// --- hostiface.IdentityHasher ---

func (fx *Fixture) IdentityHashOf(host hostiface.Host) int32 {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	if !ok {
		return 0
	}
	return od.IdentityHash
}

// --- hostiface.WordType ---

func (fx *Fixture) IsWordValue(host hostiface.Host) bool {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	return ok && od.IsWordValue
}

func (fx *Fixture) IsClassHandle(host hostiface.Host) bool {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	return ok && od.IsClassHandle
}

func (fx *Fixture) IsHub(host hostiface.Host) bool {
	h := asHandle(host)
	if od, ok := fx.objByH[h]; ok && od.IsHub {
		return true
	}
	for _, t := range fx.types {
		if fx.handleFor(t.spec.Hub) == h {
			return true
		}
	}
	return false
}

func (fx *Fixture) ClassInitInfoPopulated(hub hostiface.Host) bool {
	h := asHandle(hub)
	od, ok := fx.objByH[h]
	if !ok {
		// A hub with no backing object entry (the common case: hubs are
		// usually referenced only by id) is treated as populated by
		// default, since fixtures list only the interesting exceptions.
		return true
	}
	return od.ClassInitPopulated || !od.IsHub
}

// --- hostiface.StringInspector ---

func (fx *Fixture) IsString(host hostiface.Host) bool {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	return ok && od.IsString
}

func (fx *Fixture) EnsureHashCached(host hostiface.Host) {
	fx.hashComputed[asHandle(host)] = true
}

func (fx *Fixture) HasNonZeroCachedHash(host hostiface.Host) bool {
	h := asHandle(host)
	if !fx.hashComputed[h] {
		return false
	}
	od, ok := fx.objByH[h]
	return ok && od.CachedHashNonZero
}

func (fx *Fixture) IsInterned(host hostiface.Host) bool {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	return ok && od.Interned
}

func (fx *Fixture) StringValue(host hostiface.Host) string {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	if !ok {
		return ""
	}
	return od.StringValue
}

// --- hostiface.ArrayAccessor ---

func (fx *Fixture) Length(host hostiface.Host) int64 {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	if !ok {
		return 0
	}
	return od.Length
}

func (fx *Fixture) Element(host hostiface.Host, index int64) (hostiface.Constant, error) {
	h := asHandle(host)
	od, ok := fx.objByH[h]
	if !ok {
		return hostiface.Constant{}, fmt.Errorf("hostfixture: element read on unknown object %v", host)
	}
	t := fx.typeByH[h]
	componentKind := hostiface.Object
	if t != nil {
		componentKind = componentKindOf(t.spec.ComponentKind)
	}
	if componentKind.IsObject() {
		if index < 0 || int(index) >= len(od.Elements) {
			return hostiface.Constant{Kind: hostiface.Object, IsNull: true}, nil
		}
		id := od.Elements[index]
		if id == "" {
			return hostiface.Constant{Kind: hostiface.Object, IsNull: true}, nil
		}
		return hostiface.Constant{Kind: hostiface.Object, ObjectValue: fx.handleFor(id)}, nil
	}
	var raw uint64
	if index >= 0 && int(index) < len(od.RawElements) {
		raw = od.RawElements[index]
	}
	return hostiface.Constant{Kind: componentKind, Raw: raw}, nil
}

// --- hostiface.RootProvider ---

func (fx *Fixture) Roots() map[string]hostiface.Host {
	out := make(map[string]hostiface.Host, len(fx.doc.Roots))
	for label, id := range fx.doc.Roots {
		out[label] = fx.handleFor(id)
	}
	return out
}

// --- hostiface.InternedStringsTarget ---

func (fx *Fixture) HasInternedStringsField() bool {
	return fx.doc.InternedStringsSingleton != "" && fx.doc.InternedStringsArrayType != ""
}

func (fx *Fixture) Singleton() hostiface.Host {
	return fx.handleFor(fx.doc.InternedStringsSingleton)
}

func (fx *Fixture) StringArrayType() hostiface.Type {
	return fx.types[fx.doc.InternedStringsArrayType]
}

// PublishInternedStrings synthesizes an array object holding strs in
// order, reusing each string's existing handle where one was discovered
// during loading and minting a fresh synthetic string object otherwise.
func (fx *Fixture) PublishInternedStrings(strs []string) hostiface.Host {
	elements := make([]string, len(strs))
	for i, s := range strs {
		h, ok := fx.stringOf[s]
		if !ok {
			fx.nextSynthetic++
			id := fmt.Sprintf("$synthetic-string-%d", fx.nextSynthetic)
			h = fx.handleFor(id)
			fx.objByH[h] = &objectDoc{ID: id, Type: "java.lang.String", IdentityHash: int32(fx.nextSynthetic), IsString: true, StringValue: s, Interned: true, CachedHashNonZero: true}
			if t, ok := fx.types["java.lang.String"]; ok {
				fx.typeByH[h] = t
			}
			fx.stringOf[s] = h
		}
		elements[i] = h.id
	}
	fx.nextSynthetic++
	arrID := fmt.Sprintf("$synthetic-interned-array-%d", fx.nextSynthetic)
	arrHandle := fx.handleFor(arrID)
	arrDoc := &objectDoc{ID: arrID, Type: fx.doc.InternedStringsArrayType, IdentityHash: int32(fx.nextSynthetic), Length: int64(len(elements)), Elements: elements}
	fx.objByH[arrHandle] = arrDoc
	if t, ok := fx.types[fx.doc.InternedStringsArrayType]; ok {
		fx.typeByH[arrHandle] = t
	}
	return arrHandle
}
