// ABOUTME: End-to-end exercise of the full builder pipeline: admission,
// ABOUTME: interning finalization, section binding, and emission, wired
// ABOUTME: together the way a real caller would drive them.
package imageheap_test

import (
	"strings"
	"testing"

	"github.com/kuaiwei/imageheap"
	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostfixture"
	"github.com/kuaiwei/imageheap/hostiface"
	"github.com/kuaiwei/imageheap/layout"
	"github.com/kuaiwei/imageheap/options"
)

const endToEndDoc = `{
  "types": [
    {"name": "Root", "kind": "instance", "instantiated": true, "hub": "hub:Root", "instanceSize": 24,
     "fields": [
       {"name": "name", "kind": "object", "location": 8, "hasLocation": true, "accessed": true, "written": false, "final": true},
       {"name": "tag", "kind": "int", "location": 16, "hasLocation": true, "accessed": true, "written": false, "final": true}
     ]},
    {"name": "java.lang.String", "kind": "instance", "instantiated": true, "hub": "hub:String", "instanceSize": 8},
    {"name": "java.lang.String[]", "kind": "array", "instantiated": true, "hub": "hub:StrArr", "componentKind": "object"},
    {"name": "java.lang.Class", "kind": "instance", "instantiated": true, "hub": "hub:Class", "instanceSize": 8}
  ],
  "objects": [
    {"id": "root", "type": "Root", "identityHash": 1, "fields": {"name": "zeta"}, "raw": {"tag": 7}},
    {"id": "zeta", "type": "java.lang.String", "identityHash": 2, "isString": true, "stringValue": "zeta", "interned": true, "cachedHashNonZero": true},
    {"id": "hub:Root", "type": "java.lang.Class", "identityHash": 100},
    {"id": "hub:String", "type": "java.lang.Class", "identityHash": 101},
    {"id": "hub:StrArr", "type": "java.lang.Class", "identityHash": 102},
    {"id": "hub:Class", "type": "java.lang.Class", "identityHash": 103}
  ],
  "roots": {"staticFields": "root"},
  "internedStringsSingleton": "internTable",
  "internedStringsArrayType": "java.lang.String[]"
}`

type fakeBuf struct{ n int64 }

func (b *fakeBuf) PutByte(int64, uint8)                                         {}
func (b *fakeBuf) PutShort(int64, int16)                                        {}
func (b *fakeBuf) PutInt(int64, int32)                                          {}
func (b *fakeBuf) PutLong(int64, int64)                                         {}
func (b *fakeBuf) PutFloat(int64, float32)                                      {}
func (b *fakeBuf) PutDouble(int64, float64)                                     {}
func (b *fakeBuf) AddDirectRelocationWithoutAddend(int64, int, hostiface.Host)   {}
func (b *fakeBuf) AddDirectRelocationWithAddend(int64, int, int64, hostiface.Host) {}

func TestBuilderEndToEnd(t *testing.T) {
	fx, err := hostfixture.LoadReader(strings.NewReader(endToEndDoc))
	if err != nil {
		t.Fatal(err)
	}

	oracle := &layout.Oracle{RefWidth: 8, ObjectAlignment: 8}
	opts := options.Default()
	builder := imageheap.New(oracle, opts, imageheap.Collaborators{
		Universe: fx, Hash: fx, Word: fx, Strings: fx, Arrays: fx, Roots: fx, Interned: fx,
	}, nil)

	// ReserveNullOffset must precede any admission: it reserves the
	// partition's leading bytes, which Allocate can no longer displace
	// once an object already occupies offset zero.
	binder := builder.SectionBinder()
	binder.ReserveNullOffset(8)

	if err := builder.AddInitialObjects(); err != nil {
		t.Fatalf("AddInitialObjects: %v", err)
	}
	if err := builder.AddTrailingObjects(); err != nil {
		t.Fatalf("AddTrailingObjects: %v", err)
	}

	if d, ok := builder.ObjectInfo(fx.Handle("root")); !ok || d.Type.Name() != "Root" {
		t.Fatalf("ObjectInfo(root) = %+v, %v", d, ok)
	}

	binder.AlignRelocatablePartition(8)
	binder.SetReadOnlySection("readOnly", 0)
	binder.SetWritableSection("writable", 0)

	ro := &fakeBuf{n: binder.ReadOnlySectionSize()}
	wr := &fakeBuf{n: binder.WritableSectionSize()}
	if err := builder.WriteHeap(false, ro, wr); err != nil {
		t.Fatalf("WriteHeap: %v", err)
	}

	if builder.Heap.NumObjects() == 0 {
		t.Error("no objects admitted")
	}

	// zeta was interned and should appear in the sorted interned-strings
	// array published during AddTrailingObjects.
	var found bool
	builder.Heap.ForEachObject(func(d *heapmodel.Descriptor) {
		if d.Type != nil && d.Type.Name() == "java.lang.String[]" {
			found = true
		}
	})
	if !found {
		t.Error("no interned-strings array was admitted")
	}
}

func TestDryRunSkipsEmission(t *testing.T) {
	fx, err := hostfixture.LoadReader(strings.NewReader(endToEndDoc))
	if err != nil {
		t.Fatal(err)
	}

	oracle := &layout.Oracle{RefWidth: 8, ObjectAlignment: 8}
	builder := imageheap.New(oracle, nil, imageheap.Collaborators{
		Universe: fx, Hash: fx, Word: fx, Strings: fx, Arrays: fx, Roots: fx, Interned: fx,
	}, nil)

	if err := builder.DryRun(); err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if builder.Heap.NumObjects() == 0 {
		t.Error("DryRun admitted no objects")
	}
	if builder.Heap.NewObjectsGate.Phase() != heapmodel.After {
		t.Errorf("NewObjectsGate.Phase() = %v, want After", builder.Heap.NewObjectsGate.Phase())
	}
}

func TestRegisterAsImmutablePreventsWritablePartition(t *testing.T) {
	fx, err := hostfixture.LoadReader(strings.NewReader(`{
  "types": [
    {"name": "Box", "kind": "instance", "instantiated": true, "hub": "hub:Box", "instanceSize": 16,
     "fields": [{"name": "v", "kind": "int", "location": 8, "hasLocation": true, "accessed": true, "written": true, "final": false}]},
    {"name": "java.lang.Class", "kind": "instance", "instantiated": true, "hub": "hub:Class", "instanceSize": 8}
  ],
  "objects": [
    {"id": "box", "type": "Box", "identityHash": 1, "raw": {"v": 1}},
    {"id": "hub:Box", "type": "java.lang.Class", "identityHash": 100},
    {"id": "hub:Class", "type": "java.lang.Class", "identityHash": 101}
  ],
  "roots": {"staticFields": "box"}
}`))
	if err != nil {
		t.Fatal(err)
	}

	oracle := &layout.Oracle{RefWidth: 8, ObjectAlignment: 8}
	builder := imageheap.New(oracle, nil, imageheap.Collaborators{
		Universe: fx, Hash: fx, Word: fx, Strings: fx, Arrays: fx, Roots: nil, Interned: nil,
	}, nil)
	builder.Heap.NewObjectsGate.Allow()
	builder.Heap.InternedStringsGate.Allow()
	builder.RegisterAsImmutable(fx.Handle("box"))

	if err := builder.Traversal.AddObject(fx.Handle("box"), false, heapmodel.Reason{RootLabel: "staticFields"}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := builder.Traversal.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	d, ok := builder.ObjectInfo(fx.Handle("box"))
	if !ok {
		t.Fatal("box not admitted")
	}
	name, _ := d.Partition()
	if name != heapmodel.ReadOnlyPrimitive {
		t.Errorf("box partition = %v, want ReadOnlyPrimitive (written field suppressed by registered immutability)", name)
	}
}

