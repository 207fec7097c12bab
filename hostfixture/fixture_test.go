// ABOUTME: Exercises the fixture loader's identity semantics and each
// ABOUTME: hostiface collaborator interface it implements directly,
// ABOUTME: independent of discovery/emit behavior.
package hostfixture_test

import (
	"strings"
	"testing"

	"github.com/kuaiwei/imageheap/hostfixture"
	"github.com/kuaiwei/imageheap/hostiface"
)

const smallDoc = `{
  "types": [
    {"name": "A", "kind": "instance", "instantiated": true, "hub": "hub:A", "instanceSize": 16,
     "fields": [{"name": "b", "kind": "object", "location": 8, "hasLocation": true, "accessed": true, "written": false, "final": true}]},
    {"name": "java.lang.String", "kind": "instance", "instantiated": true, "hub": "hub:String", "instanceSize": 8},
    {"name": "java.lang.Class", "kind": "instance", "instantiated": true, "hub": "hub:Class", "instanceSize": 8}
  ],
  "objects": [
    {"id": "a", "type": "A", "identityHash": 1, "fields": {"b": "s"}},
    {"id": "s", "type": "java.lang.String", "identityHash": 2, "isString": true, "stringValue": "hello", "interned": true, "cachedHashNonZero": true},
    {"id": "hub:A", "type": "java.lang.Class", "identityHash": 100},
    {"id": "hub:String", "type": "java.lang.Class", "identityHash": 101},
    {"id": "hub:Class", "type": "java.lang.Class", "identityHash": 102}
  ],
  "roots": {"staticFields": "a"}
}`

func load(t *testing.T, doc string) *hostfixture.Fixture {
	t.Helper()
	fx, err := hostfixture.LoadReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	return fx
}

func TestHandleIdentityIsStable(t *testing.T) {
	fx := load(t, smallDoc)
	h1 := fx.Handle("a")
	h2 := fx.Handle("a")
	if h1 != h2 {
		t.Error("Handle(\"a\") returned two distinct identities for the same id")
	}
	if fx.Handle("a") == fx.Handle("s") {
		t.Error("distinct ids produced the same handle")
	}
}

func TestLookupTypeAndFields(t *testing.T) {
	fx := load(t, smallDoc)
	typ, ok := fx.LookupType(fx.Handle("a"))
	if !ok {
		t.Fatal("LookupType(a) not found")
	}
	if typ.Name() != "A" {
		t.Errorf("Name() = %q, want A", typ.Name())
	}
	fields := typ.InstanceFields()
	if len(fields) != 1 || fields[0].Name() != "b" {
		t.Fatalf("InstanceFields() = %+v, want one field named b", fields)
	}
	v, err := fields[0].ReadValue(fx.Handle("a"))
	if err != nil {
		t.Fatal(err)
	}
	if v.IsNull || v.ObjectValue != fx.Handle("s") {
		t.Errorf("ReadValue(b) = %+v, want object s", v)
	}
}

func TestIdentityHashAndHub(t *testing.T) {
	fx := load(t, smallDoc)
	if got := fx.IdentityHashOf(fx.Handle("a")); got != 1 {
		t.Errorf("IdentityHashOf(a) = %d, want 1", got)
	}
	typ, _ := fx.LookupType(fx.Handle("a"))
	if !fx.IsHub(typ.Hub()) {
		t.Error("IsHub(hub:A) = false, want true")
	}
	if fx.IsHub(fx.Handle("a")) {
		t.Error("IsHub(a) = true, want false")
	}
}

func TestStringInspection(t *testing.T) {
	fx := load(t, smallDoc)
	s := fx.Handle("s")
	if !fx.IsString(s) {
		t.Error("IsString(s) = false")
	}
	if fx.HasNonZeroCachedHash(s) {
		t.Error("HasNonZeroCachedHash(s) = true before EnsureHashCached was called")
	}
	fx.EnsureHashCached(s)
	if !fx.HasNonZeroCachedHash(s) {
		t.Error("HasNonZeroCachedHash(s) = false after EnsureHashCached")
	}
	if !fx.IsInterned(s) {
		t.Error("IsInterned(s) = false")
	}
	if fx.StringValue(s) != "hello" {
		t.Errorf("StringValue(s) = %q, want hello", fx.StringValue(s))
	}
}

func TestRoots(t *testing.T) {
	fx := load(t, smallDoc)
	roots := fx.Roots()
	if roots["staticFields"] != fx.Handle("a") {
		t.Errorf("Roots()[staticFields] = %v, want handle for a", roots["staticFields"])
	}
}

const arrayDoc = `{
  "types": [
    {"name": "Object[]", "kind": "array", "instantiated": true, "hub": "hub:arr", "componentKind": "object"},
    {"name": "java.lang.Class", "kind": "instance", "instantiated": true, "hub": "hub:Class", "instanceSize": 8}
  ],
  "objects": [
    {"id": "arr", "type": "Object[]", "identityHash": 5, "length": 2, "elements": ["x", ""]},
    {"id": "x", "type": "Object[]", "identityHash": 6, "length": 0},
    {"id": "hub:arr", "type": "java.lang.Class", "identityHash": 100},
    {"id": "hub:Class", "type": "java.lang.Class", "identityHash": 101}
  ],
  "roots": {"staticFields": "arr"}
}`

func TestElementAccessNullAndObject(t *testing.T) {
	fx := load(t, arrayDoc)
	arr := fx.Handle("arr")
	if got := fx.Length(arr); got != 2 {
		t.Fatalf("Length(arr) = %d, want 2", got)
	}
	c0, err := fx.Element(arr, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c0.IsNull || c0.ObjectValue != fx.Handle("x") {
		t.Errorf("Element(arr, 0) = %+v, want object x", c0)
	}
	c1, err := fx.Element(arr, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !c1.IsNull {
		t.Errorf("Element(arr, 1) = %+v, want null", c1)
	}
}

func TestPublishInternedStringsReusesExistingHandle(t *testing.T) {
	fx := load(t, smallDoc)
	fx.LookupType(fx.Handle("hub:String")) // no-op touch to keep handle alive
	arrHost := fx.PublishInternedStrings([]string{"hello", "world"})
	if fx.Length(arrHost) != 2 {
		t.Fatalf("Length(published array) = %d, want 2", fx.Length(arrHost))
	}
	c0, err := fx.Element(arrHost, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c0.ObjectValue != fx.Handle("s") {
		t.Error("PublishInternedStrings minted a new handle for an already-known string \"hello\"")
	}
	c1, err := fx.Element(arrHost, 1)
	if err != nil {
		t.Fatal(err)
	}
	if c1.IsNull || c1.ObjectValue == nil {
		t.Error("PublishInternedStrings did not synthesize a handle for an unknown string \"world\"")
	}
	if !fx.IsString(c1.ObjectValue) || fx.StringValue(c1.ObjectValue) != "world" {
		t.Errorf("synthesized string handle does not behave as a string: %+v", c1)
	}
}

func TestAsHandlePanicsOnForeignHostType(t *testing.T) {
	fx := load(t, smallDoc)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic when passing a non-fixture Host value")
		}
	}()
	var foreign hostiface.Host = "not-a-fixture-handle"
	fx.IdentityHashOf(foreign)
}
