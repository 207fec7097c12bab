package hostfixture

import "github.com/kuaiwei/imageheap/hostiface"

func kindOf(s string) hostiface.Kind {
	switch s {
	case "array":
		return hostiface.KindArray
	case "primitive":
		return hostiface.KindPrimitive
	default:
		return hostiface.KindInstance
	}
}

func componentKindOf(s string) hostiface.ElementKind {
	switch s {
	case "object", "":
		return hostiface.Object
	case "boolean":
		return hostiface.Boolean
	case "byte":
		return hostiface.Byte
	case "char":
		return hostiface.Char
	case "short":
		return hostiface.Short
	case "int":
		return hostiface.Int
	case "long":
		return hostiface.Long
	case "float":
		return hostiface.Float
	case "double":
		return hostiface.Double
	case "word":
		return hostiface.Word
	default:
		return hostiface.Object
	}
}

// fixtureType adapts a typeDoc to hostiface.Type and hostiface.LayoutEncoding.
type fixtureType struct {
	fx     *Fixture
	spec   *typeDoc
	fields []hostiface.Field
	hybrid *hostiface.HybridLayout
}

func (t *fixtureType) Name() string { return t.spec.Name }
func (t *fixtureType) Kind() hostiface.Kind { return kindOf(t.spec.Kind) }
func (t *fixtureType) IsInstantiated() bool { return t.spec.Instantiated }
func (t *fixtureType) IsHybrid() bool       { return t.spec.Hybrid != nil }
func (t *fixtureType) HasMonitorField() bool { return t.spec.HasMonitorField }
func (t *fixtureType) Hub() hostiface.Host  { return t.fx.handleFor(t.spec.Hub) }
func (t *fixtureType) LayoutEncoding() hostiface.LayoutEncoding { return t }
func (t *fixtureType) InstanceSize() int64  { return t.spec.InstanceSize }
func (t *fixtureType) ComponentKind() hostiface.ElementKind {
	return componentKindOf(t.spec.ComponentKind)
}

func (t *fixtureType) HashCodeOffset() (int64, bool) {
	if t.spec.HashCodeOffset == nil {
		return 0, false
	}
	return *t.spec.HashCodeOffset, true
}

func (t *fixtureType) InstanceFields() []hostiface.Field {
	if t.fields != nil {
		return t.fields
	}
	t.fields = make([]hostiface.Field, len(t.spec.Fields))
	for i := range t.spec.Fields {
		t.fields[i] = &fixtureField{fx: t.fx, spec: &t.spec.Fields[i]}
	}
	return t.fields
}

func (t *fixtureType) HybridLayoutOf() (*hostiface.HybridLayout, bool) {
	if t.spec.Hybrid == nil {
		return nil, false
	}
	if t.hybrid != nil {
		return t.hybrid, true
	}
	hd := t.spec.Hybrid
	fields := t.InstanceFields()
	var arrayField, bitSetField hostiface.Field
	for _, f := range fields {
		ff := f.(*fixtureField)
		if ff.spec.Name == hd.ArrayField {
			arrayField = f
		}
		if hd.BitSetField != "" && ff.spec.Name == hd.BitSetField {
			bitSetField = f
		}
	}
	elemKind := componentKindOf(hd.ElementKind)
	stride := int64(elemKind.Size())
	if elemKind.IsObject() {
		stride = t.fx.refWidthHint()
	}
	baseOffset := hd.ArrayBaseOffset
	h := &hostiface.HybridLayout{
		ArrayField:        arrayField,
		BitSetField:       bitSetField,
		ElementKind:       elemKind,
		BitFieldOffset:    hd.BitFieldOffset,
		ArrayLengthOffset: hd.ArrayLengthOffset,
		ArrayElementOffset: func(index int64) int64 {
			return baseOffset + index*stride
		},
		TotalSize: func(length int64) int64 {
			return baseOffset + length*stride
		},
	}
	t.hybrid = h
	return h, true
}

// refWidthHint lets a fixture's hybrid layout size an inlined object tail
// without importing layout.Oracle; fixtures are always built against a
// reference width of 8 unless the document says otherwise via a
// "referenceWidth" type-less top-level field, which this teaching fixture
// does not model — any real build should thread the oracle in directly.
func (fx *Fixture) refWidthHint() int64 { return 8 }

// fixtureField adapts a fieldDoc to hostiface.Field.
type fixtureField struct {
	fx   *Fixture
	spec *fieldDoc
}

func (f *fixtureField) Name() string               { return f.spec.Name }
func (f *fixtureField) Kind() hostiface.ElementKind { return componentKindOf(f.spec.Kind) }
func (f *fixtureField) Location() int64             { return f.spec.Location }
func (f *fixtureField) HasLocation() bool           { return f.spec.HasLocation }
func (f *fixtureField) IsAccessed() bool            { return f.spec.Accessed }
func (f *fixtureField) IsWritten() bool             { return f.spec.Written }
func (f *fixtureField) IsFinal() bool               { return f.spec.Final }

func (f *fixtureField) ReadValue(receiver hostiface.Host) (hostiface.Constant, error) {
	h := asHandle(receiver)
	od, ok := f.fx.objByH[h]
	if !ok {
		return hostiface.Constant{}, nil
	}
	kind := f.Kind()
	if kind.IsObject() {
		id, ok := od.Fields[f.spec.Name]
		if !ok || id == "" {
			return hostiface.Constant{Kind: hostiface.Object, IsNull: true}, nil
		}
		return hostiface.Constant{Kind: hostiface.Object, ObjectValue: f.fx.handleFor(id)}, nil
	}
	raw := od.Raw[f.spec.Name]
	return hostiface.Constant{Kind: kind, Raw: raw}, nil
}
