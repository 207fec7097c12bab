// ABOUTME: JSON wire format for a stand-in host graph: types, objects,
// ABOUTME: roots. Mirrors the shape of a real analysis universe closely
// ABOUTME: enough to exercise the admission algorithm without one.
package hostfixture

// document is the top-level JSON shape a fixture file decodes into.
type document struct {
	Types                    []typeDoc         `json:"types"`
	Objects                  []objectDoc       `json:"objects"`
	Roots                    map[string]string `json:"roots"`
	InternedStringsSingleton string            `json:"internedStringsSingleton,omitempty"`
	InternedStringsArrayType string            `json:"internedStringsArrayType,omitempty"`
}

type fieldDoc struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Location    int64  `json:"location"`
	HasLocation bool   `json:"hasLocation"`
	Accessed    bool   `json:"accessed"`
	Written     bool   `json:"written"`
	Final       bool   `json:"final"`
}

type hybridDoc struct {
	ArrayField        string `json:"arrayField"`
	BitSetField       string `json:"bitSetField,omitempty"`
	ElementKind       string `json:"elementKind"`
	BitFieldOffset    int64  `json:"bitFieldOffset"`
	ArrayLengthOffset int64  `json:"arrayLengthOffset"`
	ArrayBaseOffset   int64  `json:"arrayBaseOffset"`
	ElementStride     int64  `json:"elementStride"`
}

type typeDoc struct {
	Name            string     `json:"name"`
	Kind            string     `json:"kind"`
	Instantiated    bool       `json:"instantiated"`
	HasMonitorField bool       `json:"hasMonitorField"`
	InstanceSize    int64      `json:"instanceSize"`
	Hub             string     `json:"hub"`
	HashCodeOffset  *int64     `json:"hashCodeOffset,omitempty"`
	ComponentKind   string     `json:"componentKind,omitempty"`
	Fields          []fieldDoc `json:"fields,omitempty"`
	Hybrid          *hybridDoc `json:"hybrid,omitempty"`
}

type objectDoc struct {
	ID                 string            `json:"id"`
	Type               string            `json:"type"`
	IdentityHash       int32             `json:"identityHash"`
	Fields             map[string]string `json:"fields,omitempty"`
	Raw                map[string]uint64 `json:"raw,omitempty"`
	Length             int64             `json:"length,omitempty"`
	Elements           []string          `json:"elements,omitempty"`
	RawElements        []uint64          `json:"rawElements,omitempty"`
	IsString           bool              `json:"isString,omitempty"`
	StringValue        string            `json:"stringValue,omitempty"`
	CachedHashNonZero  bool              `json:"cachedHashNonZero,omitempty"`
	Interned           bool              `json:"interned,omitempty"`
	IsWordValue        bool              `json:"isWordValue,omitempty"`
	IsClassHandle      bool              `json:"isClassHandle,omitempty"`
	IsHub              bool              `json:"isHub,omitempty"`
	ClassInitPopulated bool              `json:"classInitPopulated,omitempty"`
}
