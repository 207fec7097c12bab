// ABOUTME: Post-emission diagnostics: a type-grouped size histogram and a
// ABOUTME: partition-size report, logged as a table and optionally
// ABOUTME: snapshotted as canonical CBOR for golden-file comparisons.
package histogram

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/kuaiwei/imageheap/heapmodel"
)

// TypeEntry is one row of the heap histogram: a type's aggregate
// footprint across all admitted instances, regardless of partition.
type TypeEntry struct {
	TypeName string `cbor:"type"`
	Count    int64  `cbor:"count"`
	Bytes    int64  `cbor:"bytes"`
}

// PartitionEntry is one row of the partition-size report.
type PartitionEntry struct {
	Name          string `cbor:"name"`
	Size          int64  `cbor:"size"`
	PrePad        int64  `cbor:"prePad"`
	PostPad       int64  `cbor:"postPad"`
	Count         int    `cbor:"count"`
	SectionName   string `cbor:"sectionName,omitempty"`
	SectionOffset int64  `cbor:"sectionOffset,omitempty"`
}

// BuildTypeHistogram groups every admitted descriptor by its type name,
// summing count and size, and returns the rows sorted by retained bytes
// descending (ties broken by type name for determinism).
func BuildTypeHistogram(h *heapmodel.Heap) []TypeEntry {
	byType := make(map[string]*TypeEntry)
	var order []string
	h.ForEachObject(func(d *heapmodel.Descriptor) {
		name := "<unknown>"
		if d.Type != nil {
			name = d.Type.Name()
		}
		e, ok := byType[name]
		if !ok {
			e = &TypeEntry{TypeName: name}
			byType[name] = e
			order = append(order, name)
		}
		e.Count++
		e.Bytes += d.Size
	})
	out := make([]TypeEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *byType[name])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].TypeName < out[j].TypeName
	})
	return out
}

// BuildPartitionReport returns one entry per partition, in fixed
// declaration order.
func BuildPartitionReport(h *heapmodel.Heap) []PartitionEntry {
	entries := make([]PartitionEntry, 0, 5)
	for _, p := range h.AllPartitions() {
		e := PartitionEntry{
			Name:    p.Name.String(),
			Size:    p.Size(),
			PrePad:  p.PrePad(),
			PostPad: p.PostPad(),
			Count:   p.Count(),
		}
		if name, offset, ok := p.Section(); ok {
			e.SectionName = name
			e.SectionOffset = offset
		}
		entries = append(entries, e)
	}
	return entries
}

// LogTypeHistogram writes the type histogram as a human-readable table
// through log, one line per type.
func LogTypeHistogram(log *zap.SugaredLogger, rows []TypeEntry) {
	if log == nil {
		return
	}
	log.Info("heap histogram:")
	for _, r := range rows {
		log.Infof("  %-60s count=%-8d bytes=%d", r.TypeName, r.Count, r.Bytes)
	}
}

// LogPartitionReport writes the partition report as a human-readable
// table through log.
func LogPartitionReport(log *zap.SugaredLogger, rows []PartitionEntry) {
	if log == nil {
		return
	}
	log.Info("image heap partition sizes:")
	for _, r := range rows {
		log.Infof("  %-20s size=%-10d prePad=%-6d postPad=%-6d count=%-8d section=%s+%d",
			r.Name, r.Size, r.PrePad, r.PostPad, r.Count, r.SectionName, r.SectionOffset)
	}
}

// EncodeSnapshot serializes rows as canonical CBOR, suitable for
// byte-stable golden-file comparisons across builds.
func EncodeSnapshot(rows any) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("histogram: building canonical encoder: %w", err)
	}
	return mode.Marshal(rows)
}
