// ABOUTME: Walks a descriptor's reverse-reachability chain back to its root
// ABOUTME: label for error messages. Never used on a traversal hot path.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/kuaiwei/imageheap/heapmodel"
)

// Step is one hop in a reachability chain, ordered from the object in
// question back towards its root.
type Step struct {
	TypeName string
	Detail   string // how this step reached the previous one, e.g. a field name; empty for the first step
}

// Chain walks d's Reason back-edges to the root label that ultimately
// pulled it into the image, returning the sequence of steps from d itself
// to the root.
func Chain(d *heapmodel.Descriptor) []Step {
	var steps []Step
	cur := d
	detail := ""
	for {
		typeName := "<unknown>"
		if cur.Type != nil {
			typeName = cur.Type.Name()
		}
		steps = append(steps, Step{TypeName: typeName, Detail: detail})
		if cur.Reason.IsRoot() {
			break
		}
		detail = cur.Reason.Detail
		cur = cur.Reason.Parent
	}
	return steps
}

// RootLabel returns the string label at the end of d's reachability chain.
func RootLabel(d *heapmodel.Descriptor) string {
	cur := d
	for !cur.Reason.IsRoot() {
		cur = cur.Reason.Parent
	}
	return cur.Reason.RootLabel
}

// Format renders a chain as a multi-line, indented string suitable for
// inclusion in a user-visible error message: the object in question
// first, then each hop that led to it, ending at the root label.
func Format(d *heapmodel.Descriptor) string {
	steps := Chain(d)
	var b strings.Builder
	for i, s := range steps {
		indent := strings.Repeat("  ", i)
		if i == 0 {
			fmt.Fprintf(&b, "%s%s\n", indent, s.TypeName)
			continue
		}
		if s.Detail != "" {
			fmt.Fprintf(&b, "%sreachable via %s from %s\n", indent, s.Detail, s.TypeName)
		} else {
			fmt.Fprintf(&b, "%sreachable from %s\n", indent, s.TypeName)
		}
	}
	fmt.Fprintf(&b, "%sroot: %s\n", strings.Repeat("  ", len(steps)), RootLabel(d))
	return b.String()
}

// FormatReason renders a reachability chain for an object that failed
// admission before a descriptor could be built for it: headTypeName names
// the object itself, and reason is the edge it was being enqueued through.
// Its parent (if any) is already admitted, so the rest of the chain walks
// the parent's own Reason the same way Format does.
func FormatReason(headTypeName string, reason heapmodel.Reason) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headTypeName)

	depth := 1
	detail := reason.Detail
	cur := reason
	for {
		if cur.IsRoot() {
			fmt.Fprintf(&b, "%sroot: %s\n", strings.Repeat("  ", depth), cur.RootLabel)
			return b.String()
		}
		parentType := "<unknown>"
		if cur.Parent.Type != nil {
			parentType = cur.Parent.Type.Name()
		}
		if detail != "" {
			fmt.Fprintf(&b, "%sreachable via %s from %s\n", strings.Repeat("  ", depth), detail, parentType)
		} else {
			fmt.Fprintf(&b, "%sreachable from %s\n", strings.Repeat("  ", depth), parentType)
		}
		detail = cur.Parent.Reason.Detail
		cur = cur.Parent.Reason
		depth++
	}
}
