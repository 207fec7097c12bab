// ABOUTME: Root facade wiring the heap model, discovery traversal, string
// ABOUTME: interning, and emission into a single build entry point.

// Package imageheap builds a byte-exact, relocatable, partitioned binary
// heap image from a closed graph of host objects discovered ahead of
// time. It is a single-threaded library: callers own the host analysis
// universe, metadata model, and output buffers; imageheap owns only the
// heap model and the order operations run in.
package imageheap

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kuaiwei/imageheap/discovery"
	"github.com/kuaiwei/imageheap/emit"
	"github.com/kuaiwei/imageheap/heapmodel"
	"github.com/kuaiwei/imageheap/hostiface"
	"github.com/kuaiwei/imageheap/intern"
	"github.com/kuaiwei/imageheap/layout"
	"github.com/kuaiwei/imageheap/options"
)

// Version is the semantic version of the imageheap module.
const Version = "0.1.0-dev"

// Collaborators bundles every external dependency the builder consumes:
// the analysis universe, host introspection hooks, the root provider, and
// the interned-strings target described in spec.md §6. The layout oracle
// is passed to New separately.
type Collaborators struct {
	Universe hostiface.Universe
	Hash     hostiface.IdentityHasher
	Word     hostiface.WordType
	Strings  hostiface.StringInspector
	Arrays   hostiface.ArrayAccessor
	Roots    hostiface.RootProvider
	Interned hostiface.InternedStringsTarget
}

// Builder owns one heap build from admission through emission.
type Builder struct {
	Heap      *heapmodel.Heap
	Oracle    *layout.Oracle
	Options   *options.Options
	Traversal *discovery.Traversal

	collaborators Collaborators
	log           *zap.SugaredLogger
}

// New constructs a Builder ready to run addInitialObjects. oracle must
// reflect the target platform's reference width and header layout; opts
// may be nil, in which case options.Default() is used.
func New(oracle *layout.Oracle, opts *options.Options, collaborators Collaborators, log *zap.SugaredLogger) *Builder {
	if opts == nil {
		opts = options.Default()
	}
	heap := heapmodel.NewHeap()
	b := &Builder{
		Heap:          heap,
		Oracle:        oracle,
		Options:       opts,
		collaborators: collaborators,
		log:           log,
	}
	b.Traversal = &discovery.Traversal{
		Heap:             heap,
		Oracle:           oracle,
		Universe:         collaborators.Universe,
		Hash:             collaborators.Hash,
		Word:             collaborators.Word,
		Strings:          collaborators.Strings,
		Arrays:           collaborators.Arrays,
		Compress:         opts.Heap.Compress.Encoding(),
		ForceAllWritable: opts.Heap.EffectiveWritable(),
		Log:              log,
	}
	return b
}

// AddInitialObjects opens the new-objects gate, seeds the worklist from
// every root the collaborators' RootProvider supplies, and drains it.
func (b *Builder) AddInitialObjects() error {
	b.Heap.NewObjectsGate.Allow()
	b.Heap.InternedStringsGate.Allow()

	if b.collaborators.Roots != nil {
		roots := b.collaborators.Roots.Roots()
		labels := make([]string, 0, len(roots))
		for label := range roots {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			if err := b.Traversal.AddObject(roots[label], false, heapmodel.Reason{RootLabel: label}); err != nil {
				return fmt.Errorf("imageheap: seeding root %q: %w", label, err)
			}
		}
	}
	if err := b.Traversal.Drain(); err != nil {
		return fmt.Errorf("imageheap: addInitialObjects: %w", err)
	}
	return nil
}

// AddTrailingObjects runs string-interning finalization (spec.md §4.5)
// and then closes the new-objects gate. Call after AddInitialObjects and
// after any caller-driven registerAsImmutable/addObject calls that must
// land before the interned-strings array is published.
func (b *Builder) AddTrailingObjects() error {
	if b.collaborators.Interned != nil {
		fz := &intern.Finalizer{Heap: b.Heap, Traversal: b.Traversal, Target: b.collaborators.Interned}
		if err := fz.Finalize(); err != nil {
			return fmt.Errorf("imageheap: addTrailingObjects: interning: %w", err)
		}
	}
	// Finalize is a no-op (and leaves the gate open) when the singleton's
	// interned-strings field isn't even accessed, so close it here too.
	if b.Heap.InternedStringsGate.Phase() == heapmodel.Allowed {
		b.Heap.InternedStringsGate.Disallow()
	}
	b.Heap.NewObjectsGate.Disallow()
	return nil
}

// RegisterAsImmutable records host as known-immutable without admitting
// it, per spec.md §6's exposed registerAsImmutable operation.
func (b *Builder) RegisterAsImmutable(host hostiface.Host) {
	b.Traversal.RegisterAsImmutable(host)
}

// ObjectInfo returns the descriptor admitted for host, if any — the
// exposed getObjectInfo diagnostic operation.
func (b *Builder) ObjectInfo(host hostiface.Host) (*heapmodel.Descriptor, bool) {
	return b.Heap.Descriptor(host)
}

// SectionBinder exposes the heap's section-binding operations (spec.md
// §4.8) for the caller to drive between AddTrailingObjects and WriteHeap.
func (b *Builder) SectionBinder() *emit.SectionBinder {
	return &emit.SectionBinder{Heap: b.Heap}
}

// WriteHeap serializes every admitted object into the given buffers,
// which must belong to partitions already bound to a section.
func (b *Builder) WriteHeap(debug bool, readOnly, writable hostiface.RelocatableBuffer) error {
	e := &emit.Emitter{
		Heap:           b.Heap,
		Oracle:         b.Oracle,
		Compress:       b.Options.Heap.Compress.Encoding(),
		Arrays:         b.collaborators.Arrays,
		ReadOnlyBuffer: readOnly,
		WritableBuffer: writable,
	}
	if err := e.WriteHeap(debug); err != nil {
		return fmt.Errorf("imageheap: writeHeap: %w", err)
	}
	return nil
}

// DryRun runs discovery and interning exactly as a real build would but
// never calls WriteHeap, letting callers validate a host graph fixture
// without producing output buffers.
func (b *Builder) DryRun() error {
	if err := b.AddInitialObjects(); err != nil {
		return err
	}
	return b.AddTrailingObjects()
}
