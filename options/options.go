// ABOUTME: Loads the global build options the core observes from a TOML
// ABOUTME: document, the way maggie.toml configures a Maggie build.
package options

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/kuaiwei/imageheap/layout"
)

// Options are the global build-wide switches the heap builder observes.
// They come from outside the build driver proper (spec.md §6) but are
// loaded here, in the teacher's manifest-loading style, so the CLI and
// tests share one config shape.
type Options struct {
	Heap HeapOptions `toml:"heap"`
}

// HeapOptions configures the image heap builder itself.
type HeapOptions struct {
	SpawnIsolates                bool `toml:"spawn-isolates"`
	UseOnlyWritableBootImageHeap bool `toml:"use-only-writable-boot-image-heap"`
	PrintHeapHistogram           bool `toml:"print-heap-histogram"`
	PrintImageHeapPartitionSizes bool `toml:"print-image-heap-partition-sizes"`

	Compress CompressOptions `toml:"compress"`
}

// CompressOptions mirrors layout.CompressEncoding in TOML-friendly form.
type CompressOptions struct {
	Enabled bool  `toml:"enabled"`
	Shift   uint8 `toml:"shift"`
}

// Encoding converts the loaded options into a layout.CompressEncoding.
func (c CompressOptions) Encoding() layout.CompressEncoding {
	return layout.CompressEncoding{Shift: c.Shift, HasBase: c.Enabled}
}

// Default returns the conservative default: no isolates, no forced
// writability, no compression, and both diagnostic reports off.
func Default() *Options {
	return &Options{
		Heap: HeapOptions{
			Compress: CompressOptions{Enabled: false, Shift: 0},
		},
	}
}

// Load reads and parses a TOML options file, following the
// load-then-default shape of a manifest loader: missing fields keep the
// zero-value defaults rather than erroring.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("options: cannot read %s: %w", path, err)
	}

	opts := Default()
	if err := toml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("options: parse error in %s: %w", path, err)
	}
	return opts, nil
}

// EffectiveWritable reports whether the UseOnlyWritableBootImageHeap
// override applies: forcing all objects writable is only honored when
// compression is disabled (spec.md §4.4's partition-selection override).
func (o HeapOptions) EffectiveWritable() bool {
	return o.UseOnlyWritableBootImageHeap && !o.Compress.Enabled
}
