// ABOUTME: Error taxonomy for the discovery traversal: analysis gaps and
// ABOUTME: post-analysis drift are user-visible; invariant violations abort.
package discovery

import "fmt"

// AnalysisGapError signals that a host object's type was never seen as
// instantiated during analysis, or a hub lacks class-init info — the
// central safety net catching host-side caches mutated during the build.
type AnalysisGapError struct {
	Message string
	Chain   string
}

func (e *AnalysisGapError) Error() string {
	return fmt.Sprintf("%s\n%s", e.Message, e.Chain)
}

// DriftError signals an emission-time reference to an object that was
// never admitted — the source object mutated after analysis ran.
type DriftError struct {
	Message string
	Chain   string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s\n%s", e.Message, e.Chain)
}

// InvariantError signals a programmer error found during admission: a
// relocatable object that isn't immutable, a word-typed value or bare class
// handle, a zero identity hash, a relocation target with unknown
// compilation status. Out-of-phase admission is reported by the gate's own
// error instead, and duplicate partition assignment panics in heapmodel.
// There is no local recovery; the build aborts.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "imageheap: invariant violation: " + e.Message }
