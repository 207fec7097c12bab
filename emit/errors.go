// ABOUTME: Emission-time error taxonomy, mirroring discovery's: drift is
// ABOUTME: user-visible, invariant violations are programmer errors.
package emit

import "fmt"

// DriftError signals an emission-time reference to an object that was
// never admitted — the source object mutated after analysis ran.
type DriftError struct {
	Message string
}

func (e *DriftError) Error() string { return e.Message }

// InvariantError signals a programmer error: unaligned reference writes,
// a descriptor with no partition assignment, an unsupported write width.
// There is no local recovery.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return fmt.Sprintf("imageheap: invariant violation: %s", e.Message) }
