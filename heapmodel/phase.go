// ABOUTME: Tri-state lifecycle gate controlling when new objects or new
// ABOUTME: interned strings may be admitted. Forward-only transitions.
package heapmodel

import "fmt"

// Phase is one state in a gate's Before → Allowed → After lifecycle.
type Phase int

const (
	Before Phase = iota
	Allowed
	After
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case Allowed:
		return "allowed"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// Gate is a forward-only tri-state lifecycle: Before → Allowed → After.
// Any out-of-order transition is a programmer error and panics. An
// admission attempted outside Allowed is reported as an error by
// CheckAllowed, which admission entry points call.
type Gate struct {
	name  string
	phase Phase
}

// NewGate creates a gate in the Before state.
func NewGate(name string) *Gate {
	return &Gate{name: name, phase: Before}
}

// Phase returns the gate's current state.
func (g *Gate) Phase() Phase { return g.phase }

// Allow transitions Before → Allowed. Panics if not currently Before.
func (g *Gate) Allow() {
	if g.phase != Before {
		panic(fmt.Sprintf("heapmodel: gate %q: Allow() called from phase %s, want %s", g.name, g.phase, Before))
	}
	g.phase = Allowed
}

// Disallow transitions Allowed → After. Panics if not currently Allowed.
func (g *Gate) Disallow() {
	if g.phase != Allowed {
		panic(fmt.Sprintf("heapmodel: gate %q: Disallow() called from phase %s, want %s", g.name, g.phase, Allowed))
	}
	g.phase = After
}

// CheckAllowed returns an error (rather than panicking) if the gate is not
// currently Allowed. Discovery-traversal entry points use this so an
// out-of-phase admission attempt surfaces as a normal error rather than a
// panic, while Allow/Disallow misuse (a build-driver bug, not a host-data
// bug) stays a panic.
func (g *Gate) CheckAllowed() error {
	if g.phase != Allowed {
		return fmt.Errorf("heapmodel: gate %q is not open for admission (phase %s)", g.name, g.phase)
	}
	return nil
}
