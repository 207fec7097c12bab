// ABOUTME: Tests for the phase gate's forward-only state transitions

package heapmodel

import "testing"

func TestGateLifecycle(t *testing.T) {
	g := NewGate("test")
	if g.Phase() != Before {
		t.Fatalf("new gate phase = %s, want %s", g.Phase(), Before)
	}
	if err := g.CheckAllowed(); err == nil {
		t.Error("expected error before Allow()")
	}

	g.Allow()
	if g.Phase() != Allowed {
		t.Fatalf("phase after Allow() = %s, want %s", g.Phase(), Allowed)
	}
	if err := g.CheckAllowed(); err != nil {
		t.Errorf("CheckAllowed() after Allow() = %v, want nil", err)
	}

	g.Disallow()
	if g.Phase() != After {
		t.Fatalf("phase after Disallow() = %s, want %s", g.Phase(), After)
	}
	if err := g.CheckAllowed(); err == nil {
		t.Error("expected error after Disallow()")
	}
}

func TestGateAllowTwicePanics(t *testing.T) {
	g := NewGate("test")
	g.Allow()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on double Allow()")
		}
	}()
	g.Allow()
}

func TestGateDisallowBeforeAllowPanics(t *testing.T) {
	g := NewGate("test")
	defer func() {
		if recover() == nil {
			t.Error("expected panic on Disallow() before Allow()")
		}
	}()
	g.Disallow()
}
