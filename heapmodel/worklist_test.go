// ABOUTME: Tests for the worklist's FIFO ordering and drain behavior

package heapmodel

import "testing"

func TestWorklistFIFOOrder(t *testing.T) {
	var w Worklist[int]
	if !w.Empty() {
		t.Fatal("new worklist should be empty")
	}
	w.Push(1)
	w.Push(2)
	w.Push(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := w.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if !w.Empty() {
		t.Error("worklist should be empty after draining")
	}
	if _, ok := w.Pop(); ok {
		t.Error("Pop() on empty worklist should report ok=false")
	}
}

func TestWorklistInterleavedPushPop(t *testing.T) {
	var w Worklist[string]
	w.Push("a")
	v, _ := w.Pop()
	if v != "a" {
		t.Fatalf("got %q, want %q", v, "a")
	}
	w.Push("b")
	w.Push("c")
	var drained []string
	for !w.Empty() {
		v, _ := w.Pop()
		drained = append(drained, v)
	}
	if len(drained) != 2 || drained[0] != "b" || drained[1] != "c" {
		t.Errorf("drained = %v, want [b c]", drained)
	}
}
