package tstamp

import (
	"testing"
)

func TestRingFIFOOrder(t *testing.T) {
	r := newRing[int](8, rejectNewest)
	for i := 0; i < 7; i++ {
		_, _, ok := r.push(i)
		if !ok {
			t.Fatalf("push %d rejected", i)
		}
	}
	for i := 0; i < 7; i++ {
		v, ok := r.pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if v != i {
			t.Errorf("got %d, want %d", v, i)
		}
	}
	if _, ok := r.pop(); ok {
		t.Error("pop succeeded on empty ring")
	}
}

func TestRingFullReject(t *testing.T) {
	r := newRing[int](4, rejectNewest)
	for i := 0; i < 3; i++ {
		r.push(i)
	}
	if !r.full() {
		t.Fatal("ring with size-1 entries not reported full")
	}
	_, wasEvicted, ok := r.push(3)
	if ok || wasEvicted {
		t.Error("push into full rejecting ring accepted")
	}
	if r.count() != 3 {
		t.Errorf("got count %d, want 3", r.count())
	}
}

func TestRingFullEvictOldest(t *testing.T) {
	r := newRing[int](4, evictOldest)
	for i := 0; i < 3; i++ {
		r.push(i)
	}
	evicted, wasEvicted, ok := r.push(3)
	if !ok || !wasEvicted {
		t.Fatal("push into full evicting ring did not evict")
	}
	if evicted != 0 {
		t.Errorf("evicted %d, want 0", evicted)
	}
	if r.count() != 3 {
		t.Errorf("got count %d, want 3", r.count())
	}
	for i, want := range []int{1, 2, 3} {
		v, _ := r.pop()
		if v != want {
			t.Errorf("pop %d: got %d, want %d", i, v, want)
		}
	}
}

func TestRingPeek(t *testing.T) {
	r := newRing[int](4, rejectNewest)
	if _, ok := r.peek(); ok {
		t.Error("peek succeeded on empty ring")
	}
	r.push(42)
	v, ok := r.peek()
	if !ok || v != 42 {
		t.Errorf("got %d, %v, want 42, true", v, ok)
	}
	if r.count() != 1 {
		t.Error("peek consumed an entry")
	}
}

func TestRingReset(t *testing.T) {
	r := newRing[int](4, evictOldest)
	r.push(1)
	r.push(2)
	r.reset()
	if !r.empty() {
		t.Error("ring not empty after reset")
	}
	if r.wr != 0 || r.rd != 0 {
		t.Errorf("indices not zeroed: wr=%d rd=%d", r.wr, r.rd)
	}
}

func TestRingSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for size 1")
		}
	}()
	newRing[int](1, rejectNewest)
}
