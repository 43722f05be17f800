package tstamp

type overflowPolicy int

const (
	rejectNewest overflowPolicy = iota
	evictOldest
)

// ring is a bounded FIFO addressed by modulo-incrementing read and write
// indices. Equal indices mean empty, so at most size-1 entries are live at
// any time; a push that would make the indices collide triggers the overflow
// policy instead of producing a false-empty ring.
type ring[T any] struct {
	entries []T
	wr, rd  int
	policy  overflowPolicy
}

func newRing[T any](size int, policy overflowPolicy) ring[T] {
	if size < 2 {
		panic("invalid argument: ring size must be at least 2")
	}
	return ring[T]{entries: make([]T, size), policy: policy}
}

func (r *ring[T]) empty() bool {
	return r.wr == r.rd
}

func (r *ring[T]) full() bool {
	return (r.wr+1)%len(r.entries) == r.rd
}

func (r *ring[T]) count() int {
	return (r.wr - r.rd + len(r.entries)) % len(r.entries)
}

// push appends v. On overflow the oldest unread entry is evicted and
// returned if the policy allows it; otherwise v is rejected.
func (r *ring[T]) push(v T) (evicted T, wasEvicted, ok bool) {
	var zero T
	wr := (r.wr + 1) % len(r.entries)
	if wr == r.rd {
		if r.policy == rejectNewest {
			return zero, false, false
		}
		r.rd = (r.rd + 1) % len(r.entries)
		evicted = r.entries[r.rd]
		r.entries[r.rd] = zero
		wasEvicted = true
	}
	r.entries[wr] = v
	r.wr = wr
	return evicted, wasEvicted, true
}

// peek returns the oldest unread entry without consuming it.
func (r *ring[T]) peek() (T, bool) {
	var zero T
	if r.wr == r.rd {
		return zero, false
	}
	return r.entries[(r.rd+1)%len(r.entries)], true
}

// pop consumes and returns the oldest unread entry.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	if r.wr == r.rd {
		return zero, false
	}
	r.rd = (r.rd + 1) % len(r.entries)
	v := r.entries[r.rd]
	r.entries[r.rd] = zero
	return v, true
}

func (r *ring[T]) reset() {
	clear(r.entries)
	r.wr, r.rd = 0, 0
}
