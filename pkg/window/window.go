// Package window tracks the minimum value of a sliding window over a stream of
// samples, in amortized constant time per sample.
package window

import "math"

// MinTracker reports the smallest window minimum seen so far, over every run of
// Cap consecutive samples pushed since it was created or last reset.
//
// Samples are kept in a circular buffer indexed by position modulo Cap, and a
// monotonic deque of positions whose samples strictly increase from front to
// back. The front of the deque is always the minimum of the current window.
// Both grow as samples arrive, so a large Cap costs nothing until it's used.
//
// A MinTracker is not safe for concurrent use.
type MinTracker struct {
	cap uint64

	// samples[p%cap] holds the sample pushed at position p.
	samples []uint64

	// positions; the live part is deque[head:].
	deque []uint64
	head  int

	// number of samples pushed since the last reset.
	pos uint64

	min  uint64
	full bool
}

// NewMinTracker returns a tracker with a window of size samples. If size is zero,
// the tracker ignores every sample and never has a result.
func NewMinTracker(size uint64) *MinTracker {
	return &MinTracker{
		cap: size,
		min: math.MaxUint64,
	}
}

// Cap returns the window size.
func (t *MinTracker) Cap() uint64 {
	return t.cap
}

// Push adds a sample at the next position.
func (t *MinTracker) Push(v uint64) {
	if t.cap == 0 {
		return
	}

	// drop positions which have fallen out of the window ending at pos.
	if t.pos >= t.cap {
		for t.size() > 0 && t.front() <= t.pos-t.cap {
			t.popFront()
		}
	}

	// drop positions whose samples can never be the minimum again, because
	// this one is no larger and will stay in the window for longer.
	for t.size() > 0 && t.samples[t.back()%t.cap] >= v {
		t.popBack()
	}

	// positions are sequential, so the slot is either in the buffer already or
	// the next one to append.
	if i := t.pos % t.cap; i < uint64(len(t.samples)) {
		t.samples[i] = v
	} else {
		t.samples = append(t.samples, v)
	}
	t.pushBack(t.pos)
	t.pos++

	if t.pos >= t.cap {
		t.full = true
		if m := t.samples[t.front()%t.cap]; m < t.min {
			t.min = m
		}
	}
}

// Reset forgets every sample and the running minimum, as if the tracker was
// newly created. The buffers are retained.
func (t *MinTracker) Reset() {
	t.deque = t.deque[:0]
	t.head = 0
	t.pos = 0
	t.min = math.MaxUint64
	t.full = false
}

// Result returns the smallest window minimum, or false if no window has been
// filled since the last reset.
func (t *MinTracker) Result() (uint64, bool) {
	if !t.full {
		return 0, false
	}
	return t.min, true
}

func (t *MinTracker) size() int {
	return len(t.deque) - t.head
}

func (t *MinTracker) front() uint64 {
	return t.deque[t.head]
}

func (t *MinTracker) back() uint64 {
	return t.deque[len(t.deque)-1]
}

func (t *MinTracker) popFront() {
	t.head++
	if t.head == len(t.deque) {
		t.deque = t.deque[:0]
		t.head = 0
	}
}

func (t *MinTracker) popBack() {
	t.deque = t.deque[:len(t.deque)-1]
	if t.head == len(t.deque) {
		t.deque = t.deque[:0]
		t.head = 0
	}
}

// pushBack appends p, first sliding the live part down once at least half the
// slice is dead, which keeps the slice within twice the live size.
func (t *MinTracker) pushBack(p uint64) {
	if t.head > 0 && t.head >= len(t.deque)/2 {
		n := copy(t.deque, t.deque[t.head:])
		t.deque = t.deque[:n]
		t.head = 0
	}
	t.deque = append(t.deque, p)
}
