package latch

import (
	"errors"
	"fmt"
)

// Capacity is the number of pitches the latch can hold.
const Capacity = 10

// ErrLatchFull is returned when a pitch is captured while the queue is full.
var ErrLatchFull = errors.New("latch queue full")

// Latch captures the next triggered pitch instead of playing it, and
// hands captured pitches back in arrival order.
type Latch struct {
	armed bool
	queue [Capacity]int
	head  int
	n     int
}

// Arm makes the next Intercept capture its pitch.
func (l *Latch) Arm() { l.armed = true }

// Armed reports whether the next trigger will be captured.
func (l *Latch) Armed() bool { return l.armed }

// Len returns the number of captured pitches waiting to be played.
func (l *Latch) Len() int { return l.n }

// Intercept captures pitch if the latch is armed and disarms it. A true
// result means the caller must not start a voice for pitch.
func (l *Latch) Intercept(pitch int) (bool, error) {
	if !l.armed {
		return false, nil
	}
	l.armed = false
	if l.n == Capacity {
		return true, fmt.Errorf("%w: dropped pitch %d", ErrLatchFull, pitch)
	}
	l.queue[(l.head+l.n)%Capacity] = pitch
	l.n++
	return true, nil
}

// Peek returns the oldest captured pitch without removing it.
func (l *Latch) Peek() (int, bool) {
	if l.n == 0 {
		return 0, false
	}
	return l.queue[l.head], true
}

// DrainOne pops the oldest captured pitch.
func (l *Latch) DrainOne() (int, bool) {
	if l.n == 0 {
		return 0, false
	}
	pitch := l.queue[l.head]
	l.head = (l.head + 1) % Capacity
	l.n--
	return pitch, true
}

// Pending returns the captured pitches, oldest first.
func (l *Latch) Pending() []int {
	out := make([]int, l.n)
	for i := range out {
		out[i] = l.queue[(l.head+i)%Capacity]
	}
	return out
}

// Reset disarms the latch and forgets captured pitches.
func (l *Latch) Reset() {
	*l = Latch{}
}
