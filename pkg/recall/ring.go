package recall

import (
	"errors"
	"fmt"
)

// Size is the number of recall slots.
const Size = 10

// ErrInvalidSlot is returned for slot indices outside [0, Size).
var ErrInvalidSlot = errors.New("invalid recall slot")

// Ring is a circular, duplicate-suppressing history of pitches.
// Unwritten slots hold pitch 0.
type Ring struct {
	slots  [Size]int
	cursor int
}

// Record stores pitch in the next slot unless some slot already holds it.
// It reports whether the pitch was written.
func (r *Ring) Record(pitch int) bool {
	for _, p := range r.slots {
		if p == pitch {
			return false
		}
	}
	r.slots[r.cursor] = pitch
	r.cursor = (r.cursor + 1) % Size
	return true
}

// At returns the pitch stored at slot.
func (r *Ring) At(slot int) (int, error) {
	if slot < 0 || slot >= Size {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return r.slots[slot], nil
}

// Slots returns a copy of every slot.
func (r *Ring) Slots() [Size]int { return r.slots }

// Cursor returns the slot the next distinct pitch will be written to.
func (r *Ring) Cursor() int { return r.cursor }
