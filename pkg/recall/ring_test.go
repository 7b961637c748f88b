package recall

import (
	"errors"
	"testing"
)

func TestRecordSuppressesDuplicates(t *testing.T) {
	var r Ring
	for i := 0; i < 20; i++ {
		r.Record(5)
	}

	occupied := 0
	for _, p := range r.Slots() {
		if p == 5 {
			occupied++
		}
	}
	if occupied != 1 {
		t.Errorf("pitch 5 occupies %d slots, expected 1", occupied)
	}
	if r.Cursor() != 1 {
		t.Errorf("cursor = %d, expected 1", r.Cursor())
	}
}

func TestRecordOrder(t *testing.T) {
	var r Ring
	for _, p := range []int{3, 7, 3, 9} {
		r.Record(p)
	}

	expected := [Size]int{3, 7, 9}
	if r.Slots() != expected {
		t.Errorf("slots = %v, expected %v", r.Slots(), expected)
	}
	if r.Cursor() != 3 {
		t.Errorf("cursor = %d, expected 3", r.Cursor())
	}
}

func TestRecordWraps(t *testing.T) {
	var r Ring
	for p := 1; p <= Size+2; p++ {
		r.Record(p)
	}

	expected := [Size]int{11, 12, 3, 4, 5, 6, 7, 8, 9, 10}
	if r.Slots() != expected {
		t.Errorf("slots = %v, expected %v", r.Slots(), expected)
	}
	if r.Cursor() != 2 {
		t.Errorf("cursor = %d, expected 2", r.Cursor())
	}
}

func TestZeroPitchCountsAsPresent(t *testing.T) {
	var r Ring
	if r.Record(0) {
		t.Error("an empty ring already holds the reference pitch; Record(0) should be a no-op")
	}
}

func TestAt(t *testing.T) {
	var r Ring
	r.Record(4)

	tests := map[string]struct {
		slot     int
		expected int
		hasError bool
	}{
		"written slot":     {slot: 0, expected: 4},
		"never written":    {slot: 9, expected: 0},
		"negative slot":    {slot: -1, hasError: true},
		"slot past ring":   {slot: Size, hasError: true},
		"far out of range": {slot: 1000, hasError: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := r.At(test.slot)
			if test.hasError {
				if !errors.Is(err, ErrInvalidSlot) {
					t.Errorf("At(%d) error = %v, expected ErrInvalidSlot", test.slot, err)
				}
				return
			}
			if err != nil || got != test.expected {
				t.Errorf("At(%d) = %d, %v; expected %d", test.slot, got, err, test.expected)
			}
		})
	}
}
