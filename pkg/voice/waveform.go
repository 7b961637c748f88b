package voice

import (
	"fmt"
	"strings"
)

// Waveform selects the oscillator shape used by every voice.
type Waveform int

const (
	// Hotel is a two-segment sawtooth.
	Hotel Waveform = iota
	// Triangle is a symmetric triangle.
	Triangle
)

// Sample returns the normalized amplitude at phase within wavelength.
// Volume is not applied here; the mixer scales every waveform once.
func (w Waveform) Sample(phase, wavelength float64) float64 {
	x := 2 * phase / wavelength
	switch w {
	case Triangle:
		if x < 1 {
			return x - 0.5
		}
		return -x + 1.5
	default:
		if x < 1 {
			return x - 0.75
		}
		return x - 1
	}
}

// Toggle returns the other waveform.
func (w Waveform) Toggle() Waveform {
	if w == Hotel {
		return Triangle
	}
	return Hotel
}

func (w Waveform) String() string {
	switch w {
	case Hotel:
		return "hotel"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// ParseWaveform parses a waveform name as produced by String.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hotel", "a", "":
		return Hotel, nil
	case "triangle", "b":
		return Triangle, nil
	}
	return Hotel, fmt.Errorf("unknown waveform %q", s)
}
