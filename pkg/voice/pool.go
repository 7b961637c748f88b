package voice

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxVoices is the number of voices that may sound at once.
	MaxVoices = 10
	// Amplitude is the peak output of a single voice at full volume.
	Amplitude = 14000
	// DefaultSampleRate is used when a pool is created with a rate of zero.
	DefaultSampleRate = 48000
	// DefaultDecayRate is the envelope drop per second of a fresh pool.
	DefaultDecayRate = 3.0
)

var (
	// ErrCapacityExceeded is returned when a new voice is needed but every slot is in use.
	ErrCapacityExceeded = errors.New("voice pool at capacity")
	// ErrInvalidDecayRate is returned for negative or non-finite decay rates.
	ErrInvalidDecayRate = errors.New("invalid decay rate")
)

// Pool is a bounded, unordered set of voices. It is not safe for
// concurrent use; callers serialize access.
type Pool struct {
	voices     [MaxVoices]Voice
	n          int
	sampleRate int
	decayRate  float64
}

// NewPool returns an empty pool rendering at sampleRate.
func NewPool(sampleRate int) *Pool {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Pool{
		sampleRate: sampleRate,
		decayRate:  DefaultDecayRate,
	}
}

// Len returns the number of active voices.
func (p *Pool) Len() int { return p.n }

// SampleRate returns the rate wavelengths are computed for.
func (p *Pool) SampleRate() int { return p.sampleRate }

// DecayRate returns the envelope drop per second.
func (p *Pool) DecayRate() float64 { return p.decayRate }

// SetDecayRate sets the envelope drop per second applied to every voice.
func (p *Pool) SetDecayRate(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDecayRate, rate)
	}
	p.decayRate = rate
	return nil
}

// Trigger attacks pitch. An already active voice of the same pitch is
// re-attacked in place, keeping its phase and age; otherwise a new voice
// is allocated. It reports whether a new voice was created.
func (p *Pool) Trigger(pitch int) (bool, error) {
	for i := 0; i < p.n; i++ {
		v := &p.voices[i]
		if v.Pitch == pitch {
			v.TargetVolume = math.Min(v.TargetVolume+1, 1)
			return false, nil
		}
	}
	if p.n >= MaxVoices {
		return false, fmt.Errorf("%w: cannot start pitch %d", ErrCapacityExceeded, pitch)
	}
	v := &p.voices[p.n]
	*v = Voice{TargetVolume: 1}
	v.SetPitch(pitch, p.sampleRate)
	p.n++
	return true, nil
}

// Find returns a copy of the active voice playing pitch.
func (p *Pool) Find(pitch int) (Voice, bool) {
	for i := 0; i < p.n; i++ {
		if p.voices[i].Pitch == pitch {
			return p.voices[i], true
		}
	}
	return Voice{}, false
}

// Voices returns a copy of the active voices.
func (p *Pool) Voices() []Voice {
	out := make([]Voice, p.n)
	copy(out, p.voices[:p.n])
	return out
}

// Render mixes every active voice into out, overwriting its contents.
// The envelope ramps linearly from Volume to TargetVolume across the
// block. Mixed samples saturate at the int16 range.
func (p *Pool) Render(out []int16, wf Waveform) {
	length := float64(len(out))
	for i := range out {
		pos := float64(i) / length
		var acc float64
		for j := 0; j < p.n; j++ {
			v := &p.voices[j]
			s := wf.Sample(v.Phase, v.Wavelength) * lerp(v.Volume, v.TargetVolume, pos) * v.tremolo()
			if !math.IsNaN(s) {
				acc += Amplitude * s
			}
			v.advance()
		}
		out[i] = saturate(acc)
	}
}

// Age closes a block of n samples: each voice settles at its target and
// a new target is computed from the decay rate. Silent voices are removed
// by swapping in the last voice.
func (p *Pool) Age(n int) {
	drop := p.decayRate * float64(n) / float64(p.sampleRate)
	for j := 0; j < p.n; {
		v := &p.voices[j]
		v.Volume = clamp01(v.TargetVolume)
		v.TargetVolume = clamp01(v.Volume - drop)
		if v.Volume <= 0 {
			p.n--
			p.voices[j] = p.voices[p.n]
			continue // re-examine the voice swapped into j
		}
		j++
	}
}

// Reset drops every voice immediately.
func (p *Pool) Reset() {
	p.n = 0
}

func saturate(x float64) int16 {
	switch {
	case x > math.MaxInt16:
		return math.MaxInt16
	case x < math.MinInt16:
		return math.MinInt16
	}
	return int16(x)
}
