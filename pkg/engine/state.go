package engine

import (
	"fmt"
	"math"

	"github.com/hiway/keysynth/pkg/latch"
	"github.com/hiway/keysynth/pkg/recall"
	"github.com/hiway/keysynth/pkg/voice"
)

// State is the complete synthesizer state: voices, recall history, latch,
// instrument and the current pitch. It is not safe for concurrent use;
// Engine gives it a single writer.
type State struct {
	pool       *voice.Pool
	ring       recall.Ring
	latch      latch.Latch
	instrument voice.Waveform
	current    int
}

// Snapshot is a copy of a State for inspection.
type Snapshot struct {
	Voices     []voice.Voice
	Recall     [recall.Size]int
	Cursor     int
	Latched    []int
	Armed      bool
	Instrument voice.Waveform
	DecayRate  float64
	Current    int
}

// NewState returns a silent state rendering at sampleRate.
func NewState(sampleRate int) *State {
	return &State{pool: voice.NewPool(sampleRate)}
}

// Current returns the pitch the next Strike is relative to.
func (s *State) Current() int { return s.current }

// Pool exposes the voice pool.
func (s *State) Pool() *voice.Pool { return s.pool }

// Instrument returns the selected waveform.
func (s *State) Instrument() voice.Waveform { return s.instrument }

// Trigger plays pitch. When the latch is armed the pitch is captured and
// recorded for recall instead of sounding. After a voice starts, every
// latched pitch is played in arrival order; a latched pitch that cannot
// start stays latched, along with everything behind it.
func (s *State) Trigger(pitch int) error {
	s.current = pitch
	held, err := s.latch.Intercept(pitch)
	if held {
		if err != nil {
			return err
		}
		s.ring.Record(pitch)
		return nil
	}
	if err := s.start(pitch); err != nil {
		return err
	}
	for {
		next, ok := s.latch.Peek()
		if !ok {
			return nil
		}
		if err := s.start(next); err != nil {
			return fmt.Errorf("play latched pitch: %w", err)
		}
		s.latch.DrainOne()
		s.current = next
	}
}

func (s *State) start(pitch int) error {
	if _, err := s.pool.Trigger(pitch); err != nil {
		return err
	}
	s.ring.Record(pitch)
	return nil
}

// ShiftPitch moves the current pitch by delta semitones without playing it.
func (s *State) ShiftPitch(delta int) {
	s.current += delta
}

// SetPitch sets the current pitch without playing it.
func (s *State) SetPitch(pitch int) {
	s.current = pitch
}

// Strike shifts the current pitch by delta and plays it.
func (s *State) Strike(delta int) error {
	return s.Trigger(s.current + delta)
}

// Recall replays the pitch stored in slot and makes it current.
func (s *State) Recall(slot int) (int, error) {
	pitch, err := s.ring.At(slot)
	if err != nil {
		return 0, err
	}
	return pitch, s.Trigger(pitch)
}

// Arm captures the next triggered pitch in the latch.
func (s *State) Arm() { s.latch.Arm() }

// SetInstrument selects the waveform for every voice.
func (s *State) SetInstrument(w voice.Waveform) { s.instrument = w }

// ToggleInstrument switches between the two waveforms.
func (s *State) ToggleInstrument() { s.instrument = s.instrument.Toggle() }

// SetDecayRate sets the envelope drop per second.
func (s *State) SetDecayRate(rate float64) error {
	return s.pool.SetDecayRate(rate)
}

// AdjustDecayRate changes the decay rate by delta, stopping at zero.
func (s *State) AdjustDecayRate(delta float64) error {
	return s.pool.SetDecayRate(math.Max(s.pool.DecayRate()+delta, 0))
}

// AllNotesOff silences every voice at once and empties the latch.
func (s *State) AllNotesOff() {
	s.pool.Reset()
	s.latch.Reset()
}

// RenderBlock fills out with one block of audio and then ages the voices
// by len(out) samples.
func (s *State) RenderBlock(out []int16) {
	s.pool.Render(out, s.instrument)
	s.pool.Age(len(out))
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Voices:     s.pool.Voices(),
		Recall:     s.ring.Slots(),
		Cursor:     s.ring.Cursor(),
		Latched:    s.latch.Pending(),
		Armed:      s.latch.Armed(),
		Instrument: s.instrument,
		DecayRate:  s.pool.DecayRate(),
		Current:    s.current,
	}
}
