package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hiway/keysynth/pkg/queue"
	"github.com/hiway/keysynth/pkg/voice"
)

const (
	// DefaultBlockLength is the longest stretch rendered with one envelope ramp.
	DefaultBlockLength = 2048
	// DefaultQueueLength bounds the intents accepted between two renders.
	DefaultQueueLength = 64
	errorBacklog       = 16
)

// Options configures an Engine.
type Options struct {
	SampleRate  int
	BlockLength int
	DecayRate   float64
	Instrument  voice.Waveform
	QueueLength int
}

// DefaultOptions returns 48 kHz, 2048-sample blocks, decay 3 and the Hotel instrument.
func DefaultOptions() Options {
	return Options{
		SampleRate:  voice.DefaultSampleRate,
		BlockLength: DefaultBlockLength,
		DecayRate:   voice.DefaultDecayRate,
		Instrument:  voice.Hotel,
		QueueLength: DefaultQueueLength,
	}
}

type intentKind int

const (
	intentTrigger intentKind = iota
	intentStrike
	intentShift
	intentSetPitch
	intentRecall
	intentArm
	intentInstrument
	intentToggleInstrument
	intentDecayRate
	intentAdjustDecay
	intentAllNotesOff
	intentSnapshot
)

var intentNames = [...]string{
	intentTrigger:          "trigger",
	intentStrike:           "strike",
	intentShift:            "shift",
	intentSetPitch:         "set_pitch",
	intentRecall:           "recall",
	intentArm:              "arm",
	intentInstrument:       "instrument",
	intentToggleInstrument: "toggle_instrument",
	intentDecayRate:        "decay_rate",
	intentAdjustDecay:      "adjust_decay",
	intentAllNotesOff:      "all_notes_off",
	intentSnapshot:         "snapshot",
}

// intent is one queued request from the input side.
type intent struct {
	kind  intentKind
	n     int
	f     float64
	reply chan<- Snapshot
}

func (it intent) String() string {
	switch it.kind {
	case intentDecayRate, intentAdjustDecay:
		return fmt.Sprintf("%s(%g)", intentNames[it.kind], it.f)
	case intentTrigger, intentStrike, intentShift, intentSetPitch, intentRecall, intentInstrument:
		return fmt.Sprintf("%s(%d)", intentNames[it.kind], it.n)
	}
	return intentNames[it.kind]
}

// Engine is the thread-safe front of a State. The input side never touches
// the State directly: every operation becomes an intent on a bounded queue,
// and the audio side applies pending intents at the start of each Render
// call. The audio goroutine is the only writer and never waits on a lock
// held by the input goroutine.
type Engine struct {
	log         zerolog.Logger
	state       *State
	intents     *queue.Queue[intent]
	errs        chan error
	blockLength int
	sampleRate  int
}

// New creates an engine. Zero option fields take their defaults.
func New(opts Options, log zerolog.Logger) (*Engine, error) {
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.BlockLength <= 0 {
		opts.BlockLength = def.BlockLength
	}
	if opts.QueueLength <= 0 {
		opts.QueueLength = def.QueueLength
	}

	log = log.With().Str("component", "engine").Logger()

	state := NewState(opts.SampleRate)
	if err := state.SetDecayRate(opts.DecayRate); err != nil {
		return nil, err
	}
	state.SetInstrument(opts.Instrument)

	q, err := queue.NewQueue[intent]("intents", opts.QueueLength, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent queue: %w", err)
	}

	log.Debug().
		Int("sample_rate", opts.SampleRate).
		Int("block_length", opts.BlockLength).
		Float64("decay_rate", opts.DecayRate).
		Stringer("instrument", opts.Instrument).
		Msg("Engine created")

	return &Engine{
		log:         log,
		state:       state,
		intents:     q,
		errs:        make(chan error, errorBacklog),
		blockLength: opts.BlockLength,
		sampleRate:  opts.SampleRate,
	}, nil
}

// SampleRate returns the output sample rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// BlockLength returns the longest block rendered with a single envelope ramp.
func (e *Engine) BlockLength() int { return e.blockLength }

// Errors reports failed intents. Errors are dropped when nobody reads.
func (e *Engine) Errors() <-chan error { return e.errs }

func (e *Engine) enqueue(it intent) bool {
	return e.intents.Add(it)
}

// Trigger plays pitch and makes it current.
func (e *Engine) Trigger(pitch int) bool {
	return e.enqueue(intent{kind: intentTrigger, n: pitch})
}

// Strike shifts the current pitch by delta and plays it.
func (e *Engine) Strike(delta int) bool {
	return e.enqueue(intent{kind: intentStrike, n: delta})
}

// ShiftPitch moves the current pitch without playing it.
func (e *Engine) ShiftPitch(delta int) bool {
	return e.enqueue(intent{kind: intentShift, n: delta})
}

// SetPitch sets the current pitch without playing it.
func (e *Engine) SetPitch(pitch int) bool {
	return e.enqueue(intent{kind: intentSetPitch, n: pitch})
}

// Recall replays the pitch in a recall slot.
func (e *Engine) Recall(slot int) bool {
	return e.enqueue(intent{kind: intentRecall, n: slot})
}

// Arm latches the next triggered pitch.
func (e *Engine) Arm() bool {
	return e.enqueue(intent{kind: intentArm})
}

// SetInstrument selects the waveform.
func (e *Engine) SetInstrument(w voice.Waveform) bool {
	return e.enqueue(intent{kind: intentInstrument, n: int(w)})
}

// ToggleInstrument switches the waveform.
func (e *Engine) ToggleInstrument() bool {
	return e.enqueue(intent{kind: intentToggleInstrument})
}

// SetDecayRate sets the envelope drop per second.
func (e *Engine) SetDecayRate(rate float64) bool {
	return e.enqueue(intent{kind: intentDecayRate, f: rate})
}

// AdjustDecayRate changes the decay rate by delta, stopping at zero.
func (e *Engine) AdjustDecayRate(delta float64) bool {
	return e.enqueue(intent{kind: intentAdjustDecay, f: delta})
}

// AllNotesOff silences every voice.
func (e *Engine) AllNotesOff() bool {
	return e.enqueue(intent{kind: intentAllNotesOff})
}

// Snapshot asks the audio side for a copy of the state. It waits for the
// next Render, so it only returns while audio is running or ctx ends.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !e.enqueue(intent{kind: intentSnapshot, reply: reply}) {
		return Snapshot{}, fmt.Errorf("snapshot request dropped")
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Render applies pending intents and fills out with audio, in blocks of
// at most BlockLength samples. It is meant to be called from the audio
// goroutine only.
func (e *Engine) Render(out []int16) {
	e.intents.Drain(e.apply)
	for len(out) > 0 {
		n := min(len(out), e.blockLength)
		e.state.RenderBlock(out[:n])
		out = out[n:]
	}
}

// Close stops accepting intents.
func (e *Engine) Close() {
	e.intents.Stop()
}

func (e *Engine) apply(it intent) {
	var err error
	s := e.state
	switch it.kind {
	case intentTrigger:
		err = s.Trigger(it.n)
	case intentStrike:
		err = s.Strike(it.n)
	case intentShift:
		s.ShiftPitch(it.n)
	case intentSetPitch:
		s.SetPitch(it.n)
	case intentRecall:
		_, err = s.Recall(it.n)
	case intentArm:
		s.Arm()
	case intentInstrument:
		s.SetInstrument(voice.Waveform(it.n))
	case intentToggleInstrument:
		s.ToggleInstrument()
	case intentDecayRate:
		err = s.SetDecayRate(it.f)
	case intentAdjustDecay:
		err = s.AdjustDecayRate(it.f)
	case intentAllNotesOff:
		s.AllNotesOff()
	case intentSnapshot:
		select {
		case it.reply <- s.Snapshot():
		default:
		}
	}
	if err != nil {
		select {
		case e.errs <- fmt.Errorf("%s: %w", it, err):
		default:
		}
	}
}
