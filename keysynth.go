package keysynth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/hiway/keysynth/pkg/engine"
	"github.com/hiway/keysynth/pkg/keymap"
	"github.com/hiway/keysynth/pkg/player"
	"github.com/hiway/keysynth/pkg/synth"
)

// Options contains parameters for rendering a key script.
type Options struct {
	Engine engine.Options
	// Layout maps script bytes to actions
	Layout *keymap.Layout
	// Interval between key presses
	Interval time.Duration
	// Tail is rendered after the last key so notes can ring out
	Tail time.Duration
}

// DefaultOptions returns the default render options.
func DefaultOptions() Options {
	layout, err := keymap.NewLayout(keymap.DefaultBindings())
	if err != nil {
		panic(fmt.Sprintf("default key bindings: %v", err))
	}
	return Options{
		Engine:   engine.DefaultOptions(),
		Layout:   layout,
		Interval: 250 * time.Millisecond,
		Tail:     time.Second,
	}
}

// Progress is called after each key with the number of samples rendered
// so far and the total.
type Progress func(done, total int)

// RenderKeys plays keys one every Interval and returns the mono samples.
// A quit key ends the script early; the tail is still rendered.
func RenderKeys(keys []byte, opts Options, progress Progress, log zerolog.Logger) ([]int16, error) {
	if opts.Layout == nil {
		return nil, errors.New("render options need a key layout")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("key interval must be positive, got %v", opts.Interval)
	}
	if opts.Tail < 0 {
		return nil, fmt.Errorf("tail cannot be negative, got %v", opts.Tail)
	}

	e, err := engine.New(opts.Engine, log)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	rate := e.SampleRate()
	perKey := samplesFor(opts.Interval, rate)
	tail := samplesFor(opts.Tail, rate)
	out := make([]int16, len(keys)*perKey+tail)

	pos := 0
	for _, k := range keys {
		action, ok := opts.Layout.Lookup(k)
		if !ok {
			log.Debug().Str("key", string(k)).Msg("Skipping unbound key")
		} else if !synth.Apply(e, action) {
			log.Debug().Msg("Quit key ends the script")
			break
		}
		e.Render(out[pos : pos+perKey])
		pos += perKey
		drainErrors(e, log)
		if progress != nil {
			progress(pos, len(out))
		}
	}

	e.Render(out[pos : pos+tail])
	pos += tail
	drainErrors(e, log)
	if progress != nil {
		progress(len(out), len(out))
	}

	log.Debug().Int("samples", pos).Int("sample_rate", rate).Msg("Rendered key script")
	return out[:pos], nil
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

func drainErrors(e *engine.Engine, log zerolog.Logger) {
	for {
		select {
		case err := <-e.Errors():
			log.Warn().Err(err).Msg("Key action failed")
		default:
			return
		}
	}
}

// EncodePCM converts samples to 16-bit little-endian PCM.
func EncodePCM(samples []int16) io.Reader {
	buf := make([]byte, len(samples)*player.BitDepthInBytes)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*player.BitDepthInBytes:], uint16(s))
	}
	return bytes.NewReader(buf)
}

// PlayKeys renders keys and plays the result on the default audio device.
func PlayKeys(keys []byte, opts Options, log zerolog.Logger) error {
	samples, err := RenderKeys(keys, opts, nil, log)
	if err != nil {
		return err
	}
	rate := opts.Engine.SampleRate
	if rate <= 0 {
		rate = engine.DefaultOptions().SampleRate
	}
	return player.PlayPCM(EncodePCM(samples), rate, log)
}
