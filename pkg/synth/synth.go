package synth

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/hiway/keysynth/pkg/config"
	"github.com/hiway/keysynth/pkg/engine"
	"github.com/hiway/keysynth/pkg/keymap"
	"github.com/hiway/keysynth/pkg/player"
	"github.com/hiway/keysynth/pkg/recorder"
	"github.com/hiway/keysynth/pkg/terminal"
)

// Options selects the outer collaborators of a Synth.
type Options struct {
	Input      *os.File // defaults to os.Stdin
	Headless   bool     // render without an audio device
	RecordPath string   // headless only: also write the output to this file
	DumpState  bool     // log the final engine state on exit
}

// Synth connects keyboard input to the engine and the engine to audio output.
type Synth struct {
	cfg      *config.Config
	opts     Options
	term     *terminal.Terminal
	engine   *engine.Engine
	player   player.Player
	recorder *recorder.Recorder
	log      zerolog.Logger
	stopOnce sync.Once
	stopChan chan struct{}
}

// New creates a new Synth instance with the given configuration.
func New(cfg *config.Config, opts Options, log zerolog.Logger) (*Synth, error) {
	log = log.With().Str("component", "synth").Logger()

	e, err := engine.New(cfg.EngineOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := &Synth{
		cfg:      cfg,
		opts:     opts,
		engine:   e,
		log:      log,
		stopChan: make(chan struct{}),
	}

	if opts.RecordPath != "" && !opts.Headless {
		e.Close()
		return nil, fmt.Errorf("recording is only available in headless mode")
	}

	// Create audio player
	if opts.Headless {
		var sink player.Sink
		if opts.RecordPath != "" {
			rec, err := recorder.Create(opts.RecordPath, e.SampleRate(), log)
			if err != nil {
				e.Close()
				return nil, fmt.Errorf("failed to create recording: %w", err)
			}
			s.recorder = rec
			sink = rec
		}
		s.player = player.NewStubPlayer(e, e.SampleRate(), e.BlockLength(), sink, log)
	} else {
		p, err := player.NewOtoPlayer(e, e.SampleRate(), cfg.Audio.BufferSize(), log)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create audio player: %w", err)
		}
		s.player = p
	}

	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	s.term = terminal.NewTerminal(in, log)
	s.term.HandleInput = s.handleInput

	return s, nil
}

// Engine returns the engine driven by this Synth.
func (s *Synth) Engine() *engine.Engine { return s.engine }

// Start plays until the quit key, the end of input or ctx cancellation.
func (s *Synth) Start(ctx context.Context) error {
	if err := s.player.Start(); err != nil {
		return fmt.Errorf("failed to start audio: %w", err)
	}
	if err := s.term.Start(); err != nil {
		s.player.Close()
		return fmt.Errorf("failed to start terminal: %w", err)
	}

	s.log.Info().Msg("Synth started")

	// Wait for context cancellation or terminal exit
	go func() {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Context canceled, stopping synth")
			s.Stop()
		case <-s.stopChan:
		}
	}()
	go s.watchErrors()

	s.term.Wait()
	s.Stop()
	return nil
}

// Stop shuts down input, audio and recording.
func (s *Synth) Stop() {
	s.stopOnce.Do(func() {
		s.log.Debug().Msg("Stopping synth")
		close(s.stopChan)

		s.term.Stop()

		if s.opts.DumpState {
			s.dumpState()
		}

		if err := s.player.Close(); err != nil {
			s.log.Error().Err(err).Msg("Error closing audio player")
		}
		s.engine.Close()

		if s.recorder != nil {
			if err := s.recorder.Close(); err != nil {
				s.log.Error().Err(err).Msg("Error closing recording")
			} else {
				s.log.Info().Str("path", s.opts.RecordPath).Int("frames", s.recorder.Frames()).Msg("Recording saved")
			}
		}

		s.log.Info().Msg("Synth stopped")
	})
}

func (s *Synth) dumpState() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not read engine state")
		return
	}
	s.log.Debug().Msg("Final engine state:\n" + spew.Sdump(snap))
}

// watchErrors logs failures reported by the audio side.
func (s *Synth) watchErrors() {
	for {
		select {
		case <-s.stopChan:
			return
		case err := <-s.engine.Errors():
			s.log.Warn().Err(err).Msg("Key action failed")
		}
	}
}

// handleInput maps each input byte to an engine operation.
func (s *Synth) handleInput(data []byte) error {
	for _, b := range data {
		action, ok := s.cfg.Layout.Lookup(b)
		if !ok {
			s.log.Trace().Str("key", string(b)).Msg("Unbound key")
			continue
		}
		s.log.Trace().
			Str("key", string(b)).
			Str("action", string(action.Kind)).
			Msg("Key matched binding")
		if !Apply(s.engine, action) {
			s.Stop()
			return nil
		}
	}
	return nil
}

// Apply performs action on e. It returns false for the quit action.
func Apply(e *engine.Engine, action keymap.Action) bool {
	switch action.Kind {
	case keymap.Strike:
		e.Strike(action.Delta)
	case keymap.Play:
		e.Trigger(action.Pitch)
	case keymap.Shift:
		e.ShiftPitch(action.Delta)
	case keymap.Tune:
		e.SetPitch(action.Pitch)
	case keymap.Recall:
		e.Recall(action.Slot)
	case keymap.Arm:
		e.Arm()
	case keymap.ToggleInstrument:
		e.ToggleInstrument()
	case keymap.Decay:
		e.AdjustDecayRate(action.Amount)
	case keymap.Silence:
		e.AllNotesOff()
	case keymap.Quit:
		return false
	}
	return true
}
