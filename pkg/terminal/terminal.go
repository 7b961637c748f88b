package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Terminal delivers key presses from an input file, switching it to raw
// mode when it is a terminal so every key arrives without waiting for Enter.
type Terminal struct {
	log      zerolog.Logger
	in       *os.File
	oldState *term.State
	stopOnce sync.Once
	stopChan chan struct{}

	// HandleInput is called with every chunk of bytes read.
	HandleInput func(data []byte) error
}

// NewTerminal creates a new Terminal instance reading from in.
func NewTerminal(in *os.File, log zerolog.Logger) *Terminal {
	return &Terminal{
		log:      log.With().Str("component", "terminal").Logger(),
		in:       in,
		stopChan: make(chan struct{}),
	}
}

// IsRaw reports whether the input was switched to raw mode.
func (t *Terminal) IsRaw() bool { return t.oldState != nil }

// Start switches the input to raw mode if possible and begins reading.
func (t *Terminal) Start() error {
	fd := int(t.in.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			t.log.Error().Err(err).Msg("Failed to set raw mode on input")
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		t.oldState = oldState
		t.log.Debug().Msg("Input switched to raw mode")
	} else {
		t.log.Debug().Msg("Input is not a terminal, reading as a stream")
	}

	go t.copyInput()

	t.log.Info().Msg("Keyboard input started")
	return nil
}

// Stop restores the terminal state and signals Wait.
func (t *Terminal) Stop() {
	t.stopOnce.Do(func() {
		t.log.Debug().Msg("Stopping terminal")
		close(t.stopChan)
		if t.oldState != nil {
			if err := term.Restore(int(t.in.Fd()), t.oldState); err != nil {
				t.log.Warn().Err(err).Msg("Failed to restore terminal state")
			} else {
				t.log.Debug().Msg("Restored terminal state")
			}
		}
		t.log.Info().Msg("Keyboard input stopped")
	})
}

// Wait blocks until Stop is called or the input ends.
func (t *Terminal) Wait() {
	<-t.stopChan
}

// copyInput reads from the input and calls HandleInput.
func (t *Terminal) copyInput() {
	buf := make([]byte, 64)
	for {
		n, err := t.in.Read(buf)
		if n > 0 && t.HandleInput != nil {
			select {
			case <-t.stopChan:
				return
			default:
			}
			if herr := t.HandleInput(buf[:n]); herr != nil {
				t.log.Error().Err(herr).Msg("Input handler failed")
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				t.log.Error().Err(err).Msg("Input read error")
			} else {
				t.log.Debug().Err(err).Msg("Input finished")
			}
			t.Stop() // Trigger shutdown on input error/EOF
			return
		}
	}
}

// NewlineWriter converts "\n" to "\r\n" so log lines stay aligned while
// the terminal is in raw mode.
func NewlineWriter(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
