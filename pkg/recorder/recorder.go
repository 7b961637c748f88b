package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

const (
	bitDepth  = 16
	numChans  = 1
	pcmFormat = 1 // linear PCM
)

// Format is an output container.
type Format int

const (
	FormatInvalid Format = iota
	FormatWAVE
	FormatAIFF
)

// ErrUnknownFormat is returned for paths without a .wav or .aif(f) extension.
var ErrUnknownFormat = errors.New("unknown audio file type")

// FormatFromPath picks the container from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAVE, nil
	case ".aif", ".aiff":
		return FormatAIFF, nil
	}
	return FormatInvalid, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

type encoder interface {
	Write(buf *audio.IntBuffer) error
	Close() error
}

// Recorder appends mono 16-bit samples to an audio file.
type Recorder struct {
	log    zerolog.Logger
	path   string
	file   *os.File
	enc    encoder
	buf    *audio.IntBuffer
	frames int
}

// Create opens path for writing; the extension selects WAV or AIFF.
func Create(path string, sampleRate int, log zerolog.Logger) (*Recorder, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	var enc encoder
	switch format {
	case FormatAIFF:
		enc = aiff.NewEncoder(f, sampleRate, bitDepth, numChans)
	default:
		enc = wav.NewEncoder(f, sampleRate, bitDepth, numChans, pcmFormat)
	}

	log = log.With().Str("component", "recorder").Str("path", path).Logger()
	log.Debug().Int("sample_rate", sampleRate).Msg("Recording started")

	return &Recorder{
		log:  log,
		path: path,
		file: f,
		enc:  enc,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples appends samples to the file.
func (r *Recorder) WriteSamples(samples []int16) error {
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		r.buf.Data[i] = int(s)
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write samples to %s: %w", r.path, err)
	}
	r.frames += len(samples)
	return nil
}

// Frames returns the number of samples written so far.
func (r *Recorder) Frames() int { return r.frames }

// Close finalizes the file headers and closes the file.
func (r *Recorder) Close() error {
	encErr := r.enc.Close()
	fileErr := r.file.Close()
	r.log.Debug().Int("frames", r.frames).Msg("Recording finished")
	if encErr != nil {
		return fmt.Errorf("failed to finalize %s: %w", r.path, encErr)
	}
	return fileErr
}
