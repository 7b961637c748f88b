package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

const (
	// ChannelCount represents mono audio
	ChannelCount = 1
	// BitDepthInBytes represents 16-bit audio
	BitDepthInBytes = 2
)

// Renderer produces audio on demand. Render is called from the audio
// goroutine and must not block.
type Renderer interface {
	Render(out []int16)
}

// Sink receives every block a StubPlayer renders.
type Sink interface {
	WriteSamples(samples []int16) error
}

// Player is the interface for streaming a Renderer to an output.
type Player interface {
	Start() error
	Close() error
}

var (
	otoCtx  *oto.Context
	otoRate int
	once    sync.Once
	ctxErr  error
)

// initOtoContext initializes the oto context singleton. Oto allows one
// context per process, so later calls must ask for the same rate.
func initOtoContext(sampleRate int, bufferSize time.Duration) (*oto.Context, error) {
	once.Do(func() {
		op := &oto.NewContextOptions{}
		op.SampleRate = sampleRate
		op.ChannelCount = ChannelCount
		op.Format = oto.FormatSignedInt16LE
		op.BufferSize = bufferSize

		var readyChan chan struct{}
		otoCtx, readyChan, ctxErr = oto.NewContext(op)
		if ctxErr == nil {
			otoRate = sampleRate
			<-readyChan // Wait for the context to be ready
		}
	})
	if ctxErr == nil && otoRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, cannot open at %d Hz", otoRate, sampleRate)
	}
	return otoCtx, ctxErr
}

// OtoPlayer streams a Renderer through ebitengine/oto/v3.
type OtoPlayer struct {
	log      zerolog.Logger
	ctx      *oto.Context
	player   *oto.Player
	renderer Renderer
	samples  []int16 // reused between reads
	started  bool
	mu       sync.Mutex // Protects player and started
}

// NewOtoPlayer creates a player that pulls audio from r at sampleRate.
func NewOtoPlayer(r Renderer, sampleRate int, bufferSize time.Duration, log zerolog.Logger) (*OtoPlayer, error) {
	ctx, err := initOtoContext(sampleRate, bufferSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize Oto audio context")
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	log.Debug().Int("sample_rate", sampleRate).Msg("Oto audio context initialized successfully")

	return &OtoPlayer{
		log:      log.With().Str("player_type", "oto").Logger(),
		ctx:      ctx,
		renderer: r,
		samples:  make([]int16, 4096),
	}, nil
}

// Read fills buf with little-endian 16-bit samples. Oto calls it from its
// own goroutine.
func (p *OtoPlayer) Read(buf []byte) (int, error) {
	n := len(buf) / BitDepthInBytes
	if n > len(p.samples) {
		p.samples = make([]int16, n)
	}
	samples := p.samples[:n]
	p.renderer.Render(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*BitDepthInBytes:], uint16(s))
	}
	return n * BitDepthInBytes, nil
}

// Start begins playback.
func (p *OtoPlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	p.player = p.ctx.NewPlayer(p)
	p.player.Play()
	p.started = true
	p.log.Debug().Msg("Playback started")
	return nil
}

// Close stops playback. The oto context is process-wide and stays open.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Debug().Msg("Closing OtoPlayer")
	if p.player == nil {
		return nil
	}
	p.player.Pause()
	err := p.player.Err()
	p.player.Close()
	p.player = nil
	p.started = false
	if err != nil {
		return fmt.Errorf("oto player error: %w", err)
	}
	return nil
}

// PlayPCM plays a finite stream of mono 16-bit little-endian samples and
// waits until it has been played.
func PlayPCM(data io.Reader, sampleRate int, log zerolog.Logger) error {
	ctx, err := initOtoContext(sampleRate, 0)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	player := ctx.NewPlayer(data)
	defer player.Close() // Ensure player resources are released

	log.Debug().Int("sample_rate", sampleRate).Msg("Playing rendered audio")
	player.Play()

	// Wait for playback to complete. This is blocking.
	for player.IsPlaying() {
		time.Sleep(time.Millisecond) // Prevent busy-waiting
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("oto player error: %w", err)
	}
	return nil
}

// --- StubPlayer (headless and tests) ---

// StubPlayer renders blocks at real-time pace without an audio device,
// optionally handing them to a Sink.
type StubPlayer struct {
	log         zerolog.Logger
	renderer    Renderer
	sink        Sink
	blockLength int
	interval    time.Duration
	started     atomic.Bool
	stopOnce    sync.Once
	stopChan    chan struct{}
	done        chan struct{}
	err         error
}

// NewStubPlayer creates a StubPlayer. sink may be nil.
func NewStubPlayer(r Renderer, sampleRate, blockLength int, sink Sink, log zerolog.Logger) *StubPlayer {
	return &StubPlayer{
		log:         log.With().Str("player_type", "stub").Logger(),
		renderer:    r,
		sink:        sink,
		blockLength: blockLength,
		interval:    time.Duration(blockLength) * time.Second / time.Duration(sampleRate),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins rendering in the background.
func (p *StubPlayer) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}
	p.log.Debug().Dur("interval", p.interval).Int("block_length", p.blockLength).Msg("Starting stub playback")
	go p.run()
	return nil
}

func (p *StubPlayer) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	buf := make([]int16, p.blockLength)
	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.renderer.Render(buf)
			if p.sink == nil {
				continue
			}
			if err := p.sink.WriteSamples(buf); err != nil {
				p.log.Error().Err(err).Msg("Sink write failed, stopping playback")
				p.err = err
				return
			}
		}
	}
}

// Close stops rendering and returns the first sink error, if any.
func (p *StubPlayer) Close() error {
	p.stopOnce.Do(func() {
		p.log.Debug().Msg("Closing StubPlayer")
		close(p.stopChan)
	})
	if !p.started.Load() {
		return nil
	}
	<-p.done
	return p.err
}
