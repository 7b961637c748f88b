package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"

	"github.com/hiway/keysynth"
	"github.com/hiway/keysynth/pkg/charter"
	"github.com/hiway/keysynth/pkg/config"
	"github.com/hiway/keysynth/pkg/recorder"
	"github.com/hiway/keysynth/pkg/synth"
	"github.com/hiway/keysynth/pkg/terminal"
	"github.com/hiway/keysynth/pkg/voice"
)

const usage = `usage:
  keysynth [play] [flags]        play from the keyboard
  keysynth render [flags]        render a key script to a file

`

func main() {
	args := os.Args[1:]
	cmd := "play"
	if len(args) > 0 && (args[0] == "play" || args[0] == "render") {
		cmd, args = args[0], args[1:]
	}

	flags := pflag.NewFlagSet("keysynth "+cmd, pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	configPath := flags.StringP("config", "c", "", "config file (default ./keysynth.toml or $XDG_CONFIG_HOME/keysynth/keysynth.toml)")
	debug := flags.BoolP("debug", "d", false, "verbose logging and a state dump on exit")

	// play
	headless := flags.Bool("headless", false, "render without an audio device")
	record := flags.StringP("record", "r", "", "headless only: record the session to a .wav or .aif file")

	// render
	keys := flags.StringP("keys", "k", "", "key script to render, one key per interval")
	output := flags.StringP("output", "o", "", "output .wav or .aif file")
	interval := flags.DurationP("interval", "i", 250*time.Millisecond, "time between keys")
	tail := flags.Duration("tail", time.Second, "time rendered after the last key")
	chart := flags.String("chart", "", "also write an HTML chart of the waveform")
	instrument := flags.String("instrument", "", "override the instrument (hotel or triangle)")
	listen := flags.BoolP("listen", "l", false, "play the rendered script instead of writing a file")
	quiet := flags.BoolP("quiet", "q", false, "no progress bar")

	flags.Parse(args)

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: terminal.NewlineWriter(os.Stderr), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	cfg := loadConfig(*configPath, log)
	if *instrument != "" {
		cfg.Voice.Instrument = *instrument
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid instrument")
		}
	}

	switch cmd {
	case "render":
		runRender(cfg, renderArgs{
			keys:     *keys,
			output:   *output,
			interval: *interval,
			tail:     *tail,
			chart:    *chart,
			listen:   *listen,
			quiet:    *quiet,
		}, log)
	default:
		runPlay(cfg, synth.Options{
			Headless:   *headless,
			RecordPath: *record,
			DumpState:  *debug,
		}, log)
	}
}

// loadConfig loads the config file given on the command line or the
// first one found in the standard locations.
func loadConfig(path string, log zerolog.Logger) *config.Config {
	if path == "" {
		found, ok := config.Find()
		if !ok {
			log.Debug().Msg("No config file found, using defaults")
			return config.Default()
		}
		path = found
	}

	cfg, err := config.LoadConfig(path, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load config")
	}
	log.Debug().Str("path", path).Msg("Loaded config")
	return cfg
}

func runPlay(cfg *config.Config, opts synth.Options, log zerolog.Logger) {
	s, err := synth.New(cfg, opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create synth")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Synth exited with error")
	}
}

type renderArgs struct {
	keys     string
	output   string
	interval time.Duration
	tail     time.Duration
	chart    string
	listen   bool
	quiet    bool
}

func runRender(cfg *config.Config, args renderArgs, log zerolog.Logger) {
	if args.keys == "" {
		log.Fatal().Msg("render needs --keys")
	}
	if args.output == "" && !args.listen && args.chart == "" {
		log.Fatal().Msg("render needs --output, --chart or --listen")
	}

	opts := keysynth.Options{
		Engine:   cfg.EngineOptions(),
		Layout:   cfg.Layout,
		Interval: args.interval,
		Tail:     args.tail,
	}

	if args.listen {
		if err := keysynth.PlayKeys([]byte(args.keys), opts, log); err != nil {
			log.Fatal().Err(err).Msg("Playback failed")
		}
		return
	}

	var progress keysynth.Progress
	if !args.quiet {
		bar := progressbar.NewOptions(
			100,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetDescription("rendering..."),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]=[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		progress = func(done, total int) {
			if total > 0 {
				bar.Set(done * 100 / total)
			}
		}
	}

	samples, err := keysynth.RenderKeys([]byte(args.keys), opts, progress, log)
	if progress != nil {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Render failed")
	}

	if args.output != "" {
		if err := writeAudio(args.output, samples, opts.Engine.SampleRate, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to write audio")
		}
		log.Info().Str("path", args.output).Int("samples", len(samples)).Msg("Wrote audio")
	}

	if args.chart != "" {
		wf, _ := voice.ParseWaveform(cfg.Voice.Instrument)
		title := fmt.Sprintf("%q (%s)", args.keys, wf)
		if err := writeChart(args.chart, title, samples, opts.Engine.SampleRate); err != nil {
			log.Fatal().Err(err).Msg("Failed to write chart")
		}
		log.Info().Str("path", args.chart).Msg("Wrote chart")
	}
}

func writeAudio(path string, samples []int16, sampleRate int, log zerolog.Logger) error {
	rec, err := recorder.Create(path, sampleRate, log)
	if err != nil {
		return err
	}
	if err := rec.WriteSamples(samples); err != nil {
		rec.Close()
		return err
	}
	return rec.Close()
}

func writeChart(path, title string, samples []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := charter.WriteChart(f, title, samples, sampleRate, charter.DefaultMaxPoints); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
