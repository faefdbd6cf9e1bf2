package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/cmd"
	"github.com/vsariola/mixseq/config"
	"github.com/vsariola/mixseq/instrument"
	"github.com/vsariola/mixseq/oto"
	"github.com/vsariola/mixseq/tracker"
	"github.com/vsariola/mixseq/version"
)

func main() {
	configPath := flag.String("config", "", "Path of the YAML config file. MIXSEQ_* environment variables override it.")
	templatePath := flag.String("t", "", "Session template to play. Overrides session.template of the config; by default, the built-in session is played.")
	render := flag.Duration("render", 0, "Render the given duration offline instead of playing it on the audio device.")
	output := flag.String("o", "", "Write the offline render to this .wav file.")
	pcm := flag.Bool("c", false, "Convert the offline render to 16-bit signed PCM.")
	report := flag.Bool("r", false, "Print a report of the session.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if *templatePath != "" {
		cfg.Session.Template = *templatePath
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := tracker.NewMetrics(registry)
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, registry)
	}

	tmpl, err := loadTemplate(cfg.Session.Template)
	if err != nil {
		log.Fatal(err)
	}
	g, err := tmpl.Build()
	if err != nil {
		log.Fatalf("could not build the session: %v", err)
	}
	broker := tracker.NewBroker()
	pool := instrument.NewPool()
	model := tracker.NewModel(broker, pool, g, tracker.ModelOptions{
		SampleRate:   cfg.Audio.SampleRate,
		UndoCapacity: cfg.Session.UndoCapacity,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err := model.SetBPM(tmpl.BPM); err != nil {
		log.Fatal(err)
	}
	if err := model.SetTimeSignature(tmpl.TimeSignature); err != nil {
		log.Fatal(err)
	}
	closeInstruments, err := fillPool(cfg, model, pool, g)
	if err != nil {
		log.Fatal(err)
	}
	player := tracker.NewPlayer(broker, pool, cfg.Audio.SampleRate, cfg.Audio.Lookahead, metrics)

	var rendered mixseq.AudioBuffer
	if *render > 0 {
		rendered = renderOffline(model, player, broker, cfg.Audio, *render)
	} else {
		playRealtime(model, player, broker, cfg.Audio, logger)
	}

	retval := 0
	if *output != "" {
		if err := writeWav(*output, rendered, cfg.Audio.SampleRate, *pcm); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
	}
	if *report {
		err := cmd.WriteReport(os.Stdout, cmd.Report{
			Graph:   model.Graph(),
			Status:  model.Status(),
			Samples: model.Bank().Entries(),
			Frames:  len(rendered),
			Rate:    cfg.Audio.SampleRate,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not write the report: %v\n", err)
			retval = 1
		}
	}
	if err := errors.Join(model.Close(), pool.Dispose(), closeInstruments()); err != nil {
		logger.Error("shutdown failed", "err", err)
		retval = 1
	}
	os.Exit(retval)
}

func loadTemplate(path string) (tracker.SessionTemplate, error) {
	if path == "" {
		return tracker.DefaultSessionTemplate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tracker.SessionTemplate{}, fmt.Errorf("could not read session template: %w", err)
	}
	return tracker.ParseSessionTemplate(data)
}

// fillPool registers the instruments the tracks of g refer to: MIDI
// instruments if a MIDI port is configured, samples from the sample
// directory otherwise. Ids left without an instrument get recorders, so
// that the session can always be played.
func fillPool(cfg config.Config, model *tracker.Model, pool *instrument.Pool, g *mixseq.Graph) (func() error, error) {
	closer := func() error { return nil }
	var maxID mixseq.InstrumentID
	for _, t := range g.Tracks {
		maxID = max(maxID, t.Instrument)
	}
	switch {
	case cfg.MIDI.Port != "":
		send, c, err := cmd.OpenMIDIOutput(cfg.MIDI.Port)
		if err != nil {
			return nil, err
		}
		closer = c.Close
		for mixseq.InstrumentID(pool.Len()) < maxID {
			pool.Add(instrument.NewMIDI(send, uint8(cfg.MIDI.Channel), cfg.Audio.SampleRate))
		}
	case cfg.Session.SampleDir != "":
		fsys := os.DirFS(cfg.Session.SampleDir)
		handles, err := cmd.SampleHandles(fsys, ".")
		if err != nil {
			return nil, err
		}
		// failures are logged and shown as alerts by the model
		model.LoadDirectory(handles, cmd.WavDecoder(fsys))
	}
	for mixseq.InstrumentID(pool.Len()) < maxID {
		pool.Add(instrument.NewRecorder())
	}
	return closer, nil
}

// renderOffline plays the session for d without an audio device, running
// the model loop in between the blocks.
func renderOffline(model *tracker.Model, player *tracker.Player, broker *tracker.Broker, cfg config.AudioConfig, d time.Duration) mixseq.AudioBuffer {
	frames := int(d.Seconds() * float64(cfg.SampleRate))
	ret := make(mixseq.AudioBuffer, 0, frames)
	buf := make(mixseq.AudioBuffer, cfg.BufferFrames())
	model.Play()
	for len(ret) < frames {
		block := buf[:min(len(buf), frames-len(ret))]
		player.Process(block)
		ret = append(ret, block...)
	drain:
		for {
			select {
			case msg := <-broker.ToModel:
				model.ProcessMsg(msg)
			default:
				break drain
			}
		}
	}
	model.Stop()
	return ret
}

// playRealtime plays the session on the audio device until interrupted.
func playRealtime(model *tracker.Model, player *tracker.Player, broker *tracker.Broker, cfg config.AudioConfig, logger *slog.Logger) {
	audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BufferFrames(), cfg.Format == config.FormatFloat32)
	if err != nil {
		log.Fatalf("could not acquire oto AudioContext: %v", err)
	}
	defer audioContext.Close()
	out := audioContext.Play(func(buf mixseq.AudioBuffer) error {
		player.Process(buf)
		return nil
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	model.Post(model.Play)
	logger.Info("playing, press Ctrl+C to stop", "sampleRate", cfg.SampleRate, "buffer", cfg.BufferSize)
	model.Run(ctx)
	model.Stop()
	if err := out.Close(); err != nil {
		logger.Error("audio output failed", "err", err)
	}
}

func writeWav(path string, buf mixseq.AudioBuffer, sampleRate int, pcm16 bool) error {
	wav, err := buf.Wav(sampleRate, pcm16)
	if err != nil {
		return fmt.Errorf("could not generate .wav file: %v", err)
	}
	if err := os.WriteFile(path, wav, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", path, err)
	}
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server failed", "addr", addr, "err", err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "mixseq command line utility for playing step sequencer sessions.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
