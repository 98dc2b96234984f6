package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/optflow-go/internal/config"
	"github.com/LdDl/optflow-go/internal/imageseq"
	"github.com/LdDl/optflow-go/internal/log"
	"github.com/LdDl/optflow-go/internal/pipeline"
	"github.com/LdDl/optflow-go/internal/video"
	"github.com/LdDl/optflow-go/optflow"
	"github.com/LdDl/optflow-go/render"
	"github.com/pkg/errors"
)

var (
	deviceID   = flag.Int("device", 0, "Camera device id (used when -input is empty)")
	inputPath  = flag.String("input", "", "Video file or directory of images to read instead of camera")
	outputDir  = flag.String("output", "", "Directory to write rendered frames to as PNG files")
	configPath = flag.String("config", "", "JSON tuning file (optional)")
	mirror     = flag.Bool("mirror", false, "Flip camera frames horizontally")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	trailsCSV  = flag.String("trails-csv", "", "Write trails of active points to this CSV file on exit")
	maxFrames  = flag.Int("max-frames", 0, "Stop after this many frames (0 = no limit)")
	headless   = flag.Bool("headless", false, "Do not open preview window")
	mode       = flag.String("mode", modeLK, "Flow mode: lk (sparse points with trails) or dense (Farneback grid)")
)

const (
	modeLK    = "lk"
	modeDense = "dense"
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error("optical flow tracking failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	switch *mode {
	case modeLK:
		return runSparse(ctx)
	case modeDense:
		return runDense(ctx)
	default:
		return errors.Errorf("Unknown mode '%s', expected '%s' or '%s'", *mode, modeLK, modeDense)
	}
}

func runDense(ctx context.Context) error {
	dense, err := video.NewDenseFlow(video.DefaultDenseFlowConfig())
	if err != nil {
		return err
	}
	defer dense.Close()

	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	sink, _, err := openSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	log.Info("starting dense optical flow", "input", describeInput())
	p := pipeline.New(nil, nil,
		pipeline.WithMaxFrames(*maxFrames),
		pipeline.WithLogger(log.L()),
	)
	stats, err := p.RunRenderer(ctx, src, sink, dense)
	log.Info("dense flow finished", "frames", stats.Frames)
	return err
}

func runSparse(ctx context.Context) error {
	cfg := optflow.DefaultConfig()
	if *configPath != "" {
		tuning, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return errors.Wrap(err, "Can't load tuning config")
		}
		cfg = tuning.Apply(cfg)
	}

	state, err := optflow.NewTrackState(cfg, optflow.WithLogger(log.With("component", "track_state")))
	if err != nil {
		return err
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	sink, overlayFactory, err := openSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	log.Info("starting optical flow tracking",
		"input", describeInput(),
		"max_corners", cfg.Corners.MaxCorners,
		"win_size", cfg.Tracker.WinSize,
		"max_level", cfg.Tracker.MaxLevel,
	)

	p := pipeline.New(state, render.NewTrailRenderer(render.DefaultTrailStyle()),
		pipeline.WithOverlayFactory(overlayFactory),
		pipeline.WithMaxFrames(*maxFrames),
		pipeline.WithLogger(log.L()),
	)
	defer p.Close()
	stats, runErr := p.Run(ctx, src, sink)
	log.Info("tracking finished", "frames", stats.Frames, "seeded", stats.Seeded, "lost", stats.Lost, "active", len(state.Points()))

	if *trailsCSV != "" {
		if err := writeTrails(*trailsCSV, state.Points()); err != nil {
			if runErr == nil {
				return err
			}
			log.Error("can't write trails", "error", err)
		}
	}
	return runErr
}

func describeInput() string {
	if *inputPath != "" {
		return *inputPath
	}
	return "camera"
}

func openSource() (pipeline.Source, error) {
	if *inputPath == "" {
		return video.OpenDevice(*deviceID, *mirror)
	}
	info, err := os.Stat(*inputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't access input '%s'", *inputPath)
	}
	if info.IsDir() {
		return imageseq.Open(*inputPath)
	}
	return video.OpenFile(*inputPath, *mirror)
}

// openSink picks output and the overlay kind that suits it
func openSink() (pipeline.Sink, pipeline.OverlayFactory, error) {
	sinks := multiSink{}
	overlayFactory := pipeline.NewImageOverlay
	if !*headless {
		sinks = append(sinks, video.NewWindowSink("Optical Flow"))
		overlayFactory = func(width, height int) pipeline.Overlay {
			return video.NewMatCanvas(width, height)
		}
	}
	if *outputDir != "" {
		seq, err := imageseq.Create(*outputDir)
		if err != nil {
			sinks.Close()
			return nil, nil, err
		}
		sinks = append(sinks, seq)
	}
	if len(sinks) == 0 {
		return nil, nil, errors.New("Nothing to output: use -output or drop -headless")
	}
	return sinks, overlayFactory, nil
}

func writeTrails(path string, points []*optflow.TrackedPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	if err := optflow.WriteTrailsCSV(file, points); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
