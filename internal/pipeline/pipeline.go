// Package pipeline runs the live tracking loop: read frame, track points, draw trails, show result
package pipeline

import (
	"context"
	"image"
	"io"
	"log/slog"

	"github.com/LdDl/optflow-go/optflow"
	"github.com/LdDl/optflow-go/render"
	"github.com/pkg/errors"
)

// Source provides frames. Read returns io.EOF when there are no more frames.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// Sink consumes rendered frames
type Sink interface {
	Write(frame image.Image) error
	Close() error
}

// GraySource is a Source which can convert its last frame to grayscale on its own
type GraySource interface {
	Gray() (*image.Gray, error)
}

// Quitter is a Sink which can ask loop to stop (e.g. key pressed in preview window)
type Quitter interface {
	Quit() bool
}

// Overlay is an accumulating canvas for trails which can be added on top of a frame
type Overlay interface {
	render.Canvas
	Composite(frame image.Image) (*image.RGBA, error)
}

// OverlayFactory creates overlay matching first frame size
type OverlayFactory func(width, height int) Overlay

// ImageOverlay is a pure Go Overlay
type ImageOverlay struct {
	*render.ImageCanvas
}

// NewImageOverlay is an OverlayFactory for ImageOverlay
func NewImageOverlay(width, height int) Overlay {
	return ImageOverlay{render.NewImageCanvas(width, height)}
}

// Composite adds overlay to frame
func (o ImageOverlay) Composite(frame image.Image) (*image.RGBA, error) {
	return render.Composite(frame, o.Img), nil
}

// Stats sums up the run
type Stats struct {
	Frames int
	Seeded int
	Lost   int
}

// Pipeline glues tracking session, trail renderer and frame I/O together
type Pipeline struct {
	state      *optflow.TrackState
	renderer   *render.TrailRenderer
	newOverlay OverlayFactory
	overlay    Overlay
	maxFrames  int
	logger     *slog.Logger
}

// Option customizes Pipeline
type Option func(*Pipeline)

// WithOverlayFactory sets how trail overlay is created. Default is NewImageOverlay
func WithOverlayFactory(factory OverlayFactory) Option {
	return func(p *Pipeline) {
		p.newOverlay = factory
	}
}

// WithMaxFrames stops loop after n frames. Zero means no limit
func WithMaxFrames(n int) Option {
	return func(p *Pipeline) {
		p.maxFrames = n
	}
}

// WithLogger sets logger for progress messages
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates pipeline around given session. State and renderer may be nil when only RunRenderer is used
func New(state *optflow.TrackState, renderer *render.TrailRenderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		state:      state,
		renderer:   renderer,
		newOverlay: NewImageOverlay,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns underlying tracking session
func (p *Pipeline) State() *optflow.TrackState {
	return p.state
}

// FrameRenderer annotates frames on its own, without a tracking session (e.g. dense flow field)
type FrameRenderer interface {
	Render(frame image.Image) (*image.RGBA, error)
}

// Run processes frames until source is exhausted, context is cancelled, sink asks to quit or
// frame limit is reached. Any tracking or I/O error stops the loop and is returned.
func (p *Pipeline) Run(ctx context.Context, src Source, sink Sink) (Stats, error) {
	return p.loop(ctx, src, sink, func(frame image.Image) (*Rendered, error) {
		return p.Step(src, frame)
	})
}

// RunRenderer is Run with tracking and trails replaced by renderer
func (p *Pipeline) RunRenderer(ctx context.Context, src Source, sink Sink, renderer FrameRenderer) (Stats, error) {
	return p.loop(ctx, src, sink, func(frame image.Image) (*Rendered, error) {
		img, err := renderer.Render(frame)
		if err != nil {
			return nil, err
		}
		return &Rendered{Image: img}, nil
	})
}

func (p *Pipeline) loop(ctx context.Context, src Source, sink Sink, step func(frame image.Image) (*Rendered, error)) (Stats, error) {
	stats := Stats{}
	quitter, _ := sink.(Quitter)
	for {
		if ctx.Err() != nil {
			p.logger.Info("interrupted", "frames", stats.Frames)
			return stats, nil
		}
		if p.maxFrames > 0 && stats.Frames >= p.maxFrames {
			return stats, nil
		}
		frame, err := src.Read()
		if err == io.EOF {
			p.logger.Info("end of stream", "frames", stats.Frames)
			return stats, nil
		}
		if err != nil {
			return stats, errors.Wrap(err, "Can't read frame")
		}
		rendered, err := step(frame)
		if err != nil {
			return stats, err
		}
		stats.Frames++
		if rendered.Result != nil {
			stats.Seeded += len(rendered.Result.Seeded)
			stats.Lost += len(rendered.Result.Lost)
		}
		if err := sink.Write(rendered.Image); err != nil {
			return stats, errors.Wrapf(err, "Can't write frame %d", stats.Frames)
		}
		if quitter != nil && quitter.Quit() {
			p.logger.Info("quit requested", "frames", stats.Frames)
			return stats, nil
		}
	}
}

// Close releases trail overlay if it holds resources (e.g. OpenCV Mat)
func (p *Pipeline) Close() error {
	overlay := p.overlay
	p.overlay = nil
	if closer, ok := overlay.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Rendered is a processed frame ready for display
type Rendered struct {
	Image *image.RGBA
	// Nil when frame was not tracked
	Result *optflow.FrameResult
}

// Step tracks points on a single frame and renders trails over it
func (p *Pipeline) Step(src Source, frame image.Image) (*Rendered, error) {
	var result *optflow.FrameResult
	var err error
	if graySrc, ok := src.(GraySource); ok {
		gray, grayErr := graySrc.Gray()
		if grayErr != nil {
			return nil, errors.Wrap(grayErr, "Can't convert frame to grayscale")
		}
		result, err = p.state.ProcessGray(gray)
	} else {
		result, err = p.state.Process(frame)
	}
	if err != nil {
		return nil, err
	}
	if len(result.Seeded) > 0 {
		p.logger.Debug("seeded", "frame", result.Frame, "points", len(result.Seeded))
	}

	if p.overlay == nil {
		bounds := frame.Bounds()
		p.overlay = p.newOverlay(bounds.Dx(), bounds.Dy())
	}
	points := p.state.Points()
	p.renderer.Accumulate(p.overlay, points)
	composited, err := p.overlay.Composite(frame)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't composite frame %d", result.Frame)
	}
	p.renderer.DrawMarkers(render.WrapRGBA(composited), points)
	return &Rendered{Image: composited, Result: result}, nil
}
