package pipeline

import (
	"context"
	"image"
	"io"
	"testing"

	"github.com/LdDl/optflow-go/optflow"
	"github.com/LdDl/optflow-go/render"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareFrame is a bright square on a dark background
func squareFrame(width, height, x, y, side int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 20
	}
	for row := y; row < y+side; row++ {
		for col := x; col < x+side; col++ {
			img.Pix[row*img.Stride+col] = 200
		}
	}
	return img
}

type sliceSource struct {
	frames []image.Image
	next   int
	err    error
}

func (src *sliceSource) Read() (image.Image, error) {
	if src.next >= len(src.frames) {
		if src.err != nil {
			return nil, src.err
		}
		return nil, io.EOF
	}
	frame := src.frames[src.next]
	src.next++
	return frame, nil
}

func (src *sliceSource) Close() error { return nil }

// graySliceSource also converts frames on its own
type graySliceSource struct {
	sliceSource
	grayCalls int
}

func (src *graySliceSource) Gray() (*image.Gray, error) {
	src.grayCalls++
	return optflow.ToGray(src.frames[src.next-1]), nil
}

type collectSink struct {
	frames []image.Image
	quitAt int
	closed bool
}

func (sink *collectSink) Write(frame image.Image) error {
	sink.frames = append(sink.frames, frame)
	return nil
}

func (sink *collectSink) Quit() bool {
	return sink.quitAt > 0 && len(sink.frames) >= sink.quitAt
}

func (sink *collectSink) Close() error {
	sink.closed = true
	return nil
}

func movingSquare(n int) []image.Image {
	frames := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, squareFrame(100, 100, 40+i, 40, 20))
	}
	return frames
}

func newPipeline(opts ...Option) *Pipeline {
	return New(optflow.NewTrackStateDefault(), render.NewTrailRenderer(render.DefaultTrailStyle()), opts...)
}

func TestRunToEndOfStream(t *testing.T) {
	p := newPipeline()
	src := &sliceSource{frames: movingSquare(5)}
	sink := &collectSink{}

	stats, err := p.Run(context.Background(), src, sink)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Frames)
	assert.Greater(t, stats.Seeded, 0)
	require.Len(t, sink.frames, 5)
	assert.Equal(t, 5, p.State().FrameCount())

	last := sink.frames[len(sink.frames)-1].(*image.RGBA)
	assert.Equal(t, image.Rect(0, 0, 100, 100), last.Bounds())
	for _, point := range p.State().Points() {
		pos := point.Current().ImagePoint()
		assert.Equal(t, point.Color(), last.RGBAAt(pos.X, pos.Y), "marker at current position")
	}
}

func TestRunMaxFrames(t *testing.T) {
	p := newPipeline(WithMaxFrames(2))
	stats, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(5)}, &collectSink{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Frames)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline()
	sink := &collectSink{}
	stats, err := p.Run(ctx, &sliceSource{frames: movingSquare(3)}, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Frames)
	assert.Empty(t, sink.frames)
}

func TestRunQuit(t *testing.T) {
	p := newPipeline()
	sink := &collectSink{quitAt: 1}
	stats, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(3)}, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Frames)
}

func TestRunSourceError(t *testing.T) {
	readErr := errors.New("device unplugged")
	p := newPipeline()
	stats, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(2), err: readErr}, &collectSink{})
	require.Error(t, err)
	assert.Equal(t, readErr, errors.Cause(err))
	assert.Equal(t, 2, stats.Frames)
}

func TestRunDimensionMismatch(t *testing.T) {
	frames := []image.Image{
		squareFrame(100, 100, 40, 40, 20),
		squareFrame(80, 100, 40, 40, 20),
	}
	p := newPipeline()
	stats, err := p.Run(context.Background(), &sliceSource{frames: frames}, &collectSink{})
	require.Error(t, err)
	assert.Equal(t, optflow.ErrDimensionMismatch, errors.Cause(err))
	assert.Equal(t, 1, stats.Frames)
}

func TestRunUsesSourceGrayscale(t *testing.T) {
	p := newPipeline()
	src := &graySliceSource{sliceSource: sliceSource{frames: movingSquare(3)}}
	stats, err := p.Run(context.Background(), src, &collectSink{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, 3, src.grayCalls)
}

func TestOverlayFactoryCalledOnce(t *testing.T) {
	calls := 0
	factory := func(width, height int) Overlay {
		calls++
		assert.Equal(t, 100, width)
		assert.Equal(t, 100, height)
		return NewImageOverlay(width, height)
	}
	p := newPipeline(WithOverlayFactory(factory))
	_, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(4)}, &collectSink{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

// closingOverlay records whether its resources were released
type closingOverlay struct {
	ImageOverlay
	closed int
}

func (o *closingOverlay) Close() error {
	o.closed++
	return nil
}

func TestCloseReleasesOverlay(t *testing.T) {
	var overlay *closingOverlay
	factory := func(width, height int) Overlay {
		overlay = &closingOverlay{ImageOverlay: ImageOverlay{render.NewImageCanvas(width, height)}}
		return overlay
	}
	p := newPipeline(WithOverlayFactory(factory))
	require.NoError(t, p.Close(), "closing before first frame is a no-op")

	_, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(2)}, &collectSink{})
	require.NoError(t, err)
	require.NotNil(t, overlay)
	assert.Equal(t, 0, overlay.closed)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, overlay.closed)
	require.NoError(t, p.Close())
	assert.Equal(t, 1, overlay.closed, "overlay is released once")
}

func TestClosePureGoOverlay(t *testing.T) {
	p := newPipeline()
	_, err := p.Run(context.Background(), &sliceSource{frames: movingSquare(1)}, &collectSink{})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

// invertRenderer is a FrameRenderer which inverts gray frames
type invertRenderer struct {
	calls int
	err   error
}

func (r *invertRenderer) Render(frame image.Image) (*image.RGBA, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	gray := optflow.ToGray(frame)
	out := image.NewRGBA(gray.Bounds())
	for i, v := range gray.Pix {
		out.Pix[4*i] = 255 - v
		out.Pix[4*i+1] = 255 - v
		out.Pix[4*i+2] = 255 - v
		out.Pix[4*i+3] = 255
	}
	return out, nil
}

func TestRunRenderer(t *testing.T) {
	p := New(nil, nil, WithMaxFrames(3))
	renderer := &invertRenderer{}
	sink := &collectSink{}
	stats, err := p.RunRenderer(context.Background(), &sliceSource{frames: movingSquare(5)}, sink, renderer)
	require.NoError(t, err)
	assert.Equal(t, Stats{Frames: 3}, stats)
	assert.Equal(t, 3, renderer.calls)
	require.Len(t, sink.frames, 3)
	assert.Equal(t, uint8(235), sink.frames[0].(*image.RGBA).Pix[0])
}

func TestRunRendererError(t *testing.T) {
	renderErr := errors.New("flow failed")
	p := New(nil, nil)
	stats, err := p.RunRenderer(context.Background(), &sliceSource{frames: movingSquare(2)}, &collectSink{}, &invertRenderer{err: renderErr})
	assert.Equal(t, renderErr, errors.Cause(err))
	assert.Equal(t, 0, stats.Frames)
}
