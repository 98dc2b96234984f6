package video

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DenseFlowConfig holds Farneback parameters and grid drawing settings
type DenseFlowConfig struct {
	PyrScale   float64
	Levels     int
	WinSize    int
	Iterations int
	PolyN      int
	PolySigma  float64
	// Distance between sampled grid points (pixels)
	Step  int
	Color color.RGBA
}

// DefaultDenseFlowConfig returns Farneback settings of 3 levels halving each time, 15px window
// and a 16px sampling grid drawn in green
func DefaultDenseFlowConfig() DenseFlowConfig {
	return DenseFlowConfig{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
		PolyN:      5,
		PolySigma:  1.2,
		Step:       16,
		Color:      color.RGBA{G: 255, A: 255},
	}
}

// DenseFlow estimates Farneback flow between consecutive frames and draws it as streamlines
// from a regular grid
type DenseFlow struct {
	cfg  DenseFlowConfig
	prev gocv.Mat
	flow gocv.Mat
}

// NewDenseFlow creates renderer. Step must be positive
func NewDenseFlow(cfg DenseFlowConfig) (*DenseFlow, error) {
	if cfg.Step <= 0 {
		return nil, errors.Errorf("Grid step must be positive, got %d", cfg.Step)
	}
	return &DenseFlow{
		cfg:  cfg,
		prev: gocv.NewMat(),
		flow: gocv.NewMat(),
	}, nil
}

// Render computes flow from previous frame to this one and draws it over the frame.
// First frame is returned unchanged.
func (df *DenseFlow) Render(frame image.Image) (*image.RGBA, error) {
	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert frame to Mat")
	}
	defer img.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	if !df.prev.Empty() {
		if df.prev.Rows() != gray.Rows() || df.prev.Cols() != gray.Cols() {
			gray.Close()
			return nil, errors.Errorf("Frame is %dx%d, previous one is %dx%d", img.Cols(), img.Rows(), df.prev.Cols(), df.prev.Rows())
		}
		gocv.CalcOpticalFlowFarneback(df.prev, gray, &df.flow,
			df.cfg.PyrScale, df.cfg.Levels, df.cfg.WinSize, df.cfg.Iterations, df.cfg.PolyN, df.cfg.PolySigma, 0)
		df.drawGrid(&img)
	}
	df.prev.Close()
	df.prev = gray

	out, err := img.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert rendered Mat")
	}
	return toRGBA(out), nil
}

// drawGrid draws line from every grid point to where it moved, with a dot at the grid point
func (df *DenseFlow) drawGrid(img *gocv.Mat) {
	step := df.cfg.Step
	for y := step / 2; y < df.flow.Rows(); y += step {
		for x := step / 2; x < df.flow.Cols(); x += step {
			fx, fy := df.FlowAt(x, y)
			from := image.Pt(x, y)
			to := image.Pt(int(float64(x)+fx+0.5), int(float64(y)+fy+0.5))
			gocv.Line(img, from, to, df.cfg.Color, 1)
			gocv.Circle(img, from, 1, df.cfg.Color, -1)
		}
	}
}

// FlowAt returns displacement of pixel (x, y) found on the last Render. Zero before the second frame
func (df *DenseFlow) FlowAt(x, y int) (float64, float64) {
	if df.flow.Empty() || x < 0 || y < 0 || x >= df.flow.Cols() || y >= df.flow.Rows() {
		return 0, 0
	}
	v := df.flow.GetVecfAt(y, x)
	return float64(v[0]), float64(v[1])
}

// Close releases Mats
func (df *DenseFlow) Close() error {
	if err := df.prev.Close(); err != nil {
		return err
	}
	return df.flow.Close()
}
