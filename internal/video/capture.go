// Package video connects tracking loop to OpenCV: camera and file capture, preview window
// and Mat-backed drawing canvas.
package video

import (
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CaptureSource reads frames from camera device or video file
type CaptureSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	flipped gocv.Mat
	mirror  bool
	// last frame handed out by Read
	last *gocv.Mat
}

// OpenDevice opens camera with given device id
func OpenDevice(deviceID int, mirror bool) (*CaptureSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open video capture device %d", deviceID)
	}
	return newCaptureSource(capture, mirror)
}

// OpenFile opens video file
func OpenFile(path string, mirror bool) (*CaptureSource, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open video file '%s'", path)
	}
	return newCaptureSource(capture, mirror)
}

func newCaptureSource(capture *gocv.VideoCapture, mirror bool) (*CaptureSource, error) {
	if !capture.IsOpened() {
		capture.Close()
		return nil, ErrNotOpen
	}
	return &CaptureSource{
		capture: capture,
		frame:   gocv.NewMat(),
		flipped: gocv.NewMat(),
		mirror:  mirror,
	}, nil
}

// Read grabs next frame. Returns io.EOF when stream is over.
func (src *CaptureSource) Read() (image.Image, error) {
	src.last = nil
	if ok := src.capture.Read(&src.frame); !ok || src.frame.Empty() {
		return nil, io.EOF
	}
	frame := &src.frame
	if src.mirror {
		// Horizontal flip, like looking in a mirror
		gocv.Flip(src.frame, &src.flipped, 1)
		frame = &src.flipped
	}
	src.last = frame
	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert captured frame")
	}
	return img, nil
}

// Gray returns grayscale version of the frame returned by last Read, converted by OpenCV
func (src *CaptureSource) Gray() (*image.Gray, error) {
	if src.last == nil {
		return nil, ErrEmptyMat
	}
	return GrayFromMat(*src.last)
}

// Close releases capture device and buffers
func (src *CaptureSource) Close() error {
	src.frame.Close()
	src.flipped.Close()
	return src.capture.Close()
}
