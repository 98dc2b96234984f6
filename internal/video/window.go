package video

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	keyEscape = 27
	keyQuit   = 'q'
)

// WindowSink shows frames in a HighGUI window
type WindowSink struct {
	window *gocv.Window
	quit   bool
}

// NewWindowSink creates window with given title
func NewWindowSink(title string) *WindowSink {
	return &WindowSink{
		window: gocv.NewWindow(title),
	}
}

// Write shows frame and polls keyboard
func (sink *WindowSink) Write(frame image.Image) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return errors.Wrap(err, "Can't convert frame to Mat")
	}
	defer mat.Close()
	sink.window.IMShow(mat)
	key := sink.window.WaitKey(1)
	if key == keyEscape || key == keyQuit {
		sink.quit = true
	}
	return nil
}

// Quit reports whether user asked to stop ('q' or ESC pressed)
func (sink *WindowSink) Quit() bool {
	return sink.quit
}

// Close destroys window
func (sink *WindowSink) Close() error {
	return sink.window.Close()
}
