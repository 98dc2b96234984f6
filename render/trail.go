package render

import (
	"github.com/LdDl/optflow-go/optflow"
	"github.com/google/uuid"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	LineThickness int
	MarkerRadius  int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineThickness: 2,
		MarkerRadius:  5,
	}
}

// TrailRenderer draws point trails on an accumulating overlay. It remembers how far
// each trail was already drawn, so every segment lands on the overlay exactly once.
type TrailRenderer struct {
	style TrailStyle
	drawn map[uuid.UUID]optflow.Point
}

// NewTrailRenderer creates renderer with given style
func NewTrailRenderer(style TrailStyle) *TrailRenderer {
	return &TrailRenderer{
		style: style,
		drawn: make(map[uuid.UUID]optflow.Point),
	}
}

// Style returns renderer's style
func (r *TrailRenderer) Style() TrailStyle {
	return r.style
}

// DrawTrail draws complete trail of point and a marker at its current position.
// Trail of length 1 gives marker only. Use it for canvases redrawn from scratch every frame;
// Accumulate is the incremental form for persistent overlays and leaves the same segments on them.
func (r *TrailRenderer) DrawTrail(canvas Canvas, point *optflow.TrackedPoint) {
	trail := point.Trail()
	clr := point.Color()
	for i := 1; i < len(trail); i++ {
		canvas.Line(trail[i-1].ImagePoint(), trail[i].ImagePoint(), clr, r.style.LineThickness)
	}
	canvas.Circle(point.Current().ImagePoint(), r.style.MarkerRadius, clr)
}

// Accumulate draws on overlay the segments which appeared since previous call.
// Points missing from the list are forgotten. The pipeline uses it together with DrawMarkers
// on the composited frame.
func (r *TrailRenderer) Accumulate(overlay Canvas, points []*optflow.TrackedPoint) {
	alive := make(map[uuid.UUID]struct{}, len(points))
	for _, point := range points {
		id := point.ID()
		alive[id] = struct{}{}
		current := point.Current()
		last, ok := r.drawn[id]
		if ok && last != current {
			overlay.Line(last.ImagePoint(), current.ImagePoint(), point.Color(), r.style.LineThickness)
		}
		r.drawn[id] = current
	}
	for id := range r.drawn {
		if _, ok := alive[id]; !ok {
			delete(r.drawn, id)
		}
	}
}

// DrawMarkers draws marker at current position of every point
func (r *TrailRenderer) DrawMarkers(canvas Canvas, points []*optflow.TrackedPoint) {
	for _, point := range points {
		canvas.Circle(point.Current().ImagePoint(), r.style.MarkerRadius, point.Color())
	}
}

// Reset forgets drawing progress of every trail
func (r *TrailRenderer) Reset() {
	r.drawn = make(map[uuid.UUID]optflow.Point)
}
