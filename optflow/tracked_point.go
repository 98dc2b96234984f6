package optflow

import (
	"image/color"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Status is lifecycle state of tracked point
type Status uint8

const (
	StatusActive Status = iota
	StatusLost
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusLost:
		return "lost"
	default:
		return "unknown"
	}
}

// TrackedPoint is a single corner followed across frames together with its recent positions
type TrackedPoint struct {
	id                    uuid.UUID
	current               Point
	predictedNextPosition Point
	trail                 []Point
	maxTrailLen           int
	status                Status
	color                 color.RGBA
	// optional, used for predicting initial guess of the next position
	tracker *kalman_filter.Kalman2D
}

// NewTrackedPoint creates active point with fresh identifier. Zero maxTrailLen means unbounded trail.
func NewTrackedPoint(position Point, maxTrailLen int) *TrackedPoint {
	id := uuid.New()
	capacity := maxTrailLen
	if capacity <= 0 {
		capacity = 16
	}
	point := TrackedPoint{
		id:                    id,
		current:               position,
		predictedNextPosition: position,
		trail:                 make([]Point, 0, capacity),
		maxTrailLen:           maxTrailLen,
		status:                StatusActive,
		color:                 ColorFor(id),
	}
	point.trail = append(point.trail, position)
	return &point
}

// NewTrackedPointWithPrediction creates point which also runs 2D Kalman filter over its positions
func NewTrackedPointWithPrediction(position Point, maxTrailLen int) *TrackedPoint {
	point := NewTrackedPoint(position, maxTrailLen)

	/* Kalman filter props */
	dt := 1.0
	ux := 0.0
	uy := 0.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	point.tracker = kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(position.X, position.Y))
	return point
}

// ID returns point's identifier
func (point *TrackedPoint) ID() uuid.UUID {
	return point.id
}

// Current returns point's last known position
func (point *TrackedPoint) Current() Point {
	return point.current
}

// Trail returns point's recent positions, most recent last. Be careful: this is not copy of trail, but reference to it
func (point *TrackedPoint) Trail() []Point {
	return point.trail
}

// MaxTrailLen returns point's max trail length (zero is unbounded)
func (point *TrackedPoint) MaxTrailLen() int {
	return point.maxTrailLen
}

// Status returns point's lifecycle state
func (point *TrackedPoint) Status() Status {
	return point.status
}

// Color returns point's drawing color assigned at creation
func (point *TrackedPoint) Color() color.RGBA {
	return point.color
}

// PredictNextPosition returns expected position in the next frame.
// Without Kalman filter it is the current position.
func (point *TrackedPoint) PredictNextPosition() Point {
	if point.tracker == nil {
		point.predictedNextPosition = point.current
		return point.predictedNextPosition
	}
	point.tracker.Predict()
	stateX, stateY := point.tracker.GetState()
	point.predictedNextPosition.X = stateX
	point.predictedNextPosition.Y = stateY
	return point.predictedNextPosition
}

// Update moves point to its new position and extends trail
func (point *TrackedPoint) Update(position Point) error {
	if point.tracker != nil {
		err := point.tracker.Update(position.X, position.Y)
		if err != nil {
			return errors.Wrap(err, "Can't update point motion model")
		}
	}
	point.current = position
	point.trail = append(point.trail, position)
	if point.maxTrailLen > 0 && len(point.trail) > point.maxTrailLen {
		point.trail = point.trail[1:]
	}
	return nil
}

// Lose marks point as lost. Lost point is never updated again.
func (point *TrackedPoint) Lose() {
	point.status = StatusLost
}
