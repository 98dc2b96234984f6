package optflow

import (
	"image"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State of tracking session
type State uint8

const (
	// StateEmpty means there are no active points and next frame will be used for seeding
	StateEmpty State = iota
	// StateSeeded means there is at least one active point and a previous frame
	StateSeeded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSeeded:
		return "seeded"
	default:
		return "unknown"
	}
}

// Flow is displacement of a single point between two consecutive frames
type Flow struct {
	ID   uuid.UUID
	From Point
	To   Point
}

// FrameResult summarizes what happened to the session while processing one frame
type FrameResult struct {
	// Sequence number of frame, starting from 1
	Frame int
	// State after processing
	State State
	// Points created on this frame
	Seeded []uuid.UUID
	// Points dropped on this frame
	Lost []uuid.UUID
	// Displacements of points which survived this frame
	Flows []Flow
}

// TrackState is tracking session: it owns previous frame and active points, seeds points
// when there are none and follows them with the flow estimator otherwise. Not safe for concurrent use.
type TrackState struct {
	cfg      Config
	selector *CornerSelector
	tracker  FlowEstimator
	logger   *slog.Logger

	previous *image.Gray
	width    int
	height   int
	points   []*TrackedPoint

	frame     int
	sinceSeed int
}

// Option customizes TrackState
type Option func(*TrackState)

// WithLogger sets logger for session events. Default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TrackState) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFlowEstimator replaces default pyramidal Lucas-Kanade tracker
func WithFlowEstimator(estimator FlowEstimator) Option {
	return func(s *TrackState) {
		if estimator != nil {
			s.tracker = estimator
		}
	}
}

// NewTrackStateDefault creates session with default configuration
func NewTrackStateDefault() *TrackState {
	s, err := NewTrackState(DefaultConfig())
	if err != nil {
		panic("should be impossible: default configuration is invalid: " + err.Error())
	}
	return s
}

// NewTrackState creates session with given configuration
func NewTrackState(cfg Config, opts ...Option) (*TrackState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create tracking session")
	}
	selector, err := NewCornerSelector(cfg.Corners)
	if err != nil {
		return nil, err
	}
	tracker, err := NewPyramidalTracker(cfg.Tracker)
	if err != nil {
		return nil, err
	}
	s := &TrackState{
		cfg:      cfg,
		selector: selector,
		tracker:  tracker,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		points:   make([]*TrackedPoint, 0, cfg.Corners.MaxCorners),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns current state of session
func (s *TrackState) State() State {
	if len(s.points) == 0 {
		return StateEmpty
	}
	return StateSeeded
}

// Points returns active points in creation order. Slice is a copy, points are not.
func (s *TrackState) Points() []*TrackedPoint {
	out := make([]*TrackedPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Previous returns last processed grayscale frame or nil before the first frame
func (s *TrackState) Previous() *image.Gray {
	return s.previous
}

// FrameCount returns number of processed frames
func (s *TrackState) FrameCount() int {
	return s.frame
}

// Config returns session configuration
func (s *TrackState) Config() Config {
	return s.cfg
}

// Process converts frame to grayscale and feeds it to the session
func (s *TrackState) Process(frame image.Image) (*FrameResult, error) {
	return s.ProcessGray(ToGray(frame))
}

// ProcessGray feeds grayscale frame to the session. Frame becomes owned by session.
// Frame size must stay the same for the whole session.
func (s *TrackState) ProcessGray(gray *image.Gray) (*FrameResult, error) {
	bounds := gray.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyFrame
	}
	if s.previous != nil && (bounds.Dx() != s.width || bounds.Dy() != s.height) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "session %dx%d, frame %dx%d", s.width, s.height, bounds.Dx(), bounds.Dy())
	}

	s.frame++
	result := &FrameResult{
		Frame: s.frame,
	}
	if len(s.points) == 0 {
		s.seed(gray, result)
	} else {
		err := s.track(gray, result)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't track points on frame %d", s.frame)
		}
		if len(s.points) == 0 {
			s.logger.Debug("all points lost", "frame", s.frame, "lost", len(result.Lost))
		} else if s.needsReseed() {
			s.replenish(gray, result)
		}
	}

	s.previous = gray
	s.width, s.height = bounds.Dx(), bounds.Dy()
	result.State = s.State()
	return result, nil
}

// seed selects fresh set of points on frame
func (s *TrackState) seed(gray *image.Gray, result *FrameResult) {
	corners := s.selector.Select(gray)
	for _, corner := range corners {
		point := s.newPoint(corner)
		s.points = append(s.points, point)
		result.Seeded = append(result.Seeded, point.ID())
	}
	s.sinceSeed = 0
	s.logger.Debug("seeded points", "frame", s.frame, "count", len(corners))
}

// replenish adds new points which keep minimal distance to the active ones
func (s *TrackState) replenish(gray *image.Gray, result *FrameResult) {
	existing := make([]Point, len(s.points))
	for i, point := range s.points {
		existing[i] = point.Current()
	}
	corners := s.selector.SelectExcluding(gray, existing, s.cfg.Corners.MaxCorners-len(s.points))
	for _, corner := range corners {
		point := s.newPoint(corner)
		s.points = append(s.points, point)
		result.Seeded = append(result.Seeded, point.ID())
	}
	s.sinceSeed = 0
	s.logger.Debug("replenished points", "frame", s.frame, "added", len(corners), "total", len(s.points))
}

func (s *TrackState) needsReseed() bool {
	if len(s.points) >= s.cfg.Corners.MaxCorners {
		return false
	}
	if s.cfg.ReseedInterval > 0 && s.sinceSeed >= s.cfg.ReseedInterval {
		return true
	}
	return s.cfg.MinPoints > 0 && len(s.points) < s.cfg.MinPoints
}

func (s *TrackState) newPoint(position Point) *TrackedPoint {
	if s.cfg.PredictMotion {
		return NewTrackedPointWithPrediction(position, s.cfg.MaxTrailLen)
	}
	return NewTrackedPoint(position, s.cfg.MaxTrailLen)
}

// track follows active points from previous frame into gray and drops the lost ones
func (s *TrackState) track(gray *image.Gray, result *FrameResult) error {
	positions := make([]Point, len(s.points))
	for i, point := range s.points {
		positions[i] = point.Current()
	}
	var guesses []Point
	if s.cfg.PredictMotion {
		guesses = make([]Point, len(s.points))
		for i, point := range s.points {
			guesses[i] = clampToFrame(point.PredictNextPosition(), s.width, s.height)
		}
	}

	tracked, err := s.tracker.TrackWithGuess(s.previous, gray, positions, guesses)
	if err != nil {
		return err
	}
	if len(tracked) != len(s.points) {
		return errors.Errorf("flow estimator returned %d results for %d points", len(tracked), len(s.points))
	}

	lost := make(map[uuid.UUID]struct{})
	for i, point := range s.points {
		if !tracked[i].Found {
			point.Lose()
			lost[point.ID()] = struct{}{}
			continue
		}
		err := point.Update(tracked[i].Position)
		if err != nil {
			return errors.Wrapf(err, "Can't update point with id %s", point.ID().String())
		}
		result.Flows = append(result.Flows, Flow{
			ID:   point.ID(),
			From: positions[i],
			To:   tracked[i].Position,
		})
	}
	s.prune(lost, result)
	s.sinceSeed++
	return nil
}

// prune removes lost points by identifier keeping order of the rest
func (s *TrackState) prune(lost map[uuid.UUID]struct{}, result *FrameResult) {
	if len(lost) == 0 {
		return
	}
	kept := s.points[:0]
	for _, point := range s.points {
		if _, ok := lost[point.ID()]; ok {
			result.Lost = append(result.Lost, point.ID())
			continue
		}
		kept = append(kept, point)
	}
	// Release references to dropped points
	for i := len(kept); i < len(s.points); i++ {
		s.points[i] = nil
	}
	s.points = kept
}

func clampToFrame(p Point, width, height int) Point {
	maxX := float64(width) - 1
	maxY := float64(height) - 1
	if p.X < 0 {
		p.X = 0
	} else if p.X > maxX {
		p.X = maxX
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > maxY {
		p.Y = maxY
	}
	return p
}
