// Package tracker assigns stable identities to per-frame detections using
// two-tier IoU association in the style of ByteTrack.
package tracker

import "github.com/ayusman/turnstile/internal/detector"

// State represents the lifecycle state of a track.
type State int

const (
	// StateTracked means the track was matched this frame or recently.
	StateTracked State = iota
	// StateLost means the track went unmatched but is within its grace period.
	StateLost
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateTracked:
		return "tracked"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// HistoryCap is the maximum number of center points retained per track.
const HistoryCap = 30

// Point is a track center position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Track is a persistent identity assigned to a sequence of detections
// believed to be the same person. Tracks are owned by the Tracker; the
// values returned from Update are snapshots.
type Track struct {
	// ID is unique within one Tracker's lifetime and never reused.
	ID int

	// Box is the most recent matched bounding box.
	Box detector.Box

	// Conf is the confidence of the most recent matched detection.
	Conf float64

	// Hits is the number of successful matches since creation. It keeps
	// accumulating across a lost-and-reactivated episode.
	Hits int

	// TimeSinceUpdate is the number of frames since the last successful match.
	TimeSinceUpdate int

	// State is the current lifecycle state.
	State State

	// history is a fixed-capacity ring of recent center points; the oldest
	// entry is evicted when full.
	history [HistoryCap]Point
	histLen int
	histPos int
}

// newTrack creates a track from its first detection.
func newTrack(id int, box detector.Box, conf float64) *Track {
	t := &Track{
		ID:    id,
		Box:   box,
		Conf:  conf,
		Hits:  1,
		State: StateTracked,
	}
	t.pushCenter()
	return t
}

// update records a successful match with a new detection.
func (t *Track) update(box detector.Box, conf float64) {
	t.Box = box
	t.Conf = conf
	t.Hits++
	t.TimeSinceUpdate = 0
	t.pushCenter()
}

// pushCenter appends the current box center to the history ring.
func (t *Track) pushCenter() {
	x, y := t.Box.Center()
	t.history[t.histPos] = Point{X: x, Y: y}
	t.histPos = (t.histPos + 1) % HistoryCap
	if t.histLen < HistoryCap {
		t.histLen++
	}
}

// History returns the retained center points, oldest first.
func (t *Track) History() []Point {
	points := make([]Point, t.histLen)
	start := t.histPos - t.histLen
	if start < 0 {
		start += HistoryCap
	}
	for i := 0; i < t.histLen; i++ {
		points[i] = t.history[(start+i)%HistoryCap]
	}
	return points
}
