package counter

import (
	"math"

	"github.com/ayusman/turnstile/internal/tracker"
)

// Config holds configuration options for the line counter.
type Config struct {
	// MinCrossingDistance is the minimum movement in pixels between two
	// sightings for a side change to count; filters detection jitter.
	MinCrossingDistance float64

	// CrossingResetDistance is how far from the line a counted track must
	// travel before it is re-armed for another crossing.
	CrossingResetDistance float64

	// LostFrameThreshold is the number of frames a track may go unseen
	// before its counting state is purged.
	LostFrameThreshold int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinCrossingDistance:   2,
		CrossingResetDistance: 20,
		LostFrameThreshold:    30,
	}
}

// Event is one counted crossing, with the cumulative totals at the moment
// it happened. Events are immutable once appended to the history.
type Event struct {
	Timestamp  float64   `json:"timestamp"`
	TrackID    int       `json:"track_id"`
	Direction  Direction `json:"direction"`
	TotalEnter int       `json:"total_enter"`
	TotalExit  int       `json:"total_exit"`
}

// record is the counter's private per-track state. It shadows a track id
// without ever reading or mutating the tracker's own entity, so the two
// components share no state and age out independently.
type record struct {
	centerX, centerY float64
	side             Direction
	counted          bool
	framesSinceSeen  int
}

// LineCounter consumes active tracks per frame and maintains cumulative
// enter/exit counts plus an append-only event log. It is not safe for
// concurrent use; callers must serialize Update calls per instance and use
// one instance per stream.
type LineCounter struct {
	line    Line
	config  Config
	records map[int]*record

	totalEnter int
	totalExit  int
	occupancy  int

	history []Event
}

// New creates a LineCounter for the given line. Zero-valued config fields
// are filled in from DefaultConfig.
func New(line Line, config Config) *LineCounter {
	defaults := DefaultConfig()
	if config.MinCrossingDistance <= 0 {
		config.MinCrossingDistance = defaults.MinCrossingDistance
	}
	if config.CrossingResetDistance <= 0 {
		config.CrossingResetDistance = defaults.CrossingResetDistance
	}
	if config.LostFrameThreshold <= 0 {
		config.LostFrameThreshold = defaults.LostFrameThreshold
	}

	return &LineCounter{
		line:    line,
		config:  config,
		records: make(map[int]*record),
	}
}

// Line returns the counting line.
func (c *LineCounter) Line() Line {
	return c.line
}

// Update processes one frame of active tracks and returns the cumulative
// totals. timestamp is the frame time in seconds and is recorded on any
// events the frame produces.
func (c *LineCounter) Update(tracks []tracker.Track, timestamp float64) (totalEnter, totalExit, occupancy int) {
	for _, rec := range c.records {
		rec.framesSinceSeen++
	}

	for _, track := range tracks {
		cx, cy := track.Box.Center()
		side := c.line.Side(cx, cy)

		rec, known := c.records[track.ID]
		if !known {
			// First sighting: establish a baseline, emit nothing.
			c.records[track.ID] = &record{
				centerX: cx,
				centerY: cy,
				side:    side,
			}
			continue
		}

		moved := math.Hypot(cx-rec.centerX, cy-rec.centerY)

		if side != rec.side {
			// Crossing candidate. Count it unless this track is still in
			// a counted episode or barely moved (jitter).
			if !rec.counted && moved >= c.config.MinCrossingDistance {
				c.count(track.ID, side, timestamp)
				rec.counted = true
			}
		} else if rec.counted {
			// Re-arm only after sustained departure from the line. A track
			// oscillating back and forth within CrossingResetDistance stays
			// counted and produces no further events.
			lineDist := math.Abs(c.line.SignedDistance(cx, cy))
			if lineDist > c.config.CrossingResetDistance && moved >= c.config.MinCrossingDistance {
				rec.counted = false
			}
		}

		rec.centerX = cx
		rec.centerY = cy
		rec.side = side
		rec.framesSinceSeen = 0
	}

	for id, rec := range c.records {
		if rec.framesSinceSeen >= c.config.LostFrameThreshold {
			delete(c.records, id)
		}
	}

	return c.totalEnter, c.totalExit, c.occupancy
}

// count applies one crossing in the given direction and appends its event.
func (c *LineCounter) count(trackID int, direction Direction, timestamp float64) {
	if direction == DirectionEnter {
		c.totalEnter++
		c.occupancy++
	} else {
		c.totalExit++
		if c.occupancy > 0 {
			c.occupancy--
		}
	}

	c.history = append(c.history, Event{
		Timestamp:  timestamp,
		TrackID:    trackID,
		Direction:  direction,
		TotalEnter: c.totalEnter,
		TotalExit:  c.totalExit,
	})
}

// Totals returns the cumulative counts without advancing a frame.
func (c *LineCounter) Totals() (totalEnter, totalExit, occupancy int) {
	return c.totalEnter, c.totalExit, c.occupancy
}

// History returns a copy of the accumulated event log, oldest first.
func (c *LineCounter) History() []Event {
	history := make([]Event, len(c.history))
	copy(history, c.history)
	return history
}

// Reset clears the per-track counted flags only. Counts and history are
// untouched; this exists for tooling and debugging.
func (c *LineCounter) Reset() {
	for _, rec := range c.records {
		rec.counted = false
	}
}
