package tracker

import "github.com/ayusman/turnstile/internal/detector"

// Config holds configuration options for the tracker.
type Config struct {
	// MaxAge is the number of frames a track may go unmatched before it
	// is discarded.
	MaxAge int

	// MinHits is the number of successful matches required before a track
	// appears in the active output.
	MinHits int

	// IoUThreshold is the minimum IoU for a (track, detection) pair to be
	// considered a match candidate.
	IoUThreshold float64

	// TrackThresh is the minimum confidence for a detection to participate
	// in tracking at all.
	TrackThresh float64

	// HighThresh separates high-confidence detections, which can create
	// new tracks, from low-confidence ones, which can only sustain
	// existing lost tracks.
	HighThresh float64

	// MatchThresh is a reserved policy knob kept for configuration
	// compatibility; it is not consulted by the current matcher.
	MatchThresh float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxAge:       30,
		MinHits:      3,
		IoUThreshold: 0.3,
		TrackThresh:  0.5,
		HighThresh:   0.6,
		MatchThresh:  0.8,
	}
}

// Tracker owns the set of live tracks and drives per-frame association in
// two confidence tiers. It is not safe for concurrent use; callers must
// serialize Update calls per instance and use one instance per stream.
type Tracker struct {
	config     Config
	tracked    []*Track
	lost       []*Track
	nextID     int
	frameCount int
}

// New creates a new Tracker with the given configuration. Zero-valued
// fields are filled in from DefaultConfig.
func New(config Config) *Tracker {
	defaults := DefaultConfig()
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}
	if config.MinHits <= 0 {
		config.MinHits = defaults.MinHits
	}
	if config.IoUThreshold <= 0 {
		config.IoUThreshold = defaults.IoUThreshold
	}
	if config.TrackThresh <= 0 {
		config.TrackThresh = defaults.TrackThresh
	}
	if config.HighThresh <= 0 {
		config.HighThresh = defaults.HighThresh
	}
	if config.MatchThresh <= 0 {
		config.MatchThresh = defaults.MatchThresh
	}

	return &Tracker{
		config: config,
		nextID: 1,
	}
}

// Update advances the tracker by one frame of detections and returns the
// active tracks: confirmed, currently-tracked identities whose hit count
// has reached MinHits. The returned slice holds snapshot copies.
func (t *Tracker) Update(detections []detector.Detection) []Track {
	t.frameCount++

	// Tier split: high-confidence detections may create and sustain
	// tracks, low-confidence ones may only revive lost tracks.
	var highDets, lowDets []detector.Detection
	for _, det := range detections {
		switch {
		case det.Conf >= t.config.HighThresh:
			highDets = append(highDets, det)
		case det.Conf >= t.config.TrackThresh:
			lowDets = append(lowDets, det)
		}
	}

	// Everything not matched this frame ages by one.
	for _, track := range t.tracked {
		track.TimeSinceUpdate++
	}
	for _, track := range t.lost {
		track.TimeSinceUpdate++
	}

	// First association: high-confidence detections against tracked tracks.
	matches, unmatchedTracks, unmatchedDets := Associate(boxesOf(t.tracked), highDets, t.config.IoUThreshold)

	for _, m := range matches {
		det := highDets[m.DetIdx]
		t.tracked[m.TrackIdx].update(det.Box, det.Conf)
	}

	var stillTracked []*Track
	for _, track := range t.tracked {
		if track.TimeSinceUpdate == 0 {
			stillTracked = append(stillTracked, track)
		}
	}
	for _, idx := range unmatchedTracks {
		track := t.tracked[idx]
		if track.TimeSinceUpdate > t.config.MaxAge {
			continue // discarded
		}
		track.State = StateLost
		t.lost = append(t.lost, track)
	}
	t.tracked = stillTracked

	// Fresh identities for unmatched high-confidence detections.
	for _, idx := range unmatchedDets {
		det := highDets[idx]
		t.tracked = append(t.tracked, newTrack(t.nextID, det.Box, det.Conf))
		t.nextID++
	}

	// Second association: low-confidence detections against lost tracks.
	lowMatches, _, _ := Associate(boxesOf(t.lost), lowDets, t.config.IoUThreshold)

	revived := make(map[int]bool, len(lowMatches))
	for _, m := range lowMatches {
		track := t.lost[m.TrackIdx]
		det := lowDets[m.DetIdx]
		track.update(det.Box, det.Conf)
		track.State = StateTracked
		t.tracked = append(t.tracked, track)
		revived[m.TrackIdx] = true
	}

	var stillLost []*Track
	for idx, track := range t.lost {
		if revived[idx] {
			continue
		}
		if track.TimeSinceUpdate > t.config.MaxAge {
			continue // grace period exceeded
		}
		stillLost = append(stillLost, track)
	}
	t.lost = stillLost

	return t.activeTracks()
}

// activeTracks returns snapshot copies of confirmed tracked tracks.
func (t *Tracker) activeTracks() []Track {
	active := make([]Track, 0, len(t.tracked))
	for _, track := range t.tracked {
		if track.Hits >= t.config.MinHits {
			active = append(active, *track)
		}
	}
	return active
}

// FrameCount returns the number of Update calls processed so far.
func (t *Tracker) FrameCount() int {
	return t.frameCount
}

// boxesOf collects the current boxes of a track pool.
func boxesOf(tracks []*Track) []detector.Box {
	if len(tracks) == 0 {
		return nil
	}
	boxes := make([]detector.Box, len(tracks))
	for i, track := range tracks {
		boxes[i] = track.Box
	}
	return boxes
}
