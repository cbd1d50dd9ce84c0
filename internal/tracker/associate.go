package tracker

import (
	"sort"

	"github.com/ayusman/turnstile/internal/detector"
)

// Match pairs a track index with a detection index.
type Match struct {
	TrackIdx int
	DetIdx   int
}

// IoU returns the intersection-over-union of two boxes. Non-overlapping
// pairs and pairs with zero union area score 0.
func IoU(a, b detector.Box) float64 {
	interX1 := a.X1
	if b.X1 > interX1 {
		interX1 = b.X1
	}
	interY1 := a.Y1
	if b.Y1 > interY1 {
		interY1 = b.Y1
	}
	interX2 := a.X2
	if b.X2 < interX2 {
		interX2 = b.X2
	}
	interY2 := a.Y2
	if b.Y2 < interY2 {
		interY2 = b.Y2
	}

	if interX2 < interX1 || interY2 < interY1 {
		return 0
	}

	interArea := (interX2 - interX1) * (interY2 - interY1)
	unionArea := a.Area() + b.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}

// candidate is a (track, detection) pair above the IoU threshold.
type candidate struct {
	trackIdx int
	detIdx   int
	iou      float64
}

// Associate partitions tracks and detections into matched pairs, unmatched
// track indices and unmatched detection indices by spatial overlap.
//
// All pairs with IoU at or above the threshold are candidates; candidates
// are taken greedily in order of descending IoU, ties broken by enumeration
// order (track index, then detection index). The result is approximate
// rather than globally optimal, which is an accepted tradeoff for per-frame
// speed; replacing it with an optimal assignment changes the output in
// ambiguous-overlap cases.
func Associate(trackBoxes []detector.Box, detections []detector.Detection, iouThreshold float64) (matches []Match, unmatchedTracks, unmatchedDets []int) {
	if len(trackBoxes) == 0 {
		unmatchedDets = make([]int, len(detections))
		for i := range detections {
			unmatchedDets[i] = i
		}
		return nil, nil, unmatchedDets
	}

	if len(detections) == 0 {
		unmatchedTracks = make([]int, len(trackBoxes))
		for i := range trackBoxes {
			unmatchedTracks[i] = i
		}
		return nil, unmatchedTracks, nil
	}

	var candidates []candidate
	for t, box := range trackBoxes {
		for d, det := range detections {
			if iou := IoU(box, det.Box); iou >= iouThreshold {
				candidates = append(candidates, candidate{trackIdx: t, detIdx: d, iou: iou})
			}
		}
	}

	// Stable sort preserves (track, detection) enumeration order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].iou > candidates[j].iou
	})

	trackTaken := make([]bool, len(trackBoxes))
	detTaken := make([]bool, len(detections))

	for _, c := range candidates {
		if trackTaken[c.trackIdx] || detTaken[c.detIdx] {
			continue
		}
		trackTaken[c.trackIdx] = true
		detTaken[c.detIdx] = true
		matches = append(matches, Match{TrackIdx: c.trackIdx, DetIdx: c.detIdx})
	}

	for t := range trackBoxes {
		if !trackTaken[t] {
			unmatchedTracks = append(unmatchedTracks, t)
		}
	}
	for d := range detections {
		if !detTaken[d] {
			unmatchedDets = append(unmatchedDets, d)
		}
	}

	return matches, unmatchedTracks, unmatchedDets
}
