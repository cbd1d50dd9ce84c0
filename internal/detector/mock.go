package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either as a fixed set
// returned on every call or as a per-frame scripted sequence.
type MockDetector struct {
	detections []Detection
	sequence   [][]Detection
	index      int
	err        error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections that will be returned by every Detect call.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.detections = detections
	m.sequence = nil
	m.index = 0
}

// SetSequence sets a per-frame script: call N of Detect returns element N.
// Once the sequence is exhausted, Detect returns no detections.
func (m *MockDetector) SetSequence(sequence [][]Detection) {
	m.sequence = sequence
	m.detections = nil
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if m.index >= len(m.sequence) {
			return nil, nil
		}
		dets := m.sequence[m.index]
		m.index++
		return dets, nil
	}
	return m.detections, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// WalkSequence builds a scripted detection sequence for a person-sized box
// whose center moves in a straight line from (fromX, fromY) to (toX, toY)
// over the given number of frames, one detection per frame.
func WalkSequence(fromX, fromY, toX, toY float64, frames int, conf float64) [][]Detection {
	if frames < 2 {
		frames = 2
	}

	const halfWidth, halfHeight = 20.0, 50.0

	sequence := make([][]Detection, frames)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(frames-1)
		cx := fromX + (toX-fromX)*t
		cy := fromY + (toY-fromY)*t

		sequence[i] = []Detection{{
			Box: Box{
				X1: cx - halfWidth,
				Y1: cy - halfHeight,
				X2: cx + halfWidth,
				Y2: cy + halfHeight,
			},
			Conf: conf,
		}}
	}

	return sequence
}
