package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back a pre-built frame sequence for testing.
type MockSource struct {
	frames []*gocv.Mat
	index  int
	loop   bool
	fps    float64
	mu     sync.Mutex
	open   bool
}

// NewMockSource creates a MockSource over the given frames. With loop set,
// the sequence repeats forever like a live device.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
		fps:    30,
	}
}

// Open marks the source as open and rewinds playback.
func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.index = 0
	return nil
}

// Close marks the source as closed.
func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// ReadFrame returns a clone of the next frame in the sequence.
func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrSourceNotOpen
	}
	if len(s.frames) == 0 {
		return nil, ErrEndOfStream
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		s.index = 0
	}

	// Clone so the caller can close and mutate freely.
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

// FPS returns the configured frame rate.
func (s *MockSource) FPS() float64 { return s.fps }

// SetFPS overrides the reported frame rate.
func (s *MockSource) SetFPS(fps float64) { s.fps = fps }

// FrameSize returns the dimensions of the first frame.
func (s *MockSource) FrameSize() (width, height int) {
	if len(s.frames) == 0 {
		return 0, 0
	}
	return s.frames[0].Cols(), s.frames[0].Rows()
}

// TotalFrames returns the sequence length, or 0 when looping.
func (s *MockSource) TotalFrames() int {
	if s.loop {
		return 0
	}
	return len(s.frames)
}

// IsOpen reports whether Open has been called without a matching Close.
func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
