// Package capture provides video frame sources using GoCV (OpenCV).
package capture

import (
	"errors"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Fallback frame rate when the container or device reports none.
const DefaultFPS = 30.0

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("video source is not open")

// ErrEndOfStream is returned when a finite source has no more frames.
var ErrEndOfStream = errors.New("end of video stream")

// Source defines the interface for video frame sources: files, devices,
// or test doubles.
type Source interface {
	// Open prepares the source for reading.
	Open() error

	// Close releases the source's resources.
	Close() error

	// ReadFrame reads the next frame. The caller is responsible for
	// closing the returned Mat. Returns ErrEndOfStream once a finite
	// source is exhausted.
	ReadFrame() (*gocv.Mat, error)

	// FPS returns the source frame rate.
	FPS() float64

	// FrameSize returns the frame dimensions in pixels.
	FrameSize() (width, height int)

	// TotalFrames returns the number of frames for finite sources, or 0
	// when unknown (live devices).
	TotalFrames() int

	// IsOpen reports whether the source is currently open.
	IsOpen() bool
}

// videoSource reads frames from a video file or capture device via GoCV.
type videoSource struct {
	target  any // file path string or device id int
	live    bool
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     float64
	width   int
	height  int
	frames  int
}

// NewFileSource creates a Source reading from a video file.
func NewFileSource(path string) Source {
	return &videoSource{target: path}
}

// NewDeviceSource creates a Source reading from a capture device.
func NewDeviceSource(deviceID int) Source {
	return &videoSource{target: deviceID, live: true}
}

// Open opens the underlying file or device and caches its properties.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.target)
	if err != nil {
		return err
	}

	s.capture = capture
	s.running = true

	s.fps = capture.Get(gocv.VideoCaptureFPS)
	if s.fps <= 0 {
		s.fps = DefaultFPS
	}
	s.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	s.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	if s.live {
		s.frames = 0
	} else {
		s.frames = int(capture.Get(gocv.VideoCaptureFrameCount))
	}

	return nil
}

// Close closes the source and releases resources.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads a single frame from the source.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		if s.live {
			return nil, errors.New("failed to read frame from device")
		}
		return nil, ErrEndOfStream
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}

	return &mat, nil
}

// FPS returns the source frame rate.
func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// FrameSize returns the frame dimensions.
func (s *videoSource) FrameSize() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// TotalFrames returns the frame count for files, 0 for live devices.
func (s *videoSource) TotalFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// IsOpen returns true if the source is currently open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Resolve builds a Source from a textual target: a bare integer selects a
// capture device, anything else is treated as a file path.
func Resolve(target string) Source {
	if id, err := strconv.Atoi(target); err == nil {
		return NewDeviceSource(id)
	}
	return NewFileSource(target)
}
