// Package detector provides person detection for video frames.
package detector

import "gocv.io/x/gocv"

// Box is an axis-aligned bounding box in pixel coordinates, with
// (X1, Y1) the top-left corner and (X2, Y2) the bottom-right corner.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the width of the box.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the height of the box.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the area of the box.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Center returns the midpoint of the box.
func (b Box) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Detection is a single per-frame observation: a bounding box plus the
// confidence the detector assigned to it. Detections carry no identity;
// identities are assigned downstream by the tracker.
type Detection struct {
	Box  Box
	Conf float64
}

// Detector defines the interface for person detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected persons.
	// Returns an empty slice if no persons are detected.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for person detection.
type Config struct {
	// ModelPath is the path to the detection model weights.
	ModelPath string

	// ConfigPath is the path to the model configuration file, if the
	// model format requires one. Empty for single-file models (ONNX).
	ConfigPath string

	// ConfThreshold is the minimum detection confidence (0.0-1.0).
	ConfThreshold float64

	// NMSThreshold is the IoU threshold used for non-maximum suppression.
	NMSThreshold float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelPath:     "yolov8n.onnx",
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
	}
}
