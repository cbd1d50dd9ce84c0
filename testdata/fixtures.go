// Package testdata provides synthetic video frames for tests, so the test
// suite does not depend on recorded footage.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// SolidFrames builds n uniform dark frames of the given size.
func SolidFrames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		frames[i] = &mat
	}
	return frames
}

// WalkFrames builds frames showing a bright person-sized rectangle whose
// center moves in a straight line from (fromX, fromY) to (toX, toY).
func WalkFrames(width, height, n int, fromX, fromY, toX, toY float64) []*gocv.Mat {
	if n < 2 {
		n = 2
	}

	frames := make([]*gocv.Mat, n)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for i := range frames {
		mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)

		t := float64(i) / float64(n-1)
		cx := int(fromX + (toX-fromX)*t)
		cy := int(fromY + (toY-fromY)*t)

		rect := image.Rect(cx-20, cy-50, cx+20, cy+50)
		gocv.Rectangle(&mat, rect, white, -1)

		frames[i] = &mat
	}

	return frames
}

// CloseFrames releases every frame in the slice.
func CloseFrames(frames []*gocv.Mat) {
	for _, frame := range frames {
		frame.Close()
	}
}
