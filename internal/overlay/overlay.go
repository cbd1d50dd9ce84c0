// Package overlay draws tracking and counting annotations onto video frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/tracker"
)

// Renderer draws boxes, the counting line and the counters panel.
type Renderer struct {
	trackColor color.RGBA
	lineColor  color.RGBA
	enterColor color.RGBA
	exitColor  color.RGBA
	textColor  color.RGBA
	panelColor color.RGBA
}

// NewRenderer creates a Renderer with the default color scheme.
func NewRenderer() *Renderer {
	return &Renderer{
		trackColor: color.RGBA{G: 255, A: 255},
		lineColor:  color.RGBA{B: 255, A: 255},
		enterColor: color.RGBA{G: 255, A: 255},
		exitColor:  color.RGBA{R: 255, A: 255},
		textColor:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		panelColor: color.RGBA{A: 255},
	}
}

// DrawTracks draws each active track's box with an id/confidence label.
func (r *Renderer) DrawTracks(frame *gocv.Mat, tracks []tracker.Track) {
	for _, track := range tracks {
		rect := image.Rect(int(track.Box.X1), int(track.Box.Y1), int(track.Box.X2), int(track.Box.Y2))
		gocv.Rectangle(frame, rect, r.trackColor, 2)

		label := fmt.Sprintf("ID: %d (%.2f)", track.ID, track.Conf)
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)

		// Label background sits just above the box.
		bg := image.Rect(rect.Min.X, rect.Min.Y-size.Y-8, rect.Min.X+size.X, rect.Min.Y)
		gocv.Rectangle(frame, bg, r.trackColor, -1)
		gocv.PutText(frame, label, image.Pt(rect.Min.X, rect.Min.Y-4),
			gocv.FontHersheySimplex, 0.5, r.panelColor, 1)
	}
}

// DrawLine draws the counting line with ENTER/EXIT direction markers.
func (r *Renderer) DrawLine(frame *gocv.Mat, line counter.Line) {
	p1 := image.Pt(int(line.X1), int(line.Y1))
	p2 := image.Pt(int(line.X2), int(line.Y2))
	gocv.Line(frame, p1, p2, r.lineColor, 3)

	const arrow = 20
	if line.Orientation == counter.OrientationVertical {
		gocv.ArrowedLine(frame, image.Pt(p1.X-arrow, p1.Y+arrow), image.Pt(p1.X, p1.Y+arrow), r.enterColor, 2)
		gocv.PutText(frame, "ENTER", image.Pt(p1.X-arrow-60, p1.Y+arrow-8),
			gocv.FontHersheySimplex, 0.5, r.enterColor, 2)
		gocv.ArrowedLine(frame, image.Pt(p1.X+arrow, p1.Y+arrow), image.Pt(p1.X, p1.Y+arrow), r.exitColor, 2)
		gocv.PutText(frame, "EXIT", image.Pt(p1.X+arrow+8, p1.Y+arrow-8),
			gocv.FontHersheySimplex, 0.5, r.exitColor, 2)
		return
	}

	gocv.ArrowedLine(frame, image.Pt(p1.X+arrow, p1.Y-arrow), image.Pt(p1.X+arrow, p1.Y), r.enterColor, 2)
	gocv.PutText(frame, "ENTER", image.Pt(p1.X+arrow+8, p1.Y-arrow),
		gocv.FontHersheySimplex, 0.5, r.enterColor, 2)
	gocv.ArrowedLine(frame, image.Pt(p1.X+arrow, p1.Y+arrow), image.Pt(p1.X+arrow, p1.Y), r.exitColor, 2)
	gocv.PutText(frame, "EXIT", image.Pt(p1.X+arrow+8, p1.Y+arrow+12),
		gocv.FontHersheySimplex, 0.5, r.exitColor, 2)
}

// DrawCounters draws the running totals panel in the top-left corner.
func (r *Renderer) DrawCounters(frame *gocv.Mat, totalEnter, totalExit, occupancy int) {
	gocv.Rectangle(frame, image.Rect(8, 8, 230, 92), r.panelColor, -1)

	gocv.PutText(frame, fmt.Sprintf("Enter: %d", totalEnter), image.Pt(16, 32),
		gocv.FontHersheySimplex, 0.6, r.enterColor, 2)
	gocv.PutText(frame, fmt.Sprintf("Exit: %d", totalExit), image.Pt(16, 56),
		gocv.FontHersheySimplex, 0.6, r.exitColor, 2)
	gocv.PutText(frame, fmt.Sprintf("Occupancy: %d", occupancy), image.Pt(16, 80),
		gocv.FontHersheySimplex, 0.6, r.textColor, 2)
}

// DrawFPS draws the processing frame rate in the top-right corner.
func (r *Renderer) DrawFPS(frame *gocv.Mat, fps float64) {
	label := fmt.Sprintf("FPS: %.1f", fps)
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.6, 2)
	gocv.PutText(frame, label, image.Pt(frame.Cols()-size.X-12, 32),
		gocv.FontHersheySimplex, 0.6, r.textColor, 2)
}
