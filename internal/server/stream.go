package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/turnstile/internal/app"
)

// StreamHandler serves a job's annotated frames as an MJPEG stream.
type StreamHandler struct {
	manager *app.Manager
}

// NewStreamHandler creates a new StreamHandler backed by the job manager.
func NewStreamHandler(manager *app.Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

// ServeHTTP streams MJPEG frames for GET /api/jobs/{id}/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/stream")
	job, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-job.Done():
			h.writeFrame(w, job.Frame())
			return
		default:
		}

		frame := job.Frame()
		if frame == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if !h.writeFrame(w, frame) {
			return
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}

// writeFrame writes one MJPEG part; false means the client went away.
func (h *StreamHandler) writeFrame(w http.ResponseWriter, frame []byte) bool {
	if frame == nil {
		return true
	}

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
	if _, err := w.Write(frame); err != nil {
		return false
	}
	fmt.Fprintf(w, "\r\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return true
}
