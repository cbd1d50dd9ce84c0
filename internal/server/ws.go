package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/turnstile/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveHandler pushes real-time job snapshots over a WebSocket.
type LiveHandler struct {
	manager *app.Manager
}

// NewLiveHandler creates a new LiveHandler backed by the job manager.
func NewLiveHandler(manager *app.Manager) *LiveHandler {
	return &LiveHandler{manager: manager}
}

// ServeHTTP handles WebSocket upgrade requests on /api/jobs/{id}/live and
// streams count snapshots until the job finishes or the client leaves.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/live")
	job, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Drain client messages so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-job.Done():
			// Final snapshot carries the terminal status and totals.
			conn.WriteJSON(job.Snapshot())
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if err := conn.WriteJSON(job.Snapshot()); err != nil {
				return
			}
		}
	}
}
