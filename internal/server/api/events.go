package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/turnstile/internal/app"
	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/store"
)

// EventsHandler serves a job's crossing events as JSON or CSV.
type EventsHandler struct {
	manager *app.Manager
	store   *store.Store
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(manager *app.Manager, s *store.Store) *EventsHandler {
	return &EventsHandler{manager: manager, store: s}
}

// ServeHTTP handles GET /api/jobs/{id}/events and /api/jobs/{id}/events.csv.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	asCSV := strings.HasSuffix(path, "/events.csv")
	id := strings.TrimSuffix(strings.TrimSuffix(path, "/events.csv"), "/events")

	events, ok := h.events(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	if asCSV {
		h.writeCSV(w, id, events)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// events resolves a job's event log, preferring the live in-memory job and
// falling back to persisted rows.
func (h *EventsHandler) events(id string) ([]counter.Event, bool) {
	if job, ok := h.manager.Get(id); ok {
		return job.Events(), true
	}

	if h.store != nil {
		if _, err := h.store.Jobs().GetByID(id); err == nil {
			events, err := h.store.Events().ListByJob(id)
			if err != nil {
				return nil, false
			}
			return events, true
		}
	}

	return nil, false
}

// writeCSV renders the event log as a CSV download.
func (h *EventsHandler) writeCSV(w http.ResponseWriter, id string, events []counter.Event) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="events-%s.csv"`, id))

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "track_id", "direction", "total_enter", "total_exit"})
	for _, e := range events {
		cw.Write([]string{
			strconv.FormatFloat(e.Timestamp, 'f', 3, 64),
			strconv.Itoa(e.TrackID),
			string(e.Direction),
			strconv.Itoa(e.TotalEnter),
			strconv.Itoa(e.TotalExit),
		})
	}
	cw.Flush()
}
