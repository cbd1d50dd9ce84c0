// Package api provides HTTP API handlers for the turnstile counting service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/turnstile/internal/app"
	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/store"
)

// JobsHandler handles HTTP requests for counting job resources.
type JobsHandler struct {
	manager   *app.Manager
	store     *store.Store
	uploadDir string
	maxUpload int64
}

// NewJobsHandler creates a new JobsHandler. maxUploadMB caps video uploads;
// zero means 512 MB.
func NewJobsHandler(manager *app.Manager, s *store.Store, uploadDir string, maxUploadMB int) *JobsHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	return &JobsHandler{
		manager:   manager,
		store:     s,
		uploadDir: uploadDir,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/jobs or /api/jobs/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createJobRequest struct {
	Source          string  `json:"source"`
	LineOrientation string  `json:"line_orientation"`
	LinePosition    float64 `json:"line_position"`
	ConfThreshold   float64 `json:"conf_threshold"`
	FrameStride     int     `json:"frame_stride"`
}

type listJobsResponse struct {
	Jobs []app.Snapshot `json:"jobs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// jobConfigFrom validates a request and builds the job configuration.
func jobConfigFrom(req createJobRequest) (app.JobConfig, error) {
	orientation := counter.Orientation(req.LineOrientation)
	if orientation != "" && orientation != counter.OrientationHorizontal && orientation != counter.OrientationVertical {
		return app.JobConfig{}, fmt.Errorf("invalid line orientation %q", req.LineOrientation)
	}
	if req.LinePosition < 0 || req.LinePosition > 1 {
		return app.JobConfig{}, fmt.Errorf("line position %v out of range", req.LinePosition)
	}
	return app.JobConfig{
		LineOrientation: orientation,
		LinePosition:    req.LinePosition,
		ConfThreshold:   req.ConfThreshold,
		FrameStride:     req.FrameStride,
	}, nil
}

// list handles GET /api/jobs and returns all jobs, newest submissions last.
func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	jobs := h.manager.List()

	response := listJobsResponse{
		Jobs: make([]app.Snapshot, 0, len(jobs)),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, job.Snapshot())
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/jobs/{id} and returns a single job. Jobs from past
// runs of the process are served from the store.
func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if job, ok := h.manager.Get(id); ok {
		writeJSON(w, http.StatusOK, job.Snapshot())
		return
	}

	if h.store != nil {
		row, err := h.store.Jobs().GetByID(id)
		if err == nil {
			writeJSON(w, http.StatusOK, app.Snapshot{
				ID:         row.ID,
				Source:     row.Source,
				Status:     row.Status,
				Message:    row.Message,
				Progress:   row.Progress,
				TotalEnter: row.TotalEnter,
				TotalExit:  row.TotalExit,
				Occupancy:  row.Occupancy,
			})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to get job")
			return
		}
	}

	writeError(w, http.StatusNotFound, "Job not found")
}

// create handles POST /api/jobs and starts a new counting job. The body is
// either JSON naming an existing source, or a multipart upload with a
// "video" file part and the remaining options as form fields.
func (h *JobsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		uploaded, err := h.saveUpload(w, r, &req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Source = uploaded
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "Source is required")
		return
	}

	config, err := jobConfigFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Submit(req.Source, config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start job")
		return
	}

	writeJSON(w, http.StatusCreated, job.Snapshot())
}

// saveUpload stores the "video" part of a multipart request under the
// upload directory and fills the remaining options from form fields.
func (h *JobsHandler) saveUpload(w http.ResponseWriter, r *http.Request, req *createJobRequest) (string, error) {
	if h.uploadDir == "" {
		return "", errors.New("uploads are not enabled")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", fmt.Errorf("parse upload: %w", err)
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		return "", errors.New(`missing "video" file part`)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}

	name := uuid.New().String() + filepath.Ext(header.Filename)
	dstPath := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("save upload: %w", err)
	}

	req.LineOrientation = r.FormValue("line_orientation")
	if v := r.FormValue("line_position"); v != "" {
		req.LinePosition, _ = strconv.ParseFloat(v, 64)
	}
	if v := r.FormValue("conf_threshold"); v != "" {
		req.ConfThreshold, _ = strconv.ParseFloat(v, 64)
	}
	if v := r.FormValue("frame_stride"); v != "" {
		req.FrameStride, _ = strconv.Atoi(v)
	}

	return dstPath, nil
}

// delete handles DELETE /api/jobs/{id}: cancels a running job and removes
// it, along with its persisted rows.
func (h *JobsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	removed := h.manager.Remove(id)

	if h.store != nil {
		err := h.store.Jobs().Delete(id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to delete job")
			return
		}
		if err == nil {
			removed = true
		}
	}

	if !removed {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
