package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/turnstile/internal/app"
	"github.com/ayusman/turnstile/internal/capture"
	"github.com/ayusman/turnstile/internal/detector"
	"github.com/ayusman/turnstile/internal/store"
	"github.com/ayusman/turnstile/testdata"
)

// newTestStore creates a Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// newTestManager creates a Manager whose jobs replay a short scripted walk
// across a vertical mid-frame line, producing one exit crossing.
func newTestManager(t *testing.T, s *store.Store) *app.Manager {
	t.Helper()

	m := app.NewManager(app.Config{
		Store: s,
		NewDetector: func(detector.Config) (detector.Detector, error) {
			mock := detector.NewMockDetector()
			mock.SetSequence(detector.WalkSequence(40, 100, 160, 100, 20, 0.9))
			return mock, nil
		},
		NewSource: func(string) (capture.Source, error) {
			return capture.NewMockSource(testdata.SolidFrames(20, 200, 200), false), nil
		},
	})
	t.Cleanup(m.StopAll)

	return m
}

func waitDone(t *testing.T, job *app.Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("job %s did not finish", job.ID)
	}
}

func TestJobsHandler_Create(t *testing.T) {
	s := newTestStore(t)
	m := newTestManager(t, s)
	handler := NewJobsHandler(m, s, "", 0)

	reqBody := createJobRequest{
		Source:          "walk.mp4",
		LineOrientation: "vertical",
		LinePosition:    0.5,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var snap app.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.ID == "" {
		t.Error("expected non-empty job id")
	}
	if snap.Source != "walk.mp4" {
		t.Errorf("expected source 'walk.mp4', got %q", snap.Source)
	}

	job, ok := m.Get(snap.ID)
	if !ok {
		t.Fatal("job not registered with manager")
	}
	waitDone(t, job)

	if got := job.Snapshot(); got.Status != store.JobStatusCompleted {
		t.Errorf("expected completed job, got %q (%q)", got.Status, got.Message)
	}
}

func TestJobsHandler_CreateValidation(t *testing.T) {
	m := newTestManager(t, nil)
	handler := NewJobsHandler(m, nil, "", 0)

	cases := []struct {
		name string
		body string
	}{
		{"missing source", `{"line_orientation": "vertical"}`},
		{"bad orientation", `{"source": "a.mp4", "line_orientation": "diagonal"}`},
		{"bad position", `{"source": "a.mp4", "line_position": 1.5}`},
		{"invalid json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestJobsHandler_ListAndGet(t *testing.T) {
	m := newTestManager(t, nil)
	handler := NewJobsHandler(m, nil, "", 0)

	job, err := m.Submit("walk.mp4", app.JobConfig{})
	if err != nil {
		t.Fatalf("failed to submit job: %v", err)
	}
	waitDone(t, job)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var list listJobsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(list.Jobs))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var snap app.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.ID != job.ID {
		t.Errorf("expected job id %q, got %q", job.ID, snap.ID)
	}
}

func TestJobsHandler_GetFromStore(t *testing.T) {
	s := newTestStore(t)
	m := newTestManager(t, nil)
	handler := NewJobsHandler(m, s, "", 0)

	// A job from a previous run of the process exists only in the store.
	err := s.Jobs().Create(&store.Job{ID: "old-job", Source: "archive.mp4", Status: store.JobStatusCompleted})
	if err != nil {
		t.Fatalf("failed to create job row: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/old-job", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var snap app.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.Source != "archive.mp4" {
		t.Errorf("expected source 'archive.mp4', got %q", snap.Source)
	}
}

func TestJobsHandler_GetNotFound(t *testing.T) {
	m := newTestManager(t, nil)
	handler := NewJobsHandler(m, nil, "", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestJobsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	m := newTestManager(t, s)
	handler := NewJobsHandler(m, s, "", 0)

	job, err := m.Submit("walk.mp4", app.JobConfig{})
	if err != nil {
		t.Fatalf("failed to submit job: %v", err)
	}
	waitDone(t, job)

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, ok := m.Get(job.ID); ok {
		t.Error("job still registered after delete")
	}
	if _, err := s.Jobs().GetByID(job.ID); err == nil {
		t.Error("job row still present after delete")
	}

	// Deleting again reports not found.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestJobsHandler_MethodNotAllowed(t *testing.T) {
	m := newTestManager(t, nil)
	handler := NewJobsHandler(m, nil, "", 0)

	req := httptest.NewRequest(http.MethodPut, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
