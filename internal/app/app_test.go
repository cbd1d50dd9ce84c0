package app

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/turnstile/internal/capture"
	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/detector"
	"github.com/ayusman/turnstile/internal/store"
	"github.com/ayusman/turnstile/testdata"
)

const waitTimeout = 10 * time.Second

func waitDone(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("job %s did not finish within %v", job.ID, waitTimeout)
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "turnstile.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// walkManager wires a manager whose jobs replay a scripted walk across a
// vertical mid-frame line: 20 frames, center moving from x=40 to x=160.
func walkManager(st *store.Store) *Manager {
	return NewManager(Config{
		Store: st,
		NewDetector: func(detector.Config) (detector.Detector, error) {
			mock := detector.NewMockDetector()
			mock.SetSequence(detector.WalkSequence(40, 100, 160, 100, 20, 0.9))
			return mock, nil
		},
		NewSource: func(string) (capture.Source, error) {
			frames := testdata.SolidFrames(20, 200, 200)
			return capture.NewMockSource(frames, false), nil
		},
	})
}

func TestManager_CompletesAndCounts(t *testing.T) {
	st := newTestStore(t)
	m := walkManager(st)

	job, err := m.Submit("walk.mp4", JobConfig{
		LineOrientation: counter.OrientationVertical,
		LinePosition:    0.5,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != store.JobStatusCompleted {
		t.Fatalf("Status = %q (%q), want completed", snap.Status, snap.Message)
	}
	// Walking left to right crosses from the enter side to the exit side.
	if snap.TotalEnter != 0 || snap.TotalExit != 1 {
		t.Errorf("totals = (%d, %d), want (0, 1)", snap.TotalEnter, snap.TotalExit)
	}
	if snap.Occupancy != 0 {
		t.Errorf("Occupancy = %d, want 0", snap.Occupancy)
	}
	if snap.Progress != 100 {
		t.Errorf("Progress = %v, want 100", snap.Progress)
	}

	events := job.Events()
	if len(events) != 1 {
		t.Fatalf("Events() returned %d events, want 1", len(events))
	}
	if events[0].Direction != counter.DirectionExit {
		t.Errorf("Direction = %q, want exit", events[0].Direction)
	}

	if job.Frame() == nil {
		t.Error("Frame() = nil, want an annotated JPEG")
	}

	// The store mirrors the in-memory result.
	row, err := st.Jobs().GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if row.Status != store.JobStatusCompleted {
		t.Errorf("persisted status = %q, want completed", row.Status)
	}
	if row.TotalExit != 1 {
		t.Errorf("persisted total_exit = %d, want 1", row.TotalExit)
	}

	persisted, err := st.Events().ListByJob(job.ID)
	if err != nil {
		t.Fatalf("ListByJob() error = %v", err)
	}
	if len(persisted) != 1 || persisted[0] != events[0] {
		t.Errorf("persisted events = %+v, want %+v", persisted, events)
	}
}

func TestManager_HorizontalLine(t *testing.T) {
	m := NewManager(Config{
		NewDetector: func(detector.Config) (detector.Detector, error) {
			mock := detector.NewMockDetector()
			// Top to bottom across a horizontal mid-frame line.
			mock.SetSequence(detector.WalkSequence(100, 60, 100, 260, 20, 0.9))
			return mock, nil
		},
		NewSource: func(string) (capture.Source, error) {
			return capture.NewMockSource(testdata.SolidFrames(20, 200, 320), false), nil
		},
	})

	job, err := m.Submit("descend.mp4", JobConfig{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != store.JobStatusCompleted {
		t.Fatalf("Status = %q (%q), want completed", snap.Status, snap.Message)
	}
	if snap.TotalEnter+snap.TotalExit != 1 {
		t.Errorf("totals = (%d, %d), want exactly one crossing", snap.TotalEnter, snap.TotalExit)
	}
}

func TestManager_FrameStride(t *testing.T) {
	m := NewManager(Config{
		NewDetector: func(detector.Config) (detector.Detector, error) {
			mock := detector.NewMockDetector()
			mock.SetSequence(detector.WalkSequence(40, 100, 160, 100, 10, 0.9))
			return mock, nil
		},
		NewSource: func(string) (capture.Source, error) {
			return capture.NewMockSource(testdata.SolidFrames(20, 200, 200), false), nil
		},
	})

	job, err := m.Submit("walk.mp4", JobConfig{
		LineOrientation: counter.OrientationVertical,
		FrameStride:     2,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != store.JobStatusCompleted {
		t.Fatalf("Status = %q (%q), want completed", snap.Status, snap.Message)
	}
	// 20 frames at stride 2 consume exactly the 10-step script and still
	// produce the single crossing.
	if snap.TotalExit != 1 {
		t.Errorf("TotalExit = %d, want 1", snap.TotalExit)
	}
}

func TestManager_Cancel(t *testing.T) {
	m := NewManager(Config{
		NewDetector: func(detector.Config) (detector.Detector, error) {
			return detector.NewMockDetector(), nil
		},
		NewSource: func(string) (capture.Source, error) {
			frames := testdata.SolidFrames(3, 160, 120)
			return capture.NewMockSource(frames, true), nil
		},
	})

	job, err := m.Submit("cam:0", JobConfig{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Let the loop spin a little, then stop it.
	deadline := time.Now().Add(waitTimeout)
	for job.Snapshot().Status != store.JobStatusProcessing {
		if time.Now().After(deadline) {
			t.Fatal("job never reached processing")
		}
		time.Sleep(5 * time.Millisecond)
	}
	job.Cancel()
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != store.JobStatusCompleted {
		t.Errorf("Status = %q, want completed", snap.Status)
	}
	if snap.Message == "" {
		t.Error("Message is empty, want a cancellation note")
	}
}

func TestManager_SourceError(t *testing.T) {
	sourceErr := errors.New("no such device")
	m := NewManager(Config{
		NewDetector: func(detector.Config) (detector.Detector, error) {
			return detector.NewMockDetector(), nil
		},
		NewSource: func(string) (capture.Source, error) {
			return nil, sourceErr
		},
	})

	job, err := m.Submit("bogus", JobConfig{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != store.JobStatusError {
		t.Errorf("Status = %q, want error", snap.Status)
	}
	if snap.Message == "" {
		t.Error("Message is empty, want the failure reason")
	}
}

func TestManager_EmptySource(t *testing.T) {
	m := walkManager(nil)
	if _, err := m.Submit("", JobConfig{}); err == nil {
		t.Error("Submit(\"\") error = nil, want error")
	}
}

func TestManager_GetListRemove(t *testing.T) {
	m := walkManager(nil)

	job, err := m.Submit("walk.mp4", JobConfig{LineOrientation: counter.OrientationVertical})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	got, ok := m.Get(job.ID)
	if !ok || got.ID != job.ID {
		t.Errorf("Get(%q) = %v, %v", job.ID, got, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) found a job")
	}

	if list := m.List(); len(list) != 1 {
		t.Errorf("List() returned %d jobs, want 1", len(list))
	}

	waitDone(t, job)

	if !m.Remove(job.ID) {
		t.Error("Remove() = false, want true")
	}
	if m.Remove(job.ID) {
		t.Error("Remove() of a removed job = true, want false")
	}
	if list := m.List(); len(list) != 0 {
		t.Errorf("List() after remove returned %d jobs, want 0", len(list))
	}
}

func TestJobConfig_Defaults(t *testing.T) {
	c := JobConfig{}.withDefaults()
	if c.LineOrientation != counter.OrientationHorizontal {
		t.Errorf("LineOrientation = %q, want horizontal", c.LineOrientation)
	}
	if c.LinePosition != 0.5 {
		t.Errorf("LinePosition = %v, want 0.5", c.LinePosition)
	}
	if c.FrameStride != 1 {
		t.Errorf("FrameStride = %d, want 1", c.FrameStride)
	}

	custom := JobConfig{LineOrientation: counter.OrientationVertical, LinePosition: 0.25, FrameStride: 3}.withDefaults()
	if custom != (JobConfig{LineOrientation: counter.OrientationVertical, LinePosition: 0.25, FrameStride: 3}) {
		t.Errorf("withDefaults() altered explicit config: %+v", custom)
	}
}

func TestFPSMeter(t *testing.T) {
	m := newFPSMeter(5)
	if fps := m.Tick(); fps != 0 {
		t.Errorf("first Tick() = %v, want 0", fps)
	}
	time.Sleep(10 * time.Millisecond)
	if fps := m.Tick(); fps <= 0 {
		t.Errorf("second Tick() = %v, want > 0", fps)
	}
}
