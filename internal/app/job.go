package app

import (
	"sync"

	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/store"
)

// JobConfig holds the per-job processing options.
type JobConfig struct {
	// LineOrientation places the counting line across the frame width
	// (horizontal) or height (vertical).
	LineOrientation counter.Orientation `json:"line_orientation"`

	// LinePosition is the fractional position of the line (0.0-1.0).
	LinePosition float64 `json:"line_position"`

	// ConfThreshold overrides the detector's confidence threshold when
	// set above zero.
	ConfThreshold float64 `json:"conf_threshold"`

	// FrameStride processes every Nth frame (1 = all frames).
	FrameStride int `json:"frame_stride"`
}

// withDefaults fills in unset fields.
func (c JobConfig) withDefaults() JobConfig {
	if c.LineOrientation == "" {
		c.LineOrientation = counter.OrientationHorizontal
	}
	if c.LinePosition <= 0 || c.LinePosition >= 1 {
		c.LinePosition = 0.5
	}
	if c.FrameStride < 1 {
		c.FrameStride = 1
	}
	return c
}

// Snapshot is a point-in-time view of a job, safe to serialize.
type Snapshot struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Status     store.JobStatus `json:"status"`
	Message    string          `json:"message,omitempty"`
	Progress   float64         `json:"progress"`
	TotalEnter int             `json:"total_enter"`
	TotalExit  int             `json:"total_exit"`
	Occupancy  int             `json:"occupancy"`
	FPS        float64         `json:"fps"`
}

// Job is one counting run over a video source. The processing goroutine is
// the only writer; readers go through Snapshot, Frame and Events.
type Job struct {
	ID     string
	Source string
	Config JobConfig

	mu         sync.RWMutex
	status     store.JobStatus
	message    string
	progress   float64
	totalEnter int
	totalExit  int
	occupancy  int
	fps        float64
	frame      []byte
	events     []counter.Event

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// newJob creates a queued job.
func newJob(id, source string, config JobConfig) *Job {
	return &Job{
		ID:     id,
		Source: source,
		Config: config.withDefaults(),
		status: store.JobStatusQueued,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		ID:         j.ID,
		Source:     j.Source,
		Status:     j.status,
		Message:    j.message,
		Progress:   j.progress,
		TotalEnter: j.totalEnter,
		TotalExit:  j.totalExit,
		Occupancy:  j.occupancy,
		FPS:        j.fps,
	}
}

// Frame returns the most recent annotated frame as JPEG bytes, or nil if
// none has been produced yet.
func (j *Job) Frame() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.frame
}

// Events returns a copy of the crossing events counted so far.
func (j *Job) Events() []counter.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	events := make([]counter.Event, len(j.events))
	copy(events, j.events)
	return events
}

// Done is closed when the job's processing goroutine has finished.
func (j *Job) Done() <-chan struct{} {
	return j.doneCh
}

// Cancel asks the processing goroutine to stop after the current frame.
// Safe to call more than once.
func (j *Job) Cancel() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// setStatus transitions the job's lifecycle state.
func (j *Job) setStatus(status store.JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.message = message
}

// record publishes one processed frame's results.
func (j *Job) record(progress float64, totalEnter, totalExit, occupancy int, fps float64, events []counter.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = progress
	j.totalEnter = totalEnter
	j.totalExit = totalExit
	j.occupancy = occupancy
	j.fps = fps
	j.events = append(j.events, events...)
}

// setFrame stores the latest annotated JPEG.
func (j *Job) setFrame(frame []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.frame = frame
}

// canceled reports whether Cancel has been called.
func (j *Job) canceled() bool {
	select {
	case <-j.stopCh:
		return true
	default:
		return false
	}
}
