// Package app orchestrates counting jobs: one goroutine per job runs the
// detection, tracking and counting pipeline over a video source.
package app

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/turnstile/internal/capture"
	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/detector"
	"github.com/ayusman/turnstile/internal/overlay"
	"github.com/ayusman/turnstile/internal/store"
	"github.com/ayusman/turnstile/internal/tracker"
)

// progressInterval is how many frames pass between persisted progress rows.
const progressInterval = 30

// Config holds configuration options for the job manager.
type Config struct {
	// Store receives job rows and crossing events. May be nil, in which
	// case nothing is persisted.
	Store *store.Store

	// Detector configures the default detector factory.
	Detector detector.Config

	// NewDetector builds a detector per job. Defaults to a YOLO detector
	// from the Detector config. Each job gets its own instance because
	// detectors are not safe for concurrent use.
	NewDetector func(config detector.Config) (detector.Detector, error)

	// NewSource builds a video source per job from the job's source
	// target. Defaults to capture.Resolve.
	NewSource func(target string) (capture.Source, error)
}

// Manager owns the set of jobs and runs their pipelines.
type Manager struct {
	config Config
	mu     sync.RWMutex
	jobs   map[string]*Job
}

// NewManager creates a Manager with the given configuration.
func NewManager(config Config) *Manager {
	if config.NewDetector == nil {
		config.NewDetector = func(cfg detector.Config) (detector.Detector, error) {
			return detector.NewYOLODetector(cfg)
		}
	}
	if config.NewSource == nil {
		config.NewSource = func(target string) (capture.Source, error) {
			return capture.Resolve(target), nil
		}
	}

	return &Manager{
		config: config,
		jobs:   make(map[string]*Job),
	}
}

// Submit creates a job for the given source target and starts processing
// it in the background.
func (m *Manager) Submit(source string, config JobConfig) (*Job, error) {
	if source == "" {
		return nil, errors.New("empty source")
	}

	job := newJob(uuid.New().String(), source, config)

	if m.config.Store != nil {
		err := m.config.Store.Jobs().Create(&store.Job{
			ID:     job.ID,
			Source: job.Source,
			Status: store.JobStatusQueued,
		})
		if err != nil {
			return nil, fmt.Errorf("persist job: %w", err)
		}
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(job)

	return job, nil
}

// Get returns a job by id.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// List returns all jobs ordered by id.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// Remove cancels a job and forgets it. Persisted rows are untouched.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()

	if ok {
		job.Cancel()
	}
	return ok
}

// StopAll cancels every job and waits for the pipelines to finish.
func (m *Manager) StopAll() {
	for _, job := range m.List() {
		job.Cancel()
	}
	for _, job := range m.List() {
		<-job.Done()
	}
}

// run executes a job's pipeline to completion.
func (m *Manager) run(job *Job) {
	defer close(job.doneCh)

	if err := m.process(job); err != nil {
		log.Printf("job %s failed: %v", job.ID, err)
		job.setStatus(store.JobStatusError, err.Error())
		m.persistStatus(job, store.JobStatusError, err.Error())
		return
	}

	message := ""
	if job.canceled() {
		message = "canceled before end of stream"
	}
	job.setStatus(store.JobStatusCompleted, message)
	m.persistProgress(job)
	m.persistStatus(job, store.JobStatusCompleted, message)
}

// process runs the per-frame loop: detections feed the tracker, active
// tracks feed the counter, and the annotated frame is published for
// streaming consumers.
func (m *Manager) process(job *Job) error {
	detConfig := m.config.Detector
	if job.Config.ConfThreshold > 0 {
		detConfig.ConfThreshold = job.Config.ConfThreshold
	}

	det, err := m.config.NewDetector(detConfig)
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	defer det.Close()

	src, err := m.config.NewSource(job.Source)
	if err != nil {
		return fmt.Errorf("source %q: %w", job.Source, err)
	}
	if err := src.Open(); err != nil {
		return fmt.Errorf("open %q: %w", job.Source, err)
	}
	defer src.Close()

	width, height := src.FrameSize()
	line := counter.PlaceLine(width, height, job.Config.LineOrientation, job.Config.LinePosition)

	trk := tracker.New(tracker.DefaultConfig())
	cnt := counter.New(line, counter.DefaultConfig())
	renderer := overlay.NewRenderer()
	meter := newFPSMeter(progressInterval)

	totalFrames := src.TotalFrames()
	fps := src.FPS()

	job.setStatus(store.JobStatusProcessing, "")
	m.persistStatus(job, store.JobStatusProcessing, "")

	frameIdx := 0
	persisted := 0

	for !job.canceled() {
		frame, err := src.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", frameIdx, err)
		}

		if frameIdx%job.Config.FrameStride != 0 {
			frame.Close()
			frameIdx++
			continue
		}

		detections, err := det.Detect(frame)
		if err != nil {
			// A single failed inference is not fatal; skip the frame.
			log.Printf("job %s: detect frame %d: %v", job.ID, frameIdx, err)
			frame.Close()
			frameIdx++
			continue
		}

		tracks := trk.Update(detections)

		timestamp := float64(frameIdx) / fps
		totalEnter, totalExit, occupancy := cnt.Update(tracks, timestamp)

		currentFPS := meter.Tick()
		renderer.DrawLine(frame, line)
		renderer.DrawTracks(frame, tracks)
		renderer.DrawCounters(frame, totalEnter, totalExit, occupancy)
		renderer.DrawFPS(frame, currentFPS)
		m.publishFrame(job, frame)
		frame.Close()

		history := cnt.History()
		fresh := history[persisted:]
		persisted = len(history)

		progress := 0.0
		if totalFrames > 0 {
			progress = float64(frameIdx+1) / float64(totalFrames) * 100
		}
		job.record(progress, totalEnter, totalExit, occupancy, currentFPS, fresh)

		if m.config.Store != nil && len(fresh) > 0 {
			if err := m.config.Store.Events().Append(job.ID, fresh); err != nil {
				log.Printf("job %s: persist events: %v", job.ID, err)
			}
		}
		if frameIdx%progressInterval == 0 {
			m.persistProgress(job)
		}

		frameIdx++
	}

	return nil
}

// publishFrame stores the annotated frame as JPEG for the MJPEG stream.
func (m *Manager) publishFrame(job *Job, frame *gocv.Mat) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return
	}
	defer buf.Close()

	// The buffer's backing memory is released on Close; copy it out.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	job.setFrame(data)
}

// persistStatus mirrors a status change to the store, if configured.
func (m *Manager) persistStatus(job *Job, status store.JobStatus, message string) {
	if m.config.Store == nil {
		return
	}
	if err := m.config.Store.Jobs().UpdateStatus(job.ID, status, message); err != nil {
		log.Printf("job %s: persist status: %v", job.ID, err)
	}
}

// persistProgress mirrors the job's running totals to the store.
func (m *Manager) persistProgress(job *Job) {
	if m.config.Store == nil {
		return
	}
	snap := job.Snapshot()
	err := m.config.Store.Jobs().UpdateProgress(job.ID, snap.Progress, snap.TotalEnter, snap.TotalExit, snap.Occupancy)
	if err != nil {
		log.Printf("job %s: persist progress: %v", job.ID, err)
	}
}
