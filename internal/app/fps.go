package app

import "time"

// fpsMeter measures processing throughput over a rolling window of frames.
type fpsMeter struct {
	times []time.Time
	size  int
}

// newFPSMeter creates a meter averaging over the last size frames.
func newFPSMeter(size int) *fpsMeter {
	if size < 2 {
		size = 2
	}
	return &fpsMeter{size: size}
}

// Tick records a processed frame and returns the current rate in frames
// per second. Returns 0 until two frames have been seen.
func (m *fpsMeter) Tick() float64 {
	now := time.Now()
	m.times = append(m.times, now)
	if len(m.times) > m.size {
		m.times = m.times[len(m.times)-m.size:]
	}

	if len(m.times) < 2 {
		return 0
	}

	elapsed := m.times[len(m.times)-1].Sub(m.times[0]).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(m.times)-1) / elapsed
}
