package capture

import (
	"sync"
	"time"
)

// StreamMetrics tracks per-session capture performance and the last soft
// video failure. FramesWritten is monotonic within a session and increments
// only on a successful container write.
type StreamMetrics struct {
	mu sync.RWMutex

	FramesWritten uint64
	FramesFailed  uint64
	JoinTimeouts  uint64

	LastGrabTime      time.Duration
	LastNormalizeTime time.Duration
	LastWriteTime     time.Duration
	LastFrameSize     int

	lastError string
	startTime time.Time
}

func newStreamMetrics() *StreamMetrics {
	return &StreamMetrics{startTime: time.Now()}
}

func (m *StreamMetrics) RecordGrab(d time.Duration) {
	m.mu.Lock()
	m.LastGrabTime = d
	m.mu.Unlock()
}

func (m *StreamMetrics) RecordNormalize(d time.Duration) {
	m.mu.Lock()
	m.LastNormalizeTime = d
	m.mu.Unlock()
}

func (m *StreamMetrics) RecordWrite(d time.Duration, size int) {
	m.mu.Lock()
	m.FramesWritten++
	m.LastWriteTime = d
	m.LastFrameSize = size
	m.mu.Unlock()
}

// RecordFailure notes a soft per-frame failure. The last error string is
// overwritten, not accumulated.
func (m *StreamMetrics) RecordFailure(err error) {
	m.mu.Lock()
	m.FramesFailed++
	m.lastError = err.Error()
	m.mu.Unlock()
}

func (m *StreamMetrics) RecordJoinTimeout() {
	m.mu.Lock()
	m.JoinTimeouts++
	m.mu.Unlock()
}

// Written returns the successful frame count.
func (m *StreamMetrics) Written() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FramesWritten
}

// LastError returns the most recent soft failure, or "" if none occurred.
func (m *StreamMetrics) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// MetricsSnapshot is a point-in-time copy of metrics for logging and the
// session manifest.
type MetricsSnapshot struct {
	FramesWritten uint64
	FramesFailed  uint64
	JoinTimeouts  uint64
	GrabMs        float64
	NormalizeMs   float64
	WriteMs       float64
	LastFrameSize int
	LastError     string
	Uptime        time.Duration
}

func (m *StreamMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		FramesWritten: m.FramesWritten,
		FramesFailed:  m.FramesFailed,
		JoinTimeouts:  m.JoinTimeouts,
		GrabMs:        float64(m.LastGrabTime.Microseconds()) / 1000.0,
		NormalizeMs:   float64(m.LastNormalizeTime.Microseconds()) / 1000.0,
		WriteMs:       float64(m.LastWriteTime.Microseconds()) / 1000.0,
		LastFrameSize: m.LastFrameSize,
		LastError:     m.lastError,
		Uptime:        time.Since(m.startTime),
	}
}
