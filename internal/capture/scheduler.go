package capture

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// sleepQuantum bounds how long the scheduler sleeps between deadline
// checks, so a stop request is observed promptly.
const sleepQuantum = 10 * time.Millisecond

// frameScheduler drives the paced capture loop: grab, normalize, write, at
// a fixed frame interval. Pacing uses absolute deadlines that advance by
// one interval per frame, so a slow frame is followed by immediate
// catch-up frames rather than a dropped slot.
type frameScheduler struct {
	grabber  Grabber
	norm     *Normalizer
	write    func(*FrameBuffer) (int, error)
	interval time.Duration
	stop     *atomic.Bool
	metrics  *StreamMetrics
	log      *slog.Logger
	done     chan struct{}
}

func newFrameScheduler(grabber Grabber, norm *Normalizer, write func(*FrameBuffer) (int, error), fps int, stop *atomic.Bool, metrics *StreamMetrics, log *slog.Logger) *frameScheduler {
	return &frameScheduler{
		grabber:  grabber,
		norm:     norm,
		write:    write,
		interval: time.Second / time.Duration(fps),
		stop:     stop,
		metrics:  metrics,
		log:      log,
		done:     make(chan struct{}),
	}
}

// run loops until the stop flag is set, then closes done. Per-frame errors
// are recorded and logged but never terminate the loop.
func (s *frameScheduler) run() {
	defer close(s.done)

	next := time.Now()
	for {
		if s.stop.Load() {
			return
		}

		now := time.Now()
		if now.Before(next) {
			d := next.Sub(now)
			if d > sleepQuantum {
				d = sleepQuantum
			}
			time.Sleep(d)
			continue
		}

		s.captureFrame()
		next = next.Add(s.interval)

		// If we fell far behind (display driver stall, debugger pause),
		// re-anchor instead of bursting an unbounded backlog.
		if time.Since(next) > 2*time.Second {
			next = time.Now()
		}
	}
}

func (s *frameScheduler) captureFrame() {
	grabStart := time.Now()
	img, err := s.grabber.Grab()
	if err != nil {
		s.metrics.RecordFailure(err)
		s.log.Debug("frame grab failed", "error", err)
		return
	}
	s.metrics.RecordGrab(time.Since(grabStart))

	normStart := time.Now()
	fb := s.norm.Normalize(img)
	s.metrics.RecordNormalize(time.Since(normStart))

	writeStart := time.Now()
	size, err := s.write(fb)
	if err != nil {
		if err == errSessionClosing {
			return
		}
		s.metrics.RecordFailure(err)
		s.log.Debug("frame write failed", "error", err)
		return
	}
	s.metrics.RecordWrite(time.Since(writeStart), size)
}
