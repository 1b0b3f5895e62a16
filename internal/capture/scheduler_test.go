package capture

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flightrec/agent/internal/logging"
)

func runScheduler(t *testing.T, write func(*FrameBuffer) (int, error), fps int, runFor time.Duration) (*frameScheduler, *StreamMetrics) {
	t.Helper()

	grabber := NewSyntheticGrabber(32, 24)
	norm := NewNormalizer(32, 24)
	var stop atomic.Bool
	metrics := newStreamMetrics()
	sched := newFrameScheduler(grabber, norm, write, fps, &stop, metrics, logging.L("test"))

	go sched.run()
	time.Sleep(runFor)
	stop.Store(true)

	select {
	case <-sched.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	return sched, metrics
}

func TestSchedulerPacesFrames(t *testing.T) {
	var frames atomic.Uint64
	write := func(fb *FrameBuffer) (int, error) {
		frames.Add(1)
		return len(fb.Pix), nil
	}

	// 50 fps over ~500ms: expect roughly 25 frames; accept generous
	// slack for CI scheduling jitter.
	_, metrics := runScheduler(t, write, 50, 500*time.Millisecond)

	got := frames.Load()
	if got < 10 || got > 40 {
		t.Fatalf("frames = %d in 500ms at 50fps, want 10..40", got)
	}
	if metrics.Written() != got {
		t.Fatalf("metrics FramesWritten = %d, writes = %d", metrics.Written(), got)
	}
}

func TestSchedulerContinuesAfterWriteFailure(t *testing.T) {
	var calls atomic.Uint64
	failErr := errors.New("transient encode failure")
	write := func(fb *FrameBuffer) (int, error) {
		n := calls.Add(1)
		if n%2 == 0 {
			return 0, failErr
		}
		return len(fb.Pix), nil
	}

	_, metrics := runScheduler(t, write, 100, 300*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.FramesWritten == 0 {
		t.Fatal("no successful frames")
	}
	if snap.FramesFailed == 0 {
		t.Fatal("failures not recorded")
	}
	if snap.LastError != failErr.Error() {
		t.Fatalf("LastError = %q, want %q", snap.LastError, failErr.Error())
	}
}

func TestSchedulerSessionClosingNotAFailure(t *testing.T) {
	write := func(fb *FrameBuffer) (int, error) {
		return 0, errSessionClosing
	}

	_, metrics := runScheduler(t, write, 100, 100*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.FramesFailed != 0 {
		t.Fatalf("FramesFailed = %d for closing session, want 0", snap.FramesFailed)
	}
}

func TestSchedulerStopsPromptly(t *testing.T) {
	write := func(fb *FrameBuffer) (int, error) { return 0, nil }

	grabber := NewSyntheticGrabber(32, 24)
	norm := NewNormalizer(32, 24)
	var stop atomic.Bool
	sched := newFrameScheduler(grabber, norm, write, 1, &stop, newStreamMetrics(), logging.L("test"))

	go sched.run()
	time.Sleep(20 * time.Millisecond)

	stop.Store(true)
	start := time.Now()
	select {
	case <-sched.done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not observe stop flag")
	}
	// At 1 fps the loop idles between frames; the sleep quantum bounds
	// how stale the stop check can get.
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("stop took %v, want well under the frame interval", elapsed)
	}
}
