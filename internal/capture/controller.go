package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flightrec/agent/internal/audio"
	"github.com/flightrec/agent/internal/config"
	"github.com/flightrec/agent/internal/logging"
	"github.com/flightrec/agent/internal/workerpool"
)

// Controller states. Transitions only happen under opMu; the atomic lets
// IsRecording and the frame path read the state without the lock.
const (
	stateIdle int32 = iota
	stateStarting
	stateRecording
	stateStopping
)

var (
	// ErrAlreadyRecording is returned by Start while a session is live.
	ErrAlreadyRecording = errors.New("capture session already recording")
	// ErrNotRecording is returned by FlagAndRestart with no live session.
	ErrNotRecording = errors.New("no capture session recording")
	// ErrDiskFull is returned by Start when the output volume is below the
	// configured free-space floor.
	ErrDiskFull = errors.New("insufficient free disk space")

	// errSessionClosing tells the frame scheduler the container is gone;
	// not a frame failure.
	errSessionClosing = errors.New("session closing")
)

// Deps are the controller's device and sink factories. Production wiring
// comes from NewController; tests substitute fakes per field.
type Deps struct {
	NewLoopback   func(sampleRate int) audio.Source
	NewMicrophone func(sampleRate int) audio.Source
	NewGrabber    func() (Grabber, error)
	OpenContainer func(path string, width, height, fps int) (VideoContainer, error)
	FreeDisk      func(path string) (uint64, error)
}

func defaultDeps(cfg *config.Config) Deps {
	d := Deps{
		NewLoopback: func(rate int) audio.Source {
			return audio.NewLoopbackSource(rate, 2)
		},
		NewMicrophone: func(rate int) audio.Source {
			return audio.NewMicrophoneSource(rate, 1)
		},
		NewGrabber: func() (Grabber, error) {
			return NewDisplayGrabber(0)
		},
		OpenContainer: openMJPEGContainer,
		FreeDisk:      freeDiskBytes,
	}
	if cfg.Synthetic {
		d.NewLoopback = func(rate int) audio.Source {
			return audio.NewToneSource(rate, 2, 440)
		}
		d.NewMicrophone = func(rate int) audio.Source {
			return audio.NewToneSource(rate, 1, 220)
		}
		d.NewGrabber = func() (Grabber, error) {
			return NewSyntheticGrabber(cfg.FrameWidth, cfg.FrameHeight), nil
		}
	}
	return d
}

// Controller owns one recording session at a time. All lifecycle operations
// take opMu, so concurrent Start/Stop/FlagAndRestart calls serialize; the
// hot paths (frame writes, audio callbacks) never take opMu.
type Controller struct {
	cfg  *config.Config
	deps Deps
	log  *slog.Logger
	pool *workerpool.Pool

	opMu  sync.Mutex
	state atomic.Int32

	// videoMu guards the container writer against the teardown path.
	// writeVideoFrame rechecks the session stop flag inside the lock, so a
	// frame racing a stop can never touch a disposed writer. The generation
	// counter fences schedulers that outlived a join timeout: a stale
	// scheduler carries an old generation and can never write into a
	// later session's container.
	videoMu    sync.Mutex
	container  *ContainerWriter
	generation uint64

	rolling *RollingBuffer
	metrics atomic.Pointer[StreamMetrics]
	session atomic.Pointer[Session]

	loopback     audio.Source
	mic          audio.Source
	loopbackSink *audio.PCMSink
	micSink      *audio.PCMSink

	// stop is the live session's stop flag. Allocated fresh per session so
	// a scheduler that outlived a join timeout keeps observing its own
	// session's flag and retires, instead of resuming when a later session
	// starts. Written in startLocked and read in stopLocked, both under
	// opMu; schedulers hold their own pointer.
	stop      *atomic.Bool
	schedDone chan struct{}
}

// NewController builds a controller with production device wiring, or
// synthetic sources when cfg.Synthetic is set.
func NewController(cfg *config.Config) *Controller {
	return NewControllerWithDeps(cfg, defaultDeps(cfg))
}

// NewControllerWithDeps builds a controller with explicit factories.
func NewControllerWithDeps(cfg *config.Config, deps Deps) *Controller {
	c := &Controller{
		cfg:     cfg,
		deps:    deps,
		log:     logging.L("capture"),
		pool:    workerpool.New(1, 8),
		rolling: NewRollingBuffer(time.Duration(cfg.RollingWindowSeconds) * time.Second),
	}
	c.metrics.Store(newStreamMetrics())
	return c
}

// IsRecording reports whether a session is live. Lock-free.
func (c *Controller) IsRecording() bool {
	return c.state.Load() == stateRecording
}

// StartedAt returns the live session's start time, or the zero time when
// idle.
func (c *Controller) StartedAt() time.Time {
	if s := c.session.Load(); s != nil && c.IsRecording() {
		return s.Started
	}
	return time.Time{}
}

// Metrics returns a snapshot of the current (or most recent) session's
// stream metrics.
func (c *Controller) Metrics() MetricsSnapshot {
	return c.metrics.Load().Snapshot()
}

// CapturedFiles returns the current (or most recent) session's file paths.
// Zero value when no session has ever started.
func (c *Controller) CapturedFiles() CapturedFiles {
	if s := c.session.Load(); s != nil {
		return s.Files()
	}
	return CapturedFiles{}
}

// FramesWritten returns the successful frame count for the current (or
// most recent) session.
func (c *Controller) FramesWritten() uint64 {
	return c.metrics.Load().Written()
}

// LastVideoError returns the most recent soft video failure, or "" if the
// session has had none.
func (c *Controller) LastVideoError() string {
	return c.metrics.Load().LastError()
}

// RollingWindow returns the retained loopback segments, oldest first.
func (c *Controller) RollingWindow() []Segment {
	return c.rolling.Snapshot()
}

// Start begins a new recording session. Fails if one is already live, if
// the output volume is near-full, or if the loopback device cannot be
// opened; microphone and video failures degrade the session instead.
func (c *Controller) Start() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startLocked()
}

func (c *Controller) startLocked() error {
	if c.state.Load() != stateIdle {
		return ErrAlreadyRecording
	}
	c.state.Store(stateStarting)

	if err := c.prepare(); err != nil {
		c.state.Store(stateIdle)
		return err
	}

	sess := newSession(c.cfg.OutputDir)
	c.session.Store(sess)
	c.metrics.Store(newStreamMetrics())

	stop := new(atomic.Bool)
	c.stop = stop

	log := logging.WithSession(c.log, sess.ID)

	if err := c.openLoopback(sess, log); err != nil {
		c.session.Store(nil)
		c.state.Store(stateIdle)
		return err
	}

	c.openMicrophone(sess, log)
	gen := c.openVideo(sess, log)

	// Recording state is visible before the scheduler runs, so a frame
	// written immediately still sees a live session.
	c.state.Store(stateRecording)

	if c.container != nil {
		grabber := c.grabberForSession(sess, log)
		if grabber != nil {
			norm := NewNormalizer(c.cfg.FrameWidth, c.cfg.FrameHeight)
			write := func(fb *FrameBuffer) (int, error) {
				return c.writeVideoFrame(gen, stop, fb)
			}
			sched := newFrameScheduler(grabber, norm, write,
				c.cfg.FrameRate, stop, c.metrics.Load(), log)
			c.schedDone = sched.done
			go func() {
				defer grabber.Close()
				sched.run()
			}()
		}
	}

	log.Info("capture session started",
		"video", c.container != nil,
		"mic", c.mic != nil,
		"window_seconds", c.cfg.RollingWindowSeconds)
	return nil
}

// prepare ensures the output directory exists and has headroom.
func (c *Controller) prepare() error {
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if c.deps.FreeDisk != nil && c.cfg.MinFreeDiskMB > 0 {
		free, err := c.deps.FreeDisk(c.cfg.OutputDir)
		if err != nil {
			c.log.Warn("disk free check failed", "error", err)
		} else if free < uint64(c.cfg.MinFreeDiskMB)*1024*1024 {
			return fmt.Errorf("%w: %d MB free, need %d MB",
				ErrDiskFull, free/(1024*1024), c.cfg.MinFreeDiskMB)
		}
	}
	return nil
}

// openLoopback opens the loopback sink and device. Any failure here aborts
// the start: system audio is the one stream the engine exists to capture.
func (c *Controller) openLoopback(sess *Session, log *slog.Logger) error {
	sink, err := audio.NewPCMSink(sess.AudioPath(), c.cfg.SampleRate, 2)
	if err != nil {
		return fmt.Errorf("open loopback sink: %w", err)
	}

	src := c.deps.NewLoopback(c.cfg.SampleRate)
	if err := src.Start(func(pkt []byte) {
		c.rolling.Append(pkt)
		if _, err := sink.Write(pkt); err != nil && !errors.Is(err, os.ErrClosed) {
			log.Debug("loopback sink write failed", "error", err)
		}
	}); err != nil {
		sink.Close()
		os.Remove(sess.AudioPath())
		return fmt.Errorf("start loopback capture: %w", err)
	}

	c.loopback = src
	c.loopbackSink = sink
	return nil
}

// openMicrophone is best-effort: a missing or busy microphone degrades the
// session to loopback-only.
func (c *Controller) openMicrophone(sess *Session, log *slog.Logger) {
	if !c.cfg.CaptureMic {
		return
	}

	sink, err := audio.NewPCMSink(sess.MicPath(), c.cfg.SampleRate, 1)
	if err != nil {
		log.Warn("microphone sink unavailable, continuing without mic", "error", err)
		return
	}

	src := c.deps.NewMicrophone(c.cfg.SampleRate)
	if err := src.Start(func(pkt []byte) {
		if _, err := sink.Write(pkt); err != nil && !errors.Is(err, os.ErrClosed) {
			log.Debug("mic sink write failed", "error", err)
		}
	}); err != nil {
		sink.Close()
		os.Remove(sess.MicPath())
		log.Warn("microphone unavailable, continuing without mic", "error", err)
		return
	}

	c.mic = src
	c.micSink = sink
	sess.hasMic = true
}

// openVideo is best-effort: a failed container open degrades the session to
// audio-only. Returns the session's container generation.
func (c *Controller) openVideo(sess *Session, log *slog.Logger) uint64 {
	container, err := c.deps.OpenContainer(sess.VideoPath(),
		c.cfg.FrameWidth, c.cfg.FrameHeight, c.cfg.FrameRate)
	if err != nil {
		log.Warn("video container unavailable, continuing audio-only", "error", err)
		return 0
	}

	c.videoMu.Lock()
	c.generation++
	gen := c.generation
	c.container = newContainerWriter(container, c.cfg.JPEGQuality)
	c.videoMu.Unlock()
	sess.hasVideo = true
	return gen
}

func (c *Controller) grabberForSession(sess *Session, log *slog.Logger) Grabber {
	grabber, err := c.deps.NewGrabber()
	if err != nil {
		log.Warn("screen grabber unavailable, continuing audio-only", "error", err)
		c.videoMu.Lock()
		if c.container != nil {
			c.container.Close()
			c.container = nil
		}
		c.videoMu.Unlock()
		sess.hasVideo = false
		os.Remove(sess.VideoPath())
		return nil
	}
	return grabber
}

// writeVideoFrame is the scheduler's sink. It rechecks the session's stop
// flag and the container generation under the video lock, so a frame racing
// teardown, or a scheduler that outlived a join timeout, observes a closed
// session instead of touching a disposed or foreign writer.
func (c *Controller) writeVideoFrame(gen uint64, stop *atomic.Bool, fb *FrameBuffer) (int, error) {
	c.videoMu.Lock()
	defer c.videoMu.Unlock()

	if stop.Load() || c.container == nil || gen != c.generation {
		return 0, errSessionClosing
	}
	return c.container.WriteFrame(fb)
}

// Stop ends the live session. Idempotent: stopping an idle controller is a
// no-op. Teardown order is fixed: raise the stop flag, stop the audio
// devices, join the frame scheduler (bounded), wait out the callback drain
// delay, then dispose sinks and container.
func (c *Controller) Stop() (CapturedFiles, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() (CapturedFiles, error) {
	if c.state.Load() != stateRecording {
		return CapturedFiles{}, nil
	}
	c.state.Store(stateStopping)

	sess := c.session.Load()
	log := logging.WithSession(c.log, sess.ID)
	metrics := c.metrics.Load()

	if c.stop != nil {
		c.stop.Store(true)
	}

	if c.loopback != nil {
		c.loopback.Stop()
	}
	if c.mic != nil {
		c.mic.Stop()
	}

	if c.schedDone != nil {
		joinTimeout := time.Duration(c.cfg.JoinTimeoutSeconds) * time.Second
		select {
		case <-c.schedDone:
		case <-time.After(joinTimeout):
			metrics.RecordJoinTimeout()
			log.Warn("frame scheduler join timed out, proceeding with teardown",
				"timeout_seconds", c.cfg.JoinTimeoutSeconds)
		}
		c.schedDone = nil
	}

	// Late audio callbacks may still be in flight on OS threads; give
	// them a moment before the sinks close.
	time.Sleep(time.Duration(c.cfg.DrainDelayMillis) * time.Millisecond)

	var report cleanupReport
	c.disposeWriters(&report)

	c.loopback = nil
	c.mic = nil
	sess.finish()
	c.state.Store(stateIdle)

	files := sess.Files()
	snap := metrics.Snapshot()
	log.Info("capture session stopped",
		"frames_written", snap.FramesWritten,
		"frames_failed", snap.FramesFailed,
		"duration", files.Ended.Sub(files.Started).Round(time.Millisecond))
	for _, step := range report.failed() {
		log.Warn("teardown step failed", "step", step.name, "error", step.err)
	}

	manifestPath := sess.ManifestPath()
	manifest := buildManifest(files, snap)
	c.pool.Submit(func() {
		if err := writeManifest(manifestPath, manifest); err != nil {
			c.log.Warn("manifest write failed", "error", err)
		}
	})

	return files, nil
}

// disposeWriters closes the sinks and the container. Runs every step even
// when earlier ones fail.
func (c *Controller) disposeWriters(report *cleanupReport) {
	if c.loopbackSink != nil {
		report.record("close loopback sink", c.loopbackSink.Close())
		c.loopbackSink = nil
	}
	if c.micSink != nil {
		report.record("close mic sink", c.micSink.Close())
		c.micSink = nil
	}

	c.videoMu.Lock()
	if c.container != nil {
		report.record("close video container", c.container.Close())
		c.container = nil
	}
	c.videoMu.Unlock()
}

// FlagAndRestart atomically ends the live session and begins a fresh one
// with new file paths, under a single lock acquisition so no other
// lifecycle operation interleaves. The rolling loopback window survives the
// boundary. On return the controller is recording again.
func (c *Controller) FlagAndRestart() (CapturedFiles, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.state.Load() != stateRecording {
		return CapturedFiles{}, ErrNotRecording
	}

	files, err := c.stopLocked()
	if err != nil {
		return files, fmt.Errorf("flag stop: %w", err)
	}
	if err := c.startLocked(); err != nil {
		return files, fmt.Errorf("flag restart: %w", err)
	}
	return files, nil
}

// CleanupTempFiles sweeps stale session artifacts from the output
// directory. Refused while a session is live so the sweep cannot race the
// writers; the live session's own files are always newer than any sensible
// maxAge anyway.
func (c *Controller) CleanupTempFiles(maxAge time.Duration) ([]string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.state.Load() != stateIdle {
		return nil, ErrAlreadyRecording
	}
	removed, err := SweepStaleFiles(c.cfg.OutputDir, maxAge)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		c.log.Info("swept stale session files", "count", len(removed))
	}
	return removed, nil
}

// Shutdown stops any live session and drains background work. The
// controller is unusable afterwards.
func (c *Controller) Shutdown() (CapturedFiles, error) {
	files, err := c.Stop()
	c.pool.ShutdownTimeout(5 * time.Second)
	return files, err
}
