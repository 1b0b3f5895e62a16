package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/flightrec/agent/internal/logging"
)

var log = logging.L("audio")

// deviceSource captures PCM from an OS audio device via miniaudio.
// Loopback sources record the default render endpoint's output; capture
// sources record the default microphone.
type deviceSource struct {
	deviceType malgo.DeviceType
	sampleRate uint32
	channels   uint32

	mu      sync.Mutex
	started bool
	ctx     *malgo.AllocatedContext
	dev     *malgo.Device
}

// NewLoopbackSource returns a Source recording the system's audio output
// as if it were an input device (default render endpoint, shared mode).
func NewLoopbackSource(sampleRate, channels int) Source {
	return &deviceSource{
		deviceType: malgo.Loopback,
		sampleRate: uint32(sampleRate),
		channels:   uint32(channels),
	}
}

// NewMicrophoneSource returns a Source recording the default capture device.
func NewMicrophoneSource(sampleRate, channels int) Source {
	return &deviceSource{
		deviceType: malgo.Capture,
		sampleRate: uint32(sampleRate),
		channels:   uint32(channels),
	}
}

func (s *deviceSource) Start(onData func(pkt []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audio source already started")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(s.deviceType)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = s.channels
	deviceConfig.SampleRate = s.sampleRate
	// Device IDs left nil: default render endpoint for loopback, default
	// capture device for microphone.

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSample []byte, frameCount uint32) {
			if len(pInputSample) == 0 {
				return
			}
			// The subscriber copies; the backend reuses this buffer after
			// the callback returns.
			onData(pInputSample)
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init %s device: %w", s.kind(), err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start %s device: %w", s.kind(), err)
	}

	s.ctx = ctx
	s.dev = dev
	s.started = true

	log.Info("audio capture started",
		"kind", s.kind(),
		"sampleRate", s.sampleRate,
		"channels", s.channels,
	)
	return nil
}

func (s *deviceSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	if s.dev != nil {
		_ = s.dev.Stop()
		s.dev.Uninit()
		s.dev = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
}

func (s *deviceSource) kind() string {
	if s.deviceType == malgo.Loopback {
		return "loopback"
	}
	return "microphone"
}
