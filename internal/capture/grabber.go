// Package capture implements the continuous multi-source capture engine:
// paced screen frames muxed into an MJPEG container, loopback and
// microphone audio streamed to WAV sinks, a time-windowed rolling buffer
// of loopback audio, and a session controller with atomic flag-and-restart.
package capture

import (
	"errors"
	"image"
)

// Grabber captures a full-desktop pixel snapshot on demand.
type Grabber interface {
	// Grab captures the desktop and returns the raw pixel buffer. The
	// returned image may carry row-stride padding; callers normalize it
	// before encoding.
	Grab() (*image.RGBA, error)

	// Bounds returns the capture dimensions.
	Bounds() (width, height int, err error)

	// Close releases any resources held by the grabber.
	Close() error
}

// ErrNoDisplay is returned when no active display is available for capture.
var ErrNoDisplay = errors.New("no active display found")
