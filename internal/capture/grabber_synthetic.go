package capture

import (
	"image"
	"sync/atomic"
)

// SyntheticGrabber produces deterministic generated frames without touching
// a real display. Used for headless runs and frame-pacing tests. Frames are
// generated with deliberate row-stride padding so the normalization path is
// exercised the same way as with padded OS capture buffers.
type SyntheticGrabber struct {
	width  int
	height int
	frame  atomic.Uint64
}

// NewSyntheticGrabber returns a synthetic grabber at the given source
// resolution.
func NewSyntheticGrabber(width, height int) *SyntheticGrabber {
	return &SyntheticGrabber{width: width, height: height}
}

func (g *SyntheticGrabber) Grab() (*image.RGBA, error) {
	n := g.frame.Add(1)

	// Stride padded past 4*width to mimic aligned OS blit buffers.
	const pad = 32
	stride := g.width*4 + pad
	img := &image.RGBA{
		Pix:    make([]byte, stride*g.height),
		Stride: stride,
		Rect:   image.Rect(0, 0, g.width, g.height),
	}

	// Scrolling gradient keyed to the frame counter, so consecutive frames
	// differ and encoded sizes stay realistic.
	shift := byte(n * 7)
	for y := 0; y < g.height; y++ {
		row := img.Pix[y*stride:]
		for x := 0; x < g.width; x++ {
			i := x * 4
			row[i] = byte(x) + shift
			row[i+1] = byte(y)
			row[i+2] = shift
			row[i+3] = 0xFF
		}
	}
	return img, nil
}

func (g *SyntheticGrabber) Bounds() (int, int, error) {
	return g.width, g.height, nil
}

func (g *SyntheticGrabber) Close() error { return nil }

// Frames returns how many frames have been generated.
func (g *SyntheticGrabber) Frames() uint64 { return g.frame.Load() }

var _ Grabber = (*SyntheticGrabber)(nil)
