package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// displayGrabber captures a physical display through the OS composition
// path (GDI on Windows, CoreGraphics on macOS, X11 on Linux).
type displayGrabber struct {
	display int
}

// NewDisplayGrabber returns a Grabber for the given display index
// (0 = primary).
func NewDisplayGrabber(display int) (Grabber, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}
	if display < 0 || display >= n {
		display = 0
	}
	return &displayGrabber{display: display}, nil
}

func (g *displayGrabber) Grab() (*image.RGBA, error) {
	img, err := screenshot.CaptureDisplay(g.display)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", g.display, err)
	}
	return img, nil
}

func (g *displayGrabber) Bounds() (int, int, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return 0, 0, ErrNoDisplay
	}
	b := screenshot.GetDisplayBounds(g.display)
	return b.Dx(), b.Dy(), nil
}

func (g *displayGrabber) Close() error { return nil }

var _ Grabber = (*displayGrabber)(nil)
