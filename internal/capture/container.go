package capture

import (
	"fmt"
	"image"
	"image/jpeg"

	"github.com/icza/mjpeg"
)

// VideoContainer appends JPEG-encoded frames to a video container and
// finalizes it (flush, index write) on Close. The production implementation
// is an MJPEG AVI writer; tests substitute a recording fake.
type VideoContainer interface {
	AddFrame(jpegData []byte) error
	Close() error
}

// openMJPEGContainer opens an MJPEG AVI file with fixed stream parameters.
func openMJPEGContainer(path string, width, height, fps int) (VideoContainer, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("open avi container: %w", err)
	}
	return aw, nil
}

// ContainerWriter JPEG-encodes normalized frame buffers and appends them to
// the container. It is not internally thread-safe: the session controller
// serializes every WriteFrame and the Close under the video lock, and Close
// is only reached after the producing goroutine has been joined.
type ContainerWriter struct {
	container VideoContainer
	quality   int
}

func newContainerWriter(container VideoContainer, quality int) *ContainerWriter {
	return &ContainerWriter{container: container, quality: quality}
}

// WriteFrame encodes one packed frame and appends it, returning the encoded
// size in bytes.
func (w *ContainerWriter) WriteFrame(fb *FrameBuffer) (int, error) {
	img := &image.RGBA{
		Pix:    fb.Pix,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: w.quality}); err != nil {
		return 0, fmt.Errorf("jpeg encode: %w", err)
	}
	if err := w.container.AddFrame(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("append frame: %w", err)
	}
	return buf.Len(), nil
}

// Close finalizes the container. Must only be called after the frame
// producer has been joined.
func (w *ContainerWriter) Close() error {
	return w.container.Close()
}
