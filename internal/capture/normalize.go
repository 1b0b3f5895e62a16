package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// FrameBuffer is a tightly packed RGBA pixel buffer at the fixed output
// resolution: no row-stride padding, stride == 4*Width. It is transient and
// consumed synchronously by the container writer.
type FrameBuffer struct {
	Pix    []byte
	Width  int
	Height int
}

// Normalizer resizes captured frames to the fixed target resolution and
// strips row-stride padding into a tightly packed buffer. It reuses its
// scratch buffers across calls and is therefore not safe for concurrent
// use; the frame scheduler is its only caller.
type Normalizer struct {
	width  int
	height int
	scaled *image.RGBA
	out    FrameBuffer
}

// NewNormalizer creates a normalizer targeting width x height output.
func NewNormalizer(width, height int) *Normalizer {
	return &Normalizer{
		width:  width,
		height: height,
		scaled: image.NewRGBA(image.Rect(0, 0, width, height)),
		out: FrameBuffer{
			Pix:    make([]byte, width*height*4),
			Width:  width,
			Height: height,
		},
	}
}

// Normalize converts src into a packed frame buffer at the target
// resolution, resizing with Catmull-Rom interpolation when dimensions
// differ. The returned buffer is valid until the next call.
func (n *Normalizer) Normalize(src *image.RGBA) *FrameBuffer {
	b := src.Bounds()

	packed := src
	if b.Dx() != n.width || b.Dy() != n.height {
		draw.CatmullRom.Scale(n.scaled, n.scaled.Bounds(), src, b, draw.Src, nil)
		packed = n.scaled
	}

	n.pack(packed)
	return &n.out
}

// pack copies pixel rows into the output buffer, dropping any stride
// padding past 4*width per row.
func (n *Normalizer) pack(img *image.RGBA) {
	rowBytes := n.width * 4
	if img.Stride == rowBytes {
		copy(n.out.Pix, img.Pix[:rowBytes*n.height])
		return
	}
	for y := 0; y < n.height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		copy(n.out.Pix[y*rowBytes:], src)
	}
}
