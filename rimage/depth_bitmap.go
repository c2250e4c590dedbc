package rimage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// MidIntensity is what a flat depth map renders as.
const MidIntensity = 128

// ErrMisaligned is returned when a bitmap cannot be overlaid on an image of the requested size.
var ErrMisaligned = errors.New("depth bitmap is not aligned with the color image")

// DepthBitmap is the display-ready rendering of a depth map: one 8 bit intensity per pixel.
// It implements image.Image and is never mutated after construction.
type DepthBitmap struct {
	gray *image.Gray
}

func newDepthBitmap(width, height int) *DepthBitmap {
	return &DepthBitmap{gray: image.NewGray(image.Rect(0, 0, width, height))}
}

// NewDepthBitmapFromGray wraps a copy of a grayscale image.
func NewDepthBitmapFromGray(img *image.Gray) *DepthBitmap {
	out := newDepthBitmap(img.Bounds().Dx(), img.Bounds().Dy())
	draw.Draw(out.gray, out.gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Width returns the horizontal resolution.
func (b *DepthBitmap) Width() int {
	return b.gray.Rect.Dx()
}

// Height returns the vertical resolution.
func (b *DepthBitmap) Height() int {
	return b.gray.Rect.Dy()
}

// ColorModel returns the gray color model.
func (b *DepthBitmap) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the bitmap rectangle anchored at the origin.
func (b *DepthBitmap) Bounds() image.Rectangle {
	return b.gray.Rect
}

// At returns the gray color at (x, y).
func (b *DepthBitmap) At(x, y int) color.Color {
	return b.gray.GrayAt(x, y)
}

// IntensityAt returns the raw intensity at (x, y).
func (b *DepthBitmap) IntensityAt(x, y int) uint8 {
	return b.gray.GrayAt(x, y).Y
}

// Gray returns a copy of the underlying grayscale image.
func (b *DepthBitmap) Gray() *image.Gray {
	out := image.NewGray(b.gray.Rect)
	copy(out.Pix, b.gray.Pix)
	return out
}

// AlignTo rescales the bitmap to the given bounds so it can be overlaid directly on a color
// image of that size. Both axes must scale by the same factor.
func (b *DepthBitmap) AlignTo(bounds image.Rectangle) (*DepthBitmap, error) {
	w, h := bounds.Dx(), bounds.Dy()
	if w == b.Width() && h == b.Height() {
		return b, nil
	}
	if !dimensionsAlign(b.Width(), b.Height(), w, h) {
		return nil, errors.Wrapf(ErrMisaligned, "bitmap is %dx%d, image is %dx%d", b.Width(), b.Height(), w, h)
	}
	// nearest neighbour keeps every output intensity one that the normalizer produced.
	scaled := resize.Resize(uint(w), uint(h), b.gray, resize.NearestNeighbor)
	if gray, ok := scaled.(*image.Gray); ok {
		return &DepthBitmap{gray: gray}, nil
	}
	out := newDepthBitmap(w, h)
	draw.Draw(out.gray, out.gray.Bounds(), scaled, scaled.Bounds().Min, draw.Src)
	return out, nil
}

// Colorize renders the bitmap with a hue ramp instead of gray levels, which is easier to read
// for small depth differences. Zero intensity pixels stay black.
func (b *DepthBitmap) Colorize() *image.NRGBA {
	out := image.NewNRGBA(b.gray.Rect)
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			v := b.IntensityAt(x, y)
			if v == 0 {
				out.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			ratio := float64(v) / 255
			hue := 30 + (200.0 * ratio)
			r, g, bl := colorful.Hsv(hue, 1.0, 1.0).Clamped().RGB255()
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: 255})
		}
	}
	return out
}
