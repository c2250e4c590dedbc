// Package pipeline connects the capture session and the auxiliary depth extractor to the
// normalizer and hands overlays, a color image with an aligned depth bitmap, to a continuation.
package pipeline

import (
	"image"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
)

// OverlayOpacity is the opacity a presentation layer blends the depth bitmap with.
const OverlayOpacity = 0.6

// Source tells which pipeline produced an overlay.
type Source string

const (
	// SourceLive overlays come from a capture session.
	SourceLive Source = "live"
	// SourceImported overlays come from a stored image file.
	SourceImported Source = "imported"
)

// An Overlay is a color image and, when depth was available, a bitmap with exactly the color
// image's dimensions.
type Overlay struct {
	ID     uuid.UUID
	Color  image.Image
	Depth  mo.Option[*rimage.DepthBitmap]
	Source Source
	// Path is the file an imported overlay was read from.
	Path string
}

// alignedDepth rescales bitmap to the color image. A bitmap that cannot be aligned is dropped.
func alignedDepth(logger logging.Logger, color image.Image, bitmap mo.Option[*rimage.DepthBitmap]) mo.Option[*rimage.DepthBitmap] {
	bm, ok := bitmap.Get()
	if !ok {
		return bitmap
	}
	aligned, err := bm.AlignTo(color.Bounds())
	if err != nil {
		logger.Warnw("dropping depth bitmap", "error", err)
		return mo.None[*rimage.DepthBitmap]()
	}
	return mo.Some(aligned)
}
