// Package camera defines the capture device boundary and the capture session that drives it.
package camera

import (
	"context"
	"image"

	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/rimage"
)

// Position is the side of the host a capture device faces.
type Position string

// Known positions.
const (
	PositionUnspecified Position = ""
	PositionBack        Position = "back"
	PositionFront       Position = "front"
)

// DeviceType is the lens class of a capture device.
type DeviceType string

// Known device types.
const (
	DeviceTypeWideAngle DeviceType = "wide_angle"
	DeviceTypeTelephoto DeviceType = "telephoto"
	DeviceTypeUltraWide DeviceType = "ultra_wide"
	DeviceTypeTrueDepth DeviceType = "true_depth"
)

// DeviceInfo describes a capture device without opening it.
type DeviceInfo struct {
	Name     string
	Position Position
	Type     DeviceType
}

// RawPhoto is what a device produces for a single still request. Depth is absent unless it was
// requested and the device could deliver it.
type RawPhoto struct {
	Color image.Image
	Depth mo.Option[*rimage.DepthSample]
}

// A Device is a physical or simulated capture device. Capture is only called between Open and
// Close and never concurrently with itself.
type Device interface {
	Info() DeviceInfo
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	SupportsDepth() bool
	Capture(ctx context.Context, withDepth bool) (RawPhoto, error)
}
