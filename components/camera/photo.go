package camera

import (
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/rimage"
)

// CapturedPhoto is one shutter event: the color photo and, when the device delivered it, the
// depth sample taken with it. The receiver owns it; the session keeps no reference.
type CapturedPhoto struct {
	ID         uuid.UUID
	Color      image.Image
	ColorBytes []byte
	MimeType   string
	CapturedAt time.Time
	Depth      mo.Option[*rimage.DepthSample]
}

// CaptureResult is delivered exactly once per successful Capture call: either a photo or an
// error wrapping ErrCaptureFailed.
type CaptureResult = mo.Result[CapturedPhoto]
