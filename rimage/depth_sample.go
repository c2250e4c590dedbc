package rimage

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/x448/float16"
)

// SampleKind says whether a sample holds distances or their inverse.
type SampleKind int

const (
	// KindDepth samples hold distance from the camera.
	KindDepth SampleKind = iota
	// KindDisparity samples hold inverse distance; larger means nearer.
	KindDisparity
)

func (k SampleKind) String() string {
	switch k {
	case KindDepth:
		return "depth"
	case KindDisparity:
		return "disparity"
	default:
		return "unknown"
	}
}

// PixelEncoding is the native encoding the sample was produced in.
type PixelEncoding int

const (
	// EncodingFloat32 is one IEEE-754 single per pixel.
	EncodingFloat32 PixelEncoding = iota
	// EncodingFloat16 is one IEEE-754 half per pixel.
	EncodingFloat16
	// EncodingZ16 is one unsigned 16 bit millimetre value per pixel; zero means no reading.
	EncodingZ16
	// EncodingGray8 is an 8 bit value normalized over the sample's range.
	EncodingGray8
	// EncodingGray16 is a 16 bit value normalized over the sample's range.
	EncodingGray16
)

func (e PixelEncoding) String() string {
	switch e {
	case EncodingFloat32:
		return "float32"
	case EncodingFloat16:
		return "float16"
	case EncodingZ16:
		return "z16"
	case EncodingGray8:
		return "gray8"
	case EncodingGray16:
		return "gray16"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the size of one pixel in the encoding.
func (e PixelEncoding) BytesPerPixel() int {
	switch e {
	case EncodingFloat32:
		return 4
	case EncodingGray8:
		return 1
	case EncodingFloat16, EncodingZ16, EncodingGray16:
		return 2
	default:
		return 0
	}
}

// MillimetersPerMeter converts Z16 values.
const MillimetersPerMeter = 1000.0

// DepthRange is a calibrated distance interval, always expressed as depth (not disparity).
type DepthRange struct {
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
}

// Valid reports whether the range can be used for scaling.
func (r DepthRange) Valid() bool {
	return r.Near >= 0 && r.Far > r.Near && !math.IsInf(r.Far, 0) && !math.IsNaN(r.Near)
}

// DepthSample is a depth or disparity map aligned pixel for pixel (up to an integer ratio)
// with a color photo. Values are stored row-major. A DepthSample is never mutated after it is
// constructed.
type DepthSample struct {
	kind     SampleKind
	encoding PixelEncoding
	width    int
	height   int
	values   []float32
	rng      mo.Option[DepthRange]
}

// NewDepthSample makes a sample from already decoded values. The values slice is copied.
func NewDepthSample(kind SampleKind, encoding PixelEncoding, width, height int, values []float32) (*DepthSample, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth sample %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, errors.Errorf("depth sample has %d values, expected %d for %dx%d", len(values), width*height, width, height)
	}
	copied := make([]float32, len(values))
	copy(copied, values)
	return &DepthSample{
		kind:     kind,
		encoding: encoding,
		width:    width,
		height:   height,
		values:   copied,
		rng:      mo.None[DepthRange](),
	}, nil
}

// DecodeDepthSample decodes a native pixel buffer. Z16 values become metres with zero mapped to
// NaN. Gray8/Gray16 values become their normalized fraction in [0, 1].
func DecodeDepthSample(
	kind SampleKind,
	encoding PixelEncoding,
	width, height int,
	raw []byte,
	order binary.ByteOrder,
) (*DepthSample, error) {
	bpp := encoding.BytesPerPixel()
	if bpp == 0 {
		return nil, errors.Errorf("unsupported depth encoding %v", encoding)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth sample %dx%d", width, height)
	}
	if expected := bpp * width * height; len(raw) != expected {
		return nil, errors.Errorf("depth buffer length (%d) not expected size (%d)", len(raw), expected)
	}
	if order == nil {
		order = binary.LittleEndian
	}

	values := make([]float32, width*height)
	for i := range values {
		px := raw[i*bpp : (i+1)*bpp]
		switch encoding {
		case EncodingFloat32:
			values[i] = math.Float32frombits(order.Uint32(px))
		case EncodingFloat16:
			values[i] = float16.Frombits(order.Uint16(px)).Float32()
		case EncodingZ16:
			values[i] = z16ToMeters(order.Uint16(px))
		case EncodingGray8:
			values[i] = float32(px[0]) / math.MaxUint8
		case EncodingGray16:
			values[i] = float32(order.Uint16(px)) / math.MaxUint16
		}
	}
	return &DepthSample{
		kind:     kind,
		encoding: encoding,
		width:    width,
		height:   height,
		values:   values,
		rng:      mo.None[DepthRange](),
	}, nil
}

func z16ToMeters(mm uint16) float32 {
	if mm == 0 {
		return float32(math.NaN())
	}
	return float32(float64(mm) / MillimetersPerMeter)
}

// DepthSampleFromImage builds a sample out of a decoded single channel image. A *image.Gray16
// with EncodingZ16 is treated as millimetres (the layout of Z16 camera frames); otherwise the
// luminance is normalized into [0, 1].
func DepthSampleFromImage(kind SampleKind, encoding PixelEncoding, img image.Image) (*DepthSample, error) {
	if img == nil {
		return nil, errors.New("no image to build a depth sample from")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth image %dx%d", width, height)
	}

	values := make([]float32, width*height)
	switch typed := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := typed.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
				if encoding == EncodingZ16 {
					values[y*width+x] = z16ToMeters(v)
				} else {
					values[y*width+x] = float32(v) / math.MaxUint16
				}
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				values[y*width+x] = float32(typed.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / math.MaxUint8
			}
		}
	default:
		if encoding == EncodingZ16 {
			return nil, errors.Errorf("z16 depth requires a 16 bit gray image, got %T", img)
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				values[y*width+x] = float32(g.Y) / math.MaxUint16
			}
		}
	}
	return &DepthSample{
		kind:     kind,
		encoding: encoding,
		width:    width,
		height:   height,
		values:   values,
		rng:      mo.None[DepthRange](),
	}, nil
}

// WithRange returns a copy of the sample carrying a calibrated depth range.
func (s *DepthSample) WithRange(rng DepthRange) *DepthSample {
	out := *s
	out.rng = mo.Some(rng)
	return &out
}

// Kind returns whether the sample is depth or disparity.
func (s *DepthSample) Kind() SampleKind {
	return s.kind
}

// Encoding returns the native encoding the sample was decoded from.
func (s *DepthSample) Encoding() PixelEncoding {
	return s.encoding
}

// Width returns the horizontal resolution.
func (s *DepthSample) Width() int {
	return s.width
}

// Height returns the vertical resolution.
func (s *DepthSample) Height() int {
	return s.height
}

// Bounds returns the sample rectangle anchored at the origin.
func (s *DepthSample) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// Range returns the calibrated depth range, if the producer knew one.
func (s *DepthSample) Range() mo.Option[DepthRange] {
	return s.rng
}

// At returns the raw value at (x, y) in the sample's own units.
func (s *DepthSample) At(x, y int) float32 {
	return s.values[y*s.width+x]
}

// Empty reports whether the sample holds no pixels.
func (s *DepthSample) Empty() bool {
	return s == nil || s.width == 0 || s.height == 0 || len(s.values) == 0
}

// AlignsWith reports whether the sample can be overlaid on an image with the given bounds:
// either equal dimensions or a uniform scale on both axes.
func (s *DepthSample) AlignsWith(bounds image.Rectangle) bool {
	return dimensionsAlign(s.width, s.height, bounds.Dx(), bounds.Dy())
}

// aspectTolerance absorbs the rounding of scaled sensor resolutions.
const aspectTolerance = 0.01

func dimensionsAlign(w, h, otherW, otherH int) bool {
	if w <= 0 || h <= 0 || otherW <= 0 || otherH <= 0 {
		return false
	}
	if w == otherW && h == otherH {
		return true
	}
	cross := float64(w * otherH)
	return math.Abs(cross-float64(h*otherW)) <= aspectTolerance*cross
}
