package rimage

import (
	"math"

	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/utils"
)

// RangeMode selects where the scaling interval for rasterization comes from.
type RangeMode string

const (
	// RangeObserved scales between the smallest and largest finite distance in the map.
	RangeObserved RangeMode = "observed"
	// RangeCalibrated uses the sample's calibrated range when it has one and falls back to
	// RangeObserved otherwise.
	RangeCalibrated RangeMode = "calibrated"
)

// NormalizerOptions configures a Normalizer.
type NormalizerOptions struct {
	RangeMode RangeMode
	// Override, when set, is used for every sample regardless of RangeMode.
	Override mo.Option[DepthRange]
	// FarIsBright flips the default near-is-bright rendering.
	FarIsBright bool
}

// Normalizer turns depth samples of any kind and encoding into display bitmaps. It holds no
// per-sample state and is safe for concurrent use.
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer returns a normalizer with the given options.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.RangeMode == "" {
		opts.RangeMode = RangeCalibrated
	}
	return &Normalizer{opts: opts}
}

// Normalize converts a sample into a bitmap. An absent or empty sample yields an absent bitmap.
func (n *Normalizer) Normalize(sample mo.Option[*DepthSample]) mo.Option[*DepthBitmap] {
	s, ok := sample.Get()
	if !ok || s.Empty() {
		return mo.None[*DepthBitmap]()
	}
	dm, ok := ToDepthMap(s).Get()
	if !ok {
		return mo.None[*DepthBitmap]()
	}
	return mo.Some(n.Rasterize(dm, n.scalingRange(s)))
}

func (n *Normalizer) scalingRange(s *DepthSample) mo.Option[DepthRange] {
	if rng, ok := n.opts.Override.Get(); ok && rng.Valid() {
		return mo.Some(rng)
	}
	if n.opts.RangeMode == RangeCalibrated {
		if rng, ok := s.Range().Get(); ok && rng.Valid() {
			return mo.Some(rng)
		}
	}
	return mo.None[DepthRange]()
}

// ToDepthMap converts a sample into canonical per-pixel depth. Disparity is inverted as 1/d;
// non-positive disparity is infinitely far. NaN stays NaN.
func ToDepthMap(s *DepthSample) mo.Option[*DepthMap] {
	if s.Empty() {
		return mo.None[*DepthMap]()
	}
	dm := &DepthMap{width: s.width, height: s.height, data: make([]float32, len(s.values))}
	if s.kind != KindDisparity {
		copy(dm.data, s.values)
		return mo.Some(dm)
	}
	utils.ParallelForEachRow(s.height, func(y int) {
		row := y * s.width
		for x := 0; x < s.width; x++ {
			dm.data[row+x] = disparityToDepth(s.values[row+x])
		}
	})
	return mo.Some(dm)
}

func disparityToDepth(d float32) float32 {
	switch {
	case math.IsNaN(float64(d)):
		return d
	case d <= 0:
		return float32(math.Inf(1))
	default:
		return 1 / d
	}
}

// Rasterize maps distances linearly onto [0, 255]. The interval is rng when present, otherwise
// the map's finite min and max. Values outside the interval are clamped, +Inf renders as the far
// end and NaN renders as 0. A flat map, or a flat interval, renders every pixel with a reading at
// MidIntensity even when rng is present.
func (n *Normalizer) Rasterize(dm *DepthMap, rng mo.Option[DepthRange]) *DepthBitmap {
	out := newDepthBitmap(dm.width, dm.height)

	minD, maxD, observed := dm.MinMax()
	lo, hi := minD, maxD
	if r, ok := rng.Get(); ok {
		lo, hi = r.Near, r.Far
	}
	span := hi - lo
	flat := (observed && minD == maxD) || !(span > 0)
	farIsBright := n.opts.FarIsBright

	utils.ParallelForEachRow(dm.height, func(y int) {
		row := y * dm.width
		pixRow := y * out.gray.Stride
		for x := 0; x < dm.width; x++ {
			z := float64(dm.data[row+x])
			if math.IsNaN(z) {
				out.gray.Pix[pixRow+x] = 0
				continue
			}
			if flat {
				out.gray.Pix[pixRow+x] = MidIntensity
				continue
			}
			ratio := (z - lo) / span
			if ratio < 0 {
				ratio = 0
			} else if ratio > 1 {
				ratio = 1
			}
			if !farIsBright {
				ratio = 1 - ratio
			}
			out.gray.Pix[pixRow+x] = uint8(math.Round(ratio * 255))
		}
	})
	return out
}
