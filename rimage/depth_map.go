package rimage

import (
	"image"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// DepthMap is the canonical form of a depth sample: one float32 distance per pixel, row-major.
// Non-finite entries are meaningful: +Inf is infinitely far and NaN has no reading.
type DepthMap struct {
	width  int
	height int

	data []float32
}

// HasData reports whether the map holds any pixels.
func (dm *DepthMap) HasData() bool {
	return dm != nil && dm.width > 0 && dm.data != nil
}

// Width returns the horizontal resolution.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical resolution.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the map rectangle anchored at the origin.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// GetDepth returns the distance at (x, y).
func (dm *DepthMap) GetDepth(x, y int) float32 {
	return dm.data[y*dm.width+x]
}

// Get returns the distance at p.
func (dm *DepthMap) Get(p image.Point) float32 {
	return dm.GetDepth(p.X, p.Y)
}

// MinMax returns the smallest and largest finite distance. ok is false when there is none.
func (dm *DepthMap) MinMax() (minDepth, maxDepth float64, ok bool) {
	minDepth = math.Inf(1)
	maxDepth = math.Inf(-1)
	for _, z := range dm.data {
		v := float64(z)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < minDepth {
			minDepth = v
		}
		if v > maxDepth {
			maxDepth = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return minDepth, maxDepth, true
}

// DepthStats summarizes the finite distances of a map.
type DepthStats struct {
	Valid   int
	Missing int
	Min     float64
	Max     float64
	Mean    float64
	Median  float64
	P5      float64
	P95     float64
}

// Stats computes summary statistics over the finite distances.
func (dm *DepthMap) Stats() (DepthStats, error) {
	finite := make(stats.Float64Data, 0, len(dm.data))
	for _, z := range dm.data {
		v := float64(z)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}
	out := DepthStats{Valid: len(finite), Missing: len(dm.data) - len(finite)}
	if len(finite) == 0 {
		return out, errors.New("depth map has no finite values")
	}

	var err error
	if out.Min, err = finite.Min(); err != nil {
		return out, err
	}
	if out.Max, err = finite.Max(); err != nil {
		return out, err
	}
	if out.Mean, err = finite.Mean(); err != nil {
		return out, err
	}
	if out.Median, err = finite.Median(); err != nil {
		return out, err
	}
	if out.P5, err = finite.PercentileNearestRank(5); err != nil {
		return out, err
	}
	if out.P95, err = finite.PercentileNearestRank(95); err != nil {
		return out, err
	}
	return out, nil
}

// NewDepthMap copies values into a new depth map.
func NewDepthMap(width, height int, values []float32) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth map %v %v", width, height)
	}
	if len(values) != width*height {
		return nil, errors.Errorf("depth map has %d values, expected %d", len(values), width*height)
	}
	data := make([]float32, len(values))
	copy(data, values)
	return &DepthMap{width: width, height: height, data: data}, nil
}
