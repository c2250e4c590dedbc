package auxdepth

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/pkg/errors"

	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

// normalizedGray decodes an embedded gray image into its gray levels scaled to [0, 1].
func normalizedGray(data []byte, mimeType string) (*rimage.DepthSample, error) {
	var (
		img image.Image
		err error
	)
	switch mimeType {
	case utils.MimeTypeJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case utils.MimeTypePNG:
		img, err = png.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode embedded depth image")
	}
	encoding := rimage.EncodingGray8
	if _, ok := img.(*image.Gray16); ok {
		encoding = rimage.EncodingGray16
	}
	return rimage.DepthSampleFromImage(rimage.KindDepth, encoding, img)
}

// remap builds a sample of the given kind by applying f to every normalized level.
func remap(levels *rimage.DepthSample, kind rimage.SampleKind, f func(float64) float64) (*rimage.DepthSample, error) {
	w, h := levels.Width(), levels.Height()
	values := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			values[y*w+x] = float32(f(float64(levels.At(x, y))))
		}
	}
	return rimage.NewDepthSample(kind, levels.Encoding(), w, h, values)
}

// decodeGDepth undoes the GDepth range encoding. RangeLinear levels become depth; RangeInverse
// levels become disparity whose inverse is the GDepth depth.
func decodeGDepth(m gdepthMap) (*rimage.DepthSample, error) {
	levels, err := normalizedGray(m.data, m.mime)
	if err != nil {
		return nil, err
	}
	near, far := m.near, m.far
	var sample *rimage.DepthSample
	switch m.format {
	case gdepthRangeLinear:
		sample, err = remap(levels, rimage.KindDepth, func(dn float64) float64 {
			return dn*(far-near) + near
		})
	case gdepthRangeInverse:
		sample, err = remap(levels, rimage.KindDisparity, func(dn float64) float64 {
			return 1/near - dn*(1/near-1/far)
		})
	default:
		return nil, errors.Errorf("unknown GDepth format %q", m.format)
	}
	if err != nil {
		return nil, err
	}
	return sample.WithRange(rimage.DepthRange{Near: near, Far: far}), nil
}

// decodeAPDI decodes an MPF auxiliary image. When the XMP carries the float range the levels were
// normalized over, the original values are restored.
func decodeAPDI(kind rimage.SampleKind, props xmpProperties, data []byte) (*rimage.DepthSample, error) {
	levels, err := normalizedGray(data, utils.MimeTypeJPEG)
	if err != nil {
		return nil, err
	}
	minV, minOK := props.float(nsAPDI, "FloatMinValue")
	maxV, maxOK := props.float(nsAPDI, "FloatMaxValue")
	if !minOK || !maxOK || !(maxV > minV) {
		return remap(levels, kind, func(dn float64) float64 { return dn })
	}

	sample, err := remap(levels, kind, func(dn float64) float64 {
		return minV + dn*(maxV-minV)
	})
	if err != nil {
		return nil, err
	}
	rng := rimage.DepthRange{Near: minV, Far: maxV}
	if kind == rimage.KindDisparity {
		if minV <= 0 {
			return sample, nil
		}
		rng = rimage.DepthRange{Near: 1 / maxV, Far: 1 / minV}
	}
	if !rng.Valid() {
		return sample, nil
	}
	return sample.WithRange(rng), nil
}
