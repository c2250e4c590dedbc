package rimage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	// register gif decoding for container checks.
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	// register bmp, tiff and webp decoding for container checks.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/viam-labs/depthoverlay/utils"
)

// DecodeImage decodes image bytes. The mime type is only used to reject data that does not match
// it; an empty mime type accepts any registered format.
func DecodeImage(ctx context.Context, imgBytes []byte, mimeType string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, err
	}
	if mimeType != "" && mimeType != utils.MimeTypeDefault && mimeType != utils.MimeTypeForFormat(format) {
		return nil, errors.Errorf("expected %s but data is %s", mimeType, format)
	}
	return img, nil
}

// EncodeImage encodes an image with the given mime type. JPEG is the default.
func EncodeImage(ctx context.Context, img image.Image, mimeType string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeTo(&buf, img, mimeType); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTo(w io.Writer, img image.Image, mimeType string) error {
	switch mimeType {
	case utils.MimeTypeJPEG, "":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpeg.DefaultQuality})
	case utils.MimeTypePNG:
		return png.Encode(w, img)
	case utils.MimeTypeQOI:
		return qoi.Encode(w, img)
	case utils.MimeTypePPM:
		return ppm.Encode(w, toRGBA(img))
	default:
		return errors.Errorf("do not know how to encode %q", mimeType)
	}
}

// toRGBA returns img as an *image.RGBA, copying only when it has another color model.
func toRGBA(img image.Image) image.Image {
	if img.ColorModel() == color.RGBAModel {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// ReadImageFromFile decodes the image stored at path.
func ReadImageFromFile(path string) (img image.Image, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", path)
	}
	return img, nil
}

// WriteImageToFile writes an image to path, encoded according to its extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	mimeType := utils.MimeTypeFromPath(path)
	if mimeType == utils.MimeTypeDefault {
		return errors.Errorf("unsupported image file extension %q", filepath.Ext(path))
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	return encodeTo(f, img, mimeType)
}
