package rimage

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/depthoverlay/utils"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(60 * x), G: uint8(80 * y), B: 200, A: 255})
		}
	}
	return img
}

func sameRGB(t *testing.T, got, want image.Image) {
	t.Helper()
	test.That(t, got.Bounds().Dx(), test.ShouldEqual, want.Bounds().Dx())
	test.That(t, got.Bounds().Dy(), test.ShouldEqual, want.Bounds().Dy())
	for y := 0; y < want.Bounds().Dy(); y++ {
		for x := 0; x < want.Bounds().Dx(); x++ {
			gr, gg, gb, _ := got.At(got.Bounds().Min.X+x, got.Bounds().Min.Y+y).RGBA()
			wr, wg, wb, _ := want.At(x, y).RGBA()
			test.That(t, gr>>8, test.ShouldEqual, wr>>8)
			test.That(t, gg>>8, test.ShouldEqual, wg>>8)
			test.That(t, gb>>8, test.ShouldEqual, wb>>8)
		}
	}
}

func TestLosslessFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".png", ".qoi", ".ppm"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "img"+ext)
			test.That(t, WriteImageToFile(path, testImage()), test.ShouldBeNil)
			img, err := ReadImageFromFile(path)
			test.That(t, err, test.ShouldBeNil)
			sameRGB(t, img, testImage())
		})
	}
}

func TestWriteImageToFileUnknownExtension(t *testing.T) {
	err := WriteImageToFile(filepath.Join(t.TempDir(), "img.xyz"), testImage())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadImageFromFileMissing(t *testing.T) {
	_, err := ReadImageFromFile(filepath.Join(t.TempDir(), "nope.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEncodeDecodeImage(t *testing.T) {
	ctx := context.Background()
	data, err := EncodeImage(ctx, testImage(), utils.MimeTypePNG)
	test.That(t, err, test.ShouldBeNil)

	img, err := DecodeImage(ctx, data, utils.MimeTypePNG)
	test.That(t, err, test.ShouldBeNil)
	sameRGB(t, img, testImage())

	_, err = DecodeImage(ctx, data, utils.MimeTypeJPEG)
	test.That(t, err, test.ShouldNotBeNil)

	jpg, err := EncodeImage(ctx, testImage(), "")
	test.That(t, err, test.ShouldBeNil)
	img, err = DecodeImage(ctx, jpg, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)

	_, err = EncodeImage(ctx, testImage(), "image/unknown")
	test.That(t, err, test.ShouldNotBeNil)
}
