package camera_test

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/components/camera/fake"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/utils"
)

func TestNewDeviceFromAttributes(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	d, err := camera.NewDevice(ctx, camera.DeviceConfig{
		Name:  "rig",
		Model: fake.Model,
		Attributes: utils.AttributeMap{
			"width_px":    8.0,
			"height_px":   "6",
			"depth":       true,
			"depth_value": 2.5,
			"latency":     "5ms",
		},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Info().Name, test.ShouldEqual, "rig")
	test.That(t, d.Info().Position, test.ShouldEqual, camera.PositionBack)
	test.That(t, d.SupportsDepth(), test.ShouldBeTrue)

	test.That(t, d.Open(ctx), test.ShouldBeNil)
	photo, err := d.Capture(ctx, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, photo.Color.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, photo.Color.Bounds().Dy(), test.ShouldEqual, 6)
	test.That(t, photo.Depth.MustGet().At(7, 5), test.ShouldEqual, float32(2.5))
	test.That(t, d.Close(ctx), test.ShouldBeNil)
}

func TestNewDeviceErrors(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	_, err := camera.NewDevice(ctx, camera.DeviceConfig{Model: "nonexistent"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown camera model")

	_, err = camera.NewDevice(ctx, camera.DeviceConfig{
		Model:      fake.Model,
		Attributes: utils.AttributeMap{"depth_kind": "sideways"},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "depth_kind")

	_, err = camera.NewDevice(ctx, camera.DeviceConfig{
		Model:      fake.Model,
		Attributes: utils.AttributeMap{"widht_px": 10},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "widht_px")

	_, err = camera.NewDevice(ctx, camera.DeviceConfig{
		Model:      fake.Model,
		Attributes: utils.AttributeMap{"width_px": 10, "height_px": 10, "depth_downscale": 3},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDeviceConfigValidate(t *testing.T) {
	test.That(t, camera.DeviceConfig{Model: fake.Model}.Validate("camera"), test.ShouldBeNil)

	err := camera.DeviceConfig{}.Validate("camera")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"model" is required`)

	err = camera.DeviceConfig{Model: "nope"}.Validate("camera")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nope")

	test.That(t, camera.RegisteredModels(), test.ShouldContain, fake.Model)
}

func TestTransformAttributeMap(t *testing.T) {
	type native struct {
		Path  string `json:"video_path"`
		Width int    `json:"width_px,omitempty"`
	}
	conf, err := camera.TransformAttributeMap[*native](utils.AttributeMap{"video_path": "/dev/video0", "width_px": 1280.0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &native{Path: "/dev/video0", Width: 1280})

	byValue, err := camera.TransformAttributeMap[native](nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, byValue, test.ShouldResemble, native{})
}
