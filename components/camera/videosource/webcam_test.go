package videosource

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pion/mediadevices/pkg/driver"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"go.viam.com/test"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
)

type fakeDriver struct {
	label  string
	props  []prop.Media
	state  driver.State
	frame  image.Image
	closes int
}

func (d *fakeDriver) Open() error {
	d.state = driver.StateOpened
	return nil
}

func (d *fakeDriver) Close() error {
	d.state = driver.StateClosed
	d.closes++
	return nil
}

func (d *fakeDriver) Properties() []prop.Media { return d.props }
func (d *fakeDriver) ID() string               { return d.label }
func (d *fakeDriver) Info() driver.Info        { return driver.Info{Label: d.label} }
func (d *fakeDriver) Status() driver.State     { return d.state }

func (d *fakeDriver) VideoRecord(p prop.Media) (video.Reader, error) {
	d.state = driver.StateRunning
	return video.ReaderFunc(func() (image.Image, func(), error) {
		return d.frame, func() {}, nil
	}), nil
}

func media(format frame.Format, w, h int) prop.Media {
	return prop.Media{Video: prop.Video{Width: w, Height: h, FrameFormat: format}}
}

func withDrivers(t *testing.T, drivers ...driver.Driver) {
	t.Helper()
	old := getDrivers
	getDrivers = func() []driver.Driver { return drivers }
	t.Cleanup(func() { getDrivers = old })
}

func TestWebcamColorAndDepth(t *testing.T) {
	rgb := image.NewRGBA(image.Rect(0, 0, 4, 2))
	rgb.SetRGBA(1, 1, color.RGBA{R: 200, A: 255})
	z16 := image.NewGray16(image.Rect(0, 0, 2, 1))
	z16.SetGray16(0, 0, color.Gray16{Y: 1250})

	colorDriver := &fakeDriver{label: "video0;usb-cam", props: []prop.Media{media(frame.FormatMJPEG, 4, 2)}, state: driver.StateClosed, frame: rgb}
	depthDriver := &fakeDriver{label: "video2;realsense", props: []prop.Media{
		media(frame.FormatYUY2, 2, 1), media(frame.FormatZ16, 2, 1),
	}, state: driver.StateClosed, frame: z16}
	withDrivers(t, colorDriver, depthDriver)

	ctx := context.Background()
	cam := NewWebcam("rig", &WebcamConfig{Path: "/dev/video0", DepthPath: DepthAuto}, logging.NewTestLogger(t))
	test.That(t, cam.Info().Position, test.ShouldEqual, camera.PositionBack)
	test.That(t, cam.Open(ctx), test.ShouldBeNil)
	test.That(t, cam.SupportsDepth(), test.ShouldBeTrue)

	photo, err := cam.Capture(ctx, true)
	test.That(t, err, test.ShouldBeNil)
	r, _, _, _ := photo.Color.At(1, 1).RGBA()
	test.That(t, r>>8, test.ShouldEqual, uint32(200))

	sample := photo.Depth.MustGet()
	test.That(t, sample.Encoding(), test.ShouldEqual, rimage.EncodingZ16)
	test.That(t, sample.At(0, 0), test.ShouldAlmostEqual, 1.25, 1e-6)

	photo, err = cam.Capture(ctx, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, photo.Depth.IsAbsent(), test.ShouldBeTrue)

	test.That(t, cam.Close(ctx), test.ShouldBeNil)
	test.That(t, colorDriver.closes, test.ShouldEqual, 1)
	test.That(t, depthDriver.closes, test.ShouldEqual, 1)

	_, err = cam.Capture(ctx, false)
	test.That(t, err, test.ShouldEqual, errClosed)
}

func TestWebcamWithoutDepthDriver(t *testing.T) {
	withDrivers(t, &fakeDriver{label: "video0", props: []prop.Media{media(frame.FormatI420, 2, 2)}, state: driver.StateClosed,
		frame: image.NewRGBA(image.Rect(0, 0, 2, 2))})

	cam := NewWebcam("rig", &WebcamConfig{DepthPath: DepthAuto}, logging.NewTestLogger(t))
	test.That(t, cam.Open(context.Background()), test.ShouldBeNil)
	test.That(t, cam.SupportsDepth(), test.ShouldBeFalse)
	test.That(t, cam.Close(context.Background()), test.ShouldBeNil)
}

func TestWebcamNoMatchingDriver(t *testing.T) {
	withDrivers(t, &fakeDriver{label: "video0", props: []prop.Media{media(frame.FormatZ16, 2, 2)}, state: driver.StateClosed})
	cam := NewWebcam("rig", &WebcamConfig{}, logging.NewTestLogger(t))
	test.That(t, cam.Open(context.Background()), test.ShouldNotBeNil)
}

func TestMatchesLabel(t *testing.T) {
	test.That(t, matchesLabel("video0;usb-0000:00:14.0-1", "/dev/video0"), test.ShouldBeTrue)
	test.That(t, matchesLabel("video0;usb-0000:00:14.0-1", "usb-0000:00:14.0-1"), test.ShouldBeTrue)
	test.That(t, matchesLabel("video1", "/dev/video0"), test.ShouldBeFalse)
}

func TestPickProperty(t *testing.T) {
	props := []prop.Media{
		media(frame.FormatMJPEG, 640, 480),
		media(frame.FormatMJPEG, 1280, 720),
		media(frame.FormatZ16, 640, 480),
	}
	p, ok := pickProperty(props, false, 1280, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Width, test.ShouldEqual, 1280)

	p, ok = pickProperty(props, false, 0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Width, test.ShouldEqual, 640)

	p, ok = pickProperty(props, true, 0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.FrameFormat, test.ShouldEqual, frame.FormatZ16)

	_, ok = pickProperty(props[:2], true, 0, 0)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWebcamConfigValidate(t *testing.T) {
	test.That(t, (&WebcamConfig{}).Validate("camera"), test.ShouldBeNil)
	test.That(t, (&WebcamConfig{Width: -1}).Validate("camera"), test.ShouldNotBeNil)
	test.That(t, (&WebcamConfig{Path: "video0", DepthPath: "video0"}).Validate("camera"), test.ShouldNotBeNil)
}
