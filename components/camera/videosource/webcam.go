// Package videosource implements a capture device on top of system video drivers, with an optional
// Z16 depth stream from a second driver such as a structured light or stereo depth camera.
package videosource

import (
	"context"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
)

// ModelWebcam is the registered model name of the webcam device.
const ModelWebcam = "webcam"

var errClosed = errors.New("webcam is not open")

func init() {
	camera.RegisterDevice(ModelWebcam, camera.Registration[*WebcamConfig]{
		Constructor: func(ctx context.Context, name string, conf *WebcamConfig, logger logging.Logger) (camera.Device, error) {
			return NewWebcam(name, conf, logger), nil
		},
	})
}

// WebcamConfig is the native config attribute struct for webcams.
type WebcamConfig struct {
	// Path selects the color driver by label. Empty means the first color capable driver.
	Path string `json:"video_path,omitempty"`
	// DepthPath selects the Z16 depth driver by label. "auto" means the first Z16 capable driver;
	// empty disables depth.
	DepthPath string `json:"depth_path,omitempty"`
	Width     int    `json:"width_px,omitempty"`
	Height    int    `json:"height_px,omitempty"`
	Position  string `json:"position,omitempty"`
	Type      string `json:"type,omitempty"`
}

// DepthAuto selects any Z16 capable driver.
const DepthAuto = "auto"

// Validate ensures all parts of the config are valid.
func (c *WebcamConfig) Validate(path string) error {
	if c.Width < 0 || c.Height < 0 {
		return errors.Errorf("%s: got illegal negative dimensions for width_px and height_px (%d, %d)", path, c.Width, c.Height)
	}
	if c.DepthPath != "" && c.DepthPath == c.Path {
		return errors.Errorf("%s: depth_path must name a different driver than video_path", path)
	}
	return nil
}

// getDrivers is swapped in tests.
var getDrivers = func() []driver.Driver {
	mediadevicescamera.Initialize()
	return driver.GetManager().Query(driver.FilterVideoRecorder())
}

// webcam pairs a color driver with an optional depth driver.
type webcam struct {
	info   camera.DeviceInfo
	conf   WebcamConfig
	logger logging.Logger

	mu          sync.Mutex
	colorDriver driver.Driver
	colorReader video.Reader
	depthDriver driver.Driver
	depthReader video.Reader
}

// NewWebcam returns an unopened webcam device.
func NewWebcam(name string, conf *WebcamConfig, logger logging.Logger) camera.Device {
	info := camera.DeviceInfo{Name: name, Position: camera.Position(conf.Position), Type: camera.DeviceType(conf.Type)}
	if info.Position == camera.PositionUnspecified {
		info.Position = camera.PositionBack
	}
	if info.Type == "" {
		info.Type = camera.DeviceTypeWideAngle
	}
	return &webcam{info: info, conf: *conf, logger: logger.WithFields("camera_name", name)}
}

func (c *webcam) Info() camera.DeviceInfo {
	return c.info
}

// matchesLabel reports whether a driver label names path. Labels carry several names joined by
// the driver's separator; any of them may match, with or without its directory.
func matchesLabel(label, path string) bool {
	base := filepath.Base(path)
	return lo.ContainsBy(strings.Split(label, mediadevicescamera.LabelSeparator), func(part string) bool {
		return part == path || part == base || filepath.Base(part) == base
	})
}

// pickProperty chooses the stream properties to record with. Depth streams must be Z16; color
// streams must not be. A configured size wins when the driver offers it.
func pickProperty(props []prop.Media, depth bool, width, height int) (prop.Media, bool) {
	candidates := lo.Filter(props, func(p prop.Media, _ int) bool {
		return (p.FrameFormat == frame.FormatZ16) == depth
	})
	if len(candidates) == 0 {
		return prop.Media{}, false
	}
	if width > 0 || height > 0 {
		if exact, ok := lo.Find(candidates, func(p prop.Media) bool {
			return (width == 0 || p.Width == width) && (height == 0 || p.Height == height)
		}); ok {
			return exact, true
		}
	}
	return candidates[0], true
}

// openStream opens the first driver accepted by want that offers a suitable stream.
func openStream(
	drivers []driver.Driver,
	want func(driver.Driver) bool,
	depth bool,
	conf *WebcamConfig,
) (driver.Driver, video.Reader, error) {
	for _, d := range drivers {
		if !want(d) || d.Status() == driver.StateRunning {
			continue
		}
		if d.Status() == driver.StateClosed {
			if err := d.Open(); err != nil {
				continue
			}
		}
		p, ok := pickProperty(d.Properties(), depth, conf.Width, conf.Height)
		recorder, isRecorder := d.(driver.VideoRecorder)
		if !ok || !isRecorder {
			goutils.UncheckedError(d.Close())
			continue
		}
		reader, err := recorder.VideoRecord(p)
		if err != nil {
			return nil, nil, multierr.Combine(errors.Wrapf(err, "cannot record from %q", d.Info().Label), d.Close())
		}
		return d, reader, nil
	}
	return nil, nil, errors.New("no matching video driver")
}

func (c *webcam) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drivers := getDrivers()
	colorDriver, colorReader, err := openStream(drivers, func(d driver.Driver) bool {
		return c.conf.Path == "" || matchesLabel(d.Info().Label, c.conf.Path)
	}, false, &c.conf)
	if err != nil {
		return errors.Wrap(err, "failed to find color camera")
	}
	c.colorDriver, c.colorReader = colorDriver, colorReader
	c.logger.CDebugw(ctx, "opened color stream", "label", colorDriver.Info().Label)

	if c.conf.DepthPath == "" {
		return nil
	}
	depthDriver, depthReader, err := openStream(drivers, func(d driver.Driver) bool {
		if d == colorDriver {
			return false
		}
		return c.conf.DepthPath == DepthAuto || matchesLabel(d.Info().Label, c.conf.DepthPath)
	}, true, &c.conf)
	if err != nil {
		// color only is a legitimate configuration.
		c.logger.CWarnw(ctx, "no Z16 depth stream; capturing color only", "depth_path", c.conf.DepthPath, "error", err)
		return nil
	}
	c.depthDriver, c.depthReader = depthDriver, depthReader
	c.logger.CDebugw(ctx, "opened depth stream", "label", depthDriver.Info().Label)
	return nil
}

func (c *webcam) SupportsDepth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depthReader != nil
}

// readFrame copies one frame out of the reader so the driver buffer can be released.
func readFrame(reader video.Reader) (image.Image, error) {
	img, release, err := reader.Read()
	if release != nil {
		defer release()
	}
	if err != nil {
		return nil, err
	}
	if gray16, ok := img.(*image.Gray16); ok {
		out := image.NewGray16(gray16.Rect)
		copy(out.Pix, gray16.Pix)
		return out, nil
	}
	return imaging.Clone(img), nil
}

func (c *webcam) Capture(ctx context.Context, withDepth bool) (camera.RawPhoto, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.colorReader == nil {
		return camera.RawPhoto{}, errClosed
	}
	if err := ctx.Err(); err != nil {
		return camera.RawPhoto{}, err
	}
	color, err := readFrame(c.colorReader)
	if err != nil {
		return camera.RawPhoto{}, errors.Wrap(err, "cannot read color frame")
	}
	photo := camera.RawPhoto{Color: color, Depth: mo.None[*rimage.DepthSample]()}
	if !withDepth || c.depthReader == nil {
		return photo, nil
	}

	depthImg, err := readFrame(c.depthReader)
	if err != nil {
		return camera.RawPhoto{}, errors.Wrap(err, "cannot read depth frame")
	}
	sample, err := rimage.DepthSampleFromImage(rimage.KindDepth, rimage.EncodingZ16, depthImg)
	if err != nil {
		return camera.RawPhoto{}, err
	}
	photo.Depth = mo.Some(sample)
	return photo, nil
}

func (c *webcam) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.colorDriver != nil {
		err = multierr.Combine(err, c.colorDriver.Close())
	}
	if c.depthDriver != nil {
		err = multierr.Combine(err, c.depthDriver.Close())
	}
	c.colorDriver, c.colorReader = nil, nil
	c.depthDriver, c.depthReader = nil, nil
	return err
}
