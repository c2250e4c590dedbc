// Package fake implements a simulated capture device with a configurable depth sample.
package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/mo"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
)

// Model is the registered model name of the fake device.
const Model = "fake"

const (
	initialWidth  = 640
	initialHeight = 480
)

// ErrInjected is the failure returned for captures configured to fail.
var ErrInjected = errors.New("injected capture failure")

func init() {
	camera.RegisterDevice(Model, camera.Registration[*Config]{
		Constructor: func(ctx context.Context, name string, conf *Config, logger logging.Logger) (camera.Device, error) {
			return NewDevice(name, conf, logger)
		},
	})
}

// Config are the attributes of the fake device.
type Config struct {
	Width  int `json:"width_px,omitempty"`
	Height int `json:"height_px,omitempty"`

	Position string `json:"position,omitempty"`
	Type     string `json:"type,omitempty"`

	// Depth enables depth delivery.
	Depth bool `json:"depth,omitempty"`
	// DepthKind is "depth" (default) or "disparity".
	DepthKind string `json:"depth_kind,omitempty"`
	// DepthValue fills the sample with one value. Zero means a left to right gradient.
	DepthValue float64 `json:"depth_value,omitempty"`
	// DepthDownscale shrinks the sample by an integer factor relative to the photo.
	DepthDownscale int `json:"depth_downscale,omitempty"`

	Latency time.Duration `json:"latency,omitempty"`
	// FailFirst makes the first N captures fail.
	FailFirst int `json:"fail_first,omitempty"`
	// OpenFails makes Open fail, as a device that is present but busy would.
	OpenFails bool `json:"open_fails,omitempty"`
}

// Validate checks that the config attributes are valid for a fake device.
func (conf *Config) Validate(path string) error {
	if conf.Width < 0 || conf.Height < 0 {
		return errors.Errorf("%s: got illegal negative dimensions %dx%d", path, conf.Width, conf.Height)
	}
	switch conf.DepthKind {
	case "", rimage.KindDepth.String(), rimage.KindDisparity.String():
	default:
		return errors.Errorf("%s: depth_kind must be %q or %q, got %q",
			path, rimage.KindDepth, rimage.KindDisparity, conf.DepthKind)
	}
	if conf.DepthDownscale < 0 {
		return errors.Errorf("%s: depth_downscale cannot be negative", path)
	}
	if conf.DepthDownscale > 1 {
		w, h := conf.dimensions()
		if w%conf.DepthDownscale != 0 || h%conf.DepthDownscale != 0 {
			return errors.Errorf("%s: depth_downscale %d does not divide %dx%d", path, conf.DepthDownscale, w, h)
		}
	}
	if conf.Latency < 0 {
		return errors.Errorf("%s: latency cannot be negative", path)
	}
	if conf.FailFirst < 0 {
		return errors.Errorf("%s: fail_first cannot be negative", path)
	}
	return nil
}

func (conf *Config) dimensions() (int, int) {
	w, h := conf.Width, conf.Height
	if w == 0 {
		w = initialWidth
	}
	if h == 0 {
		h = initialHeight
	}
	return w, h
}

// Device is a fake capture device that returns a gradient photo and a synthetic depth sample.
type Device struct {
	info   camera.DeviceInfo
	conf   Config
	logger logging.Logger

	mu       sync.Mutex
	open     bool
	captures int
	failures int
	nextErr  error
}

// NewDevice returns a new fake device.
func NewDevice(name string, conf *Config, logger logging.Logger) (*Device, error) {
	if conf == nil {
		conf = &Config{}
	}
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	info := camera.DeviceInfo{
		Name:     name,
		Position: camera.Position(conf.Position),
		Type:     camera.DeviceType(conf.Type),
	}
	if info.Name == "" {
		info.Name = Model
	}
	if conf.Position == "" {
		info.Position = camera.PositionBack
	}
	if conf.Type == "" {
		info.Type = camera.DeviceTypeWideAngle
	}
	return &Device{info: info, conf: *conf, logger: logger, failures: conf.FailFirst}, nil
}

// Info returns the configured description.
func (d *Device) Info() camera.DeviceInfo {
	return d.info
}

// Open marks the device open.
func (d *Device) Open(ctx context.Context) error {
	if d.conf.OpenFails {
		return errors.New("fake device is busy")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

// Close marks the device closed.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// IsOpen reports whether Open was called without a later Close.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Captures returns how many captures completed, successful or not.
func (d *Device) Captures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captures
}

// FailNext makes the next capture return err.
func (d *Device) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextErr = err
}

// SupportsDepth reports whether depth delivery is configured.
func (d *Device) SupportsDepth() bool {
	return d.conf.Depth
}

// Capture waits out the configured latency and returns a photo.
func (d *Device) Capture(ctx context.Context, withDepth bool) (camera.RawPhoto, error) {
	if d.conf.Latency > 0 && !goutils.SelectContextOrWait(ctx, d.conf.Latency) {
		return camera.RawPhoto{}, ctx.Err()
	}

	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return camera.RawPhoto{}, errors.New("fake device is not open")
	}
	d.captures++
	err := d.nextErr
	d.nextErr = nil
	if err == nil && d.failures > 0 {
		d.failures--
		err = ErrInjected
	}
	d.mu.Unlock()
	if err != nil {
		return camera.RawPhoto{}, err
	}

	photo := camera.RawPhoto{Color: d.colorImage(), Depth: mo.None[*rimage.DepthSample]()}
	if withDepth && d.conf.Depth {
		sample, err := d.depthSample()
		if err != nil {
			return camera.RawPhoto{}, err
		}
		photo.Depth = mo.Some(sample)
	}
	return photo, nil
}

// colorImage is a yellow to blue gradient.
func (d *Device) colorImage() image.Image {
	w, h := d.conf.dimensions()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	totalDist := math.Hypot(float64(w), float64(h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dist := math.Hypot(float64(x), float64(y)) / totalDist
			img.SetRGBA(x, y, color.RGBA{uint8(255 - (255 * dist)), uint8(255 - (255 * dist)), uint8(255 * dist), 255})
		}
	}
	return img
}

func (d *Device) depthSample() (*rimage.DepthSample, error) {
	w, h := d.conf.dimensions()
	if d.conf.DepthDownscale > 1 {
		w /= d.conf.DepthDownscale
		h /= d.conf.DepthDownscale
	}
	kind := rimage.KindDepth
	if d.conf.DepthKind == rimage.KindDisparity.String() {
		kind = rimage.KindDisparity
	}

	values := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := d.conf.DepthValue
			if v == 0 {
				// 0.5m on the left to 5m on the right.
				v = 0.5 + 4.5*float64(x)/float64(max(w-1, 1))
				if kind == rimage.KindDisparity {
					v = 1 / v
				}
			}
			values[y*w+x] = float32(v)
		}
	}
	return rimage.NewDepthSample(kind, rimage.EncodingFloat32, w, h, values)
}
