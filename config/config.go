// Package config defines the structures to configure a depthoverlay run.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

// OutputFormats lists the bitmap encodings the tools can write.
var OutputFormats = []string{"png", "jpeg", "qoi", "ppm"}

// A Config describes the configuration of a capture or import run.
type Config struct {
	// Camera is only needed for live capture.
	Camera *camera.DeviceConfig `json:"camera,omitempty"`
	Render RenderConfig         `json:"render"`
	Log    LogConfig            `json:"log"`

	// ConfigFilePath is the path the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Validate returns an error if the config is invalid. Paths in the error name the offending field.
func (c *Config) Validate() error {
	if c.Camera != nil {
		if err := c.Camera.Validate("camera"); err != nil {
			return err
		}
	}
	if err := c.Render.Validate("render"); err != nil {
		return err
	}
	return c.Log.Validate("log")
}

// RenderConfig controls how depth samples become bitmaps.
type RenderConfig struct {
	RangeMode rimage.RangeMode `json:"range_mode,omitempty"`
	// NearMeters and FarMeters, when FarMeters is set, fix the scaling interval for every sample.
	NearMeters  float64 `json:"near_m,omitempty"`
	FarMeters   float64 `json:"far_m,omitempty"`
	FarIsBright bool    `json:"far_is_bright,omitempty"`
	// Colorize writes hue ramped bitmaps instead of grayscale.
	Colorize bool   `json:"colorize,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c RenderConfig) Validate(path string) error {
	switch c.RangeMode {
	case "", rimage.RangeObserved, rimage.RangeCalibrated:
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("range_mode must be %q or %q, got %q", rimage.RangeObserved, rimage.RangeCalibrated, c.RangeMode))
	}
	if c.NearMeters < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("near_m cannot be negative, got %v", c.NearMeters))
	}
	if c.FarMeters != 0 && c.FarMeters <= c.NearMeters {
		return utils.NewConfigValidationError(path,
			errors.Errorf("far_m (%v) must be greater than near_m (%v)", c.FarMeters, c.NearMeters))
	}
	if c.FarMeters == 0 && c.NearMeters != 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "far_m")
	}
	if c.Format != "" && !lo.Contains(OutputFormats, c.Format) {
		return utils.NewConfigValidationError(path, errors.Errorf("format must be one of %v, got %q", OutputFormats, c.Format))
	}
	return nil
}

// NormalizerOptions returns the normalizer options described by the config.
func (c RenderConfig) NormalizerOptions() rimage.NormalizerOptions {
	opts := rimage.NormalizerOptions{RangeMode: c.RangeMode, FarIsBright: c.FarIsBright}
	if c.FarMeters > 0 {
		opts.Override = mo.Some(rimage.DepthRange{Near: c.NearMeters, Far: c.FarMeters})
	}
	return opts
}

// MimeType returns the mime type of the configured output format, PNG by default.
func (c RenderConfig) MimeType() string {
	if c.Format == "" {
		return utils.MimeTypePNG
	}
	return utils.MimeTypeFromPath("." + c.Format)
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level logging.Level               `json:"level"`
	File  *logging.FileAppenderConfig `json:"file,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c LogConfig) Validate(path string) error {
	if c.File != nil && c.File.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.file", path), "path")
	}
	return nil
}
