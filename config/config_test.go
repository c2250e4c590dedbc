package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/depthoverlay/components/camera"
	// register the fake model for camera validation.
	_ "github.com/viam-labs/depthoverlay/components/camera/fake"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

const sampleConfig = `{
	"camera": {
		"model": "fake",
		"attributes": {"width_px": 64, "depth": true, "depth_value": "${FAKE_DEPTH}"}
	},
	"render": {"range_mode": "observed", "near_m": 0.5, "far_m": 4, "format": "qoi"},
	"log": {"level": "warn"}
}`

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("FAKE_DEPTH", "2.5")
	path := filepath.Join(t.TempDir(), "config.json")
	test.That(t, os.WriteFile(path, []byte(sampleConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Camera.Name, test.ShouldEqual, "fake")
	test.That(t, cfg.Camera.Attributes.String("depth_value"), test.ShouldEqual, "2.5")
	test.That(t, cfg.Log.Level, test.ShouldEqual, logging.WARN)
	test.That(t, cfg.Render.MimeType(), test.ShouldEqual, utils.MimeTypeQOI)

	opts := cfg.Render.NormalizerOptions()
	test.That(t, opts.RangeMode, test.ShouldEqual, rimage.RangeObserved)
	test.That(t, opts.Override.MustGet(), test.ShouldResemble, rimage.DepthRange{Near: 0.5, Far: 4})
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := FromReader(context.Background(), "", strings.NewReader(`{"rendr": {}}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		err  string
	}{
		{"empty", Config{}, ""},
		{"unknown model", Config{Camera: &camera.DeviceConfig{Model: "nikon"}}, `"camera"`},
		{"bad range mode", Config{Render: RenderConfig{RangeMode: "auto"}}, "range_mode"},
		{"negative near", Config{Render: RenderConfig{NearMeters: -1, FarMeters: 2}}, "near_m"},
		{"far not beyond near", Config{Render: RenderConfig{NearMeters: 2, FarMeters: 2}}, "far_m"},
		{"near without far", Config{Render: RenderConfig{NearMeters: 1}}, "far_m"},
		{"bad format", Config{Render: RenderConfig{Format: "gif"}}, "format"},
		{"log file without path", Config{Log: LogConfig{File: &logging.FileAppenderConfig{}}}, "log.file"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.err == "" {
				test.That(t, err, test.ShouldBeNil)
				return
			}
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
		})
	}
}

func TestRenderDefaults(t *testing.T) {
	var render RenderConfig
	test.That(t, render.MimeType(), test.ShouldEqual, utils.MimeTypePNG)
	opts := render.NormalizerOptions()
	test.That(t, opts.Override.IsAbsent(), test.ShouldBeTrue)
	test.That(t, opts.FarIsBright, test.ShouldBeFalse)
}

func TestLogConfigNewLogger(t *testing.T) {
	var out bytes.Buffer
	logger := LogConfig{Level: logging.ERROR}.NewLogger("test", &out, false)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.ERROR)
	logger.Info("quiet")
	test.That(t, out.Len(), test.ShouldEqual, 0)

	logger = LogConfig{Level: logging.ERROR}.NewLogger("test", &out, true)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	logger.Debug("loud")
	test.That(t, out.String(), test.ShouldContainSubstring, "loud")

	path := filepath.Join(t.TempDir(), "depthoverlay.log")
	logger = LogConfig{File: &logging.FileAppenderConfig{Path: path}}.NewLogger("test", &out, false)
	logger.Info("hello file")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "hello file")
}
