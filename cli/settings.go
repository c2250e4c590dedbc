package cli

import (
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/viam-labs/depthoverlay/config"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

// settings is everything an action needs from the global flags and the config file.
type settings struct {
	cfg    *config.Config
	logger logging.Logger
}

func loadSettings(c *cli.Context) (*settings, error) {
	bootLogger := config.LogConfig{}.NewLogger("depthoverlay", c.App.ErrWriter, c.Bool(flagDebug))
	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		var err error
		cfg, err = config.Read(c.Context, path, bootLogger)
		if err != nil {
			return nil, errorf("cannot read config %s: %v", path, err)
		}
	}
	logger := cfg.Log.NewLogger("depthoverlay", c.App.ErrWriter, c.Bool(flagDebug))
	logging.ReplaceGlobal(logger)
	return &settings{cfg: cfg, logger: logger}, nil
}

func (s *settings) normalizer() *rimage.Normalizer {
	return rimage.NewNormalizer(s.cfg.Render.NormalizerOptions())
}

// outputMimeType resolves the --format flag against the configured render format.
func (s *settings) outputMimeType(c *cli.Context) (string, error) {
	format := strings.ToLower(c.String(flagFormat))
	if format == "" {
		return s.cfg.Render.MimeType(), nil
	}
	render := s.cfg.Render
	render.Format = format
	if err := render.Validate(flagFormat); err != nil {
		return "", errorf("%v", err)
	}
	return render.MimeType(), nil
}

func (s *settings) pretty(c *cli.Context) bool {
	return c.Bool(flagPretty) || s.cfg.Render.Colorize
}

// bitmapPath names the bitmap written for the image at src.
func bitmapPath(outDir, src, mimeType string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, base+"-depth"+utils.ExtensionForMimeType(mimeType))
}
