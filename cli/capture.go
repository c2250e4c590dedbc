package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/viam-labs/depthoverlay/components/camera"
	// register the built-in device models.
	_ "github.com/viam-labs/depthoverlay/components/register"
	"github.com/viam-labs/depthoverlay/pipeline"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

type captured struct {
	overlay pipeline.Overlay
	err     error
}

// CaptureAction takes photos with the configured camera and writes each color photo next to its
// depth bitmap.
func CaptureAction(c *cli.Context) (err error) {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	if s.cfg.Camera == nil {
		return errorf("capture needs a config file with a camera section")
	}
	mimeType, err := s.outputMimeType(c)
	if err != nil {
		return err
	}
	outDir := c.Path(flagOut)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	device, err := camera.NewDevice(c.Context, *s.cfg.Camera, s.logger)
	if err != nil {
		return errorf("cannot create camera: %v", err)
	}
	session := camera.NewSession([]camera.Device{device}, s.logger.Sublogger("session"))
	defer func() {
		err = multierr.Combine(err, session.Close(c.Context))
	}()

	live := pipeline.NewLive(session, s.normalizer(), s.logger)
	conf, err := live.Start(c.Context)
	if err != nil {
		return err
	}
	if !conf.HasInput {
		return errorf("camera %q is unavailable: %v", s.cfg.Camera.Name, conf.Reason)
	}
	if !conf.DepthEnabled {
		warningf(c.App.ErrWriter, "camera %q delivers no depth; writing color only", s.cfg.Camera.Name)
	}

	for i := 0; i < c.Int(flagCount); i++ {
		overlay, err := captureOne(c, live)
		if errors.Is(err, camera.ErrCaptureFailed) {
			warningf(c.App.ErrWriter, "capture %d failed: %v", i+1, err)
			continue
		}
		if err != nil {
			return err
		}
		if err := writeCapture(outDir, overlay, mimeType, s.pretty(c)); err != nil {
			return err
		}
		successf(c.App.Writer, "captured %s", overlay.ID)
	}
	return nil
}

// captureOne waits for one capture or for the command to be interrupted.
func captureOne(c *cli.Context, live *pipeline.Live) (pipeline.Overlay, error) {
	results := make(chan captured, 1)
	if err := live.Capture(c.Context, func(o pipeline.Overlay, err error) {
		results <- captured{o, err}
	}); err != nil {
		return pipeline.Overlay{}, err
	}
	select {
	case <-c.Context.Done():
		return pipeline.Overlay{}, c.Context.Err()
	case r := <-results:
		return r.overlay, r.err
	}
}

func writeCapture(outDir string, overlay pipeline.Overlay, mimeType string, pretty bool) error {
	colorPath := filepath.Join(outDir, overlay.ID.String()+utils.ExtensionForMimeType(utils.MimeTypeJPEG))
	if err := rimage.WriteImageToFile(colorPath, overlay.Color); err != nil {
		return err
	}
	bm, ok := overlay.Depth.Get()
	if !ok {
		return nil
	}
	return writeBitmap(bitmapPath(outDir, colorPath, mimeType), bm, pretty)
}
