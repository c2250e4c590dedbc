package cli

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/viam-labs/depthoverlay/pipeline"
)

// WatchAction writes a depth bitmap for every image that lands in a directory until interrupted.
func WatchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errorf("watch takes exactly one directory")
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	mimeType, err := s.outputMimeType(c)
	if err != nil {
		return err
	}
	outDir := c.Path(flagOut)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	importer := pipeline.NewImporter(s.normalizer(), s.logger)
	defer importer.Close()

	pretty := s.pretty(c)
	watcher, err := pipeline.NewWatcher(c.Args().First(), importer, c.Duration(flagSettle), func(o pipeline.Overlay, err error) {
		if err != nil {
			s.logger.Warnw("cannot import", "error", err)
			return
		}
		bm, ok := o.Depth.Get()
		if !ok {
			s.logger.Infow("no depth", "path", o.Path)
			return
		}
		dst := bitmapPath(outDir, o.Path, mimeType)
		if err := writeBitmap(dst, bm, pretty); err != nil {
			s.logger.Errorw("cannot write bitmap", "path", dst, "error", err)
			return
		}
		s.logger.Infow("wrote bitmap", "path", dst)
	}, s.logger.Sublogger("watcher"))
	if err != nil {
		return errorf("%v", err)
	}
	infof(c.App.Writer, "watching %s; interrupt to stop", c.Args().First())

	<-c.Context.Done()
	if err := watcher.Close(); err != nil {
		return errors.Wrap(err, "cannot stop watching")
	}
	return nil
}
