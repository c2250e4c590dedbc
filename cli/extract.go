package cli

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/viam-labs/depthoverlay/pipeline"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/rimage/auxdepth"
	"github.com/viam-labs/depthoverlay/utils"
)

// ExtractAction writes the depth bitmap of each image argument, aligned to the image.
func ExtractAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errorf("no images given")
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

	parallel := c.Int(flagParallel)
	if parallel <= 0 {
		parallel = utils.ParallelFactor
	}
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(parallel)

	var printMu sync.Mutex
	var written, withoutDepth atomic.Int32
	for _, src := range c.Args().Slice() {
		g.Go(func() error {
			overlay, err := importer.Import(ctx, src)
			if errors.Is(err, auxdepth.ErrContainerUnreadable) {
				printMu.Lock()
				warningf(c.App.ErrWriter, "skipping %s: %v", src, err)
				printMu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			bm, ok := overlay.Depth.Get()
			if !ok {
				withoutDepth.Inc()
				printMu.Lock()
				infof(c.App.Writer, "%s has no depth", src)
				printMu.Unlock()
				return nil
			}
			dst := bitmapPath(outDir, src, mimeType)
			if err := writeBitmap(dst, bm, s.pretty(c)); err != nil {
				return errors.Wrapf(err, "cannot write bitmap for %s", src)
			}
			written.Inc()
			printMu.Lock()
			successf(c.App.Writer, "%s -> %s", src, dst)
			printMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	printf(c.App.Writer, "%d written, %d without depth", written.Load(), withoutDepth.Load())
	return nil
}

// writeBitmap writes bm to path, encoded by the path's extension.
func writeBitmap(path string, bm *rimage.DepthBitmap, pretty bool) error {
	var img image.Image = bm.Gray()
	if pretty {
		img = bm.Colorize()
	}
	return rimage.WriteImageToFile(path, img)
}
