package pipeline

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/rimage/auxdepth"
	"github.com/viam-labs/depthoverlay/utils"
)

// Importer turns stored image files into overlays.
type Importer struct {
	extractor  *auxdepth.Extractor
	normalizer *rimage.Normalizer
	logger     logging.Logger
	workers    utils.StoppableWorkers
}

// NewImporter returns an importer. Close it to stop pending asynchronous imports.
func NewImporter(normalizer *rimage.Normalizer, logger logging.Logger) *Importer {
	return &Importer{
		extractor:  auxdepth.NewExtractor(logger.Sublogger("auxdepth")),
		normalizer: normalizer,
		logger:     logger,
		workers:    utils.NewStoppableWorkers(),
	}
}

// Import reads the color image and any auxiliary depth stored in the file at path. A file
// without auxiliary depth is not an error; the overlay's depth is absent.
func (im *Importer) Import(ctx context.Context, path string) (Overlay, error) {
	sample, err := im.extractor.Extract(ctx, path)
	if err != nil {
		return Overlay{}, err
	}
	// EXIF orientation is not applied; auxiliary depth is stored in sensor orientation.
	color, err := imaging.Open(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("%w: %w", auxdepth.ErrContainerUnreadable, err)
	}
	if sample.IsAbsent() {
		im.logger.CDebugw(ctx, "no auxiliary depth", "path", path)
	}
	return Overlay{
		ID:     uuid.New(),
		Color:  color,
		Depth:  alignedDepth(im.logger, color, im.normalizer.Normalize(sample)),
		Source: SourceImported,
		Path:   path,
	}, nil
}

// ImportAsync imports path on a background worker and calls cont exactly once, with the context
// error if ctx is canceled or the importer is closed first. It returns false, without calling
// cont, once the importer is closed.
func (im *Importer) ImportAsync(ctx context.Context, path string, cont func(Overlay, error)) bool {
	return im.workers.AddWorkers(func(workerCtx context.Context) {
		importCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()

		overlay, err := im.Import(importCtx, path)
		if err == nil && importCtx.Err() != nil {
			err = importCtx.Err()
		}
		goutils.PanicCapturingGo(func() { cont(overlay, err) })
	})
}

// Close cancels pending asynchronous imports and waits for them to finish. Continuations run on
// their own goroutines and may call Close.
func (im *Importer) Close() {
	im.workers.Stop()
}
