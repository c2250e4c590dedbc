package pipeline

import (
	"context"

	"github.com/viam-labs/depthoverlay/components/camera"
	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
)

// Live turns photos from a capture session into overlays.
type Live struct {
	session    *camera.Session
	normalizer *rimage.Normalizer
	logger     logging.Logger
}

// NewLive returns a live pipeline over session. The pipeline does not own the session.
func NewLive(session *camera.Session, normalizer *rimage.Normalizer, logger logging.Logger) *Live {
	return &Live{session: session, normalizer: normalizer, logger: logger}
}

// Start configures and starts the session. The returned configuration says whether depth will be
// delivered; its Reason is informational.
func (l *Live) Start(ctx context.Context) (camera.Configuration, error) {
	conf := l.session.Configure(ctx)
	if conf.Reason != nil {
		l.logger.CInfow(ctx, "capturing without depth", "reason", conf.Reason)
	}
	return conf, l.session.Start(ctx)
}

// Stop stops the session, abandoning any pending capture.
func (l *Live) Stop(ctx context.Context) error {
	return l.session.Stop(ctx)
}

// Capture takes one photo. cont is called once with the overlay or the capture failure, unless
// the session is stopped first. Errors returned directly mean no capture was started.
func (l *Live) Capture(ctx context.Context, cont func(Overlay, error)) error {
	return l.session.Capture(ctx, func(result camera.CaptureResult) {
		photo, err := result.Get()
		if err != nil {
			cont(Overlay{}, err)
			return
		}
		cont(l.overlay(photo), nil)
	})
}

func (l *Live) overlay(photo camera.CapturedPhoto) Overlay {
	return Overlay{
		ID:     photo.ID,
		Color:  photo.Color,
		Depth:  alignedDepth(l.logger, photo.Color, l.normalizer.Normalize(photo.Depth)),
		Source: SourceLive,
	}
}
