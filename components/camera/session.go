package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

// deviceSlot is held by the running session. The capture hardware is exclusive to one session
// per process.
var deviceSlot atomic.Bool

// Configuration is the outcome of Configure. Reason is nil when a depth capable input is attached,
// otherwise ErrDeviceUnavailable or ErrDepthUnsupported. Neither is fatal.
type Configuration struct {
	Device       mo.Option[DeviceInfo]
	HasInput     bool
	HasOutput    bool
	DepthEnabled bool
	Reason       error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the clock used to timestamp photos.
func WithClock(clk clock.Clock) SessionOption {
	return func(s *Session) {
		s.clock = clk
	}
}

// WithMimeType sets the encoding of CapturedPhoto.ColorBytes. JPEG is the default.
func WithMimeType(mimeType string) SessionOption {
	return func(s *Session) {
		s.mimeType = mimeType
	}
}

// Session drives one capture device through configure, start, capture and stop.
type Session struct {
	devices  []Device
	logger   logging.Logger
	clock    clock.Clock
	mimeType string

	mu         sync.Mutex
	configured bool
	config     Configuration
	input      Device
	running    bool
	workers    utils.StoppableWorkers

	inFlight atomic.Bool
}

// NewSession returns an unconfigured session over the candidate devices.
func NewSession(devices []Device, logger logging.Logger, opts ...SessionOption) *Session {
	s := &Session{
		devices:  devices,
		logger:   logger,
		clock:    clock.New(),
		mimeType: utils.MimeTypeJPEG,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isBackWideAngle(d Device) bool {
	info := d.Info()
	return info.Position == PositionBack && info.Type == DeviceTypeWideAngle
}

// Configure selects the first back-facing wide-angle device, attaches it as the input with a still
// photo output and enables depth delivery when the device supports it. Configuring again returns
// the existing configuration.
func (s *Session) Configure(ctx context.Context) Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configureLocked(ctx)
}

func (s *Session) configureLocked(ctx context.Context) Configuration {
	if s.configured {
		return s.config
	}
	s.configured = true

	device, ok := lo.Find(s.devices, isBackWideAngle)
	if !ok {
		s.logger.CInfow(ctx, "no back-facing wide-angle device; capture is unavailable", "candidates", len(s.devices))
		s.config = Configuration{Device: mo.None[DeviceInfo](), Reason: ErrDeviceUnavailable}
		return s.config
	}
	info := device.Info()
	if err := device.Open(ctx); err != nil {
		s.logger.CWarnw(ctx, "cannot open capture device", "device", info.Name, "error", err)
		s.config = Configuration{Device: mo.Some(info), Reason: fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)}
		return s.config
	}
	s.input = device
	s.config = Configuration{
		Device:       mo.Some(info),
		HasInput:     true,
		HasOutput:    true,
		DepthEnabled: device.SupportsDepth(),
	}
	if !s.config.DepthEnabled {
		s.config.Reason = ErrDepthUnsupported
		s.logger.CInfow(ctx, "capture device has no depth delivery; photos will be color only", "device", info.Name)
	} else {
		s.logger.CDebugw(ctx, "capture device configured with depth delivery", "device", info.Name)
	}
	return s.config
}

// Start begins the live pipeline, configuring first if needed. Starting a running session does
// nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.configureLocked(ctx)
	if !deviceSlot.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	s.workers = utils.NewStoppableWorkers()
	s.running = true
	s.logger.CDebug(ctx, "capture session started")
	return nil
}

// Stop ends the live pipeline. A pending capture is abandoned and its continuation may not fire.
// Stopping a stopped session does nothing.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()

	// continuations run outside the workers, so Stop from inside one does not wait on itself.
	workers.Stop()
	s.inFlight.Store(false)
	deviceSlot.Store(false)
	s.logger.CDebug(ctx, "capture session stopped")
	return nil
}

// Running reports whether the session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Capture requests one still photo, with depth if and only if depth delivery is enabled. done is
// called exactly once with the photo or a failure wrapping ErrCaptureFailed, unless the session is
// stopped first. done runs on its own goroutine and may call Stop or Capture. A second Capture
// before the photo is delivered returns ErrCaptureInFlight.
func (s *Session) Capture(ctx context.Context, done func(CaptureResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if s.input == nil {
		return ErrDeviceUnavailable
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrCaptureInFlight
	}

	input := s.input
	withDepth := s.config.DepthEnabled
	if !s.workers.AddWorkers(func(workerCtx context.Context) {
		result, ok := s.captureOnce(workerCtx, input, withDepth)
		if !ok {
			s.logger.Debug("capture abandoned by session stop")
			return
		}
		s.inFlight.Store(false)
		goutils.PanicCapturingGo(func() { done(result) })
	}) {
		s.inFlight.Store(false)
		return ErrNotRunning
	}
	return nil
}

type rawResult struct {
	photo RawPhoto
	err   error
}

// captureOnce runs the device request. ok is false when the session stopped first; the device
// call is not waited for in that case.
func (s *Session) captureOnce(ctx context.Context, input Device, withDepth bool) (CaptureResult, bool) {
	results := make(chan rawResult, 1)
	goutils.PanicCapturingGo(func() {
		photo, err := input.Capture(ctx, withDepth)
		results <- rawResult{photo, err}
	})

	var raw rawResult
	select {
	case <-ctx.Done():
		return CaptureResult{}, false
	case raw = <-results:
	}
	if ctx.Err() != nil {
		return CaptureResult{}, false
	}

	if raw.err != nil {
		s.logger.Warnw("capture failed", "error", raw.err)
		return mo.Err[CapturedPhoto](fmt.Errorf("%w: %w", ErrCaptureFailed, raw.err)), true
	}
	if raw.photo.Color == nil {
		return mo.Err[CapturedPhoto](errors.Wrap(ErrCaptureFailed, "device returned no color image")), true
	}
	colorBytes, err := rimage.EncodeImage(ctx, raw.photo.Color, s.mimeType)
	if err != nil {
		return mo.Err[CapturedPhoto](fmt.Errorf("%w: %w", ErrCaptureFailed, err)), true
	}

	depth := raw.photo.Depth
	if !withDepth {
		depth = mo.None[*rimage.DepthSample]()
	}
	if sample, ok := depth.Get(); ok && (sample.Empty() || !sample.AlignsWith(raw.photo.Color.Bounds())) {
		s.logger.Warnw("dropping depth sample that does not match the photo",
			"photo_size", raw.photo.Color.Bounds().Size())
		depth = mo.None[*rimage.DepthSample]()
	}
	return mo.Ok(CapturedPhoto{
		ID:         uuid.New(),
		Color:      raw.photo.Color,
		ColorBytes: colorBytes,
		MimeType:   s.mimeType,
		CapturedAt: s.clock.Now(),
		Depth:      depth,
	}), true
}

// Close stops the session and closes the input device.
func (s *Session) Close(ctx context.Context) error {
	err := s.Stop(ctx)

	s.mu.Lock()
	input := s.input
	s.input = nil
	s.configured = false
	s.mu.Unlock()

	if input != nil {
		err = multierr.Combine(err, input.Close(ctx))
	}
	return err
}
