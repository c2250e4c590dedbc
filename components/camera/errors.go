package camera

import "github.com/pkg/errors"

var (
	// ErrDeviceUnavailable means no compatible capture device could be attached.
	ErrDeviceUnavailable = errors.New("no compatible capture device available")

	// ErrDepthUnsupported means the device cannot deliver depth; photos are color only.
	ErrDepthUnsupported = errors.New("capture device does not support depth delivery")

	// ErrCaptureFailed wraps a hardware failure during a single capture. The session stays usable.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrNotRunning is returned by Capture before Start or after Stop.
	ErrNotRunning = errors.New("capture session is not running")

	// ErrCaptureInFlight is returned by Capture while a previous capture has not completed.
	ErrCaptureInFlight = errors.New("a capture is already in flight")

	// ErrSessionActive is returned by Start when another session holds the capture device.
	ErrSessionActive = errors.New("another capture session is already running")
)
