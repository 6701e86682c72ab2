package broadctl

import (
	"errors"

	"github.com/muurk/broadctl/internal/protocol"
	"github.com/muurk/broadctl/internal/transport"
)

// Error kinds surfaced by the library. Wire-level failures keep their
// concrete types; check them with errors.Is / errors.As.
var (
	// ErrNetworkTimeout: no response within the timeout after all retries.
	ErrNetworkTimeout = transport.ErrTimeout

	// ErrAuth: the key exchange came back with a zero device ID or an
	// all-zero session key.
	ErrAuth = errors.New("authentication failed")

	// ErrNotReady: the device returned the soft 0xFFF6 code to a
	// learning-mode poll. Retryable; the poll loop is caller-driven.
	ErrNotReady = errors.New("no data available yet")

	// ErrUnsupportedDevice: the dispatch table has no dialect for this
	// device type, or the operation belongs to another family.
	ErrUnsupportedDevice = errors.New("operation not supported by this device")

	// ErrLearnTimeout: a learning poll loop exhausted its deadline
	// without a capture.
	ErrLearnTimeout = errors.New("learning timed out")

	// ErrInvalidArgument: out-of-range option value, unknown option key,
	// or malformed identifier.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DeviceError is a non-zero firmware error code from a response frame.
type DeviceError = protocol.DeviceError

// BadFrameError reports a structurally invalid response.
type BadFrameError = protocol.BadFrameError
