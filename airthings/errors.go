package airthings

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDeviceNotFound means discovery used up its scan budget without
	// seeing the requested serial number. It is never retried.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrConnectFailure wraps transient link faults while connecting, binding or reading.
	ErrConnectFailure = errors.New("connect failure")

	ErrNotConnected = errors.New("device not connected")

	ErrUnsupportedFormat = errors.New("unsupported sensor format")

	ErrMalformedPayload = errors.New("malformed sensor payload")
)

// UnsupportedFormatError reports the version tag the decoder refused.
type UnsupportedFormatError struct {
	Version uint8
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: version %d", ErrUnsupportedFormat, e.Version)
}

func (e *UnsupportedFormatError) Cause() error  { return ErrUnsupportedFormat }
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// ConnectError is a link-layer fault; its cause is ErrConnectFailure.
type ConnectError struct {
	Op  string
	Err error
}

// NewConnectError annotates a link fault with the step that failed.
func NewConnectError(op string, err error) error {
	return errors.WithStack(&ConnectError{Op: op, Err: err})
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrConnectFailure, e.Op)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConnectFailure, e.Op, e.Err)
}

func (e *ConnectError) Cause() error         { return ErrConnectFailure }
func (e *ConnectError) Unwrap() error        { return e.Err }
func (e *ConnectError) Is(target error) bool { return target == ErrConnectFailure }

// IsFatal reports whether err must stop polling instead of feeding the retry policy.
func IsFatal(err error) bool {
	switch errors.Cause(err) {
	case ErrConnectFailure:
		return false
	default:
		return true
	}
}
