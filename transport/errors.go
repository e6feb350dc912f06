package transport

import (
	"errors"
	"net"
	"os"

	"github.com/goburrow/serial"
)

var (
	// ErrNotOpen indicates an operation was attempted on a channel that has
	// not been opened, or that has already been closed.
	ErrNotOpen = errors.New("transport: channel not open")

	// ErrAlreadyOpen indicates Open was called on a channel that is open.
	ErrAlreadyOpen = errors.New("transport: channel already open")

	// ErrTimeout indicates a read did not complete within the configured
	// read timeout. This is not necessarily fatal; it frequently just means
	// the instrument has not produced data yet.
	ErrTimeout = errors.New("transport: read timeout")

	// ErrUnknownKind indicates an unrecognized transport kind.
	ErrUnknownKind = errors.New("transport: unknown transport kind")
)

// IsTimeout reports whether err represents a read timeout on any channel
// kind: the package's own ErrTimeout, an expired net deadline, or a serial
// port timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, serial.ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
