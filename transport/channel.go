package transport

import "fmt"

// Channel is a byte-level connection to an instrument. Implementations wrap
// one physical transport each and normalize its behavior: Read returns
// ErrTimeout-compatible errors on expiry (use IsTimeout), Clear discards
// pending input where the transport supports it, reopening an open channel
// fails with ErrAlreadyOpen, and Close is idempotent.
//
// A Channel is not safe for concurrent use; serialization is the caller's
// responsibility (see the scpi package).
type Channel interface {
	// Open establishes the connection.
	Open() error
	// Read reads up to len(p) bytes into p, blocking at most the configured
	// read timeout.
	Read(p []byte) (int, error)
	// Write writes p in full.
	Write(p []byte) (int, error)
	// Clear discards any pending input held by the transport or the device.
	Clear() error
	// Close tears down the connection. Closing an already-closed channel
	// is a no-op.
	Close() error
	// IsOpen reports whether the channel is currently open.
	IsOpen() bool
}

// New creates a channel of the kind named by cfg. The channel is not opened.
func New(cfg *Config) (Channel, error) {
	switch cfg.Kind() {
	case TCP:
		return newTCPChannel(cfg), nil
	case GPIB:
		return newGPIBChannel(cfg), nil
	case Serial:
		return newSerialChannel(cfg), nil
	case Direct:
		return newDirectChannel(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(cfg.Kind()))
	}
}
