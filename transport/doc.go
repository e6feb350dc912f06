// Package transport implements the physical communication channels used to
// talk to laboratory instruments.
//
// Four channel kinds are supported, selected once at construction time via
// the Kind of the supplied Config:
//
//   - TCP: a stream socket to an instrument's LAN interface.
//   - GPIB: an IEEE-488 bus device behind a Prologix GPIB controller.
//   - Serial: an RS-232 UART with configurable baud rate, parity, data bits
//     and stop bits.
//   - Direct: a character special file (e.g. /dev/usbtmc0) opened read/write.
//
// All channels expose the same Channel interface: blocking, timeout-bounded
// Read/Write plus a best-effort Clear that discards buffered input. A
// Channel is not goroutine-safe; the instrument session layer owns it
// exclusively and serializes access.
//
// Read timeouts surface as errors matching IsTimeout regardless of the
// underlying medium, so callers never need to distinguish a socket deadline
// from a serial port timeout.
package transport
