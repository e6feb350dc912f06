package scpi

import "errors"

var (
	// ErrReadLimit indicates the read loop hit its iteration guard before
	// seeing a terminator. The device is sending unterminated data or the
	// configured terminator is wrong.
	ErrReadLimit = errors.New("scpi: read limit reached before terminator")
	// ErrEmptyIdent indicates the device returned nothing for *IDN?. The
	// device must be treated as unreachable.
	ErrEmptyIdent = errors.New("scpi: empty identification response")
)
