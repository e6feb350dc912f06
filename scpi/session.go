package scpi

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/qclabs/go-instr/logger"
	"github.com/qclabs/go-instr/transport"
)

// DefaultMaxReads bounds the read-until-terminator loop. With single-byte
// reads this caps a frame at DefaultMaxReads bytes; a device that streams
// more than that without a terminator is misconfigured or broken.
const DefaultMaxReads = 65536

// Session frames a transport.Channel with a terminator.
//
// Writes append the terminator when enforcement is on and the payload does
// not already end with it. Reads accumulate until the terminator (ReadLine),
// an explicit delimiter (ReadUntil), a byte count (ReadN), or silence
// (ReadAll).
type Session struct {
	ch         transport.Channel
	terminator []byte
	enforce    bool
	maxReads   int
	logger     logger.Logger
}

// SessionOption is a functional option for configuring a Session.
type SessionOption interface {
	apply(*Session) error
}

type sessionOptFunc func(*Session) error

func (f sessionOptFunc) apply(s *Session) error { return f(s) }

// WithTerminator sets the frame terminator. Default is "\n".
func WithTerminator(term []byte) SessionOption {
	return sessionOptFunc(func(s *Session) error {
		if len(term) == 0 {
			return errors.New("scpi: terminator must not be empty")
		}
		s.terminator = term

		return nil
	})
}

// WithEnforceTermination controls whether Write appends the terminator to
// payloads that lack it. Default is on.
func WithEnforceTermination(on bool) SessionOption {
	return sessionOptFunc(func(s *Session) error {
		s.enforce = on

		return nil
	})
}

// WithMaxReads sets the iteration guard on the read-until loops.
func WithMaxReads(n int) SessionOption {
	return sessionOptFunc(func(s *Session) error {
		if n <= 0 {
			return errors.New("scpi: max reads must be positive")
		}
		s.maxReads = n

		return nil
	})
}

// WithSessionLogger sets the logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(s *Session) error {
		if l == nil {
			return errors.New("scpi: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// NewSession creates a framed session over ch.
func NewSession(ch transport.Channel, opts ...SessionOption) (*Session, error) {
	s := &Session{
		ch:         ch,
		terminator: []byte("\n"),
		enforce:    true,
		maxReads:   DefaultMaxReads,
		logger:     logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Terminator returns the configured frame terminator.
func (s *Session) Terminator() []byte { return s.terminator }

// Write sends cmd, appending the terminator when enforcement is on and cmd
// does not already end with it. Writing an already-terminated command never
// doubles the terminator.
func (s *Session) Write(cmd string) error {
	data := []byte(cmd)
	if s.enforce && !bytes.HasSuffix(data, s.terminator) {
		data = append(data, s.terminator...)
	}

	if _, err := s.ch.Write(data); err != nil {
		return fmt.Errorf("scpi: write: %w", err)
	}

	s.logger.Debug("sent", "cmd", cmd)

	return nil
}

// ReadLine accumulates single-byte reads until the buffer ends with the
// configured terminator, and returns the buffer with the terminator
// stripped. The loop is bounded by the max-reads guard; hitting it returns
// ErrReadLimit with whatever accumulated.
func (s *Session) ReadLine() (string, error) {
	buf, err := s.readUntil(s.terminator)
	if err != nil {
		return string(buf), err
	}

	return string(bytes.TrimSuffix(buf, s.terminator)), nil
}

// ReadUntil accumulates single-byte reads until the buffer ends with eol,
// and returns the buffer including eol. Used by framings whose in-band
// delimiter differs from the physical terminator.
func (s *Session) ReadUntil(eol []byte) (string, error) {
	buf, err := s.readUntil(eol)

	return string(buf), err
}

func (s *Session) readUntil(eol []byte) ([]byte, error) {
	var buf []byte
	b := make([]byte, 1)

	for i := 0; i < s.maxReads; i++ {
		n, err := s.ch.Read(b)
		if n > 0 {
			buf = append(buf, b[0])
			if bytes.HasSuffix(buf, eol) {
				return buf, nil
			}
		}

		if err != nil {
			return buf, fmt.Errorf("scpi: read: %w", err)
		}
	}

	return buf, fmt.Errorf("%w after %d reads", ErrReadLimit, s.maxReads)
}

// ReadN reads exactly n bytes, accumulating across short reads. Some
// devices answer with fixed-size unterminated records; this is the only
// way to frame those.
func (s *Session) ReadN(n int) (string, error) {
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)

	for i := 0; i < s.maxReads && len(buf) < n; i++ {
		m, err := s.ch.Read(chunk[:n-len(buf)])
		buf = append(buf, chunk[:m]...)

		if err != nil {
			return string(buf), fmt.Errorf("scpi: read %d bytes: %w", n, err)
		}
	}

	if len(buf) < n {
		return string(buf), fmt.Errorf("%w after %d reads", ErrReadLimit, s.maxReads)
	}

	return string(buf), nil
}

// ReadAll accumulates reads until the channel goes quiet, then strips one
// trailing terminator if present. The terminator length is honored exactly,
// so multi-byte terminators are removed whole or not at all.
func (s *Session) ReadAll() (string, error) {
	var buf []byte
	chunk := make([]byte, 512)

	for i := 0; i < s.maxReads; i++ {
		n, err := s.ch.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if err != nil {
			if transport.IsTimeout(err) {
				return string(bytes.TrimSuffix(buf, s.terminator)), nil
			}

			return string(buf), fmt.Errorf("scpi: read all: %w", err)
		}

		if n == 0 {
			return string(bytes.TrimSuffix(buf, s.terminator)), nil
		}
	}

	return string(buf), fmt.Errorf("%w after %d reads", ErrReadLimit, s.maxReads)
}

// Clear discards anything buffered on the channel.
func (s *Session) Clear() error {
	return s.ch.Clear()
}
