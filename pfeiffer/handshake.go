package pfeiffer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qclabs/go-instr/scpi"
)

// Protocol control bytes.
const (
	ENQ = 0x05
	ACK = 0x06
	NAK = 0x15
)

// Terminator is the frame terminator of the mnemonic protocol.
const Terminator = "\r"

var (
	// ErrNak indicates the controller rejected the command, usually a
	// syntax error. The historical diagnostic text is preserved so callers
	// matching on it keep working.
	ErrNak = errors.New("ERR: received NAK")
	// ErrProtocol indicates the controller answered with something other
	// than ACK or NAK. The transaction is abandoned, not retried.
	ErrProtocol = errors.New("pfeiffer: unexpected acknowledgment byte")
)

// responseMarker is the two-byte tail some firmware appends to payloads.
var responseMarker = "\r" + string(rune(NAK))

// Handshake drives the COMMAND -> ACK -> ENQ -> DATA exchange over a
// client framed with the "\r" terminator.
type Handshake struct {
	client *scpi.Client
}

// NewHandshake wraps client in the Pfeiffer handshake. The client's session
// must be framed with Terminator and have termination enforcement on.
func NewHandshake(client *scpi.Client) *Handshake {
	return &Handshake{client: client}
}

// Query runs one full handshake: send cmd, await the acknowledgment, send
// ENQ, and read the terminator-delimited payload. A NAK at either step
// surfaces as ErrNak. Some firmware tails the payload with a 0x0D 0x15
// marker; the 0x0D ends the frame and the stray 0x15 is discarded by the
// buffer clear that precedes the next transaction.
func (h *Handshake) Query(cmd string) (string, error) {
	if err := h.send(cmd); err != nil {
		return "", err
	}

	payload, err := h.client.ReadLine()
	if err != nil {
		return "", fmt.Errorf("pfeiffer: read payload: %w", err)
	}

	return finishPayload(payload)
}

// QueryN is Query with a fixed-size payload read, for responses the
// controller sends without a terminator.
func (h *Handshake) QueryN(cmd string, size int) (string, error) {
	if err := h.send(cmd); err != nil {
		return "", err
	}

	payload, err := h.client.Read(size)
	if err != nil {
		return "", fmt.Errorf("pfeiffer: read payload: %w", err)
	}

	return finishPayload(payload)
}

// Write sends cmd with no response expected beyond the acknowledgment.
func (h *Handshake) Write(cmd string) error {
	return h.send(cmd)
}

// send writes cmd and consumes the acknowledgment, answering ACK with ENQ.
// The input buffer is cleared first so a stale fragment from an earlier
// transaction cannot masquerade as the acknowledgment.
func (h *Handshake) send(cmd string) error {
	if err := h.client.Clear(); err != nil {
		return fmt.Errorf("pfeiffer: clear: %w", err)
	}

	if err := h.client.Write(cmd); err != nil {
		return fmt.Errorf("pfeiffer: write: %w", err)
	}

	ack, err := h.client.ReadLine()
	if err != nil {
		return fmt.Errorf("pfeiffer: read acknowledgment: %w", err)
	}

	switch strings.TrimSpace(ack) {
	case string(rune(ACK)):
		// ENQ starts the data transfer.
		if err := h.client.Write(string(rune(ENQ))); err != nil {
			return fmt.Errorf("pfeiffer: write ENQ: %w", err)
		}

		return nil
	case string(rune(NAK)):
		return ErrNak
	default:
		return fmt.Errorf("%w: %q", ErrProtocol, ack)
	}
}

func finishPayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)

	if payload == string(rune(NAK)) {
		return "", ErrNak
	}

	payload = strings.TrimSuffix(payload, responseMarker)

	return strings.TrimSpace(payload), nil
}
