package mks

import (
	"errors"
	"fmt"
	"regexp"
)

// EOL is the in-band response delimiter of the 946 protocol.
const EOL = ";FF"

// Terminator is the physical frame terminator.
const Terminator = "\r"

// ErrNoAck indicates a 946 response that did not carry the ACK marker. The
// raw response travels alongside as a diagnostic; callers that want it can
// type-assert to *NoAckError.
var ErrNoAck = errors.New("mks: response is not an acknowledgment")

// NoAckError carries the raw response of a failed 946 transaction.
type NoAckError struct {
	Raw string
}

func (e *NoAckError) Error() string {
	return fmt.Sprintf("mks: response is not an acknowledgment: %q", e.Raw)
}

func (e *NoAckError) Unwrap() error { return ErrNoAck }

// buildQuery forms a 946 query frame: @<addr><mnemonic>?;FF\r.
func buildQuery(addr, mnemonic string) string {
	return fmt.Sprintf("@%s%s?%s%s", addr, mnemonic, EOL, Terminator)
}

// buildSet forms a 946 set frame: @<addr><mnemonic>!<value>;FF\r.
func buildSet(addr, mnemonic string, value any) string {
	return fmt.Sprintf("@%s%s!%v%s%s", addr, mnemonic, value, EOL, Terminator)
}

// responsePattern compiles the acknowledgment matcher for one controller
// address: "@<addr>ACK" up to ";FF". The address is fixed per driver, so
// the pattern is compiled once at construction.
func responsePattern(addr string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta("@"+addr+"ACK") + "(.+)" + regexp.QuoteMeta(EOL))
}

// parseResponse extracts the payload from a 946 response. A response that
// does not match returns the raw string together with a *NoAckError so
// callers can log the diagnostic.
func parseResponse(re *regexp.Regexp, resp string) (string, error) {
	match := re.FindStringSubmatch(resp)
	if match == nil {
		return resp, &NoAckError{Raw: resp}
	}

	return match[1], nil
}
