package mks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFrames(t *testing.T) {
	assert.Equal(t, "@253PR1?;FF\r", buildQuery("253", "PR1"))
	assert.Equal(t, "@253QSP1!5.00E+01;FF\r", buildSet("253", "QSP1", "5.00E+01"))
	assert.Equal(t, "@001RRCP!2;FF\r", buildSet("001", "RRCP", 2))
}

func TestParseResponse(t *testing.T) {
	payload, err := parseResponse(responsePattern("001"), "@001ACKfoo;FF")
	require.NoError(t, err)
	assert.Equal(t, "foo", payload)
}

func TestParseResponseScientific(t *testing.T) {
	payload, err := parseResponse(responsePattern("253"), "@253ACK1.23E+04;FF")
	require.NoError(t, err)
	assert.Equal(t, "1.23E+04", payload)
}

func TestParseResponseNoAck(t *testing.T) {
	// A non-ACK body fails but keeps the raw string as a diagnostic.
	raw, err := parseResponse(responsePattern("001"), "@001NAK160;FF")
	require.ErrorIs(t, err, ErrNoAck)
	assert.Equal(t, "@001NAK160;FF", raw)

	var noAck *NoAckError
	require.ErrorAs(t, err, &noAck)
	assert.Equal(t, "@001NAK160;FF", noAck.Raw)
}

func TestParseResponseWrongAddress(t *testing.T) {
	_, err := parseResponse(responsePattern("001"), "@002ACKfoo;FF")
	require.ErrorIs(t, err, ErrNoAck)
}

func TestParseResponseLeadingGarbage(t *testing.T) {
	// The pattern is searched, not anchored, so line noise ahead of the
	// frame is tolerated.
	payload, err := parseResponse(responsePattern("253"), "\r\n@253ACK100;FF")
	require.NoError(t, err)
	assert.Equal(t, "100", payload)
}
