package scpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/internal/scripttest"
)

func newTestClient(t *testing.T, ch *scripttest.Channel, sessOpts []SessionOption, opts ...ClientOption) *Client {
	t.Helper()

	s, err := NewSession(ch, sessOpts...)
	require.NoError(t, err)

	c, err := NewClient(ch, s, opts...)
	require.NoError(t, err)

	return c
}

func TestClientQueryAppendsQuestionMark(t *testing.T) {
	ch := scripttest.New(1, "3.50000E+09\n")
	c := newTestClient(t, ch, nil)

	resp, err := c.Query("FREQ:CW")
	require.NoError(t, err)
	assert.Equal(t, "3.50000E+09", resp)
	assert.Equal(t, []string{"FREQ:CW?\n"}, ch.Writes)
}

func TestClientQueryNoDoubleQuestionMark(t *testing.T) {
	ch := scripttest.New(1, "ok\n")
	c := newTestClient(t, ch, nil)

	_, err := c.Query("FREQ:CW?")
	require.NoError(t, err)
	assert.Equal(t, []string{"FREQ:CW?\n"}, ch.Writes)
}

func TestClientQuerySuffixDisabled(t *testing.T) {
	ch := scripttest.New(1, "ok\n")
	c := newTestClient(t, ch, nil, WithQuerySuffix(false))

	_, err := c.Query("ID")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID\n"}, ch.Writes)
}

func TestClientQueryTrimsWhitespace(t *testing.T) {
	ch := scripttest.New(1, "  1.23E+04 \r\n")
	c := newTestClient(t, ch, []SessionOption{WithTerminator([]byte("\r\n"))})

	resp, err := c.Query("PRES")
	require.NoError(t, err)
	assert.Equal(t, "1.23E+04", resp)
}

func TestClientSequentialQueriesDoNotInterleave(t *testing.T) {
	// A slow transport must not let a second query's bytes mix with the
	// first response.
	ch := scripttest.New(1, "first\n", "second\n")
	ch.ReadDelay = time.Millisecond
	c := newTestClient(t, ch, nil)

	r1, err := c.Query("Q1")
	require.NoError(t, err)
	r2, err := c.Query("Q2")
	require.NoError(t, err)

	assert.Equal(t, "first", r1)
	assert.Equal(t, "second", r2)
	assert.Equal(t, []string{"Q1?\n", "Q2?\n"}, ch.Writes)
}

func TestClientIdentify(t *testing.T) {
	ch := scripttest.New(1, "Stanford_Research_Systems,SR830,s/n12345,ver1.07\n")
	c := newTestClient(t, ch, nil)

	idn, err := c.Identify()
	require.NoError(t, err)
	assert.Equal(t, "Stanford_Research_Systems,SR830,s/n12345,ver1.07", idn)
	assert.Equal(t, []string{"*IDN?\n"}, ch.Writes)
}

func TestClientIdentifyEmpty(t *testing.T) {
	ch := scripttest.New(1, "\n")
	c := newTestClient(t, ch, nil)

	_, err := c.Identify()
	require.ErrorIs(t, err, ErrEmptyIdent)
}

func TestClientMetrics(t *testing.T) {
	ch := scripttest.New(1, "resp\n")
	c := newTestClient(t, ch, nil)

	_, err := c.Query("CMD")
	require.NoError(t, err)

	// Second query times out: nothing left in the script.
	_, err = c.Query("CMD")
	require.Error(t, err)

	m := c.Metrics()
	assert.Equal(t, uint64(2), m.CmdSendCount.Load())
	assert.Equal(t, uint64(1), m.ReplyRecvCount.Load())
	assert.Equal(t, uint64(1), m.TimeoutCount.Load())
	assert.Equal(t, uint64(1), m.ErrCount.Load())
}

func TestClientClearAndClose(t *testing.T) {
	ch := scripttest.New(1, "stale\n")
	c := newTestClient(t, ch, nil)

	require.NoError(t, c.Clear())
	assert.Equal(t, 1, ch.Cleared)

	require.True(t, c.IsOpen())
	require.NoError(t, c.Close())
	require.False(t, c.IsOpen())

	// Closing again is a no-op.
	require.NoError(t, c.Close())
	require.False(t, c.IsOpen())
}
