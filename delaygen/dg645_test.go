package delaygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/internal/scripttest"
	"github.com/qclabs/go-instr/scpi"
)

func newTestDG645(t *testing.T, ch *scripttest.Channel) *DG645 {
	t.Helper()

	s, err := scpi.NewSession(ch)
	require.NoError(t, err)

	client, err := scpi.NewClient(ch, s, scpi.WithQuerySuffix(false))
	require.NoError(t, err)

	return NewDG645(client)
}

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel("a")
	require.NoError(t, err)
	assert.Equal(t, A, c)

	c, err = ParseChannel("T0")
	require.NoError(t, err)
	assert.Equal(t, T0, c)

	_, err = ParseChannel("Z")
	require.Error(t, err)
}

func TestParseOutput(t *testing.T) {
	o, err := ParseOutput("ef")
	require.NoError(t, err)
	assert.Equal(t, OutEF, o)

	_, err = ParseOutput("XY")
	require.Error(t, err)
}

func TestDG645SetDelay(t *testing.T) {
	ch := scripttest.New(1)
	d := newTestDG645(t, ch)

	require.NoError(t, d.SetDelay(B, A, 10e-6))
	assert.Equal(t, []string{"DLAY 3,2,1e-05\n"}, ch.Writes)

	require.Error(t, d.SetDelay(Channel(11), A, 0))
}

func TestDG645DelayReadback(t *testing.T) {
	ch := scripttest.New(1, "2,+0.000010000000\n")
	d := newTestDG645(t, ch)

	ref, delay, err := d.Delay(B)
	require.NoError(t, err)
	assert.Equal(t, A, ref)
	assert.InDelta(t, 10e-6, delay, 1e-15)
	assert.Equal(t, []string{"DLAY?3\n"}, ch.Writes)
}

func TestDG645DelayMalformed(t *testing.T) {
	ch := scripttest.New(1, "garbage\n")
	d := newTestDG645(t, ch)

	_, _, err := d.Delay(A)
	require.Error(t, err)
}

func TestDG645TriggerSetup(t *testing.T) {
	ch := scripttest.New(1, "5\n", "1000.000000\n", "1.400000\n")
	d := newTestDG645(t, ch)

	require.NoError(t, d.SetTriggerSource(TriggerSingleShot))

	src, err := d.TriggerSource()
	require.NoError(t, err)
	assert.Equal(t, TriggerSingleShot, src)

	require.NoError(t, d.SetTriggerRate(1000))

	rate, err := d.TriggerRate()
	require.NoError(t, err)
	assert.InDelta(t, 1000, rate, 1e-9)

	require.NoError(t, d.SetTriggerLevel(1.4))

	level, err := d.TriggerLevel()
	require.NoError(t, err)
	assert.InDelta(t, 1.4, level, 1e-9)

	require.NoError(t, d.Trigger())

	assert.Equal(t, []string{
		"TSRC 5\n",
		"TSRC?\n",
		"TRAT 1000.000000\n",
		"TRAT?\n",
		"TLVL 1.400000\n",
		"TLVL?\n",
		"*TRG\n",
	}, ch.Writes)

	require.Error(t, d.SetTriggerSource(TriggerSource(9)))
}

func TestDG645OutputLevels(t *testing.T) {
	ch := scripttest.New(1, "2.500000\n", "0.000000\n", "1\n")
	d := newTestDG645(t, ch)

	require.NoError(t, d.SetOutputLevel(OutAB, 2.5))
	require.NoError(t, d.SetOutputOffset(OutAB, 0))
	require.NoError(t, d.SetOutputPolarity(OutAB, true))

	level, err := d.OutputLevel(OutAB)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, level, 1e-9)

	offset, err := d.OutputOffset(OutAB)
	require.NoError(t, err)
	assert.InDelta(t, 0, offset, 1e-9)

	pos, err := d.OutputPolarity(OutAB)
	require.NoError(t, err)
	assert.True(t, pos)

	assert.Equal(t, []string{
		"LAMP 1,2.500000\n",
		"LOFF 1,0.000000\n",
		"LPOL 1,1\n",
		"LAMP?1\n",
		"LOFF?1\n",
		"LPOL?1\n",
	}, ch.Writes)

	require.Error(t, d.SetOutputLevel(Output(6), 1))
}

func TestDG645BurstMode(t *testing.T) {
	ch := scripttest.New(1, "1\n")
	d := newTestDG645(t, ch)

	require.NoError(t, d.SetBurstMode(true))

	on, err := d.BurstMode()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"BURM 1\n", "BURM?\n"}, ch.Writes)
}

func TestDG645ErrorsDrainsQueue(t *testing.T) {
	ch := scripttest.New(1, "10,\n", "0,\n")
	d := newTestDG645(t, ch)

	errs, err := d.Errors()
	require.NoError(t, err)
	assert.Equal(t, []int{10}, errs)
	assert.Len(t, ch.Writes, 2)
}
