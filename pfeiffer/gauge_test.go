package pfeiffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/internal/scripttest"
)

func newTestGauge(t *testing.T, ch *scripttest.Channel) *Gauge {
	t.Helper()

	return &Gauge{hs: newTestHandshake(t, ch)}
}

// ack prefixes every scripted transaction: the controller acknowledges the
// command before sending data.
const ack = "\x06\r"

func TestGaugeIdentify(t *testing.T) {
	ch := scripttest.New(1, ack, "PKR,CMR\r")
	g := newTestGauge(t, ch)

	id, err := g.Identify()
	require.NoError(t, err)
	assert.Equal(t, "PKR,CMR", id)
	assert.Equal(t, "TID\r", ch.Writes[0])
}

func TestGaugePressure(t *testing.T) {
	ch := scripttest.New(1, ack, "0,+7.5000E-03\r\x15")
	g := newTestGauge(t, ch)

	r, err := g.Pressure(1)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, r.Status)
	assert.InDelta(t, 7.5e-3, r.Pressure, 1e-12)
	assert.Equal(t, "PR1\r", ch.Writes[0])
}

func TestGaugePressureStatus(t *testing.T) {
	ch := scripttest.New(1, ack, "5,+0.0000E+00\r")
	g := newTestGauge(t, ch)

	r, err := g.Pressure(2)
	require.NoError(t, err)
	assert.Equal(t, StatusNoSensor, r.Status)
	assert.Equal(t, "No sensor", r.Status.String())
}

func TestGaugePressures(t *testing.T) {
	ch := scripttest.New(1, ack, "0,+1.2300E+04,1,+9.9999E-12\r")
	g := newTestGauge(t, ch)

	rs, err := g.Pressures()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, rs[0].Status)
	assert.InDelta(t, 12300.0, rs[0].Pressure, 1e-9)
	assert.Equal(t, StatusUnderrange, rs[1].Status)
	assert.Equal(t, "PRX\r", ch.Writes[0])
}

func TestGaugeBadChannel(t *testing.T) {
	g := newTestGauge(t, scripttest.New(1))

	_, err := g.Pressure(3)
	require.Error(t, err)
	_, err = g.SetGaugeState(0, true)
	require.Error(t, err)
}

func TestGaugeStates(t *testing.T) {
	ch := scripttest.New(1, ack, "2,1\r")
	g := newTestGauge(t, ch)

	states, err := g.GaugeStates()
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 1}, states)
}

func TestGaugeSetGaugeState(t *testing.T) {
	ch := scripttest.New(1,
		ack, "2,1\r", // current states
		ack, // SEN,2,2 acknowledged
		ack, "0000\r", // no error
		ack, "2,2\r", // states after switch
	)
	g := newTestGauge(t, ch)

	states, err := g.SetGaugeState(2, true)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, states)
	assert.Contains(t, ch.Writes, "SEN,2,2\r")
}

func TestGaugeSetGaugeStateError(t *testing.T) {
	ch := scripttest.New(1,
		ack, "2,1\r",
		ack,
		ack, "0010\r", // inadmissible parameter
	)
	g := newTestGauge(t, ch)

	_, err := g.SetGaugeState(2, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Inadmissible parameter")
}

func TestGaugeUptime(t *testing.T) {
	ch := scripttest.New(1, ack, "12345\r")
	g := newTestGauge(t, ch)

	hours, err := g.Uptime()
	require.NoError(t, err)
	assert.Equal(t, 12345.0, hours)
	assert.Equal(t, "RHR\r", ch.Writes[0])
}

func TestGaugeErrorStatus(t *testing.T) {
	ch := scripttest.New(1, ack, "0000\r")
	g := newTestGauge(t, ch)

	code, text, err := g.ErrorStatus()
	require.NoError(t, err)
	assert.Equal(t, "0000", code)
	assert.Equal(t, "No error", text)
}

func TestGaugeUnits(t *testing.T) {
	ch := scripttest.New(1, ack, "1\r")
	g := newTestGauge(t, ch)

	unit, err := g.Unit()
	require.NoError(t, err)
	assert.Equal(t, "Torr", unit)

	ch.Push(ack)
	ch.Push("2\r")
	resp, err := g.SetUnit("pa")
	require.NoError(t, err)
	assert.Equal(t, "2", resp)
	assert.Contains(t, ch.Writes, "UNI 2\r")

	_, err = g.SetUnit("furlong")
	require.Error(t, err)
}

func TestGaugeSetGasCorrection(t *testing.T) {
	ch := scripttest.New(1, ack, "3,\r")
	g := newTestGauge(t, ch)

	_, err := g.SetGasCorrection(1, "helium")
	require.NoError(t, err)
	assert.Equal(t, "GAS 3,\r", ch.Writes[0])

	_, err = g.SetGasCorrection(1, "unobtanium")
	require.Error(t, err)
}

func TestGaugeSetDisplayResolution(t *testing.T) {
	ch := scripttest.New(1, ack, "2,2\r")
	g := newTestGauge(t, ch)

	_, err := g.SetDisplayResolution(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "DCD 2,2\r", ch.Writes[0])

	_, err = g.SetDisplayResolution(1, 9)
	require.Error(t, err)
}
