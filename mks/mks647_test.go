package mks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/internal/scripttest"
	"github.com/qclabs/go-instr/scpi"
)

func newTest647(t *testing.T, ch *scripttest.Channel) *MKS647 {
	t.Helper()

	s, err := scpi.NewSession(ch, scpi.WithTerminator([]byte(Terminator)))
	require.NoError(t, err)

	client, err := scpi.NewClient(ch, s, scpi.WithQuerySuffix(false))
	require.NoError(t, err)

	return NewMKS647(client)
}

func TestMKS647Identify(t *testing.T) {
	// The ID response is a fixed 30-byte unterminated record.
	ch := scripttest.New(1, "MKS 647C V1.9 - 12 01 1997    ")
	m := newTest647(t, ch)

	id, err := m.Identify()
	require.NoError(t, err)
	assert.Equal(t, "MKS 647C V1.9 - 12 01 1997", id)

	// Query mnemonics take no '?' suffix.
	assert.Equal(t, []string{"ID\r"}, ch.Writes)
}

func TestMKS647IdentifyEmpty(t *testing.T) {
	ch := scripttest.New(1, "                              ")
	m := newTest647(t, ch)

	_, err := m.Identify()
	require.ErrorIs(t, err, scpi.ErrEmptyIdent)
}

func TestMKS647Status(t *testing.T) {
	ch := scripttest.New(1, "1000011")
	m := newTest647(t, ch)

	st, err := m.Status(1)
	require.NoError(t, err)
	assert.True(t, st.On)
	assert.False(t, st.TripLow)
	assert.True(t, st.TripHigh)
	assert.True(t, st.OverflowIn)
	assert.Equal(t, "1000011", st.Raw)
	assert.Equal(t, []string{"ST 1\r"}, ch.Writes)

	_, err = m.Status(9)
	require.Error(t, err)
}

func TestMKS647StatusAllFlagsReachable(t *testing.T) {
	// Every decoded flag sits inside the 7-character record.
	ch := scripttest.New(1, "1001111")
	m := newTest647(t, ch)

	st, err := m.Status(2)
	require.NoError(t, err)
	assert.True(t, st.On)
	assert.True(t, st.TripLow)
	assert.True(t, st.TripHigh)
	assert.True(t, st.OverflowIn)
}

func TestMKS647Valves(t *testing.T) {
	ch := scripttest.New(1)
	m := newTest647(t, ch)

	require.NoError(t, m.OpenValve(3))
	require.NoError(t, m.CloseValve(0)) // 0 = all
	assert.Equal(t, []string{"ON 3\r", "OF 0\r"}, ch.Writes)

	require.Error(t, m.OpenValve(9))
}

func TestMKS647SetpointRoundTrip(t *testing.T) {
	ch := scripttest.New(1, "500\r")
	m := newTest647(t, ch)

	// 50% rides the wire as 500 (0.1% steps).
	require.NoError(t, m.SetSetpoint(2, 50))
	assert.Equal(t, "FS 2 500\r", ch.Writes[0])

	pct, err := m.Setpoint(2)
	require.NoError(t, err)
	assert.Equal(t, 50.0, pct)
	assert.Equal(t, "FS 2 R\r", ch.Writes[1])
}

func TestMKS647SetpointLimits(t *testing.T) {
	m := newTest647(t, scripttest.New(1))

	require.Error(t, m.SetSetpoint(1, 115))
	require.Error(t, m.SetSetpoint(1, -1))
}

func TestMKS647SetpointErrorResponse(t *testing.T) {
	ch := scripttest.New(1, "E01\r")
	m := newTest647(t, ch)

	pct, err := m.Setpoint(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func TestMKS647Flow(t *testing.T) {
	ch := scripttest.New(1, "0000755")
	m := newTest647(t, ch)

	flow, err := m.Flow(1)
	require.NoError(t, err)
	assert.InDelta(t, 75.5, flow, 1e-9)
	assert.Equal(t, []string{"FL 1\r"}, ch.Writes)
}

func TestMKS647Range(t *testing.T) {
	ch := scripttest.New(1, "06")
	m := newTest647(t, ch)

	require.NoError(t, m.SetRange(4, "100 SCCM"))
	assert.Equal(t, "RA 4 6\r", ch.Writes[0])

	r, err := m.Range(4)
	require.NoError(t, err)
	assert.Equal(t, "100 SCCM", r)

	require.Error(t, m.SetRange(4, "7 SCCM"))
}

func TestMKS647CorrectionFactorRoundTrip(t *testing.T) {
	ch := scripttest.New(1, "145\r")
	m := newTest647(t, ch)

	// cf 1.45 rides the wire as 145 (0.01 steps).
	require.NoError(t, m.SetCorrectionFactor(5, 1.45))
	assert.Equal(t, "GC 5 145\r", ch.Writes[0])

	cf, err := m.CorrectionFactor(5)
	require.NoError(t, err)
	assert.InDelta(t, 1.45, cf, 1e-9)
}

func TestMKS647PressureUnit(t *testing.T) {
	ch := scripttest.New(1, "04")
	m := newTest647(t, ch)

	require.NoError(t, m.SetPressureUnit("100 mbar"))
	assert.Equal(t, "PU 17\r", ch.Writes[0])

	unit, err := m.PressureUnit()
	require.NoError(t, err)
	assert.Equal(t, "1 torr", unit)

	require.Error(t, m.SetPressureUnit("7 torr"))
}

func TestMKS647TripLimits(t *testing.T) {
	ch := scripttest.New(1, "100\r", "900\r")
	m := newTest647(t, ch)

	require.NoError(t, m.SetTripLimits(1, 10, 90))
	assert.Equal(t, []string{"LL 1 100\r", "HL 1 900\r"}, ch.Writes)

	low, high, err := m.TripLimits(1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, low)
	assert.Equal(t, 90.0, high)

	require.Error(t, m.SetTripLimits(1, 90, 10))
}

func TestMKS647GasMenu(t *testing.T) {
	ch := scripttest.New(1, "3")
	m := newTest647(t, ch)

	require.NoError(t, m.SetGasMenu(3))
	menu, err := m.GasMenu()
	require.NoError(t, err)
	assert.Equal(t, 3, menu)
}

func TestMKS647Resets(t *testing.T) {
	ch := scripttest.New(1)
	m := newTest647(t, ch)

	require.NoError(t, m.ResetHardware())
	require.NoError(t, m.ResetDefaults())
	assert.Equal(t, []string{"RE\r", "DF\r"}, ch.Writes)
}
