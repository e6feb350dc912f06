package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/internal/scripttest"
	"github.com/qclabs/go-instr/scpi"
)

func newTestPSG(t *testing.T, ch *scripttest.Channel) *PSG {
	t.Helper()

	s, err := scpi.NewSession(ch)
	require.NoError(t, err)

	client, err := scpi.NewClient(ch, s)
	require.NoError(t, err)

	return NewPSG(client)
}

func TestPSGIdentify(t *testing.T) {
	ch := scripttest.New(1, "Agilent Technologies, E8257D, MY50000123, C.06.26\n")
	psg := newTestPSG(t, ch)

	id, err := psg.Identify()
	require.NoError(t, err)
	assert.Equal(t, "Agilent Technologies, E8257D, MY50000123, C.06.26", id)
	assert.Equal(t, []string{"*IDN?\n"}, ch.Writes)
}

func TestPSGOptionsCached(t *testing.T) {
	ch := scripttest.New(1, "1E1,1EU,521,550\n")
	psg := newTestPSG(t, ch)

	opts, err := psg.Options()
	require.NoError(t, err)
	assert.Equal(t, "1E1,1EU,521,550", opts)

	// Second read must come from the cache, not the wire.
	opts, err = psg.Options()
	require.NoError(t, err)
	assert.Equal(t, "1E1,1EU,521,550", opts)
	assert.Equal(t, []string{":DIAG:INFO:OPT?\n"}, ch.Writes)
}

func TestPSGFrequencyLimits(t *testing.T) {
	tests := []struct {
		name    string
		options string
		minHz   float64
		maxHz   float64
	}{
		{name: "base model", options: "1E1", minHz: 100e3, maxHz: 20e9},
		{name: "option 521 floor", options: "521", minHz: 10e6, maxHz: 20e9},
		{name: "option 532", options: "1E1,532", minHz: 100e3, maxHz: 31.8e9},
		{name: "option 540", options: "1E1,540", minHz: 100e3, maxHz: 40e9},
		{name: "option 550", options: "521,550", minHz: 10e6, maxHz: 50e9},
		{name: "option 567", options: "567", minHz: 100e3, maxHz: 70e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := scripttest.New(1, tt.options+"\n")
			psg := newTestPSG(t, ch)

			minFreq, err := psg.MinFrequency(Hz)
			require.NoError(t, err)
			assert.InDelta(t, tt.minHz, minFreq, 1e-6)

			maxFreq, err := psg.MaxFrequency(GHz)
			require.NoError(t, err)
			assert.InDelta(t, tt.maxHz/1e9, maxFreq, 1e-9)
		})
	}
}

func TestPSGFrequencyUnitRejected(t *testing.T) {
	ch := scripttest.New(1)
	psg := newTestPSG(t, ch)

	_, err := psg.MinFrequency("THz")
	require.Error(t, err)

	err = psg.SetFrequency(1.0, "furlongs")
	require.Error(t, err)
	assert.Empty(t, ch.Writes)
}

func TestPSGSetFrequency(t *testing.T) {
	ch := scripttest.New(1)
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetFrequency(8547.125, MHz))
	assert.Equal(t, []string{":FREQ 8547.125000MHz\n"}, ch.Writes)
}

func TestPSGFrequencyQuery(t *testing.T) {
	ch := scripttest.New(1, "+8.54712500000E+09\n")
	psg := newTestPSG(t, ch)

	freq, err := psg.Frequency()
	require.NoError(t, err)
	assert.InDelta(t, 8.547125e9, freq, 1)
	assert.Equal(t, []string{":FREQ?\n"}, ch.Writes)
}

func TestPSGRFOutput(t *testing.T) {
	ch := scripttest.New(1, "1\n", "0\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetRFOutput(true))

	on, err := psg.RFOutput()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, psg.SetRFOutput(false))

	on, err = psg.RFOutput()
	require.NoError(t, err)
	assert.False(t, on)

	assert.Equal(t, []string{
		":OUTP:STATe ON\n",
		":OUTPUT:STATE?\n",
		":OUTP:STATe OFF\n",
		":OUTPUT:STATE?\n",
	}, ch.Writes)
}

func TestPSGPowerLevel(t *testing.T) {
	ch := scripttest.New(1, "-1.350000000E+01\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetPowerLevel(-13.5))

	dbm, err := psg.PowerLevel()
	require.NoError(t, err)
	assert.InDelta(t, -13.5, dbm, 1e-9)
	assert.Equal(t, []string{":POW -13.500000DBM\n", ":POW?\n"}, ch.Writes)
}

func TestPSGFrequencyMode(t *testing.T) {
	ch := scripttest.New(1)
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetFrequencyMode("fixed"))
	require.NoError(t, psg.SetFrequencyMode("CW"))
	require.NoError(t, psg.SetFrequencyMode("sweep"))
	require.NoError(t, psg.SetFrequencyMode("list"))
	require.Error(t, psg.SetFrequencyMode("hop"))

	assert.Equal(t, []string{
		":FREQ:MODE FIX\n",
		":FREQ:MODE CW\n",
		":FREQ:MODE SWE\n",
		":FREQ:MODE LIST\n",
	}, ch.Writes)
}

func TestPSGTrigger(t *testing.T) {
	ch := scripttest.New(1, "ON\n")
	psg := newTestPSG(t, ch)

	cont, err := psg.TriggerContinuous()
	require.NoError(t, err)
	assert.True(t, cont)

	require.NoError(t, psg.SetTriggerContinuous(false))
	require.NoError(t, psg.Trigger())

	assert.Equal(t, []string{
		":INIT:CONT?\n",
		":INIT:CONT OFF\n",
		":INIT:IMM\n",
	}, ch.Writes)
}

func TestPSGSetModulationTypeExclusive(t *testing.T) {
	ch := scripttest.New(1)
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetModulationType(ModAM))
	assert.Equal(t, []string{
		":FM:STAT OFF\n",
		":PM:STAT OFF\n",
		":AM1:STAT ON\n",
	}, ch.Writes)

	ch.Writes = nil
	require.NoError(t, psg.SetModulationType(ModNone))
	assert.Equal(t, []string{
		":AM:STAT OFF\n",
		":FM:STAT OFF\n",
		":PM:STAT OFF\n",
	}, ch.Writes)

	require.Error(t, psg.SetModulationType("QAM"))
}

func TestPSGModulationTypes(t *testing.T) {
	ch := scripttest.New(1, "0\n", "1\n", "0\n")
	psg := newTestPSG(t, ch)

	active, err := psg.ModulationTypes()
	require.NoError(t, err)
	assert.Equal(t, []ModulationType{ModFM}, active)

	ch.Push("0\n", "0\n", "0\n")
	active, err = psg.ModulationTypes()
	require.NoError(t, err)
	assert.Equal(t, []ModulationType{ModNone}, active)
}

func TestPSGModulationFrequency(t *testing.T) {
	ch := scripttest.New(1, "+2.50000000E+04\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetModulationFrequency(ModFM, 25e3))

	freq, err := psg.ModulationFrequency(ModFM)
	require.NoError(t, err)
	assert.InDelta(t, 25e3, freq, 1e-6)
	assert.Equal(t, []string{":FM1:INT1:FREQ 25000.000000\n", ":FM1:INT1:FREQ?\n"}, ch.Writes)

	_, err = psg.ModulationFrequency(ModNone)
	require.Error(t, err)
}

func TestPSGModulationOutput(t *testing.T) {
	ch := scripttest.New(1, "1\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetModulationOutput(true))

	on, err := psg.ModulationOutput()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"OUTPUT:MOD ON\n", "OUTPUT:MOD?\n"}, ch.Writes)
}

func TestPSGPulseModulation(t *testing.T) {
	ch := scripttest.New(1, "0\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetPulseModulation(true))

	on, err := psg.PulseModulation()
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []string{":PULM:STAT ON\n", ":PULM:STAT?\n"}, ch.Writes)
}

func TestPSGPulseTiming(t *testing.T) {
	ch := scripttest.New(1, "1e-06\n", "0.0005\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetPulseDelay(1e-6))
	require.NoError(t, psg.SetPulseRate(1000))
	require.NoError(t, psg.SetPulsePeriod(0.001))
	require.NoError(t, psg.SetPulseWidth(0.0005))

	delay, err := psg.PulseDelay()
	require.NoError(t, err)
	assert.InDelta(t, 1e-6, delay, 1e-12)

	width, err := psg.PulseWidth()
	require.NoError(t, err)
	assert.InDelta(t, 0.0005, width, 1e-9)

	assert.Equal(t, []string{
		":PULM:INT:DEL 1e-06\n",
		":PULM:INT:FREQ 1000\n",
		":PULM:INT:PERIOD 0.001\n",
		":PULM:INT:PWID 0.0005\n",
		":PULM:INT:DEL?\n",
		":PULM:INT:PWID?\n",
	}, ch.Writes)
}

func TestPSGLFOutput(t *testing.T) {
	ch := scripttest.New(1)
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.SetLFOutput(true))
	require.NoError(t, psg.SetLFAmplitude(0.5))
	assert.Equal(t, []string{":LFO:STAT ON\n", ":LFO:AMPL 0.500000VP\n"}, ch.Writes)
}

func TestPSGErrorsDrainsQueue(t *testing.T) {
	ch := scripttest.New(1,
		"-222,\"Data out of range\"\n",
		"-113,\"Undefined header\"\n",
		"0,\"No error\"\n",
	)
	psg := newTestPSG(t, ch)

	errs, err := psg.Errors()
	require.NoError(t, err)
	assert.Equal(t, []string{
		`-222,"Data out of range"`,
		`-113,"Undefined header"`,
	}, errs)
	assert.Len(t, ch.Writes, 3)
}

func TestPSGErrorsEmpty(t *testing.T) {
	ch := scripttest.New(1, "0,\"No error\"\n")
	psg := newTestPSG(t, ch)

	errs, err := psg.Errors()
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestPSGResetAndESR(t *testing.T) {
	ch := scripttest.New(1, "32\n", "1\n")
	psg := newTestPSG(t, ch)

	require.NoError(t, psg.Reset())

	esr, err := psg.ESR()
	require.NoError(t, err)
	assert.Equal(t, 32, esr)

	require.NoError(t, psg.OperationComplete())

	assert.Equal(t, []string{"*RST\n", "*ESR?\n", "*OPC?\n"}, ch.Writes)
}
