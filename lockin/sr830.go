// Package lockin drives the Stanford Research SR830 lock-in amplifier,
// typically behind a Prologix GPIB adapter.
package lockin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// TimeConstants holds the discrete time constants of the SR830 in
// seconds, indexed by the OFLT setting.
var TimeConstants = []float64{
	10e-6, 30e-6, 100e-6, 300e-6,
	1e-3, 3e-3, 10e-3, 30e-3, 100e-3, 300e-3,
	1, 3, 10, 30, 100, 300,
	1e3, 3e3, 10e3, 30e3,
}

// Sensitivities holds the discrete sensitivities of the SR830 in volts,
// indexed by the SENS setting.
var Sensitivities = []float64{
	2e-9, 5e-9, 10e-9, 20e-9, 50e-9, 100e-9, 200e-9, 500e-9,
	1e-6, 2e-6, 5e-6, 10e-6, 20e-6, 50e-6, 100e-6, 200e-6, 500e-6,
	1e-3, 2e-3, 5e-3, 10e-3, 20e-3, 50e-3, 100e-3, 200e-3, 500e-3,
	1,
}

// Output selects which demodulator output OUTP? reads.
type Output int

// Demodulator outputs.
const (
	OutputX     Output = 1
	OutputY     Output = 2
	OutputR     Output = 3
	OutputTheta Output = 4
)

// maxReferenceFreq is the highest internal reference frequency at the
// fundamental; the limit scales down with the detection harmonic.
const maxReferenceFreq = 102000.0

// SR830 drives an SR830 lock-in amplifier.
type SR830 struct {
	client *scpi.Client
}

// NewSR830 wraps client in an SR830 driver and directs instrument
// responses to the host interface (OUTX 1).
func NewSR830(client *scpi.Client) (*SR830, error) {
	l := &SR830{client: client}
	if err := client.Write("OUTX 1"); err != nil {
		return nil, err
	}

	return l, nil
}

// Dial opens a channel from cfg and returns the driver.
func Dial(cfg *transport.Config) (*SR830, error) {
	client, err := scpi.Dial(cfg, nil, scpi.WithQuerySuffix(false))
	if err != nil {
		return nil, err
	}

	l, err := NewSR830(client)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	return l, nil
}

// Identify returns the *IDN? identification string.
func (l *SR830) Identify() (string, error) {
	return l.client.Identify()
}

// Close releases the connection.
func (l *SR830) Close() error {
	return l.client.Close()
}

// SetPhase sets the reference phase in degrees (PHAS). The instrument
// accepts -360 to +729.99 degrees; values outside are wrapped into that
// range.
func (l *SR830) SetPhase(deg float64) error {
	if deg < -360 {
		deg = math.Mod(deg, -360)
	} else if deg > 720 {
		deg = math.Mod(deg, 720)
	}

	return l.client.Write(fmt.Sprintf("PHAS %f", deg))
}

// Phase reads the reference phase in degrees.
func (l *SR830) Phase() (float64, error) {
	return l.queryFloat("PHAS?")
}

// AutoPhase runs the auto-phase function (APHS).
func (l *SR830) AutoPhase() error {
	return l.client.Write("APHS")
}

// SetHarmonic sets the detection harmonic (HARM).
func (l *SR830) SetHarmonic(harm int) error {
	if harm < 1 {
		return fmt.Errorf("lockin: harmonic %d must be positive", harm)
	}

	return l.client.Write(fmt.Sprintf("HARM %d", harm))
}

// Harmonic reads the detection harmonic.
func (l *SR830) Harmonic() (int, error) {
	return l.queryInt("HARM?")
}

// SetFrequency sets the internal reference frequency in Hz (FREQ). The
// maximum is 102 kHz divided by the current detection harmonic, which is
// read first.
func (l *SR830) SetFrequency(hz float64) error {
	harm, err := l.Harmonic()
	if err != nil {
		return err
	}
	if hz/float64(harm) > maxReferenceFreq {
		return fmt.Errorf("lockin: frequency %g Hz exceeds %g Hz limit at harmonic %d", hz, maxReferenceFreq*float64(harm), harm)
	}

	return l.client.Write(fmt.Sprintf("FREQ %f", hz))
}

// Frequency reads the internal reference frequency in Hz.
func (l *SR830) Frequency() (float64, error) {
	return l.queryFloat("FREQ?")
}

// Read reads one demodulator output (OUTP?).
func (l *SR830) Read(output Output) (float64, error) {
	if output < OutputX || output > OutputTheta {
		return 0, fmt.Errorf("lockin: output %d must be X, Y, R or Theta", output)
	}

	return l.queryFloat(fmt.Sprintf("OUTP? %d", output))
}

// SetTimeConstant sets the time constant to the closest available value
// (OFLT) and returns the value actually selected.
func (l *SR830) SetTimeConstant(seconds float64) (float64, error) {
	index := closestIndex(TimeConstants, seconds)
	if err := l.client.Write(fmt.Sprintf("OFLT %d", index)); err != nil {
		return 0, err
	}

	return TimeConstants[index], nil
}

// TimeConstant reads the time constant in seconds.
func (l *SR830) TimeConstant() (float64, error) {
	index, err := l.queryInt("OFLT?")
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(TimeConstants) {
		return 0, fmt.Errorf("lockin: time constant index %d out of range", index)
	}

	return TimeConstants[index], nil
}

// SetSensitivity sets the sensitivity to the closest available value
// (SENS) and returns the value actually selected.
func (l *SR830) SetSensitivity(volts float64) (float64, error) {
	index := closestIndex(Sensitivities, volts)
	if err := l.client.Write(fmt.Sprintf("SENS %d", index)); err != nil {
		return 0, err
	}

	return Sensitivities[index], nil
}

// Sensitivity reads the sensitivity in volts.
func (l *SR830) Sensitivity() (float64, error) {
	index, err := l.queryInt("SENS?")
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(Sensitivities) {
		return 0, fmt.Errorf("lockin: sensitivity index %d out of range", index)
	}

	return Sensitivities[index], nil
}

func closestIndex(values []float64, target float64) int {
	best := 0
	bestDiff := math.Abs(values[0] - target)
	for i, v := range values[1:] {
		if diff := math.Abs(v - target); diff < bestDiff {
			best = i + 1
			bestDiff = diff
		}
	}

	return best
}

func (l *SR830) queryFloat(cmd string) (float64, error) {
	resp, err := l.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("lockin: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (l *SR830) queryInt(cmd string) (int, error) {
	resp, err := l.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, fmt.Errorf("lockin: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}
