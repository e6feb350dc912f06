package pfeiffer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// GaugeStatus is the measurement status code reported alongside every
// pressure reading.
type GaugeStatus int

// Measurement status codes.
const (
	StatusOK GaugeStatus = iota
	StatusUnderrange
	StatusOverrange
	StatusSensorError
	StatusSensorOff
	StatusNoSensor
	StatusIDError
)

var statusNames = map[GaugeStatus]string{
	StatusOK:          "OK",
	StatusUnderrange:  "Underrange",
	StatusOverrange:   "Overrange",
	StatusSensorError: "Sensor error",
	StatusSensorOff:   "Sensor off",
	StatusNoSensor:    "No sensor",
	StatusIDError:     "ID error",
}

func (s GaugeStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("GaugeStatus(%d)", int(s))
}

// Reading is one channel's pressure measurement.
type Reading struct {
	Status   GaugeStatus
	Pressure float64
}

// errorTexts decodes the 4-digit ERR status word.
var errorTexts = map[string]string{
	"0000": "No error",
	"1000": "Controller error (see display)",
	"0100": "No hardware",
	"0010": "Inadmissible parameter",
	"0001": "Syntax error",
}

// KnownGases are the gas-correction presets, in controller index order.
var KnownGases = []string{
	"air", "argon", "hydrogen", "helium", "neon", "krypton", "xenon", "other",
}

// unitNames decodes the UNI response.
var unitNames = map[int]string{
	0: "mbar/bar",
	1: "Torr",
	2: "Pascal",
	3: "Micron",
	4: "hPascal",
	5: "Volt",
}

// Gauge drives a Pfeiffer TPG 36x SingleGauge/DualGauge controller.
type Gauge struct {
	hs *Handshake
}

// NewGauge wraps client in a TPG 36x driver. The client's session must use
// the "\r" terminator.
func NewGauge(client *scpi.Client) *Gauge {
	return &Gauge{hs: NewHandshake(client)}
}

// DialGauge opens a channel from cfg framed for the mnemonic protocol and
// returns the driver.
func DialGauge(cfg *transport.Config) (*Gauge, error) {
	client, err := scpi.Dial(cfg,
		[]scpi.SessionOption{scpi.WithTerminator([]byte(Terminator))},
		scpi.WithQuerySuffix(false),
	)
	if err != nil {
		return nil, err
	}

	return NewGauge(client), nil
}

// Identify returns the transmitter identification string (TID).
func (g *Gauge) Identify() (string, error) {
	return g.hs.Query("TID")
}

// Poke returns the full unit description (AYT).
func (g *Gauge) Poke() (string, error) {
	return g.hs.Query("AYT")
}

// HardwareVersion returns the hardware version string (HDW).
func (g *Gauge) HardwareVersion() (string, error) {
	return g.hs.Query("HDW")
}

// FirmwareVersion returns the firmware program number (PNR).
func (g *Gauge) FirmwareVersion() (string, error) {
	return g.hs.Query("PNR")
}

// Uptime returns the controller's operating hours (RHR).
func (g *Gauge) Uptime() (float64, error) {
	resp, err := g.hs.Query("RHR")
	if err != nil {
		return 0, err
	}

	hours, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("pfeiffer: parse uptime %q: %w", resp, err)
	}

	return hours, nil
}

// ErrorStatus returns the 4-digit error word (ERR) and its decoded text.
func (g *Gauge) ErrorStatus() (string, string, error) {
	code, err := g.hs.Query("ERR")
	if err != nil {
		return "", "", err
	}

	text, ok := errorTexts[code]
	if !ok {
		text = "Unknown error code"
	}

	return code, text, nil
}

// Reset clears all errors, returns the controller to measurement mode, and
// reports any error messages that were present (RES).
func (g *Gauge) Reset() (string, error) {
	return g.hs.Query("RES")
}

// Pressure reads channel 1 or 2 (PRn). A status above Overrange means the
// value is not a valid pressure; the caller decides whether that is fatal.
func (g *Gauge) Pressure(channel int) (Reading, error) {
	if channel != 1 && channel != 2 {
		return Reading{}, fmt.Errorf("pfeiffer: channel %d must be 1 or 2", channel)
	}

	resp, err := g.hs.Query(fmt.Sprintf("PR%d", channel))
	if err != nil {
		return Reading{}, err
	}

	readings, err := parseReadings(resp, 1)
	if err != nil {
		return Reading{}, err
	}

	return readings[0], nil
}

// Pressures reads both channels at once (PRX).
func (g *Gauge) Pressures() ([2]Reading, error) {
	resp, err := g.hs.Query("PRX")
	if err != nil {
		return [2]Reading{}, err
	}

	readings, err := parseReadings(resp, 2)
	if err != nil {
		return [2]Reading{}, err
	}

	return [2]Reading{readings[0], readings[1]}, nil
}

func parseReadings(resp string, count int) ([]Reading, error) {
	fields := strings.Split(resp, ",")
	if len(fields) < 2*count {
		return nil, fmt.Errorf("pfeiffer: malformed pressure response %q", resp)
	}

	readings := make([]Reading, 0, count)

	for i := 0; i < count; i++ {
		status, err := strconv.Atoi(strings.TrimSpace(fields[2*i]))
		if err != nil {
			return nil, fmt.Errorf("pfeiffer: parse status %q: %w", fields[2*i], err)
		}

		pressure, err := strconv.ParseFloat(strings.TrimSpace(fields[2*i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("pfeiffer: parse pressure %q: %w", fields[2*i+1], err)
		}

		readings = append(readings, Reading{Status: GaugeStatus(status), Pressure: pressure})
	}

	return readings, nil
}

// GaugeStates reads the on/off state of both channels (SEN). 0 means the
// gauge cannot be switched, 1 off, 2 on.
func (g *Gauge) GaugeStates() ([2]int, error) {
	resp, err := g.hs.Query("SEN")
	if err != nil {
		return [2]int{}, err
	}

	fields := strings.Split(resp, ",")
	if len(fields) != 2 {
		return [2]int{}, fmt.Errorf("pfeiffer: malformed SEN response %q", resp)
	}

	var states [2]int
	for i, f := range fields {
		states[i], err = strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return [2]int{}, fmt.Errorf("pfeiffer: parse SEN state %q: %w", f, err)
		}
	}

	return states, nil
}

// SetGaugeState switches one channel on or off, leaving the other channel's
// state untouched. Channels whose state reads 0 cannot be switched.
func (g *Gauge) SetGaugeState(channel int, on bool) ([2]int, error) {
	if channel != 1 && channel != 2 {
		return [2]int{}, fmt.Errorf("pfeiffer: channel %d must be 1 or 2", channel)
	}

	states, err := g.GaugeStates()
	if err != nil {
		return [2]int{}, err
	}

	want := 1
	if on {
		want = 2
	}

	if states[channel-1] != 0 && states[channel-1] != want {
		states[channel-1] = want
		if err := g.hs.Write(fmt.Sprintf("SEN,%d,%d", states[0], states[1])); err != nil {
			return [2]int{}, err
		}
	}

	code, text, err := g.ErrorStatus()
	if err != nil {
		return [2]int{}, err
	}
	if code != "0000" {
		return [2]int{}, fmt.Errorf("pfeiffer: gauge error %s: %s", code, text)
	}

	return g.GaugeStates()
}

// SetDisplayResolution sets the number of displayed digits (DCD) for one
// channel, or both when channel is 0.
func (g *Gauge) SetDisplayResolution(channel, digits int) (string, error) {
	if channel < 0 || channel > 2 {
		return "", fmt.Errorf("pfeiffer: channel %d must be 0, 1 or 2", channel)
	}
	if digits < 0 || digits > 4 {
		return "", fmt.Errorf("pfeiffer: digits %d must be in [0, 4]", digits)
	}

	switch channel {
	case 0:
		return g.hs.Query(fmt.Sprintf("DCD %d,%d", digits, digits))
	case 1:
		return g.hs.Query(fmt.Sprintf("DCD %d,", digits))
	default:
		return g.hs.Query(fmt.Sprintf("DCD ,%d", digits))
	}
}

// SetGasCorrection selects the gas-correction preset (GAS) for one channel.
// gas must be one of KnownGases.
func (g *Gauge) SetGasCorrection(channel int, gas string) (string, error) {
	if channel != 1 && channel != 2 {
		return "", fmt.Errorf("pfeiffer: channel %d must be 1 or 2", channel)
	}

	index := -1
	for i, known := range KnownGases {
		if strings.EqualFold(gas, known) {
			index = i

			break
		}
	}
	if index < 0 {
		return "", fmt.Errorf("pfeiffer: unknown gas %q", gas)
	}

	if channel == 1 {
		return g.hs.Query(fmt.Sprintf("GAS %d,", index))
	}

	return g.hs.Query(fmt.Sprintf("GAS ,%d", index))
}

// SetUnit selects the pressure unit of the readout (UNI).
func (g *Gauge) SetUnit(unit string) (string, error) {
	var index int

	switch strings.ToLower(unit) {
	case "bar", "mbar":
		index = 0
	case "torr", "mtorr":
		index = 1
	case "pascal", "pa":
		index = 2
	case "micron":
		index = 3
	case "hpascal", "hpa":
		index = 4
	case "volt", "v":
		index = 5
	default:
		return "", fmt.Errorf("pfeiffer: unknown unit %q", unit)
	}

	return g.hs.Query(fmt.Sprintf("UNI %d", index))
}

// Unit reads the pressure unit currently selected on the readout (UNI).
func (g *Gauge) Unit() (string, error) {
	resp, err := g.hs.Query("UNI")
	if err != nil {
		return "", err
	}

	index, err := strconv.Atoi(resp)
	if err != nil {
		return "", fmt.Errorf("pfeiffer: parse unit %q: %w", resp, err)
	}

	name, ok := unitNames[index]
	if !ok {
		return "", fmt.Errorf("pfeiffer: unknown unit index %d", index)
	}

	return name, nil
}

// SetLanguage sets the display language of the readout (LNG).
func (g *Gauge) SetLanguage(lang string) (string, error) {
	var index int

	switch strings.ToLower(lang) {
	case "english", "en":
		index = 0
	case "german", "deutsch", "de":
		index = 1
	case "french", "fr":
		index = 2
	default:
		return "", fmt.Errorf("pfeiffer: unknown language %q", lang)
	}

	return g.hs.Query(fmt.Sprintf("LNG %d", index))
}
