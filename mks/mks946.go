package mks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// Full-scale ranges and pressure units accepted by the 946.
var (
	RangeUnits946 = []string{
		"5 SCCM", "10 SCCM", "20 SCCM", "50 SCCM",
		"100 SCCM", "200 SCCM", "500 SCCM", "1000 SCCM",
	}
	PressureUnits946 = []string{"Torr", "MBAR", "PASCAL", "Micron"}
)

// pressureSensors are the sensor-type codes that report pressure.
var pressureSensors = map[string]bool{
	"CM": true, "PR": true, "CP": true, "CC": true, "HC": true,
}

// chanToSlot maps a channel (1-6) to its card slot letter.
func chanToSlot(channel int) string {
	return string(rune('A' + (channel-1)/2))
}

// chanToSlotPos maps a channel (1-6) to its slot position name (A1..C2).
func chanToSlotPos(channel int) string {
	pos := (channel-1)%2 + 1

	return fmt.Sprintf("%s%d", chanToSlot(channel), pos)
}

// MKS946 drives an MKS 946 multi-channel gas and vacuum controller.
//
// Full-scale ranges, correction factors and sensor types are cached after
// first read; Invalidate drops the cache after out-of-band changes.
type MKS946 struct {
	client *scpi.Client
	addr   string
	respRE *regexp.Regexp

	fs          [6]float64
	cf          [6]float64
	sensorTypes []string
	punit       string
}

// NewMKS946 wraps client in a 946 driver. addr is the controller's 3-digit
// RS-485 address, e.g. "253". The client's session must have termination
// enforcement off: the frame carries its own terminator.
func NewMKS946(client *scpi.Client, addr string) (*MKS946, error) {
	if len(addr) != 3 {
		return nil, fmt.Errorf("mks: address %q must be 3 digits", addr)
	}

	return &MKS946{client: client, addr: addr, respRE: responsePattern(addr)}, nil
}

// DialMKS946 opens a channel from cfg framed for the 946 protocol and
// returns the driver.
func DialMKS946(cfg *transport.Config, addr string) (*MKS946, error) {
	client, err := scpi.Dial(cfg,
		[]scpi.SessionOption{
			scpi.WithTerminator([]byte(Terminator)),
			scpi.WithEnforceTermination(false),
		},
		scpi.WithQuerySuffix(false),
	)
	if err != nil {
		return nil, err
	}

	return NewMKS946(client, addr)
}

// Invalidate drops all cached channel parameters.
func (m *MKS946) Invalidate() {
	m.fs = [6]float64{}
	m.cf = [6]float64{}
	m.sensorTypes = nil
	m.punit = ""
}

// query runs one framed query transaction. The buffer is cleared first:
// the response delimiter is in-band, so stale fragments are fatal to the
// pattern match.
func (m *MKS946) query(mnemonic string) (string, error) {
	if err := m.client.Clear(); err != nil {
		return "", fmt.Errorf("mks: clear: %w", err)
	}

	if err := m.client.Write(buildQuery(m.addr, mnemonic)); err != nil {
		return "", err
	}

	resp, err := m.client.Session().ReadUntil([]byte(EOL))
	if err != nil {
		return "", fmt.Errorf("mks: query %s: %w", mnemonic, err)
	}

	return parseResponse(m.respRE, resp)
}

// set runs one framed set transaction.
func (m *MKS946) set(mnemonic string, value any) error {
	if err := m.client.Clear(); err != nil {
		return fmt.Errorf("mks: clear: %w", err)
	}

	if err := m.client.Write(buildSet(m.addr, mnemonic, value)); err != nil {
		return err
	}

	resp, err := m.client.Session().ReadUntil([]byte(EOL))
	if err != nil {
		return fmt.Errorf("mks: set %s: %w", mnemonic, err)
	}

	if _, err := parseResponse(m.respRE, resp); err != nil {
		return err
	}

	return nil
}

func checkChannel(channel int) error {
	if channel < 1 || channel > 6 {
		return fmt.Errorf("mks: channel %d must be in [1, 6]", channel)
	}

	return nil
}

// Identify reads the device type, serial number and firmware version and
// returns "MKS <type> (s/n <serial>, firmware v<version>)".
func (m *MKS946) Identify() (string, error) {
	deviceType, err := m.query("MD")
	if err != nil {
		return "", err
	}

	serial, err := m.query("SN")
	if err != nil {
		return "", err
	}

	firmware, err := m.query("FV6")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("MKS %s (s/n %s, firmware v%s)", deviceType, serial, firmware), nil
}

// FactoryReset restores factory defaults (FDS).
func (m *MKS946) FactoryReset() error {
	return m.set("FDS", "")
}

// ModuleType returns the module type installed in the slot serving channel.
func (m *MKS946) ModuleType(channel int) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	resp, err := m.query("MT")
	if err != nil {
		return "", err
	}

	types := strings.Split(resp, ",")
	slot := (channel - 1) / 2
	if slot >= len(types) {
		return "", fmt.Errorf("mks: malformed MT response %q", resp)
	}

	return types[slot], nil
}

// SensorType returns the sensor type of one channel, reading and caching
// all three slots (STA, STB, STC) on first use.
func (m *MKS946) SensorType(channel int) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	if len(m.sensorTypes) == 0 {
		for _, slot := range []string{"A", "B", "C"} {
			resp, err := m.query("ST" + slot)
			if err != nil {
				return "", err
			}
			m.sensorTypes = append(m.sensorTypes, strings.Split(resp, ",")...)
		}
	}

	if channel > len(m.sensorTypes) {
		return "", fmt.Errorf("mks: no sensor type for channel %d", channel)
	}

	return m.sensorTypes[channel-1], nil
}

// IsGoodChannel reports whether the channel has a connected sensor ("NC"
// means not connected).
func (m *MKS946) IsGoodChannel(channel int) (bool, error) {
	st, err := m.SensorType(channel)
	if err != nil {
		return false, err
	}

	return !strings.Contains(st, "NC"), nil
}

// OpenValve forces one channel's valve open (QMD Open).
func (m *MKS946) OpenValve(channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return m.set(fmt.Sprintf("QMD%d", channel), "Open")
}

// CloseValve forces one channel's valve closed (QMD Close).
func (m *MKS946) CloseValve(channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return m.set(fmt.Sprintf("QMD%d", channel), "Close")
}

// ValveMode reads one channel's valve mode (QMD).
func (m *MKS946) ValveMode(channel int) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	return m.query(fmt.Sprintf("QMD%d", channel))
}

// SetRange sets one channel's full-scale range. rangeUnit must be one of
// RangeUnits946, e.g. "100 SCCM".
func (m *MKS946) SetRange(channel int, rangeUnit string) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	found := false
	for _, known := range RangeUnits946 {
		if rangeUnit == known {
			found = true

			break
		}
	}
	if !found {
		return fmt.Errorf("mks: unknown range %q", rangeUnit)
	}

	value := strings.Fields(rangeUnit)[0]
	if err := m.set(fmt.Sprintf("RNG%d", channel), value); err != nil {
		return err
	}

	fs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("mks: parse range %q: %w", value, err)
	}
	m.fs[channel-1] = fs

	return nil
}

// Range returns one channel's full-scale range in sccm, cached after the
// first read.
func (m *MKS946) Range(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	if m.fs[channel-1] != 0 {
		return m.fs[channel-1], nil
	}

	resp, err := m.query(fmt.Sprintf("RNG%d", channel))
	if err != nil {
		return 0, err
	}

	fs, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse range %q: %w", resp, err)
	}
	m.fs[channel-1] = fs

	return fs, nil
}

// SetSetpoint sets one channel's flow setpoint as a percentage of full
// scale (up to 110%), then switches the valve to setpoint mode. The wire
// value is absolute flow: percent/100 * full scale * correction factor,
// in scientific notation.
func (m *MKS946) SetSetpoint(channel int, percent float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if percent < 0 || percent > 110 {
		return fmt.Errorf("mks: setpoint %.1f%% out of range [0, 110]", percent)
	}

	fs, err := m.Range(channel)
	if err != nil {
		return err
	}

	cf, err := m.CorrectionFactor(channel)
	if err != nil {
		return err
	}

	value := fmt.Sprintf("%.2E", percent/100.0*fs*cf)
	if err := m.set(fmt.Sprintf("QSP%d", channel), value); err != nil {
		return err
	}

	return m.set(fmt.Sprintf("QMD%d", channel), "Setpoint")
}

// Setpoint returns one channel's flow setpoint as a percentage of full
// scale.
func (m *MKS946) Setpoint(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	resp, err := m.query(fmt.Sprintf("QSP%d", channel))
	if err != nil {
		return 0, err
	}

	setpoint, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse setpoint %q: %w", resp, err)
	}

	fs, err := m.Range(channel)
	if err != nil {
		return 0, err
	}

	return setpoint / fs * 100, nil
}

// Flow returns one channel's measured flow in sccm (FR), already scaled by
// the gas correction factor.
func (m *MKS946) Flow(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	resp, err := m.query(fmt.Sprintf("FR%d", channel))
	if err != nil {
		return 0, err
	}

	flow, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse flow %q: %w", resp, err)
	}

	return flow, nil
}

// SetCorrectionFactor sets one channel's gas correction factor (QSF).
func (m *MKS946) SetCorrectionFactor(channel int, cf float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if cf <= 0 {
		return fmt.Errorf("mks: correction factor %g must be positive", cf)
	}

	if err := m.set(fmt.Sprintf("QSF%d", channel), fmt.Sprintf("%.2e", cf)); err != nil {
		return err
	}
	m.cf[channel-1] = cf

	return nil
}

// CorrectionFactor returns one channel's gas correction factor, cached
// after the first read.
func (m *MKS946) CorrectionFactor(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	if m.cf[channel-1] != 0 {
		return m.cf[channel-1], nil
	}

	resp, err := m.query(fmt.Sprintf("QSF%d", channel))
	if err != nil {
		return 0, err
	}

	cf, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse correction factor %q: %w", resp, err)
	}
	m.cf[channel-1] = cf

	return cf, nil
}

// SetPressureUnit sets the system pressure unit (U). unit must be one of
// PressureUnits946.
func (m *MKS946) SetPressureUnit(unit string) error {
	found := false
	for _, known := range PressureUnits946 {
		if unit == known {
			found = true

			break
		}
	}
	if !found {
		return fmt.Errorf("mks: unknown pressure unit %q", unit)
	}

	if err := m.set("U", unit); err != nil {
		return err
	}
	m.punit = unit

	return nil
}

// PressureUnit returns the system pressure unit, cached after first read.
func (m *MKS946) PressureUnit() (string, error) {
	if m.punit != "" {
		return m.punit, nil
	}

	unit, err := m.query("U")
	if err != nil {
		return "", err
	}
	m.punit = unit

	return unit, nil
}

// Pressure returns one channel's pressure reading (PR) in the system unit.
// The channel must carry a pressure sensor.
func (m *MKS946) Pressure(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	st, err := m.SensorType(channel)
	if err != nil {
		return 0, err
	}
	if !pressureSensors[st] {
		return 0, fmt.Errorf("mks: channel %d sensor %q is not a pressure sensor", channel, st)
	}

	resp, err := m.query(fmt.Sprintf("PR%d", channel))
	if err != nil {
		return 0, err
	}

	pr, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse pressure %q: %w", resp, err)
	}

	return pr, nil
}
