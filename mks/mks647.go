package mks

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// Full-scale flow ranges of the 647C, in controller index order.
var RangeUnits647 = []string{
	"1 SCCM", "2 SCCM", "5 SCCM", "10 SCCM", "20 SCCM",
	"50 SCCM", "100 SCCM", "200 SCCM", "500 SCCM",
	"1 SLM", "2 SLM", "5 SLM", "10 SLM", "20 SLM",
	"50 SLM", "100 SLM", "200 SLM", "400 SLM", "500 SLM",
	"1 SCMM",
	"1 SCFH", "2 SCFH", "5 SCFH", "10 SCFH", "20 SCFH",
	"50 SCFH", "100 SCFH", "200 SCFH", "500 SCFH",
	"1 SCFM", "2 SCFM", "5 SCFM", "10 SCFM", "20 SCFM",
	"50 SCFM", "100 SCFM", "200 SCFM", "500 SCFM",
	"30 SLM", "300 SLM",
}

// Pressure units of the 647C, in controller index order.
var PressureUnits647 = []string{
	"1 mtorr", "10 mtorr", "100 mtorr", "1000 mtorr",
	"1 torr", "10 torr", "100 torr", "1000 torr",
	"1 ktorr", "10 ktorr", "100 ktorr",
	"1 μbar", "10 μbar", "100 μbar", "1000 μbar",
	"1 mbar", "10 mbar", "100 mbar", "1000 mbar",
	"1 bar", "10 bar", "100 bar",
	"1 Pa", "10 Pa", "100 Pa",
	"1 kPa", "10 kPa", "100 kPa", "1000 kPa",
	"2 mtorr", "5 mtorr", "20 mtorr", "50 mtorr",
	"200 mtorr", "500 mtorr", "2000 mtorr", "5000 mtorr",
	"2 torr", "5 torr", "20 torr", "50 torr",
	"200 torr", "500 torr", "2000 torr", "5000 torr",
	"2 ktorr", "5 ktorr", "20 ktorr", "50 ktorr",
	"2 μbar", "5 μbar", "20 μbar", "50 μbar",
	"200 μbar", "500 μbar", "2000 μbar", "5000 μbar",
	"2 mbar", "5 mbar", "20 mbar", "50 mbar",
	"200 mbar", "500 mbar", "2000 mbar", "5000 mbar",
	"2 bar", "5 bar", "20 bar", "50 bar",
	"2 Pa", "5 Pa", "20 Pa", "50 Pa", "200 Pa", "500 Pa",
	"2 kPa", "5 kPa", "20 kPa", "50 kPa",
	"200 kPa", "500 kPa", "2000 kPa", "5000 kPa",
	"1 MPa", "2 MPa", "5 MPa", "10 MPa",
}

// Fixed response sizes for queries the 647C answers without a terminator.
const (
	idSize647     = 30
	statusSize647 = 7
	flowSize647   = 7
	indexSize647  = 2
)

// ChannelStatus is the decoded 647C channel status word. The ST reply is a
// fixed 7-character record, which ends at the input-overflow flag; the
// underflow and output-side positions documented for longer records sit
// past the reply and are only visible through Raw.
type ChannelStatus struct {
	On         bool
	TripLow    bool
	TripHigh   bool
	OverflowIn bool
	// Raw is the undecoded status record from the wire.
	Raw string
}

// MKS647 drives an MKS 647C multi-gas flow controller. The protocol is
// plain "\r"-terminated ASCII; query mnemonics take no '?' suffix and many
// responses are fixed-size unterminated records.
type MKS647 struct {
	client *scpi.Client
}

// NewMKS647 wraps client in a 647C driver. The client must have query
// suffixing off and use the "\r" terminator.
func NewMKS647(client *scpi.Client) *MKS647 {
	return &MKS647{client: client}
}

// DialMKS647 opens a channel from cfg framed for the 647C and returns the
// driver.
func DialMKS647(cfg *transport.Config) (*MKS647, error) {
	client, err := scpi.Dial(cfg,
		[]scpi.SessionOption{scpi.WithTerminator([]byte(Terminator))},
		scpi.WithQuerySuffix(false),
	)
	if err != nil {
		return nil, err
	}

	return &MKS647{client: client}, nil
}

// queryN writes cmd and reads a fixed-size response.
func (m *MKS647) queryN(cmd string, size int) (string, error) {
	if err := m.client.Write(cmd); err != nil {
		return "", err
	}

	resp, err := m.client.Read(size)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp), nil
}

func check647Channel(channel int) error {
	if channel < 1 || channel > 8 {
		return fmt.Errorf("mks: channel %d must be in [1, 8]", channel)
	}

	return nil
}

// Identify returns the identification string, e.g.
// "MKS 647C V1.0 - 01 01 1999".
func (m *MKS647) Identify() (string, error) {
	id, err := m.queryN("ID", idSize647)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", scpi.ErrEmptyIdent
	}

	return id, nil
}

// ResetHardware performs a hardware reset, like a power cycle (RE).
func (m *MKS647) ResetHardware() error {
	return m.client.Write("RE")
}

// ResetDefaults restores all parameters to defaults (DF).
func (m *MKS647) ResetDefaults() error {
	return m.client.Write("DF")
}

// Status reads and decodes one channel's status word (ST).
func (m *MKS647) Status(channel int) (ChannelStatus, error) {
	if err := check647Channel(channel); err != nil {
		return ChannelStatus{}, err
	}

	raw, err := m.queryN(fmt.Sprintf("ST %d", channel), statusSize647)
	if err != nil {
		return ChannelStatus{}, err
	}

	bit := func(i int) bool {
		return i < len(raw) && raw[i] == '1'
	}

	return ChannelStatus{
		On:         bit(0),
		TripLow:    bit(4),
		TripHigh:   bit(5),
		OverflowIn: bit(6),
		Raw:        raw,
	}, nil
}

// OpenValve opens one channel's valve, or all valves when channel is 0
// (ON).
func (m *MKS647) OpenValve(channel int) error {
	if channel != 0 {
		if err := check647Channel(channel); err != nil {
			return err
		}
	}

	return m.client.Write(fmt.Sprintf("ON %d", channel))
}

// CloseValve closes one channel's valve, or all valves when channel is 0
// (OF).
func (m *MKS647) CloseValve(channel int) error {
	if channel != 0 {
		if err := check647Channel(channel); err != nil {
			return err
		}
	}

	return m.client.Write(fmt.Sprintf("OF %d", channel))
}

// SetRange sets one channel's full-scale range (RA). rangeUnit must be one
// of RangeUnits647.
func (m *MKS647) SetRange(channel int, rangeUnit string) error {
	if err := check647Channel(channel); err != nil {
		return err
	}

	for i, known := range RangeUnits647 {
		if rangeUnit == known {
			return m.client.Write(fmt.Sprintf("RA %d %d", channel, i))
		}
	}

	return fmt.Errorf("mks: unknown range %q", rangeUnit)
}

// Range returns one channel's full-scale range string (RA R).
func (m *MKS647) Range(channel int) (string, error) {
	if err := check647Channel(channel); err != nil {
		return "", err
	}

	resp, err := m.queryN(fmt.Sprintf("RA %d R", channel), indexSize647)
	if err != nil {
		return "", err
	}

	index, err := strconv.Atoi(resp)
	if err != nil || index < 0 || index >= len(RangeUnits647) {
		return "", fmt.Errorf("mks: bad range index %q", resp)
	}

	return RangeUnits647[index], nil
}

// SetSetpoint sets one channel's flow setpoint in percent of full scale,
// up to 110% (FS). The wire value is in 0.1% steps.
func (m *MKS647) SetSetpoint(channel int, percent float64) error {
	if err := check647Channel(channel); err != nil {
		return err
	}

	steps := int(math.Round(percent * 10))
	if steps < 0 || steps >= 1100 {
		return fmt.Errorf("mks: setpoint %.1f%% out of range [0, 110)", percent)
	}

	return m.client.Write(fmt.Sprintf("FS %d %d", channel, steps))
}

// Setpoint returns one channel's flow setpoint in percent of full scale
// (FS R). An error response reads as 0.
func (m *MKS647) Setpoint(channel int) (float64, error) {
	if err := check647Channel(channel); err != nil {
		return 0, err
	}

	if err := m.client.Write(fmt.Sprintf("FS %d R", channel)); err != nil {
		return 0, err
	}

	resp, err := m.client.ReadLine()
	if err != nil {
		return 0, err
	}

	resp = strings.TrimSpace(resp)
	if resp == "" || resp[0] == 'E' {
		return 0, nil
	}

	steps, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse setpoint %q: %w", resp, err)
	}

	return steps / 10, nil
}

// Flow returns one channel's measured flow in percent of full scale (FL),
// scaled by the gas correction factor.
func (m *MKS647) Flow(channel int) (float64, error) {
	if err := check647Channel(channel); err != nil {
		return 0, err
	}

	resp, err := m.queryN(fmt.Sprintf("FL %d", channel), flowSize647)
	if err != nil {
		return 0, err
	}

	resp = strings.TrimLeft(resp, "0")
	if resp == "" {
		return 0, nil
	}

	steps, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, nil
	}

	return steps / 10, nil
}

// SetPressureUnit sets the main unit's pressure scale (PU). unit must be
// one of PressureUnits647.
func (m *MKS647) SetPressureUnit(unit string) error {
	for i, known := range PressureUnits647 {
		if unit == known {
			return m.client.Write(fmt.Sprintf("PU %d", i))
		}
	}

	return fmt.Errorf("mks: unknown pressure unit %q", unit)
}

// PressureUnit returns the main unit's pressure scale (PU R).
func (m *MKS647) PressureUnit() (string, error) {
	resp, err := m.queryN("PU R", indexSize647)
	if err != nil {
		return "", err
	}

	index, err := strconv.Atoi(resp)
	if err != nil || index < 0 || index >= len(PressureUnits647) {
		return "", fmt.Errorf("mks: bad pressure unit index %q", resp)
	}

	return PressureUnits647[index], nil
}

// SetGasMenu selects the active gas menu (GM).
func (m *MKS647) SetGasMenu(menu int) error {
	return m.client.Write(fmt.Sprintf("GM %d", menu))
}

// GasMenu returns the active gas menu (GM R).
func (m *MKS647) GasMenu() (int, error) {
	resp, err := m.queryN("GM R", 1)
	if err != nil {
		return 0, err
	}

	menu, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("mks: parse gas menu %q: %w", resp, err)
	}

	return menu, nil
}

// SetCorrectionFactor sets one channel's gas correction factor (GC). The
// wire value is in 0.01 steps.
func (m *MKS647) SetCorrectionFactor(channel int, cf float64) error {
	if err := check647Channel(channel); err != nil {
		return err
	}
	if cf <= 0 {
		return fmt.Errorf("mks: correction factor %g must be positive", cf)
	}

	return m.client.Write(fmt.Sprintf("GC %d %d", channel, int(math.Round(cf*100))))
}

// CorrectionFactor returns one channel's gas correction factor (GC R).
func (m *MKS647) CorrectionFactor(channel int) (float64, error) {
	if err := check647Channel(channel); err != nil {
		return 0, err
	}

	if err := m.client.Write(fmt.Sprintf("GC %d R", channel)); err != nil {
		return 0, err
	}

	resp, err := m.client.ReadLine()
	if err != nil {
		return 0, err
	}

	steps, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse correction factor %q: %w", resp, err)
	}

	return steps / 100, nil
}

// SetTripLimits sets one channel's lower and upper trip limits in percent
// of full scale (LL, HL). The wire values are in 0.1% steps.
func (m *MKS647) SetTripLimits(channel int, low, high float64) error {
	if err := check647Channel(channel); err != nil {
		return err
	}
	if low > high {
		return fmt.Errorf("mks: trip limits low %.1f > high %.1f", low, high)
	}

	if err := m.client.Write(fmt.Sprintf("LL %d %d", channel, int(math.Round(low*10)))); err != nil {
		return err
	}

	return m.client.Write(fmt.Sprintf("HL %d %d", channel, int(math.Round(high*10))))
}

// TripLimits returns one channel's lower and upper trip limits in percent
// of full scale (LL R, HL R).
func (m *MKS647) TripLimits(channel int) (float64, float64, error) {
	if err := check647Channel(channel); err != nil {
		return 0, 0, err
	}

	low, err := m.readTenths(fmt.Sprintf("LL %d R", channel))
	if err != nil {
		return 0, 0, err
	}

	high, err := m.readTenths(fmt.Sprintf("HL %d R", channel))
	if err != nil {
		return 0, 0, err
	}

	return low, high, nil
}

func (m *MKS647) readTenths(cmd string) (float64, error) {
	if err := m.client.Write(cmd); err != nil {
		return 0, err
	}

	resp, err := m.client.ReadLine()
	if err != nil {
		return 0, err
	}

	steps, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("mks: parse %q response %q: %w", cmd, resp, err)
	}

	return steps / 10, nil
}
