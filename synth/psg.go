// Package synth drives RF signal generators speaking IEEE-488.2 SCPI,
// specifically the Keysight/Agilent PSG family.
package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// FrequencyUnit scales frequency arguments and results.
type FrequencyUnit string

// Accepted frequency units.
const (
	Hz  FrequencyUnit = "Hz"
	KHz FrequencyUnit = "kHz"
	MHz FrequencyUnit = "MHz"
	GHz FrequencyUnit = "GHz"
)

func (u FrequencyUnit) factor() (float64, error) {
	switch u {
	case Hz:
		return 1, nil
	case KHz:
		return 1e3, nil
	case MHz:
		return 1e6, nil
	case GHz:
		return 1e9, nil
	default:
		return 0, fmt.Errorf("synth: unknown frequency unit %q", string(u))
	}
}

// PSG drives a PSG-series RF synthesizer over any transport.
type PSG struct {
	client *scpi.Client

	// options caches the :DIAG:INFO:OPT? response; the installed options
	// determine the rated frequency limits.
	options string
}

// NewPSG wraps client in a PSG driver.
func NewPSG(client *scpi.Client) *PSG {
	return &PSG{client: client}
}

// Dial opens a channel from cfg and returns the driver after verifying the
// device answers *IDN?.
func Dial(cfg *transport.Config) (*PSG, error) {
	client, err := scpi.Dial(cfg, nil)
	if err != nil {
		return nil, err
	}

	p := &PSG{client: client}
	if _, err := p.Identify(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return p, nil
}

// Identify returns the *IDN? identification string.
func (p *PSG) Identify() (string, error) {
	return p.client.Identify()
}

// Reset restores most functions to their factory state (*RST).
func (p *PSG) Reset() error {
	return p.client.Write("*RST")
}

// ESR reads the standard event status register (*ESR?).
func (p *PSG) ESR() (int, error) {
	return p.queryInt("*ESR?")
}

// OperationComplete blocks until pending operations finish (*OPC?).
func (p *PSG) OperationComplete() error {
	_, err := p.client.Query("*OPC?")

	return err
}

// Close releases the connection.
func (p *PSG) Close() error {
	return p.client.Close()
}

// Options returns the installed option string (:DIAG:INFO:OPT?), cached
// after the first read.
func (p *PSG) Options() (string, error) {
	if p.options != "" {
		return p.options, nil
	}

	options, err := p.client.Query(":DIAG:INFO:OPT?")
	if err != nil {
		return "", err
	}
	p.options = options

	return options, nil
}

// MinFrequency returns the rated minimum output frequency. Option 521
// raises the floor to 10 MHz; the base model tunes down to 100 kHz.
func (p *PSG) MinFrequency(unit FrequencyUnit) (float64, error) {
	factor, err := unit.factor()
	if err != nil {
		return 0, err
	}

	options, err := p.Options()
	if err != nil {
		return 0, err
	}

	minFreq := 100e3
	if strings.Contains(options, "521") {
		minFreq = 10e6
	}

	return minFreq / factor, nil
}

// MaxFrequency returns the rated maximum output frequency, determined by
// the highest installed frequency option.
func (p *PSG) MaxFrequency(unit FrequencyUnit) (float64, error) {
	factor, err := unit.factor()
	if err != nil {
		return 0, err
	}

	options, err := p.Options()
	if err != nil {
		return 0, err
	}

	var maxFreq float64
	switch {
	case strings.Contains(options, "567"):
		maxFreq = 70e9
	case strings.Contains(options, "550"):
		maxFreq = 50e9
	case strings.Contains(options, "540"):
		maxFreq = 40e9
	case strings.Contains(options, "532"):
		maxFreq = 31.8e9
	default:
		maxFreq = 20e9
	}

	return maxFreq / factor, nil
}

// SetRFOutput switches the RF output on or off (:OUTP:STATe).
func (p *PSG) SetRFOutput(on bool) error {
	return p.client.Write(fmt.Sprintf(":OUTP:STATe %s", onOff(on)))
}

// RFOutput reads the RF output state.
func (p *PSG) RFOutput() (bool, error) {
	return p.queryBool(":OUTPUT:STATE?")
}

// SetFrequency sets the CW output frequency (:FREQ).
func (p *PSG) SetFrequency(frequency float64, unit FrequencyUnit) error {
	if _, err := unit.factor(); err != nil {
		return err
	}

	return p.client.Write(fmt.Sprintf(":FREQ %f%s", frequency, string(unit)))
}

// Frequency reads the CW output frequency in Hz (:FREQ?).
func (p *PSG) Frequency() (float64, error) {
	return p.queryFloat(":FREQ?")
}

// SetFrequencyMode selects FIX, CW, SWE or LIST frequency mode.
func (p *PSG) SetFrequencyMode(mode string) error {
	var wire string

	switch {
	case strings.HasPrefix(strings.ToLower(mode), "fix"):
		wire = "FIX"
	case strings.EqualFold(mode, "cw"):
		wire = "CW"
	case strings.HasPrefix(strings.ToLower(mode), "swe"):
		wire = "SWE"
	case strings.EqualFold(mode, "list"):
		wire = "LIST"
	default:
		return fmt.Errorf("synth: frequency mode %q must be fixed, cw, sweep or list", mode)
	}

	return p.client.Write(":FREQ:MODE " + wire)
}

// FrequencyMode reads the active frequency mode.
func (p *PSG) FrequencyMode() (string, error) {
	return p.client.Query(":FREQ:MODE?")
}

// SetPowerLevel sets the output power in dBm (:POW).
func (p *PSG) SetPowerLevel(dbm float64) error {
	return p.client.Write(fmt.Sprintf(":POW %fDBM", dbm))
}

// PowerLevel reads the output power in dBm (:POW?).
func (p *PSG) PowerLevel() (float64, error) {
	return p.queryFloat(":POW?")
}

// SetTriggerContinuous switches continuous triggering on or off
// (:INIT:CONT).
func (p *PSG) SetTriggerContinuous(on bool) error {
	return p.client.Write(fmt.Sprintf(":INIT:CONT %s", onOff(on)))
}

// TriggerContinuous reads the continuous-trigger state.
func (p *PSG) TriggerContinuous() (bool, error) {
	resp, err := p.client.Query(":INIT:CONT?")
	if err != nil {
		return false, err
	}

	return resp == "ON" || resp == "1", nil
}

// Trigger sends a software trigger (:INIT:IMM).
func (p *PSG) Trigger() error {
	return p.client.Write(":INIT:IMM")
}

// ModulationType selects which modulation path is active.
type ModulationType string

// Modulation types; each is mutually exclusive on path 1.
const (
	ModNone  ModulationType = "NONE"
	ModAM    ModulationType = "AM"
	ModFM    ModulationType = "FM"
	ModPhase ModulationType = "PHASE"
)

// SetModulationType enables one modulation type on path 1, disabling the
// alternatives.
func (p *PSG) SetModulationType(modType ModulationType) error {
	var cmds []string

	switch modType {
	case ModNone:
		cmds = []string{":AM:STAT OFF", ":FM:STAT OFF", ":PM:STAT OFF"}
	case ModAM:
		cmds = []string{":FM:STAT OFF", ":PM:STAT OFF", ":AM1:STAT ON"}
	case ModFM:
		cmds = []string{":AM:STAT OFF", ":PM:STAT OFF", ":FM1:STAT ON"}
	case ModPhase:
		cmds = []string{":AM:STAT OFF", ":FM:STAT OFF", ":PM1:STAT ON"}
	default:
		return fmt.Errorf("synth: unknown modulation type %q", string(modType))
	}

	for _, cmd := range cmds {
		if err := p.client.Write(cmd); err != nil {
			return err
		}
	}

	return nil
}

// ModulationTypes reads which modulation paths are active.
func (p *PSG) ModulationTypes() ([]ModulationType, error) {
	var active []ModulationType

	checks := []struct {
		query   string
		modType ModulationType
	}{
		{":AM:STAT?", ModAM},
		{":FM:STAT?", ModFM},
		{":PM:STAT?", ModPhase},
	}
	for _, c := range checks {
		on, err := p.queryBool(c.query)
		if err != nil {
			return nil, err
		}
		if on {
			active = append(active, c.modType)
		}
	}

	if len(active) == 0 {
		active = append(active, ModNone)
	}

	return active, nil
}

// SetModulationFrequency sets the internal modulation frequency in Hz for
// one modulation type.
func (p *PSG) SetModulationFrequency(modType ModulationType, freq float64) error {
	prefix, err := modPrefix(modType)
	if err != nil {
		return err
	}

	return p.client.Write(fmt.Sprintf(":%s1:INT1:FREQ %f", prefix, freq))
}

// ModulationFrequency reads the internal modulation frequency in Hz.
func (p *PSG) ModulationFrequency(modType ModulationType) (float64, error) {
	prefix, err := modPrefix(modType)
	if err != nil {
		return 0, err
	}

	return p.queryFloat(fmt.Sprintf(":%s1:INT1:FREQ?", prefix))
}

func modPrefix(modType ModulationType) (string, error) {
	switch modType {
	case ModAM:
		return "AM", nil
	case ModFM:
		return "FM", nil
	case ModPhase:
		return "PM", nil
	default:
		return "", fmt.Errorf("synth: modulation type %q must be AM, FM or PHASE", string(modType))
	}
}

// SetModulationOutput switches the global modulation output on or off
// (OUTPUT:MOD).
func (p *PSG) SetModulationOutput(on bool) error {
	return p.client.Write("OUTPUT:MOD " + onOff(on))
}

// ModulationOutput reads the global modulation output state.
func (p *PSG) ModulationOutput() (bool, error) {
	return p.queryBool("OUTPUT:MOD?")
}

// SetPulseModulation switches pulse modulation on or off (:PULM:STAT).
func (p *PSG) SetPulseModulation(on bool) error {
	return p.client.Write(":PULM:STAT " + onOff(on))
}

// PulseModulation reads the pulse modulation state.
func (p *PSG) PulseModulation() (bool, error) {
	return p.queryBool(":PULM:STAT?")
}

// SetPulseDelay sets the internal pulse delay in seconds.
func (p *PSG) SetPulseDelay(delay float64) error {
	return p.client.Write(fmt.Sprintf(":PULM:INT:DEL %g", delay))
}

// PulseDelay reads the internal pulse delay in seconds.
func (p *PSG) PulseDelay() (float64, error) {
	return p.queryFloat(":PULM:INT:DEL?")
}

// SetPulseRate sets the internal square-wave pulse rate in Hz. The rate
// only applies when the internal pulse generator drives the modulation.
func (p *PSG) SetPulseRate(rate float64) error {
	return p.client.Write(fmt.Sprintf(":PULM:INT:FREQ %g", rate))
}

// PulseRate reads the internal square-wave pulse rate in Hz.
func (p *PSG) PulseRate() (float64, error) {
	return p.queryFloat(":PULM:INT:FREQ?")
}

// SetPulsePeriod sets the internal pulse period in seconds.
func (p *PSG) SetPulsePeriod(period float64) error {
	return p.client.Write(fmt.Sprintf(":PULM:INT:PERIOD %g", period))
}

// PulsePeriod reads the internal pulse period in seconds.
func (p *PSG) PulsePeriod() (float64, error) {
	return p.queryFloat(":PULM:INT:PERIOD?")
}

// SetPulseWidth sets the internal pulse width in seconds.
func (p *PSG) SetPulseWidth(width float64) error {
	return p.client.Write(fmt.Sprintf(":PULM:INT:PWID %g", width))
}

// PulseWidth reads the internal pulse width in seconds.
func (p *PSG) PulseWidth() (float64, error) {
	return p.queryFloat(":PULM:INT:PWID?")
}

// SetLFOutput switches the low-frequency output on or off (:LFO:STAT).
func (p *PSG) SetLFOutput(on bool) error {
	return p.client.Write(":LFO:STAT " + onOff(on))
}

// LFOutput reads the low-frequency output state.
func (p *PSG) LFOutput() (bool, error) {
	return p.queryBool(":LFO:STAT?")
}

// SetLFAmplitude sets the low-frequency output amplitude in volts
// (:LFO:AMPL).
func (p *PSG) SetLFAmplitude(volts float64) error {
	return p.client.Write(fmt.Sprintf(":LFO:AMPL %fVP", volts))
}

// Errors drains the instrument error queue (:SYST:ERR?), which holds up to
// 30 entries, and returns them oldest first.
func (p *PSG) Errors() ([]string, error) {
	var errs []string

	// 30 entries is the hardware queue depth; the +1 read observes the
	// terminating "0, No error".
	for i := 0; i < 31; i++ {
		resp, err := p.client.Query(":SYST:ERR?")
		if err != nil {
			return errs, err
		}

		code, _, _ := strings.Cut(resp, ",")
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return errs, fmt.Errorf("synth: parse error code %q: %w", resp, err)
		}
		if n == 0 {
			break
		}

		errs = append(errs, resp)
	}

	return errs, nil
}

func (p *PSG) queryFloat(cmd string) (float64, error) {
	resp, err := p.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("synth: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (p *PSG) queryInt(cmd string) (int, error) {
	resp, err := p.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("synth: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (p *PSG) queryBool(cmd string) (bool, error) {
	v, err := p.queryInt(cmd)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}
