package awg

import (
	"fmt"
	"strings"
)

// TriggerMode combines the continuous and gate switches into the three
// operating modes of the hardware.
type TriggerMode string

// Trigger modes. Continuous ignores the gate switch entirely; with
// continuous off, the gate switch selects gated versus triggered.
const (
	TriggerContinuous TriggerMode = "Continuous"
	TriggerGated      TriggerMode = "Gated"
	TriggerTriggered  TriggerMode = "Triggered"
)

// SetContinuousMode switches continuous mode on a channel
// (:INIT:CONT:STAT).
func (a *AWG) SetContinuousMode(channel int, on bool) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":INIT:CONT%d:STAT %s", channel, onOff(on)))
}

// ContinuousMode reads the continuous mode of a channel.
func (a *AWG) ContinuousMode(channel int) (bool, error) {
	if err := checkChannel(channel); err != nil {
		return false, err
	}

	return a.queryBool(fmt.Sprintf(":INIT:CONT%d:STAT?", channel))
}

// SetGateMode switches gate mode for both channels (:INIT:GATE:STAT).
func (a *AWG) SetGateMode(on bool) error {
	s := onOff(on)

	return a.client.Write(fmt.Sprintf(":INIT:GATE1:STAT %s;:INIT:GATE2:STAT %s", s, s))
}

// GateMode reads the gate mode of a channel.
func (a *AWG) GateMode(channel int) (bool, error) {
	if err := checkChannel(channel); err != nil {
		return false, err
	}

	return a.queryBool(fmt.Sprintf(":INIT:GATE%d:STAT?", channel))
}

// SetTriggerMode sets the combined trigger mode of a channel by driving
// the continuous and gate switches.
func (a *AWG) SetTriggerMode(channel int, mode TriggerMode) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	switch mode {
	case TriggerContinuous:
		return a.SetContinuousMode(channel, true)
	case TriggerGated:
		if err := a.SetContinuousMode(channel, false); err != nil {
			return err
		}

		return a.SetGateMode(true)
	case TriggerTriggered:
		if err := a.SetContinuousMode(channel, false); err != nil {
			return err
		}

		return a.SetGateMode(false)
	default:
		return fmt.Errorf("awg: trigger mode %q must be Continuous, Gated or Triggered", string(mode))
	}
}

// TriggerMode reads the combined trigger mode of a channel.
func (a *AWG) TriggerMode(channel int) (TriggerMode, error) {
	cont, err := a.ContinuousMode(channel)
	if err != nil {
		return "", err
	}
	gate, err := a.GateMode(channel)
	if err != nil {
		return "", err
	}

	switch {
	case cont:
		return TriggerContinuous, nil
	case gate:
		return TriggerGated, nil
	default:
		return TriggerTriggered, nil
	}
}

// SetArmingMode sets the channel arming mode (:INIT:CONT:ENAB), SELF or
// ARMed.
func (a *AWG) SetArmingMode(channel int, mode string) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	switch strings.ToUpper(mode) {
	case "SELF", "ARM", "ARMED":
	default:
		return fmt.Errorf("awg: arming mode %q must be SELF or ARMed", mode)
	}

	return a.client.Write(fmt.Sprintf(":INIT:CONT%d:ENAB %s", channel, mode))
}

// ArmingMode reads the channel arming mode.
func (a *AWG) ArmingMode(channel int) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	return a.client.Query(fmt.Sprintf(":INIT:CONT%d:ENAB?", channel))
}

// SetTriggerSource selects the internal or external trigger source
// (:ARM:TRIG:SOUR).
func (a *AWG) SetTriggerSource(source string) error {
	source = strings.ToUpper(source)
	if source != "INT" && source != "EXT" {
		return fmt.Errorf("awg: trigger source %q must be INT or EXT", source)
	}

	return a.client.Write(":ARM:TRIG:SOUR " + source)
}

// TriggerSource reads the selected trigger source.
func (a *AWG) TriggerSource() (string, error) {
	return a.client.Query(":ARM:TRIG:SOUR?")
}

// SetTriggerFrequency sets the internal trigger frequency in Hz
// (:ARM:TRIG:FREQ).
func (a *AWG) SetTriggerFrequency(hz float64) error {
	return a.client.Write(fmt.Sprintf(":ARM:TRIG:FREQ %f", hz))
}

// TriggerFrequency reads the internal trigger frequency in Hz.
func (a *AWG) TriggerFrequency() (float64, error) {
	return a.queryFloat(":ARM:TRIG:FREQ?")
}

// ForceTrigger sends a start event to a channel in triggered mode
// (:TRIG:BEG).
func (a *AWG) ForceTrigger() error {
	return a.client.Write(":TRIG:BEG")
}

// markers on the front panel: SYNC and SAMP per channel.
var markerNames = map[string]struct{}{
	"SYNC1": {}, "SYNC2": {}, "SAMP1": {}, "SAMP2": {},
}

func splitMarker(marker string) (channel int, name string, err error) {
	marker = strings.ToUpper(marker)
	if _, ok := markerNames[marker]; !ok {
		return 0, "", fmt.Errorf("awg: marker %q must be one of SYNC1, SYNC2, SAMP1, SAMP2", marker)
	}

	return int(marker[len(marker)-1] - '0'), marker[:len(marker)-1], nil
}

// SetMarkerAmplitude sets the peak-to-peak amplitude of a marker output
// in volts (:MARK:VOLT:AMPL).
func (a *AWG) SetMarkerAmplitude(marker string, volts float64) error {
	channel, name, err := splitMarker(marker)
	if err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":MARK%d:%s:VOLT:AMPL %g", channel, name, volts))
}

// MarkerAmplitude reads the peak-to-peak amplitude of a marker output.
func (a *AWG) MarkerAmplitude(marker string) (float64, error) {
	channel, name, err := splitMarker(marker)
	if err != nil {
		return 0, err
	}

	return a.queryFloat(fmt.Sprintf(":MARK%d:%s:VOLT:AMPL?", channel, name))
}

// SetMarkerOffset sets the offset of a marker output in volts
// (:MARK:VOLT:OFFS).
func (a *AWG) SetMarkerOffset(marker string, volts float64) error {
	channel, name, err := splitMarker(marker)
	if err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":MARK%d:%s:VOLT:OFFS %g", channel, name, volts))
}

// MarkerOffset reads the offset of a marker output in volts.
func (a *AWG) MarkerOffset(marker string) (float64, error) {
	channel, name, err := splitMarker(marker)
	if err != nil {
		return 0, err
	}

	return a.queryFloat(fmt.Sprintf(":MARK%d:%s:VOLT:OFFS?", channel, name))
}
