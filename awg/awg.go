package awg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// AWG drives a two-channel arbitrary waveform generator.
type AWG struct {
	client *scpi.Client
}

// NewAWG wraps client in an AWG driver.
func NewAWG(client *scpi.Client) *AWG {
	return &AWG{client: client}
}

// Dial opens a channel from cfg and verifies the device answers *IDN?.
func Dial(cfg *transport.Config) (*AWG, error) {
	client, err := scpi.Dial(cfg, nil)
	if err != nil {
		return nil, err
	}

	a := &AWG{client: client}
	if _, err := a.Identify(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return a, nil
}

// Identify returns the *IDN? identification string.
func (a *AWG) Identify() (string, error) {
	return a.client.Identify()
}

// Close releases the connection.
func (a *AWG) Close() error {
	return a.client.Close()
}

// ClearErrors clears the event register and the error queue (*CLS).
func (a *AWG) ClearErrors() error {
	return a.client.Write("*CLS")
}

// Errors drains the instrument error queue (up to 30 entries) and returns
// the entries oldest first.
func (a *AWG) Errors() ([]string, error) {
	var errs []string

	for i := 0; i < 31; i++ {
		resp, err := a.client.Query(":SYST:ERR?")
		if err != nil {
			return errs, err
		}

		code, _, _ := strings.Cut(resp, ",")
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return errs, fmt.Errorf("awg: parse error code %q: %w", resp, err)
		}
		if n == 0 {
			break
		}

		errs = append(errs, resp)
	}

	return errs, nil
}

// OperationComplete blocks until pending commands finish (*OPC?).
func (a *AWG) OperationComplete() error {
	_, err := a.client.Query("*OPC?")

	return err
}

// SetSampleRate sets the DAC sample frequency in Sa/s (:FREQ:RAST).
func (a *AWG) SetSampleRate(frequency float64) error {
	return a.client.Write(fmt.Sprintf(":FREQ:RAST %f", frequency))
}

// SampleRate reads the DAC sample frequency in Sa/s.
func (a *AWG) SampleRate() (float64, error) {
	return a.queryFloat(":FREQ:RAST?")
}

// FunctionMode selects what the channel outputs.
type FunctionMode string

// Function modes: a single arbitrary segment, a sequence, or a scenario.
const (
	FuncArb      FunctionMode = "ARB"
	FuncSequence FunctionMode = "STS"
	FuncScenario FunctionMode = "STSC"
)

// SetFunctionMode sets the output mode of one channel (:FUNC:MODE).
func (a *AWG) SetFunctionMode(channel int, mode FunctionMode) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	switch mode {
	case FuncArb, FuncSequence, FuncScenario:
	default:
		return fmt.Errorf("awg: function mode %q must be ARB, STS or STSC", string(mode))
	}

	return a.client.Write(fmt.Sprintf(":FUNC%d:MODE %s", channel, string(mode)))
}

// FunctionMode reads the output mode of one channel.
func (a *AWG) FunctionMode(channel int) (FunctionMode, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	resp, err := a.client.Query(fmt.Sprintf(":FUNC%d:MODE?", channel))

	return FunctionMode(resp), err
}

// SetEncodingMode sets the DAC word format of one channel (:TRAC:DWID).
func (a *AWG) SetEncodingMode(channel int, mode EncodingMode) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if _, _, err := mode.params(); err != nil {
		return err
	}

	// WSPeed / WPRecision on the wire.
	return a.client.Write(fmt.Sprintf(":TRAC%d:DWID W%s", channel, string(mode)[:2]))
}

// EncodingMode reads the DAC word format of one channel.
func (a *AWG) EncodingMode(channel int) (EncodingMode, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	resp, err := a.client.Query(fmt.Sprintf(":TRAC%d:DWID?", channel))
	if err != nil {
		return "", err
	}

	switch resp {
	case "WSP":
		return ModeSpeed, nil
	case "WPR":
		return ModePrecision, nil
	default:
		return EncodingMode(resp), nil
	}
}

// SetReferenceSource selects the reference oscillator source (:ROSC:SOUR),
// one of INT, EXT or AXI. The source must report available first.
func (a *AWG) SetReferenceSource(source string) error {
	source = strings.ToUpper(source)

	ok, err := a.ReferenceAvailable(source)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("awg: reference oscillator %s is not available", source)
	}

	return a.client.Write(":ROSC:SOUR " + source)
}

// ReferenceSource reads the selected reference oscillator source.
func (a *AWG) ReferenceSource() (string, error) {
	return a.client.Query(":ROSC:SOUR?")
}

// ReferenceAvailable reports whether a reference clock source is usable
// (:ROSC:SOUR:CHEC?).
func (a *AWG) ReferenceAvailable(source string) (bool, error) {
	resp, err := a.client.Query(fmt.Sprintf(":ROSC:SOUR:CHEC? %s", strings.ToUpper(source)))
	if err != nil {
		return false, err
	}

	return resp == "1", nil
}

// SetReferenceFrequency sets the expected external reference frequency in
// Hz (:ROSC:FREQ).
func (a *AWG) SetReferenceFrequency(hz int) error {
	return a.client.Write(fmt.Sprintf(":ROSC:FREQ %d", hz))
}

// ReferenceFrequency reads the expected external reference frequency.
func (a *AWG) ReferenceFrequency() (float64, error) {
	return a.queryFloat(":ROSC:FREQ?")
}

// Start begins signal generation on a channel (:INIT:IMM). If channels
// are coupled both start.
func (a *AWG) Start(channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":INIT:IMM%d", channel))
}

// Stop aborts signal generation on a channel (:ABOR).
func (a *AWG) Stop(channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":ABOR%d", channel))
}

// SetOutputVoltage sets the channel output amplitude in volts (VOLT).
func (a *AWG) SetOutputVoltage(channel int, volts float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf("VOLT%d %f", channel, volts))
}

// OutputVoltage reads the channel output amplitude in volts.
func (a *AWG) OutputVoltage(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	return a.queryFloat(fmt.Sprintf("VOLT%d?", channel))
}

// SetOutputPath selects the output route for a channel (:OUTP:ROUT), one
// of AC, DC or DAC.
func (a *AWG) SetOutputPath(channel int, path string) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	path = strings.ToUpper(path)
	switch path {
	case "AC", "DC", "DAC":
	default:
		return fmt.Errorf("awg: output path %q must be AC, DC or DAC", path)
	}

	return a.client.Write(fmt.Sprintf(":OUTP%d:ROUT %s", channel, path))
}

// OutputPath reads the selected output route for a channel.
func (a *AWG) OutputPath(channel int) (string, error) {
	if err := checkChannel(channel); err != nil {
		return "", err
	}

	return a.client.Query(fmt.Sprintf(":OUTP%d:ROUT?", channel))
}

// SetOutputEnabled switches the amplified channel output on or off
// (:OUTP:NORM).
func (a *AWG) SetOutputEnabled(channel int, on bool) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":OUTP%d:NORM %s", channel, onOff(on)))
}

// OutputEnabled reads the amplified channel output state.
func (a *AWG) OutputEnabled(channel int) (bool, error) {
	if err := checkChannel(channel); err != nil {
		return false, err
	}

	return a.queryBool(fmt.Sprintf(":OUTP%d:NORM?", channel))
}

func (a *AWG) queryFloat(cmd string) (float64, error) {
	resp, err := a.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("awg: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (a *AWG) queryInt(cmd string) (int, error) {
	resp, err := a.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("awg: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (a *AWG) queryBool(cmd string) (bool, error) {
	resp, err := a.client.Query(cmd)
	if err != nil {
		return false, err
	}

	return resp == "1" || strings.EqualFold(resp, "ON"), nil
}

func checkChannel(channel int) error {
	if channel != 1 && channel != 2 {
		return fmt.Errorf("awg: channel %d must be 1 or 2", channel)
	}

	return nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}
