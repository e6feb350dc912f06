// Package delaygen drives the Stanford Research DG645 digital delay
// generator.
package delaygen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// Channel is one of the ten delay channels of the DG645.
type Channel int

// Delay channels in instrument index order.
const (
	T0 Channel = iota
	T1
	A
	B
	C
	D
	E
	F
	G
	H
)

var channelNames = [...]string{"T0", "T1", "A", "B", "C", "D", "E", "F", "G", "H"}

func (c Channel) String() string {
	if c < T0 || c > H {
		return fmt.Sprintf("Channel(%d)", int(c))
	}

	return channelNames[c]
}

// ParseChannel converts a channel name like "A" or "T0" into a Channel.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if strings.EqualFold(n, name) {
			return Channel(i), nil
		}
	}

	return 0, fmt.Errorf("delaygen: unknown delay channel %q", name)
}

// Output is one of the five front-panel BNC outputs.
type Output int

// BNC outputs in instrument index order. Each paired output follows the
// two delay channels it is named after.
const (
	OutT0 Output = iota
	OutAB
	OutCD
	OutEF
	OutGH
)

var outputNames = [...]string{"T0", "AB", "CD", "EF", "GH"}

func (o Output) String() string {
	if o < OutT0 || o > OutGH {
		return fmt.Sprintf("Output(%d)", int(o))
	}

	return outputNames[o]
}

// ParseOutput converts an output name like "AB" into an Output.
func ParseOutput(name string) (Output, error) {
	for i, n := range outputNames {
		if strings.EqualFold(n, name) {
			return Output(i), nil
		}
	}

	return 0, fmt.Errorf("delaygen: unknown BNC output %q", name)
}

// TriggerSource selects what starts a delay cycle.
type TriggerSource int

// Trigger sources.
const (
	TriggerInternal TriggerSource = iota
	TriggerExtRising
	TriggerExtFalling
	TriggerSingleExtRising
	TriggerSingleExtFalling
	TriggerSingleShot
	TriggerLine
)

// DG645 drives an SRS DG645 delay generator.
type DG645 struct {
	client *scpi.Client
}

// NewDG645 wraps client in a DG645 driver.
func NewDG645(client *scpi.Client) *DG645 {
	return &DG645{client: client}
}

// Dial opens a channel from cfg and verifies the device answers *IDN?.
// The DG645 mixes trailing and embedded question marks in its query
// syntax, so automatic query suffixing is disabled.
func Dial(cfg *transport.Config) (*DG645, error) {
	client, err := scpi.Dial(cfg, nil, scpi.WithQuerySuffix(false))
	if err != nil {
		return nil, err
	}

	d := &DG645{client: client}
	if _, err := d.Identify(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return d, nil
}

// Identify returns the *IDN? identification string.
func (d *DG645) Identify() (string, error) {
	return d.client.Identify()
}

// Close releases the connection.
func (d *DG645) Close() error {
	return d.client.Close()
}

// Clear clears the status registers (*CLS).
func (d *DG645) Clear() error {
	return d.client.Write("*CLS")
}

// Reset restores factory defaults (*RST).
func (d *DG645) Reset() error {
	return d.client.Write("*RST")
}

// Errors drains the instrument error queue (LERR?), which holds up to 20
// entries, and returns the error codes oldest first.
func (d *DG645) Errors() ([]int, error) {
	var errs []int

	for i := 0; i < 21; i++ {
		resp, err := d.client.Query("LERR?")
		if err != nil {
			return errs, err
		}

		code, _, _ := strings.Cut(resp, ",")
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return errs, fmt.Errorf("delaygen: parse error code %q: %w", resp, err)
		}
		if n == 0 {
			break
		}

		errs = append(errs, n)
	}

	return errs, nil
}

// SetDelay sets a channel's delay in seconds relative to a reference
// channel (DLAY).
func (d *DG645) SetDelay(channel, reference Channel, delay float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if err := checkChannel(reference); err != nil {
		return err
	}

	return d.client.Write(fmt.Sprintf("DLAY %d,%d,%g", channel, reference, delay))
}

// Delay reads a channel's delay: the reference channel it is linked to
// and the offset in seconds.
func (d *DG645) Delay(channel Channel) (Channel, float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, 0, err
	}

	resp, err := d.client.Query(fmt.Sprintf("DLAY?%d", channel))
	if err != nil {
		return 0, 0, err
	}

	refStr, delayStr, ok := strings.Cut(resp, ",")
	if !ok {
		return 0, 0, fmt.Errorf("delaygen: malformed delay response %q", resp)
	}
	ref, err := strconv.Atoi(strings.TrimSpace(refStr))
	if err != nil {
		return 0, 0, fmt.Errorf("delaygen: malformed delay response %q: %w", resp, err)
	}
	delay, err := strconv.ParseFloat(strings.TrimSpace(delayStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("delaygen: malformed delay response %q: %w", resp, err)
	}

	return Channel(ref), delay, nil
}

// SetTriggerSource selects the trigger source (TSRC).
func (d *DG645) SetTriggerSource(source TriggerSource) error {
	if source < TriggerInternal || source > TriggerLine {
		return fmt.Errorf("delaygen: trigger source %d out of range", source)
	}

	return d.client.Write(fmt.Sprintf("TSRC %d", source))
}

// TriggerSource reads the selected trigger source.
func (d *DG645) TriggerSource() (TriggerSource, error) {
	v, err := d.queryInt("TSRC?")

	return TriggerSource(v), err
}

// Trigger fires a single-shot trigger (*TRG).
func (d *DG645) Trigger() error {
	return d.client.Write("*TRG")
}

// SetTriggerRate sets the internal trigger rate in Hz (TRAT).
func (d *DG645) SetTriggerRate(hz float64) error {
	return d.client.Write(fmt.Sprintf("TRAT %f", hz))
}

// TriggerRate reads the internal trigger rate in Hz.
func (d *DG645) TriggerRate() (float64, error) {
	return d.queryFloat("TRAT?")
}

// SetTriggerLevel sets the external trigger threshold in volts (TLVL).
func (d *DG645) SetTriggerLevel(volts float64) error {
	return d.client.Write(fmt.Sprintf("TLVL %f", volts))
}

// TriggerLevel reads the external trigger threshold in volts.
func (d *DG645) TriggerLevel() (float64, error) {
	return d.queryFloat("TLVL?")
}

// SetOutputLevel sets a BNC output amplitude in volts (LAMP).
func (d *DG645) SetOutputLevel(output Output, volts float64) error {
	if err := checkOutput(output); err != nil {
		return err
	}

	return d.client.Write(fmt.Sprintf("LAMP %d,%f", output, volts))
}

// OutputLevel reads a BNC output amplitude in volts.
func (d *DG645) OutputLevel(output Output) (float64, error) {
	if err := checkOutput(output); err != nil {
		return 0, err
	}

	return d.queryFloat(fmt.Sprintf("LAMP?%d", output))
}

// SetOutputOffset sets a BNC output offset in volts (LOFF).
func (d *DG645) SetOutputOffset(output Output, volts float64) error {
	if err := checkOutput(output); err != nil {
		return err
	}

	return d.client.Write(fmt.Sprintf("LOFF %d,%f", output, volts))
}

// OutputOffset reads a BNC output offset in volts.
func (d *DG645) OutputOffset(output Output) (float64, error) {
	if err := checkOutput(output); err != nil {
		return 0, err
	}

	return d.queryFloat(fmt.Sprintf("LOFF?%d", output))
}

// SetOutputPolarity sets a BNC output polarity (LPOL), true for positive.
func (d *DG645) SetOutputPolarity(output Output, positive bool) error {
	if err := checkOutput(output); err != nil {
		return err
	}
	pol := 0
	if positive {
		pol = 1
	}

	return d.client.Write(fmt.Sprintf("LPOL %d,%d", output, pol))
}

// OutputPolarity reads a BNC output polarity, true for positive.
func (d *DG645) OutputPolarity(output Output) (bool, error) {
	if err := checkOutput(output); err != nil {
		return false, err
	}

	v, err := d.queryInt(fmt.Sprintf("LPOL?%d", output))
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

// SetBurstMode enables or disables burst mode (BURM).
func (d *DG645) SetBurstMode(on bool) error {
	mode := 0
	if on {
		mode = 1
	}

	return d.client.Write(fmt.Sprintf("BURM %d", mode))
}

// BurstMode reads the burst mode state.
func (d *DG645) BurstMode() (bool, error) {
	v, err := d.queryInt("BURM?")
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

// MACAddress reads the Ethernet MAC address (EMAC?).
func (d *DG645) MACAddress() (string, error) {
	return d.client.Query("EMAC?")
}

func (d *DG645) queryFloat(cmd string) (float64, error) {
	resp, err := d.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("delaygen: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (d *DG645) queryInt(cmd string) (int, error) {
	resp, err := d.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("delaygen: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func checkChannel(c Channel) error {
	if c < T0 || c > H {
		return fmt.Errorf("delaygen: delay channel %d out of range", c)
	}

	return nil
}

func checkOutput(o Output) error {
	if o < OutT0 || o > OutGH {
		return fmt.Errorf("delaygen: BNC output %d out of range", o)
	}

	return nil
}
