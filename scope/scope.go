// Package scope drives Tektronix digital oscilloscopes: data source and
// encoding selection, curve transfer, horizontal controls and the fast
// frame acquisition mode.
package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// Encoding selects how curve data leaves the instrument.
type Encoding string

// Transfer encodings. ASCII curves can be parsed by Curve; binary curves
// are returned raw.
const (
	EncodingASCII  Encoding = "ASCII"
	EncodingBinary Encoding = "FPBINARY"
)

var validSources = map[string]struct{}{
	"CH1": {}, "CH2": {}, "CH3": {}, "CH4": {},
	"MATH1": {}, "MATH2": {}, "MATH3": {}, "MATH4": {},
}

// Scope drives a Tektronix oscilloscope.
type Scope struct {
	client *scpi.Client

	// encoding mirrors the instrument state so Curve knows whether the
	// payload is parseable ASCII.
	encoding Encoding
}

// NewScope wraps client in a scope driver.
func NewScope(client *scpi.Client) *Scope {
	return &Scope{client: client}
}

// Dial opens a channel from cfg and verifies the device answers *IDN?.
func Dial(cfg *transport.Config) (*Scope, error) {
	client, err := scpi.Dial(cfg, nil)
	if err != nil {
		return nil, err
	}

	s := &Scope{client: client}
	if _, err := s.Identify(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return s, nil
}

// Identify returns the *IDN? identification string.
func (s *Scope) Identify() (string, error) {
	return s.client.Identify()
}

// Close releases the connection.
func (s *Scope) Close() error {
	return s.client.Close()
}

// ESR reads the standard event status register (*ESR?).
func (s *Scope) ESR() (int, error) {
	return s.queryInt("*ESR?")
}

// SetDisplay turns the waveform display on or off.
func (s *Scope) SetDisplay(on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}

	return s.client.Write("DISPLAY:WAVEFORM " + state)
}

// SetCurveDisplay controls whether a source's curve is shown (:SELECT).
func (s *Scope) SetCurveDisplay(source string, shown bool) error {
	if err := checkSource(source); err != nil {
		return err
	}
	state := 0
	if shown {
		state = 1
	}

	return s.client.Write(fmt.Sprintf(":SELECT:%s %d", source, state))
}

// DefineSpectralMag defines a math slot as the spectral magnitude of a
// source channel.
func (s *Scope) DefineSpectralMag(math int, source string) error {
	if err := checkSource(source); err != nil {
		return err
	}

	return s.client.Write(fmt.Sprintf(":MATH%d:DEFINE \"SpectralMag(%s)\"", math, source))
}

// DefineAverage defines a math slot as the running average of a source
// channel over numAvg acquisitions.
func (s *Scope) DefineAverage(math int, source string, numAvg int) error {
	if err := checkSource(source); err != nil {
		return err
	}

	if err := s.client.Write(fmt.Sprintf(":MATH%d:NUMAV %d", math, numAvg)); err != nil {
		return err
	}

	return s.client.Write(fmt.Sprintf(":MATH%d:DEFINE \"Avg(%s)\"", math, source))
}

// Acquisitions waits for pending operations and returns the acquisition
// count.
func (s *Scope) Acquisitions() (int, error) {
	return s.queryInt("*WAI;ACQUIRE:NUMACQ?")
}

// SetDataSource selects the source for curve transfer (:DATA:SOUR),
// CH1-4 or MATH1-4.
func (s *Scope) SetDataSource(source string) error {
	if err := checkSource(source); err != nil {
		return err
	}

	return s.client.Write(":DATA:SOUR " + source)
}

// DataSource reads the selected curve transfer source.
func (s *Scope) DataSource() (string, error) {
	return s.client.Query(":DATA:SOUR?")
}

// SetEncoding selects the curve transfer encoding (:DATA:ENCDG).
func (s *Scope) SetEncoding(encoding Encoding) error {
	switch encoding {
	case EncodingASCII, EncodingBinary:
	default:
		return fmt.Errorf("scope: encoding %q must be ASCII or FPBINARY", string(encoding))
	}

	if err := s.client.Write(":DATA:ENCDG " + string(encoding)); err != nil {
		return err
	}
	s.encoding = encoding

	return nil
}

// Encoding reads the curve transfer encoding from the instrument.
func (s *Scope) Encoding() (Encoding, error) {
	resp, err := s.client.Query(":DATA:ENCDG?")
	if err != nil {
		return "", err
	}
	s.encoding = Encoding(resp)

	return s.encoding, nil
}

// Curve transfers the selected source's waveform (:CURVE?). With ASCII
// encoding the samples are parsed; otherwise Samples is nil and Raw holds
// the payload. The event status register is read afterwards to clear
// transfer errors.
func (s *Scope) Curve() (*CurveData, error) {
	return s.curve(":CURVE?")
}

// NextCurve transfers the next unique waveform (:CURVEN?).
func (s *Scope) NextCurve() (*CurveData, error) {
	return s.curve(":CURVEN?")
}

// CurveData is one transferred waveform.
type CurveData struct {
	Raw     string
	Samples []float64
	ESR     int
}

func (s *Scope) curve(cmd string) (*CurveData, error) {
	raw, err := s.client.Query(cmd)
	if err != nil {
		return nil, err
	}

	esr, err := s.queryInt("*ESR?")
	if err != nil {
		return nil, err
	}

	data := &CurveData{Raw: raw, ESR: esr}
	if s.encoding == EncodingASCII {
		fields := strings.Split(raw, ",")
		data.Samples = make([]float64, len(fields))
		for i, f := range fields {
			data.Samples[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("scope: parse curve sample %d in %q: %w", i, raw, err)
			}
		}
	}

	return data, nil
}

// WaveformPreamble reads the waveform preamble for the selected source
// (:WFMO?).
func (s *Scope) WaveformPreamble() (string, error) {
	return s.client.Query(":WFMO?")
}

// SampleRate reads the sample rate in Sa/s (HOR:MODE:SAMPLER?).
func (s *Scope) SampleRate() (float64, error) {
	return s.queryFloat("HOR:MODE:SAMPLER?")
}

// SetSampleRate sets the sample rate in Sa/s. The horizontal mode is
// switched to manual while changing, then back to constant sample rate.
func (s *Scope) SetSampleRate(rate float64) error {
	if err := s.client.Write(":HOR:MODE MANUAL"); err != nil {
		return err
	}
	if err := s.client.Write(fmt.Sprintf(":HOR:MODE:SAMPLER %f", rate)); err != nil {
		return err
	}

	return s.client.Write(":HOR:MODE CONST")
}

// RecordLength reads the record length in samples (:HOR:MODE:RECO?).
func (s *Scope) RecordLength() (int, error) {
	return s.queryInt(":HOR:MODE:RECO?")
}

// AcquisitionDuration reads the acquisition duration in seconds.
func (s *Scope) AcquisitionDuration() (float64, error) {
	return s.queryFloat(":HOR:ACQDURATION?")
}

// SetHorizontalScale sets the horizontal scale in seconds per division.
func (s *Scope) SetHorizontalScale(secondsPerDiv float64) error {
	return s.client.Write(fmt.Sprintf(":HOR:MODE:SCA %f", secondsPerDiv))
}

// SetTransferRange limits curve transfer to the points [start, stop].
// start below 1 means the first point; stop of 0 or past the record end
// means the last recorded point.
func (s *Scope) SetTransferRange(start, stop int) error {
	if start < 1 {
		start = 1
	}

	length, err := s.RecordLength()
	if err != nil {
		return err
	}
	if stop < 1 || stop > length {
		stop = length
	}

	if err := s.client.Write(fmt.Sprintf(":DAT:STAR %d", start)); err != nil {
		return err
	}

	return s.client.Write(fmt.Sprintf(":DAT:STOP %d", stop))
}

// TransferRange reads the curve transfer point range.
func (s *Scope) TransferRange() (start, stop int, err error) {
	start, err = s.queryInt(":DAT:STAR?")
	if err != nil {
		return 0, 0, err
	}
	stop, err = s.queryInt(":DAT:STOP?")
	if err != nil {
		return 0, 0, err
	}

	return start, stop, nil
}

func (s *Scope) queryFloat(cmd string) (float64, error) {
	resp, err := s.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("scope: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func (s *Scope) queryInt(cmd string) (int, error) {
	resp, err := s.client.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("scope: parse %q response %q: %w", cmd, resp, err)
	}

	return v, nil
}

func checkSource(source string) error {
	if _, ok := validSources[source]; !ok {
		return fmt.Errorf("scope: source %q must be one of CH1-4 or MATH1-4", source)
	}

	return nil
}
