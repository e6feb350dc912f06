// Package awg drives Keysight M8190-class arbitrary waveform generators:
// segment memory, waveform upload, sequence tables and the sequencer
// control word.
package awg

import (
	"fmt"
	"math"
)

// Segment memory granularity in speed mode.
const (
	MinVectorSize  = 64
	MinSegmentSize = 320
)

// UploadBlockSize is the number of samples sent per :TRAC:DATA command.
// Samples travel as comma-separated ASCII because the framed session
// cannot carry the terminator byte inside a payload.
const UploadBlockSize = 4800

// EncodingMode selects the DAC word format.
type EncodingMode string

// DAC word formats. Speed trades two bits of resolution for sample rate.
const (
	ModeSpeed     EncodingMode = "SPEED"     // 12-bit samples
	ModePrecision EncodingMode = "PRECISION" // 14-bit samples
)

func (m EncodingMode) params() (factor float64, shift int16, err error) {
	switch m {
	case ModeSpeed:
		return 2047, 16, nil
	case ModePrecision:
		return 8188, 4, nil
	default:
		return 0, 0, fmt.Errorf("awg: unknown encoding mode %q", string(m))
	}
}

// Marker bits occupying the low bits of each DAC word.
const (
	syncMarkerBit   = 2
	sampleMarkerBit = 1
)

// EncodeSamples converts normalized samples in [-1, 1] into the int16 DAC
// words the instrument expects. The sample value is scaled to full
// amplitude and shifted left past the marker bits; the marker flags are
// set on every word.
func EncodeSamples(samples []float64, mode EncodingMode, syncMarker, sampleMarker bool) ([]int16, error) {
	factor, shift, err := mode.params()
	if err != nil {
		return nil, err
	}

	var marker int16
	if syncMarker {
		marker |= syncMarkerBit
	}
	if sampleMarker {
		marker |= sampleMarkerBit
	}

	words := make([]int16, len(samples))
	for i, s := range samples {
		if s < -1 || s > 1 {
			return nil, fmt.Errorf("awg: sample %d out of range: %g not in [-1, 1]", i, s)
		}
		words[i] = int16(math.Round(factor*s))*shift + marker
	}

	return words, nil
}

// PadWords extends words with zero samples until the segment granularity
// is satisfied: at least MinSegmentSize samples, total length a multiple
// of MinVectorSize.
func PadWords(words []int16) []int16 {
	n := len(words)
	if n < MinSegmentSize {
		n = MinSegmentSize
	}
	if rem := n % MinVectorSize; rem != 0 {
		n += MinVectorSize - rem
	}
	if n == len(words) {
		return words
	}

	padded := make([]int16, n)
	copy(padded, words)

	return padded
}

// AdvanceMode specifies how the sequencer advances past an entry.
type AdvanceMode uint32

// Sequencer advancement modes.
const (
	AdvanceAuto        AdvanceMode = 0
	AdvanceConditional AdvanceMode = 1
	AdvanceRepeat      AdvanceMode = 2
	AdvanceSingle      AdvanceMode = 3
)

// ControlWord is the unpacked form of the 32-bit sequencer control
// parameter carried in every sequence table entry.
type ControlWord struct {
	Command                 bool // entry is a command, not waveform data
	EndMarkerSequence       bool
	EndMarkerScenario       bool
	InitMarkerSequence      bool
	MarkerEnable            bool
	AdvanceSequence         AdvanceMode
	AdvanceSegment          AdvanceMode
	AmplitudeTableInit      bool
	AmplitudeTableIncrement bool
	FrequencyTableInit      bool
	FrequencyTableIncrement bool
}

// Bit positions within the control word.
const (
	ctrlCommandBit       = 31
	ctrlEndSequenceBit   = 30
	ctrlEndScenarioBit   = 29
	ctrlInitSequenceBit  = 28
	ctrlMarkerEnableBit  = 24
	ctrlAdvSequenceShift = 20
	ctrlAdvSegmentShift  = 16
	ctrlAmplInitBit      = 15
	ctrlAmplIncrementBit = 14
	ctrlFreqInitBit      = 13
	ctrlFreqIncrementBit = 12
	ctrlAdvanceMask      = 0xf
)

// Pack serializes the control word into its wire form.
func (c ControlWord) Pack() uint32 {
	var v uint32

	set := func(bit int, on bool) {
		if on {
			v |= 1 << bit
		}
	}
	set(ctrlCommandBit, c.Command)
	set(ctrlEndSequenceBit, c.EndMarkerSequence)
	set(ctrlEndScenarioBit, c.EndMarkerScenario)
	set(ctrlInitSequenceBit, c.InitMarkerSequence)
	set(ctrlMarkerEnableBit, c.MarkerEnable)
	set(ctrlAmplInitBit, c.AmplitudeTableInit)
	set(ctrlAmplIncrementBit, c.AmplitudeTableIncrement)
	set(ctrlFreqInitBit, c.FrequencyTableInit)
	set(ctrlFreqIncrementBit, c.FrequencyTableIncrement)

	v |= (uint32(c.AdvanceSequence) & ctrlAdvanceMask) << ctrlAdvSequenceShift
	v |= (uint32(c.AdvanceSegment) & ctrlAdvanceMask) << ctrlAdvSegmentShift

	return v
}

// ParseControlWord unpacks a wire-form control parameter.
func ParseControlWord(v uint32) ControlWord {
	bit := func(n int) bool { return v&(1<<n) != 0 }

	return ControlWord{
		Command:                 bit(ctrlCommandBit),
		EndMarkerSequence:       bit(ctrlEndSequenceBit),
		EndMarkerScenario:       bit(ctrlEndScenarioBit),
		InitMarkerSequence:      bit(ctrlInitSequenceBit),
		MarkerEnable:            bit(ctrlMarkerEnableBit),
		AdvanceSequence:         AdvanceMode(v >> ctrlAdvSequenceShift & ctrlAdvanceMask),
		AdvanceSegment:          AdvanceMode(v >> ctrlAdvSegmentShift & ctrlAdvanceMask),
		AmplitudeTableInit:      bit(ctrlAmplInitBit),
		AmplitudeTableIncrement: bit(ctrlAmplIncrementBit),
		FrequencyTableInit:      bit(ctrlFreqInitBit),
		FrequencyTableIncrement: bit(ctrlFreqIncrementBit),
	}
}
