package awg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSamplesSpeed(t *testing.T) {
	words, err := EncodeSamples([]float64{0, 1, -1, 0.5}, ModeSpeed, true, true)
	require.NoError(t, err)

	// 12-bit value shifted past the four marker/reserved bits, both
	// marker bits set.
	assert.Equal(t, []int16{3, 2047*16 + 3, -2047*16 + 3, 1024*16 + 3}, words)
}

func TestEncodeSamplesPrecision(t *testing.T) {
	words, err := EncodeSamples([]float64{1, -1}, ModePrecision, false, false)
	require.NoError(t, err)
	assert.Equal(t, []int16{8188 * 4, -8188 * 4}, words)
}

func TestEncodeSamplesMarkerBits(t *testing.T) {
	sync, err := EncodeSamples([]float64{0}, ModeSpeed, true, false)
	require.NoError(t, err)
	assert.Equal(t, []int16{2}, sync)

	sample, err := EncodeSamples([]float64{0}, ModeSpeed, false, true)
	require.NoError(t, err)
	assert.Equal(t, []int16{1}, sample)
}

func TestEncodeSamplesRejectsOutOfRange(t *testing.T) {
	_, err := EncodeSamples([]float64{1.5}, ModeSpeed, false, false)
	require.Error(t, err)

	_, err = EncodeSamples([]float64{0}, "FAST", false, false)
	require.Error(t, err)
}

func TestPadWords(t *testing.T) {
	assert.Len(t, PadWords(make([]int16, 10)), MinSegmentSize)
	assert.Len(t, PadWords(make([]int16, MinSegmentSize)), MinSegmentSize)
	assert.Len(t, PadWords(make([]int16, MinSegmentSize+1)), MinSegmentSize+MinVectorSize)

	padded := PadWords([]int16{7})
	assert.Equal(t, int16(7), padded[0])
	assert.Equal(t, int16(0), padded[1])
}

func TestControlWordPack(t *testing.T) {
	cw := ControlWord{
		EndMarkerSequence:  true,
		EndMarkerScenario:  true,
		InitMarkerSequence: true,
		MarkerEnable:       true,
	}
	assert.Equal(t, uint32(0x71000000), cw.Pack())

	assert.Equal(t, uint32(1)<<31, ControlWord{Command: true}.Pack())
	assert.Equal(t, uint32(AdvanceSingle)<<20|uint32(AdvanceRepeat)<<16, ControlWord{
		AdvanceSequence: AdvanceSingle,
		AdvanceSegment:  AdvanceRepeat,
	}.Pack())
}

func TestControlWordRoundTrip(t *testing.T) {
	cw := ControlWord{
		Command:                 false,
		EndMarkerSequence:       true,
		MarkerEnable:            true,
		AdvanceSequence:         AdvanceConditional,
		AdvanceSegment:          AdvanceSingle,
		AmplitudeTableInit:      true,
		AmplitudeTableIncrement: true,
		FrequencyTableInit:      true,
		FrequencyTableIncrement: true,
	}
	assert.Equal(t, cw, ParseControlWord(cw.Pack()))
}
