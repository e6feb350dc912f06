package awg

import (
	"fmt"
	"strconv"
	"strings"
)

// Segments lists the defined waveform segments of a channel (:TRAC:CAT?),
// keyed by segment id with the segment length as value.
func (a *AWG) Segments(channel int) (map[int]int, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}

	resp, err := a.client.Query(fmt.Sprintf(":TRAC%d:CAT?", channel))
	if err != nil {
		return nil, err
	}

	fields := strings.Split(resp, ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("awg: malformed segment catalog %q", resp)
	}

	segments := make(map[int]int, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		id, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("awg: malformed segment catalog %q: %w", resp, err)
		}
		length, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return nil, fmt.Errorf("awg: malformed segment catalog %q: %w", resp, err)
		}
		// "0,0" means no segments are defined.
		if id == 0 {
			continue
		}
		segments[id] = length
	}

	return segments, nil
}

// DeleteSegment removes one segment from a channel (:TRAC:DEL).
func (a *AWG) DeleteSegment(channel, segmentID int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":TRAC%d:DEL %d", channel, segmentID))
}

// DefineSegment reserves waveform memory for a segment with a known id
// (:TRAC:DEF). The length is padded up to the granularity requirements.
func (a *AWG) DefineSegment(channel, segmentID, length int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":TRAC%d:DEF %d,%d,%d", channel, segmentID, padLength(length), 0))
}

// NewSegment reserves waveform memory and returns the id the instrument
// assigned (:TRAC:DEF:NEW?).
func (a *AWG) NewSegment(channel, length int) (int, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	return a.queryInt(fmt.Sprintf(":TRAC%d:DEF:NEW? %d,%d", channel, padLength(length), 0))
}

func padLength(length int) int {
	if length < MinSegmentSize {
		length = MinSegmentSize
	}
	if rem := length % MinVectorSize; rem != 0 {
		length += MinVectorSize - rem
	}

	return length
}

// SelectSegment selects the segment output in arbitrary mode (:TRAC:SEL).
func (a *AWG) SelectSegment(segmentID int) error {
	return a.client.Write(fmt.Sprintf(":TRAC:SEL %d", segmentID))
}

// SelectedSegment reads the selected segment id.
func (a *AWG) SelectedSegment() (int, error) {
	return a.queryInt(":TRAC:SEL?")
}

// SetSegmentMarkers enables or disables marker output for the selected
// segment (:TRAC:MARK).
func (a *AWG) SetSegmentMarkers(enabled bool) error {
	state := 0
	if enabled {
		state = 1
	}

	return a.client.Write(fmt.Sprintf(":TRAC:MARK %d", state))
}

// SegmentMarkers reads the marker state of the selected segment.
func (a *AWG) SegmentMarkers() (bool, error) {
	return a.queryBool(":TRAC:MARK?")
}

// UploadOptions control waveform encoding during upload.
type UploadOptions struct {
	Mode         EncodingMode // zero value means ModeSpeed
	SyncMarker   bool
	SampleMarker bool
}

// UploadWaveform encodes normalized samples in [-1, 1] and writes them
// into a channel segment. An existing segment with the same id is deleted
// first. The DAC words travel as comma-separated ASCII in blocks of
// UploadBlockSize samples; the error queue is checked after every block.
func (a *AWG) UploadWaveform(channel, segmentID int, samples []float64, opts UploadOptions) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if opts.Mode == "" {
		opts.Mode = ModeSpeed
	}

	words, err := EncodeSamples(samples, opts.Mode, opts.SyncMarker, opts.SampleMarker)
	if err != nil {
		return err
	}
	words = PadWords(words)

	segments, err := a.Segments(channel)
	if err != nil {
		return err
	}
	if _, exists := segments[segmentID]; exists {
		if err := a.DeleteSegment(channel, segmentID); err != nil {
			return err
		}
	}
	if err := a.DefineSegment(channel, segmentID, len(words)); err != nil {
		return err
	}

	for offset := 0; offset < len(words); offset += UploadBlockSize {
		end := offset + UploadBlockSize
		if end > len(words) {
			end = len(words)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, ":TRAC%d:DATA %d,%d", channel, segmentID, offset)
		for _, w := range words[offset:end] {
			sb.WriteByte(',')
			sb.WriteString(strconv.Itoa(int(w)))
		}
		if err := a.client.Write(sb.String()); err != nil {
			return err
		}

		errs, err := a.Errors()
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			return fmt.Errorf("awg: upload block at offset %d rejected: %s", offset, strings.Join(errs, "; "))
		}
	}

	return nil
}
