package awg

import (
	"fmt"
	"strconv"
	"strings"
)

// NewSequence defines a sequence with room for length table entries and
// returns the id the instrument assigned (:SEQ:DEF:NEW?).
func (a *AWG) NewSequence(channel, length int) (int, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	return a.queryInt(fmt.Sprintf(":SEQ%d:DEF:NEW? %d", channel, length))
}

// SequenceStep is one row of a sequence table.
type SequenceStep struct {
	SegmentID    int
	LoopCount    int
	AdvanceMode  AdvanceMode
	MarkerEnable bool
	StartAddr    uint32
	StopAddr     uint32
}

// SetSequenceStep writes one row of a sequence table (:SEQ:DATA).
func (a *AWG) SetSequenceStep(channel, sequenceID, row int, step SequenceStep) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if step.LoopCount < 1 {
		step.LoopCount = 1
	}
	if step.StopAddr == 0 {
		step.StopAddr = 0xffffffff
	}

	marker := 0
	if step.MarkerEnable {
		marker = 1
	}

	err := a.client.Write(fmt.Sprintf(":SEQ%d:DATA %d,%d,%d,%d,%d,%d,%d,%d",
		channel, sequenceID, row, step.SegmentID, step.LoopCount,
		step.AdvanceMode, marker, step.StartAddr, step.StopAddr))
	if err != nil {
		return err
	}

	errs, err := a.Errors()
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("awg: sequence row %d rejected: %s", row, strings.Join(errs, "; "))
	}

	return nil
}

// Sequences lists the defined sequences of a channel (:SEQ:CAT?), keyed
// by sequence id with the table length as value.
func (a *AWG) Sequences(channel int) (map[int]int, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}

	resp, err := a.client.Query(fmt.Sprintf(":SEQ%d:CAT?", channel))
	if err != nil {
		return nil, err
	}

	fields := strings.Split(resp, ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("awg: malformed sequence catalog %q", resp)
	}

	sequences := make(map[int]int, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		id, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("awg: malformed sequence catalog %q: %w", resp, err)
		}
		length, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return nil, fmt.Errorf("awg: malformed sequence catalog %q: %w", resp, err)
		}
		sequences[id] = length
	}

	return sequences, nil
}

// DeleteSequence removes one sequence (:SEQ:DEL).
func (a *AWG) DeleteSequence(sequenceID int) error {
	return a.client.Write(fmt.Sprintf(":SEQ:DEL %d", sequenceID))
}

// DeleteAllSequences removes every defined sequence (:SEQ:DEL:ALL).
func (a *AWG) DeleteAllSequences() error {
	return a.client.Write(":SEQ:DEL:ALL")
}

// SequencerEntry is one row of the sequencer table (STAB subsystem). The
// three entry kinds share a six-field wire format; the control word's
// Command flag and the third field discriminate them.
type SequencerEntry struct {
	Control           ControlWord
	SequenceLoopCount int

	// data and config entries
	SegmentID          int
	SegmentLoopCount   int
	SegmentStartOffset uint32
	SegmentEndOffset   uint32

	// idle entries
	IdleSample int
	IdleDelay  int
}

// DataEntry builds a sequencer entry that plays a segment.
func DataEntry(control ControlWord, segmentID, segmentLoops, sequenceLoops int) SequencerEntry {
	return SequencerEntry{
		Control:           control,
		SequenceLoopCount: sequenceLoops,
		SegmentID:         segmentID,
		SegmentLoopCount:  segmentLoops,
		SegmentEndOffset:  0xffffffff,
	}
}

// IdleEntry builds a sequencer command entry that holds a static sample
// for delay sample clocks. The delay may not be shorter than ten memory
// vectors.
func IdleEntry(control ControlWord, idleSample, delay, sequenceLoops int) SequencerEntry {
	minDelay := 10 * MinVectorSize
	if delay < minDelay {
		delay = minDelay
	}
	control.Command = true

	return SequencerEntry{
		Control:           control,
		SequenceLoopCount: sequenceLoops,
		IdleSample:        idleSample,
		IdleDelay:         delay,
	}
}

func (e SequencerEntry) row() string {
	loops := e.SequenceLoopCount
	if loops < 1 {
		loops = 1
	}

	if e.Control.Command {
		return fmt.Sprintf("%d,%d,%d,%d,%d,%d", e.Control.Pack(), loops, 0, e.IdleSample, e.IdleDelay, 0)
	}

	segLoops := e.SegmentLoopCount
	if segLoops < 1 {
		segLoops = 1
	}
	end := e.SegmentEndOffset
	if end == 0 {
		end = 0xffffffff
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", e.Control.Pack(), loops, segLoops, e.SegmentID, e.SegmentStartOffset, end)
}

// WriteSequencerEntry writes one sequencer table row on a channel
// (:STAB:DATA).
func (a *AWG) WriteSequencerEntry(channel, index int, entry SequencerEntry) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	return a.client.Write(fmt.Sprintf(":STAB%d:DATA %d,%s", channel, index, entry.row()))
}

// ReadSequencerEntries reads count sequencer table rows starting at index
// (:STAB:DATA?).
func (a *AWG) ReadSequencerEntries(channel, index, count int) ([]SequencerEntry, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}

	resp, err := a.client.Query(fmt.Sprintf(":STAB%d:DATA? %d,%d", channel, index, 6*count))
	if err != nil {
		return nil, err
	}

	fields := strings.Split(resp, ",")
	if len(fields)%6 != 0 {
		return nil, fmt.Errorf("awg: malformed sequencer data %q", resp)
	}

	values := make([]uint64, len(fields))
	for i, f := range fields {
		values[i], err = strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("awg: malformed sequencer data %q: %w", resp, err)
		}
	}

	entries := make([]SequencerEntry, 0, len(values)/6)
	for i := 0; i < len(values); i += 6 {
		entry := SequencerEntry{
			Control:           ParseControlWord(uint32(values[i])),
			SequenceLoopCount: int(values[i+1]),
		}
		if entry.Control.Command {
			entry.IdleSample = int(values[i+3])
			entry.IdleDelay = int(values[i+4])
		} else {
			entry.SegmentLoopCount = int(values[i+2])
			entry.SegmentID = int(values[i+3])
			entry.SegmentStartOffset = uint32(values[i+4])
			entry.SegmentEndOffset = uint32(values[i+5])
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// SelectSequencerIndex points the sequencer at the first table entry of a
// sequence, switches dynamic mode off and puts the channel into sequence
// mode.
func (a *AWG) SelectSequencerIndex(channel, index int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}

	if err := a.client.Write(fmt.Sprintf(":STAB%d:SEQ:SEL %d", channel, index)); err != nil {
		return err
	}
	if err := a.client.Write(fmt.Sprintf(":STAB%d:DYN OFF", channel)); err != nil {
		return err
	}

	return a.client.Write(":FUNC:MODE STS")
}

// SelectedSequencerIndex reads the sequencer start index of a channel.
func (a *AWG) SelectedSequencerIndex(channel int) (int, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	return a.queryInt(fmt.Sprintf(":STAB%d:SEQ:SEL?", channel))
}

// ResetSequencer resets all sequencer table entries to defaults
// (:STAB:RES).
func (a *AWG) ResetSequencer() error {
	return a.client.Write(":STAB:RES")
}
