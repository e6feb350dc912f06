package lockin

import (
	"fmt"
	"strconv"
	"strings"
)

// Internal storage buffer of the SR830: up to 16383 points per channel,
// filled at the sample rate or one point per external trigger.

// SetStorageTriggerRate sets the storage sample rate to one point per
// trigger (SRAT 14). Only the trigger rate is supported.
func (l *SR830) SetStorageTriggerRate() error {
	return l.client.Write("SRAT 14")
}

// SetStorageTriggerMode enables or disables the trigger start mode
// (TSTR).
func (l *SR830) SetStorageTriggerMode(on bool) error {
	mode := 0
	if on {
		mode = 1
	}

	return l.client.Write(fmt.Sprintf("TSTR %d", mode))
}

// StorageTriggerMode reads the trigger start mode.
func (l *SR830) StorageTriggerMode() (bool, error) {
	v, err := l.queryInt("TSTR?")
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

// Trigger stores the current value to internal memory (TRIG).
func (l *SR830) Trigger() error {
	return l.client.Write("TRIG")
}

// ResetStorage clears the internal storage buffer (REST).
func (l *SR830) ResetStorage() error {
	return l.client.Write("REST")
}

// StorageLength reads the number of points in the storage buffer (SPTS?).
// The value changes while storage is running; pause storage before
// relying on it.
func (l *SR830) StorageLength() (int, error) {
	return l.queryInt("SPTS?")
}

// StorageBuffer reads points [start, start+count) from a display channel
// buffer as ASCII (TRCA?) and parses them.
func (l *SR830) StorageBuffer(channel, start, count int) ([]float64, error) {
	if channel != 1 && channel != 2 {
		return nil, fmt.Errorf("lockin: storage channel %d must be 1 or 2", channel)
	}
	if count < 1 {
		var err error
		if count, err = l.StorageLength(); err != nil {
			return nil, err
		}
		count -= start
	}

	resp, err := l.client.Query(fmt.Sprintf("TRCA?%d,%d,%d", channel, start, count))
	if err != nil {
		return nil, err
	}

	resp = strings.TrimSuffix(strings.TrimSpace(resp), ",")
	fields := strings.Split(resp, ",")
	points := make([]float64, len(fields))
	for i, f := range fields {
		points[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("lockin: parse storage point %d in %q: %w", i, resp, err)
		}
	}

	return points, nil
}
