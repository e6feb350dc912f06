package scope

import "fmt"

// Fast frame mode captures many short acquisitions back to back in
// segment memory.

// SetFastFrame enables or disables fast frame mode (:HOR:FAST:STATE).
func (s *Scope) SetFastFrame(enable bool) error {
	state := 0
	if enable {
		state = 1
	}

	return s.client.Write(fmt.Sprintf(":HOR:FAST:STATE %d", state))
}

// FastFrame reads the fast frame state.
func (s *Scope) FastFrame() (bool, error) {
	v, err := s.queryInt(":HOR:FAST:STATE?")
	if err != nil {
		return false, err
	}

	return v == 1, nil
}

// SetFastFrameSource selects the fast frame source (CH1-4, MATH1-4).
func (s *Scope) SetFastFrameSource(source string) error {
	if err := checkSource(source); err != nil {
		return err
	}

	return s.client.Write(":HOR:FAST:SELECTED:SOU " + source)
}

// FastFrameSource reads the selected fast frame source.
func (s *Scope) FastFrameSource() (string, error) {
	return s.client.Query(":HOR:FAST:SELECTED:SOU?")
}

// SetFrameCount sets the number of frames to acquire (:HOR:FAST:COUN).
func (s *Scope) SetFrameCount(frames int) error {
	return s.client.Write(fmt.Sprintf(":HOR:FAST:COUN %d", frames))
}

// FrameCount reads the configured number of frames.
func (s *Scope) FrameCount() (int, error) {
	return s.queryInt(":HOR:FAST:COUN?")
}

// SelectedFrame reads the selected frame of the current data source.
func (s *Scope) SelectedFrame() (int, error) {
	source, err := s.DataSource()
	if err != nil {
		return 0, err
	}

	return s.queryInt(fmt.Sprintf(":HOR:FAST:SELECTED:%s?", source))
}

// SelectLastFrame selects the final frame of the current data source.
func (s *Scope) SelectLastFrame() error {
	source, err := s.DataSource()
	if err != nil {
		return err
	}
	frames, err := s.FrameCount()
	if err != nil {
		return err
	}

	return s.client.Write(fmt.Sprintf(":HOR:FAST:SELECTED:%s %d", source, frames))
}

// SetSummaryFrameMode sets how the summary frame combines the acquired
// frames (:HOR:FAST:SUMF) and restricts math to the summary frame.
func (s *Scope) SetSummaryFrameMode(mode string) error {
	if err := s.client.Write(":HOR:FAST:SUMF " + mode); err != nil {
		return err
	}

	return s.SetMathOnSummaryFrame(true)
}

// SummaryFrameMode reads the summary frame mode.
func (s *Scope) SummaryFrameMode() (string, error) {
	return s.client.Query(":HOR:FAST:SUMF?")
}

// SetMathOnSummaryFrame restricts math functions to the summary frame
// when enabled (:HOR:FAST:SINGLEF).
func (s *Scope) SetMathOnSummaryFrame(enabled bool) error {
	state := 0
	if enabled {
		state = 1
	}

	return s.client.Write(fmt.Sprintf(":HOR:FAST:SINGLEF %d", state))
}

// SelectTransferFrame selects one frame for curve transfer. A frame of 0
// or past the acquired count selects the last frame.
func (s *Scope) SelectTransferFrame(frame int) error {
	frames, err := s.FrameCount()
	if err != nil {
		return err
	}
	if frame < 1 || frame > frames {
		frame = frames
	}

	if err := s.client.Write(fmt.Sprintf(":DAT:FRAMESTAR %d", frame)); err != nil {
		return err
	}

	return s.client.Write(fmt.Sprintf(":DAT:FRAMESTOP %d", frame))
}

// TransferFrames reads the frame range selected for curve transfer.
func (s *Scope) TransferFrames() (start, stop int, err error) {
	start, err = s.queryInt(":DAT:FRAMESTAR?")
	if err != nil {
		return 0, 0, err
	}
	stop, err = s.queryInt(":DAT:FRAMESTOP?")
	if err != nil {
		return 0, 0, err
	}

	return start, stop, nil
}
