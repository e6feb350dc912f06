package mks

import (
	"fmt"
	"strings"
)

// RatioRecipe configures manual ratio control of system pressure using
// several MFC channels at once. Flows carries the initial flow rate per
// channel (1-6); nil entries leave the channel out of the recipe. Rates are
// in the channel's configured unit and correction factor.
type RatioRecipe struct {
	// Number selects recipe slot RR1..RR4.
	Number int
	Flows  [6]*float64
}

// SetRatio programs a ratio-control recipe (RRCP, RRQ1..RRQ6). Every
// participating channel must be a flow controller.
func (m *MKS946) SetRatio(recipe RatioRecipe) error {
	if recipe.Number < 1 || recipe.Number > 4 {
		return fmt.Errorf("mks: ratio recipe number %d must be in [1, 4]", recipe.Number)
	}

	if err := m.set("RRCP", recipe.Number); err != nil {
		return err
	}

	for i, flow := range recipe.Flows {
		if flow == nil {
			continue
		}

		st, err := m.SensorType(i + 1)
		if err != nil {
			return err
		}
		if !strings.Contains(st, "FC") {
			return fmt.Errorf("mks: channel %d is not a flow controller (%s)", i+1, st)
		}

		if err := m.set(fmt.Sprintf("RRQ%d", i+1), fmt.Sprintf("%.2E", *flow)); err != nil {
			return err
		}
	}

	return nil
}

// PIDRecipe configures one of the eight pressure-control recipes. Nil
// fields are left untouched on the device. See section 6.7.3.2 of the 946
// manual for parameter meanings and the valid ranges enforced here.
type PIDRecipe struct {
	// Number selects recipe slot R1..R8.
	Number int
	// Channel is the controlled channel, 1-6, or the special targets
	// "rat" (ratio control) and "vlv" (valve).
	Channel *string
	// PressureSensor is the channel (1-6) carrying the pressure sensor.
	PressureSensor *int
	// Setpoint is the target pressure in the system unit.
	Setpoint *float64

	Kp *float64 // proportional gain, 0.00002..10000
	Ti *float64 // integral time, 0.01..10000
	Td *float64 // derivative time, 0..1000

	// Ramp is the initial ramp duration in seconds, Start/End its
	// endpoint setpoints in percent of full scale.
	Ramp  *float64
	Start *float64
	End   *float64

	// Base and Ceiling bound the MFC output in percent of full scale;
	// they must differ by at least 10.
	Base    *float64
	Ceiling *float64
	// Direction is "upstream" or "downstream", the valve position
	// relative to the pressure sensor.
	Direction *string
	// Preset is the flow rate applied once PID control terminates.
	Preset *float64

	// Band and Gain configure gain-scheduling PID control.
	Band *int // 0..30
	Gain *int // 1..200
}

func (r *PIDRecipe) validate() error {
	if r.Number < 1 || r.Number > 8 {
		return fmt.Errorf("mks: PID recipe number %d must be in [1, 8]", r.Number)
	}
	if r.Kp != nil && (*r.Kp < 0.00002 || *r.Kp > 10000) {
		return fmt.Errorf("mks: Kp %g out of range [0.00002, 10000]", *r.Kp)
	}
	if r.Ti != nil && (*r.Ti < 0.01 || *r.Ti > 10000) {
		return fmt.Errorf("mks: Ti %g out of range [0.01, 10000]", *r.Ti)
	}
	if r.Td != nil && (*r.Td < 0 || *r.Td > 1000) {
		return fmt.Errorf("mks: Td %g out of range [0, 1000]", *r.Td)
	}
	if r.Band != nil && (*r.Band < 0 || *r.Band > 30) {
		return fmt.Errorf("mks: band %d out of range [0, 30]", *r.Band)
	}
	if r.Gain != nil && (*r.Gain < 1 || *r.Gain > 200) {
		return fmt.Errorf("mks: gain %d out of range [1, 200]", *r.Gain)
	}
	if r.Ramp != nil && (*r.Ramp < 0 || *r.Ramp > 1000) {
		return fmt.Errorf("mks: ramp %g out of range [0, 1000]", *r.Ramp)
	}
	if r.Start != nil && (*r.Start < 0 || *r.Start > 100) {
		return fmt.Errorf("mks: start %g out of range [0, 100]", *r.Start)
	}
	if r.End != nil && (*r.End < 0 || *r.End > 100) {
		return fmt.Errorf("mks: end %g out of range [0, 100]", *r.End)
	}
	if r.Base != nil && *r.Base < 0 {
		return fmt.Errorf("mks: base %g must not be negative", *r.Base)
	}
	if r.Ceiling != nil && *r.Ceiling > 100 {
		return fmt.Errorf("mks: ceiling %g must not exceed 100", *r.Ceiling)
	}
	if r.Base != nil && r.Ceiling != nil && *r.Ceiling-*r.Base < 10 {
		return fmt.Errorf("mks: ceiling %g and base %g must differ by at least 10",
			*r.Ceiling, *r.Base)
	}
	if r.Preset != nil && (*r.Preset < 0 || *r.Preset > 100) {
		return fmt.Errorf("mks: preset %g out of range [0, 100]", *r.Preset)
	}
	if r.Direction != nil {
		d := strings.ToLower(*r.Direction)
		if d != "upstream" && d != "downstream" {
			return fmt.Errorf("mks: direction %q must be upstream or downstream", *r.Direction)
		}
	}

	return nil
}

// SetPID programs a pressure-control recipe. Programming a recipe does not
// activate it; see SetActiveRecipe.
func (m *MKS946) SetPID(recipe PIDRecipe) error {
	if err := recipe.validate(); err != nil {
		return err
	}

	n := recipe.Number

	if recipe.Channel != nil {
		target, err := m.pidTarget(*recipe.Channel)
		if err != nil {
			return err
		}
		if err := m.set("RDCH", fmt.Sprintf("%d:%s", n, target)); err != nil {
			return err
		}
	}

	if recipe.PressureSensor != nil {
		channel := *recipe.PressureSensor
		st, err := m.SensorType(channel)
		if err != nil {
			return err
		}
		if !pressureSensors[st] {
			return fmt.Errorf("mks: channel %d sensor %q is not a pressure sensor", channel, st)
		}
		if err := m.set("RPCH", fmt.Sprintf("%d:%s", n, chanToSlotPos(channel))); err != nil {
			return err
		}
	}

	sciParams := []struct {
		mnemonic string
		value    *float64
	}{
		{"RKP", recipe.Kp},
		{"RTI", recipe.Ti},
		{"RTD", recipe.Td},
		{"RCST", recipe.Ramp},
		{"RSTR", recipe.Start},
		{"REND", recipe.End},
		{"RBAS", recipe.Base},
		{"RCEI", recipe.Ceiling},
		{"RPST", recipe.Preset},
		{"RPSP", recipe.Setpoint},
	}
	for _, p := range sciParams {
		if p.value == nil {
			continue
		}
		if err := m.set(p.mnemonic, fmt.Sprintf("%d:%.2E", n, *p.value)); err != nil {
			return err
		}
	}

	if recipe.Band != nil {
		if err := m.set("RGSB", fmt.Sprintf("%d:%d", n, *recipe.Band)); err != nil {
			return err
		}
	}
	if recipe.Gain != nil {
		if err := m.set("RGSG", fmt.Sprintf("%d:%d", n, *recipe.Gain)); err != nil {
			return err
		}
	}
	if recipe.Direction != nil {
		d := "Upstream"
		if strings.EqualFold(*recipe.Direction, "downstream") {
			d = "Downstream"
		}
		if err := m.set("RDIR", fmt.Sprintf("%d:%s", n, d)); err != nil {
			return err
		}
	}

	return nil
}

func (m *MKS946) pidTarget(channel string) (string, error) {
	switch strings.ToLower(channel) {
	case "rat":
		return "Rat", nil
	case "vlv":
		return "Vlv", nil
	}

	var n int
	if _, err := fmt.Sscanf(channel, "%d", &n); err != nil || n < 1 || n > 6 {
		return "", fmt.Errorf("mks: PID channel %q must be 1-6, rat or vlv", channel)
	}

	return chanToSlotPos(n), nil
}

// ControlMode selects what SetControlMode activates.
type ControlMode int

const (
	// ControlOff terminates PID and ratio control.
	ControlOff ControlMode = iota
	// ControlPID activates the PID recipe selected on the front panel.
	ControlPID
	// ControlManualRatio activates manual ratio control.
	ControlManualRatio
)

// SetControlMode switches PID/ratio control on or off. Recipe selection
// itself is front-panel only; the communication interface cannot choose
// which recipe runs.
func (m *MKS946) SetControlMode(mode ControlMode) error {
	var pid, rm string

	switch mode {
	case ControlOff:
		pid, rm = "OFF", "OFF"
	case ControlPID:
		pid, rm = "ON", "OFF"
	case ControlManualRatio:
		pid, rm = "OFF", "ON"
	default:
		return fmt.Errorf("mks: unknown control mode %d", int(mode))
	}

	if err := m.set("PID", pid); err != nil {
		return err
	}

	return m.set("RM", rm)
}
