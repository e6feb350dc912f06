package transport

import (
	"fmt"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
)

// gpibChannel is a Channel to an IEEE-488 instrument behind a Prologix
// GPIB-USB controller on a virtual COM port.
type gpibChannel struct {
	cfg  *Config
	port *vcp.VCP
	ctrl *prologix.Controller
}

func newGPIBChannel(cfg *Config) *gpibChannel {
	return &gpibChannel{cfg: cfg}
}

func (c *gpibChannel) Open() error {
	if c.ctrl != nil {
		return ErrAlreadyOpen
	}

	port, err := vcp.NewVCP(c.cfg.Device())
	if err != nil {
		return fmt.Errorf("transport: open controller port %s: %w", c.cfg.Device(), err)
	}

	ctrl, err := prologix.NewController(port, c.cfg.GPIBAddress(), false)
	if err != nil {
		_ = port.Close()

		return fmt.Errorf("transport: gpib controller at address %d: %w",
			c.cfg.GPIBAddress(), err)
	}

	c.port = port
	c.ctrl = ctrl
	c.cfg.GetLogger().Debug("gpib channel opened",
		"port", c.cfg.Device(), "addr", c.cfg.GPIBAddress())

	return nil
}

func (c *gpibChannel) Read(p []byte) (int, error) {
	if c.ctrl == nil {
		return 0, ErrNotOpen
	}

	return c.ctrl.Read(p)
}

func (c *gpibChannel) Write(p []byte) (int, error) {
	if c.ctrl == nil {
		return 0, ErrNotOpen
	}

	return c.ctrl.Write(p)
}

// Clear sends the Selected Device Clear message to the instrument and drops
// any unread bytes buffered on the controller's serial port.
func (c *gpibChannel) Clear() error {
	if c.ctrl == nil {
		return ErrNotOpen
	}

	if err := c.ctrl.ClearDevice(); err != nil {
		return fmt.Errorf("transport: selected device clear: %w", err)
	}

	return c.port.Flush()
}

// Close returns the instrument to local control and releases the controller
// port. Closing an already-closed channel is a no-op.
func (c *gpibChannel) Close() error {
	if c.ctrl == nil {
		return nil
	}

	// Hand control back to the front panel before dropping the port.
	if err := c.ctrl.FrontPanel(true); err != nil {
		c.cfg.GetLogger().Warn("gpib local control", "error", err)
	}

	if err := c.port.Flush(); err != nil {
		c.cfg.GetLogger().Warn("gpib port flush", "error", err)
	}

	err := c.port.Close()
	c.port = nil
	c.ctrl = nil
	c.cfg.GetLogger().Debug("gpib channel closed", "port", c.cfg.Device())

	return err
}

func (c *gpibChannel) IsOpen() bool { return c.ctrl != nil }
