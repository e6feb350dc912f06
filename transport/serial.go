package transport

import (
	"fmt"
	"time"

	"github.com/goburrow/serial"
)

// serialPollInterval is the timeout the port itself is opened with. The
// serial library can only block for its configured timeout, so Read and
// Clear poll in slices of this length and enforce their own deadlines on
// top.
const serialPollInterval = 50 * time.Millisecond

// serialChannel is a Channel over an RS-232 port.
type serialChannel struct {
	cfg  *Config
	port serial.Port
}

func newSerialChannel(cfg *Config) *serialChannel {
	return &serialChannel{cfg: cfg}
}

func (c *serialChannel) Open() error {
	if c.port != nil {
		return ErrAlreadyOpen
	}

	port, err := serial.Open(&serial.Config{
		Address:  c.cfg.Device(),
		BaudRate: c.cfg.BaudRate(),
		DataBits: c.cfg.DataBits(),
		StopBits: c.cfg.StopBits(),
		Parity:   c.cfg.Parity(),
		Timeout:  c.pollInterval(),
	})
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", c.cfg.Device(), err)
	}

	c.port = port
	c.cfg.GetLogger().Debug("serial channel opened",
		"device", c.cfg.Device(), "baud", c.cfg.BaudRate())

	return nil
}

func (c *serialChannel) pollInterval() time.Duration {
	if rt := c.cfg.ReadTimeout(); rt > 0 && rt < serialPollInterval {
		return rt
	}

	return serialPollInterval
}

// Read polls the port in short slices until data arrives or the configured
// read timeout elapses.
func (c *serialChannel) Read(p []byte) (int, error) {
	if c.port == nil {
		return 0, ErrNotOpen
	}

	deadline := time.Now().Add(c.cfg.ReadTimeout())

	for {
		n, err := c.port.Read(p)
		if err == nil || !IsTimeout(err) {
			return n, err
		}

		if !time.Now().Before(deadline) {
			return 0, ErrTimeout
		}
	}
}

func (c *serialChannel) Write(p []byte) (int, error) {
	if c.port == nil {
		return 0, ErrNotOpen
	}

	return c.port.Write(p)
}

// Clear reads until the line goes quiet, discarding whatever the device has
// already sent. Each poll blocks at most serialPollInterval, so a quiet line
// costs one slice rather than a full read timeout.
func (c *serialChannel) Clear() error {
	if c.port == nil {
		return ErrNotOpen
	}

	buf := make([]byte, 512)

	for {
		n, err := c.port.Read(buf)
		if err != nil {
			if IsTimeout(err) {
				return nil
			}

			return err
		}

		if n == 0 {
			return nil
		}
	}
}

// Close releases the port. Closing an already-closed channel is a no-op.
func (c *serialChannel) Close() error {
	if c.port == nil {
		return nil
	}

	err := c.port.Close()
	c.port = nil
	c.cfg.GetLogger().Debug("serial channel closed", "device", c.cfg.Device())

	return err
}

func (c *serialChannel) IsOpen() bool { return c.port != nil }
