package transport

import (
	"fmt"
	"os"
)

// directChannel is a Channel over a character special file, for instruments
// exposed by a kernel driver (e.g. linux-gpib device nodes).
type directChannel struct {
	cfg  *Config
	file *os.File
}

func newDirectChannel(cfg *Config) *directChannel {
	return &directChannel{cfg: cfg}
}

func (c *directChannel) Open() error {
	if c.file != nil {
		return ErrAlreadyOpen
	}

	f, err := os.OpenFile(c.cfg.Device(), os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", c.cfg.Device(), err)
	}

	c.file = f
	c.cfg.GetLogger().Debug("direct channel opened", "device", c.cfg.Device())

	return nil
}

func (c *directChannel) Read(p []byte) (int, error) {
	if c.file == nil {
		return 0, ErrNotOpen
	}

	return c.file.Read(p)
}

func (c *directChannel) Write(p []byte) (int, error) {
	if c.file == nil {
		return 0, ErrNotOpen
	}

	return c.file.Write(p)
}

// Clear asks the device itself to reset its status and output queue. A raw
// device node gives no way to drain the OS side, so *CLS is the best
// available approximation.
func (c *directChannel) Clear() error {
	if c.file == nil {
		return ErrNotOpen
	}

	_, err := c.file.Write([]byte("*CLS\n"))

	return err
}

// Close releases the device node. Closing an already-closed channel is a
// no-op.
func (c *directChannel) Close() error {
	if c.file == nil {
		return nil
	}

	err := c.file.Close()
	c.file = nil
	c.cfg.GetLogger().Debug("direct channel closed", "device", c.cfg.Device())

	return err
}

func (c *directChannel) IsOpen() bool { return c.file != nil }
