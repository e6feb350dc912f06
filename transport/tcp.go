package transport

import (
	"fmt"
	"net"
	"time"
)

// tcpChannel is a Channel over a TCP stream socket.
type tcpChannel struct {
	cfg  *Config
	conn net.Conn
}

func newTCPChannel(cfg *Config) *tcpChannel {
	return &tcpChannel{cfg: cfg}
}

func (c *tcpChannel) Open() error {
	if c.conn != nil {
		return ErrAlreadyOpen
	}

	conn, err := net.DialTimeout("tcp", c.cfg.Addr(), c.cfg.ConnectTimeout())
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.cfg.Addr(), err)
	}

	c.conn = conn
	c.cfg.GetLogger().Debug("tcp channel opened", "addr", c.cfg.Addr())

	return nil
}

func (c *tcpChannel) Read(p []byte) (int, error) {
	if c.conn == nil {
		return 0, ErrNotOpen
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout())); err != nil {
		return 0, err
	}

	return c.conn.Read(p)
}

func (c *tcpChannel) Write(p []byte) (int, error) {
	if c.conn == nil {
		return 0, ErrNotOpen
	}

	return c.conn.Write(p)
}

// Clear drains any bytes already queued on the socket. It reads with a short
// deadline until the first timeout, so a quiet socket costs one short wait.
func (c *tcpChannel) Clear() error {
	if c.conn == nil {
		return ErrNotOpen
	}

	buf := make([]byte, 512)

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond)); err != nil {
			return err
		}

		n, err := c.conn.Read(buf)
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

// Close releases the socket. Closing an already-closed channel is a no-op.
func (c *tcpChannel) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.cfg.GetLogger().Debug("tcp channel closed", "addr", c.cfg.Addr())

	return err
}

func (c *tcpChannel) IsOpen() bool { return c.conn != nil }
