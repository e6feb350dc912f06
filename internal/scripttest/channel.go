// Package scripttest provides a scripted transport.Channel for driver and
// protocol tests. Reads are served from a queue of canned responses,
// ChunkSize bytes at a time; an empty queue reads as a timeout. Writes are
// recorded for assertion.
package scripttest

import (
	"time"

	"github.com/qclabs/go-instr/transport"
)

// Channel is a scripted transport.Channel.
type Channel struct {
	// ChunkSize is the maximum bytes served per Read. Zero means as many
	// as the caller's buffer holds.
	ChunkSize int
	// ReadDelay is slept before every Read, to simulate a slow device.
	ReadDelay time.Duration
	// Writes records every Write payload in order.
	Writes []string
	// Cleared counts Clear calls.
	Cleared int
	// Stale is served before any scripted response and discarded by Clear,
	// modeling leftover bytes from an earlier transaction.
	Stale []byte

	open    bool
	pending []byte
	queue   [][]byte
}

// New creates an open scripted channel serving the given responses in order.
func New(chunkSize int, responses ...string) *Channel {
	ch := &Channel{open: true, ChunkSize: chunkSize}
	for _, r := range responses {
		ch.queue = append(ch.queue, []byte(r))
	}

	return ch
}

// Push appends more canned responses to the script.
func (c *Channel) Push(responses ...string) {
	for _, r := range responses {
		c.queue = append(c.queue, []byte(r))
	}
}

// PendingResponses reports how many scripted responses remain unread.
func (c *Channel) PendingResponses() int {
	n := len(c.queue)
	if len(c.pending) > 0 {
		n++
	}

	return n
}

func (c *Channel) Open() error {
	if c.open {
		return transport.ErrAlreadyOpen
	}
	c.open = true

	return nil
}

func (c *Channel) Read(p []byte) (int, error) {
	if !c.open {
		return 0, transport.ErrNotOpen
	}

	if c.ReadDelay > 0 {
		time.Sleep(c.ReadDelay)
	}

	if len(c.Stale) > 0 {
		c.pending = append(c.Stale, c.pending...)
		c.Stale = nil
	}

	if len(c.pending) == 0 {
		if len(c.queue) == 0 {
			return 0, transport.ErrTimeout
		}
		c.pending = c.queue[0]
		c.queue = c.queue[1:]
	}

	n := c.ChunkSize
	if n <= 0 || n > len(p) {
		n = len(p)
	}
	if n > len(c.pending) {
		n = len(c.pending)
	}

	copy(p, c.pending[:n])
	c.pending = c.pending[n:]

	return n, nil
}

func (c *Channel) Write(p []byte) (int, error) {
	if !c.open {
		return 0, transport.ErrNotOpen
	}
	c.Writes = append(c.Writes, string(p))

	return len(p), nil
}

func (c *Channel) Clear() error {
	if !c.open {
		return transport.ErrNotOpen
	}
	c.pending = nil
	c.Stale = nil
	c.Cleared++

	return nil
}

func (c *Channel) Close() error {
	c.open = false

	return nil
}

func (c *Channel) IsOpen() bool { return c.open }
