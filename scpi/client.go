package scpi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qclabs/go-instr/logger"
	"github.com/qclabs/go-instr/transport"
)

// Client is the command facade drivers talk to. It owns one channel and one
// framed session, and enforces the one-in-flight-command discipline: every
// Query is a write followed immediately by a read on the same goroutine.
type Client struct {
	ch      transport.Channel
	session *Session

	// querySuffix controls whether Query appends '?' to commands lacking
	// one. A few devices use query mnemonics with no '?' convention.
	querySuffix bool

	metrics *ClientMetrics
	logger  logger.Logger
}

// ClientOption is a functional option for configuring a Client.
type ClientOption interface {
	apply(*Client) error
}

type clientOptFunc func(*Client) error

func (f clientOptFunc) apply(c *Client) error { return f(c) }

// WithQuerySuffix controls automatic '?' suffixing in Query. Default is on.
func WithQuerySuffix(on bool) ClientOption {
	return clientOptFunc(func(c *Client) error {
		c.querySuffix = on

		return nil
	})
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(l logger.Logger) ClientOption {
	return clientOptFunc(func(c *Client) error {
		if l == nil {
			return errors.New("scpi: logger must not be nil")
		}
		c.logger = l

		return nil
	})
}

// NewClient creates a client over ch, framed by session.
func NewClient(ch transport.Channel, session *Session, opts ...ClientOption) (*Client, error) {
	c := &Client{
		ch:          ch,
		session:     session,
		querySuffix: true,
		metrics:     &ClientMetrics{},
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Dial builds a channel from cfg, opens it, and wraps it in a client. The
// session options set the framing; the client options set the facade
// behavior.
func Dial(cfg *transport.Config, sessOpts []SessionOption, opts ...ClientOption) (*Client, error) {
	ch, err := transport.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := ch.Open(); err != nil {
		return nil, err
	}

	session, err := NewSession(ch, sessOpts...)
	if err != nil {
		_ = ch.Close()

		return nil, err
	}

	c, err := NewClient(ch, session, opts...)
	if err != nil {
		_ = ch.Close()

		return nil, err
	}

	return c, nil
}

// Session returns the underlying framed session, for protocols that need
// framing the facade does not expose.
func (c *Client) Session() *Session { return c.session }

// Metrics returns the client's transaction counters.
func (c *Client) Metrics() *ClientMetrics { return c.metrics }

// Query writes cmd and returns the next response line with surrounding
// whitespace trimmed. When suffixing is on and cmd does not end in '?', the
// '?' is appended first; a command already ending in '?' is never
// double-suffixed. Failures propagate as-is, with no retry.
func (c *Client) Query(cmd string) (string, error) {
	if c.querySuffix && !strings.HasSuffix(cmd, "?") {
		cmd += "?"
	}

	if err := c.Write(cmd); err != nil {
		return "", err
	}

	resp, err := c.session.ReadLine()
	if err != nil {
		if transport.IsTimeout(err) {
			c.metrics.incTimeoutCount()
		}
		c.metrics.incErrCount()

		return "", fmt.Errorf("query %q: %w", cmd, err)
	}

	c.metrics.incReplyRecvCount()
	c.metrics.addBytesRecv(len(resp))

	return strings.TrimSpace(resp), nil
}

// Write sends cmd without waiting for a response.
func (c *Client) Write(cmd string) error {
	if err := c.session.Write(cmd); err != nil {
		c.metrics.incErrCount()

		return err
	}

	c.metrics.incCmdSendCount()
	c.metrics.addBytesSent(len(cmd))

	return nil
}

// Read returns exactly n bytes from the channel.
func (c *Client) Read(n int) (string, error) {
	resp, err := c.session.ReadN(n)
	if err != nil {
		if transport.IsTimeout(err) {
			c.metrics.incTimeoutCount()
		}
		c.metrics.incErrCount()

		return resp, err
	}

	c.metrics.incReplyRecvCount()
	c.metrics.addBytesRecv(len(resp))

	return resp, nil
}

// ReadLine returns the next terminator-delimited line.
func (c *Client) ReadLine() (string, error) {
	resp, err := c.session.ReadLine()
	if err != nil {
		if transport.IsTimeout(err) {
			c.metrics.incTimeoutCount()
		}
		c.metrics.incErrCount()

		return resp, err
	}

	c.metrics.incReplyRecvCount()
	c.metrics.addBytesRecv(len(resp))

	return resp, nil
}

// ReadAll drains everything buffered on the channel.
func (c *Client) ReadAll() (string, error) {
	resp, err := c.session.ReadAll()
	if err != nil {
		c.metrics.incErrCount()

		return resp, err
	}

	c.metrics.addBytesRecv(len(resp))

	return resp, nil
}

// Clear discards pending input.
func (c *Client) Clear() error {
	return c.ch.Clear()
}

// Identify issues *IDN? and returns the identification string. An empty
// response means the device is unreachable and surfaces as ErrEmptyIdent.
func (c *Client) Identify() (string, error) {
	idn, err := c.Query("*IDN?")
	if err != nil {
		return "", err
	}

	if idn == "" {
		return "", ErrEmptyIdent
	}

	return idn, nil
}

// Close tears down the channel. Any in-flight read fails.
func (c *Client) Close() error {
	return c.ch.Close()
}

// IsOpen reports whether the underlying channel is open.
func (c *Client) IsOpen() bool {
	return c.ch.IsOpen()
}
