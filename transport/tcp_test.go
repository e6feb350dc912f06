package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/goburrow/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEchoServer accepts one connection and echoes everything back.
func startEchoServer(t *testing.T) net.Addr {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	return ln.Addr()
}

func tcpConfigFor(t *testing.T, addr net.Addr, opts ...Option) *Config {
	t.Helper()

	tcpAddr := addr.(*net.TCPAddr)
	opts = append([]Option{
		WithHost(tcpAddr.IP.String()),
		WithPort(tcpAddr.Port),
	}, opts...)

	cfg, err := NewConfig(TCP, opts...)
	require.NoError(t, err)

	return cfg
}

func TestTCPChannelRoundTrip(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := New(tcpConfigFor(t, addr))
	require.NoError(t, err)

	require.NoError(t, ch.Open())
	require.True(t, ch.IsOpen())
	require.ErrorIs(t, ch.Open(), ErrAlreadyOpen)

	n, err := ch.Write([]byte("PR1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PR1\r\n", string(buf[:n]))

	require.NoError(t, ch.Close())
	require.False(t, ch.IsOpen())

	// A second close releases nothing and succeeds.
	require.NoError(t, ch.Close())
}

func TestTCPChannelReadTimeout(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := New(tcpConfigFor(t, addr, WithReadTimeout(50*time.Millisecond)))
	require.NoError(t, err)
	require.NoError(t, ch.Open())
	defer ch.Close()

	start := time.Now()
	_, err = ch.Read(make([]byte, 16))
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout, got %v", err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTCPChannelClearDrains(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := New(tcpConfigFor(t, addr))
	require.NoError(t, err)
	require.NoError(t, ch.Open())
	defer ch.Close()

	// Stage unread echo data, then clear it.
	_, err = ch.Write([]byte("stale response\r\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, ch.Clear())

	// The next read sees nothing but fresh traffic.
	_, err = ch.Write([]byte("fresh\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "fresh\r\n", string(buf[:n]))
}

func TestTCPChannelNotOpen(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := New(tcpConfigFor(t, addr))
	require.NoError(t, err)

	_, err = ch.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = ch.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, ch.Clear(), ErrNotOpen)
}

func TestTCPChannelConnectRefused(t *testing.T) {
	// Grab a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr()
	require.NoError(t, ln.Close())

	ch, err := New(tcpConfigFor(t, addr, WithConnectTimeout(200*time.Millisecond)))
	require.NoError(t, err)
	require.Error(t, ch.Open())
	assert.False(t, ch.IsOpen())
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.True(t, IsTimeout(ErrTimeout))
	assert.True(t, IsTimeout(os.ErrDeadlineExceeded))
	assert.True(t, IsTimeout(serial.ErrTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("transport: read: %w", serial.ErrTimeout)))
}
