package scpi

import (
	"sync/atomic"
)

// ClientMetrics contains atomic metrics for one instrument client.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ClientMetrics struct {
	// CmdSendCount indicates the number of commands written.
	CmdSendCount atomic.Uint64
	// ReplyRecvCount indicates the number of responses read back.
	ReplyRecvCount atomic.Uint64
	// TimeoutCount indicates the number of reads that expired.
	TimeoutCount atomic.Uint64
	// ErrCount indicates the number of failed transactions.
	ErrCount atomic.Uint64

	// BytesSent indicates the total bytes written to the channel.
	BytesSent atomic.Uint64
	// BytesRecv indicates the total bytes read from the channel.
	BytesRecv atomic.Uint64
}

func (m *ClientMetrics) incCmdSendCount() {
	m.CmdSendCount.Add(1)
}

func (m *ClientMetrics) incReplyRecvCount() {
	m.ReplyRecvCount.Add(1)
}

func (m *ClientMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *ClientMetrics) incErrCount() {
	m.ErrCount.Add(1)
}

func (m *ClientMetrics) addBytesSent(n int) {
	m.BytesSent.Add(uint64(n)) //nolint:gosec
}

func (m *ClientMetrics) addBytesRecv(n int) {
	m.BytesRecv.Add(uint64(n)) //nolint:gosec
}
