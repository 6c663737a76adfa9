// Package metrics collects in-process counters for RPC traffic and transfer
// outcomes. The CLI prints them in verbose mode.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application counters. All methods are safe for concurrent use.
type Metrics struct {
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	transfersSettled  atomic.Int64
	transfersFailed   atomic.Int64
	transfersDeclined atomic.Int64
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records an RPC call with its duration and outcome.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// TransferOutcome classifies a finished transfer attempt.
type TransferOutcome int

// Transfer outcomes.
const (
	TransferSettled TransferOutcome = iota
	TransferFailed
	TransferDeclined
)

// RecordTransfer records the outcome of one transfer attempt.
func (m *Metrics) RecordTransfer(outcome TransferOutcome) {
	switch outcome {
	case TransferSettled:
		m.transfersSettled.Add(1)
	case TransferDeclined:
		m.transfersDeclined.Add(1)
	case TransferFailed:
		m.transfersFailed.Add(1)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal     int64   `json:"rpc_calls_total"`
	RPCErrorsTotal    int64   `json:"rpc_errors_total"`
	RPCLatencyAvgMs   float64 `json:"rpc_latency_avg_ms"`
	TransfersSettled  int64   `json:"transfers_settled"`
	TransfersFailed   int64   `json:"transfers_failed"`
	TransfersDeclined int64   `json:"transfers_declined"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RPCCallsTotal:     m.rpcCallsTotal.Load(),
		RPCErrorsTotal:    m.rpcErrorsTotal.Load(),
		RPCLatencyAvgMs:   m.RPCLatencyAvgMs(),
		TransfersSettled:  m.transfersSettled.Load(),
		TransfersFailed:   m.transfersFailed.Load(),
		TransfersDeclined: m.transfersDeclined.Load(),
	}
}

// RPCCallsTotal returns the total number of RPC calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of RPC errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds, or 0
// before the first call.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.transfersSettled.Store(0)
	m.transfersFailed.Store(0)
	m.transfersDeclined.Store(0)
}
