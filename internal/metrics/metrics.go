// Package metrics exposes the bridge's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the daemons register.
type Metrics struct {
	RPCCalls    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	TransferOps   *prometheus.CounterVec
	TransferOpDur *prometheus.HistogramVec

	SignerOps *prometheus.CounterVec
}

// New registers the bridge collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_rpc_calls_total",
			Help: "JSON-RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_rpc_duration_seconds",
			Help:    "JSON-RPC call duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		TransferOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_transfer_ops_total",
			Help: "Transfer pipeline operations by stage and outcome",
		}, []string{"op", "outcome"}),
		TransferOpDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_transfer_op_duration_seconds",
			Help:    "Transfer pipeline operation duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"op"}),
		SignerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_signer_ops_total",
			Help: "Signer operations by kind and outcome",
		}, []string{"op", "outcome"}),
	}
}

// Nop returns metrics bound to a throwaway registry, for tests.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRPC records one JSON-RPC call.
func (m *Metrics) ObserveRPC(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RPCCalls.WithLabelValues(method, outcome(err)).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveTransferOp records one pipeline stage.
func (m *Metrics) ObserveTransferOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.TransferOps.WithLabelValues(op, outcome(err)).Inc()
	m.TransferOpDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveSignerOp records one signer operation.
func (m *Metrics) ObserveSignerOp(op string, err error) {
	if m == nil {
		return
	}
	m.SignerOps.WithLabelValues(op, outcome(err)).Inc()
}
