// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionsAccepted counts accepted connections.
// Use RegisterMetrics to register this with a Prometheus registry.
var ConnectionsAccepted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pagekeep_rpc_connections_total",
		Help: "Total number of accepted RPC connections",
	},
)

// Requests counts dispatched calls by method and outcome. Status is "ok"
// or the wire error code.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pagekeep_rpc_requests_total",
		Help: "Total number of RPC requests by method and status",
	},
	[]string{"method", "status"},
)

// InFlight tracks calls currently executing under the concurrency
// ceiling.
var InFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "pagekeep_rpc_in_flight_requests",
		Help: "Number of RPC requests currently executing",
	},
)

// RegisterMetrics registers rpc package metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ConnectionsAccepted)
	reg.MustRegister(Requests)
	reg.MustRegister(InFlight)
}

// RecordRequest increments the request counter.
func RecordRequest(method, status string) {
	Requests.WithLabelValues(method, status).Inc()
}
