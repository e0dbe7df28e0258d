// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package pgwire

import "github.com/prometheus/client_golang/prometheus"

// ServerMetrics counts protocol activity across all connections.
type ServerMetrics struct {
	BytesIn    prometheus.Counter
	BytesOut   prometheus.Counter
	Conns      prometheus.Gauge
	NewConns   prometheus.Counter
	ParseCount prometheus.Counter
	BindCount  prometheus.Counter
	ErrorCount prometheus.Counter
}

// NewServerMetrics builds the metric set. Register it with a registry
// via Register; the metrics work unregistered too, which keeps tests
// free of global registry state.
func NewServerMetrics() *ServerMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pgbridge", Subsystem: "pgwire", Name: name, Help: help,
		})
	}
	return &ServerMetrics{
		BytesIn:    counter("bytes_in", "Bytes received from clients."),
		BytesOut:   counter("bytes_out", "Bytes sent to clients."),
		Conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pgbridge", Subsystem: "pgwire", Name: "conns",
			Help: "Open client connections.",
		}),
		NewConns:   counter("new_conns", "Total client connections accepted."),
		ParseCount: counter("parse_count", "Parse messages handled."),
		BindCount:  counter("bind_count", "Bind messages handled."),
		ErrorCount: counter("error_count", "ErrorResponse messages sent."),
	}
}

// Register registers every metric with reg.
func (m *ServerMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BytesIn, m.BytesOut, m.Conns, m.NewConns,
		m.ParseCount, m.BindCount, m.ErrorCount,
	)
}
