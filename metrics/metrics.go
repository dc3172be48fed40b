// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package metrics exposes the handful of gauges and counters an operator
// cares about for this protocol handler: how many peers are synchronized,
// how far the chain has advanced, and whether the node itself currently
// considers itself synchronized. It is a thin Prometheus collector, in the
// spirit of the teacher's metrics/prometheus package but wired directly to
// github.com/prometheus/client_golang rather than an internal go-metrics
// shim.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the sync handler updates.
type Registry struct {
	SyncedPeers      prometheus.Gauge
	TotalPeers       prometheus.Gauge
	Synchronized     prometheus.Gauge
	MaxHeightSeen    prometheus.Gauge
	CoreHeight       prometheus.Gauge
	CallbacksFired   prometheus.Counter
	ConnectionsDrops prometheus.Counter

	SynchronizedTransitions prometheus.Counter
}

// NewRegistry creates and registers the handler's metrics against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests) or nil to use
// the default global registry.
func NewRegistry(reg *prometheus.Registry) *Registry {
	factory := prometheus.WrapRegistererWith(nil, orDefault(reg))
	r := &Registry{
		SyncedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaynode_synced_peers",
			Help: "Number of connections currently in the Normal state reporting a remote height above 1.",
		}),
		TotalPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaynode_total_peers",
			Help: "Total number of active connections.",
		}),
		Synchronized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaynode_synchronized",
			Help: "1 if the node currently considers itself synchronized with the network, 0 otherwise.",
		}),
		MaxHeightSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaynode_max_height_seen",
			Help: "Highest chain height announced by any peer so far.",
		}),
		CoreHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaynode_core_height",
			Help: "Current local blockchain height as observed by the handler.",
		}),
		CallbacksFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaynode_callbacks_fired_total",
			Help: "Total number of on_callback invocations processed.",
		}),
		ConnectionsDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaynode_connection_drops_total",
			Help: "Total number of connections dropped by the handler for misbehavior.",
		}),
		SynchronizedTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaynode_synchronized_transitions_total",
			Help: "Total number of false-to-true transitions of the synchronized flag.",
		}),
	}
	factory.MustRegister(r.SyncedPeers, r.TotalPeers, r.Synchronized, r.MaxHeightSeen, r.CoreHeight,
		r.CallbacksFired, r.ConnectionsDrops, r.SynchronizedTransitions)
	return r
}

func orDefault(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

// Handler returns the HTTP handler that serves this registry's metrics in
// the Prometheus text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
