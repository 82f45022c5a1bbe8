// Package metrics exposes Prometheus counters for the Tabichan client and sandbox.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabichan_polls_total",
			Help: "Poll requests by reported job status (or transport_error).",
		},
		[]string{"status"},
	)

	waitOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabichan_wait_outcomes_total",
			Help: "Terminal outcomes of waiting for a job.",
		},
		[]string{"outcome"},
	)

	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabichan_ws_connect_total",
			Help: "WebSocket connection attempts by result.",
		},
		[]string{"result"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabichan_ws_events_total",
			Help: "Session events emitted to listeners by kind.",
		},
		[]string{"kind"},
	)

	sandboxTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabichan_sandbox_tasks_total",
			Help: "Sandbox task transitions by status.",
		},
		[]string{"status"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			pollsTotal, waitOutcomes,
			connectAttempts, sessionEvents,
			sandboxTasks,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Job helpers --------

func ObservePoll(status string) {
	pollsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveWait(outcome string) {
	waitOutcomes.WithLabelValues(norm(outcome)).Inc()
}

// -------- Session helpers --------

func ObserveConnect(result string) {
	connectAttempts.WithLabelValues(norm(result)).Inc()
}

func IncEvent(kind string) {
	sessionEvents.WithLabelValues(norm(kind)).Inc()
}

// -------- Sandbox helpers --------

func IncSandboxTask(status string) {
	sandboxTasks.WithLabelValues(norm(status)).Inc()
}
