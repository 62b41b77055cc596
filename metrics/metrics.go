// Package metrics is the observability surface spec.md is silent on: fork
// and relay counts, active-transaction pressure, ACK and timer-fire
// volume. It supplements the core without running an HTTP server —
// startup/CLI wiring (e.g. promhttp.Handler()) stays out of scope, as in
// the teacher's example/proxysip/main.go, a binary this module never owns.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector this module exposes, instantiated
// per-Call-manager rather than on the global default registerer so
// multiple instances in one process (e.g. in tests) never collide.
type Registry struct {
	Registerer prometheus.Registerer

	ForksTotal         prometheus.Counter
	RelaysTotal        prometheus.Counter
	TransactionsActive prometheus.Gauge
	AcksSentTotal      prometheus.Counter
	TimerFiresTotal    *prometheus.CounterVec
}

// New creates a Registry and registers its collectors with reg. Pass
// prometheus.NewRegistry() in production/tests to avoid global state;
// prometheus.DefaultRegisterer works too for a process that wants the
// standard /metrics endpoint wired up by its own main package.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		Registerer: reg,
		ForksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sipflow_forks_total",
			Help: "Total number of proxy forks emitted by the router.",
		}),
		RelaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sipflow_relays_total",
			Help: "Total number of requests handled by the stateless relay.",
		}),
		TransactionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sipflow_transactions_active",
			Help: "Number of client transactions currently tracked across all calls.",
		}),
		AcksSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sipflow_acks_sent_total",
			Help: "Total number of ACK requests sent by the UAC state machine.",
		}),
		TimerFiresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sipflow_timer_fires_total",
			Help: "Total number of transaction timer firings, by timer kind.",
		}, []string{"timer"}),
	}

	reg.MustRegister(
		r.ForksTotal,
		r.RelaysTotal,
		r.TransactionsActive,
		r.AcksSentTotal,
		r.TimerFiresTotal,
	)
	return r
}
