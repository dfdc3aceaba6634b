// Package metrics exposes the ambient Prometheus instrumentation the
// teacher's fraud package hand-rolled counters for (internal/fraud/
// metrics.go) but never wired to client_golang directly — here it is
// the room/engine/timer observability surface, not the excluded
// anti-cheat feature.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every gauge/counter the server exposes at /metrics.
type Registry struct {
	RoomsActive      prometheus.Gauge
	EnginesActive    prometheus.Gauge
	ActionsTotal     *prometheus.CounterVec
	ActionErrorsTotal *prometheus.CounterVec
	TimerFiresTotal  *prometheus.CounterVec
	AutoPlaysTotal   *prometheus.CounterVec
	EliminationsTotal *prometheus.CounterVec
}

// New registers every metric against reg and returns the bundle.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lobby_rooms_active",
			Help: "Number of rooms currently tracked by the registry.",
		}),
		EnginesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lobby_engines_active",
			Help: "Number of live game engines in the store.",
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_actions_total",
			Help: "Game actions routed successfully, by game kind.",
		}, []string{"kind"}),
		ActionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_action_errors_total",
			Help: "Game actions rejected, by error kind.",
		}, []string{"kind", "error_kind"}),
		TimerFiresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_timer_fires_total",
			Help: "Turn timer expirations, by game kind.",
		}, []string{"kind"}),
		AutoPlaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_autoplays_total",
			Help: "Auto-played turns from timer expiry, by game kind.",
		}, []string{"kind"}),
		EliminationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_eliminations_total",
			Help: "Seats eliminated after exceeding MAX_AUTO_PLAYS, by game kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.RoomsActive, m.EnginesActive, m.ActionsTotal,
		m.ActionErrorsTotal, m.TimerFiresTotal, m.AutoPlaysTotal, m.EliminationsTotal,
	)
	return m
}
