package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewRegistersEveryMetricAgainstTheGivenRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families, "New must register its metrics against reg, not a package-global default")

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"lobby_rooms_active", "lobby_engines_active", "lobby_actions_total",
		"lobby_action_errors_total", "lobby_timer_fires_total", "lobby_autoplays_total",
		"lobby_eliminations_total",
	} {
		require.True(t, names[want], "missing registered metric %q", want)
	}
	_ = m
}

func TestGaugesAndCountersAreIndependentlyMutable(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RoomsActive.Inc()
	m.RoomsActive.Inc()
	require.Equal(t, float64(2), gaugeValue(t, m.RoomsActive))

	m.ActionsTotal.WithLabelValues("poker").Inc()
	m.ActionsTotal.WithLabelValues("poker").Inc()
	m.ActionsTotal.WithLabelValues("chess").Inc()
	require.Equal(t, float64(2), counterValue(t, m.ActionsTotal.WithLabelValues("poker")))
	require.Equal(t, float64(1), counterValue(t, m.ActionsTotal.WithLabelValues("chess")))

	m.ActionErrorsTotal.WithLabelValues("poker", "turn").Inc()
	require.Equal(t, float64(1), counterValue(t, m.ActionErrorsTotal.WithLabelValues("poker", "turn")))
}

func TestNewPanicsOnDoubleRegistrationAgainstSameRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	require.Panics(t, func() { New(reg) }, "MustRegister must panic if the same metric names are registered twice")
}
