package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRegistryIncrementsIndependently(t *testing.T) {
	reg := New(prometheus.NewRegistry())

	reg.ForksTotal.Inc()
	reg.ForksTotal.Inc()
	reg.RelaysTotal.Inc()
	reg.TimerFiresTotal.WithLabelValues("timer_d").Inc()

	assert.Equal(t, 2.0, counterValue(t, reg.ForksTotal))
	assert.Equal(t, 1.0, counterValue(t, reg.RelaysTotal))
	assert.Equal(t, 0.0, counterValue(t, reg.AcksSentTotal))

	var m dto.Metric
	require.NoError(t, reg.TimerFiresTotal.WithLabelValues("timer_d").Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestTwoRegistriesDoNotShareState(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.ForksTotal.Inc()
	assert.Equal(t, 1.0, counterValue(t, a.ForksTotal))
	assert.Equal(t, 0.0, counterValue(t, b.ForksTotal))
}
