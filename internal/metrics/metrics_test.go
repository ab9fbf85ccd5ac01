package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CyclesTotal.Inc()
	m.AlertsFetched.WithLabelValues("bbk-1").Add(3)
	m.AlertsLive.Set(5)
	m.FramesEmitted.WithLabelValues("digi1").Inc()
	m.SourceErrors.WithLabelValues("bbk-1").Inc()
	m.SinkErrors.WithLabelValues("digi1").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}

	assert.Contains(t, byName, "mowasgw_cycles_total")
	assert.Contains(t, byName, "mowasgw_alerts_fetched_total")
	assert.Contains(t, byName, "mowasgw_alerts_live")
	assert.Contains(t, byName, "mowasgw_frames_emitted_total")
	assert.Contains(t, byName, "mowasgw_source_errors_total")
	assert.Contains(t, byName, "mowasgw_sink_errors_total")

	assert.Equal(t, float64(1), byName["mowasgw_cycles_total"].Metric[0].GetCounter().GetValue())
}
