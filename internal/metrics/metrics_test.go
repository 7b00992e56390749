package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReplay(reg)

	m.Record()
	m.Record()
	m.Status("dead")
	m.ChainError()
	m.Pump("ticker", "complete", 5*time.Millisecond)

	require.InDelta(t, 2, testutil.ToFloat64(m.records), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.statuses.WithLabelValues("dead")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.chainErrors), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	require.Contains(t, names, "mdwire_replay_records_total")
	require.Contains(t, names, "mdwire_replay_pump_duration_seconds")
}

func TestReplay_Nil(t *testing.T) {
	var m *Replay
	require.NotPanics(t, func() {
		m.Record()
		m.Status("x")
		m.ChainError()
		m.Pump("a", "b", time.Second)
	})
}

func TestReplay_Unregistered(t *testing.T) {
	m := NewReplay(nil)
	m.Record()
	require.InDelta(t, 1, testutil.ToFloat64(m.records), 0)
}
