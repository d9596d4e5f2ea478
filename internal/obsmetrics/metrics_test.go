package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m.GroupsTotal)
	require.NotNil(t, m.StationsElectrified)
	require.NotNil(t, m.SearchIterations)
	require.NotNil(t, m.MissingEnergyKWh)
	require.NotNil(t, m.RunDuration)

	m.GroupsTotal.Inc()
	m.MissingEnergyKWh.Set(12.5)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
