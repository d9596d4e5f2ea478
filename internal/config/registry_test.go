package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stationelectrify/internal/model"
)

func TestLoadVehicleRegistryParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vehicles.yaml")
	body := `
standard-12m:
  oppb:
    capacity_kwh: 400
    charging_curve:
      - soc: 0
        power_kw: 450
      - soc: 1
        power_kw: 210
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	reg, err := LoadVehicleRegistry(path)
	require.NoError(t, err)
	params, ok := reg.Lookup("standard-12m", model.ChargingOpportunity)
	require.True(t, ok)
	require.Equal(t, 400.0, params.CapacityKWh)
	require.Len(t, params.ChargingCurve, 2)
}

func TestApplyVehicleOverridesOverwritesCapacityAndPower(t *testing.T) {
	reg := model.VehicleRegistry{
		"standard-12m": {
			model.ChargingOpportunity: model.VehicleTypeParams{
				CapacityKWh: 100,
				ChargingCurve: []model.ChargingBreakpoint{
					{SOC: 0, PowerKW: 50},
					{SOC: 1, PowerKW: 20},
				},
			},
		},
	}
	cfg := &Config{BatteryCapacityKWh: 300, ChargingPowerKW: 150}
	cfg.ApplyVehicleOverrides(reg)

	params, ok := reg.Lookup("standard-12m", model.ChargingOpportunity)
	require.True(t, ok)
	require.Equal(t, 300.0, params.CapacityKWh)
	for _, bp := range params.ChargingCurve {
		require.Equal(t, 150.0, bp.PowerKW)
	}
}

func TestApplyVehicleOverridesNoopWhenUnset(t *testing.T) {
	reg := model.VehicleRegistry{
		"standard-12m": {
			model.ChargingOpportunity: model.VehicleTypeParams{CapacityKWh: 100},
		},
	}
	cfg := &Config{}
	cfg.ApplyVehicleOverrides(reg)
	params, _ := reg.Lookup("standard-12m", model.ChargingOpportunity)
	require.Equal(t, 100.0, params.CapacityKWh)
}
