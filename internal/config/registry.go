package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"stationelectrify/internal/model"
)

// LoadVehicleRegistry reads the vehicle-type registry (capacity and
// charging curve per vehicle/charging-type pair) from a YAML file.
func LoadVehicleRegistry(path string) (model.VehicleRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg model.VehicleRegistry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// ApplyVehicleOverrides overwrites the capacity and/or power of every
// charging curve breakpoint in reg with the VEHICLE section's values,
// when set to a positive number. This lets a single-vehicle-type
// scenario be parameterized entirely from the INI file without a
// hand-written YAML registry.
func (c *Config) ApplyVehicleOverrides(reg model.VehicleRegistry) {
	if c.BatteryCapacityKWh <= 0 && c.ChargingPowerKW <= 0 {
		return
	}
	for vType, byChargeType := range reg {
		for chType, params := range byChargeType {
			if c.BatteryCapacityKWh > 0 {
				params.CapacityKWh = c.BatteryCapacityKWh
			}
			if c.ChargingPowerKW > 0 {
				for i := range params.ChargingCurve {
					params.ChargingCurve[i].PowerKW = c.ChargingPowerKW
				}
			}
			reg[vType][chType] = params
		}
	}
}
