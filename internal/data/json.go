// Package data loads the scenario JSON files an optimizer run consumes
// (rotations, baseline SoC traces) and writes the electrified-stations
// result back out.
package data

import (
	"encoding/json"
	"os"
	"path/filepath"

	"stationelectrify/internal/model"
)

// LoadRotations reads a fleet's vehicle rotations from path.
func LoadRotations(path string) ([]model.Rotation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rotations []model.Rotation
	if err := json.Unmarshal(raw, &rotations); err != nil {
		return nil, err
	}
	return rotations, nil
}

// LoadTraces reads the simulator's baseline per-vehicle SoC traces from
// path, keyed by vehicle ID.
func LoadTraces(path string) (model.Traces, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw64 map[string][]float64
	if err := json.Unmarshal(raw, &raw64); err != nil {
		return nil, err
	}
	traces := make(model.Traces, len(raw64))
	for vehicle, series := range raw64 {
		traces[vehicle] = model.SoCTrace(series)
	}
	return traces, nil
}

// LoadElectrifiedStations reads a pre-existing electrified-stations file,
// if one exists at path (an absent file is not an error: it simply means
// no station has been electrified yet).
func LoadElectrifiedStations(path string) (model.ElectrifiedStations, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.ElectrifiedStations{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stations model.ElectrifiedStations
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// SaveElectrifiedStations writes stations to path as indented JSON,
// creating parent directories as needed.
func SaveElectrifiedStations(stations model.ElectrifiedStations, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(stations, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
