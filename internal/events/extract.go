// Package events mines below-threshold SoC excursions out of a vehicle's
// SoC timeseries.
package events

import (
	"fmt"
	"time"

	"stationelectrify/internal/model"
)

// Config controls one extraction pass.
type Config struct {
	SOCUpperThresh       float64
	SOCLowerThresh       float64
	FilterStandingTime   bool
	RelativeSOC          bool
	NotPossibleStations  model.StationSet
	Standing             model.StandingTimeConfig
	StepMin              float64
}

// Extract runs the event extractor over every rotation in rotations,
// using traces for SoC lookups (start is the scenario's t=0 instant) and
// reg for per-rotation battery capacity. Extract reads a sanitized
// (unknown-filled) working copy of each trace; it never mutates traces.
func Extract(rotations []model.Rotation, start time.Time, traces model.Traces, reg model.VehicleRegistry, cfg Config) ([]model.Event, error) {
	var events []model.Event
	for i := range rotations {
		rot := &rotations[i]
		trace, ok := traces[rot.VehicleID]
		if !ok {
			return nil, fmt.Errorf("events: no SoC trace for vehicle %q", rot.VehicleID)
		}
		work := trace.Clone()
		work.Sanitize()

		params, ok := reg.Lookup(rot.VehicleType, rot.ChargingType)
		if !ok {
			return nil, fmt.Errorf("events: no vehicle-type registry entry for %s/%s", rot.VehicleType, rot.ChargingType)
		}

		rotStart := model.IndexForTime(rot.DepartureTime(), start, cfg.StepMin)
		rotEnd := model.IndexForTime(rot.ArrivalTime(), start, cfg.StepMin)
		if rotEnd <= rotStart || rotEnd > len(work) {
			return nil, fmt.Errorf("events: invalid rotation window [%d,%d) for %s", rotStart, rotEnd, rot.ID)
		}

		evs := extractRotation(rot, work, start, rotStart, rotEnd, params.CapacityKWh, cfg)
		events = append(events, evs...)
	}
	return events, nil
}

func extractRotation(rot *model.Rotation, soc model.SoCTrace, start time.Time, rotStart, rotEnd int, capacityKWh float64, cfg Config) []model.Event {
	loCur := cfg.SOCLowerThresh
	upper := cfg.SOCUpperThresh
	if cfg.RelativeSOC {
		startSOC := soc[rotStart]
		loCur = minFloat(startSOC, cfg.SOCUpperThresh) - (cfg.SOCUpperThresh - cfg.SOCLowerThresh)
		upper = loCur + cfg.SOCUpperThresh
	}

	residual := make([]int, 0, rotEnd-rotStart)
	for i := rotStart; i < rotEnd; i++ {
		residual = append(residual, i)
	}

	var out []model.Event
	for len(residual) > 0 {
		minIdx := residual[0]
		minSOC := soc[minIdx]
		for _, idx := range residual {
			if soc[idx] < minSOC {
				minSOC = soc[idx]
				minIdx = idx
			}
		}
		if minSOC >= loCur {
			break
		}

		i := minIdx
		for soc[i] < upper && i > rotStart {
			i--
		}
		windowStart := i

		i = minIdx
		for soc[i] < upper && i < rotEnd-1 {
			i++
		}
		windowEnd := i

		trips := tripsInWindow(rot, start, windowStart, minIdx, cfg.StepMin)
		stations := candidateStations(trips, cfg)

		out = append(out, model.Event{
			StartIdx:     windowStart,
			MinIdx:       minIdx,
			EndIdx:       windowEnd,
			MinSOC:       minSOC,
			CapacityKWh:  capacityKWh,
			VehicleID:    rot.VehicleID,
			VehicleType:  rot.VehicleType,
			ChargingType: rot.ChargingType,
			Trips:        trips,
			Stations:     stations,
			Rotation:     rot,
		})

		var next []int
		for _, idx := range residual {
			if idx < windowStart || idx > windowEnd {
				next = append(next, idx)
			}
		}
		residual = next
	}
	return out
}

// tripsInWindow returns the rotation's trips whose arrival falls strictly
// inside (windowStart, minIdx), using a time-based comparison rather
// than raw index arithmetic so sub-step arrivals are placed consistently.
func tripsInWindow(rot *model.Rotation, start time.Time, windowStart, minIdx int, stepMin float64) []model.Trip {
	startTime := model.TimeForIndex(windowStart, start, stepMin)
	endTime := model.TimeForIndex(minIdx, start, stepMin)

	var out []model.Trip
	for _, trip := range rot.Trips {
		if trip.ArrivalTime.After(startTime) && trip.ArrivalTime.Before(endTime) {
			out = append(out, trip)
		}
	}
	return out
}

func candidateStations(trips []model.Trip, cfg Config) model.StationSet {
	stations := model.NewStationSet()
	if !cfg.FilterStandingTime {
		for _, t := range trips {
			stations.Add(t.ArrivalName)
		}
		return stations.Subtract(cfg.NotPossibleStations)
	}

	for idx, t := range trips {
		var next *model.Trip
		if idx+1 < len(trips) {
			next = &trips[idx+1]
		}
		st := model.StandingTimeMin(t, next, cfg.Standing)
		if st > 0 {
			stations.Add(t.ArrivalName)
		}
	}
	return stations.Subtract(cfg.NotPossibleStations)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
