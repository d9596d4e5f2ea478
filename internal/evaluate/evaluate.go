// Package evaluate scores each candidate station by the energy it could
// plausibly deliver.
package evaluate

import (
	"sort"
	"time"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/memo"
	"stationelectrify/internal/model"
)

// Station is one ranked candidate.
type Station struct {
	Name         string
	PotSumKWh    float64
	Potentials   []float64
}

// Config carries the thresholds and timing parameters the evaluator
// needs.
type Config struct {
	Start    time.Time
	StepMin  float64
	SOCUpper float64
	SOCLower float64
	Standing model.StandingTimeConfig
}

// Evaluate ranks the candidate stations across events by descending
// estimated SoC-lift potential. If tree is non-nil, a station's pot_sum
// is replaced by the decision tree's stored delta-missing-energy when
// both electrified∪{station} and electrified have been visited before.
func Evaluate(events []model.Event, traces model.Traces, tables map[curve.Key]curve.Table, cfg Config, electrified model.StationSet, tree *memo.Tree) []Station {
	byStation := make(map[string]*Station)
	order := make([]string, 0)

	for _, e := range events {
		tbl := tables[curve.Key{VehicleType: e.VehicleType, ChargingType: e.ChargingType}]
		for i, trip := range e.Trips {
			if !e.Stations.Has(trip.ArrivalName) {
				continue
			}
			idx := model.IndexForTime(trip.ArrivalTime, cfg.Start, cfg.StepMin)
			trace := traces[e.VehicleID]
			if idx < 0 || idx >= len(trace) {
				continue
			}
			soc := trace[idx]

			deltaSOCPot := minOf(
				cfg.SOCUpper-soc,
				cfg.SOCLower-e.MinSOC,
				soc-e.MinSOC,
				cfg.SOCUpper-cfg.SOCLower,
			)

			var next *model.Trip
			if i+1 < len(e.Trips) {
				next = &e.Trips[i+1]
			}
			standingMin := model.StandingTimeMin(trip, next, cfg.Standing)

			var chargePot float64
			if tbl != nil {
				chargePot = tbl.DeltaSoC(soc, standingMin) * e.CapacityKWh
			}
			ePot := minOf(deltaSOCPot*e.CapacityKWh, chargePot)

			st, ok := byStation[trip.ArrivalName]
			if !ok {
				st = &Station{Name: trip.ArrivalName}
				byStation[trip.ArrivalName] = st
				order = append(order, trip.ArrivalName)
			}
			st.PotSumKWh += ePot
			st.Potentials = append(st.Potentials, ePot)
		}
	}

	out := make([]Station, 0, len(order))
	for _, name := range order {
		st := *byStation[name]
		if tree != nil && electrified != nil {
			baseKey := memo.Fingerprint(electrified)
			candidateKey := memo.Fingerprint(electrified.Clone().Add(name))
			base, baseOK := tree.Lookup(baseKey)
			cand, candOK := tree.Lookup(candidateKey)
			if baseOK && candOK {
				st.PotSumKWh = cand.MissingEnergyKWh - base.MissingEnergyKWh
			}
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PotSumKWh > out[j].PotSumKWh
	})
	return out
}

func minOf(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
