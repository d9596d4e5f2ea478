// Package search implements the station-selection driver: given a group
// of events and their shared candidate stations, find the smallest
// station set that clears every event's deficit, or report why none
// exists.
package search

import (
	"context"
	"time"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/evaluate"
	"stationelectrify/internal/events"
	"stationelectrify/internal/group"
	"stationelectrify/internal/kernel"
	"stationelectrify/internal/memo"
	"stationelectrify/internal/model"
	"stationelectrify/internal/optimizererrors"
)

// Mode governs how far the driver backtracks once a chosen station fails
// to resolve a group outright.
type Mode int

const (
	// ModeDeep recurses: if a chosen station leaves energy missing, it
	// keeps expanding that branch, and falls back to the next-ranked
	// station at the same level if the branch dead-ends. At the
	// OptimizeGroup level, ModeDeep also triggers the diversification
	// loop: once the recursive search lands on a resolving set, up to
	// MaxBruteLoop further attempts are made, each seeded by the
	// smallest resolving set found so far as a bound, keeping the
	// smallest resolving set found.
	ModeDeep Mode = iota
	// ModeGreedy takes one station per call and returns immediately,
	// win or not; the caller's impossibility loop decides what happens
	// to any energy still missing.
	ModeGreedy
)

// Chooser selects the candidate-picking strategy.
type Chooser int

const (
	// ChooserStepByStep evaluates candidates and advances one station at
	// a time, honoring Mode for backtracking.
	ChooserStepByStep Chooser = iota
	// ChooserBrute enumerates station combinations of a fixed size and
	// stops at the first one whose potential clears a pre-check
	// threshold, irrespective of Mode.
	ChooserBrute
)

// Config parameterizes one group's search.
type Config struct {
	Mode         Mode
	Chooser      Chooser
	MaxBruteLoop int
	Start        time.Time
	StepMin      float64
	EventCfg     events.Config
	EvalCfg      evaluate.Config

	// PreOptimizedSet, when non-nil, seeds the step-by-step bound prune
	// and fixes the brute chooser's combination size. It is set by
	// OptimizeGroup's diversification loop, never by the first pass.
	PreOptimizedSet model.StationSet
}

// Outcome is a group's resolved (or best-effort) station set.
type Outcome struct {
	Stations         model.StationSet
	MissingEnergyKWh float64
}

// OptimizeGroup searches g for a station set that eliminates its
// deficit, starting from traces (left untouched; a working clone is
// returned alongside the outcome). tree accumulates every station set
// visited along the way so sibling groups and later rounds can reuse the
// work.
//
// The first pass is always a step-by-step search with no pre-optimized
// set (the "run greedy once" leg). In ModeDeep, once that pass resolves
// the group, up to MaxBruteLoop further passes run using cfg.Chooser,
// each seeded by the best set found so far as its pre-optimized set, in
// search of a smaller resolving set. ModeGreedy returns the first pass's
// outcome unconditionally.
func OptimizeGroup(ctx context.Context, g group.Group, traces model.Traces, reg model.VehicleRegistry, tables map[curve.Key]curve.Table, cfg Config, tree *memo.Tree) (Outcome, model.Traces, error) {
	baseline := cfg
	baseline.PreOptimizedSet = nil
	best, bestTraces, err := stepByStepRecurse(ctx, g, traces.Clone(), reg, tables, baseline, tree, model.NewStationSet(), g.Stations.Clone())
	if err != nil {
		return Outcome{}, nil, err
	}
	if cfg.Mode != ModeDeep || best.MissingEnergyKWh != 0 {
		return best, bestTraces, nil
	}

	for i := 0; i < cfg.MaxBruteLoop; i++ {
		seeded := cfg
		seeded.PreOptimizedSet = best.Stations

		var candidate Outcome
		var candidateTraces model.Traces
		var cErr error
		switch cfg.Chooser {
		case ChooserBrute:
			candidate, candidateTraces, cErr = bruteForceSearch(ctx, g, traces.Clone(), reg, tables, seeded, tree)
		default:
			candidate, candidateTraces, cErr = stepByStepRecurse(ctx, g, traces.Clone(), reg, tables, seeded, tree, model.NewStationSet(), g.Stations.Clone())
		}
		if cErr != nil {
			continue
		}
		if candidate.MissingEnergyKWh == 0 && len(candidate.Stations) < len(best.Stations) {
			best, bestTraces = candidate, candidateTraces
		}
	}
	return best, bestTraces, nil
}

func stepByStepRecurse(ctx context.Context, g group.Group, traces model.Traces, reg model.VehicleRegistry, tables map[curve.Key]curve.Table, cfg Config, tree *memo.Tree, electrified, candidates model.StationSet) (Outcome, model.Traces, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, nil, ctx.Err()
	default:
	}

	missingEnergy, err := recomputeMissingEnergy(traces, g, reg, cfg.EventCfg, cfg.Start, cfg.StepMin)
	if err != nil {
		return Outcome{}, nil, err
	}
	if missingEnergy <= 0 {
		return Outcome{Stations: electrified, MissingEnergyKWh: 0}, traces, nil
	}

	ranked := evaluate.Evaluate(g.Events, traces, tables, cfg.EvalCfg, electrified, tree)

	if cfg.PreOptimizedSet != nil {
		delta := len(cfg.PreOptimizedSet) - len(electrified)
		if delta > 0 {
			n := delta
			if n > len(ranked) {
				n = len(ranked)
			}
			pot := 0.0
			for i := 0; i < n; i++ {
				pot += ranked[i].PotSumKWh
			}
			if pot <= -missingEnergy {
				return Outcome{}, nil, optimizererrors.NoCandidateStations
			}
		}
	}

	var best *evaluate.Station
	for i := range ranked {
		if candidates.Has(ranked[i].Name) {
			best = &ranked[i]
			break
		}
	}
	if best == nil {
		return Outcome{}, nil, optimizererrors.NoCandidateStations
	}

	nextElectrified := electrified.Clone().Add(best.Name)
	appliedTraces, err := applyStation(traces, g, reg, tables, cfg, best.Name)
	if err != nil {
		return Outcome{}, nil, err
	}

	missing, err := recomputeMissingEnergy(appliedTraces, g, reg, cfg.EventCfg, cfg.Start, cfg.StepMin)
	if err != nil {
		return Outcome{}, nil, err
	}
	tree.Record(memo.Fingerprint(nextElectrified), missing)

	if missing <= 0 {
		return Outcome{Stations: nextElectrified, MissingEnergyKWh: 0}, appliedTraces, nil
	}
	if cfg.Mode == ModeGreedy {
		return Outcome{Stations: nextElectrified, MissingEnergyKWh: missing}, appliedTraces, nil
	}

	remaining := candidates.Clone()
	delete(remaining, best.Name)
	if len(remaining) > 0 {
		outcome, resultTraces, err := stepByStepRecurse(ctx, g, appliedTraces, reg, tables, cfg, tree, nextElectrified, remaining)
		if err == nil && outcome.MissingEnergyKWh == 0 {
			return outcome, resultTraces, nil
		}
	}

	sibling := candidates.Clone()
	delete(sibling, best.Name)
	if len(sibling) == 0 {
		return Outcome{}, nil, optimizererrors.ExhaustedSearch
	}
	return stepByStepRecurse(ctx, g, traces, reg, tables, cfg, tree, electrified, sibling)
}

// bruteForceSearch enumerates combinations of exactly
// len(cfg.PreOptimizedSet) stations (1 if unset), drawn from the
// evaluator's ranked keys, and accepts the first unseen combination whose
// summed potential clears 0.8 of the group's missing energy. The kernel
// is only ever applied to the accepted combination, never to every
// candidate inspected along the way.
func bruteForceSearch(ctx context.Context, g group.Group, traces model.Traces, reg model.VehicleRegistry, tables map[curve.Key]curve.Table, cfg Config, tree *memo.Tree) (Outcome, model.Traces, error) {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	missingEnergy, err := recomputeMissingEnergy(traces, g, reg, cfg.EventCfg, cfg.Start, cfg.StepMin)
	if err != nil {
		return Outcome{}, nil, err
	}
	if missingEnergy <= 0 {
		return Outcome{Stations: model.NewStationSet(), MissingEnergyKWh: 0}, traces, nil
	}

	size := 1
	if cfg.PreOptimizedSet != nil {
		size = len(cfg.PreOptimizedSet)
	}

	ranked := evaluate.Evaluate(g.Events, traces, tables, cfg.EvalCfg, model.NewStationSet(), tree)
	names := make([]string, len(ranked))
	potByName := make(map[string]float64, len(ranked))
	for i, st := range ranked {
		names[i] = st.Name
		potByName[st.Name] = st.PotSumKWh
	}

	for combo := range Combinations(genCtx, names, size) {
		electrified := model.NewStationSet(combo...)
		key := memo.Fingerprint(electrified)
		if _, seen := tree.Lookup(key); seen {
			continue
		}

		potSum := 0.0
		for _, name := range combo {
			potSum += potByName[name]
		}
		if potSum <= 0.8*(-missingEnergy) {
			continue
		}

		appliedTraces, err := applyStation(traces, g, reg, tables, cfg, combo...)
		if err != nil {
			return Outcome{}, nil, err
		}
		missing, err := recomputeMissingEnergy(appliedTraces, g, reg, cfg.EventCfg, cfg.Start, cfg.StepMin)
		if err != nil {
			return Outcome{}, nil, err
		}
		tree.Record(key, missing)
		return Outcome{Stations: electrified, MissingEnergyKWh: missing}, appliedTraces, nil
	}
	return Outcome{}, nil, optimizererrors.ExhaustedSearch
}

// applyStation runs the fast kernel over every visit any event in g
// makes at one of stations, returning an updated trace set.
func applyStation(traces model.Traces, g group.Group, reg model.VehicleRegistry, tables map[curve.Key]curve.Table, cfg Config, stations ...string) (model.Traces, error) {
	set := model.NewStationSet(stations...)
	out := traces.Clone()

	for _, e := range g.Events {
		tbl, ok := tables[curve.Key{VehicleType: e.VehicleType, ChargingType: e.ChargingType}]
		if !ok {
			continue
		}
		for i, trip := range e.Trips {
			if !set.Has(trip.ArrivalName) {
				continue
			}
			var next *model.Trip
			if i+1 < len(e.Trips) {
				next = &e.Trips[i+1]
			}
			standingMin := model.StandingTimeMin(trip, next, cfg.EventCfg.Standing)
			if standingMin <= 0 {
				continue
			}
			bufferSteps := int(cfg.EventCfg.Standing.BufferMin / cfg.StepMin)
			arrivalIdx := model.IndexForTime(trip.ArrivalTime, cfg.Start, cfg.StepMin) + bufferSteps
			departureIdx := arrivalIdx + 1
			if next != nil {
				departureIdx = model.IndexForTime(next.DepartureTime, cfg.Start, cfg.StepMin) + bufferSteps
			}

			trace := out[e.VehicleID]
			updated, err := kernel.Apply(trace, kernel.Visit{
				ArrivalIdx:   arrivalIdx,
				DepartureIdx: departureIdx,
				StandingMin:  standingMin,
			}, tbl, e.CapacityKWh)
			if err != nil {
				return nil, err
			}
			out[e.VehicleID] = updated
		}
	}
	return out, nil
}

// recomputeMissingEnergy re-extracts events from the group's rotations
// against the current traces and sums their deficits.
func recomputeMissingEnergy(traces model.Traces, g group.Group, reg model.VehicleRegistry, cfg events.Config, start time.Time, stepMin float64) (float64, error) {
	rotations := rotationsOf(g)
	evs, err := events.Extract(rotations, start, traces, reg, cfg)
	if err != nil {
		return 0, err
	}
	return model.MissingEnergyKWh(evs), nil
}

func rotationsOf(g group.Group) []model.Rotation {
	seen := make(map[string]bool)
	var out []model.Rotation
	for _, e := range g.Events {
		if e.Rotation == nil || seen[e.Rotation.ID] {
			continue
		}
		seen[e.Rotation.ID] = true
		out = append(out, *e.Rotation)
	}
	return out
}
