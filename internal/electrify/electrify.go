// Package electrify orchestrates one full optimizer run: extract
// deficits, partition them into independent groups, search each group in
// parallel for a minimal station set, and restart with a rotation
// excluded whenever one of its deficits has no viable candidate station.
package electrify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/evaluate"
	"stationelectrify/internal/events"
	"stationelectrify/internal/group"
	"stationelectrify/internal/memo"
	"stationelectrify/internal/model"
	"stationelectrify/internal/obslog"
	"stationelectrify/internal/obsmetrics"
	"stationelectrify/internal/report"
	"stationelectrify/internal/search"
	"stationelectrify/internal/simulator"
)

// maxImpossibilityPasses bounds how many times the loop may exclude
// rotations and request a fresh simulator baseline before giving up.
const maxImpossibilityPasses = 10

// RunConfig parameterizes one optimizer run.
type RunConfig struct {
	Start       time.Time
	StepMin     float64
	CurveParams curve.Params
	EventCfg    events.Config
	SearchMode  search.Mode
	Chooser     search.Chooser
	MaxBruteLoop int
	NotPossible model.StationSet
	Concurrency int
}

// Result is everything a run produced.
type Result struct {
	RunID               string
	Electrified         model.ElectrifiedStations
	Traces              model.Traces
	ExcludedRotationIDs []string
	Report              []report.Row
	RemainingMissingKWh float64
}

// Optimizer runs the full pipeline against a fixed vehicle-type registry.
type Optimizer struct {
	Registry model.VehicleRegistry
	Log      obslog.Sink
	Metrics  *obsmetrics.Metrics

	// Simulator, if set, is asked for a fresh baseline trace whenever the
	// impossibility loop excludes a rotation and restarts. If nil, the
	// loop restarts against the traces it already has instead.
	Simulator simulator.Runner
}

// New builds an Optimizer. log and metrics may be nil, in which case a
// no-op sink is used and no metrics are recorded. Attach a Simulator
// afterwards to enable the impossibility loop's rebaseline step.
func New(reg model.VehicleRegistry, log obslog.Sink, metrics *obsmetrics.Metrics) *Optimizer {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Optimizer{Registry: reg, Log: log, Metrics: metrics}
}

// Run executes the impossibility loop: extract and group deficits, solve
// every group, and if any rotation turns out to have no viable station at
// all, exclude it and start over. It terminates when no deficit remains,
// after the first pass in which groups are searched (whether or not that
// pass resolved every deficit; energy still missing is reported in
// Result.RemainingMissingKWh), after maxImpossibilityPasses passes, or
// when an error is returned.
func (o *Optimizer) Run(ctx context.Context, rotations []model.Rotation, baseline model.Traces, cfg RunConfig) (Result, error) {
	runID := uuid.NewString()
	log := o.Log.With("run_id", runID)
	log.Infow("starting optimizer run", "rotations", len(rotations))

	builder, err := curve.NewBuilder(cfg.CurveParams)
	if err != nil {
		return Result{}, err
	}
	tables, err := builder.BuildAll(o.Registry)
	if err != nil {
		return Result{}, err
	}

	beforeEvents, err := events.Extract(rotations, cfg.Start, baseline, o.Registry, cfg.EventCfg)
	if err != nil {
		return Result{}, err
	}

	electrified := model.ElectrifiedStations{}
	traces := baseline.Clone()
	tree := memo.New()
	var excluded []string
	active := rotations

	for pass := 0; pass < maxImpossibilityPasses; pass++ {
		currentEvents, err := events.Extract(active, cfg.Start, traces, o.Registry, cfg.EventCfg)
		if err != nil {
			return Result{}, err
		}
		if len(currentEvents) == 0 {
			break
		}

		grouped, err := group.Group(currentEvents, cfg.NotPossible)
		if err != nil {
			return Result{}, err
		}
		if len(grouped.Impossible) > 0 {
			for _, e := range grouped.Impossible {
				if e.Rotation != nil {
					excluded = append(excluded, e.Rotation.ID)
					log.Warnw("excluding rotation with no viable station", "rotation_id", e.Rotation.ID)
				}
			}
			active = withoutRotations(active, excluded)

			if o.Simulator != nil {
				rebased, err := o.Simulator.Run(ctx, simulator.Request{
					Rotations:   active,
					Electrified: electrified,
					Start:       cfg.Start,
				})
				if err != nil {
					return Result{}, err
				}
				traces = rebased.Clone()
			}
			continue
		}
		if len(grouped.Groups) == 0 {
			break
		}

		traces, err = o.solveGroups(ctx, log, grouped.Groups, traces, tables, cfg, electrified, tree)
		if err != nil {
			return Result{}, err
		}

		remaining, err := events.Extract(active, cfg.Start, traces, o.Registry, cfg.EventCfg)
		if err != nil {
			return Result{}, err
		}
		if model.MissingEnergyKWh(remaining) <= 0 {
			break
		}
		// a group failed to fully resolve its deficit without being
		// reported impossible (e.g. search space exhausted); stop to
		// avoid looping forever on the same unsolved group.
		break
	}

	afterEvents, err := events.Extract(active, cfg.Start, traces, o.Registry, cfg.EventCfg)
	if err != nil {
		return Result{}, err
	}
	remainingKWh := model.MissingEnergyKWh(afterEvents)
	if o.Metrics != nil {
		o.Metrics.MissingEnergyKWh.Set(remainingKWh)
	}

	log.Infow("optimizer run complete", "electrified", len(electrified), "excluded_rotations", len(excluded), "remaining_missing_kwh", remainingKWh)

	return Result{
		RunID:               runID,
		Electrified:         electrified,
		Traces:              traces,
		ExcludedRotationIDs: excluded,
		Report:              report.Build(beforeEvents, afterEvents, stationsOf(electrified)),
		RemainingMissingKWh: remainingKWh,
	}, nil
}

func (o *Optimizer) solveGroups(ctx context.Context, log obslog.Sink, groups []group.Group, traces model.Traces, tables map[curve.Key]curve.Table, cfg RunConfig, electrified model.ElectrifiedStations, tree *memo.Tree) (model.Traces, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]search.Outcome, len(groups))
	resultTraces := make([]model.Traces, len(groups))

	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			searchCfg := search.Config{
				Mode:         cfg.SearchMode,
				Chooser:      cfg.Chooser,
				MaxBruteLoop: cfg.MaxBruteLoop,
				Start:        cfg.Start,
				StepMin:      cfg.StepMin,
				EventCfg:     cfg.EventCfg,
				EvalCfg: evaluate.Config{
					Start:    cfg.Start,
					StepMin:  cfg.StepMin,
					SOCUpper: cfg.EventCfg.SOCUpperThresh,
					SOCLower: cfg.EventCfg.SOCLowerThresh,
					Standing: cfg.EventCfg.Standing,
				},
			}
			outcome, updated, err := search.OptimizeGroup(gctx, grp, traces, o.Registry, tables, searchCfg, tree)
			if err != nil {
				log.Warnw("group search did not fully resolve", "error", err.Error(), "stations", grp.Stations.Sorted())
				return nil
			}
			results[i] = outcome
			resultTraces[i] = updated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := traces.Clone()
	for i, grp := range groups {
		if resultTraces[i] == nil {
			continue
		}
		for _, e := range grp.Events {
			merged[e.VehicleID] = resultTraces[i][e.VehicleID]
		}
		for station := range results[i].Stations {
			electrified.Electrify(station)
		}
		if o.Metrics != nil {
			o.Metrics.GroupsTotal.Inc()
			o.Metrics.StationsElectrified.Add(float64(len(results[i].Stations)))
		}
	}
	return merged, nil
}

func withoutRotations(rotations []model.Rotation, excludedIDs []string) []model.Rotation {
	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	out := make([]model.Rotation, 0, len(rotations))
	for _, r := range rotations {
		if !excluded[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func stationsOf(e model.ElectrifiedStations) model.StationSet {
	set := model.NewStationSet()
	for name := range e {
		set.Add(name)
	}
	return set
}
