package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/evaluate"
	"stationelectrify/internal/events"
	"stationelectrify/internal/group"
	"stationelectrify/internal/memo"
	"stationelectrify/internal/model"
)

// buildScenario's "B" arrives inside the deficit window, so "A" has a
// window-local next trip to measure its standing time against and is a
// candidate; "B" is last in the window and "C" arrives after its minimum.
func buildScenario(t *testing.T) (model.Rotation, model.SoCTrace, model.VehicleRegistry) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rot := model.Rotation{
		ID:          "r1",
		VehicleID:   "v1",
		VehicleType: "standard",
		ChargingType: model.ChargingOpportunity,
		Trips: []model.Trip{
			{DepartureTime: start, ArrivalTime: start.Add(10 * time.Minute), ArrivalName: "A", ConsumptionKWh: 40},
			{DepartureTime: start.Add(20 * time.Minute), ArrivalTime: start.Add(25 * time.Minute), ArrivalName: "B", ConsumptionKWh: 30},
			{DepartureTime: start.Add(26 * time.Minute), ArrivalTime: start.Add(29 * time.Minute), ArrivalName: "C", ConsumptionKWh: 20},
		},
	}

	trace := make(model.SoCTrace, 30)
	for i := 0; i <= 10; i++ {
		trace[i] = 1.0 - 0.4*float64(i)/10
	}
	for i := 10; i <= 20; i++ {
		trace[i] = 0.6
	}
	for i := 20; i <= 28; i++ {
		trace[i] = 0.6 - 0.5*float64(i-20)/8
	}
	trace[29] = 0.1

	reg := model.VehicleRegistry{
		"standard": {
			model.ChargingOpportunity: model.VehicleTypeParams{
				CapacityKWh: 100,
				ChargingCurve: []model.ChargingBreakpoint{
					{SOC: 0, PowerKW: 450},
					{SOC: 1, PowerKW: 450},
				},
			},
		},
	}
	return rot, trace, reg
}

func buildTables(t *testing.T, reg model.VehicleRegistry) map[curve.Key]curve.Table {
	t.Helper()
	b, err := curve.NewBuilder(curve.Params{EfficiencyFrac: 0.95, StepMin: 1})
	require.NoError(t, err)
	tables, err := b.BuildAll(reg)
	require.NoError(t, err)
	return tables
}

func TestOptimizeGroupStepByStepResolvesDeficit(t *testing.T) {
	rot, trace, reg := buildScenario(t)
	start := rot.DepartureTime()

	eventCfg := events.Config{
		SOCUpperThresh:     0.62,
		SOCLowerThresh:     0.2,
		FilterStandingTime: true,
		Standing:           model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
		StepMin:            1,
	}

	evs, err := events.Extract([]model.Rotation{rot}, start, model.Traces{"v1": trace}, reg, eventCfg)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.True(t, evs[0].Stations.Has("A"))
	require.Greater(t, evs[0].MissingEnergyKWh(), 0.0)

	g := group.Group{Events: evs, Stations: model.NewStationSet("A")}
	tables := buildTables(t, reg)

	cfg := Config{
		Mode:         ModeDeep,
		Chooser:      ChooserStepByStep,
		MaxBruteLoop: 1,
		Start:        start,
		StepMin:      1,
		EventCfg:     eventCfg,
		EvalCfg: evaluate.Config{
			Start:    start,
			StepMin:  1,
			SOCUpper: eventCfg.SOCUpperThresh,
			SOCLower: eventCfg.SOCLowerThresh,
			Standing: eventCfg.Standing,
		},
	}

	outcome, _, err := OptimizeGroup(context.Background(), g, model.Traces{"v1": trace}, reg, tables, cfg, memo.New())
	require.NoError(t, err)
	require.True(t, outcome.Stations.Has("A"))
	require.InDelta(t, 0, outcome.MissingEnergyKWh, 1e-6)
}

func TestOptimizeGroupBruteForceResolvesDeficit(t *testing.T) {
	rot, trace, reg := buildScenario(t)
	start := rot.DepartureTime()

	eventCfg := events.Config{
		SOCUpperThresh:     0.62,
		SOCLowerThresh:     0.2,
		FilterStandingTime: true,
		Standing:           model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
		StepMin:            1,
	}
	evs, err := events.Extract([]model.Rotation{rot}, start, model.Traces{"v1": trace}, reg, eventCfg)
	require.NoError(t, err)

	g := group.Group{Events: evs, Stations: model.NewStationSet("A")}
	tables := buildTables(t, reg)

	cfg := Config{
		Mode:         ModeDeep,
		Chooser:      ChooserBrute,
		MaxBruteLoop: 2,
		Start:        start,
		StepMin:      1,
		EventCfg:     eventCfg,
		EvalCfg: evaluate.Config{
			Start:    start,
			StepMin:  1,
			SOCUpper: eventCfg.SOCUpperThresh,
			SOCLower: eventCfg.SOCLowerThresh,
			Standing: eventCfg.Standing,
		},
	}

	outcome, _, err := OptimizeGroup(context.Background(), g, model.Traces{"v1": trace}, reg, tables, cfg, memo.New())
	require.NoError(t, err)
	require.Equal(t, model.NewStationSet("A"), outcome.Stations)
	require.InDelta(t, 0, outcome.MissingEnergyKWh, 1e-6)
}

func TestOptimizeGroupNoCandidatesFails(t *testing.T) {
	rot, trace, reg := buildScenario(t)
	start := rot.DepartureTime()
	eventCfg := events.Config{
		SOCUpperThresh:     0.62,
		SOCLowerThresh:     0.2,
		FilterStandingTime: true,
		Standing:           model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
		StepMin:            1,
	}
	evs, err := events.Extract([]model.Rotation{rot}, start, model.Traces{"v1": trace}, reg, eventCfg)
	require.NoError(t, err)

	g := group.Group{Events: evs, Stations: model.NewStationSet()}
	tables := buildTables(t, reg)
	cfg := Config{
		Mode:         ModeDeep,
		Chooser:      ChooserStepByStep,
		MaxBruteLoop: 1,
		Start:        start,
		StepMin:      1,
		EventCfg:     eventCfg,
		EvalCfg: evaluate.Config{
			Start: start, StepMin: 1,
			SOCUpper: eventCfg.SOCUpperThresh, SOCLower: eventCfg.SOCLowerThresh,
			Standing: eventCfg.Standing,
		},
	}

	_, _, err = OptimizeGroup(context.Background(), g, model.Traces{"v1": trace}, reg, tables, cfg, memo.New())
	require.Error(t, err)
}
