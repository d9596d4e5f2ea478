package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/events"
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
		ID:           "r1",
		VehicleID:    "v1",
		VehicleType:  "standard",
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

func TestEvaluateRanksStationsByPotential(t *testing.T) {
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

	builder, err := curve.NewBuilder(curve.Params{EfficiencyFrac: 0.95, StepMin: 1})
	require.NoError(t, err)
	tables, err := builder.BuildAll(reg)
	require.NoError(t, err)

	cfg := Config{
		Start:    start,
		StepMin:  1,
		SOCUpper: eventCfg.SOCUpperThresh,
		SOCLower: eventCfg.SOCLowerThresh,
		Standing: eventCfg.Standing,
	}

	ranked := Evaluate(evs, model.Traces{"v1": trace}, tables, cfg, nil, nil)
	require.NotEmpty(t, ranked)
	require.Equal(t, "A", ranked[0].Name)
	require.Greater(t, ranked[0].PotSumKWh, 0.0)

	for i := 1; i < len(ranked); i++ {
		require.GreaterOrEqual(t, ranked[i-1].PotSumKWh, ranked[i].PotSumKWh)
	}
}

func TestEvaluateSubstitutesMemoDelta(t *testing.T) {
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

	builder, err := curve.NewBuilder(curve.Params{EfficiencyFrac: 0.95, StepMin: 1})
	require.NoError(t, err)
	tables, err := builder.BuildAll(reg)
	require.NoError(t, err)

	cfg := Config{
		Start:    start,
		StepMin:  1,
		SOCUpper: eventCfg.SOCUpperThresh,
		SOCLower: eventCfg.SOCLowerThresh,
		Standing: eventCfg.Standing,
	}

	electrified := model.NewStationSet()
	tree := memo.New()
	tree.Record(memo.Fingerprint(electrified), -40.0)
	tree.Record(memo.Fingerprint(electrified.Clone().Add("A")), -10.0)

	ranked := Evaluate(evs, model.Traces{"v1": trace}, tables, cfg, electrified, tree)
	require.NotEmpty(t, ranked)
	require.Equal(t, "A", ranked[0].Name)
	require.InDelta(t, 30.0, ranked[0].PotSumKWh, 1e-9)
}
