package electrify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/events"
	"stationelectrify/internal/model"
	"stationelectrify/internal/search"
)

// buildSingleRotationScenario's rotation has three trips so "depot", the
// first trip inside the deficit window, has a real window-local next
// trip ("midstation") to measure its standing time against; "midstation"
// itself sits right before "downtown" with too short a gap to qualify as
// a candidate, and "downtown" is outside the window entirely.
func buildSingleRotationScenario() (model.Rotation, model.SoCTrace, model.VehicleRegistry, time.Time) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rot := model.Rotation{
		ID:           "rot-1",
		VehicleID:    "bus-1",
		VehicleType:  "standard-12m",
		ChargingType: model.ChargingOpportunity,
		Trips: []model.Trip{
			{DepartureTime: start, ArrivalTime: start.Add(10 * time.Minute), ArrivalName: "depot", ConsumptionKWh: 40},
			{DepartureTime: start.Add(20 * time.Minute), ArrivalTime: start.Add(29 * time.Minute), ArrivalName: "midstation", ConsumptionKWh: 10},
			{DepartureTime: start.Add(31 * time.Minute), ArrivalTime: start.Add(50 * time.Minute), ArrivalName: "downtown", ConsumptionKWh: 50},
		},
	}

	trace := make(model.SoCTrace, 55)
	for i := 0; i <= 9; i++ {
		trace[i] = 1.0 - 0.4*float64(i)/10
	}
	for i := 10; i <= 20; i++ {
		trace[i] = 0.6
	}
	for i := 20; i <= 29; i++ {
		trace[i] = 0.6 - 0.1*float64(i-20)/9
	}
	for i := 29; i <= 31; i++ {
		trace[i] = 0.5
	}
	for i := 31; i <= 50; i++ {
		trace[i] = 0.5 - 0.5*float64(i-31)/19
	}
	for i := 51; i < 55; i++ {
		trace[i] = trace[50]
	}

	reg := model.VehicleRegistry{
		"standard-12m": {
			model.ChargingOpportunity: model.VehicleTypeParams{
				CapacityKWh: 100,
				ChargingCurve: []model.ChargingBreakpoint{
					{SOC: 0, PowerKW: 450},
					{SOC: 0.8, PowerKW: 296},
					{SOC: 1, PowerKW: 210},
				},
			},
		},
	}
	return rot, trace, reg, start
}

func TestRunElectrifiesAndResolvesDeficit(t *testing.T) {
	rot, trace, reg, start := buildSingleRotationScenario()

	opt := New(reg, nil, nil)
	result, err := opt.Run(context.Background(), []model.Rotation{rot}, model.Traces{"bus-1": trace}, RunConfig{
		Start:       start,
		StepMin:     1,
		CurveParams: curve.Params{EfficiencyFrac: 0.95, StepMin: 1},
		EventCfg: events.Config{
			SOCUpperThresh:     0.62,
			SOCLowerThresh:     0.2,
			FilterStandingTime: true,
			Standing:           model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
			StepMin:            1,
		},
		SearchMode:   search.ModeDeep,
		Chooser:      search.ChooserStepByStep,
		MaxBruteLoop: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Electrified)
	require.Contains(t, result.Electrified, "depot")
	require.LessOrEqual(t, result.RemainingMissingKWh, 0.0)
	require.NotEmpty(t, result.RunID)
	require.NotEmpty(t, result.Report)
}

func TestRunExcludesRotationWithNoCandidateStations(t *testing.T) {
	rot, trace, reg, start := buildSingleRotationScenario()

	opt := New(reg, nil, nil)
	result, err := opt.Run(context.Background(), []model.Rotation{rot}, model.Traces{"bus-1": trace}, RunConfig{
		Start:       start,
		StepMin:     1,
		CurveParams: curve.Params{EfficiencyFrac: 0.95, StepMin: 1},
		EventCfg: events.Config{
			SOCUpperThresh:      0.62,
			SOCLowerThresh:      0.2,
			FilterStandingTime:  true,
			NotPossibleStations: model.NewStationSet("depot"),
			Standing:            model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
			StepMin:             1,
		},
		SearchMode:   search.ModeDeep,
		Chooser:      search.ChooserStepByStep,
		MaxBruteLoop: 2,
		NotPossible:  model.NewStationSet("depot"),
	})
	require.NoError(t, err)
	require.Contains(t, result.ExcludedRotationIDs, "rot-1")
}
